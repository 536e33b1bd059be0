package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/db"
	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/report"
	"github.com/bmvandoren/vol2bird/internal/testutil"
)

var rowPattern = regexp.MustCompile(`^[ 0-9]{8} .{0,4} [ -]*\d+ +-?\d+\.\d{2} +-?\d+\.\d{2} +-?\d+\.\d{2} +-?\d+\.\d{2} +-?\d+\.\d +-?\d+\.\d{2} [TF] +-?\d+\.\d{2} +-?\d+\.\d +-?\d+\.\d{2} +-?\d+\.\d{2} +-?\d+ +-?\d+ +-?\d+ +-?\d+$`)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")
	var out, errBuf bytes.Buffer
	code = run(args, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

func withBackend(t *testing.T, b engine.Backend) {
	t.Helper()
	prev := newBackend
	newBackend = func() engine.Backend { return b }
	t.Cleanup(func() { newBackend = prev })
}

func TestRun_NoArguments(t *testing.T) {
	code, stdout, stderr := runCLI(t)
	assert.Equal(t, -1, code)
	assert.Empty(t, stdout)
	assert.True(t, strings.HasPrefix(stderr, "usage: vol2bird"), "stderr: %q", stderr)
}

func TestRun_TwoArguments(t *testing.T) {
	code, stdout, stderr := runCLI(t, "a.json", "b.json")
	assert.Equal(t, -1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Only one argument is allowed")
}

func TestRun_NonPolarVolumeIsSkipped(t *testing.T) {
	path := testutil.WriteFixture(t, "scan.json", testutil.ScanDocument())

	code, stdout, stderr := runCLI(t, path)
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
}

func TestRun_NonPolarVolumeVerbose(t *testing.T) {
	path := testutil.WriteFixture(t, "scan.json", testutil.ScanDocument())

	code, stdout, stderr := runCLI(t, "-v", path)
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "is not PVOL")
}

func TestRun_ThreeRowProfile(t *testing.T) {
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(3))

	code, stdout, stderr := runCLI(t, path)
	require.Equal(t, 0, code, "stderr: %s", stderr)

	lines := strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, report.Header, lines[0])
	for _, line := range lines[1:] {
		assert.Regexp(t, rowPattern, line)
	}
	assert.Equal(t, "20160214 1205  100   2.00  -1.00    0.05  3.00 180.0 190.00 F   1.50    7.0   4.50  20.00    50  1000    12  2000", lines[1])

	assert.Contains(t, stderr, "# source: "+testutil.FixtureSource)
	assert.Contains(t, stderr, "# polar volume input: "+path)
	assert.NotContains(t, stdout, "# source")
}

func TestRun_ConfigLimitsLayers(t *testing.T) {
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(5))
	cfgPath := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("n_layers: 2\n"), 0o644))

	code, stdout, _ := runCLI(t, "-config", cfgPath, path)
	require.Equal(t, 0, code)
	assert.Len(t, strings.Split(strings.TrimSuffix(stdout, "\n"), "\n"), 3)
}

func TestRun_ConfigFromEnvironment(t *testing.T) {
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(5))
	cfgPath := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"n_layers": 1}`), 0o644))

	t.Setenv(config.EnvConfigPath, cfgPath)
	var out, errBuf bytes.Buffer
	require.Equal(t, 0, run([]string{path}, &out, &errBuf))
	assert.Len(t, strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n"), 2)
}

func TestRun_ConfigFailure(t *testing.T) {
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(3))
	cfgPath := filepath.Join(t.TempDir(), "options.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"n_gates_cell_min": 0}`), 0o644))

	code, stdout, stderr := runCLI(t, "-config", cfgPath, path)
	assert.Equal(t, -1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, engine.ErrConfigLoad.Error())
}

func TestRun_SetupFailure(t *testing.T) {
	backend := testutil.NewFakeBackend(3)
	backend.SetUpErr = errors.New("no usable sweeps")
	withBackend(t, backend)
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(3))

	code, stdout, stderr := runCLI(t, path)
	assert.Equal(t, -1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, engine.ErrSetupFailed.Error())
	assert.Equal(t, 0, backend.Computes())
}

func TestRun_ComputeFailureTearsDown(t *testing.T) {
	backend := testutil.NewFakeBackend(3)
	backend.ComputeErr = errors.New("boom")
	withBackend(t, backend)
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(3))

	code, stdout, _ := runCLI(t, path)
	assert.Equal(t, -1, code)
	assert.Empty(t, stdout)
	assert.Equal(t, 1, backend.TearDowns())
}

func TestRun_MissingInput(t *testing.T) {
	code, stdout, stderr := runCLI(t, filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, -1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "failed to stat volume")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, "vol2bird "))
}

func TestRun_Sinks(t *testing.T) {
	path := testutil.WriteFixture(t, "volume.json", testutil.VolumeDocument(3))
	out := filepath.Join(t.TempDir(), "out")
	dbPath := filepath.Join(t.TempDir(), "archive.db")

	code, _, stderr := runCLI(t,
		"-db", dbPath,
		"-plot", filepath.Join(out, "profile.png"),
		"-html", filepath.Join(out, "profile.html"),
		"-xlsx", filepath.Join(out, "profile.xlsx"),
		path,
	)
	require.Equal(t, 0, code, "stderr: %s", stderr)

	for _, name := range []string{"profile.png", "profile.html", "profile.xlsx"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	archive, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer archive.Close()
	runs, err := archive.Runs(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, path, runs[0].InputPath)
}
