package replay

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/testutil"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

func TestReplay_ThroughHandle(t *testing.T) {
	h := engine.NewHandle(New())
	defer h.Release()

	require.NoError(t, h.LoadConfig(nil))
	require.NoError(t, h.SetUp(testutil.PolarVolume(3)))
	require.NoError(t, h.Compute())

	assert.Equal(t, 3, h.RowCount())
	assert.Equal(t, profile.NColumns, h.ColCount())

	bio, err := h.Profile(profile.Bio)
	require.NoError(t, err)
	assert.Equal(t, testutil.ProfileData(3, profile.Bio), bio.Data())

	all, err := h.Profile(profile.All)
	require.NoError(t, err)
	assert.Equal(t, testutil.ProfileData(3, profile.All), all.Data())
}

func TestReplay_TruncatesToNLayers(t *testing.T) {
	b := New()
	c := engine.DefaultConstants()
	c.NLayers = 2

	s, err := b.SetUp(testutil.PolarVolume(5), c)
	require.NoError(t, err)
	defer s.TearDown()

	require.NoError(t, s.Compute(c))
	assert.Equal(t, 2, s.RowCount())
	assert.Len(t, s.Profile(int(profile.Bio)), 2*profile.NColumns)
	assert.Nil(t, s.Profile(2))
}

func TestReplay_SetUpErrors(t *testing.T) {
	b := New()
	c := engine.DefaultConstants()

	noSweeps := volume.NewPolarVolume(volume.What{}, volume.Where{}, nil, &volume.Recording{Columns: profile.NColumns})
	_, err := b.SetUp(noSweeps, c)
	assert.True(t, errors.Is(err, ErrNoSweeps))

	noRecording := volume.NewPolarVolume(volume.What{}, volume.Where{}, []volume.Sweep{{Elangle: 0.5}}, nil)
	_, err = b.SetUp(noRecording, c)
	assert.True(t, errors.Is(err, ErrNoRecording))

	narrow := c
	narrow.ElevMin, narrow.ElevMax = 10, 20
	_, err = b.SetUp(testutil.PolarVolume(1), narrow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elevation window")
}

func TestReplay_ComputeErrors(t *testing.T) {
	c := engine.DefaultConstants()

	tests := []struct {
		name   string
		mutate func(*engine.Constants)
		rec    *volume.Recording
		want   error
	}{
		{
			name:   "zero gates",
			mutate: func(c *engine.Constants) { c.NGatesCellMin = 0 },
		},
		{
			name:   "nan threshold",
			mutate: func(c *engine.Constants) { c.CellDbzMin = math.NaN() },
		},
		{
			name: "narrow recording",
			rec:  &volume.Recording{Columns: 10, Bio: [][]float64{make([]float64, 10)}, All: [][]float64{make([]float64, 10)}},
			want: ErrMalformed,
		},
		{
			name: "row count mismatch",
			rec:  &volume.Recording{Columns: profile.NColumns, Bio: [][]float64{make([]float64, profile.NColumns)}},
			want: ErrMalformed,
		},
		{
			name: "ragged row",
			rec:  &volume.Recording{Columns: profile.NColumns, Bio: [][]float64{make([]float64, 3)}, All: [][]float64{make([]float64, profile.NColumns)}},
			want: ErrMalformed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cc := c
			if tc.mutate != nil {
				tc.mutate(&cc)
			}
			vol := testutil.PolarVolume(2)
			if tc.rec != nil {
				vol = volume.NewPolarVolume(volume.What{}, volume.Where{}, vol.Sweeps(), tc.rec)
			}
			s, err := New().SetUp(vol, c)
			require.NoError(t, err)
			defer s.TearDown()

			err = s.Compute(cc)
			require.Error(t, err)
			if tc.want != nil {
				assert.True(t, errors.Is(err, tc.want), "got %v", err)
			}
		})
	}
}

func TestReplay_TearDownClears(t *testing.T) {
	c := engine.DefaultConstants()
	s, err := New().SetUp(testutil.PolarVolume(2), c)
	require.NoError(t, err)
	require.NoError(t, s.Compute(c))

	s.TearDown()
	assert.Equal(t, 0, s.RowCount())
	assert.Nil(t, s.Profile(int(profile.Bio)))
}
