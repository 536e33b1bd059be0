package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

// Metadata of the fixture volume.
const (
	FixtureSource = "WMO:06260,NOD:nldbl"
	FixtureDate   = "20160214"
	FixtureTime   = "120500"
)

// ProfileRows returns deterministic profile rows for variant v. Bin r
// spans [200r, 200r+200) metres in both variants.
func ProfileRows(rows int, v profile.Variant) [][]float64 {
	out := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		f := float64(r)
		row := make([]float64, profile.NColumns)
		row[profile.ColHeightBottom] = 200 * f
		row[profile.ColHeightTop] = 200*f + 200
		switch v {
		case profile.Bio:
			row[profile.ColU] = 2 + 0.25*f
			row[profile.ColV] = -1 + 0.5*f
			row[profile.ColW] = 0.05
			row[profile.ColSpeed] = 3 + f
			row[profile.ColDirection] = 180 + 10*f
			row[profile.ColGap] = float64(r % 2)
			row[profile.ColStdDev] = 1.5 + 0.1*f
			row[profile.ColEta] = 50 + 5*f
			row[profile.ColDbz] = 7 + f
			row[profile.ColDensity] = 4.5 + f
			row[profile.ColNPoints] = 1000 + 10*f
		case profile.All:
			row[profile.ColDirectionAll] = 190 + 10*f
			row[profile.ColDensityAll] = 20 + f
			row[profile.ColDbzAll] = 12.25 + f
			row[profile.ColNPointsAll] = 2000 + f
		}
		out[r] = row
	}
	return out
}

// ProfileData flattens ProfileRows into a row-major buffer.
func ProfileData(rows int, v profile.Variant) []float64 {
	data := make([]float64, 0, rows*profile.NColumns)
	for _, row := range ProfileRows(rows, v) {
		data = append(data, row...)
	}
	return data
}

// PolarVolume returns a three-sweep volume carrying a recorded profile
// with the given number of bins.
func PolarVolume(rows int) *volume.PolarVolume {
	return volume.NewPolarVolume(
		volume.What{Source: FixtureSource, Date: FixtureDate, Time: FixtureTime},
		volume.Where{Lat: 52.953, Lon: 4.79, Height: 50},
		[]volume.Sweep{
			{Elangle: 0.3, NBins: 480, NRays: 360, RScale: 500},
			{Elangle: 1.1, NBins: 480, NRays: 360, RScale: 500},
			{Elangle: 2.0, NBins: 480, NRays: 360, RScale: 500},
		},
		&volume.Recording{
			Columns: profile.NColumns,
			Bio:     ProfileRows(rows, profile.Bio),
			All:     ProfileRows(rows, profile.All),
		},
	)
}

// VolumeDocument returns the encoded form of PolarVolume(rows).
func VolumeDocument(rows int) []byte {
	data, err := volume.Encode(PolarVolume(rows))
	if err != nil {
		panic(err)
	}
	return data
}

// ScanDocument returns a document declaring a single scan.
func ScanDocument() []byte {
	return []byte(`{"what": {"object": "SCAN", "source": "` + FixtureSource + `", "date": "` + FixtureDate + `", "time": "` + FixtureTime + `"}}`)
}

// WriteFixture writes data to name inside a fresh temporary directory and
// returns the full path.
func WriteFixture(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}
