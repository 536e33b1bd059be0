package profile

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildData returns a rows x NColumns buffer where bin r spans
// [r*200, (r+1)*200) and every other cell is fill + r.
func buildData(rows int, fill float64) []float64 {
	data := make([]float64, rows*NColumns)
	for r := 0; r < rows; r++ {
		for c := 0; c < NColumns; c++ {
			data[r*NColumns+c] = fill + float64(r)
		}
		data[r*NColumns+int(ColHeightBottom)] = float64(r * 200)
		data[r*NColumns+int(ColHeightTop)] = float64((r + 1) * 200)
	}
	return data
}

func TestNewMatrix_Validation(t *testing.T) {
	tests := []struct {
		name    string
		variant Variant
		rows    int
		cols    int
		n       int
		want    error
	}{
		{"bio ok", Bio, 3, NColumns, 3 * NColumns, nil},
		{"all ok", All, 0, NColumns, 0, nil},
		{"wider rows ok", Bio, 2, 16, 32, nil},
		{"variant 2 reserved", Variant(2), 1, NColumns, NColumns, ErrInvalidVariant},
		{"variant 0", Variant(0), 1, NColumns, NColumns, ErrInvalidVariant},
		{"short buffer", Bio, 3, NColumns, 3*NColumns - 1, ErrShape},
		{"too few columns", All, 1, 13, 13, ErrShape},
		{"negative rows", Bio, -1, NColumns, 0, ErrShape},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMatrix(tc.variant, tc.rows, tc.cols, make([]float64, tc.n))
			if tc.want == nil {
				require.NoError(t, err)
				assert.Equal(t, tc.rows, m.Rows())
				assert.Equal(t, tc.cols, m.Cols())
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestMatrix_RowMajorIndexing(t *testing.T) {
	data := buildData(3, 1)
	m, err := NewMatrix(Bio, 3, NColumns, data)
	require.NoError(t, err)

	for r := 0; r < 3; r++ {
		for c := Column(0); c < NColumns; c++ {
			assert.Equal(t, data[r*NColumns+int(c)], m.At(r, c))
		}
	}
	assert.Panics(t, func() { m.At(3, ColU) })
	assert.Panics(t, func() { m.Row(-1) })
}

func TestMatrix_BorrowedAndCloned(t *testing.T) {
	data := buildData(2, 5)
	m, err := NewMatrix(All, 2, NColumns, data)
	require.NoError(t, err)

	clone := m.Clone()
	data[int(ColU)] = 99

	assert.Equal(t, 99.0, m.At(0, ColU), "matrix should alias the buffer")
	assert.Equal(t, 5.0, clone.At(0, ColU), "clone should own its buffer")
	assert.Equal(t, All, clone.Variant())
}

func TestMatrix_Dense(t *testing.T) {
	data := buildData(2, 1)
	m, err := NewMatrix(Bio, 2, NColumns, data)
	require.NoError(t, err)

	d := m.Dense()
	r, c := d.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, NColumns, c)
	assert.Equal(t, m.At(1, ColSpeed), d.At(1, int(ColSpeed)))

	data[int(ColV)] = -4
	assert.Equal(t, -4.0, d.At(0, int(ColV)), "Dense should share the buffer")

	empty, err := NewMatrix(Bio, 0, NColumns, nil)
	require.NoError(t, err)
	assert.Nil(t, empty.Dense())
}

func TestRow_NamedAccessors(t *testing.T) {
	data := make([]float64, NColumns)
	copy(data, []float64{200, 400, 1.5, -2.5, 0.1, 2.92, 149, 151, 1, 2.2, 45.5, 6.7, 4.1, 800})
	m, err := NewMatrix(Bio, 1, NColumns, data)
	require.NoError(t, err)

	row := m.Row(0)
	assert.Equal(t, 0, row.Index())
	assert.Equal(t, 300.0, row.Height())
	assert.Equal(t, 1.5, row.U())
	assert.Equal(t, -2.5, row.V())
	assert.Equal(t, 0.1, row.W())
	assert.Equal(t, 2.92, row.Speed())
	assert.Equal(t, 149.0, row.Direction())
	assert.Equal(t, 151.0, row.DirectionAll())
	assert.True(t, row.Gap())
	assert.Equal(t, 2.2, row.StdDev())
	assert.Equal(t, 45.5, row.Eta())
	assert.Equal(t, 6.7, row.Dbz())
	assert.Equal(t, 4.1, row.Density())
	assert.Equal(t, 800.0, row.NPoints())

	// the all variant reuses columns 9, 10 and 13
	assert.Equal(t, row.StdDev(), row.DensityAll())
	assert.Equal(t, row.Eta(), row.DbzAll())
	assert.Equal(t, row.NPoints(), row.NPointsAll())
}

func TestVariant_String(t *testing.T) {
	assert.Equal(t, "bio", Bio.String())
	assert.Equal(t, "all", All.String())
	assert.Equal(t, "Variant(2)", Variant(2).String())
}

func TestNewVerticalProfile(t *testing.T) {
	bio, err := NewMatrix(Bio, 3, NColumns, buildData(3, 1))
	require.NoError(t, err)
	all, err := NewMatrix(All, 3, NColumns, buildData(3, 7))
	require.NoError(t, err)

	meta := Metadata{Source: "NOD:nldbl", Date: "20160214", Time: "1200"}
	vp, err := NewVerticalProfile(meta, Settings{NGatesCellMin: 10, CellDbzMin: 15}, bio, all)
	require.NoError(t, err)
	assert.Equal(t, 3, vp.Len())
	assert.Equal(t, meta, vp.Metadata)
	assert.Equal(t, 10, vp.Settings.NGatesCellMin)

	// the profile owns copies
	bio.Data()[int(ColU)] = 1000
	assert.NotEqual(t, 1000.0, vp.Bio().At(0, ColU))

	for r := 0; r < vp.Len(); r++ {
		assert.Equal(t, vp.Bio().Row(r).Height(), vp.All().Row(r).Height(), "row %d", r)
	}
}

func TestNewVerticalProfile_Errors(t *testing.T) {
	bio, _ := NewMatrix(Bio, 2, NColumns, buildData(2, 1))
	all, _ := NewMatrix(All, 2, NColumns, buildData(2, 1))
	allShort, _ := NewMatrix(All, 1, NColumns, buildData(1, 1))

	shifted := buildData(2, 1)
	shifted[NColumns+int(ColHeightTop)] = 450
	allShifted, _ := NewMatrix(All, 2, NColumns, shifted)

	_, err := NewVerticalProfile(Metadata{}, Settings{}, nil, all)
	assert.True(t, errors.Is(err, ErrNotComputed))

	_, err = NewVerticalProfile(Metadata{}, Settings{}, all, all)
	assert.True(t, errors.Is(err, ErrInvalidVariant))

	_, err = NewVerticalProfile(Metadata{}, Settings{}, bio, bio)
	assert.True(t, errors.Is(err, ErrInvalidVariant))

	_, err = NewVerticalProfile(Metadata{}, Settings{}, bio, allShort)
	assert.True(t, errors.Is(err, ErrShape))

	_, err = NewVerticalProfile(Metadata{}, Settings{}, bio, allShifted)
	assert.True(t, errors.Is(err, ErrShape))
}

func TestVerticalProfile_Layers(t *testing.T) {
	bioData := make([]float64, NColumns)
	copy(bioData, []float64{0, 200, 1, 2, 3, 4, 5, 0, 0, 9, 10, 11, 12, 13})
	allData := make([]float64, NColumns)
	copy(allData, []float64{0, 200, 0, 0, 0, 0, 0, 27, 0, 29, 30, 0, 0, 33})

	bio, _ := NewMatrix(Bio, 1, NColumns, bioData)
	all, _ := NewMatrix(All, 1, NColumns, allData)
	vp, err := NewVerticalProfile(Metadata{}, Settings{}, bio, all)
	require.NoError(t, err)

	want := []Layer{{
		HeightBottom: 0, HeightTop: 200, Height: 100,
		U: 1, V: 2, W: 3, Speed: 4, Direction: 5, DirectionAll: 27,
		Gap: false, StdDev: 9, Eta: 10, Dbz: 11, Density: 12, NPoints: 13,
		DensityAll: 29, DbzAll: 30, NPointsAll: 33,
	}}
	if diff := cmp.Diff(want, vp.Layers()); diff != "" {
		t.Errorf("Layers() mismatch (-want +got):\n%s", diff)
	}
}

func TestVerticalProfile_Summary(t *testing.T) {
	rows := 3
	bioData := buildData(rows, 0)
	setRow := func(r int, density, speed float64) {
		bioData[r*NColumns+int(ColDensity)] = density
		bioData[r*NColumns+int(ColSpeed)] = speed
	}
	setRow(0, 10, 5)
	setRow(1, 20, 10)
	setRow(2, -9999, 3) // nodata, skipped

	bio, _ := NewMatrix(Bio, rows, NColumns, bioData)
	all, _ := NewMatrix(All, rows, NColumns, buildData(rows, 0))
	vp, err := NewVerticalProfile(Metadata{}, Settings{}, bio, all)
	require.NoError(t, err)

	s := vp.Summary()
	assert.Equal(t, 2, s.Layers)
	assert.InDelta(t, 6.0, s.VID, 1e-9)
	assert.InDelta(t, 180.0, s.MTR, 1e-9)
}

func TestVerticalProfile_SummaryEmpty(t *testing.T) {
	bio, _ := NewMatrix(Bio, 0, NColumns, nil)
	all, _ := NewMatrix(All, 0, NColumns, nil)
	vp, err := NewVerticalProfile(Metadata{}, Settings{}, bio, all)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, vp.Summary())
}

func TestCell_JSON(t *testing.T) {
	data, err := json.Marshal([]Cell{1.5, Cell(math.NaN()), Cell(math.Inf(-1))})
	require.NoError(t, err)
	assert.Equal(t, `[1.5,null,null]`, string(data))

	var cells []Cell
	require.NoError(t, json.Unmarshal([]byte(`[2, null]`), &cells))
	require.Len(t, cells, 2)
	assert.Equal(t, Cell(2), cells[0])
	assert.True(t, cells[1].Missing())

	assert.Nil(t, Cells(nil))
	assert.Equal(t, []float64{1, 2}, Floats(Cells([]float64{1, 2})))
}

func TestLayer_JSONMissingValues(t *testing.T) {
	data := buildData(1, 3)
	data[ColU] = math.NaN()
	data[ColDensity] = math.NaN()
	bio, err := NewMatrix(Bio, 1, NColumns, data)
	require.NoError(t, err)
	all, err := NewMatrix(All, 1, NColumns, buildData(1, 5))
	require.NoError(t, err)
	vp, err := NewVerticalProfile(Metadata{Source: "NOD:nldbl"}, Settings{}, bio, all)
	require.NoError(t, err)

	want := vp.Layers()[0]
	out, err := json.Marshal(want)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"u":null`)
	assert.Contains(t, string(out), `"density":null`)
	assert.Contains(t, string(out), `"v":3`)

	var got Layer
	require.NoError(t, json.Unmarshal(out, &got))
	assert.True(t, math.IsNaN(got.U))
	assert.True(t, math.IsNaN(got.Density))
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("layer mismatch (-want +got):\n%s", diff)
	}

	summary := vp.Summary()
	assert.Zero(t, summary.Layers, "bin without density is skipped")
	out, err = json.Marshal(Summary{VID: math.NaN(), MTR: 2, Layers: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"vid":null,"mtr":2,"layers":1}`, string(out))
}
