package profile

import (
	"bytes"
	"encoding/json"
	"math"
)

// Cell is a profile value in JSON form. Missing values are NaN in memory
// and null on the wire; infinities also encode as null.
type Cell float64

// Missing reports whether c holds no data.
func (c Cell) Missing() bool {
	f := float64(c)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Missing() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(c))
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Cell(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Cell(f)
	return nil
}

// Cells converts a row of values to their JSON form. A nil row stays nil.
func Cells(row []float64) []Cell {
	if row == nil {
		return nil
	}
	out := make([]Cell, len(row))
	for i, v := range row {
		out[i] = Cell(v)
	}
	return out
}

// Floats is the inverse of Cells.
func Floats(row []Cell) []float64 {
	if row == nil {
		return nil
	}
	out := make([]float64, len(row))
	for i, c := range row {
		out[i] = float64(c)
	}
	return out
}

type layerJSON struct {
	HeightBottom Cell `json:"height_bottom"`
	HeightTop    Cell `json:"height_top"`
	Height       Cell `json:"height"`
	U            Cell `json:"u"`
	V            Cell `json:"v"`
	W            Cell `json:"w"`
	Speed        Cell `json:"speed"`
	Direction    Cell `json:"direction"`
	DirectionAll Cell `json:"direction_all"`
	Gap          bool `json:"gap"`
	StdDev       Cell `json:"stddev"`
	Eta          Cell `json:"eta"`
	Dbz          Cell `json:"dbz"`
	Density      Cell `json:"density"`
	NPoints      Cell `json:"n_points"`
	DensityAll   Cell `json:"density_all"`
	DbzAll       Cell `json:"dbz_all"`
	NPointsAll   Cell `json:"n_points_all"`
}

// MarshalJSON writes missing values as null.
func (l Layer) MarshalJSON() ([]byte, error) {
	return json.Marshal(layerJSON{
		HeightBottom: Cell(l.HeightBottom),
		HeightTop:    Cell(l.HeightTop),
		Height:       Cell(l.Height),
		U:            Cell(l.U),
		V:            Cell(l.V),
		W:            Cell(l.W),
		Speed:        Cell(l.Speed),
		Direction:    Cell(l.Direction),
		DirectionAll: Cell(l.DirectionAll),
		Gap:          l.Gap,
		StdDev:       Cell(l.StdDev),
		Eta:          Cell(l.Eta),
		Dbz:          Cell(l.Dbz),
		Density:      Cell(l.Density),
		NPoints:      Cell(l.NPoints),
		DensityAll:   Cell(l.DensityAll),
		DbzAll:       Cell(l.DbzAll),
		NPointsAll:   Cell(l.NPointsAll),
	})
}

// UnmarshalJSON reads null as NaN.
func (l *Layer) UnmarshalJSON(data []byte) error {
	var j layerJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*l = Layer{
		HeightBottom: float64(j.HeightBottom),
		HeightTop:    float64(j.HeightTop),
		Height:       float64(j.Height),
		U:            float64(j.U),
		V:            float64(j.V),
		W:            float64(j.W),
		Speed:        float64(j.Speed),
		Direction:    float64(j.Direction),
		DirectionAll: float64(j.DirectionAll),
		Gap:          j.Gap,
		StdDev:       float64(j.StdDev),
		Eta:          float64(j.Eta),
		Dbz:          float64(j.Dbz),
		Density:      float64(j.Density),
		NPoints:      float64(j.NPoints),
		DensityAll:   float64(j.DensityAll),
		DbzAll:       float64(j.DbzAll),
		NPointsAll:   float64(j.NPointsAll),
	}
	return nil
}

type summaryJSON struct {
	VID    Cell `json:"vid"`
	MTR    Cell `json:"mtr"`
	Layers int  `json:"layers"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(summaryJSON{VID: Cell(s.VID), MTR: Cell(s.MTR), Layers: s.Layers})
}

func (s *Summary) UnmarshalJSON(data []byte) error {
	var j summaryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*s = Summary{VID: float64(j.VID), MTR: float64(j.MTR), Layers: j.Layers}
	return nil
}
