package profile

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Metadata identifies the volume a profile was computed from.
type Metadata struct {
	Source string `json:"source"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

// Settings is a snapshot of the engine constants used for a run.
type Settings struct {
	NGatesCellMin         int     `json:"n_gates_cell_min"`
	CellDbzMin            float64 `json:"cell_dbz_min"`
	LayerThickness        float64 `json:"layer_thickness"`
	NLayers               int     `json:"n_layers"`
	RangeMin              float64 `json:"range_min"`
	RangeMax              float64 `json:"range_max"`
	ElevMin               float64 `json:"elev_min"`
	ElevMax               float64 `json:"elev_max"`
	BirdRadarCrossSection float64 `json:"bird_radar_cross_section"`
}

// VerticalProfile is the result of one compute: owned copies of both
// matrices plus the metadata and settings that produced them.
type VerticalProfile struct {
	Metadata Metadata
	Settings Settings

	bio *Matrix
	all *Matrix
}

// NewVerticalProfile copies bio and all into a new profile. The two
// matrices must have the matching variants and identical height bins.
func NewVerticalProfile(meta Metadata, settings Settings, bio, all *Matrix) (*VerticalProfile, error) {
	if bio == nil || all == nil {
		return nil, ErrNotComputed
	}
	if bio.Variant() != Bio {
		return nil, fmt.Errorf("%w: expected bio matrix, got %s", ErrInvalidVariant, bio.Variant())
	}
	if all.Variant() != All {
		return nil, fmt.Errorf("%w: expected all matrix, got %s", ErrInvalidVariant, all.Variant())
	}
	if !SameHeightBins(bio, all) {
		return nil, fmt.Errorf("%w: bio and all height bins differ", ErrShape)
	}
	return &VerticalProfile{
		Metadata: meta,
		Settings: settings,
		bio:      bio.Clone(),
		all:      all.Clone(),
	}, nil
}

// Bio returns the biological-scatterer matrix.
func (p *VerticalProfile) Bio() *Matrix { return p.bio }

// All returns the all-scatterer matrix.
func (p *VerticalProfile) All() *Matrix { return p.all }

// Len returns the number of height bins.
func (p *VerticalProfile) Len() int { return p.bio.Rows() }

// Layer is one height bin with both variants merged under named fields.
// Bins without data hold NaN, which encodes as JSON null.
type Layer struct {
	HeightBottom float64 `json:"height_bottom"`
	HeightTop    float64 `json:"height_top"`
	Height       float64 `json:"height"`
	U            float64 `json:"u"`
	V            float64 `json:"v"`
	W            float64 `json:"w"`
	Speed        float64 `json:"speed"`
	Direction    float64 `json:"direction"`
	DirectionAll float64 `json:"direction_all"`
	Gap          bool    `json:"gap"`
	StdDev       float64 `json:"stddev"`
	Eta          float64 `json:"eta"`
	Dbz          float64 `json:"dbz"`
	Density      float64 `json:"density"`
	NPoints      float64 `json:"n_points"`
	DensityAll   float64 `json:"density_all"`
	DbzAll       float64 `json:"dbz_all"`
	NPointsAll   float64 `json:"n_points_all"`
}

// Layers returns one Layer per height bin, bottom to top.
func (p *VerticalProfile) Layers() []Layer {
	layers := make([]Layer, p.Len())
	for i := range layers {
		b := p.bio.Row(i)
		a := p.all.Row(i)
		layers[i] = Layer{
			HeightBottom: b.Bottom(),
			HeightTop:    b.Top(),
			Height:       b.Height(),
			U:            b.U(),
			V:            b.V(),
			W:            b.W(),
			Speed:        b.Speed(),
			Direction:    b.Direction(),
			DirectionAll: a.DirectionAll(),
			Gap:          b.Gap(),
			StdDev:       b.StdDev(),
			Eta:          b.Eta(),
			Dbz:          b.Dbz(),
			Density:      b.Density(),
			NPoints:      b.NPoints(),
			DensityAll:   a.DensityAll(),
			DbzAll:       a.DbzAll(),
			NPointsAll:   a.NPointsAll(),
		}
	}
	return layers
}

// Summary holds quantities integrated over the whole profile.
type Summary struct {
	// VID is the vertically integrated density in birds/km^2.
	VID float64 `json:"vid"`
	// MTR is the migration traffic rate in birds/km/h.
	MTR float64 `json:"mtr"`
	// Layers counts the bins that contributed.
	Layers int `json:"layers"`
}

// Summary integrates bird density and flux over height. Bins with a
// missing (non-finite or negative) density or speed are skipped.
func (p *VerticalProfile) Summary() Summary {
	var density, speed, depth []float64
	for i := 0; i < p.Len(); i++ {
		r := p.bio.Row(i)
		d, s := r.Density(), r.Speed()
		if !usable(d) || !usable(s) {
			continue
		}
		density = append(density, d)
		speed = append(speed, s)
		depth = append(depth, (r.Top()-r.Bottom())/1000) // km
	}
	if len(density) == 0 {
		return Summary{}
	}

	vid := floats.Dot(density, depth)

	flux := make([]float64, len(density))
	floats.MulTo(flux, density, speed)
	floats.Scale(3.6, flux) // m/s to km/h
	mtr := floats.Dot(flux, depth)

	return Summary{VID: vid, MTR: mtr, Layers: len(density)}
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
