// Package replay is an engine backend that serves the profile matrices the
// native engine recorded into a volume document (how/vpb), instead of
// re-running the estimation.
package replay

import (
	"errors"
	"fmt"
	"math"

	"github.com/bmvandoren/vol2bird/internal/engine"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

var (
	ErrNoSweeps    = errors.New("polar volume has no sweeps")
	ErrNoRecording = errors.New("polar volume carries no recorded profile")
	ErrMalformed   = errors.New("malformed profile recording")
)

// Backend replays recorded profiles.
type Backend struct{}

// New returns a replay backend.
func New() *Backend {
	return &Backend{}
}

// SetUp checks that vol has usable sweeps and a recording.
func (b *Backend) SetUp(vol *volume.PolarVolume, c engine.Constants) (engine.Session, error) {
	sweeps := vol.Sweeps()
	if len(sweeps) == 0 {
		return nil, ErrNoSweeps
	}
	inWindow := 0
	for _, s := range sweeps {
		if s.Elangle >= c.ElevMin && s.Elangle <= c.ElevMax {
			inWindow++
		}
	}
	if inWindow == 0 {
		return nil, fmt.Errorf("no sweeps within elevation window [%.1f, %.1f]", c.ElevMin, c.ElevMax)
	}
	rec := vol.Recording()
	if rec == nil {
		return nil, ErrNoRecording
	}
	return &session{rec: rec}, nil
}

type session struct {
	rec *volume.Recording

	rows, cols int
	bio, all   []float64
}

func (s *session) Compute(c engine.Constants) error {
	if c.NGatesCellMin <= 0 {
		return fmt.Errorf("nGatesCellMin must be positive, got %d", c.NGatesCellMin)
	}
	if math.IsNaN(c.CellDbzMin) || math.IsInf(c.CellDbzMin, 0) {
		return fmt.Errorf("cellDbzMin must be finite, got %v", c.CellDbzMin)
	}

	cols := s.rec.Columns
	if cols < profile.NColumns {
		return fmt.Errorf("%w: %d columns, need %d", ErrMalformed, cols, profile.NColumns)
	}
	if len(s.rec.Bio) != len(s.rec.All) {
		return fmt.Errorf("%w: %d bio rows but %d all rows", ErrMalformed, len(s.rec.Bio), len(s.rec.All))
	}

	rows := len(s.rec.Bio)
	if c.NLayers > 0 && rows > c.NLayers {
		rows = c.NLayers
	}
	bio, err := flatten(s.rec.Bio[:rows], cols)
	if err != nil {
		return fmt.Errorf("bio: %w", err)
	}
	all, err := flatten(s.rec.All[:rows], cols)
	if err != nil {
		return fmt.Errorf("all: %w", err)
	}

	s.rows, s.cols = rows, cols
	s.bio, s.all = bio, all
	return nil
}

func flatten(rows [][]float64, cols int) ([]float64, error) {
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrMalformed, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return data, nil
}

func (s *session) RowCount() int { return s.rows }
func (s *session) ColCount() int { return s.cols }

func (s *session) Profile(variantID int) []float64 {
	switch profile.Variant(variantID) {
	case profile.Bio:
		return s.bio
	case profile.All:
		return s.all
	}
	return nil
}

func (s *session) TearDown() {
	s.rec = nil
	s.bio, s.all = nil, nil
	s.rows, s.cols = 0, 0
}
