// Package engine defines the contract of the profile analysis engine and
// the reference-counted handle through which it is driven.
package engine

import (
	"errors"

	"github.com/bmvandoren/vol2bird/internal/config"
	"github.com/bmvandoren/vol2bird/internal/profile"
	"github.com/bmvandoren/vol2bird/internal/volume"
)

var (
	ErrConfigLoad       = errors.New("failed to load engine configuration")
	ErrSetupFailed      = errors.New("engine setup failed")
	ErrAllocationFailed = errors.New("engine allocation failed")
	ErrComputeFailed    = errors.New("engine compute failed")
	ErrNotSetUp         = errors.New("engine not set up")
	ErrReleased         = errors.New("engine handle released")
)

// Constants is the engine configuration block. The handle owns one copy;
// attribute writes mutate it in place.
type Constants struct {
	NGatesCellMin         int
	CellDbzMin            float64
	LayerThickness        float64
	NLayers               int
	RangeMin              float64
	RangeMax              float64
	ElevMin               float64
	ElevMax               float64
	BirdRadarCrossSection float64
}

// ConstantsFromConfig resolves cfg, filling unset fields with defaults.
func ConstantsFromConfig(cfg *config.Config) Constants {
	if cfg == nil {
		cfg = config.Empty()
	}
	return Constants{
		NGatesCellMin:         cfg.GetNGatesCellMin(),
		CellDbzMin:            cfg.GetCellDbzMin(),
		LayerThickness:        cfg.GetLayerThickness(),
		NLayers:               cfg.GetNLayers(),
		RangeMin:              cfg.GetRangeMin(),
		RangeMax:              cfg.GetRangeMax(),
		ElevMin:               cfg.GetElevMin(),
		ElevMax:               cfg.GetElevMax(),
		BirdRadarCrossSection: cfg.GetBirdRadarCrossSection(),
	}
}

// DefaultConstants returns the built-in engine defaults.
func DefaultConstants() Constants {
	return ConstantsFromConfig(nil)
}

// Settings snapshots c for attaching to a computed profile.
func (c Constants) Settings() profile.Settings {
	return profile.Settings{
		NGatesCellMin:         c.NGatesCellMin,
		CellDbzMin:            c.CellDbzMin,
		LayerThickness:        c.LayerThickness,
		NLayers:               c.NLayers,
		RangeMin:              c.RangeMin,
		RangeMax:              c.RangeMax,
		ElevMin:               c.ElevMin,
		ElevMax:               c.ElevMax,
		BirdRadarCrossSection: c.BirdRadarCrossSection,
	}
}

// Backend prepares engine sessions for polar volumes.
type Backend interface {
	// SetUp prepares a session for vol. A non-nil error means setup
	// failed; a nil Session with a nil error means no session could be
	// allocated.
	SetUp(vol *volume.PolarVolume, c Constants) (Session, error)
}

// Session is the per-volume engine state. Sessions are not safe for
// concurrent use.
type Session interface {
	// Compute runs the profile estimation with the given constants.
	Compute(c Constants) error
	RowCount() int
	ColCount() int
	// Profile returns the row-major buffer for a variant id (1 = bio,
	// 3 = all), or nil before Compute.
	Profile(variantID int) []float64
	// TearDown releases the session state. It is called at most once.
	TearDown()
}
