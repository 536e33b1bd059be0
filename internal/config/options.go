package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bmvandoren/vol2bird/internal/fsutil"
)

// EnvConfigPath names the environment variable that supplies the default
// options file for the vol2bird command.
const EnvConfigPath = "VOL2BIRD_CONFIG"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Config holds the analysis engine options. Every field is optional: the
// Get* methods fall back to the engine defaults, so partial files are safe.
// The same schema is accepted as JSON or YAML.
type Config struct {
	// Cell detection
	NGatesCellMin *int     `json:"n_gates_cell_min,omitempty" yaml:"n_gates_cell_min,omitempty"`
	CellDbzMin    *float64 `json:"cell_dbz_min,omitempty" yaml:"cell_dbz_min,omitempty"`

	// Profile layering
	LayerThickness *float64 `json:"layer_thickness,omitempty" yaml:"layer_thickness,omitempty"` // metres
	NLayers        *int     `json:"n_layers,omitempty" yaml:"n_layers,omitempty"`

	// Volume selection
	RangeMin *float64 `json:"range_min,omitempty" yaml:"range_min,omitempty"` // metres
	RangeMax *float64 `json:"range_max,omitempty" yaml:"range_max,omitempty"` // metres
	ElevMin  *float64 `json:"elev_min,omitempty" yaml:"elev_min,omitempty"`   // degrees
	ElevMax  *float64 `json:"elev_max,omitempty" yaml:"elev_max,omitempty"`   // degrees

	// Bird radar cross section in cm^2, used for reflectivity-to-density conversion.
	BirdRadarCrossSection *float64 `json:"bird_radar_cross_section,omitempty" yaml:"bird_radar_cross_section,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads an options file from the OS filesystem.
func Load(path string) (*Config, error) {
	return LoadFS(fsutil.OSFileSystem{}, path)
}

// LoadFS reads an options file from fsys. The extension selects the decoder
// (.json, .yaml or .yml); unknown keys are rejected.
func LoadFS(fsys fsutil.FileSystem, path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if ext == ".json" {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable by the engine.
func (c *Config) Validate() error {
	if c.NGatesCellMin != nil && *c.NGatesCellMin < 1 {
		return fmt.Errorf("n_gates_cell_min must be at least 1, got %d", *c.NGatesCellMin)
	}
	if c.CellDbzMin != nil && (math.IsNaN(*c.CellDbzMin) || math.IsInf(*c.CellDbzMin, 0)) {
		return fmt.Errorf("cell_dbz_min must be finite, got %f", *c.CellDbzMin)
	}
	if c.LayerThickness != nil && *c.LayerThickness <= 0 {
		return fmt.Errorf("layer_thickness must be positive, got %f", *c.LayerThickness)
	}
	if c.NLayers != nil && *c.NLayers < 1 {
		return fmt.Errorf("n_layers must be at least 1, got %d", *c.NLayers)
	}
	if c.GetRangeMin() < 0 || c.GetRangeMin() >= c.GetRangeMax() {
		return fmt.Errorf("range_min (%f) must be non-negative and below range_max (%f)", c.GetRangeMin(), c.GetRangeMax())
	}
	if c.GetElevMin() < 0 || c.GetElevMax() > 90 || c.GetElevMin() >= c.GetElevMax() {
		return fmt.Errorf("elevation window [%f, %f] must lie within [0, 90] and be non-empty", c.GetElevMin(), c.GetElevMax())
	}
	if c.BirdRadarCrossSection != nil && *c.BirdRadarCrossSection <= 0 {
		return fmt.Errorf("bird_radar_cross_section must be positive, got %f", *c.BirdRadarCrossSection)
	}
	return nil
}

// GetNGatesCellMin returns the minimum number of gates in a cell.
func (c *Config) GetNGatesCellMin() int {
	if c.NGatesCellMin == nil {
		return 10
	}
	return *c.NGatesCellMin
}

// GetCellDbzMin returns the minimum reflectivity (dBZ) of a cell.
func (c *Config) GetCellDbzMin() float64 {
	if c.CellDbzMin == nil {
		return 15.0
	}
	return *c.CellDbzMin
}

// GetLayerThickness returns the profile layer thickness in metres.
func (c *Config) GetLayerThickness() float64 {
	if c.LayerThickness == nil {
		return 200.0
	}
	return *c.LayerThickness
}

// GetNLayers returns the number of profile layers.
func (c *Config) GetNLayers() int {
	if c.NLayers == nil {
		return 30
	}
	return *c.NLayers
}

// GetRangeMin returns the minimum gate range in metres.
func (c *Config) GetRangeMin() float64 {
	if c.RangeMin == nil {
		return 5000.0
	}
	return *c.RangeMin
}

// GetRangeMax returns the maximum gate range in metres.
func (c *Config) GetRangeMax() float64 {
	if c.RangeMax == nil {
		return 25000.0
	}
	return *c.RangeMax
}

func (c *Config) GetElevMin() float64 {
	if c.ElevMin == nil {
		return 0.0
	}
	return *c.ElevMin
}

func (c *Config) GetElevMax() float64 {
	if c.ElevMax == nil {
		return 90.0
	}
	return *c.ElevMax
}

// GetBirdRadarCrossSection returns the assumed radar cross section of one bird in cm^2.
func (c *Config) GetBirdRadarCrossSection() float64 {
	if c.BirdRadarCrossSection == nil {
		return 11.0
	}
	return *c.BirdRadarCrossSection
}
