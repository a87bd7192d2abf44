// Package config defines the JSON run configuration for the simulator.
// Fields are pointers so keys omitted from a config file keep their
// defaults; the Get* accessors supply those defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dista-flow/railsim/internal/braking"
	"github.com/dista-flow/railsim/internal/sim"
)

// SegmentConfig is one row of the ordered segment list. Lengths come in
// kilometres and speeds in km/h, matching how line data is published.
type SegmentConfig struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	LengthKm   float64 `json:"length_km"`
	SpeedKmh   float64 `json:"speed_kmh"`
	Tracks     int     `json:"tracks,omitempty"`
	Signalling string  `json:"signalling,omitempty"`
}

// TrainConfig describes one fleet entry. Every field other than the id
// is optional and falls back to the run-level defaults.
type TrainConfig struct {
	ID         string   `json:"id"`
	PositionM  *float64 `json:"position_m,omitempty"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`
	LengthM    *float64 `json:"length_m,omitempty"`
	AccelMax   *float64 `json:"accel_max,omitempty"`   // m/s²
	BrakeDecel *float64 `json:"brake_decel,omitempty"` // m/s²
	Controller *string  `json:"controller,omitempty"`
	ReactionS  *float64 `json:"reaction_s,omitempty"`
	MarginM    *float64 `json:"margin_m,omitempty"`
	Profile    *string  `json:"profile,omitempty"` // braking profile name; enables realistic braking
}

// RunConfig is the root configuration for one simulation run.
type RunConfig struct {
	DTSeconds        *float64 `json:"dt_seconds,omitempty"`
	HorizonSeconds   *float64 `json:"horizon_seconds,omitempty"`
	RailCondition    *string  `json:"rail_condition,omitempty"`
	Controller       *string  `json:"controller,omitempty"`
	ReactionS        *float64 `json:"reaction_s,omitempty"`
	MarginM          *float64 `json:"margin_m,omitempty"`
	RealisticBraking *bool    `json:"realistic_braking,omitempty"`
	Profile          *string  `json:"profile,omitempty"`

	// Fleet generation knobs, used when no explicit fleet is given.
	TrainCount   *int     `json:"train_count,omitempty"`
	SpacingM     *float64 `json:"spacing_m,omitempty"`
	TrainLengthM *float64 `json:"train_length_m,omitempty"`
	AccelMax     *float64 `json:"accel_max,omitempty"`
	BrakeDecel   *float64 `json:"brake_decel,omitempty"`

	Segments []SegmentConfig `json:"segments"`
	Fleet    []TrainConfig   `json:"fleet,omitempty"`
}

// Defaults for omitted fields.
const (
	DefaultDTSeconds      = 0.5
	DefaultHorizonSeconds = 3600.0
	DefaultTrainCount     = 3
	DefaultSpacingM       = 800.0
	DefaultTrainLengthM   = 120.0
	DefaultAccelMax       = 0.7
	DefaultBrakeDecel     = 0.7
	DefaultProfileName    = "emu"
)

func (c *RunConfig) GetDT() float64 {
	if c.DTSeconds != nil {
		return *c.DTSeconds
	}
	return DefaultDTSeconds
}

func (c *RunConfig) GetHorizon() float64 {
	if c.HorizonSeconds != nil {
		return *c.HorizonSeconds
	}
	return DefaultHorizonSeconds
}

func (c *RunConfig) GetRailCondition() string {
	if c.RailCondition != nil {
		return *c.RailCondition
	}
	return string(braking.RailDry)
}

func (c *RunConfig) GetController() string {
	if c.Controller != nil {
		return *c.Controller
	}
	return sim.KindBaseline
}

func (c *RunConfig) GetTrainCount() int {
	if c.TrainCount != nil {
		return *c.TrainCount
	}
	return DefaultTrainCount
}

func (c *RunConfig) GetSpacing() float64 {
	if c.SpacingM != nil {
		return *c.SpacingM
	}
	return DefaultSpacingM
}

func (c *RunConfig) GetTrainLength() float64 {
	if c.TrainLengthM != nil {
		return *c.TrainLengthM
	}
	return DefaultTrainLengthM
}

func (c *RunConfig) GetAccelMax() float64 {
	if c.AccelMax != nil {
		return *c.AccelMax
	}
	return DefaultAccelMax
}

func (c *RunConfig) GetBrakeDecel() float64 {
	if c.BrakeDecel != nil {
		return *c.BrakeDecel
	}
	return DefaultBrakeDecel
}

func (c *RunConfig) GetRealisticBraking() bool {
	return c.RealisticBraking != nil && *c.RealisticBraking
}

func (c *RunConfig) GetProfile() string {
	if c.Profile != nil {
		return *c.Profile
	}
	return DefaultProfileName
}

// Validate checks the structural and numeric constraints. Controller
// kinds and profile names are resolved (and rejected) when the scenario
// is built.
func (c *RunConfig) Validate() error {
	if c.GetDT() <= 0 {
		return fmt.Errorf("dt_seconds must be positive, got %v", c.GetDT())
	}
	if c.GetHorizon() <= 0 {
		return fmt.Errorf("horizon_seconds must be positive, got %v", c.GetHorizon())
	}
	if _, err := braking.ParseRailCondition(c.GetRailCondition()); err != nil {
		return err
	}
	if len(c.Segments) == 0 {
		return fmt.Errorf("config requires at least one segment")
	}
	for i, s := range c.Segments {
		if s.LengthKm <= 0 {
			return fmt.Errorf("segment %d: length_km must be positive, got %v", i, s.LengthKm)
		}
		if s.SpeedKmh <= 0 {
			return fmt.Errorf("segment %d: speed_kmh must be positive, got %v", i, s.SpeedKmh)
		}
	}
	if len(c.Fleet) == 0 && c.GetTrainCount() <= 0 {
		return fmt.Errorf("train_count must be positive, got %d", c.GetTrainCount())
	}
	seen := make(map[string]bool, len(c.Fleet))
	for i, tc := range c.Fleet {
		if tc.ID == "" {
			return fmt.Errorf("fleet entry %d: id must not be empty", i)
		}
		if seen[tc.ID] {
			return fmt.Errorf("fleet entry %d: duplicate id %q", i, tc.ID)
		}
		seen[tc.ID] = true
	}
	return nil
}

// Load reads and validates a run configuration from a JSON file. The
// path must carry a .json extension and stay under the size cap.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DemoSegments is the built-in demonstration line: 18.3 km with speed
// drops at 6.9 km (80 to 40 km/h) and a rise at 12.6 km (40 to 60).
func DemoSegments() []SegmentConfig {
	return []SegmentConfig{
		{From: "Alpha", To: "Bravo", LengthKm: 6.9, SpeedKmh: 80, Tracks: 2, Signalling: "ETCS L1"},
		{From: "Bravo", To: "Charlie", LengthKm: 5.7, SpeedKmh: 40, Tracks: 2, Signalling: "ETCS L1"},
		{From: "Charlie", To: "Delta", LengthKm: 5.7, SpeedKmh: 60, Tracks: 1, Signalling: "legacy"},
	}
}

// Default returns the configuration used when no file is supplied: the
// demo line with the default fleet knobs.
func Default() *RunConfig {
	return &RunConfig{Segments: DemoSegments()}
}
