package config

import (
	"fmt"

	"github.com/dista-flow/railsim/internal/braking"
	"github.com/dista-flow/railsim/internal/rail"
	"github.com/dista-flow/railsim/internal/sim"
	"github.com/dista-flow/railsim/internal/units"
)

// Scenario is a fully resolved, run-ready assembly: a private track,
// private train states, and one controller instance per train. Nothing
// in a Scenario is shared with any other run.
type Scenario struct {
	Track         *rail.Track
	Trains        []*sim.Train
	Controllers   map[string]sim.Controller
	DT            float64
	HorizonS      float64
	RailCondition braking.RailCondition
}

// Lengths returns the train-length lookup used by headway metrics.
func (s *Scenario) Lengths() map[string]float64 {
	out := make(map[string]float64, len(s.Trains))
	for _, tr := range s.Trains {
		out[tr.ID] = tr.LengthM
	}
	return out
}

// Build resolves the configuration into a Scenario. Unknown controller
// kinds or braking profile names fail here with explicit errors.
func (c *RunConfig) Build() (*Scenario, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	segments := make([]rail.Segment, len(c.Segments))
	for i, s := range c.Segments {
		segments[i] = rail.Segment{
			From:       s.From,
			To:         s.To,
			LengthM:    s.LengthKm * 1000,
			SpeedMps:   units.KmhToMps(s.SpeedKmh),
			Tracks:     s.Tracks,
			Signalling: s.Signalling,
		}
	}
	track, err := rail.New(segments)
	if err != nil {
		return nil, err
	}

	rc, err := braking.ParseRailCondition(c.GetRailCondition())
	if err != nil {
		return nil, err
	}

	fleet := c.Fleet
	if len(fleet) == 0 {
		fleet = generateFleet(c)
	}

	scn := &Scenario{
		Track:         track,
		Controllers:   make(map[string]sim.Controller, len(fleet)),
		DT:            c.GetDT(),
		HorizonS:      c.GetHorizon(),
		RailCondition: rc,
	}

	for _, tc := range fleet {
		train, ctrl, err := c.buildTrain(tc, rc)
		if err != nil {
			return nil, fmt.Errorf("train %q: %w", tc.ID, err)
		}
		scn.Trains = append(scn.Trains, train)
		scn.Controllers[train.ID] = ctrl
	}

	return scn, nil
}

// generateFleet produces train_count entries spaced spacing_m apart,
// rear train first at position zero.
func generateFleet(c *RunConfig) []TrainConfig {
	count := c.GetTrainCount()
	fleet := make([]TrainConfig, count)
	for i := 0; i < count; i++ {
		pos := float64(i) * c.GetSpacing()
		fleet[i] = TrainConfig{
			ID:        fmt.Sprintf("T%02d", i+1),
			PositionM: &pos,
		}
	}
	return fleet
}

func (c *RunConfig) buildTrain(tc TrainConfig, rc braking.RailCondition) (*sim.Train, sim.Controller, error) {
	pos := 0.0
	if tc.PositionM != nil {
		pos = *tc.PositionM
	}
	vel := 0.0
	if tc.SpeedKmh != nil {
		vel = units.KmhToMps(*tc.SpeedKmh)
	}
	length := c.GetTrainLength()
	if tc.LengthM != nil {
		length = *tc.LengthM
	}
	accel := c.GetAccelMax()
	if tc.AccelMax != nil {
		accel = *tc.AccelMax
	}
	brake := c.GetBrakeDecel()
	if tc.BrakeDecel != nil {
		brake = *tc.BrakeDecel
	}

	train := sim.NewTrain(tc.ID, pos, vel, length, accel, brake)

	// Realistic braking: a per-train profile name wins, then the
	// run-level flag with the run-level profile.
	if tc.Profile != nil || c.GetRealisticBraking() {
		name := c.GetProfile()
		if tc.Profile != nil {
			name = *tc.Profile
		}
		profile, err := braking.ProfileByName(name)
		if err != nil {
			return nil, nil, err
		}
		if tc.LengthM == nil {
			// Without an explicit length the profile's physical length
			// applies.
			train.LengthM = profile.LengthM
		}
		train.EnableRealisticBraking(profile, rc)
	}

	kind := c.GetController()
	if tc.Controller != nil {
		kind = *tc.Controller
	}
	params := sim.DefaultParams(kind)
	if c.ReactionS != nil {
		params.ReactionS = *c.ReactionS
	}
	if c.MarginM != nil {
		params.MarginM = *c.MarginM
	}
	if tc.ReactionS != nil {
		params.ReactionS = *tc.ReactionS
	}
	if tc.MarginM != nil {
		params.MarginM = *tc.MarginM
	}

	// Controllers are instantiated per train, which also keeps stateful
	// kinds from sharing history between trains.
	ctrl, err := sim.New(kind, params)
	if err != nil {
		return nil, nil, err
	}

	return train, ctrl, nil
}
