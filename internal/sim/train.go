// Package sim contains the per-train kinematic integrator, the speed
// advisory controllers, and the fixed-step multi-train engine.
package sim

import (
	"math"

	"github.com/dista-flow/railsim/internal/braking"
	"github.com/dista-flow/railsim/internal/rail"
)

// Physical floor values applied by NewTrain. Unlike braking profiles,
// train state construction is deliberately lenient: out-of-range inputs
// are clamped to safe minimums rather than rejected.
const (
	minTrainLengthM = 1.0
	minAccel        = 0.01
)

// Train is the mutable per-train physical state. It is owned by a
// single simulation run and mutated only by Step during a tick.
type Train struct {
	ID      string
	PosM    float64
	VelMps  float64
	LengthM float64

	// AccelMax bounds acceleration; BrakeDecel is the current effective
	// braking deceleration limit. With realistic braking enabled,
	// BrakeDecel is recomputed from the profile every tick because
	// service braking capacity is speed dependent.
	AccelMax   float64
	BrakeDecel float64

	Profile          *braking.Profile
	RailCondition    braking.RailCondition
	RealisticBraking bool

	Finished bool
}

// NewTrain builds a train state, clamping negative or degenerate inputs
// to safe minimums.
func NewTrain(id string, posM, velMps, lengthM, accelMax, brakeDecel float64) *Train {
	return &Train{
		ID:         id,
		PosM:       math.Max(0, posM),
		VelMps:     math.Max(0, velMps),
		LengthM:    math.Max(minTrainLengthM, lengthM),
		AccelMax:   math.Max(minAccel, accelMax),
		BrakeDecel: math.Max(minAccel, brakeDecel),
	}
}

// EnableRealisticBraking attaches a braking profile and rail condition;
// from then on the effective brake limit tracks the service braking
// curve instead of the fixed constant.
func (tr *Train) EnableRealisticBraking(p braking.Profile, rc braking.RailCondition) {
	profile := p
	tr.Profile = &profile
	tr.RailCondition = rc
	tr.RealisticBraking = true
	tr.BrakeDecel = math.Max(minAccel, braking.ServiceDeceleration(tr.VelMps, profile, rc))
}

// Step integrates one tick of length dt towards vTarget. The target is
// clamped to the speed limit at the pre-step position; a single Euler
// step follows, with the position clamped to the track bounds.
func (tr *Train) Step(dt, vTarget float64, track *rail.Track) {
	if vTarget < 0 {
		vTarget = 0
	}
	if limit := track.SpeedLimit(tr.PosM); vTarget > limit {
		vTarget = limit
	}

	if tr.RealisticBraking && tr.Profile != nil {
		tr.BrakeDecel = math.Max(minAccel, braking.ServiceDeceleration(tr.VelMps, *tr.Profile, tr.RailCondition))
	}

	if vTarget > tr.VelMps {
		tr.VelMps = math.Min(vTarget, tr.VelMps+tr.AccelMax*dt)
	} else {
		tr.VelMps = math.Max(vTarget, tr.VelMps-tr.BrakeDecel*dt)
	}
	if tr.VelMps < 0 {
		tr.VelMps = 0
	}

	tr.PosM += tr.VelMps * dt
	if tr.PosM > track.TotalLength() {
		tr.PosM = track.TotalLength()
	}
	if tr.PosM < 0 {
		tr.PosM = 0
	}
}
