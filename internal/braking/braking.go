// Package braking computes achievable train deceleration and braking
// distances from brake-system characteristics (UIC 544-1 brake
// percentages, P/G response times) and rail adhesion conditions.
package braking

import (
	"fmt"
	"math"

	"github.com/dista-flow/railsim/internal/units"
)

// Gravity is the gravitational acceleration in m/s².
const Gravity = 9.81

// BrakeKind selects the brake response regime per UIC 544-1.
type BrakeKind string

const (
	// BrakeP is the fast-responding passenger brake position.
	BrakeP BrakeKind = "P"
	// BrakeG is the slow-responding goods brake position.
	BrakeG BrakeKind = "G"
)

// responseTime returns the brake build-up delay for the kind.
func (k BrakeKind) responseTime() float64 {
	switch k {
	case BrakeG:
		return 8.0
	default:
		return 3.5
	}
}

// RailCondition describes the adhesion state of the railhead.
type RailCondition string

const (
	RailDry      RailCondition = "dry"
	RailWet      RailCondition = "wet"
	RailSlippery RailCondition = "slippery"
	RailIcy      RailCondition = "icy"
)

// Adhesion returns the friction coefficient for the condition. Unknown
// conditions fall back to dry; use ParseRailCondition to validate input.
func (rc RailCondition) Adhesion() float64 {
	switch rc {
	case RailWet:
		return 0.25
	case RailSlippery:
		return 0.15
	case RailIcy:
		return 0.08
	default:
		return 0.33
	}
}

// ParseRailCondition validates a rail condition name.
func ParseRailCondition(s string) (RailCondition, error) {
	switch RailCondition(s) {
	case RailDry, RailWet, RailSlippery, RailIcy:
		return RailCondition(s), nil
	}
	return "", fmt.Errorf("unknown rail condition %q (valid: dry, wet, slippery, icy)", s)
}

const (
	// epBrakeTimeReduction is how much faster an electro-pneumatic brake
	// builds up compared to a plain pneumatic one.
	epBrakeTimeReduction = 1.5

	// minDeceleration floors every deceleration result; braking
	// capability is never exactly zero.
	minDeceleration = 0.1

	// serviceBrakeFactor scales emergency capability down to the
	// operational (comfort and wear) braking level.
	serviceBrakeFactor = 0.65

	// highSpeedServiceFactor further derates service braking above
	// highSpeedThresholdMps.
	highSpeedServiceFactor = 0.9
)

var highSpeedThresholdMps = units.KmhToMps(120)

// Profile holds the braking characteristics of one train class.
// Construct with NewProfile; a Profile is immutable once built.
type Profile struct {
	Class          string
	MassTons       float64
	LengthM        float64
	Kind           BrakeKind
	BrakePercent   float64
	EPBrake        bool
	MaxSpeedKmh    float64
	AdhesionFactor float64
}

// NewProfile validates and builds a braking profile. Mass must be
// positive and the brake percentage within [0, 200]. A zero adhesion
// factor defaults to 1.0.
func NewProfile(class string, massTons, lengthM float64, kind BrakeKind, brakePercent float64, epBrake bool, maxSpeedKmh, adhesionFactor float64) (Profile, error) {
	if massTons <= 0 {
		return Profile{}, fmt.Errorf("invalid train mass: %v tons", massTons)
	}
	if brakePercent < 0 || brakePercent > 200 {
		return Profile{}, fmt.Errorf("invalid brake percentage: %v (must be within [0, 200])", brakePercent)
	}
	if kind != BrakeP && kind != BrakeG {
		return Profile{}, fmt.Errorf("unknown brake kind %q (valid: P, G)", kind)
	}
	if adhesionFactor == 0 {
		adhesionFactor = 1.0
	}
	return Profile{
		Class:          class,
		MassTons:       massTons,
		LengthM:        lengthM,
		Kind:           kind,
		BrakePercent:   brakePercent,
		EPBrake:        epBrake,
		MaxSpeedKmh:    maxSpeedKmh,
		AdhesionFactor: adhesionFactor,
	}, nil
}

// ResponseTime returns the brake build-up delay in seconds, accounting
// for the electro-pneumatic brake where fitted.
func (p Profile) ResponseTime() float64 {
	t := p.Kind.responseTime()
	if p.EPBrake {
		t -= epBrakeTimeReduction
	}
	if t < 0 {
		t = 0
	}
	return t
}

// MaxDeceleration computes the maximum achievable deceleration (m/s²):
// brake-percentage braking capped by the adhesion limit, plus the
// gradient contribution. Positive permille adds to the braking effort,
// negative permille works against it. The result never drops below the
// minimum deceleration floor.
func MaxDeceleration(p Profile, rc RailCondition, gradientPermille float64) float64 {
	mu := rc.Adhesion()
	aBrake := math.Min(p.BrakePercent/100.0*mu*Gravity*p.AdhesionFactor, mu*Gravity)
	aTotal := aBrake + gradientPermille/1000.0*Gravity
	return math.Max(minDeceleration, aTotal)
}

// Distance computes the braking distance and time from vInitial to
// vFinal (both m/s). When includeReaction is set, the train covers
// vInitial × response-time unabated before the brake bites. If
// vInitial <= vFinal no braking is needed and (0, 0) is returned.
func Distance(vInitial, vFinal float64, p Profile, rc RailCondition, gradientPermille float64, includeReaction bool) (distM, timeS float64) {
	if vInitial <= vFinal {
		return 0, 0
	}

	aMax := MaxDeceleration(p, rc, gradientPermille)

	var tResponse, sReaction float64
	if includeReaction {
		tResponse = p.ResponseTime()
		sReaction = vInitial * tResponse
	}

	// v² = u² + 2as solved for s, then v = u + at for t.
	sBrake := (vFinal*vFinal - vInitial*vInitial) / (2.0 * -aMax)
	tBrake := (vFinal - vInitial) / -aMax

	return sReaction + sBrake, tResponse + tBrake
}

// ServiceDeceleration returns the operational braking deceleration for
// normal running at speed v (m/s): 65% of the maximum, derated a further
// 10% above 120 km/h for comfort and wear.
func ServiceDeceleration(v float64, p Profile, rc RailCondition) float64 {
	factor := serviceBrakeFactor
	if v > highSpeedThresholdMps {
		factor *= highSpeedServiceFactor
	}
	return math.Max(minDeceleration, MaxDeceleration(p, rc, 0)*factor)
}

// EmergencyDeceleration returns the full unscaled braking capability.
// It is a dedicated query; the integrator applies service braking.
func EmergencyDeceleration(p Profile, rc RailCondition) float64 {
	return MaxDeceleration(p, rc, 0)
}
