package sim

import (
	"math"

	"github.com/dista-flow/railsim/internal/rail"
)

// Controller maps (own state, leader or nil, track) to a desired speed
// in m/s. The engine clamps and integrates the result; a controller
// never mutates train state.
type Controller interface {
	DesiredSpeed(me, leader *Train, track *rail.Track) float64
}

// Params holds the tunables shared by every strategy. Negative values
// are clamped to zero.
type Params struct {
	ReactionS float64
	MarginM   float64
}

func (p Params) clamped() Params {
	return Params{
		ReactionS: math.Max(0, p.ReactionS),
		MarginM:   math.Max(0, p.MarginM),
	}
}

// BrakingDistance is the simple kinematic braking distance v²/2a used by
// the advisory heuristics. The denominator is floored at a small epsilon
// so a degenerate deceleration never produces Inf or NaN downstream; a
// non-positive deceleration reports an infinite stopping distance.
func BrakingDistance(v, aEff float64) float64 {
	if aEff <= 0 {
		return math.Inf(1)
	}
	return v * v / (2.0 * math.Max(aEff, 1e-6))
}

// limitWithLookahead starts from the limit at the current position and
// lowers it when a slower segment ahead requires braking to begin. The
// reduced limit is the speed from which braking over the remaining slack
// reaches exactly the next limit at its boundary.
func limitWithLookahead(me *Train, track *rail.Track, marginM float64) float64 {
	vlim := track.SpeedLimit(me.PosM)

	dist, next := track.NextSpeedChange(me.PosM)
	if next >= vlim {
		return vlim
	}

	needed := BrakingDistance(me.VelMps, me.BrakeDecel) - BrakingDistance(next, me.BrakeDecel)
	if dist > needed+marginM {
		return vlim
	}

	slack := math.Max(0, dist-marginM)
	v2 := next*next + 2.0*me.BrakeDecel*slack
	if v2 <= 0 {
		return 0
	}
	return math.Min(vlim, math.Sqrt(v2))
}

// followerCap returns the maximum safe speed imposed by the leader and
// whether the gap binds at all. The cap is the speed from which the
// follower can still stop within the slack left after margin and
// reaction distance are spent.
func followerCap(me, leader *Train, reactionS, marginM float64) (float64, bool) {
	gap := (leader.PosM - leader.LengthM) - me.PosM
	dSafe := BrakingDistance(me.VelMps, me.BrakeDecel) + me.VelMps*reactionS + marginM
	if gap >= dSafe {
		return 0, false
	}
	slack := math.Max(0, gap-marginM-me.VelMps*reactionS)
	v2 := 2.0 * me.BrakeDecel * slack
	if v2 <= 0 {
		return 0, true
	}
	return math.Sqrt(v2), true
}

// Baseline is the conservative ETCS-style strategy: it runs at the
// (lookahead-reduced) line speed and only slows for a binding leader
// gap.
type Baseline struct {
	p Params
}

// NewBaseline builds the baseline strategy. The instance is stateless
// and may be shared across trains.
func NewBaseline(p Params) *Baseline {
	return &Baseline{p: p.clamped()}
}

func (c *Baseline) DesiredSpeed(me, leader *Train, track *rail.Track) float64 {
	vlim := limitWithLookahead(me, track, c.p.MarginM)
	if leader != nil {
		if vCap, binding := followerCap(me, leader, c.p.ReactionS, c.p.MarginM); binding {
			return math.Min(vlim, vCap)
		}
	}
	return vlim
}

// Flow is the proactive DISTA-style strategy: identical safety skeleton
// with tighter defaults, but when no constraint binds it ramps smoothly
// towards the line speed instead of jumping to it.
type Flow struct {
	p Params
}

// NewFlow builds the proactive strategy. Stateless; safe to share.
func NewFlow(p Params) *Flow {
	return &Flow{p: p.clamped()}
}

func (c *Flow) DesiredSpeed(me, leader *Train, track *rail.Track) float64 {
	vlim := limitWithLookahead(me, track, c.p.MarginM)
	if leader != nil {
		if vCap, binding := followerCap(me, leader, c.p.ReactionS, c.p.MarginM); binding {
			return math.Min(vlim, vCap)
		}
	}
	// Approach the limit gradually for a smoother speed profile.
	return math.Min(vlim, me.VelMps+0.5*me.AccelMax)
}
