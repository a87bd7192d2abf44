package sim

import (
	"math"

	"github.com/dista-flow/railsim/internal/rail"
)

// featureWindow bounds the per-train history buffer of the predictive
// strategy.
const featureWindow = 10

type featureSample struct {
	vel float64
	gap float64
}

// Predictive layers trend extraction over the shared safety skeleton:
// it buffers recent own-speed/gap samples, widens its margin when the
// gap is closing, and grades its brake and acceleration response by
// urgency instead of switching hard. It accumulates history, so one
// instance must serve exactly one train.
type Predictive struct {
	p   Params
	buf []featureSample
}

// NewPredictive builds the predictive strategy. Stateful: do not share
// an instance between trains.
func NewPredictive(p Params) *Predictive {
	return &Predictive{p: p.clamped()}
}

func (c *Predictive) DesiredSpeed(me, leader *Train, track *rail.Track) float64 {
	vlim := limitWithLookahead(me, track, c.p.MarginM)
	if leader == nil {
		c.record(me.VelMps, math.Inf(1))
		return vlim
	}

	gap := (leader.PosM - leader.LengthM) - me.PosM
	relSpeed := me.VelMps - leader.VelMps
	c.record(me.VelMps, gap)

	// Adaptive margin: widen when closing fast, relax when the leader is
	// pulling away. The buffered gap trend catches sustained closing
	// that the instantaneous relative speed understates.
	margin := c.p.MarginM
	switch {
	case relSpeed > 2.0:
		margin *= 1.5
	case relSpeed < -1.0:
		margin *= 0.8
	}
	if trend := c.gapTrend(); trend < -1.0 && relSpeed <= 2.0 {
		margin *= 1.25
	}

	dSafe := BrakingDistance(me.VelMps, me.BrakeDecel) + me.VelMps*c.p.ReactionS + margin
	if gap < dSafe {
		// Graduated braking: scale from gentle to full with urgency.
		urgency := math.Max(0, (dSafe-gap)/dSafe)
		brakeFactor := 0.3 + 0.7*urgency
		return math.Max(0, me.VelMps-me.BrakeDecel*brakeFactor)
	}

	if vlim > me.VelMps {
		// Proportional acceleration based on the available gap.
		gapFactor := math.Min(1.0, gap/(dSafe*1.5))
		accelFactor := 0.3 + 0.7*gapFactor
		return math.Min(vlim, me.VelMps+me.AccelMax*accelFactor)
	}
	return vlim
}

func (c *Predictive) record(vel, gap float64) {
	c.buf = append(c.buf, featureSample{vel: vel, gap: gap})
	if len(c.buf) > featureWindow {
		c.buf = c.buf[1:]
	}
}

// gapTrend returns the mean per-sample change of the buffered gaps.
// Infinite gaps (no leader) are skipped.
func (c *Predictive) gapTrend() float64 {
	var sum float64
	var n int
	for i := 1; i < len(c.buf); i++ {
		if math.IsInf(c.buf[i].gap, 1) || math.IsInf(c.buf[i-1].gap, 1) {
			continue
		}
		sum += c.buf[i].gap - c.buf[i-1].gap
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Assertive is the aggressive advisory strategy: it tolerates gaps down
// to 80% of the safe distance before braking and accelerates hard when
// the road is clear. Stateless; safe to share.
type Assertive struct {
	p Params
}

// NewAssertive builds the aggressive strategy.
func NewAssertive(p Params) *Assertive {
	return &Assertive{p: p.clamped()}
}

func (c *Assertive) DesiredSpeed(me, leader *Train, track *rail.Track) float64 {
	vlim := limitWithLookahead(me, track, c.p.MarginM)
	if leader == nil {
		return vlim
	}

	gap := (leader.PosM - leader.LengthM) - me.PosM
	dSafe := BrakingDistance(me.VelMps, me.BrakeDecel) + me.VelMps*c.p.ReactionS + c.p.MarginM

	switch {
	case gap < dSafe*0.8:
		return math.Max(0, me.VelMps-me.BrakeDecel*0.8)
	case gap > dSafe*2.0:
		return math.Min(vlim, me.VelMps+me.AccelMax*0.8)
	default:
		return math.Min(vlim, me.VelMps+me.AccelMax*0.3)
	}
}
