package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dista-flow/railsim/internal/units"
)

func TestBrakingDistance(t *testing.T) {
	// v²/2a: 30 m/s at 1 m/s² stops in 450 m.
	assert.InDelta(t, 450.0, BrakingDistance(30, 1.0), 1e-9)

	// A standing train needs no distance regardless of capability.
	assert.Zero(t, BrakingDistance(0, 1.0))
	assert.Zero(t, BrakingDistance(0, 0.01))

	// Degenerate deceleration reports an infinite stop, never NaN.
	assert.True(t, math.IsInf(BrakingDistance(10, 0), 1))
	assert.True(t, math.IsInf(BrakingDistance(10, -1), 1))
}

func TestParamsClamped(t *testing.T) {
	c := NewBaseline(Params{ReactionS: -2, MarginM: -100})
	assert.Equal(t, Params{}, c.p)
}

func TestBaselineClearTrack(t *testing.T) {
	track := flatTrack(t, 10000, 100)
	me := NewTrain("T01", 0, 10, 120, 0.7, 0.7)

	ctrl := NewBaseline(Params{ReactionS: 2, MarginM: 150})
	got := ctrl.DesiredSpeed(me, nil, track)
	assert.InDelta(t, units.KmhToMps(100), got, 1e-9)
}

func TestBaselineFollowerCap(t *testing.T) {
	// Two trains 500 m apart, 120 m long, both at 72 km/h. With margin
	// 100 m and reaction 2 s the gap (380 m) is inside the safe
	// distance (~425.7 m), so the follower must slow below the leader.
	track := flatTrack(t, 10000, 100)
	me := NewTrain("F", 0, 20, 120, 0.7, 0.7)
	leader := NewTrain("L", 500, 20, 120, 0.7, 0.7)

	ctrl := NewBaseline(Params{ReactionS: 2, MarginM: 100})
	got := ctrl.DesiredSpeed(me, leader, track)

	slack := 380.0 - 100 - 20*2
	want := math.Sqrt(2 * 0.7 * slack)
	assert.InDelta(t, want, got, 1e-9)
	assert.Less(t, got, leader.VelMps)
}

func TestBaselineGapNotBinding(t *testing.T) {
	track := flatTrack(t, 20000, 100)
	me := NewTrain("F", 0, 20, 120, 0.7, 0.7)
	leader := NewTrain("L", 5000, 20, 120, 0.7, 0.7)

	ctrl := NewBaseline(Params{ReactionS: 2, MarginM: 100})
	got := ctrl.DesiredSpeed(me, leader, track)
	assert.InDelta(t, units.KmhToMps(100), got, 1e-9)
}

func TestBaselineAnticipatoryBraking(t *testing.T) {
	track := demoTrack(t)
	v80 := units.KmhToMps(80)
	v40 := units.KmhToMps(40)

	ctrl := NewBaseline(Params{ReactionS: 2, MarginM: 150})

	// Far from the boundary the full limit applies.
	far := NewTrain("T01", 3000, v80, 120, 0.7, 0.7)
	assert.InDelta(t, v80, ctrl.DesiredSpeed(far, nil, track), 1e-9)

	// 300 m before the boundary the reduced limit binds: braking over
	// the slack (300-150 m) must land exactly on the 40 km/h limit.
	near := NewTrain("T02", 6600, v80, 120, 0.7, 0.7)
	got := ctrl.DesiredSpeed(near, nil, track)
	want := math.Sqrt(v40*v40 + 2*0.7*150)
	assert.InDelta(t, want, got, 1e-9)
	assert.Less(t, got, v80)
	assert.GreaterOrEqual(t, got, v40)

	// Inside the margin the target collapses to the next limit.
	inside := NewTrain("T03", 6800, v80, 120, 0.7, 0.7)
	assert.InDelta(t, v40, ctrl.DesiredSpeed(inside, nil, track), 1e-9)
}

func TestFlowRampsSmoothly(t *testing.T) {
	track := flatTrack(t, 10000, 100)
	me := NewTrain("T01", 0, 10, 120, 0.7, 0.7)

	ctrl := NewFlow(Params{ReactionS: 0.8, MarginM: 100})
	got := ctrl.DesiredSpeed(me, nil, track)
	// Proactive ramp: one half acceleration step above current speed,
	// not the full line speed.
	assert.InDelta(t, 10+0.5*0.7, got, 1e-9)

	// Near the limit the ramp is capped by the limit itself.
	me.VelMps = units.KmhToMps(100) - 0.1
	got = ctrl.DesiredSpeed(me, nil, track)
	assert.InDelta(t, units.KmhToMps(100), got, 1e-9)
}

func TestPredictiveGraduatedResponse(t *testing.T) {
	track := flatTrack(t, 20000, 100)

	t.Run("clear track returns lookahead limit", func(t *testing.T) {
		ctrl := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})
		me := NewTrain("F", 0, 15, 120, 0.7, 0.7)
		assert.InDelta(t, units.KmhToMps(100), ctrl.DesiredSpeed(me, nil, track), 1e-9)
	})

	t.Run("brakes harder as the gap shrinks", func(t *testing.T) {
		me := NewTrain("F", 0, 20, 120, 0.7, 0.7)

		mild := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})
		leaderFar := NewTrain("L", 420, 20, 120, 0.7, 0.7)
		vMild := mild.DesiredSpeed(me, leaderFar, track)

		urgent := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})
		leaderNear := NewTrain("L", 250, 20, 120, 0.7, 0.7)
		vUrgent := urgent.DesiredSpeed(me, leaderNear, track)

		assert.Less(t, vMild, me.VelMps)
		assert.Less(t, vUrgent, vMild)
		assert.GreaterOrEqual(t, vUrgent, 0.0)
	})

	t.Run("accelerates proportionally to available gap", func(t *testing.T) {
		ctrl := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})
		me := NewTrain("F", 0, 10, 120, 0.7, 0.7)
		leader := NewTrain("L", 5000, 25, 120, 0.7, 0.7)
		got := ctrl.DesiredSpeed(me, leader, track)
		assert.Greater(t, got, me.VelMps)
		assert.LessOrEqual(t, got, me.VelMps+me.AccelMax)
	})

	t.Run("widens margin when closing fast", func(t *testing.T) {
		// Same geometry, but the closing case approaches at +3 m/s and
		// must come out more cautious than the matched-speed case.
		matched := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})
		closing := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})

		meMatched := NewTrain("F", 0, 20, 120, 0.7, 0.7)
		meClosing := NewTrain("F", 0, 20, 120, 0.7, 0.7)
		leaderMatched := NewTrain("L", 460, 20, 120, 0.7, 0.7)
		leaderClosing := NewTrain("L", 460, 17, 120, 0.7, 0.7)

		vMatched := matched.DesiredSpeed(meMatched, leaderMatched, track)
		vClosing := closing.DesiredSpeed(meClosing, leaderClosing, track)
		assert.Less(t, vClosing, vMatched)
	})
}

func TestPredictiveKeepsBoundedHistory(t *testing.T) {
	track := flatTrack(t, 20000, 100)
	ctrl := NewPredictive(Params{ReactionS: 0.8, MarginM: 80})
	me := NewTrain("F", 0, 10, 120, 0.7, 0.7)
	leader := NewTrain("L", 3000, 12, 120, 0.7, 0.7)

	for i := 0; i < 50; i++ {
		ctrl.DesiredSpeed(me, leader, track)
	}
	assert.LessOrEqual(t, len(ctrl.buf), featureWindow)
}

func TestAssertiveThresholds(t *testing.T) {
	track := flatTrack(t, 50000, 100)
	ctrl := NewAssertive(Params{ReactionS: 0.5, MarginM: 60})

	me := NewTrain("F", 0, 20, 120, 0.7, 0.7)
	// dSafe = 20²/1.4 + 20*0.5 + 60 = 355.7 m.
	dSafe := BrakingDistance(20, 0.7) + 20*0.5 + 60

	// Well clear: accelerate hard.
	leader := NewTrain("L", 120+dSafe*2+100, 20, 120, 0.7, 0.7)
	got := ctrl.DesiredSpeed(me, leader, track)
	assert.InDelta(t, 20+0.8*0.7, got, 1e-9)

	// Mid zone: gentle approach.
	leader = NewTrain("L", 120+dSafe*1.5, 20, 120, 0.7, 0.7)
	got = ctrl.DesiredSpeed(me, leader, track)
	assert.InDelta(t, 20+0.3*0.7, got, 1e-9)

	// Too close: brake hard.
	leader = NewTrain("L", 120+dSafe*0.5, 20, 120, 0.7, 0.7)
	got = ctrl.DesiredSpeed(me, leader, track)
	assert.InDelta(t, 20-0.8*0.7, got, 1e-9)
}

func TestFactory(t *testing.T) {
	for _, kind := range Kinds() {
		ctrl, err := New(kind, DefaultParams(kind))
		require.NoError(t, err, "kind %q", kind)
		require.NotNil(t, ctrl)
	}

	// Case-insensitive kinds.
	ctrl, err := New("ETCS", Params{})
	require.NoError(t, err)
	assert.IsType(t, &Baseline{}, ctrl)

	// Unknown kinds are an unsupported configuration, not a silent
	// fallback.
	_, err = New("autopilot", Params{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported controller type")
}

func TestStateful(t *testing.T) {
	assert.True(t, Stateful(KindPredictive))
	assert.False(t, Stateful(KindBaseline))
	assert.False(t, Stateful(KindFlow))
	assert.False(t, Stateful(KindAssertive))
}
