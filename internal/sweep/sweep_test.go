package sweep

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dista-flow/railsim/internal/config"
	"github.com/dista-flow/railsim/internal/monitoring"
	"github.com/dista-flow/railsim/internal/timeutil"
)

func TestMain(m *testing.M) {
	// Sweep progress logging is noise under test.
	monitoring.SetLogger(nil)
	m.Run()
}

func TestGridExpand(t *testing.T) {
	grid := Grid{
		Controllers: []string{"etcs", "dista"},
		TrainCounts: []int{2, 3},
		ReactionsS:  []float64{0.8, 2.0},
		MarginsM:    []float64{100},
	}
	combos, err := grid.Expand()
	require.NoError(t, err)
	require.Len(t, combos, 8)

	// Deterministic nesting: controllers outermost, margins innermost.
	assert.Equal(t, Combo{Controller: "etcs", Trains: 2, ReactionS: 0.8, MarginM: 100}, combos[0])
	assert.Equal(t, Combo{Controller: "etcs", Trains: 2, ReactionS: 2.0, MarginM: 100}, combos[1])
	assert.Equal(t, Combo{Controller: "etcs", Trains: 3, ReactionS: 0.8, MarginM: 100}, combos[2])
	assert.Equal(t, Combo{Controller: "dista", Trains: 2, ReactionS: 0.8, MarginM: 100}, combos[4])
}

func TestGridExpandEmptyDimension(t *testing.T) {
	base := Grid{
		Controllers: []string{"etcs"},
		TrainCounts: []int{2},
		ReactionsS:  []float64{0.8},
		MarginsM:    []float64{100},
	}

	for name, mutate := range map[string]func(*Grid){
		"controllers":  func(g *Grid) { g.Controllers = nil },
		"train counts": func(g *Grid) { g.TrainCounts = nil },
		"reactions":    func(g *Grid) { g.ReactionsS = nil },
		"margins":      func(g *Grid) { g.MarginsM = nil },
	} {
		t.Run(name, func(t *testing.T) {
			grid := base
			mutate(&grid)
			_, err := grid.Expand()
			assert.Error(t, err)
		})
	}
}

// shortBase returns a base configuration small enough to sweep in
// milliseconds: a short flat line and a tight horizon.
func shortBase() *config.RunConfig {
	horizon := 120.0
	return &config.RunConfig{
		HorizonSeconds: &horizon,
		Segments: []config.SegmentConfig{
			{From: "A", To: "B", LengthKm: 0.5, SpeedKmh: 80},
		},
	}
}

func TestRunnerCompletesGrid(t *testing.T) {
	grid := Grid{
		Controllers: []string{"etcs", "dista"},
		TrainCounts: []int{1, 2},
		ReactionsS:  []float64{0.8},
		MarginsM:    []float64{100},
	}

	clock := timeutil.NewMockClock(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	r := NewRunner(shortBase(), 2).WithClock(clock)
	assert.Equal(t, StatusIdle, r.State().Status)

	state, err := r.Run(context.Background(), grid)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, state.Status)
	assert.Equal(t, 4, state.TotalCombos)
	assert.Equal(t, 4, state.CompletedCombos)
	require.Len(t, state.Results, 4)
	require.NotNil(t, state.StartedAt)
	require.NotNil(t, state.CompletedAt)
	assert.True(t, state.StartedAt.Equal(clock.Now()))

	for _, res := range state.Results {
		assert.Empty(t, res.Error)
		// 500 m at up to 80 km/h within 120 s: everyone arrives.
		assert.Equal(t, res.Trains, res.Throughput, "combo %+v", res.Combo)
	}
}

func TestRunnerRecordsComboErrors(t *testing.T) {
	grid := Grid{
		Controllers: []string{"warpdrive"},
		TrainCounts: []int{1},
		ReactionsS:  []float64{0.8},
		MarginsM:    []float64{100},
	}

	r := NewRunner(shortBase(), 1)
	state, err := r.Run(context.Background(), grid)
	require.NoError(t, err)

	// Bad combinations fail individually; the sweep itself completes.
	assert.Equal(t, StatusComplete, state.Status)
	require.Len(t, state.Results, 1)
	assert.Contains(t, state.Results[0].Error, "unsupported controller type")
}

func TestRunnerHonoursCancellation(t *testing.T) {
	grid := Grid{
		Controllers: []string{"etcs"},
		TrainCounts: []int{1},
		ReactionsS:  []float64{0.8},
		MarginsM:    []float64{100, 150},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(shortBase(), 1)
	state, err := r.Run(ctx, grid)
	require.Error(t, err)
	assert.Equal(t, StatusError, state.Status)
	assert.Contains(t, state.Error, "cancelled")
	assert.Zero(t, state.CompletedCombos)
}

func TestRunnerExpandFailureSetsError(t *testing.T) {
	r := NewRunner(shortBase(), 1)
	state, err := r.Run(context.Background(), Grid{})
	require.Error(t, err)
	assert.Equal(t, StatusError, state.Status)
	assert.NotEmpty(t, state.Error)
}

func TestStateIsACopy(t *testing.T) {
	r := NewRunner(shortBase(), 1)
	grid := Grid{
		Controllers: []string{"etcs"},
		TrainCounts: []int{1},
		ReactionsS:  []float64{0.8},
		MarginsM:    []float64{100},
	}
	_, err := r.Run(context.Background(), grid)
	require.NoError(t, err)

	snap := r.State()
	require.Len(t, snap.Results, 1)
	snap.Results[0].Throughput = -1
	assert.NotEqual(t, -1, r.State().Results[0].Throughput)
}
