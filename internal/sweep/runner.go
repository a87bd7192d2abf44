package sweep

import (
	"context"
	"fmt"
	"sync"

	"github.com/dista-flow/railsim/internal/config"
	"github.com/dista-flow/railsim/internal/metrics"
	"github.com/dista-flow/railsim/internal/monitoring"
	"github.com/dista-flow/railsim/internal/sim"
	"github.com/dista-flow/railsim/internal/timeutil"
)

// Runner executes sweep grids against a base run configuration. Each
// combination gets a private scenario (track, fleet, controllers) built
// from scratch, so combinations are safe to run concurrently.
type Runner struct {
	base    *config.RunConfig
	workers int
	clock   timeutil.Clock

	mu    sync.RWMutex
	state State
}

// NewRunner creates a runner over the given base configuration. workers
// bounds the number of concurrent simulations; values below 1 mean
// sequential execution.
func NewRunner(base *config.RunConfig, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		base:    base,
		workers: workers,
		clock:   timeutil.RealClock{},
		state:   State{Status: StatusIdle},
	}
}

// WithClock replaces the wall clock, for tests that pin timestamps.
func (r *Runner) WithClock(clock timeutil.Clock) *Runner {
	r.clock = clock
	return r
}

// State returns a copy of the current sweep state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	results := make([]ComboResult, len(r.state.Results))
	copy(results, r.state.Results)
	state.Results = results
	return state
}

// Run expands the grid and executes every combination, honouring
// context cancellation between combinations. The returned state is the
// final snapshot; partial results survive an early cancel.
func (r *Runner) Run(ctx context.Context, grid Grid) (State, error) {
	combos, err := grid.Expand()
	if err != nil {
		r.setError(err)
		return r.State(), err
	}

	started := r.clock.Now()
	r.mu.Lock()
	r.state = State{
		Status:      StatusRunning,
		StartedAt:   &started,
		TotalCombos: len(combos),
		Results:     make([]ComboResult, len(combos)),
	}
	r.mu.Unlock()

	monitoring.Logf("sweep: %d combinations, %d workers", len(combos), r.workers)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result := r.runCombo(combos[idx])
				r.mu.Lock()
				r.state.Results[idx] = result
				r.state.CompletedCombos++
				completed := r.state.CompletedCombos
				r.mu.Unlock()
				monitoring.Logf("sweep: combo %d/%d done (%s n=%d reaction=%.1fs margin=%.0fm): throughput=%d mean_headway=%.1fm",
					completed, len(combos), result.Controller, result.Trains,
					result.ReactionS, result.MarginM, result.Throughput, result.MeanHeadwayM)
			}
		}()
	}

	var cancelled error
dispatch:
	for idx := range combos {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break dispatch
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	completed := r.clock.Now()
	r.mu.Lock()
	r.state.CompletedAt = &completed
	if cancelled != nil {
		r.state.Status = StatusError
		r.state.Error = fmt.Sprintf("sweep cancelled: %v", cancelled)
	} else {
		r.state.Status = StatusComplete
	}
	r.mu.Unlock()

	return r.State(), cancelled
}

// runCombo builds and runs one independent simulation. Failures are
// recorded on the result rather than aborting the whole sweep.
func (r *Runner) runCombo(combo Combo) ComboResult {
	result := ComboResult{Combo: combo}

	// Shallow copy of the base config with the combo's dimensions laid
	// over it. The fleet is regenerated from the train count.
	cfg := *r.base
	cfg.Controller = &combo.Controller
	cfg.TrainCount = &combo.Trains
	cfg.ReactionS = &combo.ReactionS
	cfg.MarginM = &combo.MarginM
	cfg.Fleet = nil

	scn, err := cfg.Build()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	engine, err := sim.NewEngine(scn.Track, scn.Trains, scn.Controllers, scn.DT, scn.HorizonS)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	begin := r.clock.Now()
	res := engine.Run()
	result.DurationSeconds = r.clock.Since(begin).Seconds()

	headways := metrics.Headways(res.Trace, scn.Lengths(), config.DefaultTrainLengthM)
	summary := metrics.Summarize(headways)

	result.Throughput = metrics.Throughput(res.Trace)
	result.FinishedTrains = res.FinishedCount()
	result.HeadwayCount = summary.Count
	result.MeanHeadwayM = summary.MeanM
	result.MinHeadwayM = summary.MinM
	result.StdDevHeadwayM = summary.StdDevM
	result.P90HeadwayM = summary.P90M

	return result
}

func (r *Runner) setError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Status = StatusError
	r.state.Error = err.Error()
}
