package sim

import (
	"fmt"
	"sort"

	"github.com/dista-flow/railsim/internal/rail"
)

// FinishEpsilonM is how close to the end of the line a train must get
// to count as arrived.
const FinishEpsilonM = 1.0

// TraceRecord is one append-only log entry: the state of one train at
// one tick.
type TraceRecord struct {
	T        float64
	TrainID  string
	PosM     float64
	VelMps   float64
	Finished bool
}

// Result is the outcome of a completed run.
type Result struct {
	Trace       []TraceRecord
	FinishTimes map[string]float64
	Ticks       int
}

// FinishedCount returns how many trains reached the end of the line.
func (r *Result) FinishedCount() int {
	return len(r.FinishTimes)
}

// Engine drives a fixed set of trains through a track with a fixed-step
// loop. It owns the train states for the duration of the run. The
// engine enforces no global safety invariant: misconfigured controllers
// can and will produce unsafe gaps, and the trace is how that shows up.
type Engine struct {
	track       *rail.Track
	trains      []*Train
	controllers map[string]Controller
	dt          float64
	horizonS    float64
}

// NewEngine validates the fleet and builds an engine. Every train needs
// a controller and a unique id; dt and the horizon must be positive.
func NewEngine(track *rail.Track, trains []*Train, controllers map[string]Controller, dt, horizonS float64) (*Engine, error) {
	if track == nil {
		return nil, fmt.Errorf("engine requires a track")
	}
	if dt <= 0 {
		return nil, fmt.Errorf("tick size must be positive, got %v", dt)
	}
	if horizonS <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %v", horizonS)
	}
	if len(trains) == 0 {
		return nil, fmt.Errorf("engine requires at least one train")
	}

	seen := make(map[string]bool, len(trains))
	ordered := make([]*Train, len(trains))
	copy(ordered, trains)
	for _, tr := range ordered {
		if seen[tr.ID] {
			return nil, fmt.Errorf("duplicate train id %q", tr.ID)
		}
		seen[tr.ID] = true
		if controllers[tr.ID] == nil {
			return nil, fmt.Errorf("train %q has no controller assigned", tr.ID)
		}
	}
	// Fixed deterministic tick order: ascending id.
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return &Engine{
		track:       track,
		trains:      ordered,
		controllers: controllers,
		dt:          dt,
		horizonS:    horizonS,
	}, nil
}

// leaderOf returns the active train with the smallest position strictly
// greater than tr's, ties broken by lowest id. Absence of a leader is
// the normal clear-track case, reported as nil.
func (e *Engine) leaderOf(tr *Train) *Train {
	var leader *Train
	for _, other := range e.trains {
		if other == tr || other.Finished {
			continue
		}
		if other.PosM <= tr.PosM {
			continue
		}
		if leader == nil || other.PosM < leader.PosM ||
			(other.PosM == leader.PosM && other.ID < leader.ID) {
			leader = other
		}
	}
	return leader
}

// Run executes the loop until the horizon or until every train has
// finished, whichever comes first, and returns the trace.
func (e *Engine) Run() *Result {
	res := &Result{FinishTimes: make(map[string]float64)}
	total := e.track.TotalLength()

	for tick := 0; ; tick++ {
		t := float64(tick) * e.dt
		if t >= e.horizonS {
			break
		}

		active := 0
		for _, tr := range e.trains {
			if tr.Finished {
				continue
			}

			if tr.PosM >= total-FinishEpsilonM {
				// One final record with the flag set, then the train no
				// longer advances and stops acting as anyone's leader.
				tr.Finished = true
				res.FinishTimes[tr.ID] = t
				res.Trace = append(res.Trace, TraceRecord{
					T: t, TrainID: tr.ID, PosM: tr.PosM, VelMps: tr.VelMps, Finished: true,
				})
				continue
			}
			active++

			leader := e.leaderOf(tr)
			vDesired := e.controllers[tr.ID].DesiredSpeed(tr, leader, e.track)
			tr.Step(e.dt, vDesired, e.track)

			res.Trace = append(res.Trace, TraceRecord{
				T: t, TrainID: tr.ID, PosM: tr.PosM, VelMps: tr.VelMps, Finished: false,
			})
		}
		res.Ticks = tick + 1

		if active == 0 && len(res.FinishTimes) == len(e.trains) {
			break
		}
	}

	return res
}

// Trains exposes the engine's train states, primarily so callers can
// collect lengths and finish flags after a run.
func (e *Engine) Trains() []*Train {
	return e.trains
}
