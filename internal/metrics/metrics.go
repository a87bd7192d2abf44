// Package metrics derives safety and throughput figures from a
// completed simulation trace.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dista-flow/railsim/internal/sim"
)

// Headway is the longitudinal gap between the rear of a leading train
// and the front of its follower at one timestamp. Gaps are clamped at
// zero: a raw gap smaller than the leader's length means the follower
// has run into it, which the clamp records as zero headway rather than
// a negative distance.
type Headway struct {
	T          float64
	FollowerID string
	LeaderID   string
	GapM       float64
}

// Headways computes the per-timestamp adjacent-pair gaps of a trace.
// lengths maps train id to train length in metres; ids missing from the
// map use defaultLengthM. The trace is expected in engine emission
// order (records of one tick are contiguous).
func Headways(trace []sim.TraceRecord, lengths map[string]float64, defaultLengthM float64) []Headway {
	var out []Headway

	var batch []sim.TraceRecord
	flush := func() {
		if len(batch) >= 2 {
			out = append(out, pairGaps(batch, lengths, defaultLengthM)...)
		}
		batch = batch[:0]
	}

	for _, rec := range trace {
		if len(batch) > 0 && rec.T != batch[0].T {
			flush()
		}
		batch = append(batch, rec)
	}
	flush()

	return out
}

func pairGaps(batch []sim.TraceRecord, lengths map[string]float64, defaultLengthM float64) []Headway {
	sorted := make([]sim.TraceRecord, len(batch))
	copy(sorted, batch)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PosM < sorted[j].PosM })

	out := make([]Headway, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		follower, leader := sorted[i-1], sorted[i]
		length, ok := lengths[leader.TrainID]
		if !ok {
			length = defaultLengthM
		}
		gap := (leader.PosM - length) - follower.PosM
		out = append(out, Headway{
			T:          leader.T,
			FollowerID: follower.TrainID,
			LeaderID:   leader.TrainID,
			GapM:       math.Max(0, gap),
		})
	}
	return out
}

// Throughput counts the trains that reached the end of the line.
func Throughput(trace []sim.TraceRecord) int {
	finished := make(map[string]bool)
	for _, rec := range trace {
		if rec.Finished {
			finished[rec.TrainID] = true
		}
	}
	return len(finished)
}

// Summary describes a headway distribution.
type Summary struct {
	Count   int
	MeanM   float64
	MinM    float64
	StdDevM float64
	P50M    float64
	P90M    float64
}

// Summarize reduces a headway series to its distribution summary. An
// empty series yields the zero Summary.
func Summarize(headways []Headway) Summary {
	if len(headways) == 0 {
		return Summary{}
	}

	gaps := make([]float64, len(headways))
	for i, hw := range headways {
		gaps[i] = hw.GapM
	}
	sort.Float64s(gaps)

	stddev := 0.0
	if len(gaps) > 1 {
		stddev = stat.StdDev(gaps, nil)
	}

	return Summary{
		Count:   len(gaps),
		MeanM:   stat.Mean(gaps, nil),
		MinM:    gaps[0],
		StdDevM: stddev,
		P50M:    stat.Quantile(0.5, stat.Empirical, gaps, nil),
		P90M:    stat.Quantile(0.9, stat.Empirical, gaps, nil),
	}
}
