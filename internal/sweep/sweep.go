// Package sweep runs grids of independent simulations over the
// controller tuning space and aggregates their safety and throughput
// metrics.
package sweep

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a sweep run.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// Grid defines the parameter dimensions of a sweep. Every combination
// of the four dimensions becomes one simulation run.
type Grid struct {
	Controllers []string  `json:"controllers"`
	TrainCounts []int     `json:"train_counts"`
	ReactionsS  []float64 `json:"reactions_s"`
	MarginsM    []float64 `json:"margins_m"`
}

// Combo is one point of the grid.
type Combo struct {
	Controller string  `json:"controller"`
	Trains     int     `json:"trains"`
	ReactionS  float64 `json:"reaction_s"`
	MarginM    float64 `json:"margin_m"`
}

// Expand enumerates the grid in deterministic order: controllers
// outermost, margins innermost. Every dimension must be non-empty.
func (g Grid) Expand() ([]Combo, error) {
	if len(g.Controllers) == 0 {
		return nil, fmt.Errorf("sweep grid requires at least one controller")
	}
	if len(g.TrainCounts) == 0 {
		return nil, fmt.Errorf("sweep grid requires at least one train count")
	}
	if len(g.ReactionsS) == 0 {
		return nil, fmt.Errorf("sweep grid requires at least one reaction time")
	}
	if len(g.MarginsM) == 0 {
		return nil, fmt.Errorf("sweep grid requires at least one margin")
	}

	combos := make([]Combo, 0, len(g.Controllers)*len(g.TrainCounts)*len(g.ReactionsS)*len(g.MarginsM))
	for _, ctrl := range g.Controllers {
		for _, n := range g.TrainCounts {
			for _, reaction := range g.ReactionsS {
				for _, margin := range g.MarginsM {
					combos = append(combos, Combo{
						Controller: ctrl,
						Trains:     n,
						ReactionS:  reaction,
						MarginM:    margin,
					})
				}
			}
		}
	}
	return combos, nil
}

// ComboResult holds the summary metrics of one parameter combination.
type ComboResult struct {
	Combo

	Throughput      int     `json:"throughput"`
	FinishedTrains  int     `json:"finished_trains"`
	HeadwayCount    int     `json:"headway_count"`
	MeanHeadwayM    float64 `json:"mean_headway_m"`
	MinHeadwayM     float64 `json:"min_headway_m"`
	StdDevHeadwayM  float64 `json:"stddev_headway_m"`
	P90HeadwayM     float64 `json:"p90_headway_m"`
	DurationSeconds float64 `json:"duration_seconds"`
	Error           string  `json:"error,omitempty"`
}

// State is a snapshot of a sweep run.
type State struct {
	Status          Status        `json:"status"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	TotalCombos     int           `json:"total_combos"`
	CompletedCombos int           `json:"completed_combos"`
	Results         []ComboResult `json:"results"`
	Error           string        `json:"error,omitempty"`
}
