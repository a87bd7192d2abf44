package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Run is one persisted simulation run with its KPI summary.
type Run struct {
	RunID          string     `json:"run_id"`
	Controller     string     `json:"controller"`
	TrainCount     int        `json:"train_count"`
	ReactionS      float64    `json:"reaction_s"`
	MarginM        float64    `json:"margin_m"`
	DTSeconds      float64    `json:"dt_seconds"`
	HorizonSeconds float64    `json:"horizon_seconds"`
	RailCondition  string     `json:"rail_condition"`
	Status         string     `json:"status"`
	Throughput     int        `json:"throughput"`
	MeanHeadwayM   float64    `json:"mean_headway_m"`
	MinHeadwayM    float64    `json:"min_headway_m"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunStore provides persistence for simulation runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore backed by the given database.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db.DB}
}

// Insert creates a run record when a simulation starts.
func (s *RunStore) Insert(run Run) error {
	query := `
		INSERT INTO runs (
			run_id, controller, train_count, reaction_s, margin_m,
			dt_seconds, horizon_seconds, rail_condition, status, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'running', ?)
	`
	_, err := s.db.Exec(query,
		run.RunID,
		run.Controller,
		run.TrainCount,
		run.ReactionS,
		run.MarginM,
		run.DTSeconds,
		run.HorizonSeconds,
		run.RailCondition,
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}
	return nil
}

// Complete marks a run finished and stores its KPI summary.
func (s *RunStore) Complete(runID string, throughput int, meanHeadwayM, minHeadwayM float64, completedAt time.Time) error {
	query := `
		UPDATE runs
		SET status = 'complete', throughput = ?, mean_headway_m = ?, min_headway_m = ?, completed_at = ?
		WHERE run_id = ?
	`
	res, err := s.db.Exec(query, throughput, meanHeadwayM, minHeadwayM, completedAt.UTC().Format(time.RFC3339), runID)
	if err != nil {
		return fmt.Errorf("completing run %s: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("completing run %s: no such run", runID)
	}
	return nil
}

// Get returns a single run by its id.
func (s *RunStore) Get(runID string) (*Run, error) {
	query := `
		SELECT run_id, controller, train_count, reaction_s, margin_m,
		       dt_seconds, horizon_seconds, rail_condition, status,
		       throughput, mean_headway_m, min_headway_m, started_at, completed_at
		FROM runs
		WHERE run_id = ?
	`
	var run Run
	var throughput sql.NullInt64
	var meanHeadway, minHeadway sql.NullFloat64
	var startedAt string
	var completedAt sql.NullString

	err := s.db.QueryRow(query, runID).Scan(
		&run.RunID, &run.Controller, &run.TrainCount, &run.ReactionS, &run.MarginM,
		&run.DTSeconds, &run.HorizonSeconds, &run.RailCondition, &run.Status,
		&throughput, &meanHeadway, &minHeadway, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}

	run.Throughput = int(throughput.Int64)
	run.MeanHeadwayM = meanHeadway.Float64
	run.MinHeadwayM = minHeadway.Float64
	if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at for run %s: %w", runID, err)
	}
	if completedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at for run %s: %w", runID, err)
		}
		run.CompletedAt = &parsed
	}
	return &run, nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT run_id, controller, train_count, reaction_s, margin_m,
		       dt_seconds, horizon_seconds, rail_condition, status,
		       throughput, mean_headway_m, min_headway_m, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var throughput sql.NullInt64
		var meanHeadway, minHeadway sql.NullFloat64
		var startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(
			&run.RunID, &run.Controller, &run.TrainCount, &run.ReactionS, &run.MarginM,
			&run.DTSeconds, &run.HorizonSeconds, &run.RailCondition, &run.Status,
			&throughput, &meanHeadway, &minHeadway, &startedAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run.Throughput = int(throughput.Int64)
		run.MeanHeadwayM = meanHeadway.Float64
		run.MinHeadwayM = minHeadway.Float64
		if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		if completedAt.Valid {
			parsed, err := time.Parse(time.RFC3339, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing completed_at: %w", err)
			}
			run.CompletedAt = &parsed
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
