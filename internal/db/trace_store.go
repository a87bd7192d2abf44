package db

import (
	"database/sql"
	"fmt"

	"github.com/dista-flow/railsim/internal/sim"
)

// TraceStore persists the per-tick trace of a run.
type TraceStore struct {
	db *sql.DB
}

// NewTraceStore creates a TraceStore backed by the given database.
func NewTraceStore(db *DB) *TraceStore {
	return &TraceStore{db: db.DB}
}

// InsertBatch writes a whole trace inside one transaction. Traces run
// to hundreds of thousands of records, so per-record transactions are
// not an option.
func (s *TraceStore) InsertBatch(runID string, records []sim.TraceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning trace insert for run %s: %w", runID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO trace_records (run_id, t, train_id, pos_m, v_mps, finished)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing trace insert for run %s: %w", runID, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		finished := 0
		if rec.Finished {
			finished = 1
		}
		if _, err := stmt.Exec(runID, rec.T, rec.TrainID, rec.PosM, rec.VelMps, finished); err != nil {
			return fmt.Errorf("inserting trace record for run %s: %w", runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trace insert for run %s: %w", runID, err)
	}
	return nil
}

// ByRun returns the trace of one run in emission order.
func (s *TraceStore) ByRun(runID string) ([]sim.TraceRecord, error) {
	rows, err := s.db.Query(`
		SELECT t, train_id, pos_m, v_mps, finished
		FROM trace_records
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying trace for run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []sim.TraceRecord
	for rows.Next() {
		var rec sim.TraceRecord
		var finished int
		if err := rows.Scan(&rec.T, &rec.TrainID, &rec.PosM, &rec.VelMps, &finished); err != nil {
			return nil, fmt.Errorf("scanning trace record: %w", err)
		}
		rec.Finished = finished != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountByRun returns how many trace records a run produced.
func (s *TraceStore) CountByRun(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trace_records WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting trace records for run %s: %w", runID, err)
	}
	return n, nil
}
