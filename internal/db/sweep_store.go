package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SweepRecord represents a persisted parameter sweep.
type SweepRecord struct {
	ID          int64           `json:"id"`
	SweepID     string          `json:"sweep_id"`
	Status      string          `json:"status"`
	Request     json.RawMessage `json:"request"`
	Results     json.RawMessage `json:"results,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// SweepStore provides persistence for sweep results.
type SweepStore struct {
	db *sql.DB
}

// NewSweepStore creates a SweepStore backed by the given database.
func NewSweepStore(db *DB) *SweepStore {
	return &SweepStore{db: db.DB}
}

// Insert creates a sweep record when a sweep starts.
func (s *SweepStore) Insert(record SweepRecord) error {
	query := `
		INSERT INTO sweeps (sweep_id, status, request, started_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		record.SweepID,
		record.Status,
		string(record.Request),
		record.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting sweep %s: %w", record.SweepID, err)
	}
	return nil
}

// UpdateResults stores the outcome of a sweep on completion or error.
func (s *SweepStore) UpdateResults(sweepID, status string, results json.RawMessage, errMsg string, completedAt *time.Time) error {
	query := `
		UPDATE sweeps
		SET status = ?, results = ?, error = ?, completed_at = ?
		WHERE sweep_id = ?
	`
	var completedAtStr *string
	if completedAt != nil {
		formatted := completedAt.UTC().Format(time.RFC3339)
		completedAtStr = &formatted
	}
	var resultsStr *string
	if len(results) > 0 {
		raw := string(results)
		resultsStr = &raw
	}
	_, err := s.db.Exec(query, status, resultsStr, errMsg, completedAtStr, sweepID)
	if err != nil {
		return fmt.Errorf("updating sweep results for %s: %w", sweepID, err)
	}
	return nil
}

// Get returns a single sweep record by its id.
func (s *SweepStore) Get(sweepID string) (*SweepRecord, error) {
	query := `
		SELECT id, sweep_id, status, request, results, error, started_at, completed_at
		FROM sweeps
		WHERE sweep_id = ?
	`
	var rec SweepRecord
	var results, errMsg, completedAt sql.NullString
	var startedAt string

	err := s.db.QueryRow(query, sweepID).Scan(
		&rec.ID, &rec.SweepID, &rec.Status, (*rawMessageScanner)(&rec.Request),
		&results, &errMsg, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("getting sweep %s: %w", sweepID, err)
	}

	if results.Valid {
		rec.Results = json.RawMessage(results.String)
	}
	rec.Error = errMsg.String
	if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at for sweep %s: %w", sweepID, err)
	}
	if completedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at for sweep %s: %w", sweepID, err)
		}
		rec.CompletedAt = &parsed
	}
	return &rec, nil
}

// rawMessageScanner scans a TEXT column into a json.RawMessage.
type rawMessageScanner json.RawMessage

func (r *rawMessageScanner) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case string:
		*r = rawMessageScanner(v)
	case []byte:
		*r = rawMessageScanner(string(v))
	default:
		return fmt.Errorf("unsupported type %T for json column", src)
	}
	return nil
}
