// Package db persists simulation runs, their traces, and sweep results
// in a local sqlite database.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sql handle so stores and migrations hang off one type.
type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the results database at path. Use
// ":memory:" for an ephemeral database.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening results database: %w", err)
	}
	// sqlite handles one writer; serialising through a single
	// connection avoids SQLITE_BUSY churn during batch trace inserts.
	handle.SetMaxOpenConns(1)
	return &DB{handle}, nil
}
