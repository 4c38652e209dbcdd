package applicant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record exists for an applicant id.
var ErrNotFound = errors.New("applicant record not found")

// Store reads applicant records from a SQLite database. The engine never
// writes applicant data; the table is populated by the surrounding pipeline.
//
// Expected layout:
//
//	CREATE TABLE applicants (id TEXT PRIMARY KEY, record TEXT NOT NULL);
//
// where record is a JSON document.
type Store struct {
	db *sql.DB
}

// OpenStore opens a read-only store over the given SQLite file.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open applicant store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle. Useful for tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get fetches one applicant record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM applicants WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query applicant %s: %w", id, err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode applicant %s: %w", id, err)
	}
	return rec, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
