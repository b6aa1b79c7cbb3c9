package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a sql.DB holding cached embed markup and failure records.
type Store struct {
	*sql.DB
	path string
}

// Open creates or opens a SQLite database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	s := &Store{DB: sqlDB, path: path}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// OpenMemory creates an in-memory store (useful for testing).
func OpenMemory() (*Store, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory cache: %w", err)
	}

	s := &Store{DB: sqlDB, path: ":memory:"}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// migrate runs all schema migrations.
func (s *Store) migrate() error {
	_, err := s.Exec(schema)
	return err
}

// schema contains the full cache schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS embed_markup (
    permalink TEXT PRIMARY KEY,
    html TEXT NOT NULL,
    fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS embed_failures (
    permalink TEXT PRIMARY KEY,
    node_id TEXT NOT NULL DEFAULT '',
    attempts INTEGER NOT NULL,
    last_error TEXT NOT NULL DEFAULT '',
    failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// ErrNotFound is returned when a permalink has no cached markup.
var ErrNotFound = errors.New("cache: not found")

// PutMarkup stores rendered provider markup for a permalink, replacing
// any previous entry.
func (s *Store) PutMarkup(permalink, html string) error {
	_, err := s.Exec(
		`INSERT INTO embed_markup (permalink, html, fetched_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(permalink) DO UPDATE SET html = excluded.html, fetched_at = excluded.fetched_at`,
		permalink, html,
	)
	if err != nil {
		return fmt.Errorf("storing markup for %s: %w", permalink, err)
	}
	return nil
}

// GetMarkup returns the cached markup for a permalink, or ErrNotFound.
func (s *Store) GetMarkup(permalink string) (string, error) {
	var html string
	err := s.QueryRow(`SELECT html FROM embed_markup WHERE permalink = ?`, permalink).Scan(&html)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading markup for %s: %w", permalink, err)
	}
	return html, nil
}

// Failure is one terminally-failed embed, kept for the debug surface.
type Failure struct {
	Permalink string
	NodeID    string
	Attempts  int
	LastError string
	FailedAt  time.Time
}

// RecordFailure stores (or refreshes) a terminal failure record.
func (s *Store) RecordFailure(f Failure) error {
	_, err := s.Exec(
		`INSERT INTO embed_failures (permalink, node_id, attempts, last_error, failed_at)
		 VALUES (?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(permalink) DO UPDATE SET
		   node_id = excluded.node_id,
		   attempts = excluded.attempts,
		   last_error = excluded.last_error,
		   failed_at = excluded.failed_at`,
		f.Permalink, f.NodeID, f.Attempts, f.LastError,
	)
	if err != nil {
		return fmt.Errorf("recording failure for %s: %w", f.Permalink, err)
	}
	return nil
}

// ClearFailure removes the failure record for a permalink, if any. Used
// when a manual reactivation succeeds after a terminal failure.
func (s *Store) ClearFailure(permalink string) error {
	_, err := s.Exec(`DELETE FROM embed_failures WHERE permalink = ?`, permalink)
	if err != nil {
		return fmt.Errorf("clearing failure for %s: %w", permalink, err)
	}
	return nil
}

// Failures returns all recorded terminal failures, newest first.
func (s *Store) Failures() ([]Failure, error) {
	rows, err := s.Query(
		`SELECT permalink, node_id, attempts, last_error, failed_at
		 FROM embed_failures ORDER BY failed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		var ts string
		if err := rows.Scan(&f.Permalink, &f.NodeID, &f.Attempts, &f.LastError, &ts); err != nil {
			return nil, fmt.Errorf("scanning failure row: %w", err)
		}
		f.FailedAt, _ = time.Parse("2006-01-02 15:04:05", ts)
		out = append(out, f)
	}
	return out, rows.Err()
}
