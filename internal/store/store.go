// Package store provides the local embedded SQLite store for todopro.
//
// The database lives under the profile directory (local.db) and holds one
// row per synchronizable record, envelope columns plus the domain payload
// as JSON. It is opened in WAL mode and assumed single-writer: only one
// todopro process per profile touches it at a time.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/todopro/todopro-cli/internal/model"
	"github.com/todopro/todopro-cli/internal/sync"
)

// InboxProjectID is the stable id of the sentinel Inbox project seeded on
// first open. The Inbox is protected: it accepts updates but is never
// deleted, by sync or otherwise.
const InboxProjectID = "inbox"

// Store wraps the embedded SQLite database.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates a database connection at the specified path, creating the
// parent directory and the file if needed.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	st, err := store.Open(profile.DBPath())
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	st := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := st.conn.Exec(pragma); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return st, nil
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// InitSchema creates the schema if it doesn't exist and seeds the
// protected Inbox project. Idempotent, safe to call on every start.
func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		deleted_at TEXT,
		protected INTEGER NOT NULL DEFAULT 0,
		fields TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (collection, id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_changed
	    ON records(collection, updated_at);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return s.seedInbox()
}

// seedInbox inserts the sentinel Inbox project if it is missing.
func (s *Store) seedInbox() error {
	fields, err := model.MarshalFields(model.Project{Name: "Inbox"})
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(`
		INSERT OR IGNORE INTO records (collection, id, updated_at, version, protected, fields)
		VALUES (?, ?, ?, 1, 1, ?)`,
		string(model.Projects), InboxProjectID, formatTime(time.Now()), string(fields))
	if err != nil {
		return fmt.Errorf("failed to seed inbox project: %w", err)
	}
	return nil
}

// Repo returns the repository for one collection.
func (s *Store) Repo(c model.Collection) *Repo {
	return &Repo{store: s, collection: c}
}

// Endpoint returns the full local repository set for the sync engine.
func (s *Store) Endpoint() sync.Endpoint {
	ep := make(sync.Endpoint)
	for _, c := range model.Collections() {
		ep[c] = s.Repo(c)
	}
	return ep
}

// Timestamps are stored as RFC 3339 UTC strings with a fixed-width
// nanosecond fraction so that lexical ordering in SQL matches
// chronological ordering. RFC3339Nano trims trailing zeros, which would
// break that property for same-second writes.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}
