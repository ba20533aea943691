package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/bge-search/internal/history"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS search_history (
	query_key         TEXT PRIMARY KEY,
	query             TEXT NOT NULL,
	frequency         INTEGER NOT NULL,
	first_seen        TEXT NOT NULL,
	last_seen         TEXT NOT NULL,
	last_result_count INTEGER NOT NULL,
	position          INTEGER NOT NULL
)`

// SQLiteStore keeps the history in a SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating search_history table: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load returns the stored history in its saved order.
func (s *SQLiteStore) Load(ctx context.Context) ([]history.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, frequency, first_seen, last_seen, last_result_count
		FROM search_history
		ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var e history.Entry
		var firstSeen, lastSeen string
		if err := rows.Scan(&e.Query, &e.Frequency, &firstSeen, &lastSeen, &e.LastResultCount); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if e.FirstSeen, err = time.Parse(time.RFC3339Nano, firstSeen); err != nil {
			return nil, fmt.Errorf("%w: first_seen %q", ErrCorruptHistory, firstSeen)
		}
		if e.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
			return nil, fmt.Errorf("%w: last_seen %q", ErrCorruptHistory, lastSeen)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Save replaces the stored history in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, entries []history.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO search_history
			(query_key, query, frequency, first_seen, last_seen, last_result_count, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		_, err := stmt.ExecContext(ctx,
			strings.ToLower(e.Query),
			e.Query,
			e.Frequency,
			e.FirstSeen.UTC().Format(time.RFC3339Nano),
			e.LastSeen.UTC().Format(time.RFC3339Nano),
			e.LastResultCount,
			i,
		)
		if err != nil {
			return fmt.Errorf("inserting %q: %w", e.Query, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}
