package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// SQLiteStore is a file-backed Store. One row per thread; Save upserts.
// The connection pool is capped at a single connection since the driver
// serializes writers anyway, and WAL keeps readers unblocked.
type SQLiteStore[S any] struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore[S any](path string) (*SQLiteStore[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	return &SQLiteStore[S]{db: db, path: path}, nil
}

// Setup implements Store.
func (s *SQLiteStore[S]) Setup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id  TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			pending    TEXT,
			step_cursor TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("store: create tables: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	if cp.ThreadID == "" {
		return fmt.Errorf("store: empty thread id")
	}

	state, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}

	var pending any
	if cp.Pending != nil {
		data, err := json.Marshal(cp.Pending)
		if err != nil {
			return fmt.Errorf("store: marshal pending: %w", err)
		}
		pending = string(data)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (thread_id, state, pending, step_cursor, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			state = excluded.state,
			pending = excluded.pending,
			step_cursor = excluded.step_cursor,
			updated_at = excluded.updated_at`,
		cp.ThreadID, string(state), pending, cp.Cursor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var (
		cp      Checkpoint[S]
		state   string
		pending sql.NullString
	)

	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, state, pending, step_cursor, updated_at
		FROM checkpoints WHERE thread_id = ?`, threadID)
	err := row.Scan(&cp.ThreadID, &state, &pending, &cp.Cursor, &cp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint[S]{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("store: load checkpoint: %w", err)
	}

	if err := json.Unmarshal([]byte(state), &cp.State); err != nil {
		return Checkpoint[S]{}, fmt.Errorf("store: unmarshal state: %w", err)
	}
	if pending.Valid {
		if err := json.Unmarshal([]byte(pending.String), &cp.Pending); err != nil {
			return Checkpoint[S]{}, fmt.Errorf("store: unmarshal pending: %w", err)
		}
	}
	return cp, nil
}

// Delete implements Store.
func (s *SQLiteStore[S]) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("store: delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore[S]) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *SQLiteStore[S]) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Path returns the database file path.
func (s *SQLiteStore[S]) Path() string { return s.path }
