package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql driver
)

// MySQLStore is a Store backed by MySQL, for deployments where threads
// must survive across hosts. One row per thread; Save upserts.
//
// The DSN must enable parseTime so updated_at scans into time.Time, e.g.
//
//	user:pass@tcp(host:3306)/studyflow?parseTime=true
type MySQLStore[S any] struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool against dsn.
func NewMySQLStore[S any](dsn string) (*MySQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQLStore[S]{db: db}, nil
}

// Setup implements Store.
func (s *MySQLStore[S]) Setup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id  VARCHAR(191) PRIMARY KEY,
			state      JSON NOT NULL,
			pending    JSON,
			step_cursor VARCHAR(191) NOT NULL,
			updated_at DATETIME(6) NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("store: create tables: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *MySQLStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
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
		ON DUPLICATE KEY UPDATE
			state = VALUES(state),
			pending = VALUES(pending),
			step_cursor = VALUES(step_cursor),
			updated_at = VALUES(updated_at)`,
		cp.ThreadID, string(state), pending, cp.Cursor, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store: save checkpoint: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *MySQLStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
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
func (s *MySQLStore[S]) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("store: delete checkpoint: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *MySQLStore[S]) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *MySQLStore[S]) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
