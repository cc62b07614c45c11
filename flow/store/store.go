// Package store provides durable checkpoint persistence for workflow
// threads.
//
// A checkpoint is one atomic snapshot per thread: accumulated state, the
// cursor naming the next step, and the pending suspension payload when the
// thread is parked awaiting human input. It is overwritten on every step
// boundary and deleted when the thread is torn down, so a thread id never
// has more than one row.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when no checkpoint exists for the
// thread id. A fresh run starts from this condition.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is the durable snapshot of one workflow thread.
type Checkpoint[S any] struct {
	ThreadID string

	// State is the thread's accumulated workflow state.
	State S

	// Pending holds the messages of an outstanding suspension. Nil when
	// the thread is not awaiting human input.
	Pending []string

	// Cursor names the step the trampoline enters next. While Pending is
	// set this is the suspended step itself, so a resume re-enters it.
	Cursor string

	UpdatedAt time.Time
}

// Suspended reports whether the checkpoint carries a pending suspension.
func (c Checkpoint[S]) Suspended() bool {
	return c.Pending != nil
}

// Store persists checkpoints keyed by thread id.
//
// Save must be atomic per thread: a reader sees either the previous
// snapshot or the new one, never a partial write. Delete is idempotent.
type Store[S any] interface {
	// Setup prepares the backing storage (creates tables, etc).
	Setup(ctx context.Context) error

	// Save writes the checkpoint, replacing any existing snapshot for
	// the same thread id.
	Save(ctx context.Context, cp Checkpoint[S]) error

	// Load returns the thread's checkpoint, or ErrNotFound.
	Load(ctx context.Context, threadID string) (Checkpoint[S], error)

	// Delete removes the thread's checkpoint. Missing rows are not an
	// error.
	Delete(ctx context.Context, threadID string) error
}
