package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and single-process
// deployments. Snapshots are deep-copied through JSON on both save and
// load, so callers never alias stored state. Safe for concurrent use.
type MemStore[S any] struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint[S]
}

// NewMemStore creates an empty MemStore.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{checkpoints: make(map[string]Checkpoint[S])}
}

// Setup implements Store. Nothing to prepare for memory.
func (m *MemStore[S]) Setup(ctx context.Context) error { return nil }

// Save implements Store.
func (m *MemStore[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	if cp.ThreadID == "" {
		return fmt.Errorf("store: empty thread id")
	}

	state, err := deepCopy(cp.State)
	if err != nil {
		return fmt.Errorf("store: copy state: %w", err)
	}
	cp.State = state
	if cp.Pending != nil {
		pending := make([]string, len(cp.Pending))
		copy(pending, cp.Pending)
		cp.Pending = pending
	}
	cp.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	m.checkpoints[cp.ThreadID] = cp
	m.mu.Unlock()
	return nil
}

// Load implements Store.
func (m *MemStore[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], error) {
	m.mu.RLock()
	cp, ok := m.checkpoints[threadID]
	m.mu.RUnlock()
	if !ok {
		return Checkpoint[S]{}, ErrNotFound
	}

	state, err := deepCopy(cp.State)
	if err != nil {
		return Checkpoint[S]{}, fmt.Errorf("store: copy state: %w", err)
	}
	cp.State = state
	if cp.Pending != nil {
		pending := make([]string, len(cp.Pending))
		copy(pending, cp.Pending)
		cp.Pending = pending
	}
	return cp, nil
}

// Delete implements Store.
func (m *MemStore[S]) Delete(ctx context.Context, threadID string) error {
	m.mu.Lock()
	delete(m.checkpoints, threadID)
	m.mu.Unlock()
	return nil
}

// Len reports how many threads currently hold a checkpoint.
func (m *MemStore[S]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.checkpoints)
}

// deepCopy clones a value through a JSON round trip. Slower than manual
// copying but immune to missed fields as the state grows.
func deepCopy[S any](v S) (S, error) {
	var out S
	data, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
