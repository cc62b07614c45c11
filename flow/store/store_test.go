package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type testState struct {
	Material  string   `json:"material"`
	Questions []string `json:"questions"`
	EditCount int      `json:"edit_count"`
}

// runStoreTests exercises the Store contract against any implementation.
func runStoreTests(t *testing.T, s Store[testState]) {
	t.Helper()
	ctx := context.Background()

	if err := s.Setup(ctx); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	t.Run("load missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.Load(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("save and load round trip", func(t *testing.T) {
		cp := Checkpoint[testState]{
			ThreadID: "t1",
			State:    testState{Material: "doc", Questions: []string{"q1", "q2"}, EditCount: 3},
			Cursor:   "edit_material",
		}
		if err := s.Save(ctx, cp); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := s.Load(ctx, "t1")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.State.Material != "doc" || got.State.EditCount != 3 || len(got.State.Questions) != 2 {
			t.Errorf("state = %+v", got.State)
		}
		if got.Cursor != "edit_material" {
			t.Errorf("cursor = %q", got.Cursor)
		}
		if got.Suspended() {
			t.Error("checkpoint without pending must not report suspended")
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt not set")
		}
	})

	t.Run("save overwrites previous snapshot", func(t *testing.T) {
		first := Checkpoint[testState]{ThreadID: "t2", State: testState{Material: "v1"}, Cursor: "a"}
		second := Checkpoint[testState]{
			ThreadID: "t2",
			State:    testState{Material: "v2"},
			Pending:  []string{"need feedback"},
			Cursor:   "b",
		}
		if err := s.Save(ctx, first); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Save(ctx, second); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := s.Load(ctx, "t2")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.State.Material != "v2" || got.Cursor != "b" {
			t.Errorf("got %+v", got)
		}
		if !got.Suspended() || got.Pending[0] != "need feedback" {
			t.Errorf("pending = %v", got.Pending)
		}
	})

	t.Run("pending cleared on next save", func(t *testing.T) {
		if err := s.Save(ctx, Checkpoint[testState]{ThreadID: "t2", State: testState{}, Cursor: "c"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, _ := s.Load(ctx, "t2")
		if got.Suspended() {
			t.Errorf("pending should be nil, got %v", got.Pending)
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := s.Save(ctx, Checkpoint[testState]{ThreadID: "t3", State: testState{}, Cursor: "a"}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Delete(ctx, "t3"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if err := s.Delete(ctx, "t3"); err != nil {
			t.Errorf("second Delete: %v", err)
		}
		if _, err := s.Load(ctx, "t3"); !errors.Is(err, ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("empty thread id rejected", func(t *testing.T) {
		if err := s.Save(ctx, Checkpoint[testState]{Cursor: "a"}); err == nil {
			t.Error("expected error for empty thread id")
		}
	})
}

func TestMemStore(t *testing.T) {
	runStoreTests(t, NewMemStore[testState]())
}

func TestMemStoreIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore[testState]()

	state := testState{Questions: []string{"q"}}
	if err := s.Save(ctx, Checkpoint[testState]{ThreadID: "t", State: state, Cursor: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	state.Questions[0] = "mutated"

	got, err := s.Load(ctx, "t")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.State.Questions[0] != "q" {
		t.Error("stored state aliased caller memory")
	}

	got.State.Questions[0] = "mutated again"
	again, _ := s.Load(ctx, "t")
	if again.State.Questions[0] != "q" {
		t.Error("loaded state aliased stored memory")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.db")
	s, err := NewSQLiteStore[testState](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	if s.Path() != path {
		t.Errorf("Path = %q", s.Path())
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	runStoreTests(t, s)
}

// MySQL tests need a live server; set STUDYFLOW_MYSQL_DSN to run them.
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("STUDYFLOW_MYSQL_DSN")
	if dsn == "" {
		t.Skip("STUDYFLOW_MYSQL_DSN not set")
	}

	s, err := NewMySQLStore[testState](dsn)
	if err != nil {
		t.Fatalf("NewMySQLStore: %v", err)
	}
	defer func() { _ = s.Close() }()

	runStoreTests(t, s)
}
