package hitl

import "testing"

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry()

	t.Run("unseen thread gets all gateable steps enabled", func(t *testing.T) {
		if !r.IsEnabled(StepEditMaterial, "t1") {
			t.Error("edit_material should default to enabled")
		}
		if !r.IsEnabled(StepGeneratingQuestions, "t1") {
			t.Error("generating_questions should default to enabled")
		}
	})

	t.Run("unknown step reports disabled", func(t *testing.T) {
		if r.IsEnabled("input_processing", "t1") {
			t.Error("non-gateable step must report disabled")
		}
		if r.IsEnabled("nonexistent", "t1") {
			t.Error("unknown step must report disabled")
		}
	})

	t.Run("first access materializes a config", func(t *testing.T) {
		_ = r.IsEnabled(StepEditMaterial, "lazy")
		all := r.ListAll()
		if _, ok := all["lazy"]; !ok {
			t.Error("config should be created on first read")
		}
	})
}

func TestRegistryUpdates(t *testing.T) {
	t.Run("update one step", func(t *testing.T) {
		r := NewRegistry()
		if err := r.UpdateOne("t1", StepEditMaterial, false); err != nil {
			t.Fatalf("UpdateOne: %v", err)
		}
		if r.IsEnabled(StepEditMaterial, "t1") {
			t.Error("edit_material should be disabled")
		}
		if !r.IsEnabled(StepGeneratingQuestions, "t1") {
			t.Error("other steps must be untouched")
		}
	})

	t.Run("update unknown step errors", func(t *testing.T) {
		r := NewRegistry()
		if err := r.UpdateOne("t1", "bogus_step", true); err == nil {
			t.Error("expected error for non-gateable step")
		}
	})

	t.Run("bulk set disables everything", func(t *testing.T) {
		r := NewRegistry()
		r.BulkSet("t1", false)
		cfg := r.Config("t1")
		if !cfg.AllDisabled() {
			t.Errorf("expected all disabled, got %v", cfg)
		}
	})

	t.Run("reset restores defaults", func(t *testing.T) {
		r := NewRegistry()
		r.BulkSet("t1", false)
		r.ResetToDefault("t1")
		if !r.Config("t1").AllEnabled() {
			t.Error("expected all enabled after reset")
		}
	})

	t.Run("set config drops unknown steps", func(t *testing.T) {
		r := NewRegistry()
		r.SetConfig("t1", Config{StepEditMaterial: false, "bogus": true})
		cfg := r.Config("t1")
		if _, ok := cfg["bogus"]; ok {
			t.Error("unknown step should be dropped")
		}
		if cfg[StepEditMaterial] {
			t.Error("edit_material should be disabled")
		}
		if !cfg[StepGeneratingQuestions] {
			t.Error("unspecified step should keep its default")
		}
	})

	t.Run("configs are isolated per thread", func(t *testing.T) {
		r := NewRegistry()
		r.BulkSet("t1", false)
		if !r.IsEnabled(StepEditMaterial, "t2") {
			t.Error("t2 must not inherit t1 settings")
		}
	})
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry()
	r.BulkSet("t1", false)
	r.Drop("t1")
	r.Drop("t1") // idempotent

	if _, ok := r.ListAll()["t1"]; ok {
		t.Error("dropped thread should not be listed")
	}
	if !r.IsEnabled(StepEditMaterial, "t1") {
		t.Error("re-accessing a dropped thread recreates defaults")
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.AllEnabled() || cfg.AllDisabled() {
		t.Error("default config must be all-enabled")
	}
	cfg[StepEditMaterial] = false
	if cfg.AllEnabled() || cfg.AllDisabled() {
		t.Error("mixed config is neither all-enabled nor all-disabled")
	}
}
