// Package hitl tracks, per workflow thread, which steps pause for human
// feedback and which run autonomously.
//
// The registry is deliberately in-memory only: it shares its lifetime with
// the thread's session bookkeeping, and losing it on restart just restores
// the defaults (every gateable step enabled).
package hitl

import (
	"fmt"
	"sync"
)

// Steps that may be gated on human feedback. Steps outside this set always
// run autonomously and report as disabled.
const (
	StepEditMaterial        = "edit_material"
	StepGeneratingQuestions = "generating_questions"
)

// GateableSteps lists every step the registry manages, in pipeline order.
var GateableSteps = []string{StepEditMaterial, StepGeneratingQuestions}

// Config holds the enablement flags for one thread.
type Config map[string]bool

// DefaultConfig returns a config with every gateable step enabled.
func DefaultConfig() Config {
	cfg := make(Config, len(GateableSteps))
	for _, step := range GateableSteps {
		cfg[step] = true
	}
	return cfg
}

// AllEnabled reports whether every gateable step is enabled.
func (c Config) AllEnabled() bool {
	for _, step := range GateableSteps {
		if !c[step] {
			return false
		}
	}
	return true
}

// AllDisabled reports whether every gateable step is disabled.
func (c Config) AllDisabled() bool {
	for _, step := range GateableSteps {
		if c[step] {
			return false
		}
	}
	return true
}

func (c Config) clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Registry maps thread ids to HITL configs. A config is created with
// defaults on first access for an unseen thread. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]Config)}
}

// IsEnabled reports whether step pauses for human feedback on threadID.
// Unseen threads get a default config; unknown steps report false.
func (r *Registry) IsEnabled(step, threadID string) bool {
	cfg := r.configFor(threadID)
	enabled, ok := cfg[step]
	return ok && enabled
}

// Config returns a copy of the thread's config, creating the default on
// first access.
func (r *Registry) Config(threadID string) Config {
	return r.configFor(threadID).clone()
}

// SetConfig replaces the thread's config wholesale. Unknown step names in
// cfg are dropped.
func (r *Registry) SetConfig(threadID string, cfg Config) {
	clean := DefaultConfig()
	for _, step := range GateableSteps {
		if v, ok := cfg[step]; ok {
			clean[step] = v
		}
	}
	r.mu.Lock()
	r.configs[threadID] = clean
	r.mu.Unlock()
}

// UpdateOne flips a single step's flag. Returns an error for steps the
// registry does not gate.
func (r *Registry) UpdateOne(threadID, step string, enabled bool) error {
	if !gateable(step) {
		return fmt.Errorf("hitl: step %q is not gateable", step)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[threadID]
	if !ok {
		cfg = DefaultConfig()
		r.configs[threadID] = cfg
	}
	cfg[step] = enabled
	return nil
}

// ResetToDefault restores the thread's config to all-enabled.
func (r *Registry) ResetToDefault(threadID string) {
	r.mu.Lock()
	r.configs[threadID] = DefaultConfig()
	r.mu.Unlock()
}

// BulkSet enables or disables every gateable step at once.
func (r *Registry) BulkSet(threadID string, enabled bool) {
	cfg := make(Config, len(GateableSteps))
	for _, step := range GateableSteps {
		cfg[step] = enabled
	}
	r.mu.Lock()
	r.configs[threadID] = cfg
	r.mu.Unlock()
}

// ListAll returns a copy of every known thread config, for debugging.
func (r *Registry) ListAll() map[string]Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Config, len(r.configs))
	for id, cfg := range r.configs {
		out[id] = cfg.clone()
	}
	return out
}

// Drop evicts the thread's config. Part of thread teardown; idempotent.
func (r *Registry) Drop(threadID string) {
	r.mu.Lock()
	delete(r.configs, threadID)
	r.mu.Unlock()
}

func (r *Registry) configFor(threadID string) Config {
	r.mu.RLock()
	cfg, ok := r.configs[threadID]
	r.mu.RUnlock()
	if ok {
		return cfg
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok = r.configs[threadID]; ok {
		return cfg
	}
	cfg = DefaultConfig()
	r.configs[threadID] = cfg
	return cfg
}

func gateable(step string) bool {
	for _, s := range GateableSteps {
		if s == step {
			return true
		}
	}
	return false
}
