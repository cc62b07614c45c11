package flow

import (
	"time"

	"github.com/studyflow/studyflow/flow/emit"
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxSteps bounds the trampoline loop. Zero disables the guard.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// WithFanOutWorkers bounds concurrent fan-out children. Values below 1
// fall back to the default.
func WithFanOutWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fanOutWorkers = n
		}
	}
}

// WithStepTimeout sets a per-step execution timeout. Zero disables it.
func WithStepTimeout(d time.Duration) Option {
	return func(e *Engine) { e.stepTimeout = d }
}

// WithEmitter sets the observability event receiver.
func WithEmitter(em emit.Emitter) Option {
	return func(e *Engine) {
		if em != nil {
			e.emitter = em
		}
	}
}

// WithTracer sets the span tracer. A nil tracer is valid and traces
// nothing.
func WithTracer(t *emit.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithMetrics sets the Prometheus collector.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}
