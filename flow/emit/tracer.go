package emit

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer attaches spans to a per-thread trace around step executions and
// external calls. It is observability only: a nil *Tracer is valid and
// every method no-ops on it, so callers never branch on tracing being
// configured.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer from the globally configured OpenTelemetry
// provider.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// Trace is a per-thread root span.
type Trace struct {
	span trace.Span
}

// Span is one traced operation within a Trace.
type Span struct {
	span trace.Span
}

// StartTrace opens the root span for one executor invocation on a thread.
func (t *Tracer) StartTrace(ctx context.Context, threadID string, meta map[string]interface{}) (context.Context, Trace) {
	if t == nil {
		return ctx, Trace{}
	}
	ctx, span := t.tracer.Start(ctx, "workflow_run")
	span.SetAttributes(attribute.String("studyflow.thread_id", threadID))
	setAttrs(span, meta)
	return ctx, Trace{span: span}
}

// EndTrace closes the root span.
func (t *Tracer) EndTrace(tr Trace) {
	if t == nil || tr.span == nil {
		return
	}
	tr.span.End()
}

// StartSpan opens a child span under ctx.
func (t *Tracer) StartSpan(ctx context.Context, name string, meta map[string]interface{}) (context.Context, Span) {
	if t == nil {
		return ctx, Span{}
	}
	ctx, span := t.tracer.Start(ctx, name)
	setAttrs(span, meta)
	return ctx, Span{span: span}
}

// EndSpan closes a span, recording its input and output previews plus any
// extra metadata.
func (t *Tracer) EndSpan(s Span, input, output string, meta map[string]interface{}) {
	if t == nil || s.span == nil {
		return
	}
	if input != "" {
		s.span.SetAttributes(attribute.String("studyflow.input", truncate(input, 512)))
	}
	if output != "" {
		s.span.SetAttributes(attribute.String("studyflow.output", truncate(output, 512)))
	}
	setAttrs(s.span, meta)
	s.span.End()
}

func setAttrs(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(key, v))
		case int:
			span.SetAttributes(attribute.Int(key, v))
		case float64:
			span.SetAttributes(attribute.Float64(key, v))
		case bool:
			span.SetAttributes(attribute.Bool(key, v))
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
