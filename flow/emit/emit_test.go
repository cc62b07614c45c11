package emit

import (
	"context"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text mode", func(t *testing.T) {
		var buf strings.Builder
		e := NewLogEmitter(&buf, false)
		e.Emit(Event{ThreadID: "th-1", Step: 2, StepID: "edit_material", Msg: "step_start"})

		got := buf.String()
		for _, want := range []string{"[step_start]", "thread=th-1", "step=2", "stepID=edit_material"} {
			if !strings.Contains(got, want) {
				t.Errorf("output %q missing %q", got, want)
			}
		}
	})

	t.Run("json mode", func(t *testing.T) {
		var buf strings.Builder
		e := NewLogEmitter(&buf, true)
		e.Emit(Event{ThreadID: "th-1", Msg: "suspended", Meta: map[string]interface{}{"cursor": "edit_material"}})

		got := buf.String()
		if !strings.Contains(got, `"threadID":"th-1"`) || !strings.Contains(got, `"cursor":"edit_material"`) {
			t.Errorf("unexpected JSON output: %q", got)
		}
		if !strings.HasSuffix(got, "\n") {
			t.Error("JSONL output must be newline-terminated")
		}
	})
}

func TestBufferedEmitter(t *testing.T) {
	e := NewBufferedEmitter()
	e.Emit(Event{ThreadID: "a", Step: 1, StepID: "input_processing", Msg: "step_start"})
	e.Emit(Event{ThreadID: "a", Step: 1, StepID: "input_processing", Msg: "step_end"})
	e.Emit(Event{ThreadID: "a", Step: 2, StepID: "generating_content", Msg: "step_start"})
	e.Emit(Event{ThreadID: "b", Step: 1, StepID: "input_processing", Msg: "step_start"})

	t.Run("history per thread", func(t *testing.T) {
		if got := len(e.History("a")); got != 3 {
			t.Errorf("history(a) = %d events, want 3", got)
		}
		if got := len(e.History("b")); got != 1 {
			t.Errorf("history(b) = %d events, want 1", got)
		}
		if got := len(e.History("missing")); got != 0 {
			t.Errorf("history(missing) = %d events, want 0", got)
		}
	})

	t.Run("filter by step id and msg", func(t *testing.T) {
		got := e.HistoryWithFilter("a", HistoryFilter{StepID: "input_processing", Msg: "step_end"})
		if len(got) != 1 {
			t.Fatalf("got %d events, want 1", len(got))
		}
	})

	t.Run("filter by step range", func(t *testing.T) {
		min := 2
		got := e.HistoryWithFilter("a", HistoryFilter{MinStep: &min})
		if len(got) != 1 || got[0].StepID != "generating_content" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("clear", func(t *testing.T) {
		e.Clear("a")
		if len(e.History("a")) != 0 {
			t.Error("clear did not drop events")
		}
		if len(e.History("b")) != 1 {
			t.Error("clear must not touch other threads")
		}
	})
}

func TestNullEmitter(t *testing.T) {
	NewNullEmitter().Emit(Event{ThreadID: "x", Msg: "ignored"})
}

func TestOTelEmitter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	e := NewOTelEmitter(tp.Tracer("test"))
	e.Emit(Event{
		ThreadID: "th-1",
		Step:     1,
		StepID:   "generating_content",
		Msg:      "step_end",
		Meta:     map[string]interface{}{"tokens_in": 12, "error": "boom"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "step_end" {
		t.Errorf("span name = %q", spans[0].Name)
	}

	var sawThread, sawTokens bool
	for _, attr := range spans[0].Attributes {
		switch string(attr.Key) {
		case "studyflow.thread_id":
			sawThread = attr.Value.AsString() == "th-1"
		case "studyflow.llm.tokens_in":
			sawTokens = attr.Value.AsInt64() == 12
		}
	}
	if !sawThread || !sawTokens {
		t.Errorf("missing attributes: thread=%v tokens=%v", sawThread, sawTokens)
	}
}

func TestTracerNilSafe(t *testing.T) {
	var tr *Tracer
	ctx, trace := tr.StartTrace(context.Background(), "th-1", nil)
	_, span := tr.StartSpan(ctx, "model_call", nil)
	tr.EndSpan(span, "in", "out", nil)
	tr.EndTrace(trace)
}
