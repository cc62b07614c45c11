package emit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing structured output to a writer.
//
// Two modes:
//   - Text (default): human-readable key=value lines.
//   - JSON: one JSON object per line (JSONL).
//
// Example text output:
//
//	[step_start] thread=th-001 step=1 stepID=input_processing
//
// Example JSON output:
//
//	{"threadID":"th-001","step":1,"stepID":"input_processing","msg":"step_start","meta":null}
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to writer (os.Stdout when
// nil). jsonMode selects JSONL output over text.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes the event in the configured format.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		ThreadID string                 `json:"threadID"`
		Step     int                    `json:"step"`
		StepID   string                 `json:"stepID"`
		Msg      string                 `json:"msg"`
		Meta     map[string]interface{} `json:"meta"`
	}{
		ThreadID: event.ThreadID,
		Step:     event.Step,
		StepID:   event.StepID,
		Msg:      event.Msg,
		Meta:     event.Meta,
	})
	if err != nil {
		fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	fmt.Fprintf(l.writer, "[%s] thread=%s step=%d stepID=%s",
		event.Msg, event.ThreadID, event.Step, event.StepID)

	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	fmt.Fprint(l.writer, "\n")
}
