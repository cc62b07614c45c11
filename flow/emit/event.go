package emit

// Event represents an observability event emitted during workflow
// execution: step start/finish, suspensions, resumes, artifact writes,
// retries, errors.
type Event struct {
	// ThreadID identifies the workflow thread that emitted this event.
	ThreadID string

	// Step is the sequential step number within the current run
	// (1-indexed). Zero for thread-level events (run start, finalize,
	// delete).
	Step int

	// StepID names the pipeline step that emitted this event. Empty for
	// thread-level events.
	StepID string

	// Msg is a short machine-stable description, e.g. "step_start",
	// "suspended", "artifact_saved".
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "duration_ms": step execution duration
	//   - "error": error details
	//   - "tokens_in"/"tokens_out": LLM token usage
	//   - "cost_usd": estimated LLM cost
	//   - "cursor": the step the checkpoint points at
	Meta map[string]interface{}
}
