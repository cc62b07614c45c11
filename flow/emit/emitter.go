package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be non-blocking, thread-safe, and resilient: a
// slow or failing backend must never stall or crash a workflow step.
// Emit should not panic; errors are handled internally.
type Emitter interface {
	Emit(event Event)
}
