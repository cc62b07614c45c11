package flow

import "errors"

// ErrEditTargetNotFound reports that a requested document edit could
// not locate its target fragment. Recoverable: the edit step surfaces a
// human-readable message and re-suspends without losing state.
var ErrEditTargetNotFound = errors.New("edit target not found")

// ErrUnrecognizedAction reports a malformed structured decision from
// the model. The owning step apologizes and re-suspends rather than
// crashing the thread.
var ErrUnrecognizedAction = errors.New("unrecognized action")

// ErrMaxStepsExceeded reports a runaway trampoline loop.
var ErrMaxStepsExceeded = errors.New("workflow exceeded max steps limit")

// ServiceError wraps an external dependency failure that survived the
// retry policy. It aborts only the in-flight step; the thread remains
// resumable from its last checkpoint.
type ServiceError struct {
	Service  string
	Attempts int
	Cause    error
}

func (e *ServiceError) Error() string {
	return e.Service + " unavailable after retries: " + e.Cause.Error()
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// StepError wraps a failure with the step that produced it.
type StepError struct {
	Message string
	Code    string
	StepID  string
	Cause   error
}

func (e *StepError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

func (e *StepError) Unwrap() error { return e.Cause }
