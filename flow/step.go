package flow

import "context"

// Step is one processing unit of the workflow. Steps receive a
// ThreadContext, perform work (model calls, edits, recognition), and
// return a StepResult carrying the replacement state and a routing
// decision.
//
// A step that needs human input returns a Suspension in its result;
// the engine persists the checkpoint and re-enters the same step with
// a bound Resume when the caller comes back.
type Step interface {
	// Name returns the step's stable identifier, used as the checkpoint
	// cursor and the artifact-rule key.
	Name() string

	// Run executes the step. A returned error aborts the in-flight step
	// only; the thread stays resumable from its last checkpoint.
	Run(ctx context.Context, tc *ThreadContext) (StepResult, error)
}

// StepFunc adapts a plain function into a Step.
type StepFunc struct {
	ID string
	Fn func(ctx context.Context, tc *ThreadContext) (StepResult, error)
}

// Name implements Step.
func (f StepFunc) Name() string { return f.ID }

// Run implements Step.
func (f StepFunc) Run(ctx context.Context, tc *ThreadContext) (StepResult, error) {
	return f.Fn(ctx, tc)
}

// ThreadContext is what a step sees: the thread identity, a copy of the
// current state, and, when re-entering a suspended step, the human
// feedback bound by the caller.
type ThreadContext struct {
	ThreadID string

	// State is a deep copy of the checkpointed state. Steps mutate it
	// freely and return it in StepResult.State.
	State ThreadState

	// Resume is non-nil only on the first step invocation of a resumed
	// run, for the step that was suspended.
	Resume *Resume

	// Payload carries the fan-out task input (one question per child).
	// Empty outside fan-out children.
	Payload string
}

// Resume is the human feedback bound to a suspended step on re-entry.
type Resume struct {
	Feedback   string
	ImagePaths []string
}

// StepResult is the output of one step execution.
type StepResult struct {
	// State fully replaces the thread state.
	State ThreadState

	// Answers are fan-out child contributions, appended into
	// QuestionsAndAnswers under the engine's merge lock.
	Answers []string

	// Route decides what runs next. Ignored when Suspend is set.
	Route Next

	// Suspend, when non-nil, halts the run durably and surfaces the
	// messages to the caller.
	Suspend *Suspension
}

// Suspension carries the message payload shown to the human when a
// step pauses for input. It is a signal, not an error.
type Suspension struct {
	Messages []string
}

// NewSuspension builds a Suspension from one or more messages.
func NewSuspension(messages ...string) *Suspension {
	return &Suspension{Messages: messages}
}

// Next specifies the step(s) that follow a completed step.
type Next struct {
	// To is the next single step. Mutually exclusive with FanOut and
	// Terminal.
	To string

	// FanOut spawns independent child tasks that run concurrently and
	// feed the terminal merge. No join barrier: the run finalizes once
	// all children complete.
	FanOut []Task

	// Terminal ends the run.
	Terminal bool
}

// Task is one fan-out child invocation.
type Task struct {
	Step    string
	Payload string
}

// Stop returns a terminal route.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto routes to the named step.
func Goto(stepID string) Next {
	return Next{To: stepID}
}

// Fan routes to a set of concurrent child tasks.
func Fan(tasks ...Task) Next {
	return Next{FanOut: tasks}
}
