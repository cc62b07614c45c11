package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/studyflow/studyflow/flow/artifact"
	"github.com/studyflow/studyflow/flow/emit"
	"github.com/studyflow/studyflow/flow/hitl"
	"github.com/studyflow/studyflow/flow/store"
)

const (
	defaultFanOutWorkers = 4

	completionMessage = "Done 🎉 – send the next topic for study!"
)

// Engine drives workflow threads: it loads or creates checkpoints, runs
// step handlers in a trampoline loop until a suspension or terminal
// route, merges fan-out results, dispatches artifacts, and persists the
// outcome at every step boundary.
//
// Within one thread id execution is strictly sequential, enforced by a
// per-thread mutex held for the whole of Run. Different threads run
// fully concurrently.
type Engine struct {
	mu    sync.RWMutex
	steps map[string]Step
	entry string

	store      store.Store[ThreadState]
	hitl       *hitl.Registry
	dispatcher *artifact.Dispatcher[ThreadState]
	emitter    emit.Emitter
	tracer     *emit.Tracer
	metrics    *Metrics

	maxSteps      int
	fanOutWorkers int
	stepTimeout   time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// RunInput is the caller's payload. On a fresh run Content is the topic
// to study; on a resume it is the human feedback bound to the suspended
// step. ImagePaths optionally supplies or replaces note images.
type RunInput struct {
	Content    string
	ImagePaths []string
}

// RunResult is the outcome of one Run call: either a suspension
// (Suspended=true, Messages to show the human) or a completed run
// (final messages plus the final state before teardown).
type RunResult struct {
	ThreadID  string
	Suspended bool
	Messages  []string
	State     ThreadState
}

// New creates an Engine over the given checkpoint store, HITL registry,
// and artifact dispatcher. Registry and dispatcher may be nil when the
// surrounding application does not use them.
func New(st store.Store[ThreadState], registry *hitl.Registry, dispatcher *artifact.Dispatcher[ThreadState], opts ...Option) *Engine {
	e := &Engine{
		steps:         make(map[string]Step),
		store:         st,
		hitl:          registry,
		dispatcher:    dispatcher,
		emitter:       emit.NewNullEmitter(),
		fanOutWorkers: defaultFanOutWorkers,
		locks:         make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds a step to the workflow. Step names must be unique.
func (e *Engine) Register(step Step) error {
	if step == nil || step.Name() == "" {
		return &StepError{Message: "step must have a name", Code: "INVALID_STEP"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.steps[step.Name()]; exists {
		return &StepError{Message: "duplicate step: " + step.Name(), Code: "DUPLICATE_STEP"}
	}
	e.steps[step.Name()] = step
	return nil
}

// StartAt sets the entry step for fresh runs.
func (e *Engine) StartAt(stepID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.steps[stepID]; !exists {
		return &StepError{Message: "entry step does not exist: " + stepID, Code: "STEP_NOT_FOUND"}
	}
	e.entry = stepID
	return nil
}

// Run executes the thread until it suspends or completes.
//
// No checkpoint for threadID means a fresh run: state is initialized
// from input and execution enters at the entry step. An existing
// checkpoint means a resume: input becomes the Resume payload bound to
// the suspended step, which is re-entered.
func (e *Engine) Run(ctx context.Context, threadID string, input RunInput) (RunResult, error) {
	var zero RunResult
	if threadID == "" {
		return zero, &StepError{Message: "thread id cannot be empty", Code: "INVALID_THREAD"}
	}
	e.mu.RLock()
	entry := e.entry
	e.mu.RUnlock()
	if entry == "" {
		return zero, &StepError{Message: "entry step not set (call StartAt)", Code: "NO_ENTRY_STEP"}
	}

	lock := e.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()

	e.metrics.threadStarted()
	defer e.metrics.threadFinished()

	ctx, tr := e.tracer.StartTrace(ctx, threadID, nil)
	defer e.tracer.EndTrace(tr)

	state, cursor, resume, err := e.loadOrCreate(ctx, threadID, input, entry)
	if err != nil {
		return zero, err
	}

	stepNo := 0
	for {
		stepNo++
		if e.maxSteps > 0 && stepNo > e.maxSteps {
			return zero, ErrMaxStepsExceeded
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		e.mu.RLock()
		step, ok := e.steps[cursor]
		e.mu.RUnlock()
		if !ok {
			return zero, &StepError{Message: "unknown step: " + cursor, Code: "STEP_NOT_FOUND"}
		}

		tc := &ThreadContext{ThreadID: threadID, State: state.Clone(), Resume: resume}
		resume = nil

		spanCtx, span := e.tracer.StartSpan(ctx, cursor, map[string]interface{}{"thread_id": threadID})
		start := time.Now()
		result, err := runStepWithTimeout(spanCtx, step, tc, e.stepTimeout)
		e.tracer.EndSpan(span, "", "", nil)

		if err != nil {
			e.metrics.observeStep(cursor, time.Since(start), "error")
			e.emitter.Emit(emit.Event{
				ThreadID: threadID,
				Step:     stepNo,
				StepID:   cursor,
				Msg:      "step failed",
				Meta:     map[string]interface{}{"error": err.Error()},
			})
			// Checkpoint untouched: the thread resumes from its last
			// good snapshot.
			return zero, err
		}
		e.metrics.observeStep(cursor, time.Since(start), "success")
		e.emitter.Emit(emit.Event{ThreadID: threadID, Step: stepNo, StepID: cursor, Msg: "step completed"})

		state = result.State
		if e.dispatcher != nil {
			e.dispatcher.Dispatch(ctx, threadID, cursor, state)
		}

		if result.Suspend != nil {
			return e.suspend(ctx, threadID, cursor, state, result.Suspend)
		}

		route := result.Route
		switch {
		case len(route.FanOut) > 0:
			e.runFanOut(ctx, threadID, route.FanOut, &state)
			return e.finalize(ctx, threadID, state)
		case route.Terminal:
			return e.finalize(ctx, threadID, state)
		case route.To != "":
			cursor = route.To
			if err := e.save(ctx, threadID, state, nil, cursor); err != nil {
				return zero, err
			}
		default:
			return zero, &StepError{Message: "no route out of step", Code: "NO_ROUTE", StepID: step.Name()}
		}
	}
}

// DeleteThread tears a thread down: checkpoint, HITL config, and
// artifact bookkeeping are removed as one logical operation.
// Idempotent.
func (e *Engine) DeleteThread(ctx context.Context, threadID string) error {
	lock := e.lockFor(threadID)
	lock.Lock()
	defer lock.Unlock()
	return e.teardown(ctx, threadID)
}

func (e *Engine) loadOrCreate(ctx context.Context, threadID string, input RunInput, entry string) (ThreadState, string, *Resume, error) {
	cp, err := e.store.Load(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		state := ThreadState{InputContent: input.Content, ImagePaths: input.ImagePaths}
		e.emitter.Emit(emit.Event{ThreadID: threadID, StepID: entry, Msg: "run started"})
		return state, entry, nil, nil
	}
	if err != nil {
		return ThreadState{}, "", nil, fmt.Errorf("flow: load checkpoint: %w", err)
	}

	resume := &Resume{Feedback: input.Content, ImagePaths: input.ImagePaths}
	e.emitter.Emit(emit.Event{ThreadID: threadID, StepID: cp.Cursor, Msg: "run resumed"})
	return cp.State, cp.Cursor, resume, nil
}

func (e *Engine) suspend(ctx context.Context, threadID, cursor string, state ThreadState, s *Suspension) (RunResult, error) {
	state.NeedsUserInput = true
	if err := e.save(ctx, threadID, state, s.Messages, cursor); err != nil {
		return RunResult{}, err
	}

	messages := e.drainArtifacts(threadID)
	messages = append(messages, s.Messages...)

	e.metrics.suspended(cursor)
	e.emitter.Emit(emit.Event{ThreadID: threadID, StepID: cursor, Msg: "suspended awaiting input"})

	return RunResult{ThreadID: threadID, Suspended: true, Messages: messages, State: state}, nil
}

// runFanOut executes child tasks concurrently with bounded workers.
// Each child's Answers are appended into the shared accumulator under
// the merge lock; arrival order is unconstrained.
func (e *Engine) runFanOut(ctx context.Context, threadID string, tasks []Task, state *ThreadState) {
	e.metrics.observeFanOut(len(tasks))

	base := state.Clone()
	sem := make(chan struct{}, e.fanOutWorkers)
	var wg sync.WaitGroup
	var mergeMu sync.Mutex

	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			e.mu.RLock()
			step, ok := e.steps[task.Step]
			e.mu.RUnlock()
			if !ok {
				e.emitter.Emit(emit.Event{
					ThreadID: threadID,
					StepID:   task.Step,
					Msg:      "fan-out child step missing",
				})
				return
			}

			tc := &ThreadContext{ThreadID: threadID, State: base.Clone(), Payload: task.Payload}
			result, err := runStepWithTimeout(ctx, step, tc, e.stepTimeout)
			if err != nil {
				e.emitter.Emit(emit.Event{
					ThreadID: threadID,
					StepID:   task.Step,
					Msg:      "fan-out child failed",
					Meta:     map[string]interface{}{"error": err.Error()},
				})
				return
			}

			mergeMu.Lock()
			state.QuestionsAndAnswers = append(state.QuestionsAndAnswers, result.Answers...)
			mergeMu.Unlock()
		}(task)
	}
	wg.Wait()

	if e.dispatcher != nil && len(tasks) > 0 {
		e.dispatcher.Dispatch(ctx, threadID, tasks[0].Step, *state)
	}
}

// finalize builds the completion messages, then removes the thread's
// durable state. A completed run is ephemeral.
func (e *Engine) finalize(ctx context.Context, threadID string, state ThreadState) (RunResult, error) {
	messages := e.drainArtifacts(threadID)
	messages = append(messages, completionMessage)
	if e.dispatcher != nil {
		if url := e.dispatcher.SessionURL(threadID); url != "" {
			messages = append(messages, fmt.Sprintf("📁 All materials available [here](%s)", url))
		}
	}

	if err := e.teardown(ctx, threadID); err != nil {
		return RunResult{}, err
	}

	e.emitter.Emit(emit.Event{ThreadID: threadID, Msg: "workflow completed"})
	return RunResult{ThreadID: threadID, Suspended: false, Messages: messages, State: state}, nil
}

func (e *Engine) teardown(ctx context.Context, threadID string) error {
	if err := e.store.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("flow: delete checkpoint: %w", err)
	}
	if e.hitl != nil {
		e.hitl.Drop(threadID)
	}
	if e.dispatcher != nil {
		e.dispatcher.Drop(threadID)
	}
	return nil
}

func (e *Engine) drainArtifacts(threadID string) []string {
	if e.dispatcher == nil {
		return nil
	}
	links := e.dispatcher.DrainPending(threadID)
	if len(links) == 0 {
		return nil
	}
	return []string{artifact.FormatPending(links)}
}

func (e *Engine) save(ctx context.Context, threadID string, state ThreadState, pending []string, cursor string) error {
	err := e.store.Save(ctx, store.Checkpoint[ThreadState]{
		ThreadID: threadID,
		State:    state,
		Pending:  pending,
		Cursor:   cursor,
	})
	if err != nil {
		return fmt.Errorf("flow: save checkpoint: %w", err)
	}
	return nil
}

func (e *Engine) lockFor(threadID string) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	lock, ok := e.locks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[threadID] = lock
	}
	return lock
}
