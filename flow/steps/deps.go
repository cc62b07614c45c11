// Package steps implements the educational-content pipeline: input
// processing, material generation, handwritten-note recognition,
// synthesis, interactive editing, question generation, and answer
// fan-out. Steps are registered on a flow.Engine and follow a fixed
// order with HITL gates on the editing and question stages.
package steps

import (
	"context"
	"fmt"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/emit"
	"github.com/studyflow/studyflow/flow/guard"
	"github.com/studyflow/studyflow/flow/hitl"
	"github.com/studyflow/studyflow/flow/model"
	"github.com/studyflow/studyflow/flow/prompt"
)

// Deps carries the external collaborators shared by all pipeline steps.
type Deps struct {
	Chat    model.ChatModel
	Vision  model.Vision
	Prompts prompt.Renderer

	// Guard sanitizes user-supplied text. Nil disables sanitization.
	Guard *guard.Guard

	HITL    *hitl.Registry
	Emitter emit.Emitter

	// Retry governs model and prompt-service calls. Zero value means
	// the default policy.
	Retry flow.RetryPolicy

	Metrics *flow.Metrics
}

func (d *Deps) retryPolicy() flow.RetryPolicy {
	if d.Retry.MaxAttempts == 0 {
		return flow.DefaultRetryPolicy()
	}
	return d.Retry
}

func (d *Deps) emitter() emit.Emitter {
	if d.Emitter == nil {
		return emit.NewNullEmitter()
	}
	return d.Emitter
}

// renderPrompt fetches the step prompt. The prompt service is a hard
// dependency: exhausting retries fails the step.
func (d *Deps) renderPrompt(ctx context.Context, threadID, stepName string, vars map[string]any) (string, error) {
	return flow.Retry(ctx, d.retryPolicy(), "prompt service", func(ctx context.Context) (string, error) {
		return d.Prompts.Render(ctx, threadID, stepName, vars)
	})
}

// chat invokes the model under the retry policy.
func (d *Deps) chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	return flow.Retry(ctx, d.retryPolicy(), "model", func(ctx context.Context) (model.ChatOut, error) {
		return d.Chat.Chat(ctx, messages)
	})
}

// decide invokes the model and parses its reply into the structured
// decision v. A reply that fails to parse returns
// flow.ErrUnrecognizedAction wrapped with the raw reply preserved in
// the error chain.
func (d *Deps) decide(ctx context.Context, messages []model.Message, v any) error {
	out, err := d.chat(ctx, messages)
	if err != nil {
		return err
	}
	if err := model.DecodeJSON(out.Text, v); err != nil {
		return fmt.Errorf("%w: %v", flow.ErrUnrecognizedAction, err)
	}
	return nil
}

// sanitize screens user text through the security guard. Degrades to
// pass-through when no guard is configured.
func (d *Deps) sanitize(ctx context.Context, threadID, text string) string {
	if d.Guard == nil {
		return text
	}
	return d.Guard.ValidateAndClean(ctx, threadID, text)
}

// historyMessages converts the feedback history into model messages
// following a system prompt.
func historyMessages(systemPrompt string, history []flow.StateMessage, extra ...model.Message) []model.Message {
	msgs := make([]model.Message, 0, len(history)+len(extra)+1)
	msgs = append(msgs, model.System(systemPrompt))
	for _, m := range history {
		msgs = append(msgs, model.Message{Role: model.Role(m.Role), Content: m.Content})
	}
	return append(msgs, extra...)
}

// Register wires the full pipeline onto the engine and sets the entry
// step.
func Register(e *flow.Engine, deps *Deps) error {
	all := []flow.Step{
		&InputStep{deps: deps},
		&ContentStep{deps: deps},
		&RecognitionStep{deps: deps},
		&SynthesisStep{deps: deps},
		&EditStep{deps: deps},
		&QuestionsStep{deps: deps},
		&AnswerStep{deps: deps},
	}
	for _, step := range all {
		if err := e.Register(step); err != nil {
			return err
		}
	}
	return e.StartAt(flow.StepInputProcessing)
}
