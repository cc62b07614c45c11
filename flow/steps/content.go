package steps

import (
	"context"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/model"
)

// ContentStep generates the study material for the topic.
type ContentStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *ContentStep) Name() string { return flow.StepGeneratingContent }

// Run implements flow.Step.
func (s *ContentStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	state := tc.State

	sys, err := s.deps.renderPrompt(ctx, tc.ThreadID, flow.StepGeneratingContent, map[string]any{
		"input_content": state.InputContent,
	})
	if err != nil {
		return flow.StepResult{}, err
	}

	out, err := s.deps.chat(ctx, []model.Message{model.System(sys)})
	if err != nil {
		return flow.StepResult{}, err
	}
	state.GeneratedMaterial = out.Text

	return flow.StepResult{State: state, Route: flow.Goto(flow.StepRecognition)}, nil
}
