package steps

import (
	"context"
	"strings"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/model"
)

// SynthesisStep merges the generated material with the recognized notes
// into the final study document. Without notes the generated material
// passes through unchanged.
type SynthesisStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *SynthesisStep) Name() string { return flow.StepSynthesis }

// Run implements flow.Step.
func (s *SynthesisStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	state := tc.State

	// Already set when recognition was skipped.
	if state.SynthesizedMaterial != "" {
		return flow.StepResult{State: state, Route: flow.Goto(flow.StepEditMaterial)}, nil
	}

	if state.GeneratedMaterial == "" {
		return flow.StepResult{}, &flow.StepError{
			StepID:  flow.StepSynthesis,
			Code:    "MISSING_MATERIAL",
			Message: "missing generated material for synthesis",
		}
	}

	if strings.TrimSpace(state.RecognizedNotes) == "" {
		state.SynthesizedMaterial = state.GeneratedMaterial
		return flow.StepResult{State: state, Route: flow.Goto(flow.StepEditMaterial)}, nil
	}

	sys, err := s.deps.renderPrompt(ctx, tc.ThreadID, flow.StepSynthesis, map[string]any{
		"input_content":      state.InputContent,
		"generated_material": state.GeneratedMaterial,
		"recognized_notes":   state.RecognizedNotes,
	})
	if err != nil {
		return flow.StepResult{}, err
	}

	out, err := s.deps.chat(ctx, []model.Message{model.System(sys)})
	if err != nil {
		return flow.StepResult{}, err
	}
	state.SynthesizedMaterial = out.Text

	return flow.StepResult{State: state, Route: flow.Goto(flow.StepEditMaterial)}, nil
}
