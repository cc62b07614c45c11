package steps

import (
	"context"
	"fmt"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/model"
)

// AnswerStep answers one assessment question. It runs as a fan-out
// child with the question in the task payload. A failed generation
// still completes the task: the error text takes the answer's place so
// the merged document accounts for every question.
type AnswerStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *AnswerStep) Name() string { return flow.StepAnswerQuestion }

// Run implements flow.Step.
func (s *AnswerStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	question := tc.Payload

	answer, err := s.answer(ctx, tc.ThreadID, question, studyMaterial(tc.State))
	if err != nil {
		return flow.StepResult{
			State:   tc.State,
			Answers: []string{fmt.Sprintf("## %s\n\n**Answer generation error:** %v", question, err)},
			Route:   flow.Stop(),
		}, nil
	}

	return flow.StepResult{
		State:   tc.State,
		Answers: []string{fmt.Sprintf("## %s\n\n%s", question, answer)},
		Route:   flow.Stop(),
	}, nil
}

func (s *AnswerStep) answer(ctx context.Context, threadID, question, material string) (string, error) {
	sys, err := s.deps.renderPrompt(ctx, threadID, flow.StepAnswerQuestion, map[string]any{
		"question":             question,
		"input_content":        question,
		"study_material":       material,
		"synthesized_material": material,
	})
	if err != nil {
		return "", err
	}

	out, err := s.deps.chat(ctx, []model.Message{model.System(sys)})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}
