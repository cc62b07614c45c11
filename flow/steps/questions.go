package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/model"
)

const (
	evaluateQuestionsPrompt = "Evaluate the proposed questions. You can request changes or confirm that the questions are ready to be used."
	autonomousQuestionsMsg  = "Questions generated automatically (autonomous mode)"

	questionsInstruction = `Reply with a JSON object: {"questions": ["<question>", ...]}.`

	questionsReviseInstruction = `Apply the student's feedback to the question list. Reply with a JSON object: {"questions": ["<question>", ...], "next_step": "clarify"} when the student asked for changes, or {"questions": ["<question>", ...], "next_step": "finalize"} when the student confirmed the questions are ready.`
)

type questionsDecision struct {
	Questions []string `json:"questions"`
}

type questionsRevision struct {
	Questions []string `json:"questions"`
	NextStep  string   `json:"next_step"`
}

// QuestionsStep generates the assessment questions with a review loop:
// propose a list, show it to the student, revise on feedback, and fan
// out one answer task per question once the list is confirmed. With
// HITL disabled the first proposal is final.
type QuestionsStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *QuestionsStep) Name() string { return flow.StepGeneratingQuestions }

// Run implements flow.Step.
func (s *QuestionsStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	state := tc.State

	if !s.deps.HITL.IsEnabled(flow.StepGeneratingQuestions, tc.ThreadID) {
		return s.autonomous(ctx, tc.ThreadID, state)
	}

	if tc.Resume != nil {
		return s.revise(ctx, tc.ThreadID, state, tc.Resume.Feedback)
	}

	// First pass: propose a list and loop back so the student sees it.
	if len(state.FeedbackMessages) == 0 {
		qs, err := s.generate(ctx, tc.ThreadID, state)
		if err != nil {
			return flow.StepResult{}, err
		}
		state.Questions = qs
		state.AppendFeedback("assistant", numberedList(qs))
		return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingQuestions)}, nil
	}

	// A proposal is pending: show the latest list and wait. The usage
	// hint accompanies the first proposal only.
	msgs := []string{state.FeedbackMessages[len(state.FeedbackMessages)-1].Content}
	if len(state.FeedbackMessages) == 1 {
		msgs = append(msgs, evaluateQuestionsPrompt)
	}
	return flow.StepResult{State: state, Suspend: flow.NewSuspension(msgs...)}, nil
}

func (s *QuestionsStep) autonomous(ctx context.Context, threadID string, state flow.ThreadState) (flow.StepResult, error) {
	qs, err := s.generate(ctx, threadID, state)
	if err != nil {
		return flow.StepResult{}, err
	}
	state.Questions = qs
	state.ClearFeedback()
	state.AgentMessage = autonomousQuestionsMsg
	return flow.StepResult{State: state, Route: fanOutAnswers(qs)}, nil
}

func (s *QuestionsStep) revise(ctx context.Context, threadID string, state flow.ThreadState, feedback string) (flow.StepResult, error) {
	feedback = s.deps.sanitize(ctx, threadID, feedback)

	sys, err := s.deps.renderPrompt(ctx, threadID, flow.StepGeneratingQuestions, map[string]any{
		"template_variant":  "further",
		"input_content":     state.InputContent,
		"study_material":    studyMaterial(state),
		"current_questions": strings.Join(state.Questions, "\n"),
	})
	if err != nil {
		return flow.StepResult{}, err
	}

	var rev questionsRevision
	err = s.deps.decide(ctx, historyMessages(sys, state.FeedbackMessages,
		model.User(feedback), model.System(questionsReviseInstruction)), &rev)
	if err != nil {
		if errors.Is(err, flow.ErrUnrecognizedAction) {
			state.AgentMessage = editDecisionErrMsg
			return flow.StepResult{State: state, Suspend: flow.NewSuspension(editDecisionErrMsg)}, nil
		}
		return flow.StepResult{}, err
	}

	if rev.NextStep == "finalize" {
		state.Questions = rev.Questions
		state.ClearFeedback()
		return flow.StepResult{State: state, Route: fanOutAnswers(rev.Questions)}, nil
	}

	state.Questions = rev.Questions
	state.AppendFeedback("user", feedback)
	state.AppendFeedback("assistant", numberedList(rev.Questions))
	return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingQuestions)}, nil
}

func (s *QuestionsStep) generate(ctx context.Context, threadID string, state flow.ThreadState) ([]string, error) {
	sys, err := s.deps.renderPrompt(ctx, threadID, flow.StepGeneratingQuestions, map[string]any{
		"template_variant":     "initial",
		"input_content":        state.InputContent,
		"study_material":       studyMaterial(state),
		"synthesized_material": studyMaterial(state),
	})
	if err != nil {
		return nil, err
	}

	var dec questionsDecision
	err = s.deps.decide(ctx, []model.Message{model.System(sys), model.System(questionsInstruction)}, &dec)
	if err != nil {
		return nil, err
	}
	if len(dec.Questions) == 0 {
		return nil, fmt.Errorf("%w: model returned no questions", flow.ErrUnrecognizedAction)
	}
	return dec.Questions, nil
}

// studyMaterial prefers the synthesized document, falling back to the
// raw generated material when synthesis was skipped.
func studyMaterial(state flow.ThreadState) string {
	if state.SynthesizedMaterial != "" {
		return state.SynthesizedMaterial
	}
	return state.GeneratedMaterial
}

func fanOutAnswers(questions []string) flow.Next {
	tasks := make([]flow.Task, len(questions))
	for i, q := range questions {
		tasks[i] = flow.Task{Step: flow.StepAnswerQuestion, Payload: q}
	}
	return flow.Fan(tasks...)
}

func numberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, item)
	}
	return b.String()
}
