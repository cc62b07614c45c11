package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/edit"
	"github.com/studyflow/studyflow/flow/emit"
	"github.com/studyflow/studyflow/flow/model"
)

// maxEditRounds bounds autonomous decision rounds within one resume, so
// a model that keeps asking for more edits cannot spin unattended.
const maxEditRounds = 10

const (
	editPromptDefault  = "Which changes to make to the material? "
	editAppliedMsg     = "Edit applied. What other changes are needed?"
	editNotFoundMsg    = "Could not find the specified text fragment. Please specify which section to remove or change."
	editDecisionErrMsg = "An error occurred. Please try again."

	actionInstruction = `Decide how to respond to the student's latest request. Reply with a JSON object: {"action_type": "edit"} to change the document, {"action_type": "message"} to answer with text only, or {"action_type": "complete"} when the student confirms the document is done.`

	editInstruction = `Extract the edit to apply. Reply with a JSON object: {"old_text": "<exact fragment of the document to replace>", "new_text": "<replacement text>", "continue_editing": <true when further edits from the same request remain, else false>}.`

	messageInstruction = `Write the reply to send to the student. Reply with a JSON object: {"content": "<your reply>"}.`
)

type actionDecision struct {
	ActionType string `json:"action_type"`
}

type editDetails struct {
	OldText         string `json:"old_text"`
	NewText         string `json:"new_text"`
	ContinueEditing bool   `json:"continue_editing"`
}

type editMessageDetails struct {
	Content string `json:"content"`
}

// EditStep runs the interactive document-editing session. Each resume
// carries one student request; the model decides whether to apply an
// edit, answer with a message, or mark the document complete. Edits are
// located in the document with fuzzy matching, so the model's quote of
// the fragment does not have to be byte-exact.
type EditStep struct {
	deps *Deps
}

// Name implements flow.Step.
func (s *EditStep) Name() string { return flow.StepEditMaterial }

// Run implements flow.Step.
func (s *EditStep) Run(ctx context.Context, tc *flow.ThreadContext) (flow.StepResult, error) {
	state := tc.State

	if state.SynthesizedMaterial == "" {
		state.AgentMessage = "No material to edit"
		return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingQuestions)}, nil
	}

	if !s.deps.HITL.IsEnabled(flow.StepEditMaterial, tc.ThreadID) {
		state.AgentMessage = "Material accepted without editing (autonomous mode)"
		state.LastAction = flow.ActionSkipHITL
		return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingQuestions)}, nil
	}

	if tc.Resume == nil {
		msg := state.AgentMessage
		if msg == "" {
			msg = editPromptDefault
		}
		return flow.StepResult{State: state, Suspend: flow.NewSuspension(msg)}, nil
	}

	feedback := s.deps.sanitize(ctx, tc.ThreadID, tc.Resume.Feedback)
	state.AppendFeedback("user", feedback)
	state.AgentMessage = ""

	return s.editLoop(ctx, tc.ThreadID, state)
}

// editLoop runs decision rounds until the session suspends again,
// completes, or the round cap trips.
func (s *EditStep) editLoop(ctx context.Context, threadID string, state flow.ThreadState) (flow.StepResult, error) {
	sys, err := s.deps.renderPrompt(ctx, threadID, flow.StepEditMaterial, map[string]any{
		"template_variant":     "initial",
		"synthesized_material": state.SynthesizedMaterial,
	})
	if err != nil {
		return flow.StepResult{}, err
	}

	for round := 0; round < maxEditRounds; round++ {
		var decision actionDecision
		err := s.deps.decide(ctx, historyMessages(sys, state.FeedbackMessages, model.System(actionInstruction)), &decision)
		if err != nil {
			if errors.Is(err, flow.ErrUnrecognizedAction) {
				return suspendEdit(state, editDecisionErrMsg), nil
			}
			return flow.StepResult{}, err
		}
		state.AppendFeedback("assistant", fmt.Sprintf(`{"action_type":%q}`, decision.ActionType))

		switch decision.ActionType {
		case flow.ActionEdit:
			res, done, err := s.applyEdit(ctx, threadID, sys, &state)
			if err != nil {
				return flow.StepResult{}, err
			}
			if done {
				return res, nil
			}
			// continue_editing: another decision round on the updated
			// document.
			sys, err = s.deps.renderPrompt(ctx, threadID, flow.StepEditMaterial, map[string]any{
				"template_variant":     "further",
				"synthesized_material": state.SynthesizedMaterial,
			})
			if err != nil {
				return flow.StepResult{}, err
			}

		case flow.ActionMessage:
			var details editMessageDetails
			err := s.deps.decide(ctx, historyMessages(sys, state.FeedbackMessages, model.System(messageInstruction)), &details)
			if err != nil {
				if errors.Is(err, flow.ErrUnrecognizedAction) {
					return suspendEdit(state, editDecisionErrMsg), nil
				}
				return flow.StepResult{}, err
			}
			state.AppendFeedback("assistant", details.Content)
			state.LastAction = flow.ActionMessage
			return suspendEdit(state, details.Content), nil

		case flow.ActionComplete:
			state.ClearFeedback()
			state.AgentMessage = ""
			state.LastAction = flow.ActionComplete
			state.NeedsUserInput = true
			return flow.StepResult{State: state, Route: flow.Goto(flow.StepGeneratingQuestions)}, nil

		default:
			return suspendEdit(state, editDecisionErrMsg), nil
		}
	}

	return suspendEdit(state, editAppliedMsg), nil
}

// applyEdit extracts the edit details and patches the document. done is
// false only when the edit landed and the model wants another round.
func (s *EditStep) applyEdit(ctx context.Context, threadID, sys string, state *flow.ThreadState) (flow.StepResult, bool, error) {
	var details editDetails
	err := s.deps.decide(ctx, historyMessages(sys, state.FeedbackMessages, model.System(editInstruction)), &details)
	if err != nil {
		if errors.Is(err, flow.ErrUnrecognizedAction) {
			return suspendEdit(*state, editDecisionErrMsg), true, nil
		}
		return flow.StepResult{}, true, err
	}

	newDoc, ok, _, similarity := edit.FindReplace(state.SynthesizedMaterial, details.OldText, details.NewText)
	if !ok {
		s.deps.Metrics.RecordEdit("not_found")
		s.deps.emitter().Emit(emit.Event{
			ThreadID: threadID,
			StepID:   flow.StepEditMaterial,
			Msg:      "edit target not found",
			Meta:     map[string]interface{}{"error": flow.ErrEditTargetNotFound.Error()},
		})
		state.AppendFeedback("system", "[EDIT ERROR]: "+editNotFoundMsg)
		state.LastAction = flow.ActionEditError
		return suspendEdit(*state, editNotFoundMsg), true, nil
	}

	state.SynthesizedMaterial = newDoc
	state.EditCount++
	state.LastAction = flow.ActionEdit
	state.AppendFeedback("system", fmt.Sprintf("[EDIT SUCCESS #%d]: Replaced text (similarity: %.2f)", state.EditCount, similarity))
	s.deps.Metrics.RecordEdit("applied")

	if details.ContinueEditing {
		return flow.StepResult{}, false, nil
	}
	return suspendEdit(*state, editAppliedMsg), true, nil
}

func suspendEdit(state flow.ThreadState, msg string) flow.StepResult {
	state.AgentMessage = msg
	return flow.StepResult{State: state, Suspend: flow.NewSuspension(msg)}
}
