package steps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/artifact"
	"github.com/studyflow/studyflow/flow/emit"
	"github.com/studyflow/studyflow/flow/hitl"
	"github.com/studyflow/studyflow/flow/model"
	"github.com/studyflow/studyflow/flow/store"
)

func newPipeline(t *testing.T, mock *model.MockChatModel) (*flow.Engine, *Deps, store.Store[flow.ThreadState]) {
	t.Helper()
	deps := newDeps(t, mock)
	st := store.NewMemStore[flow.ThreadState]()
	dispatcher := artifact.NewDispatcher(
		artifact.NewMemStore("http://files.local"),
		flow.DefaultArtifactRules(),
		emit.NewNullEmitter(),
	)
	e := flow.New(st, deps.HITL, dispatcher)
	if err := Register(e, deps); err != nil {
		t.Fatalf("register pipeline: %v", err)
	}
	return e, deps, st
}

func TestPipelineAutonomous(t *testing.T) {
	ctx := context.Background()
	mock := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: "Cell Energy Basics"},
		{Text: "# Cells\n\nMitochondria produce ATP."},
		{Text: `{"questions": ["What produces ATP?", "Where does respiration happen?"]}`},
		{Text: "In the mitochondria."},
	}}
	e, deps, st := newPipeline(t, mock)
	deps.HITL.BulkSet("auto-1", false)

	r1, err := e.Run(ctx, "auto-1", flow.RunInput{Content: "Explain cellular respiration"})
	if err != nil {
		t.Fatal(err)
	}
	if !r1.Suspended {
		t.Fatal("expected suspension at the notes request")
	}
	if got := r1.Messages[len(r1.Messages)-1]; got != notesRequest {
		t.Errorf("last message = %q", got)
	}
	if r1.State.DisplayName != "Cell Energy Basics" {
		t.Errorf("display name = %q", r1.State.DisplayName)
	}

	r2, err := e.Run(ctx, "auto-1", flow.RunInput{Content: "skip"})
	if err != nil {
		t.Fatal(err)
	}
	if r2.Suspended {
		t.Fatalf("expected completion, got suspension: %v", r2.Messages)
	}
	if len(r2.State.QuestionsAndAnswers) != 2 {
		t.Errorf("answers = %v", r2.State.QuestionsAndAnswers)
	}
	for _, qa := range r2.State.QuestionsAndAnswers {
		if !strings.HasPrefix(qa, "## ") || !strings.Contains(qa, "In the mitochondria.") {
			t.Errorf("answer = %q", qa)
		}
	}
	if !containsMessage(r2.Messages, "Done 🎉 – send the next topic for study!") {
		t.Errorf("completion message missing: %v", r2.Messages)
	}

	if _, err := st.Load(ctx, "auto-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("checkpoint survived completion: %v", err)
	}
}

func TestPipelineInteractive(t *testing.T) {
	ctx := context.Background()
	notes := strings.Repeat("Krebs cycle notes from the lecture whiteboard. ", 2)
	mock := &model.MockChatModel{Responses: []model.ChatOut{
		{Text: "Cell Energy Basics"},
		{Text: "# Cells\n\nDraft material."},
		{Text: "Cells and energy. The quick brown fox jumps."},
		{Text: `{"action_type": "edit"}`},
		{Text: `{"old_text": "quick brown fox", "new_text": "quick brown wolf", "continue_editing": false}`},
		{Text: `{"action_type": "complete"}`},
		{Text: `{"questions": ["What drives the Krebs cycle?"]}`},
		{Text: `{"questions": ["What drives the Krebs cycle?"], "next_step": "finalize"}`},
		{Text: "Acetyl-CoA oxidation."},
	}}
	e, _, _ := newPipeline(t, mock)

	r, err := e.Run(ctx, "hitl-1", flow.RunInput{Content: "Explain the Krebs cycle"})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Suspended || r.Messages[len(r.Messages)-1] != notesRequest {
		t.Fatalf("run 1 = %+v", r)
	}

	// Typed notes long enough to count trigger synthesis, then the edit
	// session opens.
	r, err = e.Run(ctx, "hitl-1", flow.RunInput{Content: notes})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Suspended || r.Messages[len(r.Messages)-1] != editPromptDefault {
		t.Fatalf("run 2 = %+v", r.Messages)
	}
	if r.State.SynthesizedMaterial != "Cells and energy. The quick brown fox jumps." {
		t.Errorf("synthesized = %q", r.State.SynthesizedMaterial)
	}

	r, err = e.Run(ctx, "hitl-1", flow.RunInput{Content: "change fox to wolf"})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Suspended || r.Messages[len(r.Messages)-1] != editAppliedMsg {
		t.Fatalf("run 3 = %+v", r.Messages)
	}
	if r.State.EditCount != 1 || !strings.Contains(r.State.SynthesizedMaterial, "quick brown wolf") {
		t.Errorf("edit not applied: %+v", r.State)
	}

	r, err = e.Run(ctx, "hitl-1", flow.RunInput{Content: "looks good, finish editing"})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Suspended {
		t.Fatalf("run 4 = %+v", r)
	}
	if len(r.Messages) < 2 || r.Messages[len(r.Messages)-1] != evaluateQuestionsPrompt {
		t.Fatalf("question review messages = %v", r.Messages)
	}
	if !strings.Contains(r.Messages[len(r.Messages)-2], "1. What drives the Krebs cycle?") {
		t.Errorf("proposal missing: %v", r.Messages)
	}

	r, err = e.Run(ctx, "hitl-1", flow.RunInput{Content: "questions are ready"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Suspended {
		t.Fatalf("run 5 still suspended: %v", r.Messages)
	}
	want := "## What drives the Krebs cycle?\n\nAcetyl-CoA oxidation."
	if len(r.State.QuestionsAndAnswers) != 1 || r.State.QuestionsAndAnswers[0] != want {
		t.Errorf("answers = %v", r.State.QuestionsAndAnswers)
	}
	if !containsMessage(r.Messages, "Done 🎉 – send the next topic for study!") {
		t.Errorf("completion message missing: %v", r.Messages)
	}
	found := false
	for _, msg := range r.Messages {
		if strings.Contains(msg, "📁 All materials available") {
			found = true
		}
	}
	if !found {
		t.Errorf("session link missing: %v", r.Messages)
	}
}

func TestRegisterRejectsDoubleRegistration(t *testing.T) {
	mock := &model.MockChatModel{}
	deps := newDeps(t, mock)
	e := flow.New(store.NewMemStore[flow.ThreadState](), hitl.NewRegistry(), nil)
	if err := Register(e, deps); err != nil {
		t.Fatal(err)
	}
	if err := Register(e, deps); err == nil {
		t.Error("second registration succeeded")
	}
}

func containsMessage(messages []string, want string) bool {
	for _, m := range messages {
		if m == want {
			return true
		}
	}
	return false
}
