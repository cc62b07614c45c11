package steps

import (
	"testing"
	"time"

	"github.com/studyflow/studyflow/flow"
	"github.com/studyflow/studyflow/flow/hitl"
	"github.com/studyflow/studyflow/flow/model"
	"github.com/studyflow/studyflow/flow/prompt"
)

// newDeps builds a Deps over the mock model with built-in prompts, an
// all-enabled HITL registry, and a single-attempt retry policy so
// error-path tests stay fast.
func newDeps(t *testing.T, mock *model.MockChatModel) *Deps {
	t.Helper()
	renderer, err := prompt.NewStaticRenderer(prompt.DefaultTemplates())
	if err != nil {
		t.Fatalf("static renderer: %v", err)
	}
	return &Deps{
		Chat:    mock,
		Vision:  mock,
		Prompts: renderer,
		HITL:    hitl.NewRegistry(),
		Retry:   flow.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}
}

func lastMessage(t *testing.T, state flow.ThreadState) flow.StateMessage {
	t.Helper()
	if len(state.FeedbackMessages) == 0 {
		t.Fatal("feedback history is empty")
	}
	return state.FeedbackMessages[len(state.FeedbackMessages)-1]
}
