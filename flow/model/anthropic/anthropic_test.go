package anthropic

import (
	"testing"

	"github.com/studyflow/studyflow/flow/model"
)

func TestExtractSystemPrompt(t *testing.T) {
	t.Run("separates system from conversation", func(t *testing.T) {
		sys, conv := extractSystemPrompt([]model.Message{
			model.System("you are helpful"),
			model.User("hello"),
			model.Assistant("hi"),
		})
		if sys != "you are helpful" {
			t.Errorf("system = %q", sys)
		}
		if len(conv) != 2 {
			t.Errorf("conversation length = %d, want 2", len(conv))
		}
	})

	t.Run("concatenates multiple system messages", func(t *testing.T) {
		sys, conv := extractSystemPrompt([]model.Message{
			model.System("first"),
			model.System("second"),
			model.User("q"),
		})
		if sys != "first\n\nsecond" {
			t.Errorf("system = %q", sys)
		}
		if len(conv) != 1 {
			t.Errorf("conversation length = %d, want 1", len(conv))
		}
	})

	t.Run("no system messages", func(t *testing.T) {
		sys, conv := extractSystemPrompt([]model.Message{model.User("q")})
		if sys != "" || len(conv) != 1 {
			t.Errorf("sys=%q conv=%d", sys, len(conv))
		}
	})
}

func TestNewChatModel(t *testing.T) {
	m := NewChatModel("key", "")
	if m.modelName != "claude-3-5-sonnet-20241022" {
		t.Errorf("default model = %q", m.modelName)
	}
}

func TestConvertMessages(t *testing.T) {
	msgs := convertMessages([]model.Message{
		model.User("question"),
		model.Assistant("answer"),
	})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("roles = %v, %v", msgs[0].Role, msgs[1].Role)
	}
}
