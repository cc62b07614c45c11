package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/studyflow/studyflow/flow/model"
)

func TestNewChatModel(t *testing.T) {
	m := NewChatModel("sk-test", "")
	if m.modelName != "gpt-4o-mini" {
		t.Errorf("default model = %q", m.modelName)
	}
	if m.maxRetries != 3 {
		t.Errorf("maxRetries = %d, want 3", m.maxRetries)
	}
}

func TestConvertMessages(t *testing.T) {
	msgs := convertMessages([]model.Message{
		model.System("sys"),
		model.User("hello"),
		model.Assistant("reply"),
	})
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if msgs[0].OfSystem == nil || msgs[1].OfUser == nil || msgs[2].OfAssistant == nil {
		t.Error("roles mapped to wrong union variants")
	}
	if msgs[1].OfUser.Content.OfString.Value != "hello" {
		t.Errorf("user content = %v", msgs[1].OfUser.Content.OfString)
	}
}

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("429 Too Many Requests"), true},
		{errors.New("503 Service Unavailable"), true},
		{errors.New("invalid api key"), false},
		{context.Canceled, false},
		{errors.New("request timeout"), true},
	}
	for _, tc := range cases {
		if got := isTransientError(tc.err); got != tc.want {
			t.Errorf("isTransientError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
