package model

import (
	"context"
	"sync"
)

// MockChatModel is a test implementation of ChatModel.
//
// It returns a configured sequence of responses, tracks call history, and
// supports error injection. If all responses are consumed, the last one
// repeats. Safe for concurrent use.
//
// Example:
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{{Text: "first"}, {Text: "second"}},
//	}
//	out, _ := mock.Chat(ctx, messages) // "first", then "second", then "second"...
type MockChatModel struct {
	// Responses is the sequence of replies to return, in order.
	Responses []ChatOut

	// Err, if set, is returned by every call instead of a response.
	Err error

	// Calls records the messages of every invocation.
	Calls [][]Message

	mu        sync.Mutex
	callIndex int
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	recorded := make([]Message, len(messages))
	copy(recorded, messages)
	m.Calls = append(m.Calls, recorded)

	if m.Err != nil {
		return ChatOut{}, m.Err
	}
	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	m.callIndex++
	return m.Responses[idx], nil
}

// RecognizeImages implements Vision using the same response sequence.
func (m *MockChatModel) RecognizeImages(ctx context.Context, prompt string, images [][]byte) (ChatOut, error) {
	return m.Chat(ctx, []Message{User(prompt)})
}

// CallCount returns how many times the model was invoked.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Reset clears call history and rewinds the response sequence.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}
