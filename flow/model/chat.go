// Package model provides LLM integration adapters for the workflow steps.
package model

import "context"

// ChatModel defines the interface for LLM chat providers.
//
// This interface abstracts the differences between providers (OpenAI,
// Anthropic, Google) behind a single chat call. Implementations should:
//   - Handle provider-specific authentication.
//   - Convert the standard Message format to the provider's format.
//   - Parse provider responses back to ChatOut, including token usage.
//   - Respect context cancellation and timeouts.
//   - Handle retries and rate limiting appropriately.
//
// Steps that need a structured decision instruct the model to answer in
// JSON and parse the reply; see DecodeJSON.
type ChatModel interface {
	Chat(ctx context.Context, messages []Message) (ChatOut, error)
}

// Vision is implemented by providers that accept image input, used for
// handwritten-note recognition. Images are raw file bytes; the adapter
// handles encoding.
type Vision interface {
	RecognizeImages(ctx context.Context, prompt string, images [][]byte) (ChatOut, error)
}

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant builds an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// ChatOut is the result of a chat call.
type ChatOut struct {
	// Text is the model's reply.
	Text string

	// Usage reports token consumption and estimated cost for this call.
	Usage Usage
}
