// Package google implements model.ChatModel on Google's Gemini API.
package google

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/studyflow/studyflow/flow/model"
)

// ChatModel provides access to Gemini models. Gemini takes the system
// prompt as a model-level instruction and the conversation as alternating
// content, so messages are folded accordingly.
type ChatModel struct {
	client    *genai.Client
	modelName string
}

// NewChatModel creates a Gemini ChatModel. An empty modelName selects
// gemini-1.5-flash. Callers own the client lifetime and should Close it.
func NewChatModel(ctx context.Context, apiKey, modelName string) (*ChatModel, error) {
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &ChatModel{client: client, modelName: modelName}, nil
}

// Close releases the underlying client.
func (m *ChatModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	gm := m.client.GenerativeModel(m.modelName)

	system, prompt := foldMessages(messages)
	if system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return model.ChatOut{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return model.ChatOut{}, errors.New("empty response from Gemini API")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	var in, out int
	if resp.UsageMetadata != nil {
		in = int(resp.UsageMetadata.PromptTokenCount)
		out = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return model.ChatOut{
		Text:  text.String(),
		Usage: model.EstimateUsage(m.modelName, in, out),
	}, nil
}

// foldMessages splits out the system prompt and flattens the remaining
// turns into a single prompt, tagging non-final assistant turns so the
// model keeps the conversational context.
func foldMessages(messages []model.Message) (system, prompt string) {
	var sys, conv []string
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			sys = append(sys, msg.Content)
		case model.RoleAssistant:
			conv = append(conv, "Assistant: "+msg.Content)
		default:
			conv = append(conv, "User: "+msg.Content)
		}
	}
	return strings.Join(sys, "\n\n"), strings.Join(conv, "\n\n")
}
