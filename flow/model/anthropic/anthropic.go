// Package anthropic implements model.ChatModel on Anthropic's Claude API.
package anthropic

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/studyflow/studyflow/flow/model"
)

const defaultMaxTokens = 4096

// ChatModel provides access to Claude models. Anthropic expects the system
// prompt as a separate parameter rather than a message, so system messages
// are extracted before the call. The SDK client handles its own retry and
// rate-limit behavior; the adapter only translates formats.
type ChatModel struct {
	client    *anthropic.Client
	modelName string
}

// NewChatModel creates an Anthropic ChatModel. An empty modelName selects
// claude-3-5-sonnet-20241022.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "claude-3-5-sonnet-20241022"
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{
		client:    &client,
		modelName: modelName,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	systemPrompt, conversation := extractSystemPrompt(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  convertMessages(conversation),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return model.ChatOut{}, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 && len(message.Content) == 0 {
		return model.ChatOut{}, errors.New("empty response from Anthropic API")
	}

	return model.ChatOut{
		Text: text.String(),
		Usage: model.EstimateUsage(
			m.modelName,
			int(message.Usage.InputTokens),
			int(message.Usage.OutputTokens),
		),
	}, nil
}

// extractSystemPrompt separates system messages from the conversation.
// Multiple system messages are concatenated.
func extractSystemPrompt(messages []model.Message) (string, []model.Message) {
	var systemPrompt string
	var conversation []model.Message

	for _, msg := range messages {
		if msg.Role == model.RoleSystem {
			if systemPrompt != "" {
				systemPrompt += "\n\n"
			}
			systemPrompt += msg.Content
		} else {
			conversation = append(conversation, msg)
		}
	}
	return systemPrompt, conversation
}

func convertMessages(messages []model.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == model.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
