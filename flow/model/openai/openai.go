// Package openai implements model.ChatModel on OpenAI's API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/studyflow/studyflow/flow/model"
)

// ChatModel provides access to OpenAI models with automatic retry on
// transient errors and token-usage accounting. It also implements
// model.Vision for handwritten-note recognition via image content parts.
//
// The underlying SDK client is safe for concurrent use.
type ChatModel struct {
	client     *openai.Client
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// NewChatModel creates an OpenAI ChatModel. An empty modelName selects
// gpt-4o-mini. The returned model retries transient failures 3 times with
// a growing delay.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &ChatModel{
		client:     &client,
		modelName:  modelName,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message) (model.ChatOut, error) {
	return m.withRetry(ctx, func(ctx context.Context) (model.ChatOut, error) {
		return m.complete(ctx, convertMessages(messages))
	})
}

// RecognizeImages implements model.Vision. Images are sent as base64 data
// URLs alongside the prompt in a single user turn.
func (m *ChatModel) RecognizeImages(ctx context.Context, prompt string, images [][]byte) (model.ChatOut, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{
		{OfText: &openai.ChatCompletionContentPartTextParam{Text: prompt}},
	}
	for _, img := range images {
		url := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img)
		parts = append(parts, openai.ChatCompletionContentPartUnionParam{
			OfImageURL: &openai.ChatCompletionContentPartImageParam{
				ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: url},
			},
		})
	}

	msgs := []openai.ChatCompletionMessageParamUnion{
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		},
	}

	return m.withRetry(ctx, func(ctx context.Context) (model.ChatOut, error) {
		return m.complete(ctx, msgs)
	})
}

func (m *ChatModel) complete(ctx context.Context, msgs []openai.ChatCompletionMessageParamUnion) (model.ChatOut, error) {
	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.modelName),
		Messages: msgs,
	})
	if err != nil {
		return model.ChatOut{}, err
	}
	if len(completion.Choices) == 0 {
		return model.ChatOut{}, errors.New("no response from OpenAI API")
	}

	return model.ChatOut{
		Text: completion.Choices[0].Message.Content,
		Usage: model.EstimateUsage(
			m.modelName,
			int(completion.Usage.PromptTokens),
			int(completion.Usage.CompletionTokens),
		),
	}, nil
}

func (m *ChatModel) withRetry(ctx context.Context, fn func(context.Context) (model.ChatOut, error)) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !isTransientError(err) {
			return model.ChatOut{}, err
		}
		if attempt >= m.maxRetries {
			break
		}

		select {
		case <-time.After(m.retryDelay * time.Duration(attempt+1)):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}

	return model.ChatOut{}, fmt.Errorf("OpenAI API failed after %d retries: %w", m.maxRetries, lastErr)
}

func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		case model.RoleAssistant:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		default:
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		}
	}
	return out
}

// isTransientError determines whether an error should trigger a retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"network",
		"connection",
		"temporary",
		"rate limit",
		"429",
		"500",
		"502",
		"503",
		"504",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
