package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// minPromptLength guards against the prompt service returning truncated
// or placeholder content.
const minPromptLength = 50

// HTTPRenderer fetches rendered prompts from the prompt configuration
// service. The service owns per-user personalization; this client only
// ships the step name and substitution context.
//
// There is no local fallback: when the service stays unavailable after
// retries the error propagates and the workflow step fails.
type HTTPRenderer struct {
	client *resty.Client
}

// NewHTTPRenderer creates an HTTPRenderer against baseURL.
func NewHTTPRenderer(baseURL string, timeout time.Duration) *HTTPRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 500
		})
	return &HTTPRenderer{client: client}
}

type renderRequest struct {
	UserID   string         `json:"user_id"`
	NodeName string         `json:"node_name"`
	Context  map[string]any `json:"context"`
}

type renderResponse struct {
	Prompt string `json:"prompt"`
}

// Render implements Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, userID, stepName string, vars map[string]any) (string, error) {
	var out renderResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(renderRequest{UserID: userID, NodeName: stepName, Context: vars}).
		SetResult(&out).
		Post("/api/v1/generate-prompt")
	if err != nil {
		return "", fmt.Errorf("prompt: service unavailable for %q: %w", stepName, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("prompt: service returned %s for %q", resp.Status(), stepName)
	}
	if out.Prompt == "" {
		return "", fmt.Errorf("prompt: empty prompt received for %q", stepName)
	}
	if len(out.Prompt) < minPromptLength {
		return "", fmt.Errorf("prompt: prompt too short (%d chars) for %q", len(out.Prompt), stepName)
	}
	return out.Prompt, nil
}
