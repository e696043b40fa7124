// Package llm calls the OpenAI-compatible chat completion endpoint that
// generates assistant responses.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"

	"github.com/elevend0g/vicw/pkg/config"
	"github.com/elevend0g/vicw/pkg/metrics"
	"github.com/elevend0g/vicw/pkg/models"
)

// ErrPermanent marks completion failures retrying cannot fix: rejected
// requests, bad credentials, an unknown model.
var ErrPermanent = errors.New("llm: permanent error")

// Completion is one generated assistant response.
type Completion struct {
	Text    string
	Latency time.Duration
}

// Generator produces one assistant response for a prompt.
type Generator interface {
	Generate(ctx context.Context, messages []models.Message) (Completion, error)
	Model() string
}

// Client is the production Generator. Requests never stream; the API layer
// chunks finished responses when a caller asks for streaming.
type Client struct {
	client     *openai.Client
	metrics    *metrics.Metrics
	cfg        config.LLMConfig
	retryDelay time.Duration
}

var _ Generator = (*Client)(nil)

// NewClient creates a completion client. m may be nil.
func NewClient(cfg config.LLMConfig, m *metrics.Metrics) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		client:     openai.NewClientWithConfig(oc),
		metrics:    m,
		cfg:        cfg,
		retryDelay: time.Second,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }

// Generate sends the prompt and returns the completion. Synthetic state and
// rag roles travel as system messages. Transport failures and 5xx responses
// retry with exponential backoff up to the configured attempts; anything
// else returns immediately wrapped in ErrPermanent.
func (c *Client) Generate(ctx context.Context, messages []models.Message) (Completion, error) {
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    toWire(messages),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var resp openai.ChatCompletionResponse
	err := retry.Do(
		func() error {
			callCtx := ctx
			if c.cfg.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
				defer cancel()
			}

			var callErr error
			resp, callErr = c.client.CreateChatCompletion(callCtx, req)
			return callErr
		},
		retry.RetryIf(isRetryable),
		retry.Attempts(uint(attempts)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(8*time.Second),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying completion request", "attempt", n+1, "error", err)
		}),
	)

	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordLLMRequest("failure", elapsed.Seconds())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Completion{}, fmt.Errorf("completion request aborted: %w", ctxErr)
		}
		if isRetryable(err) {
			return Completion{}, fmt.Errorf("completion request failed after %d attempts: %w", attempts, err)
		}
		return Completion{}, fmt.Errorf("%w: %v", ErrPermanent, err)
	}

	if len(resp.Choices) == 0 {
		c.metrics.RecordLLMRequest("failure", elapsed.Seconds())
		return Completion{}, errors.New("completion response contained no choices")
	}

	c.metrics.RecordLLMRequest("success", elapsed.Seconds())
	return Completion{
		Text:    resp.Choices[0].Message.Content,
		Latency: elapsed,
	}, nil
}

// isRetryable reports whether another attempt could succeed. Server-side
// 5xx and transport-level failures qualify; client-side errors do not.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 0 || reqErr.HTTPStatusCode >= 500
	}

	// Connection failures and per-attempt timeouts surface as plain
	// transport errors.
	return true
}

// toWire converts window messages to the wire format. The completion API
// only knows system, user, and assistant; synthetic injection roles are
// presented as system instructions.
func toWire(messages []models.Message) []openai.ChatCompletionMessage {
	wire := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := string(m.Role)
		if m.Role.Synthetic() {
			role = openai.ChatMessageRoleSystem
		}
		wire = append(wire, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return wire
}
