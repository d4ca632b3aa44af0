// Package llm implements the interview analyzers on top of OpenAI chat
// completions.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/pkg/config"
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	temperature = 0.2
)

// completer is the slice of the OpenAI SDK the client needs.
type completer interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Client sends single-turn chat completions guarded by a circuit breaker.
type Client struct {
	chat    completer
	model   string
	timeout time.Duration
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewClient builds a Client from the OpenAI configuration section.
func NewClient(cfg config.OpenAIConfig, log *slog.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	sdk := openai.NewClient(opts...)
	return newClient(&sdk.Chat.Completions, cfg, log)
}

func newClient(chat completer, cfg config.OpenAIConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		chat:    chat,
		model:   model,
		timeout: timeout,
		breaker: apperrors.NewCircuitBreaker(apperrors.BreakerSettings{}),
		log:     log.With(slog.String("component", "llm")),
	}

	c.breaker.OnStateChange(func(from, to apperrors.BreakerState) {
		c.log.Warn("openai circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return c
}

// Complete sends a system and a user prompt and returns the first choice.
// Transient failures are retried; the breaker fails fast while OpenAI is down.
func (c *Client) Complete(ctx context.Context, name, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
	}

	var content string
	err := apperrors.WithRetry(ctx, func() error {
		return c.breaker.Call(func() error {
			resp, err := c.chat.New(ctx, params)
			if err != nil {
				return classify(name, err)
			}
			if resp == nil || len(resp.Choices) == 0 {
				appErr := apperrors.NewCollaboratorError(name, errors.New("no choices returned"))
				appErr.Retryable = false
				return appErr
			}
			content = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		})
	})
	if err != nil {
		c.log.Error("openai completion failed", slog.String("call", name), slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", name, err)
	}

	return content, nil
}

// classify wraps err into a collaborator error that is retryable only for
// throttling and server-side failures.
func classify(name string, err error) error {
	appErr := apperrors.NewCollaboratorError(name, err)

	var apiErr *openai.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		appErr.Retryable = false
	case errors.As(err, &apiErr):
		appErr.Retryable = apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError
	}

	return appErr
}
