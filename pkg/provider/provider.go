package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrModelUnavailable is wrapped by every error a backend returns when the
// model could not produce an answer (network failure, rate limit, server
// error). The agent treats it as a failed attempt, not as a fatal error.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrEmptyResponse is returned when the model answered without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Provider abstracts a text completion backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string

	// Complete sends a single-turn prompt and returns the model's text.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}

// Request is a single-turn completion request.
type Request struct {
	// Model overrides the provider's default model when set.
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Response is the model's answer to a Request.
type Response struct {
	Text         string
	Model        string
	FinishReason string
	Usage        Usage
}

// Usage reports token counts for one completion.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Unavailable wraps err so that errors.Is(err, ErrModelUnavailable) holds.
func Unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrModelUnavailable, err)
}

// Ask sends prompt with an optional system instruction and returns the
// trimmed answer text.
func Ask(ctx context.Context, p Provider, system, prompt string) (string, error) {
	resp, err := p.Complete(ctx, &Request{System: system, Prompt: prompt})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
