package openaicompat

import (
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for an OpenAI-compatible backend.
type Config struct {
	// BaseURL is the server URL without the /v1 suffix
	// (e.g., "https://api.openai.com", "http://localhost:8000").
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is used when a request does not name one.
	Model string

	// MaxTokens caps the completion length when a request does not.
	MaxTokens int

	// Temperature applies when a request does not set one.
	Temperature *float64

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration
}

func (c *Config) normalize() error {
	if c.BaseURL == "" {
		return fmt.Errorf("openaicompat: BaseURL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("openaicompat: Model is required")
	}
	c.BaseURL = strings.TrimSuffix(strings.TrimRight(c.BaseURL, "/"), "/v1")
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	return nil
}
