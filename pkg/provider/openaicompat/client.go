package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/provider"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ provider.Provider = (*Client)(nil)

// New creates a Client. Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openai"
}

// Complete performs non-streaming inference against the Chat Completions endpoint.
// Network failures and non-2xx statuses wrap provider.ErrModelUnavailable
// and the *api.APIError describing the failure.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	chatReq := c.translate(req)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to marshal request: %s", err.Error()))
	}

	url := c.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewServerError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, provider.Unavailable(c.Name(), MapNetworkError(err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, provider.Unavailable(c.Name(), MapHTTPError(httpResp))
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, provider.Unavailable(c.Name(),
			api.NewServerError(fmt.Sprintf("failed to parse backend response: %s", err.Error())))
	}

	return translateResponse(&chatResp), nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) translate(req *provider.Request) ChatCompletionRequest {
	cr := ChatCompletionRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		N:           1,
	}
	if cr.Model == "" {
		cr.Model = c.cfg.Model
	}
	if cr.Temperature == nil {
		cr.Temperature = c.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxTokens
	}
	if maxTokens > 0 {
		cr.MaxTokens = &maxTokens
	}

	if req.System != "" {
		cr.Messages = append(cr.Messages, ChatMessage{Role: "system", Content: req.System})
	}
	cr.Messages = append(cr.Messages, ChatMessage{Role: "user", Content: req.Prompt})
	return cr
}

func translateResponse(resp *ChatCompletionResponse) *provider.Response {
	pr := &provider.Response{Model: resp.Model}
	if resp.Usage != nil {
		pr.Usage = provider.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	if len(resp.Choices) == 0 {
		return pr
	}
	choice := resp.Choices[0]
	pr.FinishReason = choice.FinishReason
	pr.Text = contentString(choice.Message.Content)
	return pr
}

// contentString flattens message content, which backends return either as
// a plain string or as an array of {"type":"text","text":...} parts.
func contentString(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var b strings.Builder
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := m["text"].(string); ok {
				b.WriteString(text)
			}
		}
		return b.String()
	}
	return ""
}
