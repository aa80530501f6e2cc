// Package gemini implements provider.Provider on top of the Gemini API
// using google.golang.org/genai.
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/rhuss/askdata/pkg/provider"
)

// ContentGenerator is the subset of *genai.Models used by the adapter.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures the adapter.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Client implements provider.Provider.
type Client struct {
	models ContentGenerator
	opts   Options
}

var _ provider.Provider = (*Client)(nil)

// New builds a Client from a content generator.
func New(models ContentGenerator, opts Options) (*Client, error) {
	if models == nil {
		return nil, errors.New("gemini: models client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("gemini: model identifier is required")
	}
	return &Client{models: models, opts: opts}, nil
}

// NewFromAPIKey creates a Gemini API client.
func NewFromAPIKey(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return New(client.Models, opts)
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}
	temp := req.Temperature
	if temp == nil {
		temp = c.opts.Temperature
	}
	if temp != nil {
		cfg.Temperature = genai.Ptr(float32(*temp))
	}

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, provider.Unavailable(c.Name(), err)
	}
	if resp == nil {
		return nil, provider.Unavailable(c.Name(), errors.New("empty response"))
	}

	out := &provider.Response{Text: resp.Text(), Model: resp.ModelVersion}
	if out.Model == "" {
		out.Model = model
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = provider.Usage{
			InputTokens:  int(u.PromptTokenCount),
			OutputTokens: int(u.CandidatesTokenCount),
		}
	}
	return out, nil
}

func (c *Client) Close() error { return nil }
