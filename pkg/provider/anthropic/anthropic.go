// Package anthropic implements provider.Provider on top of the Anthropic
// Messages API using github.com/anthropics/anthropic-sdk-go.
package anthropic

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/rhuss/askdata/pkg/provider"
)

// DefaultMaxTokens is used when neither the request nor Options set a cap.
// The Messages API requires one.
const DefaultMaxTokens = 4096

// MessagesClient captures the subset of the SDK used by the adapter. It is
// satisfied by *sdk.MessageService so tests can pass a stub.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the adapter.
type Options struct {
	// Model is the Claude model identifier used when a request names none.
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Client implements provider.Provider.
type Client struct {
	msg  MessagesClient
	opts Options
}

var _ provider.Provider = (*Client)(nil)

// New builds a Client from a Messages client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("anthropic: model identifier is required")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	return &Client{msg: msg, opts: opts}, nil
}

// NewFromAPIKey constructs a Client using the SDK's HTTP client. baseURL may
// be empty to use the public endpoint.
func NewFromAPIKey(apiKey, baseURL string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	ac := sdk.NewClient(reqOpts...)
	return New(&ac.Messages, opts)
}

func (c *Client) Name() string { return "anthropic" }

// Complete sends one user message and joins the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.opts.MaxTokens
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Model:     sdk.Model(model),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	temp := req.Temperature
	if temp == nil {
		temp = c.opts.Temperature
	}
	if temp != nil {
		params.Temperature = sdk.Float(*temp)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, provider.Unavailable(c.Name(), err)
	}
	if msg == nil {
		return nil, provider.Unavailable(c.Name(), errors.New("response message is nil"))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &provider.Response{
		Text:         text.String(),
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		Usage: provider.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (c *Client) Close() error { return nil }
