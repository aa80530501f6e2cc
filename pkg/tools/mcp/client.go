package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolInfo describes a tool offered by an MCP server.
type ToolInfo struct {
	Server      string
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Client is a connection to one MCP server.
type Client struct {
	cfg     ServerConfig
	session *mcp.ClientSession
}

// NewClient creates a client. Call Connect before use.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Name returns the configured server name.
func (c *Client) Name() string { return c.cfg.Name }

// Connect performs the MCP handshake over the configured transport.
func (c *Client) Connect(ctx context.Context) error {
	transport, err := c.transport()
	if err != nil {
		return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
	}
	return c.ConnectWithTransport(ctx, transport)
}

// ConnectWithTransport performs the handshake over transport.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	client := mcp.NewClient(&mcp.Implementation{Name: "askdata", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) transport() (mcp.Transport, error) {
	var tokens TokenSource
	switch c.cfg.Auth.Type {
	case "":
	case "oauth_client_credentials":
		tokens = NewClientCredentials(c.cfg.Auth)
	default:
		return nil, fmt.Errorf("unsupported auth type %q", c.cfg.Auth.Type)
	}

	var httpClient *http.Client
	if len(c.cfg.Headers) > 0 || tokens != nil {
		httpClient = &http.Client{Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
			tokens:  tokens,
		}}
	}

	switch c.cfg.Transport {
	case "sse":
		return &mcp.SSEClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	case "streamable-http", "":
		return &mcp.StreamableClientTransport{Endpoint: c.cfg.URL, HTTPClient: httpClient}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// Tools lists the tools of the server.
func (c *Client) Tools(ctx context.Context) ([]ToolInfo, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}
	var out []ToolInfo
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		info := ToolInfo{Server: c.cfg.Name, Name: tool.Name, Description: tool.Description}
		if tool.InputSchema != nil {
			schema, err := json.Marshal(tool.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("encoding input schema of %q: %w", tool.Name, err)
			}
			info.InputSchema = schema
		}
		out = append(out, info)
	}
	return out, nil
}

// Call invokes a tool and returns its text content. A result flagged as
// an error is returned as an error carrying the text.
func (c *Client) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("MCP tool %s: %w", name, err)
	}
	var parts []string
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if res.IsError {
		return "", errors.New(text)
	}
	return text, nil
}

// Close ends the session.
func (c *Client) Close() error {
	if c.session == nil {
		return nil
	}
	return c.session.Close()
}
