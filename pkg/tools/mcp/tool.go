package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"

	"github.com/rhuss/askdata/pkg/tools"
)

const docHeader = `CallMCPTool(name string, args map[string]any) (string, error)
Call a tool of a connected MCP server by name with JSON-like arguments.
Returns the text the tool produced.

Example:
	out, err := tools.CallMCPTool("get_weather", map[string]any{"city": "Singapore"})
	if err != nil {
		yield(err)
		return
	}
	yield(out)

Available MCP tools:`

// Tool is the call_mcp_tool catalog entry.
type Tool struct {
	clients map[string]*Client
	routes  map[string]*Client
	infos   []ToolInfo
}

var _ tools.Tool = (*Tool)(nil)

// New discovers the tools of connected clients. A server whose tools
// cannot be listed is logged and skipped; when two servers offer the same
// tool name the first one wins.
func New(ctx context.Context, clients ...*Client) *Tool {
	t := &Tool{clients: make(map[string]*Client), routes: make(map[string]*Client)}
	for _, c := range clients {
		t.clients[c.Name()] = c
		infos, err := c.Tools(ctx)
		if err != nil {
			slog.Error("failed to discover tools from MCP server", "server", c.Name(), "error", err)
			continue
		}
		for _, info := range infos {
			if _, dup := t.routes[info.Name]; dup {
				slog.Warn("duplicate MCP tool name, using first provider", "tool", info.Name, "server", c.Name())
				continue
			}
			t.routes[info.Name] = c
			t.infos = append(t.infos, info)
		}
		slog.Info("discovered MCP tools", "server", c.Name(), "count", len(infos))
	}
	sort.Slice(t.infos, func(i, j int) bool { return t.infos[i].Name < t.infos[j].Name })
	return t
}

// Connect connects to every configured server and discovers its tools.
// Servers that cannot be reached are logged and skipped.
func Connect(ctx context.Context, servers []ServerConfig) *Tool {
	var clients []*Client
	for _, cfg := range servers {
		c := NewClient(cfg)
		if err := c.Connect(ctx); err != nil {
			slog.Error("failed to connect MCP server", "server", cfg.Name, "url", cfg.URL, "error", err)
			continue
		}
		clients = append(clients, c)
	}
	return New(ctx, clients...)
}

func (t *Tool) Name() string { return "call_mcp_tool" }

// Doc lists the discovered tools with their input schemas.
func (t *Tool) Doc() string {
	var b strings.Builder
	b.WriteString(docHeader)
	if len(t.infos) == 0 {
		b.WriteString("\n(none)")
	}
	for _, info := range t.infos {
		fmt.Fprintf(&b, "\n- %s: %s", info.Name, strings.TrimSpace(info.Description))
		if len(info.InputSchema) > 0 {
			fmt.Fprintf(&b, "\n  arguments schema: %s", info.InputSchema)
		}
	}
	return b.String()
}

// Tools returns the discovered tools.
func (t *Tool) Tools() []ToolInfo { return append([]ToolInfo(nil), t.infos...) }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"CallMCPTool": reflect.ValueOf(func(name string, args map[string]any) (string, error) {
			return t.Call(ctx, name, args)
		}),
	}
}

// Call routes a call to the server providing name.
func (t *Tool) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	c, ok := t.routes[name]
	if !ok {
		return "", fmt.Errorf("no MCP server provides tool %q", name)
	}
	return c.Call(ctx, name, args)
}

// Close closes every client.
func (t *Tool) Close() error {
	var errs []error
	for name, c := range t.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing MCP client %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
