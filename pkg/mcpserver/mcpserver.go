// Package mcpserver exposes the question answering service as a Model
// Context Protocol tool, so MCP clients such as IDE assistants can ask
// questions about the data.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/transport"
)

// ToolName is the name of the single tool the server offers.
const ToolName = "ask_data"

// Path is where the streamable HTTP handler is mounted.
const Path = "/mcp"

// AskInput is the argument of ask_data.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question about the data, in natural language"`
	Mode     string `json:"mode,omitempty" jsonschema:"agent (default) runs generated code, summary answers from background knowledge, plan describes the solution steps"`
}

// AskOutput is the structured result of ask_data.
type AskOutput struct {
	Answer  string   `json:"answer"`
	Images  []string `json:"images,omitempty"`
	Map     string   `json:"map,omitempty"`
	Code    string   `json:"code,omitempty"`
	AuditID string   `json:"audit_id,omitempty"`
}

// NewServer creates an MCP server whose ask_data tool forwards to q.
func NewServer(q transport.Questioner, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "askdata", Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name: ToolName,
		Description: "Answers a question about the configured datasets by generating and running analysis code. " +
			"Returns the answer text with links to any charts.",
	}, askHandler(q))
	return server
}

// Handler serves server over streamable HTTP. Each request is handled
// statelessly so the handler works behind a load balancer.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Stateless: true})
}

func askHandler(q transport.Questioner) mcp.ToolHandlerFor[AskInput, AskOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in AskInput) (*mcp.CallToolResult, AskOutput, error) {
		req := &api.AskRequest{Question: in.Question, Mode: api.Mode(in.Mode)}
		if req.Mode == "" {
			req.Mode = api.ModeAgent
		}
		if apiErr := api.ValidateAskRequest(req); apiErr != nil {
			return toolError(apiErr.Message), AskOutput{}, nil
		}

		if id := transport.RequestIDFromContext(ctx); id == "" {
			ctx = transport.ContextWithRequestID(ctx, api.NewRequestID())
		}
		resp, err := q.Answer(ctx, req)
		if err != nil {
			slog.Warn("ask_data failed", "request_id", transport.RequestIDFromContext(ctx), "error", err)
			return toolError(fmt.Sprintf("the question could not be processed: %v", err)), AskOutput{}, nil
		}
		if resp.Type == api.TypeError {
			return toolError(resp.Message), AskOutput{}, nil
		}

		out := AskOutput{
			Answer:  resp.Answer,
			Images:  resp.Images,
			Map:     resp.Map,
			Code:    resp.Code,
			AuditID: resp.AuditID,
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: resp.Answer}}}, out, nil
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
