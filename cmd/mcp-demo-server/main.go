// Command mcp-demo-server runs a small MCP server for trying the
// call_mcp_tool integration locally. It offers "get_cpi", the yearly
// consumer price index of a few years, over streamable HTTP at /mcp.
//
// Configuration:
//
//	PORT - Listen port (default: 8080)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/askdata/pkg/debug"
)

// cpi is the consumer price index, 2019 = 100.
var cpi = map[int]float64{
	2019: 100.0,
	2020: 99.8,
	2021: 102.1,
	2022: 108.3,
	2023: 113.4,
	2024: 116.2,
}

type cpiInput struct {
	Year int `json:"year,omitempty" jsonschema:"Year to look up; omit for every year"`
}

type cpiRow struct {
	Year  int     `json:"year"`
	Index float64 `json:"index"`
}

type cpiOutput struct {
	Rows []cpiRow `json:"rows"`
}

func main() {
	debug.Init(debug.Options{Level: "INFO"})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "askdata-demo-mcp", Version: "v1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cpi",
		Description: "Returns the yearly consumer price index (2019 = 100)",
	}, getCPI)

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	slog.Info("MCP demo server starting", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func getCPI(_ context.Context, _ *mcp.CallToolRequest, in cpiInput) (*mcp.CallToolResult, cpiOutput, error) {
	out := cpiOutput{Rows: []cpiRow{}}
	if in.Year != 0 {
		index, ok := cpi[in.Year]
		if !ok {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("no index for %d", in.Year)}},
			}, out, nil
		}
		out.Rows = []cpiRow{{Year: in.Year, Index: index}}
	} else {
		for year, index := range cpi {
			out.Rows = append(out.Rows, cpiRow{Year: year, Index: index})
		}
		sort.Slice(out.Rows, func(i, j int) bool { return out.Rows[i].Year < out.Rows[j].Year })
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d row(s)", len(out.Rows))}},
	}, out, nil
}
