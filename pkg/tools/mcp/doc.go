// Package mcp lets generated code call tools of external MCP (Model
// Context Protocol) servers.
//
// At start-up every configured server is connected and its tools are
// listed. The call_mcp_tool catalog entry documents the discovered tools
// and exposes CallMCPTool, which routes a call by tool name to the server
// that provides it. Servers are reached over streamable HTTP or SSE using
// the official SDK (github.com/modelcontextprotocol/go-sdk), with optional
// static headers and OAuth client credentials.
package mcp
