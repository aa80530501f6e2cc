// Package transport defines the protocol-agnostic layer between the
// question-answering agent and the protocols that expose it.
//
// A Questioner turns an AskRequest into an AskResponse. Protocol adapters
// (HTTP in transport/http, MCP in mcpserver) decode requests, call the
// Questioner wrapped in Middleware, and encode the envelope. Middleware
// composes with Chain; the first middleware is the outermost wrapper.
//
// Errors returned by a Questioner are *api.APIError values or plain errors;
// WriteAPIError maps them to HTTP status codes. An unanswered question is
// not an error: it is a failure envelope with type "error".
//
// InFlightRegistry tracks running questions by request ID so a client or a
// shutting-down server can cancel them.
package transport
