// Package api defines the wire types of the askdata HTTP API: the question
// request, the answer envelope shared by the ask, summary and plan
// endpoints, audit record views, structured errors and request IDs.
//
// The envelope keeps the field names existing front ends expect
// ({question, ans, map, type, msg}). A question the agent could not answer
// is a normal response with type "error", not an HTTP error.
//
// The package performs no I/O.
package api
