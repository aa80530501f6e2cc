// Package auth authenticates askdata callers and scopes their requests.
//
// Authenticators vote Yes (identity found), No (credentials invalid) or
// Abstain (credentials of another kind). An AuthChain asks them in order
// and falls back to its default decision when all abstain.
//
// Middleware runs the chain for every HTTP request outside the bypass
// list, enforces per-tier question rate limits and stores the identity and
// its tenant in the request context. Audit records are scoped to that
// tenant, and RequireScope guards the audit endpoints.
package auth
