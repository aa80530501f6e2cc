package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/observability"
	"github.com/rhuss/askdata/pkg/transport"
)

// DefaultBypassEndpoints lists endpoints that skip authentication. Entries
// ending in "/" match every path below them; generated charts and tables
// are linked from answers and fetched by browsers without credentials.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics", "/tmp_imgs/"}

// ScopeRule requires Scope for every path starting with Prefix.
type ScopeRule struct {
	Prefix string
	Scope  string
}

// DefaultScopeRules guards the audit trail.
var DefaultScopeRules = []ScopeRule{{Prefix: "/api/audit", Scope: ScopeAudit}}

// Middleware creates HTTP middleware from an AuthChain and an optional
// RateLimiter. Only POST requests, which start questions, count against
// the rate limit.
func Middleware(chain *AuthChain, limiter RateLimiter, bypassEndpoints []string, rules ...ScopeRule) func(http.Handler) http.Handler {
	bypassed := func(path string) bool {
		for _, ep := range bypassEndpoints {
			if path == ep || (strings.HasSuffix(ep, "/") && strings.HasPrefix(path, ep)) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypassed(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"request_id", transport.RequestIDFromContext(r.Context()),
					"error", result.Err,
				)
				w.Header().Set("WWW-Authenticate", "Bearer")
				transport.WriteAPIError(w, api.NewUnauthorizedError(ErrUnauthenticated.Error()))
				return
			}
			id := result.Identity
			if id.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteAPIError(w, api.NewServerError("internal authentication error"))
				return
			}

			for _, rule := range rules {
				if strings.HasPrefix(r.URL.Path, rule.Prefix) && !id.HasScope(rule.Scope) {
					slog.Warn("missing scope", "subject", id.Subject, "path", r.URL.Path, "scope", rule.Scope)
					transport.WriteAPIError(w, api.NewForbiddenError("scope "+rule.Scope+" is required"))
					return
				}
			}

			if limiter != nil && r.Method == http.MethodPost {
				if err := limiter.Allow(r.Context(), id); err != nil {
					slog.Warn("rate limit exceeded", "subject", id.Subject, "tier", id.TierOrDefault())
					observability.RateLimitRejectedTotal.WithLabelValues(id.TierOrDefault()).Inc()
					w.Header().Set("Retry-After", "60")
					transport.WriteAPIError(w, api.NewTooManyRequestsError(err.Error()))
					return
				}
			}

			slog.Debug("authentication succeeded", "subject", id.Subject, "tenant", id.Tenant, "path", r.URL.Path)

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
