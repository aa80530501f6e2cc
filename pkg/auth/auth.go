package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
)

// AuthDecision is the vote of one authenticator.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator does not handle the credentials.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // set when Decision == Yes
	Err      error     // set when Decision == No
}

// ScopeAudit allows reading the audit trail of the caller's tenant. Every
// authenticated caller may ask questions.
const ScopeAudit = "askdata:audit"

// DefaultTier is the rate limit tier of identities without one.
const DefaultTier = "default"

// Identity is an authenticated caller.
type Identity struct {
	// Subject is the unique identifier (required, non-empty).
	Subject string
	// Tenant scopes audit records. Empty means unscoped.
	Tenant string
	// Tier selects the rate limit.
	Tier string
	// Scopes lists the granted scopes.
	Scopes []string
}

// TierOrDefault returns the identity's tier or DefaultTier.
func (id *Identity) TierOrDefault() string {
	if id == nil || id.Tier == "" {
		return DefaultTier
	}
	return id.Tier
}

// HasScope reports whether the identity was granted scope.
func (id *Identity) HasScope(scope string) bool {
	return id != nil && slices.Contains(id.Scopes, scope)
}

// Authenticator examines request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// AuthChain evaluates authenticators in order.
type AuthChain struct {
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain: Yes admits
	// an anonymous identity, anything else rejects.
	DefaultDecision AuthDecision
}

// Authenticate runs the chain and stops on the first Yes or No.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		if result := authn.Authenticate(ctx, r); result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return AuthResult{Decision: Yes, Identity: Anonymous()}
	}
	return AuthResult{Decision: No, Err: ErrUnauthenticated}
}

// Anonymous returns the identity admitted when authentication is off. It
// may read the whole audit trail.
func Anonymous() *Identity {
	return &Identity{
		Subject: "anonymous",
		Tier:    DefaultTier,
		Scopes:  []string{ScopeAudit},
	}
}
