package auth

import (
	"context"

	"github.com/rhuss/askdata/pkg/storage"
)

type identityKey struct{}

// WithIdentity stores the caller in ctx and scopes audit storage to the
// caller's tenant when it has one.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey{}, id)
	if id != nil && id.Tenant != "" {
		ctx = storage.WithTenant(ctx, id.Tenant)
	}
	return ctx
}

// IdentityFromContext returns the caller, or nil outside an authenticated
// request (the CLI, tests).
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}
