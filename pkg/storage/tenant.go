package storage

import "context"

// Audit records are scoped by tenant. The auth middleware puts the caller's
// tenant in the request context; sinks stamp records with it and stores
// filter reads by it. A context without a tenant is unscoped.

type tenantKey struct{}

// WithTenant returns ctx scoped to tenant.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenant)
}

// TenantFrom returns the tenant of ctx, or "" when unscoped.
func TenantFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey{}).(string); ok {
		return v
	}
	return ""
}

// TenantOf returns the tenant a record is saved under: its own, else the
// one of ctx.
func TenantOf(ctx context.Context, r *Record) string {
	if r.Tenant != "" {
		return r.Tenant
	}
	return TenantFrom(ctx)
}

// Visible reports whether r may be read in ctx.
func Visible(ctx context.Context, r *Record) bool {
	tenant := TenantFrom(ctx)
	return tenant == "" || r.Tenant == tenant
}
