package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/askdata/pkg/auth"
	"github.com/rhuss/askdata/pkg/auth/apikey"
	"github.com/rhuss/askdata/pkg/auth/jwt"
	"github.com/rhuss/askdata/pkg/auth/noop"
	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/mcpserver"
	"github.com/rhuss/askdata/pkg/transport"
	transporthttp "github.com/rhuss/askdata/pkg/transport/http"
)

// NewAuthChain builds the authenticator chain for auth.type.
func NewAuthChain(cfg config.AuthConfig) (*auth.AuthChain, error) {
	var authn auth.Authenticator
	switch cfg.Type {
	case "none":
		authn = noop.Authenticator{}
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject: k.Subject,
					Tenant:  k.TenantID,
					Tier:    k.ServiceTier,
					Scopes:  k.Scopes,
				},
			})
		}
		authn = apikey.New(entries)
	case "jwt":
		authn = jwt.New(jwt.Config{
			Issuer:      cfg.JWT.Issuer,
			Audience:    cfg.JWT.Audience,
			JWKSURL:     cfg.JWT.JWKSURL,
			UserClaim:   cfg.JWT.UserClaim,
			TenantClaim: cfg.JWT.TenantClaim,
			ScopesClaim: cfg.JWT.ScopesClaim,
			TierClaim:   cfg.JWT.TierClaim,
			CacheTTL:    cfg.JWT.CacheTTL,
			Leeway:      cfg.JWT.Leeway,
		})
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
	slog.Info("authentication configured", "type", cfg.Type)
	return &auth.AuthChain{Authenticators: []auth.Authenticator{authn}, DefaultDecision: auth.No}, nil
}

// Adapter builds the HTTP adapter serving the agent: question endpoints,
// generated files, the audit trail, and the MCP and metrics endpoints when
// enabled. version is reported to MCP clients.
func (a *App) Adapter(version string) (*transporthttp.Adapter, error) {
	cfg := a.Config
	chain, err := NewAuthChain(cfg.Auth)
	if err != nil {
		return nil, err
	}

	bypass := auth.DefaultBypassEndpoints
	metrics := cfg.Observability.Metrics
	if metrics.Enabled && metrics.Path != "/metrics" {
		bypass = append([]string{metrics.Path}, bypass...)
	}

	adapterCfg := transporthttp.Config{
		MaxBodySize:    cfg.Server.MaxBodyBytes,
		RequestTimeout: cfg.Agent.RequestTimeout,
		Files:          a.Files,
	}
	if a.AuditStore != nil {
		adapterCfg.Audit = a.AuditStore
		adapterCfg.Ready = a.AuditStore.HealthCheck
	}

	opts := []transporthttp.AdapterOption{
		transporthttp.WithMiddleware(
			transport.Recovery(),
			transport.RequestID(),
			transport.Logging(slog.Default()),
		),
		transporthttp.WithHTTPMiddleware(
			auth.Middleware(chain, auth.NewLimiterFromConfig(cfg.Auth.RateLimits), bypass, auth.DefaultScopeRules...),
		),
	}
	if cfg.MCP.Serve {
		opts = append(opts, transporthttp.WithHandler(mcpserver.Path,
			mcpserver.Handler(mcpserver.NewServer(a.Agent, version))))
	}
	if metrics.Enabled {
		opts = append(opts, transporthttp.WithHandler("GET "+metrics.Path, promhttp.Handler()))
	}
	return transporthttp.NewAdapter(a.Agent, adapterCfg, opts...), nil
}

// Handler is a convenience for tests and embedding: the adapter's handler.
func (a *App) Handler(version string) (http.Handler, error) {
	adapter, err := a.Adapter(version)
	if err != nil {
		return nil, err
	}
	return adapter.Handler(), nil
}
