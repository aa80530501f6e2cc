package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/static"
	"github.com/rhuss/askdata/pkg/tools"
	"github.com/rhuss/askdata/pkg/tools/builtins/chart"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
	"github.com/rhuss/askdata/pkg/tools/builtins/housing"
	"github.com/rhuss/askdata/pkg/tools/builtins/minimap"
	"github.com/rhuss/askdata/pkg/tools/builtins/population"
	"github.com/rhuss/askdata/pkg/tools/builtins/schools"
	"github.com/rhuss/askdata/pkg/tools/builtins/websearch"
	"github.com/rhuss/askdata/pkg/tools/mcp"
)

// deps are the shared components tool factories draw on.
type deps struct {
	cfg   *config.Config
	model provider.Provider
	db    database.Backend
	files *static.Store
}

// factory builds one catalog tool. configured reports whether the tool's
// configuration is complete enough to register it by default.
type factory struct {
	name       string
	configured func(*config.Config) bool
	build      func(context.Context, deps) (tools.Tool, error)
}

func always(*config.Config) bool { return true }

// factories lists the tools in registration order.
var factories = []factory{
	{"query_database", always, func(_ context.Context, d deps) (tools.Tool, error) {
		return database.New(d.db, d.model, database.Options{
			Tables:  d.cfg.Database.Tables,
			MaxRows: d.cfg.Database.MaxRows,
		}), nil
	}},
	{"draw_graph", always, func(_ context.Context, d deps) (tools.Tool, error) {
		return chart.New(d.model, d.files, d.cfg.Tools.Chart.Retries), nil
	}},
	{"get_minimap", always, func(_ context.Context, d deps) (tools.Tool, error) {
		return minimap.New(minimap.Options{BaseURL: d.cfg.Tools.Minimap.BaseURL, Zoom: d.cfg.Tools.Minimap.Zoom}), nil
	}},
	{"find_schools_near_postcode", always, func(_ context.Context, d deps) (tools.Tool, error) {
		return schools.New(d.db, schools.Options{DefaultRadiusKm: d.cfg.Tools.Schools.RadiusKm}), nil
	}},
	{"get_api_result",
		func(c *config.Config) bool { return c.Tools.Population.Token != "" },
		func(_ context.Context, d deps) (tools.Tool, error) {
			p := d.cfg.Tools.Population
			return population.New(population.Config{
				BaseURL: p.BaseURL,
				Token:   p.Token,
				Timeout: p.Timeout,
				Catalog: population.NewCatalog(d.db, p.Group),
				Model:   d.model,
			})
		}},
	{"house_price_prediction_model",
		func(c *config.Config) bool { return c.Tools.Housing.Endpoint != "" },
		func(_ context.Context, d deps) (tools.Tool, error) {
			h := d.cfg.Tools.Housing
			cfg := housing.Config{Endpoint: h.Endpoint, Timeout: h.Timeout, DB: d.db}
			if h.TownStats != "" {
				stats, err := housing.LoadTownStats(h.TownStats)
				if err != nil {
					return nil, err
				}
				cfg.TownStats = stats
			}
			return housing.New(cfg)
		}},
	{"web_search",
		func(c *config.Config) bool { return c.Tools.WebSearch.URL != "" },
		func(_ context.Context, d deps) (tools.Tool, error) {
			w := d.cfg.Tools.WebSearch
			return websearch.New(websearch.Config{URL: w.URL, Language: w.Language, MaxResults: w.MaxResults})
		}},
	{"call_mcp_tool",
		func(c *config.Config) bool { return len(c.MCP.Servers) > 0 },
		func(ctx context.Context, d deps) (tools.Tool, error) {
			return mcp.Connect(ctx, mcpServers(d.cfg.MCP.Servers)), nil
		}},
}

// ToolNames lists every tool the catalog can hold.
func ToolNames() []string {
	names := make([]string, len(factories))
	for i, f := range factories {
		names[i] = f.name
	}
	return names
}

// NewCatalog registers the tools listed in tools.enabled, or every
// configured tool when the list is empty.
func NewCatalog(ctx context.Context, cfg *config.Config, model provider.Provider, db database.Backend, files *static.Store) (*tools.Catalog, error) {
	enabled := cfg.Tools.Enabled
	for _, name := range enabled {
		if !slices.Contains(ToolNames(), name) {
			return nil, fmt.Errorf("tools.enabled: unknown tool %q (known: %s)", name, strings.Join(ToolNames(), ", "))
		}
	}

	d := deps{cfg: cfg, model: model, db: db, files: files}
	catalog := tools.NewCatalog()
	for _, f := range factories {
		if len(enabled) > 0 && !slices.Contains(enabled, f.name) {
			continue
		}
		if len(enabled) == 0 && !f.configured(cfg) {
			continue
		}
		t, err := f.build(ctx, d)
		if err != nil {
			catalog.Close()
			return nil, fmt.Errorf("creating tool %s: %w", f.name, err)
		}
		catalog.Register(t)
	}
	return catalog, nil
}

func mcpServers(servers []config.MCPServerConfig) []mcp.ServerConfig {
	out := make([]mcp.ServerConfig, len(servers))
	for i, s := range servers {
		out[i] = mcp.ServerConfig{
			Name:      s.Name,
			Transport: s.Transport,
			URL:       s.URL,
			Headers:   s.Headers,
			Auth: mcp.AuthConfig{
				Type:         s.Auth.Type,
				TokenURL:     s.Auth.TokenURL,
				ClientID:     s.Auth.ClientID,
				ClientSecret: s.Auth.ClientSecret,
				Scopes:       s.Auth.Scopes,
			},
		}
	}
	return out
}
