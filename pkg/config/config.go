// Package config provides unified configuration for the askdata server and
// CLI.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ASKDATA_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for askdata.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Agent         AgentConfig         `yaml:"agent"`
	Provider      ProviderConfig      `yaml:"provider"`
	Executor      ExecutorConfig      `yaml:"executor"`
	Database      DatabaseConfig      `yaml:"database"`
	Tools         ToolsConfig         `yaml:"tools"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge"`
	Audit         AuditConfig         `yaml:"audit"`
	Static        StaticConfig        `yaml:"static"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 6m, must exceed agent.request_timeout
	// PublicURL is the externally visible base URL, used for links to
	// generated files. Default: http://localhost:<port>.
	PublicURL    string `yaml:"public_url"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"` // default: 1 MiB
}

// AgentConfig holds the generation loop limits.
type AgentConfig struct {
	Rounds         int           `yaml:"rounds"`          // default: 3
	Attempts       int           `yaml:"attempts"`        // default: 2
	AlwaysInclude  []string      `yaml:"always_include"`  // default: [query_database]
	RequestTimeout time.Duration `yaml:"request_timeout"` // default: 5m
	DisplayRows    int           `yaml:"display_rows"`    // default: 10
}

// ProviderConfig selects and configures the model backend.
type ProviderConfig struct {
	Type        string        `yaml:"type"` // "openai", "anthropic" or "gemini", default: "openai"
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	APIKeyFile  string        `yaml:"api_key_file"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // default: 120s
	// TokensPerMinute throttles model calls when > 0.
	TokensPerMinute float64 `yaml:"tokens_per_minute"`
}

// ExecutorConfig selects where generated code runs.
type ExecutorConfig struct {
	Mode           string        `yaml:"mode"` // "local" or "remote", default: "local"
	AllowedImports []string      `yaml:"allowed_imports"`
	Sandbox        SandboxConfig `yaml:"sandbox"`
}

// SandboxConfig configures the remote sandbox runner.
type SandboxConfig struct {
	// URL of a static sandbox server. Ignored when Kubernetes.Template is set.
	URL        string                  `yaml:"url"`
	Timeout    time.Duration           `yaml:"timeout"` // default: 2m
	Kubernetes SandboxKubernetesConfig `yaml:"kubernetes"`
}

// SandboxKubernetesConfig claims sandbox pods through agent-sandbox.
type SandboxKubernetesConfig struct {
	Namespace    string        `yaml:"namespace"` // default: "default"
	Template     string        `yaml:"template"`
	Port         int           `yaml:"port"`          // default: 8080
	ReadyTimeout time.Duration `yaml:"ready_timeout"` // default: 60s
}

// DatabaseConfig configures the backend of the query_database, schools
// and population catalog tools.
type DatabaseConfig struct {
	Type     string   `yaml:"type"` // "sqlite" or "postgres", default: "sqlite"
	Path     string   `yaml:"path"` // sqlite file, default: "data/askdata.db"
	DSN      string   `yaml:"dsn"`
	DSNFile  string   `yaml:"dsn_file"`
	MaxConns int32    `yaml:"max_conns"` // default: 10
	Tables   []string `yaml:"tables"`
	MaxRows  int      `yaml:"max_rows"` // default: 5000
}

// ToolsConfig configures the builtin tools.
type ToolsConfig struct {
	// Enabled lists the tools to register. Empty means every tool whose
	// configuration is complete.
	Enabled    []string         `yaml:"enabled"`
	Chart      ChartConfig      `yaml:"chart"`
	Minimap    MinimapConfig    `yaml:"minimap"`
	Population PopulationConfig `yaml:"population"`
	Housing    HousingConfig    `yaml:"housing"`
	Schools    SchoolsConfig    `yaml:"schools"`
	WebSearch  WebSearchConfig  `yaml:"web_search"`
}

// ChartConfig configures draw_graph.
type ChartConfig struct {
	Retries int `yaml:"retries"` // default: 2
}

// MinimapConfig configures get_minimap.
type MinimapConfig struct {
	BaseURL string `yaml:"base_url"`
	Zoom    int    `yaml:"zoom"`
}

// PopulationConfig configures get_api_result.
type PopulationConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	TokenFile string        `yaml:"token_file"`
	Group     string        `yaml:"group"` // default: "Population Query"
	Timeout   time.Duration `yaml:"timeout"`
}

// HousingConfig configures house_price_prediction_model.
type HousingConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	TownStats string        `yaml:"town_stats"` // JSON file of town aggregates
	Timeout   time.Duration `yaml:"timeout"`
}

// SchoolsConfig configures find_schools_near_postcode.
type SchoolsConfig struct {
	RadiusKm float64 `yaml:"radius_km"` // default: 2
}

// WebSearchConfig configures web_search.
type WebSearchConfig struct {
	URL        string `yaml:"url"`
	Language   string `yaml:"language"`
	MaxResults int    `yaml:"max_results"` // default: 5
}

// KnowledgeConfig configures background knowledge retrieval.
type KnowledgeConfig struct {
	Type string `yaml:"type"` // "none", "static" or "qdrant", default: "none"
	Text string `yaml:"text"` // for type=static

	QdrantURL        string `yaml:"qdrant_url"`
	Collection       string `yaml:"collection"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantAPIKeyFile string `yaml:"qdrant_api_key_file"`

	EmbeddingURL        string `yaml:"embedding_url"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingAPIKey     string `yaml:"embedding_api_key"`
	EmbeddingAPIKeyFile string `yaml:"embedding_api_key_file"`
	Limit               int    `yaml:"limit"` // default: 10
}

// AuditConfig selects the audit sink.
type AuditConfig struct {
	Type     string              `yaml:"type"`     // "none", "memory", "postgres" or "redis", default: "memory"
	MaxSize  int                 `yaml:"max_size"` // for memory, default: 1000
	Postgres AuditPostgresConfig `yaml:"postgres"`
	Redis    AuditRedisConfig    `yaml:"redis"`
}

// AuditPostgresConfig holds PostgreSQL audit store settings.
type AuditPostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`

	StatementTimeout time.Duration `yaml:"statement_timeout"` // 0 = server default
}

// AuditRedisConfig holds Redis stream sink settings.
type AuditRedisConfig struct {
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"password_file"`
	DB           int    `yaml:"db"`
	Stream       string `yaml:"stream"`
	MaxLen       int64  `yaml:"max_len"`
}

// StaticConfig configures the generated file store.
type StaticConfig struct {
	Dir      string        `yaml:"dir"`      // default: "tmp_imgs"
	TTL      time.Duration `yaml:"ttl"`      // default: 24h
	Schedule string        `yaml:"schedule"` // default: "@hourly"
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // API key entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`
	// RateLimits maps service tiers to requests per minute; "default"
	// applies to tiers not listed. Zero disables limiting.
	RateLimits map[string]int `yaml:"rate_limits"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"`
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
	// Scopes granted to the key, e.g. "askdata:audit".
	Scopes []string `yaml:"scopes" json:"scopes"`
}

// JWTConfig holds bearer token validation settings.
type JWTConfig struct {
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	JWKSURL     string `yaml:"jwks_url"`
	UserClaim   string `yaml:"user_claim"`   // default: "sub"
	TenantClaim string `yaml:"tenant_claim"` // default: "tenant_id"
	ScopesClaim string `yaml:"scopes_claim"` // default: "scope"
	TierClaim   string `yaml:"tier_claim"`   // default: "tier"
	// CacheTTL bounds how long JWKS keys are trusted. Default: 1h.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Leeway   time.Duration `yaml:"leeway"`
}

// MCPConfig holds Model Context Protocol settings.
type MCPConfig struct {
	// Serve exposes the ask_data MCP tool at /mcp. Default: true.
	Serve   bool              `yaml:"serve"`
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a remote MCP server whose tools are offered to
// generated code.
type MCPServerConfig struct {
	Name      string            `yaml:"name" json:"name"`
	Transport string            `yaml:"transport" json:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url" json:"url"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
	Auth      MCPAuthConfig     `yaml:"auth" json:"auth"`
}

// MCPAuthConfig holds OAuth client credentials for an MCP server.
type MCPAuthConfig struct {
	Type             string   `yaml:"type" json:"type"` // "" or "oauth_client_credentials"
	TokenURL         string   `yaml:"token_url" json:"token_url"`
	ClientID         string   `yaml:"client_id" json:"client_id"`
	ClientIDFile     string   `yaml:"client_id_file" json:"client_id_file"`
	ClientSecret     string   `yaml:"client_secret" json:"client_secret"`
	ClientSecretFile string   `yaml:"client_secret_file" json:"client_secret_file"`
	Scopes           []string `yaml:"scopes" json:"scopes"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 6 * time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Agent: AgentConfig{
			Rounds:         3,
			Attempts:       2,
			AlwaysInclude:  []string{"query_database"},
			RequestTimeout: 5 * time.Minute,
			DisplayRows:    10,
		},
		Provider: ProviderConfig{
			Type:    "openai",
			Timeout: 120 * time.Second,
		},
		Executor: ExecutorConfig{
			Mode: "local",
			Sandbox: SandboxConfig{
				Timeout: 2 * time.Minute,
				Kubernetes: SandboxKubernetesConfig{
					Namespace:    "default",
					Port:         8080,
					ReadyTimeout: 60 * time.Second,
				},
			},
		},
		Database: DatabaseConfig{
			Type:     "sqlite",
			Path:     "data/askdata.db",
			MaxConns: 10,
			MaxRows:  5000,
		},
		Tools: ToolsConfig{
			Chart:      ChartConfig{Retries: 2},
			Population: PopulationConfig{Group: "Population Query"},
			Schools:    SchoolsConfig{RadiusKm: 2},
			WebSearch:  WebSearchConfig{MaxResults: 5},
		},
		Knowledge: KnowledgeConfig{
			Type:  "none",
			Limit: 10,
		},
		Audit: AuditConfig{
			Type:    "memory",
			MaxSize: 1000,
		},
		Static: StaticConfig{
			Dir:      "tmp_imgs",
			TTL:      24 * time.Hour,
			Schedule: "@hourly",
		},
		Auth: AuthConfig{
			Type: "none",
		},
		MCP: MCPConfig{
			Serve: true,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
