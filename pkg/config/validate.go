package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, got string, allowed ...string) {
		if !slices.Contains(allowed, got) {
			errs = append(errs, fmt.Errorf("%s must be one of %q, got %q", field, allowed, got))
		}
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}
	if c.Agent.Rounds <= 0 {
		errs = append(errs, fmt.Errorf("agent.rounds must be > 0, got %d", c.Agent.Rounds))
	}
	if c.Agent.Attempts <= 0 {
		errs = append(errs, fmt.Errorf("agent.attempts must be > 0, got %d", c.Agent.Attempts))
	}
	if c.Agent.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("agent.request_timeout must be > 0"))
	} else if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Agent.RequestTimeout {
		errs = append(errs, fmt.Errorf("server.write_timeout (%s) must exceed agent.request_timeout (%s)",
			c.Server.WriteTimeout, c.Agent.RequestTimeout))
	}

	oneOf("provider.type", c.Provider.Type, "openai", "anthropic", "gemini")
	if c.Provider.Type == "openai" && c.Provider.BaseURL == "" {
		errs = append(errs, fmt.Errorf("provider.base_url is required when provider.type is \"openai\""))
	}
	if (c.Provider.Type == "anthropic" || c.Provider.Type == "gemini") && c.Provider.APIKey == "" {
		errs = append(errs, fmt.Errorf("provider.api_key or provider.api_key_file is required when provider.type is %q", c.Provider.Type))
	}

	oneOf("executor.mode", c.Executor.Mode, "local", "remote")
	if c.Executor.Mode == "remote" && c.Executor.Sandbox.URL == "" && c.Executor.Sandbox.Kubernetes.Template == "" {
		errs = append(errs, fmt.Errorf("executor.sandbox.url or executor.sandbox.kubernetes.template is required when executor.mode is \"remote\""))
	}

	oneOf("database.type", c.Database.Type, "sqlite", "postgres")
	if c.Database.Type == "postgres" && c.Database.DSN == "" {
		errs = append(errs, fmt.Errorf("database.dsn or database.dsn_file is required when database.type is \"postgres\""))
	}
	if c.Database.Type == "sqlite" && c.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required when database.type is \"sqlite\""))
	}

	oneOf("knowledge.type", c.Knowledge.Type, "none", "static", "qdrant")
	if c.Knowledge.Type == "qdrant" {
		if c.Knowledge.QdrantURL == "" || c.Knowledge.Collection == "" {
			errs = append(errs, fmt.Errorf("knowledge.qdrant_url and knowledge.collection are required when knowledge.type is \"qdrant\""))
		}
		if c.Knowledge.EmbeddingURL == "" || c.Knowledge.EmbeddingModel == "" {
			errs = append(errs, fmt.Errorf("knowledge.embedding_url and knowledge.embedding_model are required when knowledge.type is \"qdrant\""))
		}
	}

	oneOf("audit.type", c.Audit.Type, "none", "memory", "postgres", "redis")
	if c.Audit.Type == "postgres" && c.Audit.Postgres.DSN == "" {
		errs = append(errs, fmt.Errorf("audit.postgres.dsn or audit.postgres.dsn_file is required when audit.type is \"postgres\""))
	}
	if c.Audit.Type == "redis" && c.Audit.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("audit.redis.addr is required when audit.type is \"redis\""))
	}

	if c.Static.Dir == "" {
		errs = append(errs, fmt.Errorf("static.dir is required"))
	}
	if c.Static.TTL <= 0 {
		errs = append(errs, fmt.Errorf("static.ttl must be > 0"))
	}

	oneOf("auth.type", c.Auth.Type, "none", "apikey", "jwt")
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}

	for i, s := range c.MCP.Servers {
		if s.Name == "" || s.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d]: name and url are required", i))
		}
		switch s.Transport {
		case "", "sse", "streamable-http":
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, s.Transport))
		}
	}

	return errors.Join(errs...)
}
