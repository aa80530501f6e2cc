package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ASKDATA_CONFIG env, ./config.yaml, /etc/askdata/config.yaml)
//  3. ASKDATA_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ASKDATA_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/askdata/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("ASKDATA_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/askdata/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// envString, envInt and friends apply one variable when it is set.
func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = n
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

func envList(name string, dst *[]string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// applyEnvOverrides maps ASKDATA_* environment variables to config fields.
// Malformed numbers and durations are errors rather than silently ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	collect(envInt("ASKDATA_PORT", &cfg.Server.Port))
	envString("ASKDATA_PUBLIC_URL", &cfg.Server.PublicURL)

	collect(envInt("ASKDATA_ROUNDS", &cfg.Agent.Rounds))
	collect(envInt("ASKDATA_ATTEMPTS", &cfg.Agent.Attempts))
	collect(envDuration("ASKDATA_REQUEST_TIMEOUT", &cfg.Agent.RequestTimeout))
	envList("ASKDATA_ALWAYS_INCLUDE", &cfg.Agent.AlwaysInclude)

	envString("ASKDATA_PROVIDER", &cfg.Provider.Type)
	envString("ASKDATA_PROVIDER_URL", &cfg.Provider.BaseURL)
	envString("ASKDATA_MODEL", &cfg.Provider.Model)
	envString("ASKDATA_API_KEY", &cfg.Provider.APIKey)

	envString("ASKDATA_EXECUTOR", &cfg.Executor.Mode)
	envString("ASKDATA_SANDBOX_URL", &cfg.Executor.Sandbox.URL)

	envString("ASKDATA_DATABASE", &cfg.Database.Type)
	envString("ASKDATA_DATABASE_PATH", &cfg.Database.Path)
	envString("ASKDATA_DATABASE_DSN", &cfg.Database.DSN)

	envList("ASKDATA_TOOLS", &cfg.Tools.Enabled)
	envString("ASKDATA_POPULATION_URL", &cfg.Tools.Population.BaseURL)
	envString("ASKDATA_POPULATION_TOKEN", &cfg.Tools.Population.Token)
	envString("ASKDATA_HOUSING_ENDPOINT", &cfg.Tools.Housing.Endpoint)
	envString("ASKDATA_SEARCH_URL", &cfg.Tools.WebSearch.URL)

	envString("ASKDATA_KNOWLEDGE", &cfg.Knowledge.Type)
	envString("ASKDATA_QDRANT_URL", &cfg.Knowledge.QdrantURL)

	envString("ASKDATA_AUDIT", &cfg.Audit.Type)
	envString("ASKDATA_AUDIT_DSN", &cfg.Audit.Postgres.DSN)
	envString("ASKDATA_REDIS_ADDR", &cfg.Audit.Redis.Addr)

	envString("ASKDATA_STATIC_DIR", &cfg.Static.Dir)
	collect(envDuration("ASKDATA_STATIC_TTL", &cfg.Static.TTL))

	envString("ASKDATA_AUTH_TYPE", &cfg.Auth.Type)

	// ASKDATA_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("ASKDATA_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			errs = append(errs, err)
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	// ASKDATA_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("ASKDATA_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err != nil {
			errs = append(errs, err)
		} else if len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}

	return errors.Join(errs...)
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing ASKDATA_API_KEYS: %w", err)
	}
	return keys, nil
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var servers []MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing ASKDATA_MCP_SERVERS: %w", err)
	}
	return servers, nil
}

// secretRef pairs a value field with its _file variant.
type secretRef struct {
	path  string
	value *string
	file  string
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []secretRef{
		{"provider.api_key_file", &cfg.Provider.APIKey, cfg.Provider.APIKeyFile},
		{"database.dsn_file", &cfg.Database.DSN, cfg.Database.DSNFile},
		{"tools.population.token_file", &cfg.Tools.Population.Token, cfg.Tools.Population.TokenFile},
		{"knowledge.qdrant_api_key_file", &cfg.Knowledge.QdrantAPIKey, cfg.Knowledge.QdrantAPIKeyFile},
		{"knowledge.embedding_api_key_file", &cfg.Knowledge.EmbeddingAPIKey, cfg.Knowledge.EmbeddingAPIKeyFile},
		{"audit.postgres.dsn_file", &cfg.Audit.Postgres.DSN, cfg.Audit.Postgres.DSNFile},
		{"audit.redis.password_file", &cfg.Audit.Redis.Password, cfg.Audit.Redis.PasswordFile},
	}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		refs = append(refs, secretRef{fmt.Sprintf("auth.api_keys[%d].key_file", i), &k.Key, k.KeyFile})
	}
	for i := range cfg.MCP.Servers {
		a := &cfg.MCP.Servers[i].Auth
		refs = append(refs,
			secretRef{fmt.Sprintf("mcp.servers[%d].auth.client_id_file", i), &a.ClientID, a.ClientIDFile},
			secretRef{fmt.Sprintf("mcp.servers[%d].auth.client_secret_file", i), &a.ClientSecret, a.ClientSecretFile},
		)
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.path, err)
		}
		*ref.value = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
