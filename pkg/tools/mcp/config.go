package mcp

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name identifies the server in logs and tool routing.
	Name string `yaml:"name"`

	// Transport is "streamable-http" (default) or "sse".
	Transport string `yaml:"transport"`

	// URL is the MCP endpoint.
	URL string `yaml:"url"`

	// Headers are sent with every request, e.g. an API key.
	Headers map[string]string `yaml:"headers"`

	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig configures dynamic authentication.
type AuthConfig struct {
	// Type is empty (static headers only) or "oauth_client_credentials".
	Type         string   `yaml:"type"`
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}
