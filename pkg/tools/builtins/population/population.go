// Package population implements get_api_result, which calls the
// population statistics API with a relative URL, and selects the API
// documentation relevant to a question for the prompt.
package population

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/tools"
)

// DefaultBaseURL is the OneMap host serving the population API.
const DefaultBaseURL = "https://www.onemap.gov.sg"

const doc = `GetAPIResult(url string) (any, error)
Get data from the population API (population data sets by the Department of Statistics: age group, economic status, education status, household size etc. by planning area or subzone) with a relative URL.
Returns the decoded JSON result (map[string]any or []any), or nil when the API has no data.

Args:
- url: the relative URL of the request. Use a relative URL, never a full URL.

Example:
	res, err := tools.GetAPIResult("/api/public/popapi/getEconomicStatus?planningArea=Bedok&year=2010&gender=male")
	if err != nil || res == nil {
		yield("No population data available.")
		return
	}
	yield(res)`

// Config configures the tool.
type Config struct {
	// BaseURL is prepended to relative URLs (default: DefaultBaseURL).
	BaseURL string

	// Token is sent as the Authorization header value.
	Token string

	// Timeout bounds one request (default: 30s).
	Timeout time.Duration

	// Catalog provides endpoint documentation. Optional.
	Catalog *Catalog

	// Model selects endpoints from the catalog. Required with Catalog.
	Model provider.Provider

	HTTPClient *http.Client
}

// Tool is the get_api_result tool.
type Tool struct {
	cfg    Config
	base   *url.URL
	client *http.Client
}

var (
	_ tools.Tool            = (*Tool)(nil)
	_ tools.ContextProvider = (*Tool)(nil)
)

// New creates the tool.
func New(cfg Config) (*Tool, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid population API base URL %q", cfg.BaseURL)
	}
	if cfg.Catalog != nil && cfg.Model == nil {
		return nil, fmt.Errorf("population API catalog requires a model")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Tool{cfg: cfg, base: base, client: client}, nil
}

func (t *Tool) Name() string { return "get_api_result" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"GetAPIResult": reflect.ValueOf(func(u string) (any, error) {
			return t.Get(ctx, u)
		}),
	}
}

// PromptContext returns the documentation of the endpoints the model
// considers relevant to question.
func (t *Tool) PromptContext(ctx context.Context, question string) (string, error) {
	if t.cfg.Catalog == nil {
		return "", nil
	}
	names, err := t.cfg.Catalog.Select(ctx, t.cfg.Model, question)
	if err != nil || len(names) == 0 {
		return "", err
	}
	apis, err := t.cfg.Catalog.Details(ctx, names)
	if err != nil || len(apis) == 0 {
		return "", err
	}
	debug.Log("tools", "selected population APIs", "names", names)
	return "The population API documentation:\n" + Render(apis), nil
}

// Get requests rel and decodes the JSON body. Any non-200 response
// returns nil without an error.
func (t *Tool) Get(ctx context.Context, rel string) (any, error) {
	target, err := t.resolve(rel)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if t.cfg.Token != "" {
		req.Header.Set("Authorization", t.cfg.Token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling population API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		slog.Warn("population API request failed", "url", target, "status", resp.StatusCode)
		return nil, nil
	}
	var out any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding population API response: %w", err)
	}
	return out, nil
}

// resolve joins rel onto the base URL. Absolute URLs are accepted only
// for the configured host.
func (t *Tool) resolve(rel string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rel))
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", rel, err)
	}
	if u.IsAbs() {
		if u.Host != t.base.Host {
			return "", fmt.Errorf("API URL %q must be relative", rel)
		}
		u.Scheme, u.Host = "", ""
	}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return t.base.String() + u.RequestURI(), nil
}
