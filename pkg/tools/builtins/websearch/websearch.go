// Package websearch implements the web_search tool for facts that are
// neither in the database nor in the knowledge base.
package websearch

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/tools"
)

const doc = `WebSearch(query string) (*frame.Frame, error)
Search the web for current information that is not in the database.
Returns a frame with the columns title, url and snippet.

Example:
	hits, err := tools.WebSearch("HDB resale levy 2025")
	if err != nil {
		yield(err)
		return
	}
	yield(hits)`

// Config configures the tool.
type Config struct {
	// Backend selects the search backend (default: "searxng").
	Backend string

	// URL is the base URL of the search backend.
	URL string

	// Language restricts results, e.g. "en".
	Language string

	// MaxResults caps the hits returned (default: 5).
	MaxResults int
}

// Tool is the web_search tool.
type Tool struct {
	adapter    SearchAdapter
	maxResults int
}

var _ tools.Tool = (*Tool)(nil)

// New creates the tool from configuration.
func New(cfg Config) (*Tool, error) {
	if cfg.Backend == "" {
		cfg.Backend = "searxng"
	}
	var adapter SearchAdapter
	switch cfg.Backend {
	case "searxng":
		if cfg.URL == "" {
			return nil, fmt.Errorf("web_search: url is required for the searxng backend")
		}
		sx := NewSearXNG(cfg.URL)
		sx.Language = cfg.Language
		adapter = sx
	default:
		return nil, fmt.Errorf("web_search: unknown backend %q", cfg.Backend)
	}
	return NewWithAdapter(adapter, cfg.MaxResults), nil
}

// NewWithAdapter creates the tool over any search backend.
func NewWithAdapter(adapter SearchAdapter, maxResults int) *Tool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Tool{adapter: adapter, maxResults: maxResults}
}

func (t *Tool) Name() string { return "web_search" }
func (t *Tool) Doc() string  { return doc }

func (t *Tool) Imports() []string { return []string{`import "askdata/frame"`} }

func (t *Tool) Symbols(ctx context.Context) map[string]reflect.Value {
	return map[string]reflect.Value{
		"WebSearch": reflect.ValueOf(func(query string) (*frame.Frame, error) {
			return t.Search(ctx, query)
		}),
	}
}

// Search runs query and returns the hits as a frame.
func (t *Tool) Search(ctx context.Context, query string) (*frame.Frame, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	results, err := t.adapter.Search(ctx, query, t.maxResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	f := frame.New([]string{"title", "url", "snippet"}, nil)
	for _, r := range results {
		f.Append(r.Title, r.URL, r.Snippet)
	}
	return f, nil
}
