package population

import (
	"context"
	"fmt"
	"strings"

	"github.com/rhuss/askdata/pkg/frame"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/tools/builtins/database"
)

// DefaultGroup is the api_group holding the population endpoints.
const DefaultGroup = "Population Query"

// API documents one endpoint of the population API.
type API struct {
	Name        string
	Description string
	URL         string
	Docs        string
}

// Catalog reads endpoint documentation from the api_info table.
type Catalog struct {
	db    database.Backend
	group string
}

// NewCatalog creates a catalog over db restricted to group.
func NewCatalog(db database.Backend, group string) *Catalog {
	if group == "" {
		group = DefaultGroup
	}
	return &Catalog{db: db, group: group}
}

// Summaries returns name and description of every endpoint in the group.
func (c *Catalog) Summaries(ctx context.Context) ([]API, error) {
	f, err := c.db.Query(ctx,
		"SELECT api_name, api_description FROM api_info WHERE api_group = ? ORDER BY api_name", 0, c.group)
	if err != nil {
		return nil, fmt.Errorf("listing APIs: %w", err)
	}
	out := make([]API, 0, f.Len())
	for _, r := range f.Rows {
		out = append(out, API{Name: frame.Format(r[0]), Description: frame.Format(r[1])})
	}
	return out, nil
}

// Details returns the full documentation of the named endpoints. Unknown
// names are ignored.
func (c *Catalog) Details(ctx context.Context, names []string) ([]API, error) {
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(names)+1)
	args = append(args, c.group)
	for _, n := range names {
		args = append(args, n)
	}
	query := "SELECT api_name, api_description, api_url, api_docs FROM api_info WHERE api_group = ? AND api_name IN (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ") ORDER BY api_name"
	f, err := c.db.Query(ctx, query, 0, args...)
	if err != nil {
		return nil, fmt.Errorf("reading API docs: %w", err)
	}
	out := make([]API, 0, f.Len())
	for _, r := range f.Rows {
		out = append(out, API{
			Name:        frame.Format(r[0]),
			Description: frame.Format(r[1]),
			URL:         frame.Format(r[2]),
			Docs:        frame.Format(r[3]),
		})
	}
	return out, nil
}

// Select asks model which endpoints help answer question. It returns nil
// when the model answers "no".
func (c *Catalog) Select(ctx context.Context, model provider.Provider, question string) ([]string, error) {
	apis, err := c.Summaries(ctx)
	if err != nil || len(apis) == 0 {
		return nil, err
	}
	text, err := provider.Ask(ctx, model, "", selectPrompt(question, apis))
	if err != nil {
		return nil, fmt.Errorf("selecting APIs: %w", err)
	}
	text = strings.Trim(strings.TrimSpace(text), "`\"'.")
	if strings.EqualFold(text, "no") {
		return nil, nil
	}
	var names []string
	for _, n := range strings.Split(text, ",") {
		if n = strings.Trim(strings.TrimSpace(n), "`\"'"); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

func selectPrompt(question string, apis []API) string {
	var b strings.Builder
	b.WriteString("Question: " + question + "\n\n")
	b.WriteString("Select the APIs needed to answer the question. You can select several APIs, choose as many as necessary to make sure the question can be solved.\n\n")
	b.WriteString("Available APIs:\n")
	for _, a := range apis {
		fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Description)
	}
	b.WriteString("\nReply only with the API names separated by \",\".\n")
	b.WriteString("If none of the APIs is helpful, reply with the single word: no\n\n")
	b.WriteString("Example 1:\ngetEconomicStatus, getEducationAttending\nExample 2:\nno")
	return b.String()
}

// Render formats endpoint documentation for the code generation prompt.
func Render(apis []API) string {
	var b strings.Builder
	for _, a := range apis {
		fmt.Fprintf(&b, "%s: %s\nURL: %s\n%s\n\n", a.Name, a.Description, a.URL, strings.TrimSpace(a.Docs))
	}
	return strings.TrimRight(b.String(), "\n")
}
