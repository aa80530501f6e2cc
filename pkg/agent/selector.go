package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/tools"
)

// SolvedMarker is the selector answer for questions the background
// knowledge already answers.
const SolvedMarker = "solved"

// Selection is the outcome of tool selection.
type Selection struct {
	// Solved means the knowledge answers the question without code.
	Solved bool
	Tools  []string
}

// Selector picks the tools a question needs.
type Selector interface {
	Select(ctx context.Context, question, knowledge string) (*Selection, error)
}

// ModelSelector asks the model for a comma separated list of tool names,
// or the single word "solved".
type ModelSelector struct {
	Model   provider.Provider
	Catalog *tools.Catalog
}

func (s *ModelSelector) Select(ctx context.Context, question, knowledge string) (*Selection, error) {
	answer, err := provider.Ask(ctx, s.Model, "", s.prompt(question, knowledge))
	if err != nil {
		return nil, fmt.Errorf("selecting tools: %w", err)
	}
	sel := ParseSelection(answer, s.Catalog.Names())
	debug.Log("agent", "tool selection", "answer", answer, "solved", sel.Solved, "tools", sel.Tools)
	return sel, nil
}

func (s *ModelSelector) prompt(question, knowledge string) string {
	var b strings.Builder
	b.WriteString("Question: " + question + "\n")
	if knowledge != "" {
		b.WriteString("\nBase knowledge:\n" + knowledge + "\n")
	}
	b.WriteString(`
Select the functions needed to answer the question.
You can select multiple functions. Choose as many as needed to make sure the question can be solved.

Here are the functions you can use:
`)
	b.WriteString(s.Catalog.Descriptions())
	b.WriteString(`
Only return the names of the functions separated by ",".
If the question is already answered by the base knowledge, return the single word "solved".
Do not add any explanation.

Example 1:
draw_graph, query_database
Example 2:
solved
`)
	return b.String()
}

// ParseSelection interprets a selector answer. Names not in known are
// dropped; the order of first mention is kept.
func ParseSelection(answer string, known []string) *Selection {
	clean := func(s string) string {
		return strings.Trim(strings.TrimSpace(s), "`\"'.-* ")
	}
	if strings.EqualFold(clean(answer), SolvedMarker) {
		return &Selection{Solved: true}
	}

	sel := &Selection{}
	for _, part := range strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == '\n' }) {
		name := strings.ToLower(clean(part))
		if slices.Contains(known, name) && !slices.Contains(sel.Tools, name) {
			sel.Tools = append(sel.Tools, name)
		}
	}
	return sel
}

// withRequired appends the always-included tools missing from names.
func withRequired(names, required []string, known []string) []string {
	out := slices.Clone(names)
	for _, r := range required {
		if slices.Contains(known, r) && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
}
