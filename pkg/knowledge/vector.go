package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/provider"
)

// NoKnowledge is the summarizer's answer when the hits are irrelevant.
const NoKnowledge = "no useful information in knowledge base"

const (
	defaultMaxKeywords = 5
	defaultLimit       = 10
	defaultParallelism = 4
)

// VectorConfig configures a Vector retriever.
type VectorConfig struct {
	Model    provider.Provider
	Embedder Embedder
	Index    Index

	// MaxKeywords caps the search phrases taken from the model (default 5).
	MaxKeywords int
	// Limit is the number of hits per phrase (default 10).
	Limit int
	// Parallelism bounds concurrent searches (default 4).
	Parallelism int
}

// Vector retrieves knowledge from a vector index. The model turns the
// question into search phrases; the question itself is always searched
// too. Hits of all phrases are merged by ID and summarized by the model.
type Vector struct {
	cfg VectorConfig
}

// NewVector creates a Vector retriever.
func NewVector(cfg VectorConfig) (*Vector, error) {
	if cfg.Model == nil || cfg.Embedder == nil || cfg.Index == nil {
		return nil, fmt.Errorf("knowledge: model, embedder and index are required")
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = defaultMaxKeywords
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultLimit
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	return &Vector{cfg: cfg}, nil
}

func (v *Vector) Retrieve(ctx context.Context, question string) (string, error) {
	phrases := []string{question}
	answer, err := provider.Ask(ctx, v.cfg.Model, "", splitPrompt(question))
	if err != nil {
		slog.Warn("knowledge keyword extraction failed, searching the question only", "error", err)
	} else {
		phrases = append(phrases, Keywords(answer, v.cfg.MaxKeywords)...)
	}
	debug.Log("knowledge", "search phrases", "phrases", phrases)

	vectors, err := v.cfg.Embedder.Embed(ctx, phrases)
	if err != nil {
		return "", fmt.Errorf("embedding search phrases: %w", err)
	}

	results := make([][]Passage, len(vectors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Parallelism)
	for i, vec := range vectors {
		g.Go(func() error {
			hits, err := v.cfg.Index.Search(gctx, vec, v.cfg.Limit)
			if err != nil {
				return fmt.Errorf("searching %q: %w", phrases[i], err)
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	passages := Merge(results...)
	if len(passages) == 0 {
		return "", nil
	}
	summary, err := provider.Ask(ctx, v.cfg.Model, "", summarizePrompt(question, passages))
	if err != nil {
		return "", fmt.Errorf("summarizing knowledge: %w", err)
	}
	if strings.Contains(strings.ToLower(summary), NoKnowledge) {
		return "", nil
	}
	return summary, nil
}

// Keywords splits a comma separated model answer into at most max
// distinct phrases.
func Keywords(answer string, max int) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.FieldsFunc(answer, func(r rune) bool { return r == ',' || r == '\n' }) {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, part)
		if len(out) == max {
			break
		}
	}
	return out
}

// Merge de-duplicates passages by ID keeping the best score, ordered by
// descending score.
func Merge(results ...[]Passage) []Passage {
	best := make(map[string]Passage)
	for _, hits := range results {
		for _, p := range hits {
			if cur, ok := best[p.ID]; !ok || p.Score > cur.Score {
				best[p.ID] = p
			}
		}
	}
	out := make([]Passage, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func splitPrompt(question string) string {
	return `You need to generate some key words and phrases based on the question provided.
These phrases will be used as the input of a retrieval system over a knowledge base.

Here is the question:
` + question + `

Remind:
1. Only return the phrases separated by ",".
2. The retrieval system is not a database, look for background knowledge.
3. Do not add any explanations.

Example 1:
score to GPA, graduation requirement
Example 2:
district housing prices, school distribution, transport planning`
}

func summarizePrompt(question string, passages []Passage) string {
	var b strings.Builder
	b.WriteString("This is the information from search:\n")
	for _, p := range passages {
		if p.Source != "" {
			fmt.Fprintf(&b, "[%s] ", p.Source)
		}
		b.WriteString(strings.TrimSpace(p.Content))
		b.WriteString("\n")
	}
	b.WriteString("\nPlease summarize it to provide information related to the question:\n")
	b.WriteString(question)
	b.WriteString(`

Remind:
1. Do not try to answer the question or solve the problem, just provide information.
2. Do not mention what you do not know.
3. Indicate the source of the content you cite.
4. If nothing is useful, reply exactly "` + NoKnowledge + `".`)
	return b.String()
}
