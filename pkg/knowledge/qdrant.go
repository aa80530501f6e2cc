package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Passage is one search hit.
type Passage struct {
	ID      string
	Score   float32
	Content string
	Source  string
}

// Index finds passages near a vector.
type Index interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Passage, error)
}

// Qdrant searches one collection through the Qdrant HTTP API. Points are
// expected to carry "content" and optionally "source" in their payload.
type Qdrant struct {
	BaseURL    string
	Collection string
	APIKey     string
	HTTPClient *http.Client
}

var _ Index = (*Qdrant)(nil)

// NewQdrant creates a Qdrant index for collection.
func NewQdrant(url, collection, apiKey string) *Qdrant {
	return &Qdrant{
		BaseURL:    strings.TrimRight(url, "/"),
		Collection: collection,
		APIKey:     apiKey,
		HTTPClient: &http.Client{},
	}
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      any            `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

// Search performs a nearest-neighbor search.
// POST /collections/{name}/points/search
func (q *Qdrant) Search(ctx context.Context, vector []float32, limit int) ([]Passage, error) {
	data, err := json.Marshal(qdrantSearchRequest{Vector: vector, Limit: limit, WithPayload: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", q.BaseURL, q.Collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.APIKey != "" {
		req.Header.Set("api-key", q.APIKey)
	}

	resp, err := q.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("qdrant search returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var searchResp qdrantSearchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	out := make([]Passage, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		p := Passage{ID: fmt.Sprintf("%v", r.ID), Score: r.Score}
		p.Content, _ = r.Payload["content"].(string)
		p.Source, _ = r.Payload["source"].(string)
		if p.Content != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
