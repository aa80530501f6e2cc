// Package knowledge retrieves background knowledge for a question. The
// text is shown to the model when selecting tools and generating code, and
// becomes the "Base knowledge" section of the answer.
package knowledge

import "context"

// Retriever returns background knowledge for a question. An empty string
// means nothing relevant is known.
type Retriever interface {
	Retrieve(ctx context.Context, question string) (string, error)
}

// Static returns the same text for every question. The zero value returns
// no knowledge.
type Static struct {
	Text string
}

func (s Static) Retrieve(context.Context, string) (string, error) {
	return s.Text, nil
}
