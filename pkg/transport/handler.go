package transport

import (
	"context"

	"github.com/rhuss/askdata/pkg/api"
)

// Questioner answers one question. Implementations must honor context
// cancellation and be safe for concurrent use.
type Questioner interface {
	Answer(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error)
}

// QuestionerFunc adapts a function to the Questioner interface.
type QuestionerFunc func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error)

// Answer calls f(ctx, req).
func (f QuestionerFunc) Answer(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
	return f(ctx, req)
}
