package transport

import (
	"context"

	"github.com/rhuss/askdata/pkg/api"
)

// RequestID returns middleware that makes sure every request carries an
// ID. An ID already in the context (from the X-Request-ID header) is kept.
func RequestID() Middleware {
	return func(next Questioner) Questioner {
		return QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, api.NewRequestID())
			}
			return next.Answer(ctx, req)
		})
	}
}
