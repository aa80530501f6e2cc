package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rhuss/askdata/pkg/api"
)

// Recovery returns middleware that converts a panic in the Questioner into
// a server error. The server keeps accepting requests afterwards.
func Recovery() Middleware {
	return func(next Questioner) Questioner {
		return QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (resp *api.AskResponse, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic while answering", "request_id", RequestIDFromContext(ctx), "panic", r, "stack", string(debug.Stack()))
					resp = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Answer(ctx, req)
		})
	}
}
