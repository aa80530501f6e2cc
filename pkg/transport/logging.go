package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/debug"
)

// Logging returns middleware that logs one entry per question with its
// request ID, mode, outcome and duration. HTTP status codes are logged by
// the HTTP adapter.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Questioner) Questioner {
		return QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
			start := time.Now()
			resp, err := next.Answer(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.String("mode", string(req.Mode)),
				slog.String("question", debug.Truncate(req.Question, 120)),
				slog.Duration("duration", time.Since(start)),
			}
			switch {
			case err != nil:
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "question failed", attrs...)
			case resp != nil && resp.Type == api.TypeError:
				logger.LogAttrs(ctx, slog.LevelWarn, "question not answered", attrs...)
			default:
				logger.LogAttrs(ctx, slog.LevelInfo, "question answered", attrs...)
			}
			return resp, err
		})
	}
}
