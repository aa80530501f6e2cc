package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/transport"
)

var _ transport.Questioner = (*Agent)(nil)

// Answer implements transport.Questioner. Questions that cannot be
// answered become failure envelopes; only invalid modes are errors.
func (a *Agent) Answer(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
	switch req.Mode {
	case api.ModeAgent, "":
		return a.answerAgent(ctx, req.Question), nil
	case api.ModeSummary:
		return a.answerText(ctx, req.Question, a.Summarize), nil
	case api.ModePlan:
		return a.answerText(ctx, req.Question, a.Plan), nil
	}
	return nil, api.NewInvalidRequestError("mode", "unknown mode "+string(req.Mode))
}

func (a *Agent) answerAgent(ctx context.Context, question string) *api.AskResponse {
	ans, err := a.Ask(ctx, question)
	if err != nil {
		if !errors.Is(err, ErrNoAnswer) {
			slog.Error("answering question failed", "request_id", transport.RequestIDFromContext(ctx), "error", err)
		}
		return api.Failure(question)
	}

	resp := api.Success(question, ans.Text())
	resp.Map = ans.Map
	resp.Images = ans.Images
	resp.Code = ans.Code
	resp.Rounds = ans.Rounds
	if a.cfg.Audit != nil {
		resp.AuditID = ans.AuditID
	}
	return resp
}

func (a *Agent) answerText(ctx context.Context, question string, fn func(context.Context, string) (string, error)) *api.AskResponse {
	text, err := fn(ctx, question)
	if err != nil {
		slog.Warn("answering question without code failed", "request_id", transport.RequestIDFromContext(ctx), "error", err)
		return api.Failure(question)
	}
	return api.Success(question, text)
}
