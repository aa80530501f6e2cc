package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/observability"
)

type instrumented struct {
	Provider
	defaultModel string
}

// Instrument wraps p to record request counts, latency and token usage.
// defaultModel labels requests that do not name a model.
func Instrument(p Provider, defaultModel string) Provider {
	return &instrumented{Provider: p, defaultModel: defaultModel}
}

func (i *instrumented) Complete(ctx context.Context, req *Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = i.defaultModel
	}
	name := i.Name()

	debug.Log("providers", "completion request", "provider", name, "model", model, "prompt_chars", len(req.Prompt))
	debug.Trace("providers", "prompt", "provider", name, "prompt", debug.Truncate(req.Prompt, 4000))

	start := time.Now()
	resp, err := i.Provider.Complete(ctx, req)
	observability.ProviderLatency.WithLabelValues(name, model).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ProviderRequestsTotal.WithLabelValues(name, model, "error").Inc()
		slog.Warn("model request failed", "provider", name, "model", model, "error", err)
		return nil, err
	}

	observability.ProviderRequestsTotal.WithLabelValues(name, model, "ok").Inc()
	observability.ProviderTokensTotal.WithLabelValues(name, model, "input").Add(float64(resp.Usage.InputTokens))
	observability.ProviderTokensTotal.WithLabelValues(name, model, "output").Add(float64(resp.Usage.OutputTokens))
	debug.Trace("providers", "completion", "provider", name, "text", debug.Truncate(resp.Text, 4000))
	return resp, nil
}
