// Package ratelimit wraps a provider.Provider with a tokens-per-minute
// budget enforced by golang.org/x/time/rate. The budget halves when the
// backend reports rate limiting and creeps back up on success.
package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/provider"
)

// minEstimate is charged for requests with almost no text so that tiny
// prompts still consume budget.
const minEstimate = 500

// Limiter is a process-local adaptive token bucket shared by all requests
// to one backend.
type Limiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	current  float64
	min, max float64
	recovery float64
}

// New creates a Limiter starting at tpm tokens per minute. The budget never
// drops below a tenth of tpm.
func New(tpm float64) *Limiter {
	return &Limiter{
		limiter:  rate.NewLimiter(rate.Limit(tpm/60.0), int(tpm)),
		current:  tpm,
		min:      tpm / 10,
		max:      tpm,
		recovery: tpm / 20,
	}
}

// Wrap returns p guarded by the limiter.
func (l *Limiter) Wrap(p provider.Provider) provider.Provider {
	return &limited{Provider: p, limiter: l}
}

// TPM returns the current budget in tokens per minute.
func (l *Limiter) TPM() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

type limited struct {
	provider.Provider
	limiter *Limiter
}

func (c *limited) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if err := c.limiter.wait(ctx, req); err != nil {
		return nil, provider.Unavailable(c.Name(), err)
	}
	resp, err := c.Provider.Complete(ctx, req)
	c.limiter.observe(err)
	return resp, err
}

func (l *Limiter) wait(ctx context.Context, req *provider.Request) error {
	n := estimateTokens(req)
	l.mu.Lock()
	if burst := l.limiter.Burst(); n > burst {
		n = burst
	}
	l.mu.Unlock()
	return l.limiter.WaitN(ctx, n)
}

func (l *Limiter) observe(err error) {
	switch {
	case err == nil:
		l.set(l.current + l.recovery)
	case isRateLimited(err):
		l.set(l.current * 0.5)
	}
}

func (l *Limiter) set(tpm float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tpm = max(l.min, min(l.max, tpm))
	if tpm == l.current {
		return
	}
	debug.Log("providers", "adjusting model rate limit", "from_tpm", l.current, "to_tpm", tpm)
	l.current = tpm
	l.limiter.SetLimit(rate.Limit(tpm / 60.0))
	l.limiter.SetBurst(int(tpm))
}

func isRateLimited(err error) bool {
	var apiErr *api.APIError
	return errors.As(err, &apiErr) && apiErr.Type == api.ErrorTypeTooManyRequests
}

// estimateTokens approximates one token per three characters of prompt and
// system text plus the requested completion length.
func estimateTokens(req *provider.Request) int {
	n := (len(req.Prompt)+len(req.System))/3 + req.MaxTokens
	if n < minEstimate {
		return minEstimate
	}
	return n
}
