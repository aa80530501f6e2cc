package ratelimit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/provider"
)

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) Name() string { return "stub" }
func (s *stubProvider) Close() error { return nil }
func (s *stubProvider) Complete(context.Context, *provider.Request) (*provider.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Response{Text: "ok"}, nil
}

func TestBackoffAndRecovery(t *testing.T) {
	l := New(60000)
	stub := &stubProvider{err: provider.Unavailable("stub", api.NewTooManyRequestsError("slow down"))}
	p := l.Wrap(stub)

	if _, err := p.Complete(context.Background(), &provider.Request{Prompt: "q"}); err == nil {
		t.Fatal("expected error")
	}
	if got := l.TPM(); got != 30000 {
		t.Errorf("expected budget halved to 30000, got %v", got)
	}

	stub.err = nil
	if _, err := p.Complete(context.Background(), &provider.Request{Prompt: "q"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := l.TPM(); got != 33000 {
		t.Errorf("expected budget recovered to 33000, got %v", got)
	}
}

func TestBudgetBounds(t *testing.T) {
	l := New(1000)
	for i := 0; i < 10; i++ {
		l.observe(api.NewTooManyRequestsError("x"))
	}
	if got := l.TPM(); got != 100 {
		t.Errorf("expected floor of 100, got %v", got)
	}
	for i := 0; i < 100; i++ {
		l.observe(nil)
	}
	if got := l.TPM(); got != 1000 {
		t.Errorf("expected ceiling of 1000, got %v", got)
	}
}

func TestOtherErrorsKeepBudget(t *testing.T) {
	l := New(1000)
	l.observe(errors.New("connection reset"))
	if got := l.TPM(); got != 1000 {
		t.Errorf("expected unchanged budget, got %v", got)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	l := New(600)
	p := l.Wrap(&stubProvider{})
	big := &provider.Request{Prompt: strings.Repeat("x", 1800)}

	if _, err := p.Complete(context.Background(), big); err != nil {
		t.Fatalf("first call should use the initial burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Complete(ctx, big)
	if !errors.Is(err, provider.ErrModelUnavailable) {
		t.Errorf("expected ErrModelUnavailable once the bucket is drained, got %v", err)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens(&provider.Request{Prompt: "hi"}); got != minEstimate {
		t.Errorf("expected minimum estimate, got %d", got)
	}
	if got := estimateTokens(&provider.Request{Prompt: strings.Repeat("x", 3000), MaxTokens: 200}); got != 1200 {
		t.Errorf("expected 1200, got %d", got)
	}
}
