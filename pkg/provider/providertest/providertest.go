// Package providertest provides a scripted provider.Provider for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rhuss/askdata/pkg/provider"
)

// Reply is one scripted answer. Err takes precedence over Text.
type Reply struct {
	Text string
	Err  error
}

// Scripted answers requests with its replies in order. Once the script is
// exhausted it returns Fallback, or an error when Fallback is nil.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	Fallback *Reply
	requests []provider.Request
}

var _ provider.Provider = (*Scripted)(nil)

// New returns a provider answering with texts in order.
func New(texts ...string) *Scripted {
	s := &Scripted{}
	for _, t := range texts {
		s.replies = append(s.replies, Reply{Text: t})
	}
	return s
}

// Then appends a reply.
func (s *Scripted) Then(r Reply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return s
}

// Always sets the reply used after the script is exhausted.
func (s *Scripted) Always(text string) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fallback = &Reply{Text: text}
	return s
}

func (s *Scripted) Name() string { return "scripted" }
func (s *Scripted) Close() error { return nil }

func (s *Scripted) Complete(_ context.Context, req *provider.Request) (*provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *req)

	var r Reply
	switch {
	case len(s.replies) > 0:
		r, s.replies = s.replies[0], s.replies[1:]
	case s.Fallback != nil:
		r = *s.Fallback
	default:
		return nil, provider.Unavailable(s.Name(), fmt.Errorf("script exhausted after %d requests", len(s.requests)-1))
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &provider.Response{Text: r.Text, Model: "scripted"}, nil
}

// Requests returns the requests received so far.
func (s *Scripted) Requests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]provider.Request(nil), s.requests...)
}

// Prompts returns the prompt text of every request received so far.
func (s *Scripted) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.Prompt
	}
	return out
}
