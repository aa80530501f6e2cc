package storage

import (
	"context"
	"time"
)

// Outcomes of a question.
const (
	OutcomeAnswered = "answered"
	OutcomeSolved   = "solved"
	OutcomeNoAnswer = "no_answer"
)

// Record is the audit trail of one question.
type Record struct {
	ID       string    `json:"id"`
	Tenant   string    `json:"tenant,omitempty"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Code     string    `json:"code,omitempty"`
	Outcome  string    `json:"outcome"`
	Rounds   int       `json:"rounds"`
	Attempts []Attempt `json:"attempts,omitempty"`
	// Created is set by the sink when zero.
	Created time.Time `json:"created_at"`
}

// Attempt summarizes one code generation attempt. Error is empty for the
// successful attempt.
type Attempt struct {
	Round int    `json:"round"`
	Index int    `json:"index"`
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

// ListOptions filters and pages List results.
type ListOptions struct {
	// Limit defaults to 20 and is capped at 100.
	Limit int
	// Outcome restricts results to one outcome when set.
	Outcome string
	// Before returns records created strictly before this time when set.
	Before time.Time
}

// Sink receives audit records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Save(ctx context.Context, r *Record) error
	Close() error
}

// Store is a Sink that can also be queried. Get and List are scoped to the
// tenant in the context when one is set.
type Store interface {
	Sink
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
	HealthCheck(ctx context.Context) error
}

// EffectiveLimit returns the page size applied to opts.
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return 20
	case o.Limit > 100:
		return 100
	}
	return o.Limit
}
