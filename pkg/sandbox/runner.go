package sandbox

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/rhuss/askdata/pkg/executor"
	"github.com/rhuss/askdata/pkg/observability"
)

// Acquirer hands out the base URL of a sandbox server. The release
// function must be called once the execution is finished.
type Acquirer interface {
	Acquire(ctx context.Context) (url string, release func(), err error)
}

// Static always returns the same sandbox URL.
type Static string

// Acquire returns the fixed URL and a no-op release.
func (s Static) Acquire(context.Context) (string, func(), error) {
	return string(s), func() {}, nil
}

var _ executor.Runner = (*Runner)(nil)

// Runner executes generated code on a sandbox server.
type Runner struct {
	acquirer Acquirer
	client   *Client
	timeout  time.Duration
}

// NewRunner creates a Runner. timeout is passed to the sandbox as the
// execution deadline and also bounds the HTTP round trip.
func NewRunner(acquirer Acquirer, client *Client, timeout time.Duration) *Runner {
	if client == nil {
		client = NewClient(nil)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Runner{acquirer: acquirer, client: client, timeout: timeout}
}

// Execute runs code remotely. The sandbox runs the code to completion
// before answering, so the whole execution happens here; the returned
// sequence replays the yielded values. Compile and entry point failures
// are returned directly and a runtime failure is the last element of the
// sequence, matching the local executor.
func (r *Runner) Execute(ctx context.Context, code string) (iter.Seq2[any, error], error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout+10*time.Second)
	defer cancel()

	url, release, err := r.acquirer.Acquire(ctx)
	if err != nil {
		observability.ExecutionsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("acquiring sandbox: %w", err)
	}
	defer release()

	start := time.Now()
	resp, err := r.client.Execute(ctx, url, &Request{Code: code, TimeoutSeconds: int(r.timeout.Seconds())})
	observability.ExecutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.ExecutionsTotal.WithLabelValues("unavailable").Inc()
		return nil, err
	}

	var failure *executor.CodeError
	if resp.Status != StatusSuccess {
		failure = codeError(code, resp.Error)
	}
	outcome := "success"
	if failure != nil {
		outcome = failure.Kind.String()
	}
	observability.ExecutionsTotal.WithLabelValues(outcome).Inc()
	slog.Debug("sandbox execution finished", "url", url, "status", resp.Status,
		"items", len(resp.Items), "duration_ms", resp.ExecutionTimeMs)

	if failure != nil && failure.Kind != executor.KindRuntime {
		return nil, failure
	}

	return func(yield func(any, error) bool) {
		for _, it := range resp.Items {
			if !yield(it.Decode(), nil) {
				return
			}
		}
		if failure != nil {
			yield(nil, failure)
		}
	}, nil
}

func codeError(code string, f *Failure) *executor.CodeError {
	if f == nil {
		return &executor.CodeError{Kind: executor.KindRuntime, Code: code, Message: "sandbox reported an error without details"}
	}
	kind, ok := executor.ParseKind(f.Kind)
	if !ok {
		kind = executor.KindRuntime
	}
	return &executor.CodeError{Kind: kind, Code: code, Message: f.Message}
}
