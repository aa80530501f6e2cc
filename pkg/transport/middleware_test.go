package transport

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rhuss/askdata/pkg/api"
)

func answering(fn func(ctx context.Context)) Questioner {
	return QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
		if fn != nil {
			fn(ctx)
		}
		return api.Success(req.Question, "42"), nil
	})
}

func ask(ctx context.Context, q Questioner) (*api.AskResponse, error) {
	return q.Answer(ctx, &api.AskRequest{Question: "how many towns?", Mode: api.ModeAgent})
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Questioner) Questioner {
			return QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
				order = append(order, name+":before")
				resp, err := next.Answer(ctx, req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	handler := answering(func(context.Context) { order = append(order, "handler") })
	ask(context.Background(), Chain(mw("first"), mw("second"), mw("third"))(handler))

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}
	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := answering(func(context.Context) { panic("test panic") })

	resp, err := ask(context.Background(), Recovery()(handler))
	if err == nil {
		t.Fatal("expected error after panic, got nil")
	}
	if resp != nil {
		t.Errorf("expected nil response after panic, got %+v", resp)
	}

	apiErr, ok := err.(*api.APIError)
	if !ok {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, should contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThroughNormalExecution(t *testing.T) {
	resp, err := ask(context.Background(), Recovery()(answering(nil)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != "42" {
		t.Errorf("answer = %q, want %q", resp.Answer, "42")
	}
}

func TestRequestIDGeneratesNewID(t *testing.T) {
	var capturedID string
	handler := answering(func(ctx context.Context) { capturedID = RequestIDFromContext(ctx) })

	ask(context.Background(), RequestID()(handler))

	if !api.ValidateRequestID(capturedID) {
		t.Errorf("generated request ID %q is not valid", capturedID)
	}
}

func TestRequestIDPropagatesExisting(t *testing.T) {
	var capturedID string
	handler := answering(func(ctx context.Context) { capturedID = RequestIDFromContext(ctx) })

	ctx := ContextWithRequestID(context.Background(), "existing-id-123")
	ask(ctx, RequestID()(handler))

	if capturedID != "existing-id-123" {
		t.Errorf("request ID = %q, want %q", capturedID, "existing-id-123")
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	handler := answering(func(ctx context.Context) { ids[RequestIDFromContext(ctx)] = true })

	wrapped := RequestID()(handler)
	for i := 0; i < 100; i++ {
		ask(context.Background(), wrapped)
	}

	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}

func TestLoggingEmitsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx := ContextWithRequestID(context.Background(), "req-log-test")
	ask(ctx, Logging(logger)(answering(nil)))

	output := buf.String()
	for _, expected := range []string{"request_id=req-log-test", "mode=agent", `question="how many towns?"`, "question answered"} {
		if !strings.Contains(output, expected) {
			t.Errorf("log output missing %q in:\n%s", expected, output)
		}
	}
}

func TestLoggingWarnsOnFailureEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
		return api.Failure(req.Question), nil
	})
	ask(context.Background(), Logging(logger)(handler))

	output := buf.String()
	if !strings.Contains(output, "level=WARN") || !strings.Contains(output, "question not answered") {
		t.Errorf("log output missing warning in:\n%s", output)
	}
}

func TestLoggingEmitsErrorOnFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := QuestionerFunc(func(ctx context.Context, req *api.AskRequest) (*api.AskResponse, error) {
		return nil, api.NewServerError("test failure")
	})
	ask(context.Background(), Logging(logger)(handler))

	output := buf.String()
	if !strings.Contains(output, "question failed") {
		t.Errorf("log output missing 'question failed' in:\n%s", output)
	}
	if !strings.Contains(output, "test failure") {
		t.Errorf("log output missing error message in:\n%s", output)
	}
}
