package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rhuss/askdata/pkg/executor"
)

// maxItems bounds the values collected from one execution.
const maxItems = 1000

// Handler serves the sandbox REST API around a local runner.
type Handler struct {
	runner        executor.Runner
	maxConcurrent int32
	maxTimeout    time.Duration
	currentLoad   atomic.Int32
	started       time.Time
	mux           *http.ServeMux
}

// NewHandler creates a Handler that runs at most maxConcurrent executions
// at once. Requested timeouts are capped at maxTimeout.
func NewHandler(runner executor.Runner, maxConcurrent int, maxTimeout time.Duration) *Handler {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	if maxTimeout <= 0 {
		maxTimeout = 2 * time.Minute
	}
	h := &Handler{
		runner:        runner,
		maxConcurrent: int32(maxConcurrent),
		maxTimeout:    maxTimeout,
		started:       time.Now(),
		mux:           http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /execute", h.handleExecute)
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	current := h.currentLoad.Add(1)
	defer h.currentLoad.Add(-1)
	if current > h.maxConcurrent {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "sandbox at capacity"})
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}

	timeout := h.maxTimeout
	if d := time.Duration(req.TimeoutSeconds) * time.Second; d > 0 && d < timeout {
		timeout = d
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	start := time.Now()
	resp := h.run(ctx, req.Code)
	resp.ExecutionTimeMs = time.Since(start).Milliseconds()

	slog.Info("execution finished", "status", resp.Status, "items", len(resp.Items), "duration_ms", resp.ExecutionTimeMs)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) run(ctx context.Context, code string) *Response {
	resp := &Response{Status: StatusSuccess, Items: []Item{}}
	fail := func(err error) *Response {
		resp.Status = StatusError
		var ce *executor.CodeError
		if errors.As(err, &ce) {
			resp.Error = &Failure{Kind: ce.Kind.String(), Message: ce.Message}
		} else {
			resp.Error = &Failure{Kind: executor.KindRuntime.String(), Message: err.Error()}
		}
		return resp
	}

	seq, err := h.runner.Execute(ctx, code)
	if err != nil {
		return fail(err)
	}
	for v, err := range seq {
		if err != nil {
			return fail(err)
		}
		if len(resp.Items) == maxItems {
			return fail(errors.New("too many values yielded"))
		}
		resp.Items = append(resp.Items, Encode(v))
	}
	return resp
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"current_load":   h.currentLoad.Load(),
		"max_concurrent": h.maxConcurrent,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
