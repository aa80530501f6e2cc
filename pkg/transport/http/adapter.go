package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/observability"
	"github.com/rhuss/askdata/pkg/static"
	"github.com/rhuss/askdata/pkg/storage"
	"github.com/rhuss/askdata/pkg/transport"
)

// Adapter serves the question endpoints, generated files and the audit
// trail over HTTP.
type Adapter struct {
	questioner transport.Questioner
	inflight   *transport.InFlightRegistry
	mux        *http.ServeMux
	config     Config
	wrap       []func(http.Handler) http.Handler
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
	// RequestTimeout bounds each question. Zero means no limit.
	RequestTimeout time.Duration
	// Files serves /tmp_imgs/{filename} when set.
	Files *static.Store
	// Audit serves /api/audit when set.
	Audit storage.Store
	// Ready reports whether dependencies are reachable for /readyz.
	Ready func(ctx context.Context) error
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:    1 << 20,
		RequestTimeout: 5 * time.Minute,
	}
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithMiddleware wraps the Questioner in transport middleware.
func WithMiddleware(mw ...transport.Middleware) AdapterOption {
	return func(a *Adapter) {
		if len(mw) > 0 {
			a.questioner = transport.Chain(mw...)(a.questioner)
		}
	}
}

// WithHTTPMiddleware wraps every route in HTTP middleware such as
// authentication. The first middleware is the outermost.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) AdapterOption {
	return func(a *Adapter) { a.wrap = append(a.wrap, mw...) }
}

// WithHandler mounts an extra handler, for example the MCP endpoint or the
// metrics exporter.
func WithHandler(pattern string, h http.Handler) AdapterOption {
	return func(a *Adapter) { a.mux.Handle(pattern, h) }
}

// NewAdapter creates an HTTP adapter around q.
func NewAdapter(q transport.Questioner, cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		questioner: q,
		inflight:   transport.NewInFlightRegistry(),
		mux:        http.NewServeMux(),
		config:     cfg,
	}

	a.mux.HandleFunc("POST /api/ask-agent/", a.ask(api.ModeAgent))
	a.mux.HandleFunc("POST /api/agent-summary/", a.ask(api.ModeSummary))
	a.mux.HandleFunc("POST /api/cot-chat/", a.ask(api.ModePlan))
	a.mux.HandleFunc("DELETE /api/ask-agent/{request_id}", a.handleCancel)
	a.mux.HandleFunc("GET /tmp_imgs/{filename}", a.handleFile)
	a.mux.HandleFunc("GET /api/audit/{id}", a.handleGetAudit)
	a.mux.HandleFunc("GET /api/audit", a.handleListAudit)
	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	a.mux.HandleFunc("GET /readyz", a.handleReady)

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the http.Handler for this adapter. Metrics are recorded
// innermost so the matched route pattern is visible to them.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = observability.MetricsMiddleware(a.mux)
	for i := len(a.wrap) - 1; i >= 0; i-- {
		h = a.wrap[i](h)
	}
	return httpRequestIDMiddleware(h)
}

// InFlight returns the registry of running questions.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// httpRequestIDMiddleware accepts a client X-Request-ID or assigns one,
// stores it in the context and echoes it in the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = api.NewRequestID()
		}
		r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
		next.ServeHTTP(&requestIDResponseWriter{ResponseWriter: w, r: r}, r)
	})
}

// requestIDResponseWriter wraps http.ResponseWriter to inject the
// X-Request-ID header before the first write.
type requestIDResponseWriter struct {
	http.ResponseWriter
	r           *http.Request
	headersSent bool
}

func (w *requestIDResponseWriter) WriteHeader(statusCode int) {
	w.ensureRequestIDHeader()
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *requestIDResponseWriter) Write(b []byte) (int, error) {
	w.ensureRequestIDHeader()
	return w.ResponseWriter.Write(b)
}

func (w *requestIDResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for http.NewResponseController.
func (w *requestIDResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *requestIDResponseWriter) ensureRequestIDHeader() {
	if w.headersSent {
		return
	}
	w.headersSent = true
	if id := transport.RequestIDFromContext(w.r.Context()); id != "" {
		w.ResponseWriter.Header().Set("X-Request-ID", id)
	}
}

// ask returns the handler of one question endpoint.
func (a *Adapter) ask(mode api.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, apiErr, status := a.decodeQuestion(w, r)
		if apiErr != nil {
			transport.WriteErrorResponse(w, apiErr, status)
			return
		}
		req.Mode = mode
		if apiErr := api.ValidateAskRequest(req); apiErr != nil {
			transport.WriteAPIError(w, apiErr)
			return
		}

		var (
			ctx    context.Context
			cancel context.CancelFunc
		)
		if a.config.RequestTimeout > 0 {
			ctx, cancel = context.WithTimeout(r.Context(), a.config.RequestTimeout)
		} else {
			ctx, cancel = context.WithCancel(r.Context())
		}
		defer cancel()

		id := transport.RequestIDFromContext(ctx)
		a.inflight.Register(id, cancel)
		defer a.inflight.Remove(id)

		resp, err := a.questioner.Answer(ctx, req)
		if err != nil {
			transport.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// decodeQuestion reads the JSON body of a question request.
func (a *Adapter) decodeQuestion(w http.ResponseWriter, r *http.Request) (*api.AskRequest, *api.APIError, int) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return nil, api.NewInvalidRequestError("content_type", "Content-Type must be application/json"), http.StatusUnsupportedMediaType
		}
	}
	if a.config.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	}

	var req api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return nil, api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)), http.StatusRequestEntityTooLarge
		case errors.Is(err, io.EOF):
			return nil, api.NewInvalidRequestError("question", "question is required"), http.StatusBadRequest
		}
		return nil, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()), http.StatusBadRequest
	}
	return &req, nil, 0
}

// handleCancel handles DELETE /api/ask-agent/{request_id}.
func (a *Adapter) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("request_id")
	if !a.inflight.Cancel(id) {
		transport.WriteAPIError(w, api.NewNotFoundError("no running question with request ID "+id))
		return
	}
	slog.Info("question cancelled", "request_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// handleFile handles GET /tmp_imgs/{filename}.
func (a *Adapter) handleFile(w http.ResponseWriter, r *http.Request) {
	if a.config.Files == nil {
		transport.WriteAPIError(w, api.NewNotFoundError("file serving is not configured"))
		return
	}
	name := r.PathValue("filename")
	f, err := a.config.Files.Open(name)
	if err != nil {
		switch {
		case errors.Is(err, static.ErrNotFound), errors.Is(err, static.ErrInvalidName):
			transport.WriteAPIError(w, api.NewNotFoundError("file "+name+" not found"))
		default:
			transport.WriteError(w, err)
		}
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", static.ContentType(name))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if info, err := f.Stat(); err == nil {
		http.ServeContent(w, r, name, info.ModTime(), f)
		return
	}
	io.Copy(w, f)
}

// handleGetAudit handles GET /api/audit/{id}.
func (a *Adapter) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	if a.config.Audit == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "audit retrieval is not available (no queryable audit store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	id := r.PathValue("id")
	rec, err := a.config.Audit.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewNotFoundError("audit record "+id+" not found"))
		} else {
			transport.WriteError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, api.NewAuditRecord(rec))
}

// handleListAudit handles GET /api/audit.
func (a *Adapter) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if a.config.Audit == nil {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("", "audit listing is not available (no queryable audit store configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	records, err := a.config.Audit.List(r.Context(), opts)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	list := api.AuditList{Object: "list", Data: make([]*api.AuditRecord, 0, len(records))}
	for _, rec := range records {
		list.Data = append(list.Data, api.NewAuditRecord(rec))
	}
	writeJSON(w, http.StatusOK, list)
}

// parseListOptions extracts paging and filter parameters from the query
// string.
func parseListOptions(r *http.Request) (storage.ListOptions, *api.APIError) {
	q := r.URL.Query()
	var opts storage.ListOptions

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}

	switch outcome := q.Get("outcome"); outcome {
	case "", storage.OutcomeAnswered, storage.OutcomeSolved, storage.OutcomeNoAnswer:
		opts.Outcome = outcome
	default:
		return opts, api.NewInvalidRequestError("outcome", "outcome must be one of answered, solved, no_answer")
	}

	if s := q.Get("before"); s != "" {
		before, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return opts, api.NewInvalidRequestError("before", "before must be an RFC 3339 timestamp")
		}
		opts.Before = before
	}
	return opts, nil
}

// handleReady handles GET /readyz.
func (a *Adapter) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.config.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := a.config.Ready(ctx); err != nil {
			slog.Warn("readiness check failed", "error", err)
			http.Error(w, "not ready: "+err.Error()+"\n", http.StatusServiceUnavailable)
			return
		}
	}
	w.Write([]byte("ok\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}
