package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TestMetricsRegistered verifies that all metrics are registered in the
// default registry without panicking.
func TestMetricsRegistered(t *testing.T) {
	// Vectors only appear after their first observation, so seed them.
	RequestsTotal.WithLabelValues("GET", "2xx", "test").Inc()
	RequestDuration.WithLabelValues("GET", "test").Observe(0.1)
	ResponseSize.WithLabelValues("test").Observe(512)
	ProviderRequestsTotal.WithLabelValues("openai", "test", "ok").Inc()
	ProviderLatency.WithLabelValues("openai", "test").Observe(0.1)
	ProviderTokensTotal.WithLabelValues("openai", "test", "input").Add(10)
	ToolCallsTotal.WithLabelValues("query_database", "ok").Inc()
	ExecutionsTotal.WithLabelValues("ok").Inc()
	QuestionsTotal.WithLabelValues("answered").Inc()
	AttemptsTotal.WithLabelValues("success").Inc()
	AuditWritesTotal.WithLabelValues("memory", "ok").Inc()
	RateLimitRejectedTotal.WithLabelValues("default").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("unexpected gather error: %v", err)
	}

	expected := map[string]bool{
		"askdata_requests_total":                 false,
		"askdata_request_duration_seconds":       false,
		"askdata_response_size_bytes":            false,
		"askdata_provider_requests_total":        false,
		"askdata_model_request_duration_seconds": false,
		"askdata_provider_tokens_total":          false,
		"askdata_tool_calls_total":               false,
		"askdata_executions_total":               false,
		"askdata_executor_duration_seconds":      false,
		"askdata_agent_questions_total":          false,
		"askdata_agent_attempts_total":           false,
		"askdata_agent_rounds":                   false,
		"askdata_audit_writes_total":             false,
		"askdata_static_files_purged_total":      false,
		"askdata_ratelimit_rejected_total":       false,
	}
	for _, mf := range families {
		if _, ok := expected[mf.GetName()]; ok {
			expected[mf.GetName()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("metric %q not found in default registry", name)
		}
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tmp_imgs/{filename}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MetricsMiddleware(mux)

	before := counterValue(t, RequestsTotal, "GET", "2xx", "GET /tmp_imgs/{filename}")
	for _, name := range []string{"a.png", "b.png", "c.html"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/tmp_imgs/"+name, nil))
	}
	after := counterValue(t, RequestsTotal, "GET", "2xx", "GET /tmp_imgs/{filename}")

	if after-before != 3 {
		t.Errorf("expected 3 requests under one route label, got delta=%f", after-before)
	}
}

func TestMiddlewareUnmatchedRoute(t *testing.T) {
	handler := MetricsMiddleware(http.NewServeMux())

	before := counterValue(t, RequestsTotal, "GET", "4xx", "unmatched")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/nowhere", nil))
	after := counterValue(t, RequestsTotal, "GET", "4xx", "unmatched")

	if after-before != 1 {
		t.Errorf("expected unmatched 4xx count to increase by 1, got delta=%f", after-before)
	}
}

// TestMiddlewareRecordsDuration verifies that the middleware records
// a request duration observation.
func TestMiddlewareRecordsDuration(t *testing.T) {
	before := histogramCount(t, RequestDuration, "POST", "unmatched")

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/ask-agent/", nil))

	after := histogramCount(t, RequestDuration, "POST", "unmatched")
	if after-before != 1 {
		t.Errorf("expected histogram sample count to increase by 1, got delta=%d", after-before)
	}
}

func TestRecorderFlushAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	r := &recorder{ResponseWriter: rec}
	r.Flush()
	if !rec.Flushed {
		t.Error("expected underlying writer to be flushed")
	}

	before := histogramCount(t, ResponseSize, "unmatched")
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<table></table>"))
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/view", nil))
	if after := histogramCount(t, ResponseSize, "unmatched"); after-before != 1 {
		t.Errorf("expected one size sample, got delta=%d", after-before)
	}
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{200: "2xx", 404: "4xx", 503: "5xx"} {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

// counterValue reads the current value of a CounterVec for the given labels.
func counterValue(t *testing.T, cv *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting counter metric: %v", err)
	}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing counter metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

// histogramCount reads the observation count from a HistogramVec.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels ...string) uint64 {
	t.Helper()
	m := &dto.Metric{}
	obs, err := hv.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("getting histogram metric: %v", err)
	}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		t.Fatalf("writing histogram metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}
