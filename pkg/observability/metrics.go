// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the askdata service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ExecBuckets covers generated code runs, which are dominated by tool calls
// (database queries, chart rendering).
var ExecBuckets = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route pattern.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdata_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// ResponseSize records response body bytes by route. Chart images
	// and table views under /tmp_imgs/ dominate it.
	ResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdata_response_size_bytes",
			Help:    "Response body size",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"route"},
	)

	// ProviderRequestsTotal counts requests sent to model providers.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_provider_requests_total",
			Help: "Provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	// ProviderLatency records model provider latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdata_model_request_duration_seconds",
			Help:    "Model request latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens processed by direction (input/output).
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// ToolCallsTotal counts tool invocations from generated code by tool and outcome.
	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_tool_calls_total",
			Help: "Tool calls",
		},
		[]string{"tool", "status"},
	)

	// ExecutionsTotal counts generated code runs by outcome: success,
	// stopped, the failure kind, or unavailable when a remote sandbox
	// could not be reached.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_executions_total",
			Help: "Generated code executions",
		},
		[]string{"outcome"},
	)

	// ExecutionDuration records how long generated code ran.
	ExecutionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdata_executor_duration_seconds",
			Help:    "Generated code execution time",
			Buckets: ExecBuckets,
		},
	)

	// QuestionsTotal counts answered questions by outcome.
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_agent_questions_total",
			Help: "Questions by outcome",
		},
		[]string{"outcome"},
	)

	// AttemptsTotal counts generation attempts by result kind.
	AttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_agent_attempts_total",
			Help: "Generation attempts",
		},
		[]string{"kind"},
	)

	// RoundsPerQuestion records how many tool selection rounds a question needed.
	RoundsPerQuestion = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdata_agent_rounds",
			Help:    "Rounds used per question",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	// AuditWritesTotal counts audit record writes by sink and outcome.
	AuditWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_audit_writes_total",
			Help: "Audit writes",
		},
		[]string{"sink", "status"},
	)

	// StaticFilesPurged counts generated files removed by the janitor.
	StaticFilesPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdata_static_files_purged_total",
			Help: "Generated files removed after expiry",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdata_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ResponseSize,
		ProviderRequestsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		ToolCallsTotal,
		ExecutionsTotal,
		ExecutionDuration,
		QuestionsTotal,
		AttemptsTotal,
		RoundsPerQuestion,
		AuditWritesTotal,
		StaticFilesPurged,
		RateLimitRejectedTotal,
	)
}
