package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_classifications_total",
			Help: "Question classifications by resolved target.",
		},
		[]string{"target"},
	)

	generationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_generation_attempts_total",
			Help: "SQL generation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	modelCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askdb_model_call_duration_seconds",
			Help:    "Model round-trip latency by purpose.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_sql_executions_total",
			Help: "Generated SQL executions by target and outcome.",
		},
		[]string{"target", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		classificationsTotal,
		generationAttemptsTotal,
		modelCallDurationSeconds,
		executionsTotal,
	)
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(method, path, status string, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(seconds)
}

// RecordClassification records one classifier decision
func RecordClassification(target string) {
	classificationsTotal.WithLabelValues(target).Inc()
}

// RecordGenerationAttempt records one generation outcome ("success",
// "retryable_failure", or "terminal_failure")
func RecordGenerationAttempt(outcome string) {
	generationAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordModelCall records one model round trip by purpose ("generate",
// "validate", "answer", "embed")
func RecordModelCall(purpose string, seconds float64) {
	modelCallDurationSeconds.WithLabelValues(purpose).Observe(seconds)
}

// RecordExecution records one SQL execution by target and outcome
func RecordExecution(target, outcome string) {
	executionsTotal.WithLabelValues(target, outcome).Inc()
}
