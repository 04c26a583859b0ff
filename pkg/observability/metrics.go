// Package observability provides Prometheus metrics for the Guardian service.
package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "guardian_sessions_started_total",
			Help: "Total number of workflow sessions started",
		},
	)

	sessionsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_sessions_completed_total",
			Help: "Total number of sessions reaching a terminal status",
		},
		[]string{"status"},
	)

	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_engine_steps_total",
			Help: "Total number of engine steps by kind (plan, execute)",
		},
		[]string{"kind"},
	)

	stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_engine_step_duration_seconds",
			Help:    "Engine step duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	approvalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_approval_decisions_total",
			Help: "Total number of human approval decisions by kind",
		},
		[]string{"decision"},
	)

	suspensionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_suspensions_total",
			Help: "Total number of sessions suspended for approval, by risk category",
		},
		[]string{"category"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "guardian_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

var registerOnce sync.Once

// Register registers all Guardian collectors with the default registry.
// Safe to call multiple times.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			sessionsStartedTotal,
			sessionsCompletedTotal,
			stepsTotal,
			stepDuration,
			approvalsTotal,
			suspensionsTotal,
			httpRequestsTotal,
			httpRequestDuration,
		)
	})
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}

// RecordSessionStarted increments the session start counter.
func RecordSessionStarted() {
	sessionsStartedTotal.Inc()
}

// RecordSessionCompleted records a session reaching a terminal status.
func RecordSessionCompleted(status string) {
	sessionsCompletedTotal.WithLabelValues(status).Inc()
}

// RecordStep records one engine step of the given kind and its duration.
func RecordStep(kind string, duration time.Duration) {
	stepsTotal.WithLabelValues(kind).Inc()
	stepDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordApproval records a human decision.
func RecordApproval(decision string) {
	approvalsTotal.WithLabelValues(decision).Inc()
}

// RecordSuspension records a session suspending for approval.
func RecordSuspension(category string) {
	suspensionsTotal.WithLabelValues(category).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
