package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "factlake_api_build_info",
			Help: "Build information of the factlake API",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factlake_api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factlake_api_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "factlake_api_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	ImportRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factlake_api_import_runs_total",
			Help: "Total number of import runs, by final status",
		},
		[]string{"workspace_id", "status"},
	)

	ImportRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "factlake_api_import_run_duration_seconds",
			Help:    "Duration of import runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~14 minutes
		},
		[]string{"workspace_id"},
	)

	AssertionsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "factlake_api_assertions_written_total",
			Help: "Total number of assertion records written, by outcome",
		},
		[]string{"workspace_id", "outcome"}, // outcome: created|modified|closed|unchanged
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = r.URL.Path
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// RecordImportRun records metrics for a completed import run.
func RecordImportRun(workspaceID, status string, duration time.Duration) {
	ImportRunsTotal.WithLabelValues(workspaceID, status).Inc()
	ImportRunDuration.WithLabelValues(workspaceID).Observe(duration.Seconds())
}

// RecordAssertionsWritten records per-outcome assertion counts from an
// ImportStats summary.
func RecordAssertionsWritten(workspaceID string, created, modified, closed, unchanged int) {
	AssertionsWrittenTotal.WithLabelValues(workspaceID, "created").Add(float64(created))
	AssertionsWrittenTotal.WithLabelValues(workspaceID, "modified").Add(float64(modified))
	AssertionsWrittenTotal.WithLabelValues(workspaceID, "closed").Add(float64(closed))
	AssertionsWrittenTotal.WithLabelValues(workspaceID, "unchanged").Add(float64(unchanged))
}
