package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	// Upload and delete fan out to Cloudinary and Strapi, so request
	// latency runs well past the default bucket ceiling.
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tourbook_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: []float64{0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "path", "status"})

	documentOperations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tourbook_document_operation_duration_seconds",
		Help:    "Duration of document lifecycle operations",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation", "result"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tourbook_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	cleanupDebt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_cleanup_debt_total",
		Help: "Operations that succeeded but left residual cleanup debt in a backing store",
	}, []string{"operation", "step"})

	orphanSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_orphan_sweeps_total",
		Help: "Count of orphan sweep attempts by result",
	}, []string{"result"})

	pendingIntents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tourbook_pending_upload_intents",
		Help: "Upload intents currently in pending state",
	})

	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tourbook_emails_total",
		Help: "Transactional emails by kind and result",
	}, []string{"kind", "result"})
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveDocumentOperation records a lifecycle operation with its result.
func ObserveDocumentOperation(operation, result string, duration time.Duration) {
	documentOperations.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// ObserveCleanupDebt counts a best-effort cleanup step that failed while the
// overall operation succeeded.
func ObserveCleanupDebt(operation, step string) {
	cleanupDebt.WithLabelValues(operation, step).Inc()
}

// ObserveOrphanSweep records one sweep attempt.
func ObserveOrphanSweep(result string) {
	orphanSweeps.WithLabelValues(result).Inc()
}

// SetPendingIntents sets the pending-intent gauge.
func SetPendingIntents(count int) {
	if count < 0 {
		count = 0
	}
	pendingIntents.Set(float64(count))
}

// ObserveEmail records an email send attempt.
func ObserveEmail(kind, result string) {
	emailsSent.WithLabelValues(kind, result).Inc()
}
