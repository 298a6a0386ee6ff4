package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Workflow metrics.
var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcpr_status_transitions_total",
			Help: "Committed DCPR status transitions.",
		},
		[]string{"from", "action", "to"},
	)

	gateDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcpr_gate_denials_total",
			Help: "Authorization gate denials per operation.",
		},
		[]string{"operation"},
	)

	notificationJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dcpr_notification_jobs_total",
			Help: "Notification job outcomes.",
		},
		[]string{"result"},
	)

	notificationQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dcpr_notification_queue_depth",
		Help: "Jobs currently queued for notification dispatch.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		transitionsTotal, gateDenialsTotal, notificationJobsTotal, notificationQueueDepth,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTransition counts one committed lattice transition. Plain strings
// keep obs decoupled from the dcpr enum types.
func RecordTransition(from, action, to string) {
	if action == "" {
		action = "none"
	}
	transitionsTotal.WithLabelValues(from, action, to).Inc()
}

// RecordGateDenial counts one authorization denial for the operation.
func RecordGateDenial(operation string) {
	gateDenialsTotal.WithLabelValues(operation).Inc()
}

// RecordNotificationEnqueueFailure counts a failed fire-and-forget enqueue.
func RecordNotificationEnqueueFailure() {
	notificationJobsTotal.WithLabelValues("enqueue_failed").Inc()
}

// RecordNotificationResult counts a dispatcher outcome (delivered, retried,
// dead).
func RecordNotificationResult(result string) {
	notificationJobsTotal.WithLabelValues(result).Inc()
}

// SetNotificationQueueDepth publishes the current queue backlog.
func SetNotificationQueueDepth(n int) {
	notificationQueueDepth.Set(float64(n))
}

// Instrument wraps a handler with RPS/latency/in-flight accounting.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
