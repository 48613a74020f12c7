package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// LoginAttempts counts login outcomes: success, invalid, error.
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// AuditWrites counts audit entries by result: written, failed.
	AuditWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_audit_writes_total",
			Help: "Audit log writes by result.",
		},
		[]string{"result"},
	)

	// RecoveryRequests counts recovery requests by delivery path: provider, token, unknown_email, error.
	RecoveryRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_recovery_requests_total",
			Help: "Password recovery requests by path.",
		},
		[]string{"path"},
	)
)

// Init registers the portal collectors with the default registry once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, LoginAttempts, AuditWrites, RecoveryRequests)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observe records one finished request. route should be the route pattern,
// not the raw path, to keep label cardinality bounded.
func Observe(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
