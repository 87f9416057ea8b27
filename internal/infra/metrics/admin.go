package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(adminActionTotal, httpRequestDuration) }

var (
	adminActionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_action_total",
			Help: "Tracks attempts to use admin endpoints.",
		},
		[]string{"action", "status"}, // status: 'authorized', 'unauthorized'
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)
)

func IncAdminAction(action, status string) {
	adminActionTotal.WithLabelValues(norm(action), norm(status)).Inc()
}

func ObserveHTTPRequest(route, method, code string, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
}
