package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(gatewayRequestsTotal, gatewayDuration) }

var (
	// op: token|push|query; result: ok|rejected|timeout|error
	gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Outbound payment gateway calls by operation and result.",
		},
		[]string{"provider", "op", "result"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_duration_seconds",
			Help:    "Latency of outbound payment gateway calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "op"},
	)
)

func ObserveGatewayCall(provider, op, result string, elapsed time.Duration) {
	gatewayRequestsTotal.WithLabelValues(norm(provider), norm(op), norm(result)).Inc()
	gatewayDuration.WithLabelValues(norm(provider), norm(op)).Observe(elapsed.Seconds())
}
