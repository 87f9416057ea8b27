package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(paymentTransitions, premiumRevenue, paymentFailures, paymentCallbacks, paymentResolveSeconds)
}

var (
	paymentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Payment transactions entering each status.",
		},
		[]string{"status"},
	)
	premiumRevenue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_revenue_total",
			Help: "Confirmed premium revenue in whole currency units, by plan length.",
		},
		[]string{"currency", "plan_days"},
	)
	// gateway_rejected, gateway_timeout, payer_declined, listing_terminal
	paymentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_failures_total",
			Help: "Failed payments by reason.",
		},
		[]string{"reason"},
	)
	// processed, duplicate, unknown, invalid
	paymentCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Gateway callbacks by handling result.",
		},
		[]string{"result"},
	)
	paymentResolveSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_resolve_seconds",
			Help:    "Time from initiation to a terminal status.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"status"},
	)
)

func IncPayment(status string) {
	paymentTransitions.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, planDays int, amount int64) {
	premiumRevenue.WithLabelValues(norm(currency), strconv.Itoa(planDays)).Add(float64(amount))
}

func IncPaymentFailure(reason string) {
	paymentFailures.WithLabelValues(norm(reason)).Inc()
}

func IncPaymentCallback(result string) {
	paymentCallbacks.WithLabelValues(norm(result)).Inc()
}

func ObservePaymentResolved(status string, took time.Duration) {
	paymentResolveSeconds.WithLabelValues(norm(status)).Observe(took.Seconds())
}
