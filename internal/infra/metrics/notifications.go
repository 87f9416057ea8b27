package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, eventsPublishedTotal) }

var (
	// kind: expiry_reminder|payment_succeeded|payment_failed
	// status: sent|error|no_channel|duplicate
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seller_notifications_total",
			Help: "Seller notifications by kind and delivery status.",
		},
		[]string{"kind", "status"},
	)

	eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "domain_events_published_total",
			Help: "Domain events handed to the broker by type and result.",
		},
		[]string{"type", "result"},
	)
)

func IncNotification(kind, status string) {
	notificationsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncEventPublished(eventType, result string) {
	eventsPublishedTotal.WithLabelValues(norm(eventType), norm(result)).Inc()
}
