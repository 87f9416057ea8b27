package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(engagementTotal, reportsResolvedTotal) }

var (
	engagementTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_engagement_total",
			Help: "Buyer interactions with listings by kind (view, unique_view, contact, report).",
		},
		[]string{"kind"},
	)

	reportsResolvedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_reports_resolved_total",
			Help: "Moderation reports closed by an admin.",
		},
	)
)

func IncEngagement(kind string) {
	engagementTotal.WithLabelValues(norm(kind)).Inc()
}

func IncReportResolved() { reportsResolvedTotal.Inc() }
