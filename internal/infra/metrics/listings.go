package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		listingsCreatedTotal,
		listingTransitionsTotal,
		quotaRejectionsTotal,
		schedulerPassDuration,
		schedulerPassScanned,
	)
}

var (
	listingsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_created_total",
			Help: "Listings created, labeled by tier (draft for unpublished).",
		},
		[]string{"tier"},
	)

	listingTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_state_transitions_total",
			Help: "Stored listing state changes by source and target state.",
		},
		[]string{"from", "to"},
	)

	quotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_quota_rejections_total",
			Help: "Free listing creations rejected because the lifetime quota was exhausted.",
		},
	)

	schedulerPassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "expiry_scheduler_pass_duration_seconds",
			Help:    "Duration of one expiry reconciliation pass.",
			Buckets: prometheus.DefBuckets,
		},
	)

	schedulerPassScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_scheduler_listings_scanned_total",
			Help: "Listings examined by the expiry scheduler.",
		},
	)
)

func IncListingCreated(tier string) {
	listingsCreatedTotal.WithLabelValues(norm(tier)).Inc()
}

func IncListingTransition(from, to string) {
	listingTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}

func IncQuotaRejection() { quotaRejectionsTotal.Inc() }

func ObserveSchedulerPass(scanned int, elapsed time.Duration) {
	schedulerPassScanned.Add(float64(scanned))
	schedulerPassDuration.Observe(elapsed.Seconds())
}
