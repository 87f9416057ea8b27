package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookupsTotal, cacheInvalidationsTotal) }

var (
	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Read-through cache lookups by result.",
		},
		[]string{"cache", "result"}, // result: hit, miss, bypass, error
	)
	cacheInvalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Cache entries dropped after a write, by outcome.",
		},
		[]string{"cache", "result"}, // result: ok, error
	)
)

func IncCacheRequest(cacheName, result string) {
	cacheLookupsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func IncCacheInvalidation(cacheName string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	cacheInvalidationsTotal.WithLabelValues(norm(cacheName), result).Inc()
}
