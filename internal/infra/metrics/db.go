package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(dbPoolConns, dbPoolAcquires, dbPoolAcquireWait) }

var (
	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_connections",
			Help: "Connections in the Postgres pool by state.",
		},
		[]string{"state"}, // total, idle, in_use, max
	)
	dbPoolAcquires = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_acquires",
			Help: "Cumulative pool acquisitions as reported by pgxpool, by outcome.",
		},
		[]string{"outcome"}, // ok, waited, canceled
	)
	dbPoolAcquireWait = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "db_pool_acquire_wait_seconds",
		Help: "Cumulative time spent waiting for a pool connection.",
	})
)

// PoolSnapshot is one reading of pgxpool.Stat.
type PoolSnapshot struct {
	Total, Idle, InUse, Max int32
	Acquires                int64
	EmptyAcquires           int64 // had to wait for a connection
	CanceledAcquires        int64
	AcquireWait             time.Duration
}

func SetDBPoolStats(s PoolSnapshot) {
	dbPoolConns.WithLabelValues("total").Set(float64(s.Total))
	dbPoolConns.WithLabelValues("idle").Set(float64(s.Idle))
	dbPoolConns.WithLabelValues("in_use").Set(float64(s.InUse))
	dbPoolConns.WithLabelValues("max").Set(float64(s.Max))
	dbPoolAcquires.WithLabelValues("ok").Set(float64(s.Acquires))
	dbPoolAcquires.WithLabelValues("waited").Set(float64(s.EmptyAcquires))
	dbPoolAcquires.WithLabelValues("canceled").Set(float64(s.CanceledAcquires))
	dbPoolAcquireWait.Set(s.AcquireWait.Seconds())
}
