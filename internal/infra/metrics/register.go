package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

// register queues collectors from each file's init.
func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister adds every queued collector to the default registry once.
func MustRegister() {
	once.Do(func() { RegisterTo(prometheus.DefaultRegisterer) })
}

// RegisterTo adds the collectors to reg, panicking on a name clash.
func RegisterTo(reg prometheus.Registerer) {
	if len(collectors) > 0 {
		reg.MustRegister(collectors...)
	}
}
