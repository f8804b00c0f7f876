package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks successful lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "latch_acquire_total",
		Help: "Total number of successful lock acquisitions",
	})
	// ContentionCounter tracks acquisitions rejected because the key was held.
	ContentionCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "latch_contention_total",
		Help: "Total number of acquisitions rejected due to contention",
	})
	// ReleaseCounter tracks releases that removed a record.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "latch_release_total",
		Help: "Total number of releases that removed a lock record",
	})
	// StaleReleaseCounter tracks releases that found no matching record.
	StaleReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "latch_release_stale_total",
		Help: "Total number of releases that found no record owned by the caller",
	})
	// HeldGauge reports locks currently held through this process.
	HeldGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "latch_held_locks",
		Help: "Current number of locks held via this process",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterLockMetrics registers latch lock metrics on the provided registry.
func RegisterLockMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireCounter, ContentionCounter, ReleaseCounter, StaleReleaseCounter, HeldGauge)
}
