// Package metrics exposes the engine's Prometheus instrumentation: tick latency, iteration
// counts for nested fixed points, and input batch sizes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles the engine's collectors behind one struct so callers wire a single value
// into their HTTP handler instead of importing prometheus directly.
type Registry struct {
	TickDuration     prometheus.Histogram
	TickErrors       *prometheus.CounterVec
	NestedIterations prometheus.Histogram
	InputBatchSize   prometheus.Histogram
}

// NewRegistry constructs and registers the engine's collectors against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dbsp",
			Name:      "tick_duration_seconds",
			Help:      "Time to execute one circuit tick.",
			Buckets:   prometheus.DefBuckets,
		}),
		TickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dbsp",
			Name:      "tick_errors_total",
			Help:      "Ticks that returned an error, by error kind.",
		}, []string{"kind"}),
		NestedIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dbsp",
			Name:      "nested_iterations",
			Help:      "Iterations a nested fixed-point circuit took to converge.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		}),
		InputBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dbsp",
			Name:      "input_batch_size",
			Help:      "Number of Z-set entries committed per source per tick.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(r.TickDuration, r.TickErrors, r.NestedIterations, r.InputBatchSize)
	return r
}

// ObserveTick records a tick's wall-clock duration and, if kind is non-empty, increments the error
// counter under kind.
func (r *Registry) ObserveTick(start time.Time, kind string) {
	r.TickDuration.Observe(time.Since(start).Seconds())
	if kind != "" {
		r.TickErrors.WithLabelValues(kind).Inc()
	}
}
