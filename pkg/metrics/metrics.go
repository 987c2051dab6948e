// Package metrics provides performance tracking and observability for
// Quasar using Prometheus metrics. Collectors cover the export path:
// operation counts and latency, buffers and bytes handed across the
// ownership boundary, and the number of live device-array handles.
//
// Metrics are registered automatically via promauto and are designed to
// have minimal overhead on the hot path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExportsTotal counts export operations by path (owning/view,
	// column/table) and outcome (success or the error category).
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quasar",
		Subsystem: "interop",
		Name:      "exports_total",
		Help:      "Total device-array export operations",
	}, []string{"path", "outcome"})

	// ExportDuration tracks export latency by path.
	ExportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quasar",
		Subsystem: "interop",
		Name:      "export_duration_seconds",
		Help:      "Device-array export latency",
		Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"path"})

	// BuffersTransferred counts buffers installed into foreign slots.
	BuffersTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quasar",
		Subsystem: "interop",
		Name:      "buffers_transferred_total",
		Help:      "Buffers installed into foreign array slots",
	})

	// BytesExported counts payload bytes handed to foreign consumers.
	BytesExported = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quasar",
		Subsystem: "interop",
		Name:      "bytes_exported_total",
		Help:      "Payload bytes referenced by exported arrays",
	})

	// LiveHandles tracks device-array handles not yet released.
	LiveHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quasar",
		Subsystem: "interop",
		Name:      "live_handles",
		Help:      "Device-array handles currently alive",
	})
)

// Timer measures a single operation's duration.
type Timer struct {
	start time.Time
	path  string
}

// NewTimer starts a timer for an export path.
func NewTimer(path string) *Timer {
	return &Timer{start: time.Now(), path: path}
}

// Stop records the elapsed time against the path's histogram and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	ExportDuration.WithLabelValues(t.path).Observe(d.Seconds())
	return d
}

// RecordOutcome increments the export counter for a path and outcome.
func RecordOutcome(path, outcome string) {
	ExportsTotal.WithLabelValues(path, outcome).Inc()
}
