package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder counts operations on its own registry, which can be
// exported to a node_exporter textfile with WriteTextfile.
type MetricsRecorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	items      *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewMetricsRecorder() *MetricsRecorder {
	m := &MetricsRecorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophmsg",
			Name:      "operations_total",
			Help:      "Messaging operations by name and outcome.",
		}, []string{"op", "outcome"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gophmsg",
			Name:      "items_total",
			Help:      "Envelopes delivered or notifications drained by operation.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gophmsg",
			Name:      "operation_duration_seconds",
			Help:      "Operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"op"}),
	}

	m.registry.MustRegister(m.operations, m.items, m.latency)
	return m
}

func (m *MetricsRecorder) Record(_ context.Context, e Event) {
	m.operations.WithLabelValues(e.Operation, e.Outcome).Inc()
	if e.Count > 0 {
		m.items.WithLabelValues(e.Operation).Add(float64(e.Count))
	}
	m.latency.WithLabelValues(e.Operation).Observe(e.Duration.Seconds())
}

func (m *MetricsRecorder) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the Prometheus text format.
func (m *MetricsRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
