package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTopologyMetrics() {
	r.TopologyGenerationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mspread_topology_generations_total",
			Help: "Total number of generated topologies",
		},
		[]string{"kind", "status"},
	)

	r.TopologyGenerationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mspread_topology_generation_duration_seconds",
			Help:    "Topology generation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"kind"},
	)

	r.TopologyDevicesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "mspread_topology_devices_total",
			Help: "Number of devices in the last generated topology",
		},
	)

	r.TopologyConnectionsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "mspread_topology_connections_total",
			Help: "Number of connections in the last generated topology",
		},
	)

	r.TopologyBatchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mspread_topology_batches_total",
			Help: "Construction batches applied on the worker pool",
		},
		[]string{"phase"}, // devices, connections
	)

	r.InterconnectsSkippedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "mspread_topology_interconnects_skipped_total",
			Help: "Interconnects skipped because of invalid subnet or node indices",
		},
	)
}
