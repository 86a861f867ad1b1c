package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the metrics of one process. Each Registry owns its own
// prometheus.Registry, so tests and embedded runs never collide.
type Registry struct {
	// Topology Metrics
	TopologyGenerationsTotal   *prometheus.CounterVec
	TopologyGenerationDuration *prometheus.HistogramVec
	TopologyDevicesTotal       prometheus.Gauge
	TopologyConnectionsTotal   prometheus.Gauge
	TopologyBatchesTotal       *prometheus.CounterVec
	InterconnectsSkippedTotal  prometheus.Counter

	// Simulation Metrics
	SimulationRunsTotal       *prometheus.CounterVec
	SimulationStepsTotal      *prometheus.CounterVec
	SimulationStepDuration    *prometheus.HistogramVec
	SimulationInfectionsTotal *prometheus.CounterVec
	SimulationInfectedDevices *prometheus.GaugeVec
	SpreadAttemptsTotal       *prometheus.CounterVec

	// System Metrics; runtime and process metrics come from the
	// client_golang collectors.
	UptimeSeconds prometheus.Gauge
	BuildInfo     *prometheus.GaugeVec

	registry *prometheus.Registry
	mu       sync.Mutex
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initTopologyMetrics()
	r.initSimulationMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
