package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RecordGeneration records one topology generation
func (r *Registry) RecordGeneration(kind, status string, duration time.Duration, devices, connections int) {
	r.TopologyGenerationsTotal.WithLabelValues(kind, status).Inc()
	r.TopologyGenerationDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if status == "success" {
		r.TopologyDevicesTotal.Set(float64(devices))
		r.TopologyConnectionsTotal.Set(float64(connections))
	}
}

// RecordBatches counts construction batches for a phase ("devices" or "connections")
func (r *Registry) RecordBatches(phase string, n int) {
	r.TopologyBatchesTotal.WithLabelValues(phase).Add(float64(n))
}

// RecordSkippedInterconnect counts an interconnect dropped for bad indices
func (r *Registry) RecordSkippedInterconnect() {
	r.InterconnectsSkippedTotal.Inc()
}

// RecordStep records one simulation step
func (r *Registry) RecordStep(engine string, duration time.Duration, newlyInfected, totalInfected int) {
	r.SimulationStepsTotal.WithLabelValues(engine).Inc()
	r.SimulationStepDuration.WithLabelValues(engine).Observe(duration.Seconds())
	r.SimulationInfectionsTotal.WithLabelValues(engine).Add(float64(newlyInfected))
	r.SimulationInfectedDevices.WithLabelValues(engine).Set(float64(totalInfected))
}

// RecordRun counts a completed run
func (r *Registry) RecordRun(engine string) {
	r.SimulationRunsTotal.WithLabelValues(engine).Inc()
}

// RecordSpreadAttempt counts one policy decision by reason
func (r *Registry) RecordSpreadAttempt(reason string) {
	r.SpreadAttemptsTotal.WithLabelValues(reason).Inc()
}

// UpdateSystemMetrics refreshes the uptime gauge
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UptimeSeconds.Set(time.Since(started).Seconds())
}

// SetBuildInfo publishes the running version
func (r *Registry) SetBuildInfo(version string) {
	r.BuildInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
