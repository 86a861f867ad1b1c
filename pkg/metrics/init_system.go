package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initSystemMetrics registers the Go runtime and process collectors plus
// the uptime and build gauges refreshed by UpdateSystemMetrics.
func (r *Registry) initSystemMetrics() {
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "mspread"}),
	)

	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "mspread_uptime_seconds",
			Help: "Time since the metrics endpoint started in seconds",
		},
	)

	r.BuildInfo = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mspread_build_info",
			Help: "Build information, always 1",
		},
		[]string{"version", "go_version"},
	)
}
