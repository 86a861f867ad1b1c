package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSimulationMetrics() {
	r.SimulationRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mspread_simulation_runs_total",
			Help: "Total number of completed simulation runs",
		},
		[]string{"engine"}, // loop, fast
	)

	r.SimulationStepsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mspread_simulation_steps_total",
			Help: "Total number of simulation steps executed",
		},
		[]string{"engine"},
	)

	r.SimulationStepDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mspread_simulation_step_duration_seconds",
			Help:    "Duration of one simulation step in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
		[]string{"engine"},
	)

	r.SimulationInfectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mspread_simulation_infections_total",
			Help: "Total number of new infections",
		},
		[]string{"engine"},
	)

	r.SimulationInfectedDevices = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mspread_simulation_infected_devices",
			Help: "Cumulative infected devices in the current run",
		},
		[]string{"engine"},
	)

	r.SpreadAttemptsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "mspread_spread_attempts_total",
			Help: "Spread attempts by decision reason",
		},
		[]string{"reason"}, // infected, os_mismatch, node_type, admin_boundary, firewall, patched, no_exploit, draw_failed
	)
}
