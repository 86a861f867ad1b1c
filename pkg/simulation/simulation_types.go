package simulation

import (
	"math/rand/v2"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/network"
)

// Engine is the metrics label of this simulator.
const Engine = "loop"

// State is the infection state of one device.
type State int8

const (
	Susceptible State = iota
	Latent
	Infectious
)

func (s State) String() string {
	switch s {
	case Susceptible:
		return "susceptible"
	case Latent:
		return "latent"
	case Infectious:
		return "infectious"
	default:
		return "unknown"
	}
}

// Infected reports whether s is latent or infectious.
func (s State) Infected() bool { return s != Susceptible }

// StepResult summarises one step.
type StepResult struct {
	Step            int      `json:"step"`
	NewlyInfected   int      `json:"newly_infected"`
	TotalInfected   int      `json:"total_infected"`
	DevicesInfected []string `json:"devices_infected"`
}

// StopCondition is checked before every step of Run; returning true ends
// the run.
type StopCondition func(*Simulator) bool

// Performance holds derived spread metrics. Milestones are nil when the
// ratio was never reached.
type Performance struct {
	PeakNewInfections int     `json:"peak_new_infections"`
	PeakStep          int     `json:"peak_step"`
	TimeTo50Percent   *int    `json:"time_to_50_percent"`
	TimeTo90Percent   *int    `json:"time_to_90_percent"`
	AverageVelocity   float64 `json:"avg_infection_velocity"`
}

// Statistics aggregates a run.
type Statistics struct {
	RunID               string             `json:"run_id"`
	TotalSteps          int                `json:"total_steps"`
	TotalDevices        int                `json:"total_devices"`
	TotalInfected       int                `json:"total_infected"`
	InfectionPercentage float64            `json:"infection_percentage"`
	MalwareType         malware.Kind       `json:"malware_type"`
	History             []StepResult       `json:"history"`
	Topology            network.Statistics `json:"network_stats"`
	Performance         Performance        `json:"performance_metrics"`
	InfectedByOS        map[string]int     `json:"infected_os_breakdown"`
	InfectedAdmin       int                `json:"infected_admin"`
	InfectedNonAdmin    int                `json:"infected_non_admin"`
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed seeds the simulator's generator.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.rng = network.NewRand(seed) }
}

// WithRand uses rng for every draw and shuffle.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithLogger sets the run logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// WithMetrics records steps and attempts on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Simulator) { s.metrics = reg }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(s *Simulator) { s.runID = id }
}
