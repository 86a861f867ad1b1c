// Package fastsim is an attribute-agnostic spread engine for large
// homogeneous networks. Each step is one sparse matrix-vector product over
// the adjacency matrix plus one draw per exposed susceptible node.
package fastsim

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/simerr"
	"github.com/dd0wney/mspread/pkg/sparse"
	"github.com/dd0wney/mspread/pkg/validation"
)

// Engine is the metrics label of this simulator.
const Engine = "fast"

// Node states.
const (
	Susceptible int8 = 0
	Latent      int8 = 1
	Infectious  int8 = 2
)

// StepResult summarises one step.
type StepResult struct {
	Step          int `json:"step"`
	NewlyInfected int `json:"newly_infected"`
	TotalInfected int `json:"total_infected"`
}

// Simulator holds the state vectors of one run.
type Simulator struct {
	adj     *sparse.CSR
	rate    float64
	latency int
	ids     []string // optional index -> device id

	rng     *rand.Rand
	runID   string
	logger  logging.Logger
	metrics *metrics.Registry

	state     []int8
	timers    []int32
	indicator []float64
	exposure  []float64
	step      int
	infected  int
	promoted  int // nodes that turned infectious during the last step
	history   []StepResult
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed seeds the generator.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.rng = network.NewRand(seed) }
}

// WithRand uses rng for every draw.
func WithRand(rng *rand.Rand) Option {
	return func(s *Simulator) { s.rng = rng }
}

// WithLogger sets the run logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Simulator) { s.logger = logger }
}

// WithMetrics records steps on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Simulator) { s.metrics = reg }
}

// New validates the adjacency matrix and parameters. adj must be square,
// symmetric and zero on the diagonal.
func New(adj *sparse.CSR, rate float64, latency int, opts ...Option) (*Simulator, error) {
	cv := validation.NewConfigValidator("fastsim").
		RangeFloat("InfectionRate", rate, 0, 1).
		NonNegative("Latency", latency).
		Custom("Adjacency", func() error {
			if adj == nil {
				return fmt.Errorf("adjacency matrix is nil")
			}
			return adj.ValidateAdjacency()
		})
	if err := cv.Validate(); err != nil {
		return nil, simerr.New("New").Entity("fastsim").Context(err.Error()).Cause(simerr.ErrConfiguration).Err()
	}

	n, _ := adj.Dims()
	s := &Simulator{
		adj:       adj,
		rate:      rate,
		latency:   latency,
		runID:     uuid.NewString(),
		state:     make([]int8, n),
		timers:    make([]int32, n),
		indicator: make([]float64, n),
		exposure:  make([]float64, n),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = network.NewRand(rand.Uint64())
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("fastsim"), logging.RunID(s.runID))
	return s, nil
}

// FromTopology builds a simulator over the adjacency matrix of topo using
// the effective rate and latency of m. Attribute filters are not applied.
func FromTopology(topo *network.Topology, m *malware.Malware, opts ...Option) (*Simulator, error) {
	adj, err := topo.AdjacencyMatrix()
	if err != nil {
		return nil, fmt.Errorf("adjacency matrix: %w", err)
	}
	s, err := New(adj, m.EffectiveRate(), m.Latency(), opts...)
	if err != nil {
		return nil, err
	}
	s.ids = make([]string, topo.Order())
	for i := range s.ids {
		s.ids[i] = topo.IDAt(i)
	}
	return s, nil
}

// RunID returns the run identifier.
func (s *Simulator) RunID() string { return s.runID }

// Order returns the node count.
func (s *Simulator) Order() int { return len(s.state) }

// CurrentStep returns the number of steps taken.
func (s *Simulator) CurrentStep() int { return s.step }

// InfectedCount returns the number of latent or infectious nodes.
func (s *Simulator) InfectedCount() int { return s.infected }

// Initialize marks node indices infectious. Out-of-range indices fail the
// call without changing state.
func (s *Simulator) Initialize(indices []int) error {
	for _, i := range indices {
		if i < 0 || i >= len(s.state) {
			return simerr.UnknownDevice("Initialize", strconv.Itoa(i))
		}
	}
	for _, i := range indices {
		if s.state[i] == Susceptible {
			s.infected++
		}
		s.state[i] = Infectious
		s.timers[i] = 0
	}
	s.logger.Info("simulation initialized", logging.Count(len(indices)), logging.Int("nodes", len(s.state)))
	return nil
}

// InitializeIDs resolves device ids through the topology the simulator was
// built from, then calls Initialize.
func (s *Simulator) InitializeIDs(ids []string) error {
	if s.ids == nil {
		return simerr.Configuration("InitializeIDs", "fastsim", "simulator was not built from a topology")
	}
	index := make(map[string]int, len(s.ids))
	for i, id := range s.ids {
		index[id] = i
	}
	indices := make([]int, 0, len(ids))
	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			return simerr.UnknownDevice("InitializeIDs", id)
		}
		indices = append(indices, i)
	}
	return s.Initialize(indices)
}

// Step advances one step. Exposure is computed from the nodes infectious at
// the start of the step. Existing latent timers count down before new
// infections are recorded, so a node infected at step s becomes infectious
// at the end of step s+latency.
func (s *Simulator) Step() StepResult {
	started := time.Now()
	s.step++

	for i, st := range s.state {
		if st == Infectious {
			s.indicator[i] = 1
		} else {
			s.indicator[i] = 0
		}
	}
	// Vector lengths match the square matrix validated in New.
	_, _ = s.adj.MulVec(s.exposure, s.indicator)

	var newly []int
	for i, st := range s.state {
		if st != Susceptible || s.exposure[i] <= 0 {
			continue
		}
		if s.rng.Float64() < s.rate {
			newly = append(newly, i)
		}
	}

	s.promoted = 0
	for i, st := range s.state {
		if st != Latent {
			continue
		}
		s.timers[i]--
		if s.timers[i] <= 0 {
			s.state[i] = Infectious
			s.promoted++
		}
	}

	for _, i := range newly {
		if s.latency > 0 {
			s.state[i] = Latent
			s.timers[i] = int32(s.latency)
		} else {
			s.state[i] = Infectious
		}
	}
	s.infected += len(newly)

	result := StepResult{Step: s.step, NewlyInfected: len(newly), TotalInfected: s.infected}
	s.history = append(s.history, result)

	elapsed := time.Since(started)
	if s.metrics != nil {
		s.metrics.RecordStep(Engine, elapsed, result.NewlyInfected, result.TotalInfected)
	}
	s.logger.Debug("step complete",
		logging.Step(s.step),
		logging.Int("newly_infected", result.NewlyInfected),
		logging.Int("total_infected", result.TotalInfected),
		logging.Elapsed(elapsed))
	return result
}

// Run steps until maxSteps or until a step infects nothing while no node
// is latent. A node that finished its latency during the step has not
// spread yet, so it keeps the run going.
func (s *Simulator) Run(maxSteps int) []StepResult {
	timer := logging.StartTimer(s.logger, "simulation finished", logging.Int("max_steps", maxSteps))
	for range maxSteps {
		r := s.Step()
		if r.NewlyInfected == 0 && s.promoted == 0 && s.latentCount() == 0 {
			break
		}
	}
	timer.End(logging.Step(s.step), logging.Int("total_infected", s.infected))
	if s.metrics != nil {
		s.metrics.RecordRun(Engine)
	}
	return s.History()
}

func (s *Simulator) latentCount() int {
	n := 0
	for _, st := range s.state {
		if st == Latent {
			n++
		}
	}
	return n
}

// State returns the state of node i.
func (s *Simulator) State(i int) int8 { return s.state[i] }

// States returns a copy of the state vector.
func (s *Simulator) States() []int8 { return slices.Clone(s.state) }

// History returns a copy of every step result so far.
func (s *Simulator) History() []StepResult { return slices.Clone(s.history) }

// InfectedDevices returns the ids of infected nodes in index order. It is
// empty unless the simulator was built with FromTopology.
func (s *Simulator) InfectedDevices() []string {
	var out []string
	if s.ids == nil {
		return out
	}
	for i, st := range s.state {
		if st != Susceptible {
			out = append(out, s.ids[i])
		}
	}
	return out
}

// Reset clears all state vectors, the step counter and history.
func (s *Simulator) Reset() {
	clear(s.state)
	clear(s.timers)
	s.step = 0
	s.infected = 0
	s.promoted = 0
	s.history = nil
}

// Statistics summarises a run of the vectorized engine.
type Statistics struct {
	RunID               string       `json:"run_id"`
	TotalSteps          int          `json:"total_steps"`
	TotalDevices        int          `json:"total_devices"`
	TotalInfected       int          `json:"total_infected"`
	InfectionPercentage float64      `json:"infection_percentage"`
	PeakNewInfections   int          `json:"peak_new_infections"`
	PeakStep            int          `json:"peak_step"`
	History             []StepResult `json:"history"`
}

// Statistics returns totals and the peak step.
func (s *Simulator) Statistics() Statistics {
	stats := Statistics{
		RunID:         s.runID,
		TotalSteps:    s.step,
		TotalDevices:  len(s.state),
		TotalInfected: s.infected,
		History:       s.History(),
	}
	if len(s.state) > 0 {
		stats.InfectionPercentage = float64(s.infected) / float64(len(s.state)) * 100
	}
	for _, r := range s.history {
		if r.NewlyInfected > stats.PeakNewInfections {
			stats.PeakNewInfections = r.NewlyInfected
			stats.PeakStep = r.Step
		}
	}
	return stats
}
