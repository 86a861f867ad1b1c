// Package simulation drives a malware process over a topology in discrete
// steps, consulting the spread policy for every attempt.
package simulation

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/simerr"
	"github.com/dd0wney/mspread/pkg/spread"
)

// notInfected marks an empty infectedAt slot.
const notInfected = -1

// Simulator owns the infection state of one run. It is not safe for
// concurrent use, and the topology must not change while it runs.
type Simulator struct {
	topo    *network.Topology
	malware *malware.Malware
	rng     *rand.Rand
	runID   string
	logger  logging.Logger
	metrics *metrics.Registry

	step       int
	states     []State
	infectedAt []int
	infected   int
	seeded     int
	timeline   map[string]int
	history    []StepResult
}

// New creates a simulator for m over topo. Without WithSeed or WithRand the
// generator is seeded from the run id.
func New(topo *network.Topology, m *malware.Malware, opts ...Option) (*Simulator, error) {
	if topo == nil {
		return nil, simerr.Configuration("New", "topology", "topology is nil")
	}
	if m == nil {
		return nil, simerr.Configuration("New", "malware", "malware is nil")
	}

	s := &Simulator{
		topo:     topo,
		malware:  m,
		timeline: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	if s.rng == nil {
		s.rng = network.NewRand(seedFrom(s.runID))
	}
	s.logger = logging.OrDefault(s.logger).With(logging.Component("simulation"), logging.RunID(s.runID))

	n := topo.Order()
	s.states = make([]State, n)
	s.infectedAt = make([]int, n)
	for i := range s.infectedAt {
		s.infectedAt[i] = notInfected
	}
	return s, nil
}

// RunID returns the run identifier.
func (s *Simulator) RunID() string { return s.runID }

// Malware returns the malware being simulated.
func (s *Simulator) Malware() *malware.Malware { return s.malware }

// CurrentStep returns the number of steps taken.
func (s *Simulator) CurrentStep() int { return s.step }

// InfectedCount returns the number of latent or infectious devices.
func (s *Simulator) InfectedCount() int { return s.infected }

// Initialize marks ids infectious at step 0. If any id is unknown nothing
// is changed.
func (s *Simulator) Initialize(ids []string) error {
	indices := make([]int, 0, len(ids))
	for _, id := range ids {
		i, ok := s.topo.IndexOf(id)
		if !ok {
			return simerr.UnknownDevice("Initialize", id)
		}
		indices = append(indices, i)
	}

	for _, i := range indices {
		if !s.states[i].Infected() {
			s.infected++
			s.seeded++
		}
		s.states[i] = Infectious
		s.infectedAt[i] = 0
		s.timeline[s.topo.IDAt(i)] = 0
		s.logger.Debug("device seeded", logging.DeviceID(s.topo.IDAt(i)))
	}
	s.logger.Info("simulation initialized",
		logging.Count(len(indices)),
		logging.String("malware", string(s.malware.Kind())),
		logging.TopologyKind(string(s.topo.Kind())))
	return nil
}

// Step advances the simulation by one step. Only devices infectious at the
// start of the step attempt to spread.
func (s *Simulator) Step() StepResult {
	started := time.Now()
	s.step++

	var sources []int
	for i, st := range s.states {
		if st == Infectious {
			sources = append(sources, i)
		}
	}

	latency := s.malware.Latency()
	pattern := s.malware.SpreadPattern()
	var newly []int
	for _, src := range sources {
		srcAttrs := s.topo.AttributesAt(src)
		for _, target := range spread.Order(s.topo.Neighbors(src), pattern, s.rng) {
			if s.states[target].Infected() {
				continue
			}
			d := spread.Evaluate(srcAttrs, s.topo.AttributesAt(target), s.malware, s.rng)
			if s.metrics != nil {
				s.metrics.RecordSpreadAttempt(d.Reason)
			}
			if !d.Infected {
				continue
			}
			if latency == 0 {
				s.states[target] = Infectious
			} else {
				s.states[target] = Latent
			}
			s.infectedAt[target] = s.step
			s.infected++
			newly = append(newly, target)
		}
	}

	for i, st := range s.states {
		if st == Latent && s.step-s.infectedAt[i] >= latency {
			s.states[i] = Infectious
		}
	}

	ids := make([]string, len(newly))
	for k, i := range newly {
		ids[k] = s.topo.IDAt(i)
		s.timeline[ids[k]] = s.step
	}
	result := StepResult{
		Step:            s.step,
		NewlyInfected:   len(newly),
		TotalInfected:   s.infected,
		DevicesInfected: ids,
	}
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

// Run steps until maxSteps, until stop returns true, or until a step
// infects nothing once the step counter exceeds the malware latency. It
// returns the full history.
func (s *Simulator) Run(maxSteps int, stop StopCondition) []StepResult {
	timer := logging.StartTimer(s.logger, "simulation finished", logging.Int("max_steps", maxSteps))
	for range maxSteps {
		if stop != nil && stop(s) {
			break
		}
		r := s.Step()
		if r.NewlyInfected == 0 && s.step > s.malware.Latency() {
			break
		}
	}
	timer.End(logging.Step(s.step), logging.Int("total_infected", s.infected))
	if s.metrics != nil {
		s.metrics.RecordRun(Engine)
	}
	return s.History()
}

// Reset clears the step counter, history, timeline and all infection state.
// The topology and generator are kept.
func (s *Simulator) Reset() {
	s.step = 0
	s.infected = 0
	s.seeded = 0
	s.history = nil
	clear(s.timeline)
	for i := range s.states {
		s.states[i] = Susceptible
		s.infectedAt[i] = notInfected
	}
}

// State returns the infection state of a device.
func (s *Simulator) State(id string) (State, error) {
	i, ok := s.topo.IndexOf(id)
	if !ok {
		return Susceptible, simerr.UnknownDevice("State", id)
	}
	return s.states[i], nil
}

// InfectionTimeline maps each infected device to the step it was infected.
// Seeds map to 0.
func (s *Simulator) InfectionTimeline() map[string]int {
	return maps.Clone(s.timeline)
}

// History returns a copy of every step result so far.
func (s *Simulator) History() []StepResult {
	return slices.Clone(s.history)
}

// InfectedDevices returns the ids of infected devices in index order.
func (s *Simulator) InfectedDevices() []string {
	out := make([]string, 0, s.infected)
	for i, st := range s.states {
		if st.Infected() {
			out = append(out, s.topo.IDAt(i))
		}
	}
	return out
}

// seedFrom derives a seed from a run id, falling back to the wall clock for
// ids that are not UUIDs.
func seedFrom(runID string) uint64 {
	id, err := uuid.Parse(runID)
	if err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.BigEndian.Uint64(id[:8]) ^ binary.BigEndian.Uint64(id[8:])
}

func (s *Simulator) String() string {
	return fmt.Sprintf("Simulator(run=%s, step=%d, infected=%d/%d)", s.runID, s.step, s.infected, len(s.states))
}
