package scenario

import (
	"context"
	"math/rand/v2"

	"github.com/dd0wney/mspread/pkg/fastsim"
	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/simulation"
	"github.com/dd0wney/mspread/pkg/snapshot"
)

// Options carries the collaborators of a run.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	// S3 uploads s3:// exports. Nil builds a client from the default AWS
	// configuration on demand.
	S3 snapshot.ObjectAPI
}

// Result is the outcome of a scenario run. Exactly one of Loop and Fast is
// set, matching the engine.
type Result struct {
	Scenario   string                 `json:"scenario"`
	Engine     string                 `json:"engine"`
	Topology   *network.Topology      `json:"-"`
	Loop       *simulation.Statistics `json:"loop,omitempty"`
	Fast       *fastsim.Statistics    `json:"fast,omitempty"`
	Timeline   map[string]int         `json:"infection_timeline,omitempty"`
	ExportedTo string                 `json:"exported_to,omitempty"`
}

// BuildTopology generates the topology and applies node definitions.
func (sc *Scenario) BuildTopology(rng *rand.Rand, opts Options) (*network.Topology, error) {
	t := sc.Topology
	topo, err := network.Generate(t.Kind, network.Config{
		Nodes:         t.Nodes,
		Defaults:      t.Defaults,
		Subnets:       t.Subnets,
		Interconnects: t.Interconnects,
		Rand:          rng,
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if len(t.NodeDefinitions) > 0 {
		if err := topo.ApplyAttributeBatches(t.NodeDefinitions, t.Distribution, rng); err != nil {
			return nil, err
		}
	}
	return topo, nil
}

// Run builds the topology, runs the chosen engine and exports the snapshot
// when requested.
func (sc *Scenario) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.OrDefault(opts.Logger).With(logging.Component("scenario"), logging.String("scenario", sc.Name))
	opts.Logger = logger

	m, err := malware.New(sc.Malware)
	if err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if sc.Seed != nil {
		seed = *sc.Seed
	}
	rng := network.NewRand(seed)

	topo, err := sc.BuildTopology(rng, opts)
	if err != nil {
		return nil, err
	}

	res := &Result{Scenario: sc.Name, Engine: sc.Engine, Topology: topo}
	switch sc.Engine {
	case EngineFast:
		if !m.AttributeAgnostic() {
			logger.Warn("fast engine ignores malware attribute filters", logging.String("malware", m.Name()))
		}
		sim, err := fastsim.FromTopology(topo, m, fastsim.WithRand(rng), fastsim.WithLogger(logger), fastsim.WithMetrics(opts.Metrics))
		if err != nil {
			return nil, err
		}
		if err := sim.InitializeIDs(sc.InitialInfected); err != nil {
			return nil, err
		}
		sim.Run(sc.MaxSteps)
		stats := sim.Statistics()
		res.Fast = &stats
	default:
		sim, err := simulation.New(topo, m, simulation.WithRand(rng), simulation.WithLogger(logger), simulation.WithMetrics(opts.Metrics))
		if err != nil {
			return nil, err
		}
		if err := sim.Initialize(sc.InitialInfected); err != nil {
			return nil, err
		}
		sim.Run(sc.MaxSteps, nil)
		stats, err := sim.Statistics()
		if err != nil {
			return nil, err
		}
		res.Loop = &stats
		res.Timeline = sim.InfectionTimeline()
	}

	if sc.Export != "" {
		dest, err := Export(ctx, sc.Export, topo.Snapshot(), opts.S3)
		if err != nil {
			return nil, err
		}
		res.ExportedTo = dest
		logger.Info("snapshot exported", logging.String("destination", dest))
	}
	return res, nil
}

// Export writes s to a file path or an s3://bucket/key URL and returns the
// destination. A nil client builds one from the default AWS configuration
// and the MSPREAD_S3_* environment.
func Export(ctx context.Context, dest string, s network.Snapshot, client snapshot.ObjectAPI) (string, error) {
	if err := snapshot.Save(ctx, dest, s, client); err != nil {
		return "", err
	}
	return dest, nil
}
