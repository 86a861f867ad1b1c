package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/scenario"
)

type demoOptions struct {
	nodes       int
	topology    string
	malwareType string
	rate        float64
	steps       int
	seed        uint64
	engine      string
}

func newDemoCmd() *cobra.Command {
	o := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a demonstration simulation",
		Example: `  mspread demo
  mspread demo --nodes 100 --type virus
  mspread demo --nodes 500 --rate 0.5 --topology small_world`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				o.seed = rand.Uint64()
			}
			return runDemo(cmd, o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.nodes, "nodes", 30000, "number of network devices")
	f.StringVar(&o.topology, "topology", string(network.ScaleFree), "topology: scale_free, small_world, random, complete")
	f.StringVar(&o.malwareType, "type", string(malware.Worm), "malware type: worm, virus, ransomware")
	f.Float64Var(&o.rate, "rate", 0.35, "infection rate in [0, 1]")
	f.IntVar(&o.steps, "steps", 50, "maximum simulation steps")
	f.Uint64Var(&o.seed, "seed", 0, "random seed (random when unset)")
	f.StringVar(&o.engine, "engine", scenario.EngineLoop, "engine: loop or fast")
	return cmd
}

func runDemo(cmd *cobra.Command, o demoOptions) error {
	logger := logging.DefaultLogger().With(logging.Component("demo"))

	kind, err := network.ParseKind(o.topology)
	if err != nil {
		return err
	}
	if kind == network.Segmented {
		return fmt.Errorf("segmented topologies need subnet definitions; use 'mspread run' with a scenario file")
	}
	mkind, err := malware.ParseKind(o.malwareType)
	if err != nil {
		return err
	}

	sc := &scenario.Scenario{
		Name: "demo",
		Seed: &o.seed,
		Topology: scenario.Topology{
			Kind:  kind,
			Nodes: o.nodes,
		},
		Malware: malware.Config{
			Kind:          mkind,
			Name:          "malware_1",
			InfectionRate: o.rate,
			Latency:       malware.PresetLatency(mkind),
		},
		InitialInfected: []string{network.DeviceID(0), network.DeviceID(1)},
		Engine:          o.engine,
		MaxSteps:        o.steps,
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	logger.Info("running demonstration",
		logging.Count(o.nodes),
		logging.TopologyKind(string(kind)),
		logging.String("malware", string(mkind)),
		logging.Float64("rate", o.rate),
		logging.Int("max_steps", o.steps),
	)
	res, err := sc.Run(cmd.Context(), scenario.Options{Logger: logger})
	if err != nil {
		return err
	}
	return renderResult(cmd.OutOrStdout(), "MSpread Demonstration", sc, res)
}
