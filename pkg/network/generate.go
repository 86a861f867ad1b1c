package network

import (
	"fmt"
	"math/rand/v2"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/metrics"
	"github.com/dd0wney/mspread/pkg/parallel"
	"github.com/dd0wney/mspread/pkg/simerr"
	"github.com/dd0wney/mspread/pkg/validation"
)

// Batch thresholds and minimum batch sizes for parallel construction.
const (
	ParallelNodeThreshold = 1000
	ParallelEdgeThreshold = 10000
	MinNodeBatch          = 1000
	MinEdgeBatch          = 5000
)

// Subnet describes one independently generated segment of a segmented
// topology.
type Subnet struct {
	Kind     Kind           `json:"kind" yaml:"kind"`
	Nodes    int            `json:"nodes" yaml:"nodes"`
	Defaults AttributePatch `json:"defaults" yaml:"defaults"`
}

// Interconnect bridges node SourceNode of subnet SourceSubnet to node
// TargetNode of subnet TargetSubnet. Node indices are local to their subnet.
type Interconnect struct {
	SourceSubnet int  `json:"source_subnet" yaml:"source_subnet"`
	SourceNode   int  `json:"source_node_index" yaml:"source_node_index"`
	TargetSubnet int  `json:"target_subnet" yaml:"target_subnet"`
	TargetNode   int  `json:"target_node_index" yaml:"target_node_index"`
	Firewall     bool `json:"firewall" yaml:"firewall"`
}

// Config parameterizes Generate.
type Config struct {
	// Nodes is the device count. Ignored for segmented topologies.
	Nodes int
	// Defaults are applied to every generated device.
	Defaults AttributePatch
	// Subnets and Interconnects describe a segmented topology.
	Subnets       []Subnet
	Interconnects []Interconnect
	// Rand drives the randomized generators. Nil draws a random seed.
	Rand *rand.Rand
	// Workers sizes the construction pool; 0 means parallel.DefaultWorkers.
	Workers int
	// Sequential disables batched parallel construction.
	Sequential bool

	Logger  logging.Logger
	Metrics *metrics.Registry
}

func (c *Config) validate(kind Kind) error {
	cv := validation.NewConfigValidator("network.Config").
		NonNegative("Nodes", c.Nodes).
		RangeInt("Workers", c.Workers, 0, parallel.MaxWorkers).
		Custom("Defaults", c.Defaults.Validate)

	for i, s := range c.Subnets {
		field := fmt.Sprintf("Subnets[%d]", i)
		cv.NonNegative(field+".Nodes", s.Nodes).
			Custom(field+".Kind", func() error {
				if s.Kind == Segmented {
					return fmt.Errorf("subnets cannot be segmented")
				}
				return nil
			}).
			Custom(field+".Defaults", s.Defaults.Validate)
	}
	cv.When(kind == Segmented, func(v *validation.ConfigValidator) {
		v.Positive("Subnets", len(c.Subnets))
	})

	if err := cv.Validate(); err != nil {
		return simerr.New("Generate").Topology(string(kind)).Context(err.Error()).Cause(simerr.ErrConfiguration).Err()
	}
	return nil
}

// Generate builds a topology of the given kind. Device ids are device_0
// through device_{n-1} in generation order. Sizes too small for the
// generator's structural parameter yield a complete graph.
func Generate(kind Kind, cfg Config) (*Topology, error) {
	kind, err := ParseKind(string(kind))
	if err != nil {
		return nil, err
	}
	if cfg.Subnets, err = normalizeSubnets(cfg.Subnets); err != nil {
		return nil, err
	}
	if err := cfg.validate(kind); err != nil {
		return nil, err
	}

	logger := logging.OrDefault(cfg.Logger).With(logging.Component("network"), logging.TopologyKind(string(kind)))
	rng := cfg.Rand
	if rng == nil {
		rng = NewRand(rand.Uint64())
	}

	t := New(kind, WithLogger(logger), WithMetrics(cfg.Metrics))
	timer := logging.StartTimer(logger, "topology generated")

	if kind == Segmented {
		err = t.buildSegmented(cfg, rng)
	} else {
		logger.Info("generating topology", logging.Count(cfg.Nodes))
		edges := structuralEdges(kind, cfg.Nodes, rng, logger)
		base := cfg.Defaults.Resolve()
		err = t.build(cfg, cfg.Nodes, func(int) Attributes { return base.Clone() }, edges)
	}

	if err != nil {
		timer.EndError(err)
		if t.metrics != nil {
			t.metrics.RecordGeneration(string(kind), "error", timer.Elapsed(), 0, 0)
		}
		return nil, err
	}

	elapsed := timer.End(logging.Int("devices", t.DeviceCount()), logging.Int("connections", t.ConnectionCount()))
	if t.metrics != nil {
		t.metrics.RecordGeneration(string(kind), "success", elapsed, t.DeviceCount(), t.ConnectionCount())
	}
	return t, nil
}

// GenerateSegmented builds a segmented topology from cfg.Subnets and
// cfg.Interconnects.
func GenerateSegmented(cfg Config) (*Topology, error) {
	return Generate(Segmented, cfg)
}

// normalizeSubnets returns a copy of subnets with every kind in canonical
// form. The caller's slice is left untouched.
func normalizeSubnets(subnets []Subnet) ([]Subnet, error) {
	if len(subnets) == 0 {
		return subnets, nil
	}
	out := make([]Subnet, len(subnets))
	for i, s := range subnets {
		kind, err := ParseKind(string(s.Kind))
		if err != nil {
			return nil, fmt.Errorf("subnet %d: %w", i, err)
		}
		s.Kind = kind
		out[i] = s
	}
	return out, nil
}

// structuralEdges returns the local edge list for a non-segmented kind.
func structuralEdges(kind Kind, n int, rng *rand.Rand, logger logging.Logger) [][2]int {
	switch kind {
	case ScaleFree:
		if n <= ScaleFreeAttachment {
			logger.Warn("too few nodes for preferential attachment, using complete graph",
				logging.Count(n), logging.Int("attachment", ScaleFreeAttachment))
			return completeEdges(n)
		}
		return scaleFreeEdges(n, ScaleFreeAttachment, rng)
	case SmallWorld:
		if n <= SmallWorldNeighbors {
			logger.Warn("too few nodes for ring lattice, using complete graph",
				logging.Count(n), logging.Int("lattice_degree", SmallWorldNeighbors))
			return completeEdges(n)
		}
		return smallWorldEdges(n, SmallWorldNeighbors, SmallWorldRewire, rng)
	case Random:
		return randomEdges(n, RandomEdgeProbability, rng)
	default:
		return completeEdges(n)
	}
}

// build inserts n devices and the given edges, splitting both phases into
// batches on the worker pool when they exceed the parallel thresholds.
func (t *Topology) build(cfg Config, n int, attrsFor func(i int) Attributes, edges [][2]int) error {
	workers := cfg.Workers
	if workers <= 0 {
		workers = parallel.DefaultWorkers
	}

	t.mu.Lock()
	base := len(t.devices)
	slots := make([]*Device, n)
	t.mu.Unlock()

	fill := func(b parallel.Batch) {
		for i := b.Start; i < b.End; i++ {
			idx := base + i
			slots[i] = &Device{ID: DeviceID(idx), Index: idx, State: StateHealthy, Attributes: attrsFor(i)}
		}
	}

	if !cfg.Sequential && n > ParallelNodeThreshold {
		batches := parallel.Batches(n, parallel.BatchSize(n, workers, MinNodeBatch))
		t.logger.Debug("adding devices in batches", logging.Count(n), logging.Int("batches", len(batches)))
		if err := parallel.RunBatches(workers, batches, fill); err != nil {
			return fmt.Errorf("adding devices: %w", err)
		}
		if t.metrics != nil {
			t.metrics.RecordBatches("devices", len(batches))
		}
	} else {
		fill(parallel.Batch{Start: 0, End: n})
	}

	t.mu.Lock()
	for _, d := range slots {
		t.devices = append(t.devices, d)
		t.index[d.ID] = d.Index
		t.adjacency = append(t.adjacency, nil)
	}
	t.mu.Unlock()

	link := func(b parallel.Batch) {
		for _, e := range edges[b.Start:b.End] {
			t.connect(base+e[0], base+e[1], ConnectionNetwork, nil)
		}
	}

	if !cfg.Sequential && len(edges) > ParallelEdgeThreshold {
		batches := parallel.Batches(len(edges), parallel.BatchSize(len(edges), workers, MinEdgeBatch))
		t.logger.Debug("adding connections in batches", logging.Count(len(edges)), logging.Int("batches", len(batches)))
		if err := parallel.RunBatches(workers, batches, link); err != nil {
			return fmt.Errorf("adding connections: %w", err)
		}
		if t.metrics != nil {
			t.metrics.RecordBatches("connections", len(batches))
		}
	} else {
		link(parallel.Batch{Start: 0, End: len(edges)})
	}
	return nil
}

// buildSegmented generates every subnet, relabels it by a running offset,
// then adds the interconnects. Interconnects with bad indices are logged and
// skipped.
func (t *Topology) buildSegmented(cfg Config, rng *rand.Rand) error {
	offsets := make([]int, len(cfg.Subnets))
	offset := 0
	for s, subnet := range cfg.Subnets {
		offsets[s] = offset
		t.logger.Info("generating subnet",
			logging.Int("subnet", s), logging.TopologyKind(string(subnet.Kind)), logging.Count(subnet.Nodes))

		edges := structuralEdges(subnet.Kind, subnet.Nodes, rng, t.logger)
		base := cfg.Defaults.Merge(subnet.Defaults).Resolve()
		if err := t.build(cfg, subnet.Nodes, func(int) Attributes { return base.Clone() }, edges); err != nil {
			return fmt.Errorf("subnet %d: %w", s, err)
		}
		offset += subnet.Nodes
	}

	for k, ic := range cfg.Interconnects {
		src, okSrc := resolveSubnetNode(cfg.Subnets, offsets, ic.SourceSubnet, ic.SourceNode)
		dst, okDst := resolveSubnetNode(cfg.Subnets, offsets, ic.TargetSubnet, ic.TargetNode)
		if !okSrc || !okDst || src == dst {
			t.logger.Warn("skipping interconnect with invalid indices",
				logging.Int("interconnect", k),
				logging.Int("source_subnet", ic.SourceSubnet), logging.Int("source_node_index", ic.SourceNode),
				logging.Int("target_subnet", ic.TargetSubnet), logging.Int("target_node_index", ic.TargetNode))
			if t.metrics != nil {
				t.metrics.RecordSkippedInterconnect()
			}
			continue
		}

		t.connect(src, dst, ConnectionInterconnect, map[string]any{"firewall": ic.Firewall})
		t.logger.Debug("interconnect added",
			logging.String("source", DeviceID(src)), logging.String("target", DeviceID(dst)),
			logging.Bool("firewall", ic.Firewall))
		if ic.Firewall {
			t.mu.Lock()
			t.devices[src].Attributes.FirewallEnabled = Ptr(true)
			t.devices[dst].Attributes.FirewallEnabled = Ptr(true)
			t.mu.Unlock()
		}
	}
	return nil
}

func resolveSubnetNode(subnets []Subnet, offsets []int, subnet, node int) (int, bool) {
	if subnet < 0 || subnet >= len(subnets) {
		return 0, false
	}
	if node < 0 || node >= subnets[subnet].Nodes {
		return 0, false
	}
	return offsets[subnet] + node, true
}
