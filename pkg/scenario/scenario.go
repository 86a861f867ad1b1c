// Package scenario loads YAML scenario files describing a topology, a
// malware configuration and run parameters, and executes them on either
// engine.
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/network"
	"github.com/dd0wney/mspread/pkg/simerr"
	"github.com/dd0wney/mspread/pkg/validation"
)

// Engines.
const (
	EngineLoop = "loop"
	EngineFast = "fast"
)

// DefaultMaxSteps bounds a run when max_steps is omitted.
const DefaultMaxSteps = 100

// Scenario is one simulation run.
type Scenario struct {
	Name            string         `yaml:"name" json:"name"`
	Seed            *uint64        `yaml:"seed,omitempty" json:"seed,omitempty"`
	Topology        Topology       `yaml:"topology" json:"topology" validate:"required"`
	Malware         malware.Config `yaml:"malware" json:"malware" validate:"required"`
	InitialInfected []string       `yaml:"initial_infected" json:"initial_infected" validate:"required,min=1"`
	Engine          string         `yaml:"engine,omitempty" json:"engine,omitempty"`
	MaxSteps        int            `yaml:"max_steps,omitempty" json:"max_steps,omitempty" validate:"gte=0"`
	// Export is a file path or s3://bucket/key for the topology snapshot.
	Export string `yaml:"export,omitempty" json:"export,omitempty"`
}

// Topology describes how to build the network.
type Topology struct {
	Kind            network.Kind              `yaml:"kind" json:"kind" validate:"required"`
	Nodes           int                       `yaml:"nodes,omitempty" json:"nodes,omitempty" validate:"gte=0"`
	Defaults        network.AttributePatch    `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Subnets         []network.Subnet          `yaml:"subnets,omitempty" json:"subnets,omitempty" validate:"dive"`
	Interconnects   []network.Interconnect    `yaml:"interconnects,omitempty" json:"interconnects,omitempty"`
	NodeDefinitions []network.BatchDefinition `yaml:"node_definitions,omitempty" json:"node_definitions,omitempty" validate:"dive"`
	Distribution    string                    `yaml:"distribution,omitempty" json:"distribution,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a YAML scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, simerr.New("Parse").Entity("scenario").Context(err.Error()).Cause(simerr.ErrConfiguration).Err()
	}
	sc.normalize()
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// normalize lower-cases labels and fills defaults.
func (sc *Scenario) normalize() {
	sc.Topology.Kind = network.Kind(strings.ToLower(strings.TrimSpace(string(sc.Topology.Kind))))
	for i := range sc.Topology.Subnets {
		s := &sc.Topology.Subnets[i]
		s.Kind = network.Kind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	}
	sc.Malware.Kind = malware.Kind(strings.ToLower(strings.TrimSpace(string(sc.Malware.Kind))))
	sc.Engine = strings.ToLower(strings.TrimSpace(sc.Engine))

	if sc.Engine == "" {
		sc.Engine = EngineLoop
	}
	if sc.MaxSteps == 0 {
		sc.MaxSteps = DefaultMaxSteps
	}
	if sc.Topology.Distribution == "" {
		sc.Topology.Distribution = network.DistributionSequential
	}
}

// Validate checks struct tags and cross-field rules.
func (sc *Scenario) Validate() error {
	cv := validation.NewConfigValidator("scenario").
		Custom("fields", func() error { return validation.Struct(sc) }).
		Custom("topology.kind", func() error {
			_, err := network.ParseKind(string(sc.Topology.Kind))
			return err
		})
	cv.When(sc.Engine != "", func(v *validation.ConfigValidator) {
		v.OneOf("engine", sc.Engine, []string{EngineLoop, EngineFast})
	})
	cv.When(sc.Topology.Distribution != "", func(v *validation.ConfigValidator) {
		v.OneOf("topology.distribution", sc.Topology.Distribution,
			[]string{network.DistributionRandom, network.DistributionSequential})
	})
	cv.When(sc.Topology.Kind == network.Segmented, func(v *validation.ConfigValidator) {
		v.Positive("topology.subnets", len(sc.Topology.Subnets))
	})
	cv.When(sc.Topology.Kind != network.Segmented, func(v *validation.ConfigValidator) {
		v.Positive("topology.nodes", sc.Topology.Nodes)
	})

	if err := cv.Validate(); err != nil {
		return simerr.New("Validate").Entity("scenario").Context(err.Error()).Cause(simerr.ErrConfiguration).Err()
	}
	return nil
}
