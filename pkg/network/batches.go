package network

import (
	"fmt"
	"math/rand/v2"

	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/simerr"
)

// Distribution strategies for ApplyAttributeBatches.
const (
	DistributionRandom     = "random"
	DistributionSequential = "sequential"
)

// BatchDefinition assigns Attributes to the next Count devices.
// Vulnerabilities, when non-nil, replaces the patch's vulnerability list.
type BatchDefinition struct {
	Count           int            `json:"count" yaml:"count" validate:"min=0"`
	Attributes      AttributePatch `json:"attributes" yaml:"attributes"`
	Vulnerabilities []string       `json:"vulnerabilities,omitempty" yaml:"vulnerabilities,omitempty"`
}

// ApplyAttributeBatches expands the definitions in order into one patch per
// position: the first definition covers device_0 .. device_{count-1}, the
// next continues from there. With DistributionRandom the patches are
// shuffled before assignment, so batch membership is randomized. Positions
// without a matching device are skipped silently.
func (t *Topology) ApplyAttributeBatches(defs []BatchDefinition, distribution string, rng *rand.Rand) error {
	if distribution != DistributionRandom && distribution != DistributionSequential {
		return simerr.Configuration("ApplyAttributeBatches", "distribution",
			fmt.Sprintf("unknown distribution %q", distribution))
	}

	total := 0
	for i, def := range defs {
		if def.Count < 0 {
			return simerr.Configuration("ApplyAttributeBatches", "batch",
				fmt.Sprintf("definition %d has negative count %d", i, def.Count))
		}
		if err := def.Attributes.Validate(); err != nil {
			return simerr.New("ApplyAttributeBatches").Entity("batch").
				Context(fmt.Sprintf("definition %d: %v", i, err)).Cause(simerr.ErrConfiguration).Err()
		}
		total += def.Count
	}

	patches := make([]AttributePatch, 0, total)
	for _, def := range defs {
		patch := def.Attributes
		if def.Vulnerabilities != nil {
			patch.Vulnerabilities = def.Vulnerabilities
		}
		for range def.Count {
			patches = append(patches, patch)
		}
	}

	if distribution == DistributionRandom {
		if rng == nil {
			rng = NewRand(rand.Uint64())
		}
		rng.Shuffle(len(patches), func(i, j int) { patches[i], patches[j] = patches[j], patches[i] })
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	applied := 0
	for n, patch := range patches {
		i, ok := t.index[DeviceID(n)]
		if !ok {
			continue
		}
		patch.Apply(&t.devices[i].Attributes)
		applied++
	}

	t.logger.Info("attribute batches applied",
		logging.Int("definitions", len(defs)),
		logging.Count(applied),
		logging.Int("skipped", len(patches)-applied),
		logging.String("distribution", distribution))
	return nil
}
