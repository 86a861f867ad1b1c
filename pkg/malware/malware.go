// Package malware holds the parameterized malware configuration evaluated
// by the spread policy. One record covers every kind; kinds differ only by
// preset latency and description.
package malware

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dd0wney/mspread/pkg/simerr"
	"github.com/dd0wney/mspread/pkg/validation"
)

// Kind labels the malware family.
type Kind string

const (
	Worm       Kind = "worm"
	Virus      Kind = "virus"
	Ransomware Kind = "ransomware"
)

// Kinds lists every supported kind.
var Kinds = []Kind{Worm, Virus, Ransomware}

// SpreadPattern orders a source's candidate neighbors within a step.
type SpreadPattern string

const (
	PatternRandom SpreadPattern = "random"
	PatternBFS    SpreadPattern = "bfs"
	PatternDFS    SpreadPattern = "dfs"
)

// InteractionDiscount multiplies the infection rate when user interaction
// is required.
const InteractionDiscount = 0.5

var presetLatency = map[Kind]int{
	Worm:       1,
	Virus:      2,
	Ransomware: 3,
}

var behaviors = map[Kind]string{
	Worm:       "self-propagates across network connections without user action",
	Virus:      "attaches to host files and spreads when infected content is executed",
	Ransomware: "encrypts device data and moves laterally to reachable hosts",
}

// ParseKind maps a label to a Kind. Unknown labels are configuration errors.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Kinds, k) {
		return k, nil
	}
	return "", simerr.New("ParseKind").Malware(s).
		Context(fmt.Sprintf("expected one of %v", Kinds)).
		Cause(simerr.ErrConfiguration).Err()
}

// PresetLatency returns the default latency of kind.
func PresetLatency(kind Kind) int {
	return presetLatency[kind]
}

// Config is the user-facing malware description.
type Config struct {
	Kind                Kind          `json:"malware_type" yaml:"malware_type" validate:"required,oneof=worm virus ransomware"`
	Name                string        `json:"name,omitempty" yaml:"name,omitempty"`
	InfectionRate       float64       `json:"infection_rate" yaml:"infection_rate" validate:"gte=0,lte=1"`
	Latency             int           `json:"latency" yaml:"latency" validate:"gte=0"`
	SpreadPattern       SpreadPattern `json:"spread_pattern,omitempty" yaml:"spread_pattern,omitempty" validate:"omitempty,oneof=random bfs dfs"`
	TargetOS            []string      `json:"target_os,omitempty" yaml:"target_os,omitempty"`
	TargetNodeTypes     []string      `json:"target_node_types,omitempty" yaml:"target_node_types,omitempty"`
	AvoidsAdmin         bool          `json:"avoids_admin,omitempty" yaml:"avoids_admin,omitempty"`
	RequiresInteraction bool          `json:"requires_interaction,omitempty" yaml:"requires_interaction,omitempty"`
	BypassFirewall      bool          `json:"bypass_firewall,omitempty" yaml:"bypass_firewall,omitempty"`
	ZeroDay             bool          `json:"zero_day,omitempty" yaml:"zero_day,omitempty"`
	CVEOnly             bool          `json:"cve_only,omitempty" yaml:"cve_only,omitempty"`
	Exploits            []string      `json:"exploits,omitempty" yaml:"exploits,omitempty"`
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if err := validation.Struct(&c); err != nil {
		return simerr.New("Validate").Malware(string(c.Kind)).Context(err.Error()).Cause(simerr.ErrConfiguration).Err()
	}
	return nil
}

// Malware is a validated, immutable malware configuration.
type Malware struct {
	cfg       Config
	targetOS  []string // lower-cased
	nodeTypes map[string]struct{}
	exploits  map[string]struct{}
}

// New validates cfg and returns an immutable Malware. The input is copied,
// so later changes to cfg have no effect. An empty spread pattern defaults
// to random and an empty name to the kind.
func New(cfg Config) (*Malware, error) {
	kind, err := ParseKind(string(cfg.Kind))
	if err != nil {
		return nil, err
	}
	cfg.Kind = kind
	if cfg.SpreadPattern == "" {
		cfg.SpreadPattern = PatternRandom
	}
	if cfg.Name == "" {
		cfg.Name = string(kind)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Malware{cfg: cfg.clone()}
	for _, os := range cfg.TargetOS {
		m.targetOS = append(m.targetOS, strings.ToLower(os))
	}
	if len(cfg.TargetNodeTypes) > 0 {
		m.nodeTypes = toSet(cfg.TargetNodeTypes)
	}
	m.exploits = toSet(cfg.Exploits)
	return m, nil
}

// Preset builds a malware of kind with its preset latency.
func Preset(kind Kind, rate float64) (*Malware, error) {
	return New(Config{Kind: kind, InfectionRate: rate, Latency: PresetLatency(kind)})
}

func (c Config) clone() Config {
	out := c
	out.TargetOS = slices.Clone(c.TargetOS)
	out.TargetNodeTypes = slices.Clone(c.TargetNodeTypes)
	out.Exploits = slices.Clone(c.Exploits)
	return out
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Config returns a copy of the configuration.
func (m *Malware) Config() Config { return m.cfg.clone() }

func (m *Malware) Kind() Kind                   { return m.cfg.Kind }
func (m *Malware) Name() string                 { return m.cfg.Name }
func (m *Malware) InfectionRate() float64       { return m.cfg.InfectionRate }
func (m *Malware) Latency() int                 { return m.cfg.Latency }
func (m *Malware) SpreadPattern() SpreadPattern { return m.cfg.SpreadPattern }
func (m *Malware) AvoidsAdmin() bool            { return m.cfg.AvoidsAdmin }
func (m *Malware) RequiresInteraction() bool    { return m.cfg.RequiresInteraction }
func (m *Malware) BypassFirewall() bool         { return m.cfg.BypassFirewall }
func (m *Malware) ZeroDay() bool                { return m.cfg.ZeroDay }
func (m *Malware) CVEOnly() bool                { return m.cfg.CVEOnly }

// Behavior describes the kind in one sentence.
func (m *Malware) Behavior() string { return behaviors[m.cfg.Kind] }

// EffectiveRate is the per-attempt success probability outside exploit-gated
// mode.
func (m *Malware) EffectiveRate() float64 {
	if m.cfg.RequiresInteraction {
		return m.cfg.InfectionRate * InteractionDiscount
	}
	return m.cfg.InfectionRate
}

// TargetsOS reports whether a device with the given os may be attacked.
// With no target_os list every device qualifies; otherwise os must be set
// and one allowed value must be a case-insensitive substring of it.
func (m *Malware) TargetsOS(os *string) bool {
	if len(m.targetOS) == 0 {
		return true
	}
	if os == nil {
		return false
	}
	lower := strings.ToLower(*os)
	for _, allowed := range m.targetOS {
		if strings.Contains(lower, allowed) {
			return true
		}
	}
	return false
}

// TargetsNodeType reports whether a device_type may be attacked.
func (m *Malware) TargetsNodeType(deviceType string) bool {
	if m.nodeTypes == nil {
		return true
	}
	_, ok := m.nodeTypes[deviceType]
	return ok
}

// Exploits reports whether any of vulnerabilities is in the exploit set.
func (m *Malware) Exploits(vulnerabilities map[string]struct{}) bool {
	small, large := m.exploits, vulnerabilities
	if len(small) > len(large) {
		small, large = large, small
	}
	for v := range small {
		if _, ok := large[v]; ok {
			return true
		}
	}
	return false
}

// AttributeAgnostic reports whether the malware declares no attribute
// filters of its own. Firewall and patch checks still depend on devices.
func (m *Malware) AttributeAgnostic() bool {
	c := m.cfg
	return len(c.TargetOS) == 0 && len(c.TargetNodeTypes) == 0 && !c.AvoidsAdmin && !c.CVEOnly
}
