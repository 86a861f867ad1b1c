package spread

import (
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/network"
)

func mustMalware(t *testing.T, cfg malware.Config) *malware.Malware {
	t.Helper()
	if cfg.Kind == "" {
		cfg.Kind = malware.Worm
	}
	m, err := malware.New(cfg)
	if err != nil {
		t.Fatalf("malware.New: %v", err)
	}
	return m
}

func device(patch network.AttributePatch) *network.Attributes {
	a := patch.Resolve()
	return &a
}

func TestEvaluateFilters(t *testing.T) {
	admin := device(network.AttributePatch{})
	user := device(network.AttributePatch{AdminUser: network.Ptr(false)})

	tests := []struct {
		name   string
		cfg    malware.Config
		source *network.Attributes
		target *network.Attributes
		want   string
	}{
		{
			name:   "os unset with allow-list",
			cfg:    malware.Config{InfectionRate: 1, TargetOS: []string{"windows"}},
			source: admin,
			target: admin,
			want:   ReasonOSMismatch,
		},
		{
			name:   "os mismatch",
			cfg:    malware.Config{InfectionRate: 1, TargetOS: []string{"windows"}},
			source: admin,
			target: device(network.AttributePatch{OS: network.Ptr("linux")}),
			want:   ReasonOSMismatch,
		},
		{
			name:   "node type",
			cfg:    malware.Config{InfectionRate: 1, TargetNodeTypes: []string{"server"}},
			source: admin,
			target: admin,
			want:   ReasonNodeType,
		},
		{
			name:   "privilege boundary",
			cfg:    malware.Config{InfectionRate: 1, AvoidsAdmin: true},
			source: user,
			target: admin,
			want:   ReasonAdminBoundary,
		},
		{
			name:   "firewall",
			cfg:    malware.Config{InfectionRate: 1},
			source: admin,
			target: device(network.AttributePatch{FirewallEnabled: network.Ptr(true)}),
			want:   ReasonFirewall,
		},
		{
			name:   "fully patched",
			cfg:    malware.Config{InfectionRate: 1},
			source: admin,
			target: device(network.AttributePatch{PatchStatus: network.Ptr(network.FullyPatched)}),
			want:   ReasonPatched,
		},
		{
			name:   "no exploit",
			cfg:    malware.Config{InfectionRate: 1, CVEOnly: true, Exploits: []string{"CVE-X"}},
			source: admin,
			target: device(network.AttributePatch{Vulnerabilities: []string{"CVE-Y"}}),
			want:   ReasonNoExploit,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMalware(t, tt.cfg)
			d := Evaluate(tt.source, tt.target, m, network.NewRand(1))
			if d.Infected || d.Reason != tt.want {
				t.Errorf("Evaluate = %+v, want failure %q", d, tt.want)
			}
			if d.Drew {
				t.Error("filter failure consumed a draw")
			}
		})
	}
}

func TestEvaluateOverrides(t *testing.T) {
	admin := device(network.AttributePatch{})
	user := device(network.AttributePatch{AdminUser: network.Ptr(false)})
	firewalled := device(network.AttributePatch{FirewallEnabled: network.Ptr(true)})
	patched := device(network.AttributePatch{PatchStatus: network.Ptr(network.FullyPatched)})
	windows := device(network.AttributePatch{OS: network.Ptr("Windows 10"), DeviceType: network.Ptr("server")})

	tests := []struct {
		name   string
		cfg    malware.Config
		source *network.Attributes
		target *network.Attributes
	}{
		{"admin source unrestricted", malware.Config{InfectionRate: 1, AvoidsAdmin: true}, admin, user},
		{"admin source reaches admin", malware.Config{InfectionRate: 1, AvoidsAdmin: true}, admin, admin},
		{"user to user", malware.Config{InfectionRate: 1, AvoidsAdmin: true}, user, user},
		{"bypass firewall", malware.Config{InfectionRate: 1, BypassFirewall: true}, admin, firewalled},
		{"zero day", malware.Config{InfectionRate: 1, ZeroDay: true}, admin, patched},
		{"os and type match", malware.Config{InfectionRate: 1, TargetOS: []string{"windows"}, TargetNodeTypes: []string{"server"}}, admin, windows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMalware(t, tt.cfg)
			if !MayInfect(tt.source, tt.target, m, network.NewRand(1)) {
				t.Error("expected infection")
			}
		})
	}
}

func TestFilterFailureLeavesGeneratorUntouched(t *testing.T) {
	m := mustMalware(t, malware.Config{InfectionRate: 0.5})
	source := device(network.AttributePatch{})
	blocked := device(network.AttributePatch{FirewallEnabled: network.Ptr(true)})

	a, b := network.NewRand(7), network.NewRand(7)
	for i := 0; i < 10; i++ {
		Evaluate(source, blocked, m, a)
	}
	if a.Uint64() != b.Uint64() {
		t.Error("filtered attempts advanced the generator")
	}
}

func TestExploitGatedIgnoresRate(t *testing.T) {
	m := mustMalware(t, malware.Config{InfectionRate: 0, CVEOnly: true, Exploits: []string{"CVE-X"}})
	source := device(network.AttributePatch{})
	target := device(network.AttributePatch{Vulnerabilities: []string{"CVE-A", "CVE-X"}})

	a, b := network.NewRand(3), network.NewRand(3)
	d := Evaluate(source, target, m, a)
	if !d.Infected || d.Drew {
		t.Errorf("Evaluate = %+v, want certain infection without a draw", d)
	}
	if a.Uint64() != b.Uint64() {
		t.Error("exploit-gated attempt consumed a draw")
	}

	firewalled := device(network.AttributePatch{
		Vulnerabilities: []string{"CVE-X"},
		FirewallEnabled: network.Ptr(true),
	})
	if MayInfect(source, firewalled, m, a) {
		t.Error("filters must still apply in exploit-gated mode")
	}
}

func TestDrawRespectsRate(t *testing.T) {
	source := device(network.AttributePatch{})
	target := device(network.AttributePatch{})
	rng := network.NewRand(11)

	never := mustMalware(t, malware.Config{InfectionRate: 0})
	always := mustMalware(t, malware.Config{InfectionRate: 1})
	for i := 0; i < 200; i++ {
		if MayInfect(source, target, never, rng) {
			t.Fatal("rate 0 infected")
		}
		if !MayInfect(source, target, always, rng) {
			t.Fatal("rate 1 failed")
		}
	}

	// With interaction required the effective rate halves.
	gated := mustMalware(t, malware.Config{InfectionRate: 0.8, RequiresInteraction: true})
	hits := 0
	const trials = 20000
	for i := 0; i < trials; i++ {
		if MayInfect(source, target, gated, rng) {
			hits++
		}
	}
	ratio := float64(hits) / trials
	if ratio < 0.37 || ratio > 0.43 {
		t.Errorf("observed rate %.3f, want about 0.4", ratio)
	}
}

func TestCVEGatingProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	m, err := malware.New(malware.Config{Kind: malware.Worm, InfectionRate: 1, CVEOnly: true, Exploits: []string{"CVE-X"}})
	if err != nil {
		t.Fatalf("malware.New: %v", err)
	}
	source := device(network.AttributePatch{})

	properties.Property("infected iff vulnerable to CVE-X", prop.ForAll(
		func(vulns []string, seed uint64) bool {
			target := device(network.AttributePatch{Vulnerabilities: vulns})
			got := MayInfect(source, target, m, network.NewRand(seed))
			return got == target.Vulnerabilities.Has("CVE-X")
		},
		gen.SliceOf(gen.OneConstOf("CVE-X", "CVE-Y", "CVE-Z", "CVE-2024-0001")),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestOrder(t *testing.T) {
	neighbors := []int{5, 2, 9, 1}

	bfs := Order(neighbors, malware.PatternBFS, nil)
	if want := []int{1, 2, 5, 9}; !equal(bfs, want) {
		t.Errorf("bfs order = %v, want %v", bfs, want)
	}
	dfs := Order(neighbors, malware.PatternDFS, nil)
	if want := []int{9, 5, 2, 1}; !equal(dfs, want) {
		t.Errorf("dfs order = %v, want %v", dfs, want)
	}

	random := Order(neighbors, malware.PatternRandom, rand.New(rand.NewPCG(1, 2)))
	if len(random) != len(neighbors) {
		t.Fatalf("random order lost elements: %v", random)
	}
	if !equal(neighbors, []int{5, 2, 9, 1}) {
		t.Errorf("input slice modified: %v", neighbors)
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
