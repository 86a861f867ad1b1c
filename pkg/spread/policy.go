// Package spread decides whether one infection attempt from an infectious
// device onto a neighbor succeeds. Decisions are pure apart from the random
// draw taken from the caller's generator.
package spread

import (
	"math/rand/v2"
	"slices"

	"github.com/dd0wney/mspread/pkg/malware"
	"github.com/dd0wney/mspread/pkg/network"
)

// Attempt outcomes. Every value except ReasonInfected is a failure.
const (
	ReasonInfected      = "infected"
	ReasonOSMismatch    = "os_mismatch"
	ReasonNodeType      = "node_type"
	ReasonAdminBoundary = "admin_boundary"
	ReasonFirewall      = "firewall"
	ReasonPatched       = "patched"
	ReasonNoExploit     = "no_exploit"
	ReasonDrawFailed    = "draw_failed"
)

// Reasons lists every outcome in evaluation order.
var Reasons = []string{
	ReasonInfected, ReasonOSMismatch, ReasonNodeType, ReasonAdminBoundary,
	ReasonFirewall, ReasonPatched, ReasonNoExploit, ReasonDrawFailed,
}

// Decision is the result of one attempt.
type Decision struct {
	Infected bool
	Reason   string
	// Drew is set when a random value was consumed.
	Drew bool
}

// Evaluate runs the eligibility filters, then either the exploit check or a
// single probability draw. Filter failures never consume a draw.
func Evaluate(source, target *network.Attributes, m *malware.Malware, rng *rand.Rand) Decision {
	if reason, ok := eligible(source, target, m); !ok {
		return Decision{Reason: reason}
	}

	if m.CVEOnly() {
		if m.Exploits(target.Vulnerabilities) {
			return Decision{Infected: true, Reason: ReasonInfected}
		}
		return Decision{Reason: ReasonNoExploit}
	}

	if rng.Float64() < m.EffectiveRate() {
		return Decision{Infected: true, Reason: ReasonInfected, Drew: true}
	}
	return Decision{Reason: ReasonDrawFailed, Drew: true}
}

// MayInfect reports whether the attempt succeeds.
func MayInfect(source, target *network.Attributes, m *malware.Malware, rng *rand.Rand) bool {
	return Evaluate(source, target, m, rng).Infected
}

func eligible(source, target *network.Attributes, m *malware.Malware) (string, bool) {
	switch {
	case !m.TargetsOS(target.OS):
		return ReasonOSMismatch, false
	case !m.TargetsNodeType(target.DeviceType):
		return ReasonNodeType, false
	case m.AvoidsAdmin() && !source.AdminUser && target.AdminUser:
		return ReasonAdminBoundary, false
	case target.Firewalled() && !m.BypassFirewall():
		return ReasonFirewall, false
	case target.FullyPatched() && !m.ZeroDay():
		return ReasonPatched, false
	}
	return "", true
}

// Order returns the neighbor indices in the sequence they are offered to
// Evaluate: shuffled for random, ascending index for bfs, descending for dfs.
// The input slice is not modified.
func Order(neighbors []int, pattern malware.SpreadPattern, rng *rand.Rand) []int {
	out := slices.Clone(neighbors)
	switch pattern {
	case malware.PatternBFS:
		slices.Sort(out)
	case malware.PatternDFS:
		slices.Sort(out)
		slices.Reverse(out)
	default:
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}
