package simulation

import (
	"fmt"
)

// Statistics summarises the run so far together with the cheap topology
// statistics.
func (s *Simulator) Statistics() (Statistics, error) {
	topoStats, err := s.topo.Statistics(true)
	if err != nil {
		return Statistics{}, fmt.Errorf("topology statistics: %w", err)
	}

	total := len(s.states)
	stats := Statistics{
		RunID:         s.runID,
		TotalSteps:    s.step,
		TotalDevices:  total,
		TotalInfected: s.infected,
		MalwareType:   s.malware.Kind(),
		History:       s.History(),
		Topology:      topoStats,
		Performance:   s.performance(),
		InfectedByOS:  make(map[string]int),
	}
	if total > 0 {
		stats.InfectionPercentage = float64(s.infected) / float64(total) * 100
	}

	for i, st := range s.states {
		if !st.Infected() {
			continue
		}
		attrs := s.topo.AttributesAt(i)
		stats.InfectedByOS[attrs.OSLabel()]++
		if attrs.AdminUser {
			stats.InfectedAdmin++
		} else {
			stats.InfectedNonAdmin++
		}
	}
	return stats, nil
}

func (s *Simulator) performance() Performance {
	var p Performance
	newTotal := 0
	for _, r := range s.history {
		newTotal += r.NewlyInfected
		if r.NewlyInfected > p.PeakNewInfections {
			p.PeakNewInfections = r.NewlyInfected
			p.PeakStep = r.Step
		}
	}
	if len(s.history) > 0 {
		p.AverageVelocity = float64(newTotal) / float64(len(s.history))
	}
	p.TimeTo50Percent = s.milestone(0.5)
	p.TimeTo90Percent = s.milestone(0.9)
	return p
}

// milestone returns the first step at which the infected share reached
// ratio, 0 if the seeds alone reach it, or nil if it was never reached.
func (s *Simulator) milestone(ratio float64) *int {
	total := len(s.states)
	if total == 0 {
		return nil
	}
	threshold := ratio * float64(total)
	if float64(s.seeded) >= threshold {
		zero := 0
		return &zero
	}
	for _, r := range s.history {
		if float64(r.TotalInfected) >= threshold {
			step := r.Step
			return &step
		}
	}
	return nil
}
