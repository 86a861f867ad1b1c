package network

import (
	"github.com/dd0wney/mspread/pkg/algorithms"
	"github.com/dd0wney/mspread/pkg/logging"
	"github.com/dd0wney/mspread/pkg/parallel"
)

// Demographics summarises device attributes.
type Demographics struct {
	OSBreakdown map[string]int `json:"os_breakdown"`
	AdminRatio  float64        `json:"admin_ratio"`
}

// Statistics describes the structure of a topology. Expensive measures are
// nil when skipped, and Diameter and Assortativity are also nil when
// undefined (disconnected graph, zero degree variance).
type Statistics struct {
	Nodes        int          `json:"num_nodes"`
	Edges        int          `json:"num_edges"`
	Density      float64      `json:"density"`
	AvgDegree    float64      `json:"avg_degree"`
	MaxDegree    int          `json:"max_degree"`
	Demographics Demographics `json:"demographics"`

	Components         *int     `json:"num_components"`
	GiantComponentSize *int     `json:"giant_component_size"`
	AvgClustering      *float64 `json:"avg_clustering"`
	Assortativity      *float64 `json:"assortativity"`
	Diameter           *int     `json:"diameter"`
}

// Statistics computes counts, density, degree summary and demographics,
// plus components, clustering, assortativity and diameter unless
// skipExpensive is set.
func (t *Topology) Statistics(skipExpensive bool) (Statistics, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	degrees := algorithms.Degrees(t)
	stats := Statistics{
		Nodes:        len(t.devices),
		Edges:        int(t.edgeCount.Load()),
		Density:      algorithms.Density(t),
		AvgDegree:    degrees.Average,
		MaxDegree:    degrees.Max,
		Demographics: t.demographics(),
	}
	if skipExpensive {
		return stats, nil
	}

	components := algorithms.ConnectedComponents(t)
	count, giant := len(components.Components), components.GiantSize()
	stats.Components = &count
	stats.GiantComponentSize = &giant

	t.logger.Info("computing clustering coefficient", logging.Count(stats.Nodes))
	clustering := algorithms.AverageClusteringCoefficient(t)
	stats.AvgClustering = &clustering

	if r, ok := algorithms.DegreeAssortativity(t); ok {
		stats.Assortativity = &r
	}

	if components.Connected() {
		t.logger.Info("computing diameter", logging.Count(stats.Nodes))
		d, ok, err := algorithms.Diameter(t, parallel.DefaultWorkers)
		if err != nil {
			return Statistics{}, err
		}
		if ok {
			stats.Diameter = &d
		}
	}
	return stats, nil
}

// demographics counts devices per os label and the admin share. Caller
// holds t.mu.
func (t *Topology) demographics() Demographics {
	d := Demographics{OSBreakdown: make(map[string]int)}
	admins := 0
	for _, dev := range t.devices {
		d.OSBreakdown[dev.Attributes.OSLabel()]++
		if dev.Attributes.AdminUser {
			admins++
		}
	}
	if len(t.devices) > 0 {
		d.AdminRatio = float64(admins) / float64(len(t.devices))
	}
	return d
}
