package algorithms

// DegreeSummary aggregates node degrees.
type DegreeSummary struct {
	Average float64
	Max     int
	Min     int
}

// Degrees summarises the degree distribution of g. All fields are zero for
// an empty graph.
func Degrees(g Graph) DegreeSummary {
	n := g.Order()
	if n == 0 {
		return DegreeSummary{}
	}

	summary := DegreeSummary{Min: len(g.Neighbors(0))}
	total := 0
	for i := 0; i < n; i++ {
		d := len(g.Neighbors(i))
		total += d
		if d > summary.Max {
			summary.Max = d
		}
		if d < summary.Min {
			summary.Min = d
		}
	}
	summary.Average = float64(total) / float64(n)
	return summary
}

// Density is 2|E| / (n(n-1)), 0 for fewer than two nodes.
func Density(g Graph) float64 {
	n := g.Order()
	if n < 2 {
		return 0
	}
	return 2 * float64(EdgeCount(g)) / (float64(n) * float64(n-1))
}
