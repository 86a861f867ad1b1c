package algorithms

// ClusteringCoefficient computes the local clustering coefficient of every
// node: closed neighbor pairs over possible pairs, 0 below degree 2.
func ClusteringCoefficient(g Graph) []float64 {
	n := g.Order()
	coefficients := make([]float64, n)

	// Marker array instead of per-node sets: mark[v] == u+1 while u is scanned.
	mark := make([]int, n)

	for u := 0; u < n; u++ {
		neighbors := g.Neighbors(u)
		k := len(neighbors)
		if k < 2 {
			continue
		}

		for _, v := range neighbors {
			mark[v] = u + 1
		}

		// Each triangle through u is seen twice, once from each end.
		links := 0
		for _, v := range neighbors {
			for _, w := range g.Neighbors(v) {
				if mark[w] == u+1 {
					links++
				}
			}
		}

		possible := k * (k - 1)
		coefficients[u] = float64(links) / float64(possible)
	}

	return coefficients
}

// AverageClusteringCoefficient averages ClusteringCoefficient over all nodes
func AverageClusteringCoefficient(g Graph) float64 {
	coefficients := ClusteringCoefficient(g)
	if len(coefficients) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, coef := range coefficients {
		sum += coef
	}
	return sum / float64(len(coefficients))
}
