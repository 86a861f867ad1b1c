package algorithms

import "math"

// DegreeAssortativity returns the Pearson correlation of degrees at the two
// ends of every edge. ok is false when the coefficient is undefined: no
// edges, or zero degree variance across edge ends (e.g. regular graphs).
func DegreeAssortativity(g Graph) (r float64, ok bool) {
	n := g.Order()
	degree := make([]float64, n)
	for i := 0; i < n; i++ {
		degree[i] = float64(len(g.Neighbors(i)))
	}

	// Every undirected edge contributes (du, dv) and (dv, du), so both
	// marginals are identical.
	var m, sum, sumSq, sumProd float64
	for u := 0; u < n; u++ {
		du := degree[u]
		for _, v := range g.Neighbors(u) {
			dv := degree[v]
			m++
			sum += du
			sumSq += du * du
			sumProd += du * dv
		}
	}
	if m == 0 {
		return 0, false
	}

	mean := sum / m
	variance := sumSq/m - mean*mean
	if variance <= 1e-12 {
		return 0, false
	}
	r = (sumProd/m - mean*mean) / variance
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}
