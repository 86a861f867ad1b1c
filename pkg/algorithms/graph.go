// Package algorithms computes structural measures over undirected graphs
// addressed by dense node index: components, clustering, degree
// assortativity, diameter and degree summaries.
package algorithms

// Graph is an undirected graph whose nodes are the indices [0, Order()).
// Neighbors must be symmetric and free of self-loops and duplicates.
type Graph interface {
	Order() int
	Neighbors(i int) []int
}

// AdjacencyList is a Graph backed by a slice of neighbor lists.
type AdjacencyList [][]int

// Order returns the number of nodes.
func (a AdjacencyList) Order() int { return len(a) }

// Neighbors returns the neighbors of node i.
func (a AdjacencyList) Neighbors(i int) []int { return a[i] }

// EdgeCount returns the number of undirected edges in g.
func EdgeCount(g Graph) int {
	total := 0
	for i := 0; i < g.Order(); i++ {
		total += len(g.Neighbors(i))
	}
	return total / 2
}
