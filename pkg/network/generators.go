package network

import (
	"math"
	"math/rand/v2"
	"slices"
)

// Structural parameters of the generators.
const (
	// ScaleFreeAttachment is the number of edges each new node brings.
	ScaleFreeAttachment = 3
	// SmallWorldNeighbors is the ring-lattice degree.
	SmallWorldNeighbors = 4
	// SmallWorldRewire is the per-edge rewiring probability.
	SmallWorldRewire = 0.3
	// RandomEdgeProbability is the Erdos-Renyi edge probability.
	RandomEdgeProbability = 0.1
)

// NewRand returns a PCG-backed generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// edgeSet accumulates an undirected simple graph over n local indices.
type edgeSet struct {
	adj []map[int]struct{}
}

func newEdgeSet(n int) *edgeSet {
	s := &edgeSet{adj: make([]map[int]struct{}, n)}
	for i := range s.adj {
		s.adj[i] = make(map[int]struct{})
	}
	return s
}

func (s *edgeSet) add(u, v int) {
	if u == v {
		return
	}
	s.adj[u][v] = struct{}{}
	s.adj[v][u] = struct{}{}
}

func (s *edgeSet) remove(u, v int) {
	delete(s.adj[u], v)
	delete(s.adj[v], u)
}

func (s *edgeSet) has(u, v int) bool {
	_, ok := s.adj[u][v]
	return ok
}

func (s *edgeSet) degree(u int) int {
	return len(s.adj[u])
}

// pairs lists edges as (u, v) with u < v, ordered by u then v.
func (s *edgeSet) pairs() [][2]int {
	var out [][2]int
	for u, neighbors := range s.adj {
		higher := make([]int, 0, len(neighbors))
		for v := range neighbors {
			if v > u {
				higher = append(higher, v)
			}
		}
		slices.Sort(higher)
		for _, v := range higher {
			out = append(out, [2]int{u, v})
		}
	}
	return out
}

// completeEdges returns every pair over n nodes.
func completeEdges(n int) [][2]int {
	if n < 2 {
		return nil
	}
	out := make([][2]int, 0, n*(n-1)/2)
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			out = append(out, [2]int{u, v})
		}
	}
	return out
}

// scaleFreeEdges grows a Barabasi-Albert graph: a star over the first m+1
// nodes, then each new node attaches to m distinct targets drawn with
// probability proportional to degree. Requires m < n.
func scaleFreeEdges(n, m int, rng *rand.Rand) [][2]int {
	edges := make([][2]int, 0, m*(n-m))
	// One entry per unit of degree.
	repeated := make([]int, 0, 2*m*(n-m))

	for leaf := 1; leaf <= m; leaf++ {
		edges = append(edges, [2]int{0, leaf})
		repeated = append(repeated, 0, leaf)
	}

	targets := make(map[int]struct{}, m)
	ordered := make([]int, 0, m)
	for source := m + 1; source < n; source++ {
		clear(targets)
		ordered = ordered[:0]
		for len(targets) < m {
			x := repeated[rng.IntN(len(repeated))]
			if _, dup := targets[x]; dup {
				continue
			}
			targets[x] = struct{}{}
			ordered = append(ordered, x)
		}
		for _, target := range ordered {
			edges = append(edges, [2]int{target, source})
			repeated = append(repeated, target, source)
		}
	}
	return edges
}

// smallWorldEdges builds a Watts-Strogatz graph: a ring lattice where every
// node joins its k/2 nearest neighbors on each side, then each lattice edge
// (u, u+j) is rewired with probability p to a uniformly chosen node that is
// neither u nor already adjacent to u. Requires k < n.
func smallWorldEdges(n, k int, p float64, rng *rand.Rand) [][2]int {
	g := newEdgeSet(n)
	for j := 1; j <= k/2; j++ {
		for u := 0; u < n; u++ {
			g.add(u, (u+j)%n)
		}
	}

	for j := 1; j <= k/2; j++ {
		for u := 0; u < n; u++ {
			if rng.Float64() >= p {
				continue
			}
			v := (u + j) % n
			w := rng.IntN(n)
			rewire := true
			for w == u || g.has(u, w) {
				w = rng.IntN(n)
				if g.degree(u) >= n-1 {
					rewire = false
					break
				}
			}
			if rewire {
				g.remove(u, v)
				g.add(u, w)
			}
		}
	}
	return g.pairs()
}

// randomEdges builds G(n, p) by geometric skipping over the lower triangle,
// so the cost is proportional to the number of edges instead of n^2.
func randomEdges(n int, p float64, rng *rand.Rand) [][2]int {
	if n < 2 || p <= 0 {
		return nil
	}
	if p >= 1 {
		return completeEdges(n)
	}

	var edges [][2]int
	lp := math.Log(1.0 - p)
	v, w := 1, -1
	for v < n {
		lr := math.Log(1.0 - rng.Float64())
		w = w + 1 + int(lr/lp)
		for w >= v && v < n {
			w -= v
			v++
		}
		if v < n {
			edges = append(edges, [2]int{w, v})
		}
	}
	return edges
}
