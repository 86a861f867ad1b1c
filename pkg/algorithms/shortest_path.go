package algorithms

import (
	"sync/atomic"

	"github.com/dd0wney/mspread/pkg/parallel"
)

// diameterBatch is the minimum number of BFS sources per worker batch.
const diameterBatch = 64

// Eccentricity returns the greatest hop distance from source to any node
// reachable from it, and the number of nodes reached (source included).
func Eccentricity(g Graph, source int) (ecc int, reached int) {
	dist := make([]int, g.Order())
	for i := range dist {
		dist[i] = -1
	}
	return bfsEccentricity(g, source, dist)
}

func bfsEccentricity(g Graph, source int, dist []int) (int, int) {
	for i := range dist {
		dist[i] = -1
	}
	queue := make([]int, 0, len(dist))
	queue = append(queue, source)
	dist[source] = 0
	ecc := 0

	for head := 0; head < len(queue); head++ {
		node := queue[head]
		for _, neighbor := range g.Neighbors(node) {
			if dist[neighbor] >= 0 {
				continue
			}
			dist[neighbor] = dist[node] + 1
			if dist[neighbor] > ecc {
				ecc = dist[neighbor]
			}
			queue = append(queue, neighbor)
		}
	}
	return ecc, len(queue)
}

// Diameter returns the longest shortest path in hops. ok is false for an
// empty or disconnected graph. BFS sources are split into batches run on
// the worker pool.
func Diameter(g Graph, workers int) (diameter int, ok bool, err error) {
	n := g.Order()
	if n == 0 {
		return 0, false, nil
	}
	if _, reached := Eccentricity(g, 0); reached != n {
		return 0, false, nil
	}

	var best atomic.Int64
	batches := parallel.Batches(n, parallel.BatchSize(n, workers, diameterBatch))
	err = parallel.RunBatches(workers, batches, func(b parallel.Batch) {
		dist := make([]int, n)
		local := 0
		for source := b.Start; source < b.End; source++ {
			if ecc, _ := bfsEccentricity(g, source, dist); ecc > local {
				local = ecc
			}
		}
		for {
			cur := best.Load()
			if int64(local) <= cur || best.CompareAndSwap(cur, int64(local)) {
				return
			}
		}
	})
	if err != nil {
		return 0, false, err
	}
	return int(best.Load()), true, nil
}
