package algorithms

// Component is one connected component
type Component struct {
	ID    int
	Nodes []int
	Size  int
}

// ComponentsResult contains the connected components of a graph
type ComponentsResult struct {
	Components    []*Component
	NodeComponent []int // node index -> component ID
}

// GiantSize returns the size of the largest component, 0 for an empty graph.
func (r *ComponentsResult) GiantSize() int {
	largest := 0
	for _, c := range r.Components {
		if c.Size > largest {
			largest = c.Size
		}
	}
	return largest
}

// Connected reports whether the graph is a single non-empty component.
func (r *ComponentsResult) Connected() bool {
	return len(r.Components) == 1
}
