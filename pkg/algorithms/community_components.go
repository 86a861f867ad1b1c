package algorithms

import "container/list"

// ConnectedComponents finds all connected components in the graph
func ConnectedComponents(g Graph) *ComponentsResult {
	n := g.Order()
	nodeComponent := make([]int, n)
	for i := range nodeComponent {
		nodeComponent[i] = -1
	}
	components := make([]*Component, 0)

	// BFS to find each component
	for start := 0; start < n; start++ {
		if nodeComponent[start] >= 0 {
			continue
		}

		component := &Component{ID: len(components)}
		queue := list.New()
		queue.PushBack(start)
		nodeComponent[start] = component.ID

		for queue.Len() > 0 {
			node, ok := queue.Remove(queue.Front()).(int)
			if !ok {
				continue
			}
			component.Nodes = append(component.Nodes, node)

			for _, neighbor := range g.Neighbors(node) {
				if nodeComponent[neighbor] < 0 {
					nodeComponent[neighbor] = component.ID
					queue.PushBack(neighbor)
				}
			}
		}

		component.Size = len(component.Nodes)
		components = append(components, component)
	}

	return &ComponentsResult{
		Components:    components,
		NodeComponent: nodeComponent,
	}
}
