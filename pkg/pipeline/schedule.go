package pipeline

// Schedule computes a deterministic execution order for the pipeline using
// Kahn's algorithm. Ties between simultaneously-ready nodes are broken by
// node insertion order, so re-running Schedule on an unmodified pipeline
// yields the identical order. If any nodes remain after the traversal they
// form one or more cycles and a *CycleError is returned.
func Schedule(p *Pipeline) ([]string, error) {
	index := make(map[string]int, p.NodeCount())
	for i, n := range p.Nodes() {
		index[n.ID()] = i
	}

	// In-degree counts distinct upstream nodes, not connections: two
	// edges from the same producer satisfy a single dependency.
	indeg := make(map[string]int, p.NodeCount())
	for _, n := range p.Nodes() {
		indeg[n.ID()] = len(predecessors(p, n.ID()))
	}

	var queue []string
	for _, n := range p.Nodes() {
		if indeg[n.ID()] == 0 {
			queue = append(queue, n.ID())
		}
	}

	order := make([]string, 0, p.NodeCount())
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		var ready []string
		for _, succ := range successors(p, current) {
			indeg[succ]--
			if indeg[succ] == 0 {
				ready = append(ready, succ)
			}
		}
		// Newly-ready nodes join the queue in insertion order.
		insertionSort(ready, index)
		queue = append(queue, ready...)
	}

	if len(order) < p.NodeCount() {
		var remaining []string
		for _, n := range p.Nodes() {
			if indeg[n.ID()] > 0 {
				remaining = append(remaining, n.ID())
			}
		}
		return nil, &CycleError{NodeIDs: remaining}
	}
	return order, nil
}

// predecessors returns the distinct upstream node ids of nodeID.
func predecessors(p *Pipeline, nodeID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range p.IncomingConnections(nodeID) {
		if !seen[c.SourceNode] {
			seen[c.SourceNode] = true
			out = append(out, c.SourceNode)
		}
	}
	return out
}

// insertionSort orders ids ascending by their pipeline insertion index.
// The slices involved are tiny; no need for sort.Slice.
func insertionSort(ids []string, index map[string]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && index[ids[j]] < index[ids[j-1]]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
