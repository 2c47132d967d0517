package graph

import "github.com/bits-and-blooms/bitset"

// Ops returns a lazy iterator over the live gate nodes in topological order:
// every node is produced after all nodes it depends on. Ties among
// independent nodes are broken by arena (insertion) order, so the order is
// deterministic. The iterator is restartable by calling Ops again; it is
// invalidated by any mutation of the graph.
func (g *Graph) Ops() func() (OpID, bool) {
	n := uint(len(g.nodes))
	indeg := make([]int32, n)
	ready := bitset.New(n)
	for id := range g.nodes {
		nd := &g.nodes[id]
		if nd.dead {
			continue
		}
		indeg[id] = int32(len(nd.in))
		if indeg[id] == 0 {
			ready.Set(uint(id))
		}
	}

	return func() (OpID, bool) {
		for {
			i, ok := ready.NextSet(0)
			if !ok {
				return noOp, false
			}
			ready.Clear(i)
			for _, e := range g.nodes[i].out {
				indeg[e.Dst]--
				if indeg[e.Dst] == 0 {
					ready.Set(uint(e.Dst))
				}
			}
			if !g.nodes[i].kind.IsInput() {
				return OpID(i), true
			}
		}
	}
}

// TopologicalOrder materializes Ops into a slice. Its length always equals
// GateCount.
func (g *Graph) TopologicalOrder() []OpID {
	order := make([]OpID, 0, g.nbGates)
	next := g.Ops()
	for id, ok := next(); ok; id, ok = next() {
		order = append(order, id)
	}
	return order
}
