package graph

import (
	"errors"
	"slices"
)

var errStaleMatch = errors.New("graph: match invalidated by a previous mutation")

// Apply performs the rewrite described by a Match: the matched convex node
// set is excised, the rule's replacement is spliced in, and the boundary
// wires are reconnected. The graph is mutated only through this whole-
// subgraph replacement, never through ad hoc node edits.
//
// Apply requires exclusive access to the graph and invalidates every
// outstanding Match and iterator obtained from it.
func (g *Graph) Apply(m *Match) error {
	if m.g != g {
		return errors.New("graph: match belongs to a different graph")
	}
	for _, id := range m.nodes {
		if !g.live(id) {
			return errStaleMatch
		}
	}
	// a prior rewrite can kill a boundary producer while every bound node
	// survives; such a match is just as stale
	for _, w := range m.extQ {
		if !g.live(w.op) {
			return errStaleMatch
		}
	}
	for _, w := range m.extP {
		if !g.live(w.op) {
			return errStaleMatch
		}
	}

	x := m.Xfer

	// record the external consumers of every region output wire before the
	// region is torn down
	consumers := make([][]Edge, x.pattern.NbQubits())
	for q, ow := range x.outQ {
		w := wire{op: m.nodes[ow.gateIdx], port: ow.port}
		for _, e := range g.nodes[w.op].out {
			if e.SrcPort == w.port && !m.set.Test(uint(e.Dst)) {
				consumers[q] = append(consumers[q], e)
			}
		}
	}

	// detach the boundary: producers outside the set drop their edges into it
	for _, id := range m.nodes {
		for _, e := range g.nodes[id].in {
			if !m.set.Test(uint(e.Src)) {
				g.disconnect(e)
			}
		}
	}

	// excise
	for _, id := range m.nodes {
		nd := &g.nodes[id]
		nd.in, nd.out = nil, nil
		nd.dead = true
	}
	g.nbGates -= len(m.nodes)

	// splice in the replacement, seeded with the boundary wires the pattern
	// matched
	prodQ := slices.Clone(m.extQ)
	prodP := slices.Clone(m.extP[:x.replacement.NbParams()])
	for _, rg := range x.replacement.Gates() {
		nq := rg.Kind.NumQubits()
		id := g.alloc(rg.Kind, nq+rg.Kind.NumParams())
		g.nbGates++
		for port, q := range rg.Qubits {
			g.connect(prodQ[q], id, port)
			prodQ[q] = wire{op: id, port: port}
		}
		for j, p := range rg.Params {
			g.connect(prodP[p], id, nq+j)
		}
		if rg.OutParam >= 0 {
			prodP = append(prodP, wire{op: id, port: nq})
		}
	}

	// reconnect the region's former consumers to the new output wires
	for q, edges := range consumers {
		target := prodQ[q]
		for _, e := range edges {
			ne := Edge{Src: target.op, Dst: e.Dst, SrcPort: target.port, DstPort: e.DstPort}
			g.nodes[target.op].out = append(g.nodes[target.op].out, ne)
			g.nodes[e.Dst].in[e.DstPort] = ne
		}
	}
	return nil
}
