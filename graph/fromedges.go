package graph

import (
	"fmt"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
)

// FromEdges builds a graph from an explicit node and edge list, for callers
// that already hold a DAG-shaped description rather than a linear sequence.
//
// Node ids follow the arena layout of FromSeq: ids 0..nbQubits-1 are the
// input-qubit nodes, the next nbParams ids the input-param nodes, and the
// entries of kinds follow in order. Fails with circuit.ErrMalformedCircuit
// on port or role violations and with ErrCyclicDependency if the edges do
// not form a DAG.
func FromEdges(cat *gate.Catalog, nbQubits, nbParams int, kinds []gate.Kind, edges []Edge) (*Graph, error) {
	g := &Graph{
		cat:      cat,
		nbQubits: nbQubits,
		nbParams: nbParams,
	}
	for i := 0; i < nbQubits; i++ {
		g.inputQ = append(g.inputQ, g.alloc(gate.InputQubit, 0))
	}
	for i := 0; i < nbParams; i++ {
		g.inputP = append(g.inputP, g.alloc(gate.InputParam, 0))
	}
	for i, k := range kinds {
		if !cat.Has(k) {
			return nil, fmt.Errorf("%w: node %d: %s", gate.ErrUnknownGate, i, k)
		}
		if k.IsInput() {
			return nil, fmt.Errorf("%w: node %d: input kinds are implicit", circuit.ErrMalformedCircuit, i)
		}
		g.alloc(k, k.NumQubits()+k.NumParams())
		g.nbGates++
	}

	fed := make([][]bool, len(g.nodes))
	for id := range g.nodes {
		fed[id] = make([]bool, len(g.nodes[id].in))
	}
	for _, e := range edges {
		if err := g.checkEdge(e); err != nil {
			return nil, err
		}
		if fed[e.Dst][e.DstPort] {
			return nil, fmt.Errorf("%w: node %d input port %d fed twice", circuit.ErrMalformedCircuit, e.Dst, e.DstPort)
		}
		g.nodes[e.Src].out = append(g.nodes[e.Src].out, e)
		g.nodes[e.Dst].in[e.DstPort] = e
		fed[e.Dst][e.DstPort] = true
	}

	// every input port must be fed
	for id := range g.nodes {
		for port, isFed := range fed[id] {
			if !isFed {
				return nil, fmt.Errorf("%w: node %d input port %d has no producer", circuit.ErrMalformedCircuit, id, port)
			}
		}
	}
	// qubit wires are linear: one consumer per qubit output port
	for id := range g.nodes {
		consumers := map[int]int{}
		for _, e := range g.nodes[id].out {
			if g.outPortIsQubit(OpID(id), e.SrcPort) {
				consumers[e.SrcPort]++
				if consumers[e.SrcPort] > 1 {
					return nil, fmt.Errorf("%w: node %d qubit output port %d has multiple consumers",
						circuit.ErrMalformedCircuit, id, e.SrcPort)
				}
			}
		}
	}

	// acyclicity (Kahn over all live nodes)
	processed := 0
	indeg := make([]int, len(g.nodes))
	var queue []OpID
	for id := range g.nodes {
		indeg[id] = len(g.nodes[id].in)
		if indeg[id] == 0 {
			queue = append(queue, OpID(id))
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed++
		for _, e := range g.nodes[id].out {
			if indeg[e.Dst]--; indeg[e.Dst] == 0 {
				queue = append(queue, e.Dst)
			}
		}
	}
	if processed != len(g.nodes) {
		return nil, fmt.Errorf("%w: %d nodes on a cycle", ErrCyclicDependency, len(g.nodes)-processed)
	}
	return g, nil
}

func (g *Graph) checkEdge(e Edge) error {
	if int(e.Src) < 0 || int(e.Src) >= len(g.nodes) || int(e.Dst) < 0 || int(e.Dst) >= len(g.nodes) {
		return fmt.Errorf("%w: edge references unknown node", circuit.ErrMalformedCircuit)
	}
	dstKind := g.nodes[e.Dst].kind
	if dstKind.IsInput() {
		return fmt.Errorf("%w: node %d: input nodes have no input ports", circuit.ErrMalformedCircuit, e.Dst)
	}
	if e.DstPort < 0 || e.DstPort >= dstKind.NumQubits()+dstKind.NumParams() {
		return fmt.Errorf("%w: node %d: input port %d out of range", circuit.ErrMalformedCircuit, e.Dst, e.DstPort)
	}
	srcQubit, ok := g.outPortRole(e.Src, e.SrcPort)
	if !ok {
		return fmt.Errorf("%w: node %d: output port %d out of range", circuit.ErrMalformedCircuit, e.Src, e.SrcPort)
	}
	dstQubit := e.DstPort < dstKind.NumQubits()
	if srcQubit != dstQubit {
		return fmt.Errorf("%w: edge %d:%d -> %d:%d mixes qubit and parameter wires",
			circuit.ErrMalformedCircuit, e.Src, e.SrcPort, e.Dst, e.DstPort)
	}
	return nil
}

// outPortRole reports whether the output port carries a qubit wire, and
// whether the port exists at all.
func (g *Graph) outPortRole(id OpID, port int) (qubit, ok bool) {
	switch k := g.nodes[id].kind; {
	case k == gate.InputQubit:
		return true, port == 0
	case k == gate.InputParam:
		return false, port == 0
	case port < k.NumQubits():
		return true, true
	case k.IsParamGate() && port == k.NumQubits():
		return false, true
	default:
		return false, false
	}
}

func (g *Graph) outPortIsQubit(id OpID, port int) bool {
	qubit, ok := g.outPortRole(id, port)
	return ok && qubit
}
