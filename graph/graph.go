// Package graph implements the DAG form of a quantum circuit, rewrite rules
// over it, and the pattern matcher that decides where a rule legally applies.
//
// Nodes are gate operations held in an index-stable arena owned by the Graph;
// OpID is an index into that arena and stays valid for the graph lifetime.
// Edges carry wire dependencies between (node, port) pairs. A qubit wire has
// exactly one consumer per producer port; parameter wires fan out.
//
// Matching is a pure read-only query: any number of matching calls may run
// concurrently on the same graph. Apply mutates the graph and requires
// exclusive access; it invalidates outstanding iterators and matches.
package graph

import (
	"errors"
	"fmt"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
)

// ErrCyclicDependency is returned when an externally supplied edge list
// would violate acyclicity.
var ErrCyclicDependency = errors.New("cyclic dependency")

// OpID identifies a node of a Graph.
type OpID int32

// Edge is a wire dependency between two nodes. SrcPort indexes the
// producer's output ports, DstPort the consumer's input ports.
//
// Port layout of a gate node with nq qubit and np parameter operands:
// input ports 0..nq-1 are the qubit operands, nq..nq+np-1 the parameter
// operands; output ports 0..nq-1 mirror the qubit operands, and a
// parameter-producing gate exposes its derived wire on output port nq.
// Input nodes expose their wire on output port 0.
type Edge struct {
	Src, Dst         OpID
	SrcPort, DstPort int
}

// wire identifies a produced value: an output port of a node.
type wire struct {
	op   OpID
	port int
}

const noOp OpID = -1

type node struct {
	kind gate.Kind
	in   []Edge // indexed by DstPort
	out  []Edge
	dead bool
}

// Graph is the DAG materialization of one circuit. It is exclusively owned
// by its creator; see the package comment for the concurrency contract.
type Graph struct {
	cat      *gate.Catalog
	nodes    []node
	inputQ   []OpID // input-qubit node per qubit line
	inputP   []OpID // input-param node per declared parameter
	nbQubits int
	nbParams int
	nbGates  int // live non-input nodes
}

// FromSeq materializes the DAG of a circuit sequence.
func FromSeq(cat *gate.Catalog, s *circuit.Seq) (*Graph, error) {
	g := &Graph{
		cat:      cat,
		nbQubits: s.NbQubits(),
		nbParams: s.NbParams(),
	}
	prodQ := make([]wire, s.NbQubits())
	for i := range prodQ {
		id := g.alloc(gate.InputQubit, 0)
		g.inputQ = append(g.inputQ, id)
		prodQ[i] = wire{op: id}
	}
	prodP := make([]wire, s.NbParams(), s.NbParams()+s.NbDerivedParams())
	for i := range prodP {
		id := g.alloc(gate.InputParam, 0)
		g.inputP = append(g.inputP, id)
		prodP[i] = wire{op: id}
	}

	for gi, gt := range s.Gates() {
		if !cat.Has(gt.Kind) {
			return nil, fmt.Errorf("%w: gate %d: %s", gate.ErrUnknownGate, gi, gt.Kind)
		}
		nq := gt.Kind.NumQubits()
		id := g.alloc(gt.Kind, nq+gt.Kind.NumParams())
		g.nbGates++
		for port, q := range gt.Qubits {
			g.connect(prodQ[q], id, port)
			prodQ[q] = wire{op: id, port: port}
		}
		for j, p := range gt.Params {
			g.connect(prodP[p], id, nq+j)
		}
		if gt.OutParam >= 0 {
			prodP = append(prodP, wire{op: id, port: nq})
		}
	}
	return g, nil
}

// Parse is a convenience for circuit.Parse followed by FromSeq.
func Parse(cat *gate.Catalog, src string) (*Graph, error) {
	s, err := circuit.Parse(cat, src)
	if err != nil {
		return nil, err
	}
	return FromSeq(cat, s)
}

func (g *Graph) alloc(kind gate.Kind, nbIn int) OpID {
	g.nodes = append(g.nodes, node{kind: kind, in: make([]Edge, nbIn)})
	return OpID(len(g.nodes) - 1)
}

func (g *Graph) connect(src wire, dst OpID, dstPort int) {
	e := Edge{Src: src.op, Dst: dst, SrcPort: src.port, DstPort: dstPort}
	g.nodes[src.op].out = append(g.nodes[src.op].out, e)
	g.nodes[dst].in[dstPort] = e
}

// disconnect removes the edge feeding dst's port from its producer's fanout.
func (g *Graph) disconnect(e Edge) {
	out := g.nodes[e.Src].out
	for i := range out {
		if out[i] == e {
			out[i] = out[len(out)-1]
			g.nodes[e.Src].out = out[:len(out)-1]
			return
		}
	}
}

// NbQubits returns the number of qubit lines at the graph boundary.
func (g *Graph) NbQubits() int { return g.nbQubits }

// NbParams returns the number of declared input parameters.
func (g *Graph) NbParams() int { return g.nbParams }

// GateCount returns the number of live gate nodes (input nodes excluded).
func (g *Graph) GateCount() int { return g.nbGates }

// Kind returns the gate kind of a node.
func (g *Graph) Kind(id OpID) gate.Kind { return g.nodes[id].kind }

// InEdges returns the edges feeding a node, indexed by input port. The
// returned slice is a read view.
func (g *Graph) InEdges(id OpID) []Edge { return g.nodes[id].in }

// OutEdges returns the edges consuming a node's outputs, in no particular
// order. The returned slice is a read view.
func (g *Graph) OutEdges(id OpID) []Edge { return g.nodes[id].out }

func (g *Graph) live(id OpID) bool {
	return id >= 0 && int(id) < len(g.nodes) && !g.nodes[id].dead
}

// ToSeq linearizes the graph back to a circuit sequence in topological
// order. Together with FromSeq it round-trips a sequence exactly when the
// sequence is already a canonical order of its own DAG.
func (g *Graph) ToSeq() (*circuit.Seq, error) {
	lineOf := make(map[wire]int, g.nbQubits)
	paramOf := make(map[wire]int)
	for i, id := range g.inputQ {
		lineOf[wire{op: id}] = i
	}
	for i, id := range g.inputP {
		paramOf[wire{op: id}] = i
	}
	nbDerived := g.nbParams

	b := circuit.NewBuilder(g.cat, g.nbQubits, g.nbParams)
	next := g.Ops()
	for id, ok := next(); ok; id, ok = next() {
		n := &g.nodes[id]
		nq := n.kind.NumQubits()
		qubits := make([]int, nq)
		for port := 0; port < nq; port++ {
			e := n.in[port]
			line, found := lineOf[wire{op: e.Src, port: e.SrcPort}]
			if !found {
				return nil, fmt.Errorf("%w: node %d: qubit wire has no line", circuit.ErrMalformedCircuit, id)
			}
			qubits[port] = line
			lineOf[wire{op: id, port: port}] = line
		}
		params := make([]int, n.kind.NumParams())
		for j := range params {
			e := n.in[nq+j]
			p, found := paramOf[wire{op: e.Src, port: e.SrcPort}]
			if !found {
				return nil, fmt.Errorf("%w: node %d: parameter wire has no index", circuit.ErrMalformedCircuit, id)
			}
			params[j] = p
		}
		if n.kind.IsParamGate() {
			paramOf[wire{op: id, port: nq}] = nbDerived
			nbDerived++
		}
		if err := b.Add(n.kind, qubits, params); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Equal reports whether both graphs linearize to the same circuit sequence.
func (g *Graph) Equal(other *Graph) bool {
	a, err := g.ToSeq()
	if err != nil {
		return false
	}
	b, err := other.ToSeq()
	if err != nil {
		return false
	}
	return a.Equal(b)
}
