package graph

import (
	"errors"
	"fmt"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
)

// ErrIncompatibleArity is returned when a rule's pattern and replacement
// disagree on qubit arity or no unambiguous wire correspondence exists
// between them.
var ErrIncompatibleArity = errors.New("incompatible pattern/replacement arity")

// Xfer is a rewrite rule: a pattern sequence, a replacement sequence, and
// the wire correspondence between them. Pattern and replacement qubit wires
// correspond by index, as do parameter input wires over the shared prefix;
// any further replacement parameters must be derived internally.
//
// An Xfer is immutable and may be shared by any number of concurrent
// matching calls.
type Xfer struct {
	pattern     *circuit.Seq
	replacement *circuit.Seq

	// per pattern gate, per input port: where the consumed wire comes from
	srcs [][]wireSrc
	// per pattern qubit line: the gate/port producing the region output
	outQ []gateWire
}

// wireSrc locates the producer of a pattern wire: either an earlier pattern
// gate's output port, or a pattern input wire.
type wireSrc struct {
	internal bool
	gateIdx  int // internal: producing pattern gate
	port     int // internal: producing output port
	input    int // external: input qubit line or input parameter index
}

type gateWire struct {
	gateIdx int
	port    int
}

// NewXfer builds a rule from a pattern and a replacement.
func NewXfer(cat *gate.Catalog, pattern, replacement *circuit.Seq) (*Xfer, error) {
	if pattern.NbGates() == 0 {
		return nil, fmt.Errorf("%w: empty pattern", ErrIncompatibleArity)
	}
	if pattern.NbQubits() != replacement.NbQubits() {
		return nil, fmt.Errorf("%w: pattern has %d qubits, replacement %d",
			ErrIncompatibleArity, pattern.NbQubits(), replacement.NbQubits())
	}
	if replacement.NbParams() > pattern.NbParams() {
		return nil, fmt.Errorf("%w: replacement requires %d input parameters, pattern provides %d",
			ErrIncompatibleArity, replacement.NbParams(), pattern.NbParams())
	}
	for gi, g := range pattern.Gates() {
		if !cat.Has(g.Kind) {
			return nil, fmt.Errorf("%w: pattern gate %d: %s", gate.ErrUnknownGate, gi, g.Kind)
		}
	}
	for gi, g := range replacement.Gates() {
		if !cat.Has(g.Kind) {
			return nil, fmt.Errorf("%w: replacement gate %d: %s", gate.ErrUnknownGate, gi, g.Kind)
		}
	}

	x := &Xfer{pattern: pattern, replacement: replacement}
	if err := x.index(); err != nil {
		return nil, err
	}
	return x, nil
}

// NewEliminationXfer builds an identity-elimination rule: the replacement is
// the empty sequence of matching arity, so a match deletes the pattern
// outright.
func NewEliminationXfer(cat *gate.Catalog, pattern *circuit.Seq) (*Xfer, error) {
	return NewXfer(cat, pattern, circuit.Empty(pattern.NbQubits(), pattern.NbParams()))
}

// index replays the pattern once and records, for every gate input port, the
// wire source, and for every qubit line, the output-producing gate.
func (x *Xfer) index() error {
	p := x.pattern
	prodQ := make([]wireSrc, p.NbQubits())
	for i := range prodQ {
		prodQ[i] = wireSrc{input: i}
	}
	prodP := make([]wireSrc, p.NbParams(), p.NbParams()+p.NbDerivedParams())
	for i := range prodP {
		prodP[i] = wireSrc{input: i}
	}

	usedP := make([]bool, p.NbParams())
	x.srcs = make([][]wireSrc, p.NbGates())
	for gi, g := range p.Gates() {
		nq := g.Kind.NumQubits()
		srcs := make([]wireSrc, nq+g.Kind.NumParams())
		for port, q := range g.Qubits {
			srcs[port] = prodQ[q]
			prodQ[q] = wireSrc{internal: true, gateIdx: gi, port: port}
		}
		for j, pw := range g.Params {
			srcs[nq+j] = prodP[pw]
			if pw < len(usedP) {
				usedP[pw] = true
			}
		}
		if g.OutParam >= 0 {
			prodP = append(prodP, wireSrc{internal: true, gateIdx: gi, port: nq})
		}
		x.srcs[gi] = srcs
	}

	x.outQ = make([]gateWire, p.NbQubits())
	for q, src := range prodQ {
		if !src.internal {
			// an untouched qubit line makes the output correspondence for
			// that line ambiguous; the pattern must use every declared qubit
			return fmt.Errorf("%w: pattern qubit %d is unused", ErrIncompatibleArity, q)
		}
		x.outQ[q] = gateWire{gateIdx: src.gateIdx, port: src.port}
	}
	for pw, used := range usedP {
		if !used {
			// same reasoning as unused qubits: the boundary wire for an
			// unused input parameter could never be identified at match time
			return fmt.Errorf("%w: pattern parameter %d is unused", ErrIncompatibleArity, pw)
		}
	}
	return nil
}

// Pattern returns the pattern sequence.
func (x *Xfer) Pattern() *circuit.Seq { return x.pattern }

// Replacement returns the replacement sequence.
func (x *Xfer) Replacement() *circuit.Seq { return x.replacement }

// NbQubits returns the qubit arity shared by pattern and replacement.
func (x *Xfer) NbQubits() int { return x.pattern.NbQubits() }
