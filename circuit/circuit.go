// Package circuit implements ordered gate sequences over qubit and parameter
// wires.
//
// A Seq is the unit both rewrite-rule sides (pattern, replacement) are made
// of, and the unit a graph is materialized from. Qubit wires are linear
// resources: each gate consumes and re-produces the qubit line it acts on.
// Parameter wires are read-only values that may fan out, and may be derived
// from other parameters by arithmetic gates; derived wires are numbered
// sequentially after the declared inputs, in gate order.
package circuit

import (
	"errors"
	"fmt"
	"slices"

	"github.com/quiver-compiler/quiver/gate"
)

// ErrMalformedCircuit is returned when a description violates a structural or
// arity invariant: a referenced wire was never produced, operand counts
// mismatch the gate kind, or a qubit operand repeats within a gate.
var ErrMalformedCircuit = errors.New("malformed circuit")

// ErrUnknownGate mirrors gate.ErrUnknownGate for callers matching on this
// package's errors.
var ErrUnknownGate = gate.ErrUnknownGate

// Gate is one gate application in a sequence.
type Gate struct {
	Kind   gate.Kind
	Qubits []int // qubit line indices, in operand order
	Params []int // parameter wire indices, in operand order

	// OutParam is the parameter wire produced by a parameter-arithmetic
	// gate, or -1.
	OutParam int
}

// Seq is an immutable ordered sequence of gates with declared input arities.
type Seq struct {
	nbQubits        int
	nbParams        int
	nbDerivedParams int
	gates           []Gate
}

// Empty returns the valid empty sequence of the given arity. It is the
// replacement used to express "this pattern is a provable identity".
func Empty(nbQubits, nbParams int) *Seq {
	return &Seq{nbQubits: nbQubits, nbParams: nbParams}
}

// NbQubits returns the declared number of input qubits.
func (s *Seq) NbQubits() int { return s.nbQubits }

// NbParams returns the declared number of input parameters.
func (s *Seq) NbParams() int { return s.nbParams }

// NbDerivedParams returns the number of parameter wires produced by gates in
// the sequence.
func (s *Seq) NbDerivedParams() int { return s.nbDerivedParams }

// NbGates returns the number of gates in the sequence.
func (s *Seq) NbGates() int { return len(s.gates) }

// Gates returns a read view of the gate sequence. Callers must not mutate it.
func (s *Seq) Gates() []Gate { return s.gates }

// Equal reports structural equality: same arities and the same gate sequence,
// wire for wire.
func (s *Seq) Equal(other *Seq) bool {
	if s.nbQubits != other.nbQubits || s.nbParams != other.nbParams || len(s.gates) != len(other.gates) {
		return false
	}
	for i := range s.gates {
		a, b := &s.gates[i], &other.gates[i]
		if a.Kind != b.Kind || a.OutParam != b.OutParam ||
			!slices.Equal(a.Qubits, b.Qubits) || !slices.Equal(a.Params, b.Params) {
			return false
		}
	}
	return true
}

// Builder accumulates gates and validates each against the catalog and the
// wires produced so far. The zero value is not usable; see NewBuilder.
type Builder struct {
	cat             *gate.Catalog
	nbQubits        int
	nbParams        int
	nbDerivedParams int
	gates           []Gate
	err             error
}

// NewBuilder returns a builder for a sequence with the given input arities.
func NewBuilder(cat *gate.Catalog, nbQubits, nbParams int) *Builder {
	b := &Builder{cat: cat, nbQubits: nbQubits, nbParams: nbParams}
	if nbQubits < 0 || nbParams < 0 {
		b.err = fmt.Errorf("%w: negative input arity", ErrMalformedCircuit)
	}
	return b
}

// Add appends one gate application. The first error sticks; Build reports it.
func (b *Builder) Add(kind gate.Kind, qubits, params []int) error {
	if b.err != nil {
		return b.err
	}
	if err := b.add(kind, qubits, params); err != nil {
		b.err = err
		return err
	}
	return nil
}

func (b *Builder) add(kind gate.Kind, qubits, params []int) error {
	pos := len(b.gates)
	if !b.cat.Has(kind) {
		return fmt.Errorf("%w: gate %d: %s", gate.ErrUnknownGate, pos, kind)
	}
	if kind.IsInput() {
		return fmt.Errorf("%w: gate %d: %s is a reserved input kind", ErrMalformedCircuit, pos, kind)
	}
	if len(qubits) != kind.NumQubits() {
		return fmt.Errorf("%w: gate %d (%s): expected %d qubit operands, got %d",
			ErrMalformedCircuit, pos, kind, kind.NumQubits(), len(qubits))
	}
	if len(params) != kind.NumParams() {
		return fmt.Errorf("%w: gate %d (%s): expected %d parameter operands, got %d",
			ErrMalformedCircuit, pos, kind, kind.NumParams(), len(params))
	}
	for i, q := range qubits {
		if q < 0 || q >= b.nbQubits {
			return fmt.Errorf("%w: gate %d (%s): qubit wire %d out of range [0,%d)",
				ErrMalformedCircuit, pos, kind, q, b.nbQubits)
		}
		if slices.Index(qubits[:i], q) >= 0 {
			return fmt.Errorf("%w: gate %d (%s): duplicate qubit operand %d",
				ErrMalformedCircuit, pos, kind, q)
		}
	}
	nbParamWires := b.nbParams + b.nbDerivedParams
	for _, p := range params {
		if p < 0 || p >= nbParamWires {
			return fmt.Errorf("%w: gate %d (%s): parameter wire %d was never produced",
				ErrMalformedCircuit, pos, kind, p)
		}
	}

	g := Gate{
		Kind:     kind,
		Qubits:   slices.Clone(qubits),
		Params:   slices.Clone(params),
		OutParam: -1,
	}
	if kind.IsParamGate() {
		g.OutParam = nbParamWires
		b.nbDerivedParams++
	}
	b.gates = append(b.gates, g)
	return nil
}

// Build finalizes the sequence. After Build the builder must not be reused.
func (b *Builder) Build() (*Seq, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Seq{
		nbQubits:        b.nbQubits,
		nbParams:        b.nbParams,
		nbDerivedParams: b.nbDerivedParams,
		gates:           b.gates,
	}, nil
}

// FromGates builds a sequence from an explicit gate list.
func FromGates(cat *gate.Catalog, nbQubits, nbParams int, gates []Gate) (*Seq, error) {
	b := NewBuilder(cat, nbQubits, nbParams)
	for _, g := range gates {
		if err := b.Add(g.Kind, g.Qubits, g.Params); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
