// Package gate enumerates the gate kinds a circuit may be built from.
//
// A Catalog is an immutable, closed set of legal kinds; circuit builders,
// parsers and the matcher consume only the per-kind arities it exposes. The
// catalog is always passed explicitly, there is no process-wide gate set.
package gate

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Kind identifies a gate kind.
type Kind uint8

const (
	Unknown Kind = iota

	// InputQubit and InputParam are the reserved graph-source kinds; they
	// mark the external interface of a circuit and never appear as explicit
	// gates in a sequence.
	InputQubit
	InputParam

	H
	X
	Y
	Z
	S
	Sdg
	T
	Tdg
	RX
	RY
	RZ
	U1
	CX
	CZ
	CCX

	// Add combines two parameter wires into a new one.
	Add

	maxKind
)

// ErrUnknownGate is returned when a description references a kind absent
// from the catalog.
var ErrUnknownGate = errors.New("unknown gate kind")

type kindInfo struct {
	name     string
	nbQubits int
	nbParams int
}

var kindInfos = [maxKind]kindInfo{
	InputQubit: {name: "input_qubit"},
	InputParam: {name: "input_param"},
	H:          {name: "h", nbQubits: 1},
	X:          {name: "x", nbQubits: 1},
	Y:          {name: "y", nbQubits: 1},
	Z:          {name: "z", nbQubits: 1},
	S:          {name: "s", nbQubits: 1},
	Sdg:        {name: "sdg", nbQubits: 1},
	T:          {name: "t", nbQubits: 1},
	Tdg:        {name: "tdg", nbQubits: 1},
	RX:         {name: "rx", nbQubits: 1, nbParams: 1},
	RY:         {name: "ry", nbQubits: 1, nbParams: 1},
	RZ:         {name: "rz", nbQubits: 1, nbParams: 1},
	U1:         {name: "u1", nbQubits: 1, nbParams: 1},
	CX:         {name: "cx", nbQubits: 2},
	CZ:         {name: "cz", nbQubits: 2},
	CCX:        {name: "ccx", nbQubits: 3},
	Add:        {name: "add", nbParams: 2},
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, maxKind)
	for k := Kind(1); k < maxKind; k++ {
		m[kindInfos[k].name] = k
	}
	return m
}()

func (k Kind) String() string {
	if k == Unknown || k >= maxKind {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindInfos[k].name
}

// NumQubits returns the number of qubit operands the kind expects.
func (k Kind) NumQubits() int { return kindInfos[k].nbQubits }

// NumParams returns the number of parameter operands the kind expects.
func (k Kind) NumParams() int { return kindInfos[k].nbParams }

// IsInput reports whether the kind is one of the reserved source kinds.
func (k Kind) IsInput() bool { return k == InputQubit || k == InputParam }

// IsQuantum reports whether the kind acts on at least one qubit.
func (k Kind) IsQuantum() bool { return kindInfos[k].nbQubits > 0 }

// IsParamGate reports whether the kind produces a new parameter wire.
func (k Kind) IsParamGate() bool { return k == Add }

// KindByName resolves a lower-case gate name.
func KindByName(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Catalog is an immutable set of legal gate kinds. The reserved input kinds
// are implicitly part of every catalog.
type Catalog struct {
	kinds *bitset.BitSet
}

// NewCatalog builds a catalog from the given kinds.
func NewCatalog(kinds ...Kind) *Catalog {
	set := bitset.New(uint(maxKind))
	set.Set(uint(InputQubit))
	set.Set(uint(InputParam))
	for _, k := range kinds {
		if k == Unknown || k >= maxKind {
			panic("gate: invalid kind in catalog")
		}
		set.Set(uint(k))
	}
	return &Catalog{kinds: set}
}

// Union returns the catalog legalizing every kind of a or b.
func Union(a, b *Catalog) *Catalog {
	return &Catalog{kinds: a.kinds.Union(b.kinds)}
}

// Has reports whether k is legal under the catalog.
func (c *Catalog) Has(k Kind) bool {
	return k > Unknown && k < maxKind && c.kinds.Test(uint(k))
}

// Resolve maps a gate name to its kind, failing with ErrUnknownGate when the
// name is unknown or the kind is not in the catalog.
func (c *Catalog) Resolve(name string) (Kind, error) {
	k, ok := KindByName(name)
	if !ok || !c.kinds.Test(uint(k)) {
		return Unknown, fmt.Errorf("%w: %q", ErrUnknownGate, name)
	}
	return k, nil
}

// Kinds returns the catalog's kinds in enum order.
func (c *Catalog) Kinds() []Kind {
	r := make([]Kind, 0, c.kinds.Count())
	for i, ok := c.kinds.NextSet(0); ok; i, ok = c.kinds.NextSet(i + 1) {
		r = append(r, Kind(i))
	}
	return r
}

// VoqcGates returns the catalog of the VOQC gate set, plus parameter
// arithmetic.
func VoqcGates() *Catalog {
	return NewCatalog(H, X, RZ, CX, Add)
}

// NamGates returns the catalog of the Nam et al. gate set, plus parameter
// arithmetic.
func NamGates() *Catalog {
	return NewCatalog(H, X, RZ, CX, T, Tdg, S, Sdg, Add)
}

// AllGates returns the catalog legalizing every known kind.
func AllGates() *Catalog {
	kinds := make([]Kind, 0, maxKind)
	for k := Kind(1); k < maxKind; k++ {
		kinds = append(kinds, k)
	}
	return NewCatalog(kinds...)
}
