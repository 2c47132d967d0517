package equivalence

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ronanh/intcomp"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
)

// Binary snapshot of a loaded Set, for fast reloads without re-parsing the
// JSON document. The layout is a small fixed header followed by a CBOR body;
// all gate operand indices are packed into one integer-compressed block.

var snapshotMagic = [4]byte{'q', 'v', 'e', 'q'}

const snapshotVersion = 1

type snapshot struct {
	Version uint32
	Classes []snapshotClass
	// NbWords is the operand count before compression; it guards against
	// truncated or mismatched Packed data.
	NbWords uint64
	Packed  []uint32
}

type snapshotClass struct {
	ID      string
	Members []snapshotCircuit
}

type snapshotCircuit struct {
	NbQubits uint32
	NbParams uint32
	Kinds    []uint8
}

// WriteTo serializes the set: header (magic, body length) then the CBOR
// body.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	snap := snapshot{Version: snapshotVersion}
	var operands []uint32
	for i := range s.classes {
		sc := snapshotClass{ID: s.classes[i].id}
		for _, seq := range s.classes[i].circuits {
			m := snapshotCircuit{
				NbQubits: uint32(seq.NbQubits()),
				NbParams: uint32(seq.NbParams()),
			}
			for _, g := range seq.Gates() {
				m.Kinds = append(m.Kinds, uint8(g.Kind))
				for _, q := range g.Qubits {
					operands = append(operands, uint32(q))
				}
				for _, p := range g.Params {
					operands = append(operands, uint32(p))
				}
			}
			sc.Members = append(sc.Members, m)
		}
		snap.Classes = append(snap.Classes, sc)
	}
	snap.NbWords = uint64(len(operands))
	snap.Packed = intcomp.CompressUint32(operands, nil)

	body, err := cbor.Marshal(&snap)
	if err != nil {
		return 0, err
	}

	var header [8]byte
	copy(header[:4], snapshotMagic[:])
	binary.BigEndian.PutUint32(header[4:], uint32(len(body)))
	n1, err := w.Write(header[:])
	if err != nil {
		return int64(n1), err
	}
	n2, err := w.Write(body)
	return int64(n1 + n2), err
}

// ReadFrom deserializes a snapshot written by WriteTo, re-validating every
// circuit against the catalog. A truncated or tampered snapshot fails with
// ErrCorruptData and yields no set.
func ReadFrom(cat *gate.Catalog, r io.Reader) (*Set, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: short snapshot header: %s", ErrCorruptData, err)
	}
	if [4]byte(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad snapshot magic", ErrCorruptData)
	}
	body := make([]byte, binary.BigEndian.Uint32(header[4:]))
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: short snapshot body: %s", ErrCorruptData, err)
	}

	var snap snapshot
	if err := cbor.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptData, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrCorruptData, snap.Version)
	}
	operands := intcomp.UncompressUint32(snap.Packed, nil)
	if uint64(len(operands)) != snap.NbWords {
		return nil, fmt.Errorf("%w: operand block has %d words, expected %d",
			ErrCorruptData, len(operands), snap.NbWords)
	}

	s := &Set{classes: make([]Class, 0, len(snap.Classes))}
	pos := 0
	take := func(n int) ([]int, bool) {
		if pos+n > len(operands) {
			return nil, false
		}
		out := make([]int, n)
		for i := 0; i < n; i++ {
			out[i] = int(operands[pos+i])
		}
		pos += n
		return out, true
	}

	for _, sc := range snap.Classes {
		class := Class{id: sc.ID}
		for mi, m := range sc.Members {
			b := circuit.NewBuilder(cat, int(m.NbQubits), int(m.NbParams))
			for _, rawKind := range m.Kinds {
				k := gate.Kind(rawKind)
				if !cat.Has(k) {
					return nil, fmt.Errorf("%w: class %q circuit %d: %s", ErrCorruptData, sc.ID, mi, gate.ErrUnknownGate)
				}
				qubits, ok := take(k.NumQubits())
				if !ok {
					return nil, fmt.Errorf("%w: operand block exhausted", ErrCorruptData)
				}
				params, ok := take(k.NumParams())
				if !ok {
					return nil, fmt.Errorf("%w: operand block exhausted", ErrCorruptData)
				}
				if err := b.Add(k, qubits, params); err != nil {
					return nil, fmt.Errorf("%w: class %q circuit %d: %s", ErrCorruptData, sc.ID, mi, err)
				}
			}
			seq, err := b.Build()
			if err != nil {
				return nil, fmt.Errorf("%w: class %q circuit %d: %s", ErrCorruptData, sc.ID, mi, err)
			}
			class.circuits = append(class.circuits, seq)
		}
		if len(class.circuits) == 0 {
			return nil, fmt.Errorf("%w: class %q has no member circuits", ErrCorruptData, sc.ID)
		}
		s.classes = append(s.classes, class)
	}
	if pos != len(operands) {
		return nil, fmt.Errorf("%w: %d trailing operand words", ErrCorruptData, len(operands)-pos)
	}
	return s, nil
}
