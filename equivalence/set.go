// Package equivalence implements the persisted database of circuit
// equivalence classes.
//
// A class is a set of circuit encodings proven to compute the same
// operation. A loaded Set is read-only: it is used to mass-produce rewrite
// rules (every ordered pairing within a class, or one elimination rule per
// member) and to export each encoding as a portable circuit-description
// file. After the rules have been derived the Set may be discarded.
package equivalence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
	"github.com/quiver-compiler/quiver/graph"
	"github.com/quiver-compiler/quiver/logger"
)

// ErrCorruptData is returned when persisted equivalence data fails
// validation. On failure no partially-usable Set is returned.
var ErrCorruptData = errors.New("corrupt equivalence data")

// Class is one equivalence class: circuits with identical input arity
// computing the same operation.
type Class struct {
	id       string
	circuits []*circuit.Seq
}

// ID returns the class identifier from the persisted document.
func (c *Class) ID() string { return c.id }

// Circuits returns the member circuits in document order. Read view.
func (c *Class) Circuits() []*circuit.Seq { return c.circuits }

// NbQubits returns the qubit arity shared by every member.
func (c *Class) NbQubits() int { return c.circuits[0].NbQubits() }

// NbParams returns the parameter arity shared by every member.
func (c *Class) NbParams() int { return c.circuits[0].NbParams() }

// Set is a loaded equivalence database. Immutable and safe for shared
// read-only use.
type Set struct {
	classes []Class
}

// document is the persisted JSON tree.
type document struct {
	Classes []struct {
		ID       string   `json:"id,omitempty"`
		Circuits []string `json:"circuits"`
	} `json:"classes"`
}

// Load reads and validates a persisted equivalence database. Every nested
// circuit is validated independently, and all offenders are reported in one
// pass.
func Load(cat *gate.Catalog, r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptData, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptData, err)
	}

	s := &Set{classes: make([]Class, 0, len(doc.Classes))}
	var verr error
	nbCircuits := 0
	for ci, dc := range doc.Classes {
		id := dc.ID
		if id == "" {
			id = strconv.Itoa(ci)
		}
		if len(dc.Circuits) == 0 {
			verr = multierr.Append(verr, fmt.Errorf("class %q: no member circuits", id))
			continue
		}
		class := Class{id: id, circuits: make([]*circuit.Seq, 0, len(dc.Circuits))}
		for mi, src := range dc.Circuits {
			seq, err := circuit.Parse(cat, src)
			if err != nil {
				verr = multierr.Append(verr, fmt.Errorf("class %q circuit %d: %w", id, mi, err))
				continue
			}
			class.circuits = append(class.circuits, seq)
		}
		if len(class.circuits) > 0 {
			for mi, seq := range class.circuits[1:] {
				if seq.NbQubits() != class.NbQubits() || seq.NbParams() != class.NbParams() {
					verr = multierr.Append(verr, fmt.Errorf(
						"class %q circuit %d: arity (%d,%d) disagrees with class arity (%d,%d)",
						id, mi+1, seq.NbQubits(), seq.NbParams(), class.NbQubits(), class.NbParams()))
				}
			}
		}
		s.classes = append(s.classes, class)
		nbCircuits += len(class.circuits)
	}
	if verr != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptData, verr)
	}

	log := logger.Logger()
	log.Debug().Int("classes", len(s.classes)).Int("circuits", nbCircuits).Msg("loaded equivalence set")
	return s, nil
}

// LoadFile loads a persisted equivalence database from disk.
func LoadFile(cat *gate.Catalog, path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(cat, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Classes returns a read-only view of the equivalence classes, in storage
// order.
func (s *Set) Classes() []Class { return s.classes }

// NbCircuits returns the total number of member circuits.
func (s *Set) NbCircuits() int {
	n := 0
	for i := range s.classes {
		n += len(s.classes[i].circuits)
	}
	return n
}

// Xfers derives one rewrite rule per ordered pair of distinct members
// within each class. Pairs whose pattern cannot anchor a rule (an empty
// member, or one leaving input wires unused) are skipped.
func (s *Set) Xfers(cat *gate.Catalog) ([]*graph.Xfer, error) {
	var xfers []*graph.Xfer
	for i := range s.classes {
		circuits := s.classes[i].circuits
		for a, pattern := range circuits {
			for b, replacement := range circuits {
				if a == b {
					continue
				}
				x, err := graph.NewXfer(cat, pattern, replacement)
				if errors.Is(err, graph.ErrIncompatibleArity) {
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("class %q: %w", s.classes[i].id, err)
				}
				xfers = append(xfers, x)
			}
		}
	}
	return xfers, nil
}

// EliminationXfers derives one identity-elimination rule per member
// circuit, skipping members that cannot serve as a pattern.
func (s *Set) EliminationXfers(cat *gate.Catalog) ([]*graph.Xfer, error) {
	var xfers []*graph.Xfer
	for i := range s.classes {
		for _, pattern := range s.classes[i].circuits {
			x, err := graph.NewEliminationXfer(cat, pattern)
			if errors.Is(err, graph.ErrIncompatibleArity) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("class %q: %w", s.classes[i].id, err)
			}
			xfers = append(xfers, x)
		}
	}
	return xfers, nil
}

// Export writes one circuit-description file per member circuit into dir.
// Files are named <index>.qc with a single running index across the whole
// set: classes in storage order, members in document order within a class.
// The naming is stable between runs on the same database.
func (s *Set) Export(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	idx := 0
	for i := range s.classes {
		for _, seq := range s.classes[i].circuits {
			seq := seq
			path := filepath.Join(dir, strconv.Itoa(idx)+".qc")
			idx++
			eg.Go(func() error {
				return os.WriteFile(path, []byte(seq.Format()), 0o644)
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	log := logger.Logger()
	log.Info().Str("dir", dir).Int("files", idx).Msg("exported equivalence classes")
	return nil
}
