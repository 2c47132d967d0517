package circuit

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/quiver-compiler/quiver/gate"
)

// maxRegister caps declared register sizes; the builder allocates
// per-wire state up front.
const maxRegister = 1 << 20

// Pre-compiled regexps for the circuit description format.
var (
	qregRegex     = regexp.MustCompile(`^qreg\s+q\[(\d+)\]$`)
	paramRegex    = regexp.MustCompile(`^param\s+p\[(\d+)\]$`)
	gateRegex     = regexp.MustCompile(`^(\w+)\s*(?:\(([^)]*)\))?\s*(.*)$`)
	qubitRefRegex = regexp.MustCompile(`^q\[(\d+)\]$`)
	paramRefRegex = regexp.MustCompile(`^p\[(\d+)\]$`)
)

// Parse reads a textual circuit description and returns the validated
// sequence.
//
// The format is line oriented: statements end with ';', '//' starts a
// comment. The qubit register declaration must come first; the parameter
// register is optional.
//
//	qreg q[2];
//	param p[1];
//	h q[0];
//	cx q[0], q[1];
//	rz(p[0]) q[1];
//	add(p[0], p[1]);
//
// A parameter-producing gate names no output wire; the produced wire takes
// the next free parameter index.
func Parse(cat *gate.Catalog, src string) (*Seq, error) {
	var b *Builder

	for lineNo, raw := range strings.Split(src, "\n") {
		line := raw
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, ";") {
			return nil, fmt.Errorf("%w: line %d: missing ';'", ErrMalformedCircuit, lineNo+1)
		}
		stmt := strings.TrimSpace(strings.TrimSuffix(line, ";"))

		if m := qregRegex.FindStringSubmatch(stmt); m != nil {
			if b != nil {
				return nil, fmt.Errorf("%w: line %d: duplicate qreg declaration", ErrMalformedCircuit, lineNo+1)
			}
			n, err := strconv.Atoi(m[1])
			if err != nil || n > maxRegister {
				return nil, fmt.Errorf("%w: line %d: qubit register size %s out of range", ErrMalformedCircuit, lineNo+1, m[1])
			}
			b = NewBuilder(cat, n, 0)
			continue
		}
		if b == nil {
			return nil, fmt.Errorf("%w: line %d: qreg declaration must come first", ErrMalformedCircuit, lineNo+1)
		}
		if m := paramRegex.FindStringSubmatch(stmt); m != nil {
			if len(b.gates) > 0 || b.nbParams > 0 {
				return nil, fmt.Errorf("%w: line %d: param declaration must precede gates", ErrMalformedCircuit, lineNo+1)
			}
			n, err := strconv.Atoi(m[1])
			if err != nil || n > maxRegister {
				return nil, fmt.Errorf("%w: line %d: parameter register size %s out of range", ErrMalformedCircuit, lineNo+1, m[1])
			}
			b.nbParams = n
			continue
		}

		m := gateRegex.FindStringSubmatch(stmt)
		if m == nil {
			return nil, fmt.Errorf("%w: line %d: unparseable statement %q", ErrMalformedCircuit, lineNo+1, stmt)
		}
		kind, err := cat.Resolve(m[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		params, err := parseRefs(m[2], paramRefRegex, "parameter")
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCircuit, lineNo+1, err)
		}
		qubits, err := parseRefs(m[3], qubitRefRegex, "qubit")
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedCircuit, lineNo+1, err)
		}
		if err := b.Add(kind, qubits, params); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}

	if b == nil {
		return nil, fmt.Errorf("%w: missing qreg declaration", ErrMalformedCircuit)
	}
	return b.Build()
}

// ParseFile reads and parses a circuit description file.
func ParseFile(cat *gate.Catalog, path string) (*Seq, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(cat, string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func parseRefs(operands string, ref *regexp.Regexp, role string) ([]int, error) {
	operands = strings.TrimSpace(operands)
	if operands == "" {
		return nil, nil
	}
	parts := strings.Split(operands, ",")
	out := make([]int, len(parts))
	for i, part := range parts {
		m := ref.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			return nil, fmt.Errorf("bad %s reference %q", role, strings.TrimSpace(part))
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("bad %s reference %q", role, strings.TrimSpace(part))
		}
		out[i] = n
	}
	return out, nil
}
