package circuit

import (
	"fmt"
	"io"
	"strings"
)

// Format renders the sequence in the canonical text form accepted by Parse.
// The round trip Parse(Format(s)) yields a structurally identical sequence.
func (s *Seq) Format() string {
	var sbb strings.Builder
	s.write(&sbb)
	return sbb.String()
}

// WriteTo writes the canonical text form to w.
func (s *Seq) WriteTo(w io.Writer) (int64, error) {
	var sbb strings.Builder
	s.write(&sbb)
	n, err := io.WriteString(w, sbb.String())
	return int64(n), err
}

func (s *Seq) write(sbb *strings.Builder) {
	fmt.Fprintf(sbb, "qreg q[%d];\n", s.nbQubits)
	if s.nbParams > 0 {
		fmt.Fprintf(sbb, "param p[%d];\n", s.nbParams)
	}
	for i := range s.gates {
		g := &s.gates[i]
		sbb.WriteString(g.Kind.String())
		if len(g.Params) > 0 {
			sbb.WriteByte('(')
			for j, p := range g.Params {
				if j > 0 {
					sbb.WriteString(", ")
				}
				fmt.Fprintf(sbb, "p[%d]", p)
			}
			sbb.WriteByte(')')
		}
		for j, q := range g.Qubits {
			if j > 0 {
				sbb.WriteByte(',')
			}
			fmt.Fprintf(sbb, " q[%d]", q)
		}
		sbb.WriteString(";\n")
	}
}
