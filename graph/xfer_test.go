package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
)

func parseSeq(t *testing.T, cat *gate.Catalog, src string) *circuit.Seq {
	t.Helper()
	s, err := circuit.Parse(cat, src)
	require.NoError(t, err)
	return s
}

func TestNewXfer(t *testing.T) {
	assert := require.New(t)
	cat := gate.VoqcGates()

	pattern := parseSeq(t, cat, "qreg q[1];\nh q[0];\nh q[0];\n")
	replacement := parseSeq(t, cat, "qreg q[1];\nx q[0];\nx q[0];\n")

	x, err := NewXfer(cat, pattern, replacement)
	assert.NoError(err)
	assert.Equal(1, x.NbQubits())
	assert.True(x.Pattern().Equal(pattern))
	assert.True(x.Replacement().Equal(replacement))
}

func TestNewEliminationXfer(t *testing.T) {
	assert := require.New(t)
	cat := gate.VoqcGates()

	pattern := parseSeq(t, cat, "qreg q[2];\ncx q[0], q[1];\ncx q[0], q[1];\n")
	x, err := NewEliminationXfer(cat, pattern)
	assert.NoError(err)
	assert.Equal(0, x.Replacement().NbGates())
	assert.Equal(pattern.NbQubits(), x.Replacement().NbQubits())
	assert.Equal(pattern.NbParams(), x.Replacement().NbParams())
}

func TestNewXferArityErrors(t *testing.T) {
	cat := gate.VoqcGates()

	for name, tc := range map[string]struct {
		pattern, replacement string
	}{
		"qubit arity mismatch": {
			"qreg q[2];\ncx q[0], q[1];\n",
			"qreg q[1];\nh q[0];\n",
		},
		"empty pattern": {
			"qreg q[1];\n",
			"qreg q[1];\n",
		},
		"unused pattern qubit": {
			"qreg q[2];\nh q[0];\n",
			"qreg q[2];\nh q[0];\n",
		},
		"unused pattern parameter": {
			"qreg q[1];\nparam p[1];\nh q[0];\n",
			"qreg q[1];\nparam p[1];\nrz(p[0]) q[0];\n",
		},
		"replacement needs extra parameters": {
			"qreg q[1];\nparam p[1];\nrz(p[0]) q[0];\n",
			"qreg q[1];\nparam p[2];\nrz(p[0]) q[0];\nrz(p[1]) q[0];\n",
		},
	} {
		t.Run(name, func(t *testing.T) {
			pattern := parseSeq(t, cat, tc.pattern)
			replacement := parseSeq(t, cat, tc.replacement)
			_, err := NewXfer(cat, pattern, replacement)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIncompatibleArity), "got %v", err)
		})
	}
}

func TestNewXferDerivedReplacementParams(t *testing.T) {
	assert := require.New(t)
	cat := gate.VoqcGates()

	// the replacement's third parameter wire is derived internally, not a
	// new external input
	pattern := parseSeq(t, cat, "qreg q[1];\nparam p[2];\nrz(p[0]) q[0];\nrz(p[1]) q[0];\n")
	replacement := parseSeq(t, cat, "qreg q[1];\nparam p[2];\nadd(p[0], p[1]);\nrz(p[2]) q[0];\n")

	_, err := NewXfer(cat, pattern, replacement)
	assert.NoError(err)
}
