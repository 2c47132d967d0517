package graph

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiver-compiler/quiver/circuit"
	"github.com/quiver-compiler/quiver/gate"
)

func mustParse(t *testing.T, cat *gate.Catalog, src string) *Graph {
	t.Helper()
	g, err := Parse(cat, src)
	require.NoError(t, err)
	return g
}

func TestFromSeq(t *testing.T) {
	assert := require.New(t)
	cat := gate.VoqcGates()

	g := mustParse(t, cat, `
		qreg q[2];
		param p[1];
		h q[0];
		cx q[0], q[1];
		rz(p[0]) q[1];
	`)
	assert.Equal(3, g.GateCount())
	assert.Equal(2, g.NbQubits())
	assert.Equal(1, g.NbParams())

	order := g.TopologicalOrder()
	assert.Len(order, g.GateCount())
	assert.Equal(gate.H, g.Kind(order[0]))
	assert.Equal(gate.CX, g.Kind(order[1]))
	assert.Equal(gate.RZ, g.Kind(order[2]))
}

func TestOpsRestartable(t *testing.T) {
	cat := gate.VoqcGates()
	g := mustParse(t, cat, "qreg q[2];\nh q[0];\ncx q[0], q[1];\nx q[1];\n")

	first := g.TopologicalOrder()
	second := g.TopologicalOrder()
	assert.Equal(t, first, second)

	// a fresh iterator is independent of a partially consumed one
	next := g.Ops()
	id, ok := next()
	require.True(t, ok)
	assert.Equal(t, first[0], id)
	assert.Equal(t, first, g.TopologicalOrder())
}

func TestTopologicalOrderRespectsDependencies(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	cat := gate.NamGates()

	properties.Property("every node appears after its producers", prop.ForAll(
		func(nbQubits, nbGates int, seed int64) bool {
			s := randomSeq(cat, nbQubits, nbGates, seed)
			g, err := FromSeq(cat, s)
			if err != nil {
				return false
			}
			order := g.TopologicalOrder()
			if len(order) != g.GateCount() || g.GateCount() != nbGates {
				return false
			}
			pos := make(map[OpID]int, len(order))
			for i, id := range order {
				pos[id] = i
			}
			for _, id := range order {
				for _, e := range g.InEdges(id) {
					if g.Kind(e.Src).IsInput() {
						continue
					}
					if pos[e.Src] >= pos[id] {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(1, 5),
		gen.IntRange(0, 40),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// randomSeq builds a valid parameter-free sequence from a seed.
func randomSeq(cat *gate.Catalog, nbQubits, nbGates int, seed int64) *circuit.Seq {
	rng := rand.New(rand.NewSource(seed))
	kinds := []gate.Kind{gate.H, gate.X, gate.T, gate.Tdg, gate.S, gate.Sdg, gate.CX}
	b := circuit.NewBuilder(cat, nbQubits, 0)
	for i := 0; i < nbGates; i++ {
		k := kinds[rng.Intn(len(kinds))]
		if k.NumQubits() > nbQubits {
			k = gate.H
		}
		qubits := rng.Perm(nbQubits)[:k.NumQubits()]
		if err := b.Add(k, qubits, nil); err != nil {
			panic(err)
		}
	}
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func TestToSeqRoundTrip(t *testing.T) {
	assert := require.New(t)
	cat := gate.VoqcGates()

	src := `qreg q[3];
param p[2];
h q[0];
cx q[0], q[1];
add(p[0], p[1]);
rz(p[2]) q[2];
`
	s, err := circuit.Parse(cat, src)
	assert.NoError(err)
	g, err := FromSeq(cat, s)
	assert.NoError(err)

	back, err := g.ToSeq()
	assert.NoError(err)
	assert.True(s.Equal(back))
}

func TestGraphEqual(t *testing.T) {
	cat := gate.VoqcGates()
	a := mustParse(t, cat, "qreg q[2];\ncx q[0], q[1];\n")
	b := mustParse(t, cat, "qreg q[2];\ncx q[0], q[1];\n")
	c := mustParse(t, cat, "qreg q[2];\ncx q[1], q[0];\n")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestFromEdges(t *testing.T) {
	assert := require.New(t)
	cat := gate.VoqcGates()

	// in0 -> H -> CX.0 ; in1 -> CX.1 (node ids: 0,1 inputs; 2=h, 3=cx)
	g, err := FromEdges(cat, 2, 0,
		[]gate.Kind{gate.H, gate.CX},
		[]Edge{
			{Src: 0, Dst: 2, SrcPort: 0, DstPort: 0},
			{Src: 2, Dst: 3, SrcPort: 0, DstPort: 0},
			{Src: 1, Dst: 3, SrcPort: 0, DstPort: 1},
		})
	assert.NoError(err)
	assert.Equal(2, g.GateCount())

	s, err := g.ToSeq()
	assert.NoError(err)
	want, err := circuit.Parse(cat, "qreg q[2];\nh q[0];\ncx q[0], q[1];\n")
	assert.NoError(err)
	assert.True(s.Equal(want))
}

func TestFromEdgesCycle(t *testing.T) {
	cat := gate.VoqcGates()

	// two CX gates feeding each other's qubit ports
	_, err := FromEdges(cat, 2, 0,
		[]gate.Kind{gate.CX, gate.CX},
		[]Edge{
			{Src: 0, Dst: 2, SrcPort: 0, DstPort: 0},
			{Src: 1, Dst: 3, SrcPort: 0, DstPort: 1},
			{Src: 2, Dst: 3, SrcPort: 0, DstPort: 0},
			{Src: 3, Dst: 2, SrcPort: 1, DstPort: 1},
		})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicDependency))
}

func TestFromEdgesValidation(t *testing.T) {
	cat := gate.VoqcGates()

	for name, tc := range map[string]struct {
		kinds []gate.Kind
		edges []Edge
		want  error
	}{
		"unfed port": {
			kinds: []gate.Kind{gate.H},
			edges: nil,
			want:  circuit.ErrMalformedCircuit,
		},
		"port fed twice": {
			kinds: []gate.Kind{gate.H, gate.H},
			edges: []Edge{
				{Src: 0, Dst: 1, SrcPort: 0, DstPort: 0},
				{Src: 0, Dst: 2, SrcPort: 0, DstPort: 0},
				{Src: 1, Dst: 2, SrcPort: 0, DstPort: 0},
			},
			want: circuit.ErrMalformedCircuit,
		},
		"role mismatch": {
			kinds: []gate.Kind{gate.RZ},
			edges: []Edge{
				{Src: 0, Dst: 1, SrcPort: 0, DstPort: 0},
				{Src: 0, Dst: 1, SrcPort: 0, DstPort: 1}, // qubit wire into a parameter port
			},
			want: circuit.ErrMalformedCircuit,
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromEdges(cat, 1, 0, tc.kinds, tc.edges)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}
