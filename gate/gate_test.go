package gate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindArities(t *testing.T) {
	assert.Equal(t, 1, H.NumQubits())
	assert.Equal(t, 0, H.NumParams())
	assert.Equal(t, 2, CX.NumQubits())
	assert.Equal(t, 3, CCX.NumQubits())
	assert.Equal(t, 1, RZ.NumQubits())
	assert.Equal(t, 1, RZ.NumParams())
	assert.Equal(t, 0, Add.NumQubits())
	assert.Equal(t, 2, Add.NumParams())

	assert.True(t, Add.IsParamGate())
	assert.False(t, Add.IsQuantum())
	assert.True(t, CX.IsQuantum())
	assert.True(t, InputQubit.IsInput())
	assert.True(t, InputParam.IsInput())
	assert.False(t, H.IsInput())
}

func TestKindByName(t *testing.T) {
	k, ok := KindByName("cx")
	require.True(t, ok)
	assert.Equal(t, CX, k)

	_, ok = KindByName("bogus")
	assert.False(t, ok)
}

func TestCatalogResolve(t *testing.T) {
	assert := require.New(t)
	cat := VoqcGates()

	k, err := cat.Resolve("h")
	assert.NoError(err)
	assert.Equal(H, k)

	// known kind, but outside the catalog
	_, err = cat.Resolve("ccx")
	assert.Error(err)
	assert.True(errors.Is(err, ErrUnknownGate))

	// unknown name
	_, err = cat.Resolve("toffoli")
	assert.True(errors.Is(err, ErrUnknownGate))
}

func TestCatalogInputsImplicit(t *testing.T) {
	cat := NewCatalog(H)
	assert.True(t, cat.Has(InputQubit))
	assert.True(t, cat.Has(InputParam))
	assert.True(t, cat.Has(H))
	assert.False(t, cat.Has(CX))
}

func TestCatalogUnion(t *testing.T) {
	a := NewCatalog(H, CX)
	b := NewCatalog(RZ, Add)
	u := Union(a, b)

	for _, k := range []Kind{H, CX, RZ, Add} {
		assert.True(t, u.Has(k), k.String())
	}
	assert.False(t, u.Has(CCX))
}

func TestCatalogKindsSorted(t *testing.T) {
	u := NamGates()
	kinds := u.Kinds()
	for i := 1; i < len(kinds); i++ {
		assert.Less(t, kinds[i-1], kinds[i])
	}
	assert.Contains(t, kinds, Tdg)
	assert.Contains(t, kinds, InputQubit)
}
