package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/ints"
)

func TestFromSignedInt_ToSignedInt_RoundTrip(t *testing.T) {
	bound := ints.One().Lsh(100)
	values := []int64{0, 1, -1, 42, -42, 1000000, -1000000}
	for _, v := range values {
		x := ints.FromInt64(v)
		e := FromSignedInt(x)
		got, ok := ToSignedInt(e, bound)
		require.True(t, ok, "value %d should decode within bound", v)
		assert.True(t, x.Equal(got), "round trip mismatch for %d: got %s", v, got.String())
	}
}

func TestToSignedInt_OutOfBound(t *testing.T) {
	huge := ints.One().Lsh(200)
	e := FromSignedInt(huge)
	_, ok := ToSignedInt(e, ints.One().Lsh(10))
	assert.False(t, ok, "a value far outside the bound should fail to decode")
}

func TestEqual(t *testing.T) {
	a := FromSignedInt(ints.FromInt64(7))
	b := FromSignedInt(ints.FromInt64(7))
	c := FromSignedInt(ints.FromInt64(-7))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}
