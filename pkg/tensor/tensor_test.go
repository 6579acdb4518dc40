package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/ints"
)

func ii(vs ...int64) []ints.I128 {
	out := make([]ints.I128, len(vs))
	for i, v := range vs {
		out[i] = ints.FromInt64(v)
	}
	return out
}

func TestShape_BroadcastShape(t *testing.T) {
	tests := []struct {
		name        string
		a, b        Shape
		want        Shape
		expectError bool
	}{
		{"equal", NewShape(2, 3), NewShape(2, 3), NewShape(2, 3), false},
		{"scalar_broadcast", NewShape(2, 3), NewShape(1), NewShape(2, 3), false},
		{"rank_mismatch_padding", NewShape(3), NewShape(2, 3), NewShape(2, 3), false},
		{"axis_one", NewShape(2, 1), NewShape(1, 3), NewShape(2, 3), false},
		{"incompatible", NewShape(2, 3), NewShape(2, 4), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BroadcastShape(tt.a, tt.b)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestShape_Offset(t *testing.T) {
	s := NewShape(2, 3)
	off, err := s.Offset([]int{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 5, off)

	_, err = s.Offset([]int{2, 0})
	assert.Error(t, err, "out of range index should error")

	_, err = s.Offset([]int{0})
	assert.Error(t, err, "wrong arity should error")
}

func TestNew_DimMismatch(t *testing.T) {
	_, err := New(ii(1, 2, 3), NewShape(2, 2))
	assert.Error(t, err)

	var dimErr *DimError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Got)
	assert.Equal(t, 4, dimErr.Expected)
}

func TestTensor_GetSet(t *testing.T) {
	tn := MustNew(ii(1, 2, 3, 4, 5, 6), NewShape(2, 3))
	v, err := tn.Get(1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), v.Int64())

	require.NoError(t, tn.Set(ints.FromInt64(99), 0, 0))
	v, _ = tn.Get(0, 0)
	assert.Equal(t, int64(99), v.Int64())
}

func TestTensor_ReshapeFlatten(t *testing.T) {
	tn := MustNew(ii(1, 2, 3, 4, 5, 6), NewShape(2, 3))
	reshaped, err := tn.Reshape(NewShape(3, 2))
	require.NoError(t, err)
	assert.True(t, reshaped.Shape().Equal(NewShape(3, 2)))

	_, err = tn.Reshape(NewShape(4, 2))
	assert.Error(t, err, "mismatched element count should error")

	flat := tn.Flatten()
	assert.True(t, flat.Shape().Equal(NewShape(6)))
}

func TestTensor_Expand(t *testing.T) {
	tn := MustNew(ii(1, 2), NewShape(2, 1))
	expanded, err := tn.Expand(NewShape(2, 3))
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			v, _ := expanded.Get(i, j)
			assert.Equal(t, int64(i)+1, v.Int64())
		}
	}

	_, err = tn.Expand(NewShape(3, 3))
	assert.Error(t, err, "incompatible axis should fail to expand")
}

func TestTensor_Slice(t *testing.T) {
	tn := MustNew(ii(1, 2, 3, 4, 5, 6, 7, 8, 9), NewShape(3, 3))
	sliced, err := tn.Slice([2]int{1, 3}, [2]int{0, 2})
	require.NoError(t, err)
	assert.True(t, sliced.Shape().Equal(NewShape(2, 2)))
	v, _ := sliced.Get(0, 0)
	assert.Equal(t, int64(4), v.Int64())
	v, _ = sliced.Get(1, 1)
	assert.Equal(t, int64(8), v.Int64())

	_, err = tn.Slice([2]int{0, 5})
	assert.Error(t, err, "out-of-bounds range should error")
}

func TestTensor_Clone(t *testing.T) {
	tn := MustNew(ii(1, 2, 3), NewShape(3))
	clone := tn.Clone()
	clone.MustSet(ints.FromInt64(99), 0)
	v, _ := tn.Get(0)
	assert.Equal(t, int64(1), v.Int64(), "cloning must not alias the source buffer")
}

func TestMapAndEnumMap(t *testing.T) {
	tn := MustNew(ii(1, 2, 3, 4), NewShape(4))
	doubled := Map(tn, func(v ints.I128) ints.I128 { return v.Mul(ints.FromInt64(2)) })
	for i := 0; i < 4; i++ {
		v, _ := doubled.Get(i)
		orig, _ := tn.Get(i)
		assert.Equal(t, orig.Int64()*2, v.Int64())
	}

	_, err := EnumMap(tn, func(idx int, v ints.I128) (ints.I128, error) {
		if idx == 2 {
			return ints.I128{}, assertErr
		}
		return v, nil
	})
	assert.ErrorIs(t, err, assertErr, "EnumMap must propagate the first error")
}

var assertErr = errDummy{}

type errDummy struct{}

func (errDummy) Error() string { return "dummy error" }
