package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

func TestAbsTolerance_Bound(t *testing.T) {
	tol := AbsTolerance{N: 5}
	assert.Equal(t, int64(5), tol.Bound(100, ints.FromInt64(1000)).Int64(), "absolute tolerance ignores scale and instance value")
}

func TestPercentageTolerance_Bound(t *testing.T) {
	tol := PercentageTolerance{Val: 10, Scale: 100}
	// 10/100 = 10% of an instance value of 16 is 1.6, rounds to 2.
	assert.Equal(t, int64(2), tol.Bound(4, ints.FromInt64(16)).Int64())
}

func TestPercentageTolerance_Bound_ScalesWithEachInstanceValue(t *testing.T) {
	tol := PercentageTolerance{Val: 10, Scale: 100}
	assert.Equal(t, int64(2), tol.Bound(4, ints.FromInt64(16)).Int64(), "10% of 16")
	assert.Equal(t, int64(10), tol.Bound(4, ints.FromInt64(100)).Int64(), "10% of 100, not the same flat bound")
	assert.Equal(t, int64(10), tol.Bound(4, ints.FromInt64(-100)).Int64(), "percentage is of the magnitude of the instance value")
}

func TestRangeCheck_WithinTolerance(t *testing.T) {
	r := RangeCheck{Tol: AbsTolerance{N: 2}, Mode: Safe}
	observed := mustT(10, 10)
	expected := mustT(9, 12)
	out, err := r.Forward([]tensor.IntTensor{observed, expected})
	require.NoError(t, err)
	v, _ := out.Get(0)
	assert.Equal(t, int64(1), v.Int64())
	v, _ = out.Get(1)
	assert.Equal(t, int64(-2), v.Int64())
}

func TestRangeCheck_PercentageTolerance_UsesPerElementInstanceValue(t *testing.T) {
	// bound at index 0 is 10% of 100 = 10 (diff 5 passes); bound at index 1
	// is 10% of 10 = 1 (diff 5 violates) — a single flat bound could not
	// pass one and fail the other from the same tolerance.
	r := RangeCheck{Tol: PercentageTolerance{Val: 10, Scale: 100}, Mode: Safe}
	observed := mustT(105, 15)
	expected := mustT(100, 10)
	_, err := r.Forward([]tensor.IntTensor{observed, expected})
	var violation *ConstraintViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 1, violation.Index)
}

func TestRangeCheck_SafeMode_ViolationErrors(t *testing.T) {
	r := RangeCheck{Tol: AbsTolerance{N: 1}, Mode: Safe}
	observed := mustT(10)
	expected := mustT(0)
	_, err := r.Forward([]tensor.IntTensor{observed, expected})
	var violation *ConstraintViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "RangeCheck", violation.Op)
}

func TestRangeCheck_UnsafeMode_ClipsInsteadOfErroring(t *testing.T) {
	r := RangeCheck{Tol: AbsTolerance{N: 1}, Mode: Unsafe}
	observed := mustT(10)
	expected := mustT(0)
	out, err := r.Forward([]tensor.IntTensor{observed, expected})
	require.NoError(t, err)
	v, _ := out.Get(0)
	assert.Equal(t, int64(1), v.Int64(), "clipped to the bound, not erroring")
}

func TestRangeCheck_WrongArity(t *testing.T) {
	r := RangeCheck{Tol: AbsTolerance{N: 1}, Mode: Safe}
	_, err := r.Forward([]tensor.IntTensor{mustT(1)})
	assert.Error(t, err)
}

func TestRangeCheck_RequiresHomogeneousScalesAndLookup(t *testing.T) {
	r := NewRangeCheck(AbsTolerance{N: 3}, Safe)
	assert.Equal(t, []int{0, 1}, r.RequiresHomogeneousInputScales())
	lookups := r.RequiredLookups()
	require.Len(t, lookups, 1)
	assert.Equal(t, "GreaterThan", lookups[0].Name())
}

func TestConstraintViolation_Message(t *testing.T) {
	v := &ConstraintViolation{Op: "RangeCheck", Index: 2, Observed: ints.FromInt64(7), Bound: ints.FromInt64(3)}
	assert.Contains(t, v.Error(), "RangeCheck")
	assert.Contains(t, v.Error(), "index 2")
}
