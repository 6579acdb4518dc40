package ops

import (
	"fmt"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/quantize"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// CheckMode governs whether RangeCheck treats an out-of-tolerance witness
// as a hard failure (Safe) or merely clips it without erroring (Unsafe).
type CheckMode int

const (
	Safe CheckMode = iota
	Unsafe
)

// ConstraintViolation is returned instead of panicking when a Safe-mode
// RangeCheck observes a witness value outside its declared tolerance.
type ConstraintViolation struct {
	Op       string
	Index    int
	Observed ints.I128
	Bound    ints.I128
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("ops: %s constraint violated at index %d: |%s| > %s", e.Op, e.Index, e.Observed.String(), e.Bound.String())
}

// Tolerance expresses a RangeCheck's acceptance band as an integer bound in
// the fixed-point domain at a given scale, for a given instance (expected)
// value — "instance" because a percentage bound is proportional to the
// element it's being checked against, not to the scale alone.
type Tolerance interface {
	Bound(scale int, instance ints.I128) ints.I128
	String() string
}

// AbsTolerance is a fixed integer tolerance, independent of scale and of
// the instance value.
type AbsTolerance struct{ N int64 }

func (t AbsTolerance) Bound(scale int, instance ints.I128) ints.I128 { return ints.FromInt64(t.N) }
func (t AbsTolerance) String() string                                { return fmt.Sprintf("abs(%d)", t.N) }

// PercentageTolerance expresses the tolerance as a percentage of each
// instance value itself (spec.md §4.5: "difference within val/scale of the
// instance value"), so the bound it returns varies per element rather than
// being a single scale-derived constant.
type PercentageTolerance struct {
	Val   float64
	Scale int
}

func (t PercentageTolerance) Bound(scale int, instance ints.I128) ints.I128 {
	pct := t.Val / float64(t.Scale)
	return ints.FromInt64(quantize.RoundHalfAwayFromZero(pct * instance.Abs().Float64()))
}
func (t PercentageTolerance) String() string { return fmt.Sprintf("pct(%v/%v)", t.Val, t.Scale) }

// RangeCheck is a Hybrid operator (spec.md §2): it takes two same-shaped
// inputs (observed, expected) and asserts |observed - expected| <= bound
// elementwise, where bound is derived from Tol at the operand scale.
// Forward computes each element's bound and comparison directly; the
// GreaterThan lookup it reports from RequiredLookups (see boundLookup) is
// a table requirement only and is not consulted by Forward or Layout.
// Grounded on the teacher's loss-tolerance comparisons in
// _teacher_ref/math/nn (gradient-check style abs-diff-against-epsilon),
// relowered to integer domain and exposed as a required circuit lookup.
type RangeCheck struct {
	Tol   Tolerance
	Mode  CheckMode
	scale int
}

// NewRangeCheck constructs a RangeCheck with the given tolerance and
// failure mode; scale is filled in by Rescale.
func NewRangeCheck(tol Tolerance, mode CheckMode) RangeCheck {
	return RangeCheck{Tol: tol, Mode: mode}
}

func (RangeCheck) Kind() Kind   { return KindHybrid }
func (RangeCheck) Name() string { return "RangeCheck" }

// boundLookup registers a representative GreaterThan lookup sized for this
// check's scale: one full unit (2^scale) standing in for "an instance
// value", since the table only needs to be wide enough for the bits the
// comparison runs at, not the exact per-element bound (Forward computes
// that directly per index, not through this lookup).
func (r RangeCheck) boundLookup() GreaterThan {
	bound := r.Tol.Bound(r.scale, quantize.ScaleToMultiplier(maxInt(r.scale, 0)))
	return GreaterThan{Threshold: bound.Float64(), scale: 0}
}

func (r RangeCheck) Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	if len(inputs) != 2 {
		return tensor.IntTensor{}, fmt.Errorf("ops: RangeCheck expects 2 inputs, got %d", len(inputs))
	}
	diff, err := tensor.Sub(inputs[0], inputs[1])
	if err != nil {
		return tensor.IntTensor{}, err
	}
	instance := inputs[1].Raw()
	out, err := tensor.EnumMap(diff, func(idx int, d ints.I128) (ints.I128, error) {
		bound := r.Tol.Bound(r.scale, instance[idx])
		abs := d.Abs()
		if abs.Cmp(bound) > 0 {
			if r.Mode == Safe {
				return ints.I128{}, &ConstraintViolation{Op: r.Name(), Index: idx, Observed: abs, Bound: bound}
			}
			return bound, nil
		}
		return d, nil
	})
	if err != nil {
		return tensor.IntTensor{}, err
	}
	return out, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (r RangeCheck) OutScale(inScales []int, globalScale int) int {
	if len(inScales) > 0 {
		return inScales[0]
	}
	return globalScale
}

func (RangeCheck) RequiresHomogeneousInputScales() []int { return []int{0, 1} }

func (r RangeCheck) RequiredLookups() []LookupOp { return []LookupOp{r.boundLookup()} }

func (r RangeCheck) Rescale(inScales []int, globalScale int) Operator {
	if len(inScales) > 0 {
		r.scale = inScales[0]
	}
	return r
}

func (r RangeCheck) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	if len(values) != 2 {
		return nil, fmt.Errorf("ops: RangeCheck expects 2 inputs, got %d", len(values))
	}
	a, err := toIntTensor(values[0])
	if err != nil {
		return nil, err
	}
	b, err := toIntTensor(values[1])
	if err != nil {
		return nil, err
	}
	out, err := r.Forward([]tensor.IntTensor{a, b})
	if err != nil {
		return nil, err
	}
	return assignDense(cfg, region, out, r.Name(), r.OutScale(scalesOf(values), 0), offset)
}

func (RangeCheck) IsInput() bool { return false }
func (r RangeCheck) Clone() Operator { return r }
