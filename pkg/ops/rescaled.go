package ops

import (
	"fmt"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/quantize"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// Rescaled wraps an inner operator with a per-input integer multiplier
// applied before Forward runs, used to force mismatched input scales to a
// common value ahead of an operator that requires homogeneous scales
// (spec.md §4.2's RequiresHomogeneousInputScales contract). A Rescaled
// wrapping another Rescaled is flattened at construction time (SPEC_FULL
// supplemented feature 5) so the Layout walk never recurses through more
// than one wrapper.
type Rescaled struct {
	Inner       Operator
	Multipliers []ints.I128
}

// NewRescaled builds a Rescaled node, flattening inner if it is itself
// Rescaled: the multipliers compose multiplicatively per input index.
func NewRescaled(inner Operator, multipliers []ints.I128) Rescaled {
	if r, ok := inner.(Rescaled); ok {
		composed := make([]ints.I128, len(multipliers))
		for i, m := range multipliers {
			if i < len(r.Multipliers) {
				composed[i] = m.Mul(r.Multipliers[i])
			} else {
				composed[i] = m
			}
		}
		return Rescaled{Inner: r.Inner, Multipliers: composed}
	}
	return Rescaled{Inner: inner, Multipliers: multipliers}
}

func (Rescaled) Kind() Kind     { return KindRescaled }
func (r Rescaled) Name() string { return "Rescaled(" + r.Inner.Name() + ")" }

func (r Rescaled) scaleInputs(inputs []tensor.IntTensor) ([]tensor.IntTensor, error) {
	if len(inputs) != len(r.Multipliers) {
		return nil, fmt.Errorf("ops: Rescaled has %d multipliers for %d inputs", len(r.Multipliers), len(inputs))
	}
	out := make([]tensor.IntTensor, len(inputs))
	for i, in := range inputs {
		m := r.Multipliers[i]
		if m.Cmp(ints.One()) == 0 {
			out[i] = in
			continue
		}
		out[i] = tensor.Map(in, func(v ints.I128) ints.I128 { return v.Mul(m) })
	}
	return out, nil
}

func (r Rescaled) Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	scaled, err := r.scaleInputs(inputs)
	if err != nil {
		return tensor.IntTensor{}, err
	}
	return r.Inner.Forward(scaled)
}

func (r Rescaled) OutScale(inScales []int, globalScale int) int {
	raised := make([]int, len(inScales))
	for i, s := range inScales {
		shift := 0
		if i < len(r.Multipliers) {
			shift = scaleShift(r.Multipliers[i])
		}
		raised[i] = s + shift
	}
	return r.Inner.OutScale(raised, globalScale)
}

func (r Rescaled) RequiresHomogeneousInputScales() []int { return nil }

func (r Rescaled) RequiredLookups() []LookupOp { return r.Inner.RequiredLookups() }

func (r Rescaled) Rescale(inScales []int, globalScale int) Operator { return r }

func (r Rescaled) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	if len(values) != len(r.Multipliers) {
		return nil, fmt.Errorf("ops: Rescaled has %d multipliers for %d inputs", len(r.Multipliers), len(values))
	}
	scaledValues := make([]valtensor.ValTensor, len(values))
	for i, v := range values {
		m := r.Multipliers[i]
		if m.Cmp(ints.One()) == 0 {
			scaledValues[i] = v
			continue
		}
		in, err := toIntTensor(v)
		if err != nil {
			return nil, err
		}
		scaled := tensor.Map(in, func(x ints.I128) ints.I128 { return x.Mul(m) })
		out, err := assignDense(cfg, region, scaled, "RescaleMul", v.Scale+scaleShift(m), offset)
		if err != nil {
			return nil, err
		}
		scaledValues[i] = *out
	}
	return r.Inner.Layout(cfg, region, scaledValues, offset)
}

func (Rescaled) IsInput() bool { return false }
func (r Rescaled) Clone() Operator {
	multipliers := make([]ints.I128, len(r.Multipliers))
	copy(multipliers, r.Multipliers)
	return Rescaled{Inner: r.Inner.Clone(), Multipliers: multipliers}
}

// MultiplierForScales computes the integer multiplier needed to bring a
// value at fromScale up to toScale: 2^(toScale-fromScale), or 1 when
// toScale <= fromScale (a scale is never lowered).
func MultiplierForScales(fromScale, toScale int) ints.I128 {
	if toScale <= fromScale {
		return ints.One()
	}
	return quantize.ScaleToMultiplier(toScale - fromScale)
}

// scaleShift returns the scale exponent a power-of-two multiplier raises a
// value by: m == 2^shift, so a value at scale s becomes scale s+shift once
// multiplied by m. Every multiplier this package produces comes from
// MultiplierForScales, so it is always a non-negative power of two.
func scaleShift(m ints.I128) int {
	if m.Cmp(ints.One()) <= 0 {
		return 0
	}
	return m.BitLen() - 1
}
