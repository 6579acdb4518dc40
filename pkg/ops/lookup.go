package ops

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/quantize"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// forwardLookup is the shared Forward/Layout implementation every LookupOp
// variant below delegates to: apply F elementwise, erroring if F is
// undefined at some witness value actually encountered (spec.md §9 open
// question on Recip(0)).
func forwardLookup(op LookupOp, inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	if len(inputs) != 1 {
		return tensor.IntTensor{}, fmt.Errorf("ops: %s expects 1 input, got %d", op.Name(), len(inputs))
	}
	return tensor.EnumMap(inputs[0], func(_ int, x ints.I128) (ints.I128, error) {
		y, ok := op.F(x)
		if !ok {
			return ints.I128{}, fmt.Errorf("ops: %s undefined at x=%s", op.Name(), x.String())
		}
		return y, nil
	})
}

func layoutLookup(op LookupOp, cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("ops: %s expects 1 input, got %d", op.Name(), len(values))
	}
	in, err := toIntTensor(values[0])
	if err != nil {
		return nil, err
	}
	out, err := forwardLookup(op, []tensor.IntTensor{in})
	if err != nil {
		return nil, err
	}
	return assignDense(cfg, region, out, op.Name(), op.OutScale([]int{values[0].Scale}, 0), offset)
}

func multiplier(scale int) float64 { return math.Pow(2, float64(scale)) }

// LookupBits is the lookup-table window bit width every LookupOp in this
// package reports from Bits(): set once by the loader from run_args.bits
// before any table is populated (spec.md §4.4). A package-level knob
// mirrors spec.md's single global run configuration rather than threading
// a bits parameter through every constructor.
var LookupBits = 8

// ReLU{s}: max(0, x) / s, rounded half-away-from-zero.
type ReLU struct{ Scale int }

func (ReLU) Kind() Kind                                  { return KindLookup }
func (ReLU) Name() string                                { return "ReLU" }
func (r ReLU) ParamSignature() string                    { return fmt.Sprintf("scale=%d", r.Scale) }
func (r ReLU) Bits() int                                 { return LookupBits }
func (r ReLU) F(x ints.I128) (ints.I128, bool) {
	if x.Sign() < 0 {
		return ints.Zero(), true
	}
	return quantize.RoundDivI128(x, quantize.ScaleToMultiplier(r.Scale)), true
}
func (r ReLU) DefaultPair() (ints.I128, ints.I128) { y, _ := r.F(ints.Zero()); return ints.Zero(), y }
func (r ReLU) Forward(in []tensor.IntTensor) (tensor.IntTensor, error) { return forwardLookup(r, in) }
func (r ReLU) OutScale(inScales []int, globalScale int) int { return 0 }
func (ReLU) RequiresHomogeneousInputScales() []int          { return nil }
func (r ReLU) RequiredLookups() []LookupOp                  { return []LookupOp{r} }
func (r ReLU) Rescale(inScales []int, globalScale int) Operator {
	if len(inScales) == 1 {
		r.Scale = inScales[0]
	}
	return r
}
func (r ReLU) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return layoutLookup(r, cfg, region, values, offset)
}
func (ReLU) IsInput() bool    { return false }
func (r ReLU) Clone() Operator { return r }

// LeakyReLU{s, alpha}: x >= 0 ? x/s : floor(alpha*x/s). alpha is stored
// pre-scaled by 2^AlphaScale (an integer numerator over that power of two)
// so the negative branch stays exact integer arithmetic.
type LeakyReLU struct {
	Scale      int
	AlphaNum   int64
	AlphaScale int
}

func (LeakyReLU) Kind() Kind       { return KindLookup }
func (LeakyReLU) Name() string     { return "LeakyReLU" }
func (l LeakyReLU) ParamSignature() string {
	return fmt.Sprintf("scale=%d,alpha=%d/2^%d", l.Scale, l.AlphaNum, l.AlphaScale)
}
func (l LeakyReLU) Bits() int { return LookupBits }
func (l LeakyReLU) F(x ints.I128) (ints.I128, bool) {
	s := quantize.ScaleToMultiplier(l.Scale)
	if x.Sign() >= 0 {
		return x.Div(s), true
	}
	alpha := ints.FromInt64(l.AlphaNum)
	num := x.Mul(alpha)
	denom := s.Mul(ints.One().Lsh(uint(l.AlphaScale)))
	return num.Div(denom), true
}
func (l LeakyReLU) DefaultPair() (ints.I128, ints.I128) { y, _ := l.F(ints.Zero()); return ints.Zero(), y }
func (l LeakyReLU) Forward(in []tensor.IntTensor) (tensor.IntTensor, error) { return forwardLookup(l, in) }
func (l LeakyReLU) OutScale(inScales []int, globalScale int) int           { return 0 }
func (LeakyReLU) RequiresHomogeneousInputScales() []int                   { return nil }
func (l LeakyReLU) RequiredLookups() []LookupOp                           { return []LookupOp{l} }
func (l LeakyReLU) Rescale(inScales []int, globalScale int) Operator {
	if len(inScales) == 1 {
		l.Scale = inScales[0]
	}
	return l
}
func (l LeakyReLU) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return layoutLookup(l, cfg, region, values, offset)
}
func (LeakyReLU) IsInput() bool      { return false }
func (l LeakyReLU) Clone() Operator { return l }

// Div{d}: round(x / d), d a nonzero integer divisor.
type Div struct{ D int64 }

func (Div) Kind() Kind                             { return KindLookup }
func (Div) Name() string                           { return "Div" }
func (d Div) ParamSignature() string               { return fmt.Sprintf("d=%d", d.D) }
func (d Div) Bits() int                            { return LookupBits }
func (d Div) F(x ints.I128) (ints.I128, bool) {
	if d.D == 0 {
		return ints.Zero(), false
	}
	return quantize.RoundDivI128(x, ints.FromInt64(d.D)), true
}
func (d Div) DefaultPair() (ints.I128, ints.I128) { y, _ := d.F(ints.Zero()); return ints.Zero(), y }
func (d Div) Forward(in []tensor.IntTensor) (tensor.IntTensor, error) { return forwardLookup(d, in) }
func (d Div) OutScale(inScales []int, globalScale int) int            { return 0 }
func (Div) RequiresHomogeneousInputScales() []int                     { return nil }
func (d Div) RequiredLookups() []LookupOp                             { return []LookupOp{d} }
func (d Div) Rescale(inScales []int, globalScale int) Operator        { return d }
func (d Div) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return layoutLookup(d, cfg, region, values, offset)
}
func (Div) IsInput() bool    { return false }
func (d Div) Clone() Operator { return d }

// Recip{s}: round(s / x). Undefined at x=0 (spec.md §9 open question):
// F reports ok=false there, so Forward errors if a real witness ever
// queries it, while table.Assign fills that table row with DefaultPair
// (0, 0) rather than omitting it — the loader is responsible for
// never producing a zero input to a Recip node (e.g. by composing it only
// behind operators that cannot yield exact zero, or by the model simply
// never doing so).
type Recip struct{ Scale int }

func (Recip) Kind() Kind                 { return KindLookup }
func (Recip) Name() string               { return "Recip" }
func (r Recip) ParamSignature() string   { return fmt.Sprintf("scale=%d", r.Scale) }
func (r Recip) Bits() int                { return LookupBits }
func (r Recip) F(x ints.I128) (ints.I128, bool) {
	if x.IsZero() {
		return ints.Zero(), false
	}
	s := quantize.ScaleToMultiplier(r.Scale)
	return quantize.RoundDivI128(s, x), true
}
func (r Recip) DefaultPair() (ints.I128, ints.I128) { return ints.Zero(), ints.Zero() }
func (r Recip) Forward(in []tensor.IntTensor) (tensor.IntTensor, error) { return forwardLookup(r, in) }
func (r Recip) OutScale(inScales []int, globalScale int) int           { return r.Scale }
func (Recip) RequiresHomogeneousInputScales() []int                    { return nil }
func (r Recip) RequiredLookups() []LookupOp                            { return []LookupOp{r} }
func (r Recip) Rescale(inScales []int, globalScale int) Operator {
	r.Scale = globalScale
	return r
}
func (r Recip) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return layoutLookup(r, cfg, region, values, offset)
}
func (Recip) IsInput() bool    { return false }
func (r Recip) Clone() Operator { return r }

// realLookup covers Sigmoid/Tanh/Erf/Exp/Sqrt/Rsqrt: all "operate in the
// real domain with input scale, then multiply by output scale and round"
// (spec.md §4.2). realFn takes the real-valued x (already divided by the
// input multiplier) and returns the real-valued f(x) before the output
// multiplier and rounding are applied.
type realLookup struct {
	kind    string
	InScale int
	OutScale_ int
	realFn  func(float64) float64
}

func (realLookup) Kind() Kind             { return KindLookup }
func (r realLookup) Name() string          { return r.kind }
func (r realLookup) ParamSignature() string {
	return fmt.Sprintf("in=%d,out=%d", r.InScale, r.OutScale_)
}
func (r realLookup) Bits() int { return LookupBits }
func (r realLookup) F(x ints.I128) (ints.I128, bool) {
	xReal := x.Float64() / multiplier(r.InScale)
	y := r.realFn(xReal) * multiplier(r.OutScale_)
	return ints.FromInt64(quantize.RoundHalfAwayFromZero(y)), true
}
func (r realLookup) DefaultPair() (ints.I128, ints.I128) { y, _ := r.F(ints.Zero()); return ints.Zero(), y }
func (r realLookup) Forward(in []tensor.IntTensor) (tensor.IntTensor, error) { return forwardLookup(r, in) }
func (r realLookup) OutScale(inScales []int, globalScale int) int { return r.OutScale_ }
func (realLookup) RequiresHomogeneousInputScales() []int          { return nil }
func (r realLookup) RequiredLookups() []LookupOp                  { return []LookupOp{r} }
func (r realLookup) Rescale(inScales []int, globalScale int) Operator {
	if len(inScales) == 1 {
		r.InScale = inScales[0]
	}
	return r
}
func (r realLookup) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return layoutLookup(r, cfg, region, values, offset)
}
func (realLookup) IsInput() bool      { return false }
func (r realLookup) Clone() Operator { return r }

// Sigmoid{in,out}: round(out / (1 + exp(-x/in))). spec.md S2: Sigmoid on 0
// yields round(out*0.5). The real-domain exp uses math32.Exp, the
// teacher's activation-math library (_teacher_ref/math/nn/layers/
// activations.go uses it for its own softmax exp), rather than
// math.Exp: these table rows are pre-image samples, not proof-critical
// arithmetic, so float32's precision is the corpus's own standard here.
func NewSigmoid(inScale, outScale int) LookupOp {
	return realLookup{kind: "Sigmoid", InScale: inScale, OutScale_: outScale, realFn: func(x float64) float64 {
		return 1.0 / (1.0 + float64(math32.Exp(float32(-x))))
	}}
}

// Tanh{in,out}.
func NewTanh(inScale, outScale int) LookupOp {
	return realLookup{kind: "Tanh", InScale: inScale, OutScale_: outScale, realFn: func(x float64) float64 {
		return float64(math32.Tanh(float32(x)))
	}}
}

// Erf{in,out}. math32 carries no Erf (the teacher's own activations.go
// never needed one — it has no Gaussian-CDF-style layer), so this one
// real-domain function stays on the standard library's math.Erf.
func NewErf(inScale, outScale int) LookupOp {
	return realLookup{kind: "Erf", InScale: inScale, OutScale_: outScale, realFn: math.Erf}
}

// Exp{in,out}.
func NewExp(inScale, outScale int) LookupOp {
	return realLookup{kind: "Exp", InScale: inScale, OutScale_: outScale, realFn: func(x float64) float64 {
		return float64(math32.Exp(float32(x)))
	}}
}

// Sqrt{in,out}: round(out * sqrt(x/in)).
func NewSqrt(inScale, outScale int) LookupOp {
	return realLookup{kind: "Sqrt", InScale: inScale, OutScale_: outScale, realFn: func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return float64(math32.Sqrt(float32(x)))
	}}
}

// Rsqrt{in,out}: round(out / sqrt(x/in)), the reciprocal of Sqrt.
func NewRsqrt(inScale, outScale int) LookupOp {
	return realLookup{kind: "Rsqrt", InScale: inScale, OutScale_: outScale, realFn: func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		return float64(1.0 / math32.Sqrt(float32(x)))
	}}
}

// GreaterThan{a}: x > a*m(s) ? 1 : 0. The threshold is baked in at
// Rescale time using the node's incoming scale, per spec.md §4.2.
type GreaterThan struct {
	Threshold float64 // the real-valued constant 'a'
	scale     int      // incoming scale s used to compute a * m(s)
}

// NewGreaterThan constructs a GreaterThan lookup with real threshold a; the
// scale is filled in by Rescale once the loader knows the input's scale.
func NewGreaterThan(a float64) GreaterThan { return GreaterThan{Threshold: a} }

func (GreaterThan) Kind() Kind           { return KindLookup }
func (GreaterThan) Name() string         { return "GreaterThan" }
func (g GreaterThan) ParamSignature() string {
	return fmt.Sprintf("a=%v,scale=%d", g.Threshold, g.scale)
}
func (g GreaterThan) Bits() int { return LookupBits }
func (g GreaterThan) F(x ints.I128) (ints.I128, bool) {
	threshold := ints.FromInt64(quantize.RoundHalfAwayFromZero(g.Threshold * multiplier(g.scale)))
	if x.Cmp(threshold) > 0 {
		return ints.One(), true
	}
	return ints.Zero(), true
}
func (g GreaterThan) DefaultPair() (ints.I128, ints.I128) { y, _ := g.F(ints.Zero()); return ints.Zero(), y }
func (g GreaterThan) Forward(in []tensor.IntTensor) (tensor.IntTensor, error) { return forwardLookup(g, in) }
func (g GreaterThan) OutScale(inScales []int, globalScale int) int           { return 0 }
func (GreaterThan) RequiresHomogeneousInputScales() []int                    { return nil }
func (g GreaterThan) RequiredLookups() []LookupOp                            { return []LookupOp{g} }
func (g GreaterThan) Rescale(inScales []int, globalScale int) Operator {
	if len(inScales) == 1 {
		g.scale = inScales[0]
	}
	return g
}
func (g GreaterThan) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return layoutLookup(g, cfg, region, values, offset)
}
func (GreaterThan) IsInput() bool    { return false }
func (g GreaterThan) Clone() Operator { return g }
