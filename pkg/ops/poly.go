package ops

import (
	"fmt"

	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// PolyKind enumerates the Polynomial operator family (spec.md §2):
// add/sub/mul/matmul/conv/pack and friends. Grounded on the shape math of
// the teacher's dense/conv layers (_teacher_ref/math/nn/layers/{dense,
// conv2d,conv1d}.go), relowered from float gradients to pure integer
// forward evaluation.
type PolyKind int

const (
	PolyAdd PolyKind = iota
	PolySub
	PolyMul
	PolyMatmul
	PolyConv2D
	PolyPack
)

func (k PolyKind) String() string {
	switch k {
	case PolyAdd:
		return "Add"
	case PolySub:
		return "Sub"
	case PolyMul:
		return "Mul"
	case PolyMatmul:
		return "Matmul"
	case PolyConv2D:
		return "Conv2D"
	case PolyPack:
		return "Pack"
	default:
		return "?"
	}
}

// Poly is a Polynomial operator: an arithmetic combination of its inputs
// with no lookup requirement. Conv2D additionally carries stride/padding;
// Pack carries the output-packing base and target scale (spec.md §6
// pack_base, §4.5 step 4).
type Poly struct {
	PolyKind      PolyKind
	StrideH       int
	StrideW       int
	PadTop        int
	PadLeft       int
	PackBase      int
	PackScale     int
}

func (Poly) Kind() Kind      { return KindPoly }
func (p Poly) Name() string  { return p.PolyKind.String() }
func (p Poly) ParamSignature() string {
	return fmt.Sprintf("%s/%d,%d,%d,%d/%d,%d", p.PolyKind, p.StrideH, p.StrideW, p.PadTop, p.PadLeft, p.PackBase, p.PackScale)
}

func (p Poly) Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	switch p.PolyKind {
	case PolyAdd:
		if len(inputs) != 2 {
			return tensor.IntTensor{}, fmt.Errorf("ops: Add expects 2 inputs, got %d", len(inputs))
		}
		return tensor.Add(inputs[0], inputs[1])
	case PolySub:
		if len(inputs) != 2 {
			return tensor.IntTensor{}, fmt.Errorf("ops: Sub expects 2 inputs, got %d", len(inputs))
		}
		return tensor.Sub(inputs[0], inputs[1])
	case PolyMul:
		if len(inputs) != 2 {
			return tensor.IntTensor{}, fmt.Errorf("ops: Mul expects 2 inputs, got %d", len(inputs))
		}
		return tensor.Mul(inputs[0], inputs[1])
	case PolyMatmul:
		if len(inputs) != 2 {
			return tensor.IntTensor{}, fmt.Errorf("ops: Matmul expects 2 inputs, got %d", len(inputs))
		}
		return matmul(inputs[0], inputs[1])
	case PolyConv2D:
		if len(inputs) < 2 {
			return tensor.IntTensor{}, fmt.Errorf("ops: Conv2D expects at least 2 inputs (input, kernel[, bias]), got %d", len(inputs))
		}
		var bias *tensor.IntTensor
		if len(inputs) == 3 {
			bias = &inputs[2]
		}
		return conv2D(inputs[0], inputs[1], bias, p.StrideH, p.StrideW, p.PadTop, p.PadLeft)
	case PolyPack:
		if len(inputs) != 1 {
			return tensor.IntTensor{}, fmt.Errorf("ops: Pack expects 1 input, got %d", len(inputs))
		}
		return pack(inputs[0], p.PackBase)
	default:
		return tensor.IntTensor{}, fmt.Errorf("ops: unknown PolyKind %v", p.PolyKind)
	}
}

func (p Poly) OutScale(inScales []int, globalScale int) int {
	switch p.PolyKind {
	case PolyAdd, PolySub:
		if len(inScales) > 0 {
			return inScales[0]
		}
		return globalScale
	case PolyMul, PolyMatmul, PolyConv2D:
		sum := 0
		for _, s := range inScales {
			sum += s
		}
		return sum
	case PolyPack:
		return p.PackScale
	default:
		return globalScale
	}
}

func (p Poly) RequiresHomogeneousInputScales() []int {
	switch p.PolyKind {
	case PolyAdd, PolySub:
		return []int{0, 1}
	default:
		return nil
	}
}

func (Poly) RequiredLookups() []LookupOp { return nil }

// Rescale is a no-op for polynomial operators (spec.md §4.2): scale
// adjustment for Add/Sub is handled at layout time by the layout engine
// wrapping a Rescaled around the node (layout.homogenize), not by mutating
// the Poly itself. The graph loader does not insert Rescaled wrappers.
func (p Poly) Rescale(inScales []int, globalScale int) Operator { return p }

func (p Poly) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	ins := make([]tensor.IntTensor, len(values))
	for i, v := range values {
		t, err := toIntTensor(v)
		if err != nil {
			return nil, err
		}
		ins[i] = t
	}
	out, err := p.Forward(ins)
	if err != nil {
		return nil, err
	}
	return assignDense(cfg, region, out, p.Name(), p.OutScale(scalesOf(values), 0), offset)
}

func (Poly) IsInput() bool      { return false }
func (p Poly) Clone() Operator { return p }

// matmul multiplies a (m,k) by b (k,n), producing (m,n). Both tensors must
// be rank 2.
func matmul(a, b tensor.IntTensor) (tensor.IntTensor, error) {
	as, bs := a.Shape(), b.Shape()
	if as.Rank() != 2 || bs.Rank() != 2 {
		return tensor.IntTensor{}, fmt.Errorf("ops: matmul requires rank-2 tensors, got %v and %v", as, bs)
	}
	m, k, k2, n := as[0], as[1], bs[0], bs[1]
	if k != k2 {
		return tensor.IntTensor{}, fmt.Errorf("ops: matmul inner dimension mismatch %d vs %d", k, k2)
	}
	out, _ := tensor.NewInt(nil, tensor.NewShape(m, n))
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			acc := ints.Zero()
			for t := 0; t < k; t++ {
				av := a.MustGet(i, t)
				bv := b.MustGet(t, j)
				acc = acc.Add(av.Mul(bv))
			}
			out.MustSet(acc, i, j)
		}
	}
	return out, nil
}

// conv2D computes a direct (non-FFT) 2D convolution of input (C_in, H, W)
// with kernel (C_out, C_in, KH, KW), optionally adding a per-output-channel
// bias, after zero-padding the input by (padTop, padLeft) on both sides
// symmetrically — matching spec.md §4.1's pad() helper being exercised by
// convolution lowering.
func conv2D(input, kernel tensor.IntTensor, bias *tensor.IntTensor, strideH, strideW, padTop, padLeft int) (tensor.IntTensor, error) {
	is, ks := input.Shape(), kernel.Shape()
	if is.Rank() != 3 || ks.Rank() != 4 {
		return tensor.IntTensor{}, fmt.Errorf("ops: conv2D expects input rank 3 (C,H,W) and kernel rank 4 (O,C,KH,KW), got %v and %v", is, ks)
	}
	cin, h, w := is[0], is[1], is[2]
	cout, kcin, kh, kw := ks[0], ks[1], ks[2], ks[3]
	if cin != kcin {
		return tensor.IntTensor{}, fmt.Errorf("ops: conv2D channel mismatch %d vs %d", cin, kcin)
	}

	padded := input
	var err error
	if padTop > 0 {
		padded, err = tensor.Pad(padded, 1, padTop, padTop)
		if err != nil {
			return tensor.IntTensor{}, err
		}
	}
	if padLeft > 0 {
		padded, err = tensor.Pad(padded, 2, padLeft, padLeft)
		if err != nil {
			return tensor.IntTensor{}, err
		}
	}
	ph, pw := h+2*padTop, w+2*padLeft

	outH := (ph-kh)/strideH + 1
	outW := (pw-kw)/strideW + 1
	if outH <= 0 || outW <= 0 {
		return tensor.IntTensor{}, fmt.Errorf("ops: conv2D kernel larger than padded input")
	}

	out, _ := tensor.NewInt(nil, tensor.NewShape(cout, outH, outW))
	for oc := 0; oc < cout; oc++ {
		for oy := 0; oy < outH; oy++ {
			for ox := 0; ox < outW; ox++ {
				acc := ints.Zero()
				for ic := 0; ic < cin; ic++ {
					for ky := 0; ky < kh; ky++ {
						for kx := 0; kx < kw; kx++ {
							iv := padded.MustGet(ic, oy*strideH+ky, ox*strideW+kx)
							kv := kernel.MustGet(oc, ic, ky, kx)
							acc = acc.Add(iv.Mul(kv))
						}
					}
				}
				if bias != nil {
					acc = acc.Add(bias.MustGet(oc))
				}
				out.MustSet(acc, oc, oy, ox)
			}
		}
	}
	return out, nil
}

// pack folds a tensor's elements into a single scalar via
// sum(values[i] * base^i) in flat row-major order, matching spec.md §4.5
// step 4's output-packing transform (used when pack_base > 1).
func pack(t tensor.IntTensor, base int) (tensor.IntTensor, error) {
	if base <= 1 {
		return t, nil
	}
	b := ints.FromInt64(int64(base))
	acc := ints.Zero()
	power := ints.One()
	for _, v := range t.Raw() {
		acc = acc.Add(v.Mul(power))
		power = power.Mul(b)
	}
	return tensor.NewInt([]ints.I128{acc}, tensor.NewShape(1))
}

// toIntTensor extracts the field-backed known values of a ValTensor into an
// IntTensor, interpreted signed within the field's canonical range. Used
// when an operator's Layout must read concrete values to compute its
// witness (dummy-layout queries the same path with placeholder values).
func toIntTensor(v valtensor.ValTensor) (tensor.IntTensor, error) {
	raw := v.Elems.Raw()
	out := make([]ints.I128, len(raw))
	for i, e := range raw {
		val, ok := field.ToSignedInt(e.Value, ints.One().Lsh(120))
		if !ok {
			return tensor.IntTensor{}, fmt.Errorf("ops: value at index %d out of representable range", i)
		}
		out[i] = val
	}
	return tensor.NewInt(out, v.Shape())
}

func scalesOf(values []valtensor.ValTensor) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = v.Scale
	}
	return out
}

// assignDense writes every element of a freshly computed IntTensor into
// fresh advice cells via the backend's gate config, advancing offset by
// one row per element (the simplest possible row-cost model; a real
// backend's GateConfig may batch several elements per row).
func assignDense(cfg backend.GateConfig, region backend.Region, out tensor.IntTensor, opName string, scale int, offset *int) (*valtensor.ValTensor, error) {
	raw := out.Raw()
	elems := make([]valtensor.Elem, len(raw))
	for i, v := range raw {
		fe := field.FromSignedInt(v)
		cell, err := cfg.Apply(region, *offset, opName, nil)
		if err != nil {
			return nil, err
		}
		_ = cell
		elems[i] = valtensor.Elem{Kind: valtensor.AssignedCell, Value: fe}
		*offset++
	}
	t, err := tensor.New(elems, out.Shape())
	if err != nil {
		return nil, err
	}
	return &valtensor.ValTensor{Elems: t, Scale: scale}, nil
}
