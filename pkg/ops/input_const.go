package ops

import (
	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// Input marks a graph leaf fed by the witness (or a public-instance
// column). It carries no computation of its own — the layout engine binds
// results[id] directly from the caller-supplied witness or instance
// column (spec.md §4.5 step 2).
type Input struct {
	Scale int
	Shape tensor.Shape
}

func (Input) Kind() Kind { return KindInput }
func (Input) Name() string { return "Input" }

func (Input) Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	return tensor.IntTensor{}, &MethodError{Op: "Forward", OnKind: KindInput}
}

func (i Input) OutScale(inScales []int, globalScale int) int { return i.Scale }
func (Input) RequiresHomogeneousInputScales() []int          { return nil }
func (Input) RequiredLookups() []LookupOp                    { return nil }
func (i Input) Rescale(inScales []int, globalScale int) Operator { return i }

func (Input) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return nil, &MethodError{Op: "Layout", OnKind: KindInput}
}

func (Input) IsInput() bool  { return true }
func (i Input) Clone() Operator { return i }

// Constant holds a fixed ValTensor baked into the circuit at load time —
// either a model parameter (weight/bias) or the result of constant-folding
// an all-Constant-input Polynomial node (SPEC_FULL.md supplemented feature
// 2).
type Constant struct {
	Values tensor.IntTensor
	Scale  int
}

func (Constant) Kind() Kind   { return KindConstant }
func (Constant) Name() string { return "Constant" }

func (c Constant) Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	return c.Values, nil
}

func (c Constant) OutScale(inScales []int, globalScale int) int { return c.Scale }
func (Constant) RequiresHomogeneousInputScales() []int          { return nil }
func (Constant) RequiredLookups() []LookupOp                    { return nil }
func (c Constant) Rescale(inScales []int, globalScale int) Operator { return c }

func (c Constant) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	raw := c.Values.Raw()
	elems := make([]field.Elem, len(raw))
	for i, v := range raw {
		elems[i] = field.FromSignedInt(v)
	}
	vt, err := valtensor.NewKnown(elems, c.Values.Shape(), c.Scale)
	if err != nil {
		return nil, err
	}
	tagged := make([]valtensor.Elem, len(elems))
	for i, e := range elems {
		tagged[i] = valtensor.Elem{Kind: valtensor.FixedConstant, Value: e}
	}
	taggedT, err := tensor.New(tagged, c.Values.Shape())
	if err != nil {
		return nil, err
	}
	vt.Elems = taggedT
	return &vt, nil
}

func (Constant) IsInput() bool    { return false }
func (c Constant) Clone() Operator { return Constant{Values: c.Values.Clone(), Scale: c.Scale} }

// Unknown is an explicit pass-through marker for nodes the graph loader's
// upstream shape inference could not resolve (SPEC_FULL.md supplemented
// feature 4): it stays in the graph so later passes can still reference
// its id for shape bookkeeping, even though Forward/Layout on it is
// always a MethodError.
type Unknown struct {
	OpType string
	Shape  tensor.Shape
	Scale  int
}

func (Unknown) Kind() Kind   { return KindUnknown }
func (u Unknown) Name() string { return "Unknown(" + u.OpType + ")" }

func (Unknown) Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error) {
	return tensor.IntTensor{}, &MethodError{Op: "Forward", OnKind: KindUnknown}
}

func (u Unknown) OutScale(inScales []int, globalScale int) int { return u.Scale }
func (Unknown) RequiresHomogeneousInputScales() []int          { return nil }
func (Unknown) RequiredLookups() []LookupOp                    { return nil }
func (u Unknown) Rescale(inScales []int, globalScale int) Operator { return u }

func (Unknown) Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error) {
	return nil, &MethodError{Op: "Layout", OnKind: KindUnknown}
}

func (Unknown) IsInput() bool    { return false }
func (u Unknown) Clone() Operator { return u }
