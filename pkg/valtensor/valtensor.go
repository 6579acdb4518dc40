// Package valtensor implements spec.md §3's "Value container (ValTensor)":
// a tensor whose elements are one of a known field value, an assigned
// constraint cell, a previously-assigned cell, or a fixed constant —
// alternatively a whole-tensor reference to a public-instance column with
// a declared shape. Every ValTensor carries its own fixed-point scale.
package valtensor

import (
	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

// Kind discriminates which variant an Elem holds.
type Kind int

const (
	// KnownValue is a field value computed outside the constraint system
	// (e.g. a constant, or a dummy-layout placeholder).
	KnownValue Kind = iota
	// AssignedCell is a cell this layout pass just wrote.
	AssignedCell
	// PreviouslyAssigned is a cell an earlier node's layout call wrote,
	// now being reused as an input.
	PreviouslyAssigned
	// FixedConstant is a backend-fixed (not witness) value.
	FixedConstant
)

// Elem is one element of a ValTensor.
type Elem struct {
	Kind  Kind
	Value field.Elem
	Cell  backend.Cell
}

// Known constructs a KnownValue element.
func Known(v field.Elem) Elem { return Elem{Kind: KnownValue, Value: v} }

// FromCell constructs an AssignedCell element wrapping a freshly assigned
// cell, carrying its value for use by pure (non-layout) consumers such as
// dummy-layout bookkeeping.
func FromCell(cell backend.Cell, v field.Elem) Elem {
	return Elem{Kind: AssignedCell, Cell: cell, Value: v}
}

// ValTensor pairs a tensor of Elem with the node's output fixed-point
// scale, and — for a public-instance-backed tensor — the instance column
// it is bound to.
type ValTensor struct {
	Elems       tensor.Tensor[Elem]
	Scale       int
	Instance    *backend.InstanceBinding // non-nil iff this is an instance reference
}

// Shape is a convenience accessor over the underlying tensor's shape.
func (v ValTensor) Shape() tensor.Shape { return v.Elems.Shape() }

// NewKnown builds a ValTensor directly from field values, all tagged
// KnownValue, at the given scale.
func NewKnown(values []field.Elem, shape tensor.Shape, scale int) (ValTensor, error) {
	elems := make([]Elem, len(values))
	for i, v := range values {
		elems[i] = Known(v)
	}
	t, err := tensor.New(elems, shape)
	if err != nil {
		return ValTensor{}, err
	}
	return ValTensor{Elems: t, Scale: scale}, nil
}

// Values extracts the field value of every element regardless of Kind,
// used by operators that only need the witness values (e.g. a pure
// dummy-layout forward pass, or a dequantisation step for debugging).
func (v ValTensor) Values() []field.Elem {
	raw := v.Elems.Raw()
	out := make([]field.Elem, len(raw))
	for i, e := range raw {
		out[i] = e.Value
	}
	return out
}
