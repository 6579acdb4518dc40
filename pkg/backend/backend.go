// Package backend declares the narrow set of contracts the circuit core
// borrows from the proving-system backend: a constraint-system builder, a
// region-assignment handle, and primitive column/fixed/advice types
// (spec.md §1). The backend itself — commitment scheme, FFT, transcript,
// on-chain verifier synthesis — is explicitly out of scope; this package
// exists only so the layout engine (pkg/layout) and operator catalogue
// (pkg/ops) have something concrete to call without depending on any one
// backend implementation.
package backend

import (
	"github.com/zkmlgo/circuit/pkg/field"
	"github.com/zkmlgo/circuit/pkg/tensor"
)

// ColumnID identifies a column within the backend's constraint system.
// Opaque to the core beyond equality comparison.
type ColumnID int

// Cell is an opaque handle to a previously assigned witness cell,
// returned by Region.AssignAdvice so later operators can reference it
// without re-deriving its value (spec.md §3's ValTensor "assigned
// constraint cell" / "previously-assigned cell" variants).
type Cell interface {
	Column() ColumnID
	Offset() int
}

// Region is the backend's region-assignment handle. The layout engine
// owns it exclusively for the duration of a single call; it is not
// re-entrant, and the core must never retain it across calls (spec.md §5).
type Region interface {
	// AssignAdvice writes value into an advice column at offset and
	// returns a handle to the assigned cell.
	AssignAdvice(col ColumnID, offset int, value field.Elem) (Cell, error)
	// AssignFixed writes a backend-fixed (non-witness) value, used for
	// lookup-table population.
	AssignFixed(col ColumnID, offset int, value field.Elem) error
	// ConstrainEqual asserts two previously assigned cells hold equal
	// values, used by output range-checks and Rescaled-equalised inputs.
	ConstrainEqual(a, b Cell) error
}

// GateConfig is the configured arithmetic base gate the layout engine
// drives to emit rows for polynomial operators (add/sub/mul/matmul/conv/
// pack/...). One call to Apply claims exactly one row and advances the
// caller's offset by one (spec.md §4.5 item 6).
type GateConfig interface {
	// Apply emits a row computing the named operation over ins and
	// returns the assigned output cell.
	Apply(region Region, offset int, opName string, ins []Cell) (Cell, error)
}

// LookupColumns is the (input, output) column pair one lookup table owns.
type LookupColumns struct {
	Input  ColumnID
	Output ColumnID
}

// InstanceBinding names a public-instance column and the shape it is
// declared to hold (spec.md §3's ParameterBlock.instance_shapes).
type InstanceBinding struct {
	Column ColumnID
	Shape  tensor.Shape
}
