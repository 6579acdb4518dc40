// Package ops implements spec.md §2/§4.2's operator catalogue: a closed
// family of operator kinds (Input, Constant, Polynomial, Lookup, Hybrid,
// Rescaled, Unknown), each exposing the uniform contract every layer of
// the pipeline above it (loader, table manager, layout engine) drives
// through. Mirrors the teacher's nn/types.Layer contract
// (Forward/OutputShape/Name/...), generalized from a stateful,
// gradient-carrying layer to a pure, cloneable circuit operator.
package ops

import (
	"github.com/zkmlgo/circuit/pkg/backend"
	"github.com/zkmlgo/circuit/pkg/ints"
	"github.com/zkmlgo/circuit/pkg/tensor"
	"github.com/zkmlgo/circuit/pkg/valtensor"
)

// Kind identifies which of the closed operator family an Operator belongs
// to. Used as a discriminant for dispatch the spec's source language
// expresses via dynamic dispatch over an "Op" capability set; Go expresses
// it as a tagged variant, per spec.md §9.
type Kind int

const (
	KindInput Kind = iota
	KindConstant
	KindPoly
	KindLookup
	KindHybrid
	KindRescaled
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "Input"
	case KindConstant:
		return "Constant"
	case KindPoly:
		return "Polynomial"
	case KindLookup:
		return "Lookup"
	case KindHybrid:
		return "Hybrid"
	case KindRescaled:
		return "Rescaled"
	case KindUnknown:
		return "Unknown"
	default:
		return "?"
	}
}

// Operator is the uniform contract every operator kind implements
// (spec.md §4.2).
type Operator interface {
	// Kind reports which closed-family variant this value is.
	Kind() Kind

	// Forward is the exact integer computation the circuit is constrained
	// to reproduce. Must be pure and deterministic.
	Forward(inputs []tensor.IntTensor) (tensor.IntTensor, error)

	// Name is used as an ordering key and for user display.
	Name() string

	// OutScale computes the output fixed-point scale given input scales
	// and the graph's global scale.
	OutScale(inScales []int, globalScale int) int

	// RequiresHomogeneousInputScales returns indices whose scales must be
	// forcibly equalised (via a Rescaled wrapper) before this op runs.
	RequiresHomogeneousInputScales() []int

	// RequiredLookups returns the lookup operators the layout engine must
	// install tables for before laying out this node.
	RequiredLookups() []LookupOp

	// Rescale returns a (possibly parameter-adjusted) operator suited to
	// the current input scales. A no-op (returns itself) for polynomial
	// operators; non-linear operators bake the scale ratio into their own
	// parameters.
	Rescale(inScales []int, globalScale int) Operator

	// Layout emits constraint rows for this node and advances *offset by
	// the number of rows it claims. Returns the assigned output, or nil
	// for operators with no witness output (e.g. pure markers).
	Layout(cfg backend.GateConfig, region backend.Region, values []valtensor.ValTensor, offset *int) (*valtensor.ValTensor, error)

	// IsInput reports whether this operator is a graph input leaf.
	IsInput() bool

	// Clone returns an independent deep copy (spec.md's clone_boxed).
	Clone() Operator
}

// Less implements the total order on operator name spec.md §4.2 requires
// for deduplicating lookups: lexicographic on Name(), ties broken by a
// secondary parameter signature where the concrete type provides one.
func Less(a, b Operator) bool {
	if a.Name() != b.Name() {
		return a.Name() < b.Name()
	}
	as, aok := a.(interface{ ParamSignature() string })
	bs, bok := b.(interface{ ParamSignature() string })
	if aok && bok {
		return as.ParamSignature() < bs.ParamSignature()
	}
	return false
}

// Equal reports whether two operators are the same name and (if
// available) parameter signature — used by the lookup-table manager to
// deduplicate distinct LookupOp values (spec.md §4.4).
func Equal(a, b Operator) bool {
	if a.Name() != b.Name() {
		return false
	}
	as, aok := a.(interface{ ParamSignature() string })
	bs, bok := b.(interface{ ParamSignature() string })
	if aok && bok {
		return as.ParamSignature() == bs.ParamSignature()
	}
	return true
}

// MethodError reports an operation invoked on a container variant that
// does not support it (spec.md §7's "Wrong-method" error), e.g. Forward on
// an Input or Unknown node. Constant.Forward is supported and returns the
// constant's values.
type MethodError struct {
	Op     string
	OnKind Kind
}

func (e *MethodError) Error() string {
	return "ops: " + e.Op + " is not supported on kind " + e.OnKind.String()
}

// LookupOp extends Operator with the scalar function the lookup-table
// manager materialises (spec.md §4.4): F is the per-element definition
// from spec.md §4.2's table, and DefaultPair is the (0, F(0)) row used to
// pad unused lookup rows.
type LookupOp interface {
	Operator
	// F evaluates the scalar function at x. ok is false where the function
	// is undefined (Recip at x=0, spec.md §9 open question; Div with D=0):
	// the table stores DefaultPair in such a row and Forward returns an
	// error if a real witness value reaches it.
	F(x ints.I128) (y ints.I128, ok bool)
	// DefaultPair returns (0, F(0)) (or the op's sentinel if F(0) is
	// itself undefined).
	DefaultPair() (x, y ints.I128)
	// Bits is the lookup window bit width this instance was built for.
	Bits() int
	// ParamSignature renders the operator's parameters (scale, alpha,
	// etc.) as a string, so two instances with different parameters never
	// compare Equal even though they share a Name().
	ParamSignature() string
}
