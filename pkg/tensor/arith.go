package tensor

import "github.com/zkmlgo/circuit/pkg/ints"

// IntTensor is the tensor element type the circuit-lowering pipeline
// actually computes with: spec.md §4.1's Tensor<i128>.
type IntTensor = Tensor[ints.I128]

// NewInt is New specialised to IntTensor, for readability at call sites.
func NewInt(values []ints.I128, shape Shape) (IntTensor, error) {
	return New(values, shape)
}

// broadcastPair expands a and b to their common broadcast shape (spec.md
// §3), returning an error if they are incompatible.
func broadcastPair(a, b IntTensor) (IntTensor, IntTensor, error) {
	target, err := BroadcastShape(a.shape, b.shape)
	if err != nil {
		return IntTensor{}, IntTensor{}, err
	}
	ea, err := a.Expand(target)
	if err != nil {
		return IntTensor{}, IntTensor{}, err
	}
	eb, err := b.Expand(target)
	if err != nil {
		return IntTensor{}, IntTensor{}, err
	}
	return ea, eb, nil
}

func elementwise(a, b IntTensor, op func(x, y ints.I128) ints.I128) (IntTensor, error) {
	ea, eb, err := broadcastPair(a, b)
	if err != nil {
		return IntTensor{}, err
	}
	out, _ := NewInt(nil, ea.shape)
	_ = parallelChunks(len(ea.buf), func(start, end int) error {
		for i := start; i < end; i++ {
			out.buf[i] = op(ea.buf[i], eb.buf[i])
		}
		return nil
	})
	return out, nil
}

// Add computes a+b, broadcasting to a common shape first. Commutative for
// any broadcast-compatible pair (spec.md §8 property 4).
func Add(a, b IntTensor) (IntTensor, error) {
	return elementwise(a, b, ints.I128.Add)
}

// Sub computes a-b, broadcasting to a common shape first.
func Sub(a, b IntTensor) (IntTensor, error) {
	return elementwise(a, b, ints.I128.Sub)
}

// Mul computes a*b, broadcasting to a common shape first.
func Mul(a, b IntTensor) (IntTensor, error) {
	return elementwise(a, b, ints.I128.Mul)
}

// Div computes floor(a/b), broadcasting to a common shape first (spec.md
// §4.1: "division is integer floor in the integer instantiation").
func Div(a, b IntTensor) (IntTensor, error) {
	return elementwise(a, b, ints.I128.Div)
}

// Pow raises every element to the n-th power via exponentiation by
// squaring (spec.md §4.1).
func Pow(a IntTensor, n uint) IntTensor {
	return Map(a, func(x ints.I128) ints.I128 { return x.Pow(n) })
}

// Sum reduces every element to a single scalar tensor via addition.
func Sum(a IntTensor) IntTensor {
	acc := ints.Zero()
	for _, v := range a.buf {
		acc = acc.Add(v)
	}
	out, _ := NewInt([]ints.I128{acc}, NewShape(1))
	return out
}
