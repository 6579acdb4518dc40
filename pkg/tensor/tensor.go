package tensor

import "fmt"

// Tensor is a dense, row-major N-dimensional array over element type T.
// Mirrors the teacher's TensorCore contract (flat buffer + shape, At/SetAt,
// Shape/Rank/Size) generalized from the teacher's fixed float32/int8
// DataType union to a Go generic parameter, since the circuit kernel needs
// exactly one element type at a time (field-embeddable signed integers)
// rather than a closed set of numeric kinds.
type Tensor[T any] struct {
	buf   []T
	shape Shape
}

// New constructs a tensor of the given shape. If values is non-nil its
// length must equal shape.Size(), or a *DimError is returned (spec.md
// §4.1). A nil values slice allocates a zero-filled buffer.
func New[T any](values []T, shape Shape) (Tensor[T], error) {
	size := shape.Size()
	if values == nil {
		return Tensor[T]{buf: make([]T, size), shape: shape.Clone()}, nil
	}
	if len(values) != size {
		return Tensor[T]{}, &DimError{Op: "New", Got: len(values), Expected: size}
	}
	buf := make([]T, size)
	copy(buf, values)
	return Tensor[T]{buf: buf, shape: shape.Clone()}, nil
}

// MustNew is New but panics on error; intended for tests and constant
// construction where the shape is known to be correct by construction.
func MustNew[T any](values []T, shape Shape) Tensor[T] {
	t, err := New(values, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns a copy of the tensor's shape.
func (t Tensor[T]) Shape() Shape { return t.shape.Clone() }

// Len returns the number of elements (same as Shape().Size()).
func (t Tensor[T]) Len() int { return len(t.buf) }

// Raw returns the underlying flat buffer directly (row-major order). The
// caller must not change its length; element mutation is allowed only
// through Set to keep shape bookkeeping consistent.
func (t Tensor[T]) Raw() []T { return t.buf }

// Get returns the element at the given multi-dimensional indices.
func (t Tensor[T]) Get(indices ...int) (T, error) {
	var zero T
	off, err := t.shape.Offset(indices)
	if err != nil {
		return zero, err
	}
	return t.buf[off], nil
}

// MustGet is Get but panics on error — spec.md §4.1 documents out-of-range
// indices as a programmer error, so hot paths (operator forward/layout)
// use this rather than threading an error for something that should never
// happen given a correctly shaped graph.
func (t Tensor[T]) MustGet(indices ...int) T {
	v, err := t.Get(indices...)
	if err != nil {
		panic(err)
	}
	return v
}

// Set writes the element at the given multi-dimensional indices.
func (t Tensor[T]) Set(value T, indices ...int) error {
	off, err := t.shape.Offset(indices)
	if err != nil {
		return err
	}
	t.buf[off] = value
	return nil
}

// MustSet is Set but panics on error.
func (t Tensor[T]) MustSet(value T, indices ...int) {
	if err := t.Set(value, indices...); err != nil {
		panic(err)
	}
}

// Reshape returns a view over the same buffer with a new shape; the total
// element count must be unchanged.
func (t Tensor[T]) Reshape(newShape Shape) (Tensor[T], error) {
	if newShape.Size() != len(t.buf) {
		return Tensor[T]{}, newShapeError("Reshape", fmt.Sprintf("cannot reshape %d elements into %v", len(t.buf), newShape), t.shape, newShape)
	}
	return Tensor[T]{buf: t.buf, shape: newShape.Clone()}, nil
}

// Flatten reshapes the tensor to a single axis [len].
func (t Tensor[T]) Flatten() Tensor[T] {
	out, _ := t.Reshape(NewShape(len(t.buf)))
	return out
}

// Expand broadcasts the tensor to targetShape: every original axis must
// equal 1 or the corresponding target dimension. The result is a dense
// copy, not a view (so later elementwise writes cannot alias the source).
func (t Tensor[T]) Expand(targetShape Shape) (Tensor[T], error) {
	src := t.shape
	n := len(targetShape)
	if len(src) > n {
		return Tensor[T]{}, newShapeError("Expand", "target rank lower than source rank", src, targetShape)
	}
	pad := n - len(src)
	for i := 0; i < len(src); i++ {
		if src[i] != 1 && src[i] != targetShape[i+pad] {
			return Tensor[T]{}, newShapeError("Expand", fmt.Sprintf("axis %d (%d) cannot broadcast to %d", i, src[i], targetShape[i+pad]), src, targetShape)
		}
	}

	out, _ := New[T](nil, targetShape)
	srcStrides := src.Strides()
	idx := make([]int, n)
	total := targetShape.Size()
	for flat := 0; flat < total; flat++ {
		unravel(flat, targetShape, idx)
		srcOff := 0
		for i := 0; i < len(src); i++ {
			ti := idx[i+pad]
			if src[i] == 1 {
				ti = 0
			}
			srcOff += ti * srcStrides[i]
		}
		out.buf[flat] = t.buf[srcOff]
	}
	return out, nil
}

// unravel writes the per-axis index vector for flat offset `flat` under
// row-major shape `shape` into dst (dst must have len(shape) capacity).
func unravel(flat int, shape Shape, dst []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		dst[i] = flat % shape[i]
		flat /= shape[i]
	}
}

// Slice returns a dense copy of the Cartesian product of the given ranges.
// Each range is a [lo, hi) pair; a missing trailing range defaults to the
// full extent of that axis (spec.md §4.1).
func (t Tensor[T]) Slice(ranges ...[2]int) (Tensor[T], error) {
	if len(ranges) > len(t.shape) {
		return Tensor[T]{}, newShapeError("Slice", "more ranges than axes", t.shape)
	}
	full := make([][2]int, len(t.shape))
	for i := range full {
		if i < len(ranges) {
			full[i] = ranges[i]
		} else {
			full[i] = [2]int{0, t.shape[i]}
		}
	}
	outShape := make(Shape, len(full))
	for i, r := range full {
		if r[0] < 0 || r[1] > t.shape[i] || r[0] > r[1] {
			return Tensor[T]{}, newShapeError("Slice", fmt.Sprintf("range %v out of bounds for axis %d (size %d)", r, i, t.shape[i]), t.shape)
		}
		outShape[i] = r[1] - r[0]
	}

	out, _ := New[T](nil, outShape)
	srcStrides := t.shape.Strides()
	idx := make([]int, len(outShape))
	total := outShape.Size()
	for flat := 0; flat < total; flat++ {
		unravel(flat, outShape, idx)
		srcOff := 0
		for i, r := range full {
			srcOff += (idx[i] + r[0]) * srcStrides[i]
		}
		out.buf[flat] = t.buf[srcOff]
	}
	return out, nil
}

// Clone returns an independent deep copy.
func (t Tensor[T]) Clone() Tensor[T] {
	buf := make([]T, len(t.buf))
	copy(buf, t.buf)
	return Tensor[T]{buf: buf, shape: t.shape.Clone()}
}
