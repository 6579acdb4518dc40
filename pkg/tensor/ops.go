package tensor

import "fmt"

// DuplicateEveryN inserts one duplicate of the preceding element every n
// elements, counting from the first element after offset. Used to align
// witness values in lookup-argument rows (spec.md §4.1), where a value
// consumed by two adjacent constraint rows needs a second copy inserted in
// the flat witness stream. RemoveEveryN is its exact inverse.
func DuplicateEveryN[T any](t Tensor[T], n, offset int) Tensor[T] {
	buf := t.Raw()
	if n <= 0 {
		return t.Clone()
	}
	out := make([]T, 0, len(buf)+len(buf)/n+1)
	for i, v := range buf {
		out = append(out, v)
		logical := i + 1
		if logical > offset && (logical-offset)%n == 0 {
			out = append(out, v)
		}
	}
	result, _ := New[T](out, NewShape(len(out)))
	return result
}

// RemoveEveryN drops the duplicate inserted by DuplicateEveryN(t, n,
// offset), recovering the original flat buffer.
func RemoveEveryN[T any](t Tensor[T], n, offset int) Tensor[T] {
	buf := t.Raw()
	if n <= 0 {
		return t.Clone()
	}
	out := make([]T, 0, len(buf))
	logical := 0
	for i := 0; i < len(buf); i++ {
		out = append(out, buf[i])
		logical++
		if logical > offset && (logical-offset)%n == 0 {
			i++ // skip the inserted duplicate
		}
	}
	result, _ := New[T](out, NewShape(len(out)))
	return result
}

// Pad zero-pads (using T's zero value) the given axis with lo elements
// before and hi elements after, used by convolution/pooling lowerings
// (spec.md §4.1).
func Pad[T any](t Tensor[T], axis, lo, hi int) (Tensor[T], error) {
	if axis < 0 || axis >= t.shape.Rank() {
		return Tensor[T]{}, newShapeError("Pad", fmt.Sprintf("axis %d out of range", axis), t.shape)
	}
	if lo < 0 || hi < 0 {
		return Tensor[T]{}, newShapeError("Pad", "negative pad amount", t.shape)
	}
	outShape := t.shape.Clone()
	outShape[axis] += lo + hi
	out, _ := New[T](nil, outShape)

	srcStrides := t.shape.Strides()
	dstStrides := outShape.Strides()
	idx := make([]int, t.shape.Rank())
	total := t.shape.Size()
	for flat := 0; flat < total; flat++ {
		unravel(flat, t.shape, idx)
		dstOff := 0
		srcOff := 0
		for i := range idx {
			di := idx[i]
			if i == axis {
				di += lo
			}
			dstOff += di * dstStrides[i]
			srcOff += idx[i] * srcStrides[i]
		}
		out.buf[dstOff] = t.buf[srcOff]
	}
	return out, nil
}

// Resize performs nearest-neighbor upsampling: each element along axis i
// is repeated scales[i] times, used by convolution/pooling lowerings that
// need to materialise a strided operator's dense equivalent.
func Resize[T any](t Tensor[T], scales []int) (Tensor[T], error) {
	if len(scales) != t.shape.Rank() {
		return Tensor[T]{}, newShapeError("Resize", "scales length must match rank", t.shape)
	}
	outShape := make(Shape, len(scales))
	for i, s := range scales {
		if s <= 0 {
			return Tensor[T]{}, newShapeError("Resize", "scale must be positive", t.shape)
		}
		outShape[i] = t.shape[i] * s
	}
	out, _ := New[T](nil, outShape)
	idx := make([]int, len(outShape))
	total := outShape.Size()
	for flat := 0; flat < total; flat++ {
		unravel(flat, outShape, idx)
		srcIdx := make([]int, len(idx))
		for i, v := range idx {
			srcIdx[i] = v / scales[i]
		}
		off, _ := t.shape.Offset(srcIdx)
		out.buf[flat] = t.buf[off]
	}
	return out, nil
}

// IntercalateValues inserts value v between every pair of adjacent elements
// along axis, stride-1 copies at a time, used to lower strided/transposed
// convolutions into a dense form the base gates can consume directly.
func IntercalateValues[T any](t Tensor[T], v T, stride, axis int) (Tensor[T], error) {
	if axis < 0 || axis >= t.shape.Rank() {
		return Tensor[T]{}, newShapeError("IntercalateValues", fmt.Sprintf("axis %d out of range", axis), t.shape)
	}
	if stride <= 1 {
		return t.Clone(), nil
	}
	n := t.shape[axis]
	outN := n
	if n > 0 {
		outN = (n-1)*stride + 1
	}
	outShape := t.shape.Clone()
	outShape[axis] = outN
	out, _ := New[T](nil, outShape)
	// initialise with v
	for i := range out.buf {
		out.buf[i] = v
	}

	srcStrides := t.shape.Strides()
	dstStrides := outShape.Strides()
	idx := make([]int, t.shape.Rank())
	total := t.shape.Size()
	for flat := 0; flat < total; flat++ {
		unravel(flat, t.shape, idx)
		dstOff := 0
		srcOff := 0
		for i := range idx {
			di := idx[i]
			if i == axis {
				di *= stride
			}
			dstOff += di * dstStrides[i]
			srcOff += idx[i] * srcStrides[i]
		}
		out.buf[dstOff] = t.buf[srcOff]
	}
	return out, nil
}
