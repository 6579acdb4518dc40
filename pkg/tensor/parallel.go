package tensor

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minParallelSize and numWorkers follow the teacher's
// pkg/core/math/primitive/generics/mt.shouldParallelize heuristic: small
// buffers run single-threaded to avoid goroutine overhead swamping the
// work itself.
var (
	minParallelSize = 128 * runtime.NumCPU()
	numWorkers      = runtime.NumCPU()
)

func init() {
	if numWorkers < 1 {
		numWorkers = 1
	}
}

func shouldParallelize(n int) bool {
	return n >= minParallelSize && numWorkers > 1
}

// parallelChunks splits [0,n) into numWorkers contiguous chunks and runs fn
// over each chunk concurrently, exactly like the teacher's parallelChunks,
// except fanned out through an errgroup.Group so the first error from any
// chunk is returned to the caller (every chunk still runs to completion;
// fn is not handed the group's context) — the
// teacher's hand-rolled chan-based pool has no error channel at all, which
// Map's error-propagating sibling (EnumMap) needs (spec.md §4.1:
// "enum_map propagates errors").
func parallelChunks(n int, fn func(start, end int) error) error {
	if n == 0 {
		return nil
	}
	if !shouldParallelize(n) {
		return fn(0, n)
	}

	chunkSize := (n + numWorkers - 1) / numWorkers
	g, _ := errgroup.WithContext(context.Background())
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error { return fn(s, e) })
	}
	return g.Wait()
}

// Map applies f to every element, returning a new tensor of the same
// shape. Errors cannot occur — use EnumMap when f may fail. Elementwise
// work is parallel-safe and order-independent per spec.md §5 so it is
// farmed out across parallelChunks.
func Map[T any](t Tensor[T], f func(T) T) Tensor[T] {
	out, _ := New[T](nil, t.shape)
	_ = parallelChunks(len(t.buf), func(start, end int) error {
		for i := start; i < end; i++ {
			out.buf[i] = f(t.buf[i])
		}
		return nil
	})
	return out
}

// EnumMap applies f (given the flat row-major index and the element) to
// every element, propagating the first error encountered. Shape is
// preserved on success.
func EnumMap[T any](t Tensor[T], f func(idx int, v T) (T, error)) (Tensor[T], error) {
	out, _ := New[T](nil, t.shape)
	err := parallelChunks(len(t.buf), func(start, end int) error {
		for i := start; i < end; i++ {
			v, err := f(i, t.buf[i])
			if err != nil {
				return err
			}
			out.buf[i] = v
		}
		return nil
	})
	if err != nil {
		return Tensor[T]{}, err
	}
	return out, nil
}
