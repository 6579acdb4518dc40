// Package quantize implements the fixed-point scale arithmetic from
// spec.md §3 ("FixedPoint scale") and §6 ("Witness input"): converting
// between real (float64) values and the signed integer representation the
// rest of the pipeline computes with, using round-half-away-from-zero
// throughout (spec.md §4.2).
package quantize

import (
	"math"

	"github.com/zkmlgo/circuit/pkg/ints"
)

// ScaleToMultiplier returns 2^scale as an I128. spec.md treats this as "an
// integer-valued function of the scale exponent only" (§9 open question) —
// callers must never derive it from a float comparison.
func ScaleToMultiplier(scale int) ints.I128 {
	if scale < 0 {
		panic("quantize: negative scale")
	}
	return ints.One().Lsh(uint(scale))
}

// RoundHalfAwayFromZero rounds x to the nearest integer, breaking ties away
// from zero (1.5 -> 2, -1.5 -> -2), matching the rounding convention
// spec.md §4.2 specifies for every lookup operator.
func RoundHalfAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// Quantise converts a real value into its fixed-point integer
// representation at the given scale: round(x * 2^scale).
func Quantise(x float64, scale int) ints.I128 {
	m := ScaleToMultiplier(scale)
	scaled := x * m.Float64()
	return ints.FromInt64(RoundHalfAwayFromZero(scaled))
}

// Dequantise converts a fixed-point integer back to its real value:
// v * 2^-scale. Spec.md §8 property 3 requires
// |Dequantise(Quantise(x, s), s) - x| <= 2^-s for every x.
func Dequantise(v ints.I128, scale int) float64 {
	m := ScaleToMultiplier(scale)
	return v.Float64() / m.Float64()
}

// RoundDivI128 computes round(n / d) with round-half-away-from-zero
// semantics over signed I128 operands, used by lookup operators (Div,
// Recip, Sigmoid, ...) whose integer definitions are stated as "round(...)"
// rather than floor division. Panics on division by zero.
func RoundDivI128(n, d ints.I128) ints.I128 {
	if d.IsZero() {
		panic("quantize: division by zero")
	}
	q, r := ints.QuoRemTruncated(n, d)
	twiceAbsR := r.Abs().Mul(ints.FromInt64(2))
	if twiceAbsR.Cmp(d.Abs()) >= 0 {
		if (n.Sign() < 0) == (d.Sign() < 0) {
			q = q.Add(ints.One())
		} else {
			q = q.Sub(ints.One())
		}
	}
	return q
}
