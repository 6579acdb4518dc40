// Package ints provides the signed, arbitrary-precision integer type used
// as the tensor element throughout the circuit-lowering pipeline. The spec
// this module implements speaks of a 128-bit signed integer ("i128"); Go has
// no native type of that width, so I128 wraps math/big.Int and exposes only
// the value-semantics subset the kernel needs.
package ints

import "math/big"

// I128 is an immutable, value-semantics signed integer. Every method
// returns a new I128 rather than mutating the receiver, so tensors of I128
// can be copied and compared the way a fixed-width integer would be.
type I128 struct {
	v big.Int
}

// Zero is the additive identity.
func Zero() I128 { return I128{} }

// One is the multiplicative identity.
func One() I128 { return FromInt64(1) }

// FromInt64 constructs an I128 from a native signed integer.
func FromInt64(x int64) I128 {
	var i I128
	i.v.SetInt64(x)
	return i
}

// FromBigInt copies a math/big.Int into an I128.
func FromBigInt(x *big.Int) I128 {
	var i I128
	i.v.Set(x)
	return i
}

// BigInt returns a copy of the underlying big.Int. Callers must not mutate
// the returned pointer's referent if they intend to keep using the I128.
func (a I128) BigInt() *big.Int {
	var out big.Int
	out.Set(&a.v)
	return &out
}

func (a I128) Add(b I128) I128 {
	var r I128
	r.v.Add(&a.v, &b.v)
	return r
}

func (a I128) Sub(b I128) I128 {
	var r I128
	r.v.Sub(&a.v, &b.v)
	return r
}

func (a I128) Mul(b I128) I128 {
	var r I128
	r.v.Mul(&a.v, &b.v)
	return r
}

// Div performs integer floor division, matching spec.md's
// "division is integer floor in the integer instantiation". Unlike
// math/big.Int's own Div/DivMod (which implement Euclidean division, a
// different convention when the divisor is negative), this always returns
// floor(a/b). Panics on division by zero, matching math/big.Int.Quo.
func (a I128) Div(b I128) I128 {
	var q, r big.Int
	q.QuoRem(&a.v, &b.v, &r)
	if r.Sign() != 0 && (r.Sign() < 0) != (b.v.Sign() < 0) {
		q.Sub(&q, big.NewInt(1))
	}
	return I128{v: q}
}

// Neg returns -a.
func (a I128) Neg() I128 {
	var r I128
	r.v.Neg(&a.v)
	return r
}

// Abs returns |a|.
func (a I128) Abs() I128 {
	var r I128
	r.v.Abs(&a.v)
	return r
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a I128) Cmp(b I128) int { return a.v.Cmp(&b.v) }

// Sign returns -1, 0, or 1 for the sign of a.
func (a I128) Sign() int { return a.v.Sign() }

// IsZero reports whether a == 0.
func (a I128) IsZero() bool { return a.v.Sign() == 0 }

// Int64 truncates a to a native int64. Callers that need overflow
// detection should inspect BitLen() first; this mirrors the teacher's
// At()/SetAt() pattern of trusting the caller to have sized things
// correctly before a direct conversion.
func (a I128) Int64() int64 { return a.v.Int64() }

// Float64 converts a to a float64, used only for display/debug and for
// quantisation round-trip checks — never for circuit-relevant arithmetic.
func (a I128) Float64() float64 {
	f := new(big.Float).SetInt(&a.v)
	out, _ := f.Float64()
	return out
}

// String renders the decimal form of a.
func (a I128) String() string { return a.v.String() }

// Pow returns a^n via exponentiation by squaring (n >= 0).
func (a I128) Pow(n uint) I128 {
	result := One()
	base := a
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		n >>= 1
	}
	return result
}

// Lsh returns a << n (a multiplied by 2^n), used for scale_to_multiplier.
func (a I128) Lsh(n uint) I128 {
	var r I128
	r.v.Lsh(&a.v, n)
	return r
}

// BitLen returns the number of bits required to represent |a|.
func (a I128) BitLen() int { return a.v.BitLen() }

// Equal reports value equality.
func (a I128) Equal(b I128) bool { return a.Cmp(b) == 0 }

// QuoRemTruncated returns the quotient and remainder of a/b using
// truncated (towards zero) division, i.e. Go's native integer division
// semantics. Used where callers need to round the quotient themselves
// (quantize.RoundDivI128) rather than take the floor.
func QuoRemTruncated(a, b I128) (q, r I128) {
	var qq, rr big.Int
	qq.QuoRem(&a.v, &b.v, &rr)
	return I128{v: qq}, I128{v: rr}
}
