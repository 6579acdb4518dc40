// Package field embeds the signed integers the tensor kernel computes with
// into the scalar field the proving-system backend operates over. The
// embedding is the one spec.md §4.4 specifies for lookup tables and §6
// specifies for witness cells: a non-negative integer maps to itself, a
// negative integer x maps to p-|x| (equivalently -1 * |x| in field
// arithmetic), where p is the field's modulus.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkmlgo/circuit/pkg/ints"
)

// Elem is a single element of the bn254 scalar field. This is the field the
// backend's constraint system is defined over; the core never performs
// elliptic-curve operations, only field arithmetic, so only fr.Element is
// imported here (not the curve group types).
type Elem = fr.Element

// FromSignedInt embeds a signed I128 into the field using the sign-flip
// convention: non-negative integers map to themselves, negative integers
// map to their field-negation. This is the "signed integer embedding"
// spec.md §4.4 requires table rows and witness cells to use.
func FromSignedInt(x ints.I128) Elem {
	var e Elem
	e.SetBigInt(x.Abs().BigInt())
	if x.Sign() < 0 {
		e.Neg(&e)
	}
	return e
}

// ToSignedInt recovers the signed integer a field element represents,
// given a bound on the absolute value it could hold (the lookup bit
// window, or a tensor's known scale range). Values whose unsigned
// representative exceeds half the field modulus are interpreted as
// negative (p - e). Bound is advisory: if the recovered magnitude exceeds
// bound, ok is false, signalling the caller asked for an out-of-window
// decode.
func ToSignedInt(e Elem, bound ints.I128) (value ints.I128, ok bool) {
	var neg Elem
	neg.Neg(&e)

	var big1, big2 big.Int
	e.BigInt(&big1)
	neg.BigInt(&big2)
	asPositive := ints.FromBigInt(&big1)
	asNegative := ints.FromBigInt(&big2).Neg()

	if asPositive.Cmp(bound) <= 0 {
		return asPositive, true
	}
	if asNegative.Abs().Cmp(bound) <= 0 {
		return asNegative, true
	}
	return ints.Zero(), false
}

// Equal reports whether two field elements hold the same value.
func Equal(a, b Elem) bool { return a.Equal(&b) }
