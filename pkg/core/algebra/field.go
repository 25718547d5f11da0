// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package algebra defines the small fixed-size numeric types used by the gauge kernels:
// link matrices (SU3), the four links of a site (QuadSU3) and the element types they can hold.
//
// Every operation is generic over the element type D, which only needs to provide Add and Mul
// (see Field). The same code works for a plain real, a complex scalar or a complex number whose
// real and imaginary parts are vector lanes (LaneComplex), which is what the tiled layout uses.
package algebra

// Field is the capability set the link algebra requires from an element type.
//
// Implementations must be value types whose zero value is the additive identity.
type Field[D any] interface {
	Add(D) D
	Mul(D) D
}

// Real is a float64 element.
type Real float64

// Add returns a + b.
func (a Real) Add(b Real) Real { return a + b }

// Mul returns a * b, explicitly rounded so it can't be fused with a following Add.
func (a Real) Mul(b Real) Real { return Real(float64(a * b)) }

// Complex is a complex128 element.
//
// Mul doesn't use the native complex multiplication: it uses the same explicit formula as
// LaneComplex.Mul, so the two agree bit-for-bit on each lane.
type Complex complex128

// Add returns a + b.
func (a Complex) Add(b Complex) Complex { return a + b }

// Mul returns a * b, computed as (ar*br - ai*bi) + (ar*bi + ai*br)i.
func (a Complex) Mul(b Complex) Complex {
	ar, ai := real(a), imag(a)
	br, bi := real(b), imag(b)
	// The explicit float64 conversions force rounding of each product, so the compiler
	// can't contract them into FMAs.
	re := float64(ar*br) - float64(ai*bi)
	im := float64(ar*bi) + float64(ai*br)
	return Complex(complex(re, im))
}

// Compile-time checks.
var (
	_ Field[Real]        = Real(0)
	_ Field[Complex]     = Complex(0)
	_ Field[LaneComplex] = LaneComplex{}
)
