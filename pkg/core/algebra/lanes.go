// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package algebra

// LaneWidth is the number of float64 values packed in one vector register: 4 for the
// 256-bit registers (AVX2) the tiled layout targets.
//
// The portable implementation of Lane works with any width, the AVX2 kernel assumes 4.
const LaneWidth = 4

// Lane holds one float64 per packed lattice site, the Go counterpart of a vector register.
type Lane [LaneWidth]float64

// Add returns the lanewise a + b.
func (a Lane) Add(b Lane) (c Lane) {
	for i := range LaneWidth {
		c[i] = a[i] + b[i]
	}
	return
}

// Sub returns the lanewise a - b.
func (a Lane) Sub(b Lane) (c Lane) {
	for i := range LaneWidth {
		c[i] = a[i] - b[i]
	}
	return
}

// Mul returns the lanewise a * b.
//
// Products are explicitly rounded, so they are never fused with a following Add or Sub.
func (a Lane) Mul(b Lane) (c Lane) {
	for i := range LaneWidth {
		c[i] = float64(a[i] * b[i])
	}
	return
}

// Broadcast returns a Lane with all values set to v.
func Broadcast(v float64) (l Lane) {
	for i := range LaneWidth {
		l[i] = v
	}
	return
}

// LaneComplex is a complex number whose real and imaginary parts are lanes: it represents
// LaneWidth independent complex values, one per packed site.
type LaneComplex struct {
	Re, Im Lane
}

// Add returns the lanewise a + b.
func (a LaneComplex) Add(b LaneComplex) LaneComplex {
	return LaneComplex{Re: a.Re.Add(b.Re), Im: a.Im.Add(b.Im)}
}

// Mul returns the lanewise complex product, with the same operation order as Complex.Mul.
func (a LaneComplex) Mul(b LaneComplex) LaneComplex {
	return LaneComplex{
		Re: a.Re.Mul(b.Re).Sub(a.Im.Mul(b.Im)),
		Im: a.Re.Mul(b.Im).Add(a.Im.Mul(b.Re)),
	}
}

// At returns the complex value stored in the given lane.
func (a LaneComplex) At(lane int) Complex {
	return Complex(complex(a.Re[lane], a.Im[lane]))
}

// SetAt sets the complex value of the given lane.
func (a *LaneComplex) SetAt(lane int, value Complex) {
	a.Re[lane] = real(value)
	a.Im[lane] = imag(value)
}
