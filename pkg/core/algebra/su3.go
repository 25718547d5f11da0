// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package algebra

const (
	// NDim is the number of spacetime directions, one link per direction.
	NDim = 4

	// NCol is the number of colors: link matrices are NCol x NCol.
	NCol = 3
)

// Color is a vector of NCol elements, a row of a link matrix.
type Color[D Field[D]] [NCol]D

// SU3 is a NCol x NCol link matrix, indexed [row][column].
type SU3[D Field[D]] [NCol]Color[D]

// QuadSU3 holds the NDim link matrices attached to one lattice site.
type QuadSU3[D Field[D]] [NDim]SU3[D]

// Mul returns the matrix product a * b.
//
// Each entry is accumulated starting from the zero value, adding the terms in ascending order
// of the contracted index. The order is fixed because changing it changes the rounding.
func (a *SU3[D]) Mul(b *SU3[D]) (c SU3[D]) {
	for i := range NCol {
		for j := range NCol {
			var sum D
			for k := range NCol {
				sum = sum.Add(a[i][k].Mul(b[k][j]))
			}
			c[i][j] = sum
		}
	}
	return
}

// AddAssign adds b to a elementwise.
func (a *SU3[D]) AddAssign(b *SU3[D]) {
	for i := range NCol {
		for j := range NCol {
			a[i][j] = a[i][j].Add(b[i][j])
		}
	}
}

// Fill sets all entries to value.
func (a *SU3[D]) Fill(value D) {
	for i := range NCol {
		for j := range NCol {
			a[i][j] = value
		}
	}
}

// Mul returns the product of a and b, direction by direction.
func (a *QuadSU3[D]) Mul(b *QuadSU3[D]) (c QuadSU3[D]) {
	for mu := range NDim {
		c[mu] = a[mu].Mul(&b[mu])
	}
	return
}

// AddAssign adds b to a, direction by direction.
func (a *QuadSU3[D]) AddAssign(b *QuadSU3[D]) {
	for mu := range NDim {
		a[mu].AddAssign(&b[mu])
	}
}

// SumProd accumulates the product of b and c into a: a += b * c.
//
// The product is completed before being added, per direction.
func (a *QuadSU3[D]) SumProd(b, c *QuadSU3[D]) {
	for mu := range NDim {
		prod := b[mu].Mul(&c[mu])
		a[mu].AddAssign(&prod)
	}
}

// Fill sets all entries of all directions to value.
func (a *QuadSU3[D]) Fill(value D) {
	for mu := range NDim {
		a[mu].Fill(value)
	}
}
