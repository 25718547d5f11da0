// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"github.com/gomlx/gaugebench/pkg/core/memory"
	"github.com/gomlx/gaugebench/pkg/lattice"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
)

// denseMatrixSize is the number of complex entries of one link matrix.
const denseMatrixSize = lattice.NCol * lattice.NCol

// DenseConf holds the links of every site as generic dense complex matrices, laid out
// [site][dir] with each matrix row-major. It is the baseline the tiled kernel is compared to.
type DenseConf struct {
	vol int
	buf *memory.Buffer[complex128]
}

// NewDenseConf allocates a dense configuration of vol sites with every entry set to value.
func NewDenseConf(p memory.Provider, vol int, value complex128) (*DenseConf, error) {
	if vol < 0 {
		return nil, errors.Wrapf(lattice.ErrSize, "NewDenseConf(vol=%d)", vol)
	}
	buf, err := memory.Provide[complex128](p, vol*lattice.NDim*denseMatrixSize)
	if err != nil {
		return nil, errors.WithMessagef(err, "NewDenseConf(vol=%d)", vol)
	}
	for i := range buf.Flat {
		buf.Flat[i] = value
	}
	return &DenseConf{vol: vol, buf: buf}, nil
}

// Vol returns the number of sites.
func (c *DenseConf) Vol() int { return c.vol }

// Matrix returns the link matrix of site and direction, sharing the configuration's memory.
func (c *DenseConf) Matrix(site, dir int) cblas128.General {
	offset := (site*lattice.NDim + dir) * denseMatrixSize
	return cblas128.General{
		Rows:   lattice.NCol,
		Cols:   lattice.NCol,
		Stride: lattice.NCol,
		Data:   c.buf.Flat[offset : offset+denseMatrixSize : offset+denseMatrixSize],
	}
}

// At returns the entry (col1, col2) of the link matrix of site and direction.
func (c *DenseConf) At(site, dir, col1, col2 int) complex128 {
	return c.buf.Flat[(site*lattice.NDim+dir)*denseMatrixSize+col1*lattice.NCol+col2]
}

// SumProd accumulates c += lhs * rhs, matrix by matrix, using a general matrix multiplication.
// lhs and rhs must not be c.
func (c *DenseConf) SumProd(lhs, rhs *DenseConf) error {
	if lhs.vol != c.vol || rhs.vol != c.vol {
		return errors.Wrapf(lattice.ErrSize, "DenseConf.SumProd(): volumes differ, %d, %d and %d", c.vol, lhs.vol, rhs.vol)
	}
	for site := range c.vol {
		for dir := range lattice.NDim {
			cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, lhs.Matrix(site, dir), rhs.Matrix(site, dir), 1, c.Matrix(site, dir))
		}
	}
	return nil
}

// Finalize releases the configuration's memory.
func (c *DenseConf) Finalize() error {
	if err := c.buf.Finalize(); err != nil {
		return errors.WithMessage(err, "DenseConf.Finalize()")
	}
	return nil
}
