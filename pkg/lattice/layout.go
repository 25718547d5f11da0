// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package lattice implements the gauge configurations, the link matrices of every site of a
// 4-dimensional lattice, in two memory layouts:
//
//   - ScalarConf: the canonical layout, a flat float64 array indexed [site][dir][col1][col2][reIm].
//   - TiledConf: the SIMD layout, where LaneWidth consecutive sites are packed in the lanes of
//     one vector, indexed [tile][dir][col1][col2][reIm][lane].
//
// Conversions between the two are pure data movement. The multiply-accumulate kernel
// TiledConf.SumProd works on the tiled layout.
//
// The kernel has a portable implementation and an AVX2 one. The AVX2 kernel is only compiled on
// amd64 with a Go 1.26 (or newer) toolchain and GOEXPERIMENT=simd, which provides simd/archsimd;
// other builds, including the go 1.24 minimum of the module, use the portable kernel only.
//
// Configurations own their memory, taken from a memory.Provider given at construction, and
// must be released with Finalize.
package lattice

import (
	"github.com/gomlx/gaugebench/pkg/core/algebra"
	"github.com/pkg/errors"
)

const (
	// NDim is the number of directions (links) per site.
	NDim = algebra.NDim

	// NCol is the number of colors, link matrices are NCol x NCol.
	NCol = algebra.NCol

	// NReIm is the number of parts of a complex number.
	NReIm = 2

	// SiteSize is the number of scalars stored per site, or of lanes stored per tile.
	SiteSize = NDim * NCol * NCol * NReIm

	// LaneWidth is the number of sites packed in one tile.
	LaneWidth = algebra.LaneWidth
)

// Tile is the content of one tile of a TiledConf: the links of LaneWidth sites.
type Tile = algebra.QuadSU3[algebra.LaneComplex]

var (
	// ErrSize is returned (wrapped) for invalid volumes, or when combining configurations of
	// different volumes.
	ErrSize = errors.New("invalid lattice size")

	// ErrDeviceUnsupported is returned (wrapped) when creating a configuration the kernels
	// would have to run on device memory.
	ErrDeviceUnsupported = errors.New("kernels on device memory are not supported")
)

// Index returns the position of the scalar (site, dir, col1, col2, reIm) in the canonical layout:
// the real/imaginary part varies fastest, the site slowest.
//
// The same formula with site replaced by the tile index gives the position of the lane vector
// in the tiled layout.
func Index(site, dir, col1, col2, reIm int) int {
	return reIm + NReIm*(col2+NCol*(col1+NCol*(dir+NDim*site)))
}

// FlopsPerSite is the number of floating point operations of the multiply-accumulate per site:
// per direction, NCol^3 complex multiply-adds of 7 flops each (4 mul + 3 add/sub, counting
// the accumulation).
const FlopsPerSite = 7 * NCol * NCol * NCol * NDim
