// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build amd64 && goexperiment.simd

package lattice

import (
	"simd/archsimd"

	"github.com/gomlx/gaugebench/pkg/core/algebra"
)

func init() {
	if archsimd.X86.AVX2() {
		registerKernel(PathAVX2, sumProdTilesAVX2)
	}
}

func loadLane(l *algebra.Lane) archsimd.Float64x4 {
	return archsimd.LoadFloat64x4Slice(l[:])
}

// sumProdTilesAVX2 does the same operations, in the same order, as sumProdTilesGeneric:
// products are never fused, each entry sums from zero in ascending k, and the full product
// of a direction is completed before it is added to dst.
func sumProdTilesAVX2(dst, lhs, rhs []Tile) {
	zero := archsimd.BroadcastFloat64x4(0)
	var prodRe, prodIm [NCol][NCol]archsimd.Float64x4
	for t := range dst {
		a, b, d := &lhs[t], &rhs[t], &dst[t]
		for mu := range NDim {
			for i := range NCol {
				for j := range NCol {
					re, im := zero, zero
					for k := range NCol {
						ar, ai := loadLane(&a[mu][i][k].Re), loadLane(&a[mu][i][k].Im)
						br, bi := loadLane(&b[mu][k][j].Re), loadLane(&b[mu][k][j].Im)
						re = re.Add(ar.Mul(br).Sub(ai.Mul(bi)))
						im = im.Add(ar.Mul(bi).Add(ai.Mul(br)))
					}
					prodRe[i][j], prodIm[i][j] = re, im
				}
			}
			for i := range NCol {
				for j := range NCol {
					entry := &d[mu][i][j]
					loadLane(&entry.Re).Add(prodRe[i][j]).StoreSlice(entry.Re[:])
					loadLane(&entry.Im).Add(prodIm[i][j]).StoreSlice(entry.Im[:])
				}
			}
		}
	}
}
