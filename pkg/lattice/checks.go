// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lattice

import "github.com/gomlx/exceptions"

// CheckIndices enables range checking of the coordinates passed to the Get/Set accessors.
// Out-of-range coordinates then panic, instead of silently accessing another entry.
//
// It defaults to true in builds with the tag "gaugebench_debug", false otherwise.
var CheckIndices = debugBuild

func checkCoordinates(method string, pos, limit, dir, col1, col2, reIm int) {
	if pos < 0 || pos >= limit ||
		dir < 0 || dir >= NDim ||
		col1 < 0 || col1 >= NCol ||
		col2 < 0 || col2 >= NCol ||
		reIm < 0 || reIm >= NReIm {
		exceptions.Panicf("%s(%d, %d, %d, %d, %d): index out of range for limits (%d, %d, %d, %d, %d)",
			method, pos, dir, col1, col2, reIm, limit, NDim, NCol, NCol, NReIm)
	}
}
