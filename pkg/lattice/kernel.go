// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"github.com/gomlx/gaugebench/pkg/support/xsync"
)

// Parallelizer runs tasks in other goroutines when it has workers available.
// It is implemented by workerspool.Pool.
type Parallelizer interface {
	// StartIfAvailable runs task in a separate goroutine and returns true, or returns false
	// without running it, if there are no workers available.
	StartIfAvailable(task func()) bool
}

// MinTilesPerTask is the smallest number of tiles handed to a worker by ParallelSumProd.
var MinTilesPerTask = 256

// SumProd accumulates the tile-wise product of lhs and rhs into c: c[t] += lhs[t] * rhs[t]
// for every tile t.
//
// The three configurations must have the same volume. c may be the same as lhs or rhs:
// each product is completed before it is accumulated.
func (c *TiledConf) SumProd(lhs, rhs *TiledConf) error {
	if err := c.checkSameSize("SumProd", lhs, rhs); err != nil {
		return err
	}
	sumProdTiles(c.tiles, lhs.tiles, rhs.tiles)
	return nil
}

// ParallelSumProd is like SumProd, but splits the tiles in contiguous chunks of at least
// MinTilesPerTask tiles, and runs them in parallel using par. Chunks par doesn't accept are
// run in the calling goroutine.
//
// Tiles are independent, so the results are exactly the same as SumProd's.
func (c *TiledConf) ParallelSumProd(par Parallelizer, lhs, rhs *TiledConf) error {
	if err := c.checkSameSize("ParallelSumProd", lhs, rhs); err != nil {
		return err
	}
	kernel := sumProdTiles
	chunkSize := max(MinTilesPerTask, 1)
	if par == nil || c.tileCount <= chunkSize {
		kernel(c.tiles, lhs.tiles, rhs.tiles)
		return nil
	}

	wg := xsync.NewDynamicWaitGroup()
	for start := 0; start < c.tileCount; start += chunkSize {
		end := min(start+chunkSize, c.tileCount)
		task := func() {
			kernel(c.tiles[start:end], lhs.tiles[start:end], rhs.tiles[start:end])
			wg.Done()
		}
		wg.Add(1)
		if !par.StartIfAvailable(task) {
			task()
		}
	}
	wg.Wait()
	return nil
}

// AddAssign adds other to c, value by value. Both must have the same volume.
func (c *TiledConf) AddAssign(other *TiledConf) error {
	if err := c.checkSameSize("AddAssign", other); err != nil {
		return err
	}
	dst, src := c.buf.Flat, other.buf.Flat
	for i := range dst {
		dst[i] = dst[i].Add(src[i])
	}
	return nil
}

// sumProdTilesGeneric is the portable kernel, using the generic algebra on lanes.
func sumProdTilesGeneric(dst, lhs, rhs []Tile) {
	for t := range dst {
		dst[t].SumProd(&lhs[t], &rhs[t])
	}
}
