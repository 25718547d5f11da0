// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"golang.org/x/exp/constraints"
)

// Number is the constraint of the statistics helpers.
type Number interface {
	constraints.Integer | constraints.Float
}

// Mean of values, 0 if empty.
func Mean[T Number](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// MaxOf returns the largest of values and its position, or (0, -1) if empty.
func MaxOf[T Number](values []T) (largest T, pos int) {
	pos = -1
	for ii, v := range values {
		if pos < 0 || v > largest {
			largest, pos = v, ii
		}
	}
	return
}

// Summary of a sweep.
type Summary struct {
	Count int

	MeanTiledGFlops, MaxTiledGFlops float64
	// BestVol is the volume where the tiled kernel had the largest throughput.
	BestVol int

	// MeanDenseGFlops and MeanSpeedup are 0 if the dense baseline was skipped.
	MeanDenseGFlops, MeanSpeedup float64

	TotalBytes int64
}

// Summarize the results of a sweep.
func Summarize(results []Result) Summary {
	s := Summary{Count: len(results)}
	if len(results) == 0 {
		return s
	}
	tiled := make([]float64, 0, len(results))
	var dense, speedups []float64
	for _, r := range results {
		tiled = append(tiled, r.TiledGFlops)
		if r.DenseGFlops > 0 {
			dense = append(dense, r.DenseGFlops)
			speedups = append(speedups, r.Speedup())
		}
		s.TotalBytes += r.Bytes
	}
	s.MeanTiledGFlops = Mean(tiled)
	var best int
	s.MaxTiledGFlops, best = MaxOf(tiled)
	s.BestVol = results[best].Vol
	s.MeanDenseGFlops = Mean(dense)
	s.MeanSpeedup = Mean(speedups)
	return s
}
