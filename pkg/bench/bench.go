// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package bench times the tiled multiply-accumulate kernel over a sweep of lattice volumes and
// compares it with a dense complex-matrix baseline.
//
// For every volume it reports the throughput in GFlops, counting lattice.FlopsPerSite
// operations per site and iteration, and the value of one lattice point as a checksum.
package bench

import (
	"time"

	"github.com/gomlx/gaugebench/pkg/lattice"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrInterrupted is returned by Run when Config.Interrupt is triggered before the sweep ends.
var ErrInterrupted = errors.New("benchmark interrupted")

// Result of benchmarking one volume.
type Result struct {
	// RunID identifies the sweep the result belongs to.
	RunID uuid.UUID

	Vol, Iterations int

	// Path is the kernel implementation used, and Parallel whether it ran through a Parallelizer.
	Path     lattice.KernelPath
	Parallel bool

	// Bytes of the three tiled configurations.
	Bytes int64

	TiledDuration time.Duration
	TiledGFlops   float64

	// TiledCheck is the complex entry (0, 0) of the first link of site 0 after the iterations.
	TiledCheck complex128

	// Dense* are left zero if the dense baseline was skipped.
	DenseDuration time.Duration
	DenseGFlops   float64
	DenseCheck    complex128
}

// Speedup of the tiled kernel over the dense baseline, or 0 if the baseline was skipped.
func (r *Result) Speedup() float64 {
	if r.DenseGFlops == 0 {
		return 0
	}
	return r.TiledGFlops / r.DenseGFlops
}

// GFlops returns the throughput of iterations multiply-accumulates over vol sites taking elapsed.
func GFlops(vol, iterations int, elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(lattice.FlopsPerSite) * float64(iterations) * float64(vol) / 1e9 / seconds
}

// ExpectedCheck returns the checksum both kernels should report when every value starts as fill:
// each iteration adds NCol·(fill + fill·i)² = NCol·2·fill²·i to the entry.
func ExpectedCheck(fill float64, iterations int) complex128 {
	perIteration := float64(lattice.NCol) * 2 * fill * fill
	return complex(fill, fill+float64(iterations)*perIteration)
}

// RunVolume benchmarks one volume, which must be a multiple of lattice.LaneWidth.
// All memory taken from the providers is released before returning, also on errors.
func RunVolume(cfg Config, vol int) (result Result, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	result, err = runTiled(&cfg, vol)
	if err != nil || cfg.SkipDense {
		return
	}
	result.DenseDuration, result.DenseCheck, err = runDense(&cfg, vol)
	if err != nil {
		return
	}
	result.DenseGFlops = GFlops(vol, cfg.Iterations, result.DenseDuration)
	return
}

// finalizer is implemented by the configurations.
type finalizer interface {
	Finalize() error
}

// finalizeInto finalizes f, and stores its error in *err if there wasn't an error already.
func finalizeInto(f finalizer, err *error) {
	if finalizeErr := f.Finalize(); finalizeErr != nil && *err == nil {
		*err = finalizeErr
	}
}

func runTiled(cfg *Config, vol int) (result Result, err error) {
	conf, err := lattice.NewScalarConf(cfg.scalarProvider(), vol)
	if err != nil {
		return
	}
	defer finalizeInto(conf, &err)
	conf.Fill(cfg.Fill)

	var tiled [3]*lattice.TiledConf
	for ii := range tiled {
		tiled[ii], err = lattice.NewTiledConfFromScalar(cfg.Provider, conf)
		if err != nil {
			return
		}
		defer finalizeInto(tiled[ii], &err)
	}
	dest, lhs, rhs := tiled[0], tiled[1], tiled[2]

	start := time.Now()
	for range cfg.Iterations {
		if cfg.Parallelizer != nil {
			err = dest.ParallelSumProd(cfg.Parallelizer, lhs, rhs)
		} else {
			err = dest.SumProd(lhs, rhs)
		}
		if err != nil {
			return
		}
	}
	elapsed := time.Since(start)

	if err = dest.ToScalar(conf); err != nil {
		return
	}
	result = Result{
		Vol:           vol,
		Iterations:    cfg.Iterations,
		Path:          lattice.CurrentPath(),
		Parallel:      cfg.Parallelizer != nil,
		Bytes:         int64(len(tiled)) * int64(vol) * lattice.SiteSize * 8,
		TiledDuration: elapsed,
		TiledGFlops:   GFlops(vol, cfg.Iterations, elapsed),
		TiledCheck:    complex(conf.Get(0, 0, 0, 0, 0), conf.Get(0, 0, 0, 0, 1)),
	}
	klog.V(1).Infof("vol=%d: tiled kernel (%s) %d iterations in %s, %.3f GFlops, check=%v",
		vol, result.Path, cfg.Iterations, elapsed, result.TiledGFlops, result.TiledCheck)
	return
}

func runDense(cfg *Config, vol int) (elapsed time.Duration, check complex128, err error) {
	value := complex(cfg.Fill, cfg.Fill)
	var dense [3]*DenseConf
	for ii := range dense {
		dense[ii], err = NewDenseConf(cfg.Provider, vol, value)
		if err != nil {
			return
		}
		defer finalizeInto(dense[ii], &err)
	}
	a, b, c := dense[0], dense[1], dense[2]

	start := time.Now()
	for range cfg.Iterations {
		if err = a.SumProd(b, c); err != nil {
			return
		}
	}
	elapsed = time.Since(start)
	check = a.At(0, 0, 0, 0)
	klog.V(1).Infof("vol=%d: dense baseline %d iterations in %s, %.3f GFlops, check=%v",
		vol, cfg.Iterations, elapsed, GFlops(vol, cfg.Iterations, elapsed), check)
	return
}

// Run benchmarks every volume of the configuration, in increasing order, calling onResult
// (if not nil) after each one. It returns the results of the volumes completed.
//
// If cfg.Interrupt is triggered, it stops before the next volume and returns ErrInterrupted
// along with the results so far.
func Run(cfg Config, onResult func(Result)) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.New()
	klog.V(1).Infof("benchmark run %s: volumes 2^%d to 2^%d, %d iterations, kernel %s",
		runID, cfg.MinVolLog2, cfg.MaxVolLog2, cfg.Iterations, lattice.CurrentPath())
	vols := cfg.Volumes()
	results := make([]Result, 0, len(vols))
	for _, vol := range vols {
		if cfg.Interrupt != nil && cfg.Interrupt.Test() {
			return results, errors.Wrapf(ErrInterrupted, "after %d of %d volumes", len(results), len(vols))
		}
		result, err := RunVolume(cfg, vol)
		if err != nil {
			return results, errors.WithMessagef(err, "benchmarking vol=%d", vol)
		}
		result.RunID = runID
		results = append(results, result)
		if onResult != nil {
			onResult(result)
		}
	}
	return results, nil
}
