// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"github.com/gomlx/gaugebench/pkg/core/memory"
	"github.com/gomlx/gaugebench/pkg/lattice"
	"github.com/gomlx/gaugebench/pkg/support/xsync"
	"github.com/pkg/errors"
)

// MaxVolLog2 is the largest volume exponent accepted by Config.Validate.
const MaxVolLog2 = 26

// Config of a benchmark sweep.
type Config struct {
	// MinVolLog2 and MaxVolLog2 define the (inclusive) range of volumes 2^k benchmarked.
	MinVolLog2, MaxVolLog2 int

	// Iterations of the multiply-accumulate timed per volume.
	Iterations int

	// Fill is the value of every scalar of the initial configurations. The dense baseline uses
	// the complex value Fill + Fill·i for every matrix entry.
	Fill float64

	// Provider of the memory of the tiled configurations and of the dense baseline.
	// It must be a host provider.
	Provider memory.Provider

	// ScalarProvider of the memory of the scalar configurations. If nil, Provider is used.
	ScalarProvider memory.Provider

	// Parallelizer, if not nil, is used to run the kernel in parallel over tiles.
	Parallelizer lattice.Parallelizer

	// SkipDense skips the dense-matrix baseline.
	SkipDense bool

	// Interrupt, if not nil, stops Run before the next volume once triggered.
	Interrupt *xsync.Latch
}

// DefaultConfig returns the configuration of the reference sweep: volumes 2^4 to 2^19,
// 100 iterations, all values 1.1, memory from provider.
func DefaultConfig(provider memory.Provider) Config {
	return Config{
		MinVolLog2: 4,
		MaxVolLog2: 19,
		Iterations: 100,
		Fill:       1.1,
		Provider:   provider,
	}
}

// Validate returns an error if the configuration can't be run.
func (cfg *Config) Validate() error {
	minLog2 := 0
	for 1<<minLog2 < lattice.LaneWidth {
		minLog2++
	}
	if cfg.MinVolLog2 < minLog2 {
		return errors.Errorf("MinVolLog2=%d: volumes must be at least the lane width %d (MinVolLog2 >= %d)",
			cfg.MinVolLog2, lattice.LaneWidth, minLog2)
	}
	if cfg.MaxVolLog2 < cfg.MinVolLog2 || cfg.MaxVolLog2 > MaxVolLog2 {
		return errors.Errorf("MaxVolLog2=%d: must be in the range [MinVolLog2=%d, %d]",
			cfg.MaxVolLog2, cfg.MinVolLog2, MaxVolLog2)
	}
	if cfg.Iterations <= 0 {
		return errors.Errorf("Iterations=%d: must be > 0", cfg.Iterations)
	}
	if cfg.Provider == nil {
		return errors.New("Provider must be set")
	}
	if cfg.Provider.Location() != memory.Host {
		return errors.Wrapf(lattice.ErrDeviceUnsupported, "Provider %q is on %s, the kernels need host memory",
			cfg.Provider.Name(), cfg.Provider.Location())
	}
	return nil
}

func (cfg *Config) scalarProvider() memory.Provider {
	if cfg.ScalarProvider != nil {
		return cfg.ScalarProvider
	}
	return cfg.Provider
}

// Volumes returns the volumes of the sweep, in increasing order.
func (cfg *Config) Volumes() []int {
	vols := make([]int, 0, cfg.MaxVolLog2-cfg.MinVolLog2+1)
	for k := cfg.MinVolLog2; k <= cfg.MaxVolLog2; k++ {
		vols = append(vols, 1<<k)
	}
	return vols
}
