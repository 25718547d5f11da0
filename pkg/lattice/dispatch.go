// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/cpu"
	"k8s.io/klog/v2"
)

// KernelPath identifies an implementation of the multiply-accumulate kernel.
type KernelPath int

const (
	// PathGeneric is the portable implementation, using algebra.Lane loops.
	PathGeneric KernelPath = iota

	// PathAVX2 uses 256-bit AVX2 vectors through simd/archsimd. It is only compiled in with
	// GOEXPERIMENT=simd on amd64, and only available if the CPU supports AVX2.
	PathAVX2
)

// String returns a human-readable name for the path.
func (p KernelPath) String() string {
	switch p {
	case PathGeneric:
		return "generic"
	case PathAVX2:
		return "avx2"
	default:
		return "unknown"
	}
}

// NoSimdEnvVar is the environment variable that, if set to true, forces the generic kernel.
const NoSimdEnvVar = "GAUGEBENCH_NO_SIMD"

type tilesKernelFn func(dst, lhs, rhs []Tile)

var (
	kernels = map[KernelPath]tilesKernelFn{
		PathGeneric: sumProdTilesGeneric,
	}
	currentPath  = PathGeneric
	sumProdTiles = sumProdTilesGeneric
)

// registerKernel is called by the init functions of the accelerated implementations, and
// makes the new path the current one, unless disabled by NoSimdEnvVar.
func registerKernel(path KernelPath, fn tilesKernelFn) {
	kernels[path] = fn
	if NoSimdEnv() {
		klog.V(1).Infof("%s kernel available but disabled by %s", path, NoSimdEnvVar)
		return
	}
	currentPath, sumProdTiles = path, fn
}

// NoSimdEnv returns whether NoSimdEnvVar is set. Any value that doesn't parse as false counts
// as set.
func NoSimdEnv() bool {
	val := os.Getenv(NoSimdEnvVar)
	if val == "" {
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return true
}

// CurrentPath returns the kernel implementation in use.
func CurrentPath() KernelPath { return currentPath }

// AvailablePaths returns the kernel implementations compiled in and supported by the CPU,
// in increasing order.
func AvailablePaths() []KernelPath {
	paths := make([]KernelPath, 0, len(kernels))
	for path := PathGeneric; path <= PathAVX2; path++ {
		if _, found := kernels[path]; found {
			paths = append(paths, path)
		}
	}
	return paths
}

// SetPath selects the kernel implementation. It is not safe to call while kernels are running.
func SetPath(path KernelPath) error {
	fn, found := kernels[path]
	if !found {
		return errors.Errorf("kernel path %q is not available on this build/CPU (available: %v)", path, AvailablePaths())
	}
	currentPath, sumProdTiles = path, fn
	return nil
}

// CPUFeatures returns a short description of the CPU vector features relevant to the kernels.
func CPUFeatures() string {
	var features []string
	add := func(has bool, name string) {
		if has {
			features = append(features, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64":
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
	}
	if len(features) == 0 {
		return "none"
	}
	return strings.Join(features, ",")
}
