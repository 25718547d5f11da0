// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/gomlx/gaugebench/pkg/core/algebra"
	"github.com/gomlx/gaugebench/pkg/core/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/cpu"
)

func newRandomScalar(t *testing.T, p memory.Provider, vol int, seed uint64) *ScalarConf {
	s, err := NewScalarConf(p, vol)
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(seed, seed+1))
	flat := s.Flat()
	for i := range flat {
		flat[i] = rng.NormFloat64()
	}
	return s
}

func TestIndex(t *testing.T) {
	assert.Equal(t, 0, Index(0, 0, 0, 0, 0))
	assert.Equal(t, 1, Index(0, 0, 0, 0, 1))
	assert.Equal(t, 2, Index(0, 0, 0, 1, 0))
	assert.Equal(t, 6, Index(0, 0, 1, 0, 0))
	assert.Equal(t, 18, Index(0, 1, 0, 0, 0))
	assert.Equal(t, SiteSize, Index(1, 0, 0, 0, 0))
	assert.Equal(t, SiteSize-1, Index(0, NDim-1, NCol-1, NCol-1, NReIm-1))
	assert.Equal(t, 72, SiteSize)
	assert.Equal(t, 756, FlopsPerSite)
}

func TestScalarConf(t *testing.T) {
	p := memory.MustNewHostProvider()
	s, err := NewScalarConf(p, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Vol())
	assert.Len(t, s.Flat(), 3*SiteSize)
	for _, v := range s.Flat() {
		require.Zero(t, v)
	}

	s.Set(2, 3, 1, 2, 1, 7.5)
	assert.Equal(t, 7.5, s.Get(2, 3, 1, 2, 1))
	assert.Equal(t, 7.5, s.Flat()[Index(2, 3, 1, 2, 1)])

	s.Fill(1.25)
	for _, v := range s.Flat() {
		require.Equal(t, 1.25, v)
	}

	var site [SiteSize]float64
	for i := range site {
		site[i] = float64(i)
	}
	s.FillSite(&site)
	assert.Equal(t, float64(Index(0, 1, 2, 0, 1)), s.Get(2, 1, 2, 0, 1))

	other, err := NewScalarConf(p, 3)
	require.NoError(t, err)
	assert.False(t, s.Equal(other))
	other.FillSite(&site)
	assert.True(t, s.Equal(other))

	require.NoError(t, s.Finalize())
	require.NoError(t, other.Finalize())
	err = s.Finalize()
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrInvalidRelease))
	assert.Equal(t, 0, p.Stats().LiveBlocks)

	_, err = NewScalarConf(p, -1)
	assert.True(t, errors.Is(err, ErrSize))
}

func TestScalarConfAllocationFailure(t *testing.T) {
	p := memory.MustNewHostProvider(memory.WithCapacity(SiteSize * 8))
	_, err := NewScalarConf(p, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrAllocation))
}

func TestRoundTrip(t *testing.T) {
	p := memory.MustNewHostProvider()
	for _, vol := range []int{0, LaneWidth, 3 * LaneWidth, 64} {
		s := newRandomScalar(t, p, vol, uint64(vol))
		tiled, err := NewTiledConfFromScalar(p, s)
		require.NoError(t, err)
		assert.Equal(t, vol, tiled.Vol())
		assert.Equal(t, vol/LaneWidth, tiled.TileCount())
		assert.Len(t, tiled.Lanes(), tiled.TileCount()*SiteSize)
		assert.Len(t, tiled.Tiles(), tiled.TileCount())

		// Lane placement.
		for site := range vol {
			require.Equal(t, s.Get(site, 2, 1, 0, 1), tiled.Site(site, 2, 1, 0, 1))
			require.Equal(t, s.Get(site, 0, 2, 2, 0), tiled.Get(site/LaneWidth, 0, 2, 2, 0)[site%LaneWidth])
		}

		back, err := NewScalarConf(p, vol)
		require.NoError(t, err)
		require.NoError(t, tiled.ToScalar(back))
		assert.True(t, s.Equal(back), "round trip changed values for vol=%d", vol)

		require.NoError(t, s.Finalize())
		require.NoError(t, back.Finalize())
		require.NoError(t, tiled.Finalize())
	}
	assert.Equal(t, 0, p.Stats().LiveBlocks)
}

func TestRoundTripSpecialValues(t *testing.T) {
	p := memory.MustNewHostProvider()
	s, err := NewScalarConf(p, LaneWidth)
	require.NoError(t, err)
	specials := []float64{math.NaN(), math.Inf(1), math.Inf(-1), math.Copysign(0, -1), math.SmallestNonzeroFloat64}
	flat := s.Flat()
	for i := range flat {
		flat[i] = specials[i%len(specials)]
	}
	tiled, err := NewTiledConfFromScalar(p, s)
	require.NoError(t, err)
	back, err := NewScalarConf(p, LaneWidth)
	require.NoError(t, err)
	require.NoError(t, tiled.ToScalar(back))
	assert.True(t, s.Equal(back))
}

func TestTiledConfSize(t *testing.T) {
	p := memory.MustNewHostProvider()
	for _, vol := range []int{1, 3, 5, LaneWidth + 2, -LaneWidth} {
		c, err := NewTiledConf(p, vol)
		require.Error(t, err, "vol=%d", vol)
		assert.Nil(t, c)
		assert.True(t, errors.Is(err, ErrSize), "vol=%d: %v", vol, err)
	}
	assert.Zero(t, p.Stats().Allocations, "nothing should be allocated for invalid volumes")

	s, err := NewScalarConf(p, 5)
	require.NoError(t, err)
	_, err = NewTiledConfFromScalar(p, s)
	assert.True(t, errors.Is(err, ErrSize))

	c, err := NewTiledConf(p, 8)
	require.NoError(t, err)
	assert.True(t, errors.Is(c.FromScalar(s), ErrSize))
	assert.True(t, errors.Is(c.ToScalar(s), ErrSize))
	other, err := NewTiledConf(p, 4)
	require.NoError(t, err)
	assert.True(t, errors.Is(c.AddAssign(other), ErrSize))
	assert.True(t, errors.Is(c.SumProd(c, other), ErrSize))
	assert.True(t, errors.Is(c.ParallelSumProd(nil, other, c), ErrSize))
}

func TestTiledConfDevice(t *testing.T) {
	device := memory.MustNewDeviceProvider()
	_, err := NewTiledConf(device, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeviceUnsupported))

	// Scalar configurations can live on device memory.
	s, err := NewScalarConf(device, 8)
	require.NoError(t, err)
	s.Fill(2)
	tiled, err := NewTiledConfFromScalar(memory.MustNewHostProvider(), s)
	require.NoError(t, err)
	assert.Equal(t, 2.0, tiled.Site(7, 3, 2, 2, 1))
	require.NoError(t, s.Finalize())
	require.NoError(t, tiled.Finalize())
}

func TestTiledConfFinalize(t *testing.T) {
	p := memory.MustNewHostProvider()
	c, err := NewTiledConf(p, 8)
	require.NoError(t, err)
	require.NoError(t, c.Finalize())
	assert.Nil(t, c.Tiles())
	assert.Nil(t, c.Lanes())
	err = c.Finalize()
	assert.True(t, errors.Is(err, memory.ErrInvalidRelease))
	assert.Equal(t, int64(1), p.Stats().Releases)
}

// onesConf returns a tiled configuration where every entry is the complex value (value, 0).
func onesConf(t *testing.T, p memory.Provider, vol int, value float64) *TiledConf {
	s, err := NewScalarConf(p, vol)
	require.NoError(t, err)
	defer func() { require.NoError(t, s.Finalize()) }()
	for site := range vol {
		for dir := range NDim {
			for col1 := range NCol {
				for col2 := range NCol {
					s.Set(site, dir, col1, col2, 0, value)
				}
			}
		}
	}
	c, err := NewTiledConfFromScalar(p, s)
	require.NoError(t, err)
	return c
}

func requireAllEntries(t *testing.T, c *TiledConf, re, im float64) {
	for _, tile := range c.Tiles() {
		for dir := range NDim {
			for col1 := range NCol {
				for col2 := range NCol {
					entry := tile[dir][col1][col2]
					require.Equal(t, algebra.Broadcast(re), entry.Re)
					require.Equal(t, algebra.Broadcast(im), entry.Im)
				}
			}
		}
	}
}

func forEachPath(t *testing.T, fn func(t *testing.T)) {
	original := CurrentPath()
	defer func() { require.NoError(t, SetPath(original)) }()
	for _, path := range AvailablePaths() {
		require.NoError(t, SetPath(path))
		t.Run(path.String(), fn)
	}
}

func TestSumProd(t *testing.T) {
	forEachPath(t, func(t *testing.T) {
		p := memory.MustNewHostProvider()
		a := onesConf(t, p, 2*LaneWidth, 1)
		b := onesConf(t, p, 2*LaneWidth, 1)
		dest, err := NewTiledConf(p, 2*LaneWidth)
		require.NoError(t, err)

		require.NoError(t, dest.SumProd(a, b))
		requireAllEntries(t, dest, 3, 0)
		require.NoError(t, dest.SumProd(a, b))
		requireAllEntries(t, dest, 6, 0)

		// Inputs are not modified.
		requireAllEntries(t, a, 1, 0)
		requireAllEntries(t, b, 1, 0)
	})
}

func TestSumProdAliased(t *testing.T) {
	forEachPath(t, func(t *testing.T) {
		p := memory.MustNewHostProvider()
		// a += a * a, with all ones: 1 + 3 = 4.
		a := onesConf(t, p, LaneWidth, 1)
		require.NoError(t, a.SumProd(a, a))
		requireAllEntries(t, a, 4, 0)
	})
}

func TestSumProdEmpty(t *testing.T) {
	p := memory.MustNewHostProvider()
	a, err := NewTiledConf(p, 0)
	require.NoError(t, err)
	assert.Zero(t, a.TileCount())
	assert.Empty(t, a.Tiles())
	require.NoError(t, a.SumProd(a, a))
	require.NoError(t, a.ParallelSumProd(nil, a, a))
	require.NoError(t, a.AddAssign(a))
	a.Zero()
	s, err := NewScalarConf(p, 0)
	require.NoError(t, err)
	require.NoError(t, a.ToScalar(s))
	require.NoError(t, a.Finalize())
	require.NoError(t, s.Finalize())
}

func TestAddAssign(t *testing.T) {
	p := memory.MustNewHostProvider()
	s := newRandomScalar(t, p, 16, 42)
	x, err := NewTiledConfFromScalar(p, s)
	require.NoError(t, err)
	zero, err := NewTiledConf(p, 16)
	require.NoError(t, err)

	require.NoError(t, x.AddAssign(zero))
	back, err := NewScalarConf(p, 16)
	require.NoError(t, err)
	require.NoError(t, x.ToScalar(back))
	assert.True(t, s.Equal(back))

	// x += x doubles every value.
	require.NoError(t, x.AddAssign(x))
	require.NoError(t, x.ToScalar(back))
	for i, v := range back.Flat() {
		require.Equal(t, 2*s.Flat()[i], v)
	}
}

// TestReplicatedSites checks that tiles whose lanes hold the same site values keep holding
// the same values after the kernel, and that they match the scalar algebra on one site.
func TestReplicatedSites(t *testing.T) {
	forEachPath(t, func(t *testing.T) {
		p := memory.MustNewHostProvider()
		const vol = 3 * LaneWidth
		rng := rand.New(rand.NewPCG(1, 2))
		var aSite, bSite, cSite [SiteSize]float64
		for i := range SiteSize {
			aSite[i], bSite[i], cSite[i] = rng.Float64(), rng.Float64(), rng.Float64()
		}
		confs := make([]*TiledConf, 3)
		for ii, site := range []*[SiteSize]float64{&aSite, &bSite, &cSite} {
			s, err := NewScalarConf(p, vol)
			require.NoError(t, err)
			s.FillSite(site)
			confs[ii], err = NewTiledConfFromScalar(p, s)
			require.NoError(t, err)
			require.NoError(t, s.Finalize())
		}
		dest, lhs, rhs := confs[2], confs[0], confs[1]
		require.NoError(t, dest.SumProd(lhs, rhs))

		result, err := NewScalarConf(p, vol)
		require.NoError(t, err)
		require.NoError(t, dest.ToScalar(result))

		// Reference: the same computation on a single site with complex scalars.
		toQuad := func(site *[SiteSize]float64) (q algebra.QuadSU3[algebra.Complex]) {
			for dir := range NDim {
				for col1 := range NCol {
					for col2 := range NCol {
						re, im := site[Index(0, dir, col1, col2, 0)], site[Index(0, dir, col1, col2, 1)]
						q[dir][col1][col2] = algebra.Complex(complex(re, im))
					}
				}
			}
			return
		}
		a, b, want := toQuad(&aSite), toQuad(&bSite), toQuad(&cSite)
		want.SumProd(&a, &b)

		for site := range vol {
			for dir := range NDim {
				for col1 := range NCol {
					for col2 := range NCol {
						w := complex128(want[dir][col1][col2])
						require.Equal(t, math.Float64bits(real(w)), math.Float64bits(result.Get(site, dir, col1, col2, 0)))
						require.Equal(t, math.Float64bits(imag(w)), math.Float64bits(result.Get(site, dir, col1, col2, 1)))
					}
				}
			}
		}
	})
}

func TestKernelPathsAgree(t *testing.T) {
	paths := AvailablePaths()
	require.Contains(t, paths, PathGeneric)
	if len(paths) == 1 {
		t.Skipf("only the generic kernel is available (cpu features: %s)", CPUFeatures())
	}
	p := memory.MustNewHostProvider()
	const vol = 32
	a, b, c := newRandomScalar(t, p, vol, 1), newRandomScalar(t, p, vol, 2), newRandomScalar(t, p, vol, 3)
	var results []*ScalarConf
	original := CurrentPath()
	defer func() { require.NoError(t, SetPath(original)) }()
	for _, path := range paths {
		require.NoError(t, SetPath(path))
		lhs, err := NewTiledConfFromScalar(p, a)
		require.NoError(t, err)
		rhs, err := NewTiledConfFromScalar(p, b)
		require.NoError(t, err)
		dest, err := NewTiledConfFromScalar(p, c)
		require.NoError(t, err)
		require.NoError(t, dest.SumProd(lhs, rhs))
		require.NoError(t, dest.SumProd(dest, rhs))
		result, err := NewScalarConf(p, vol)
		require.NoError(t, err)
		require.NoError(t, dest.ToScalar(result))
		results = append(results, result)
	}
	for ii, result := range results[1:] {
		assert.True(t, results[0].Equal(result), "path %s differs from %s", paths[ii+1], paths[0])
	}
}

func TestAvailablePaths(t *testing.T) {
	paths := AvailablePaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, PathGeneric, paths[0], "the portable kernel is always available")
	for _, path := range paths {
		if path == PathAVX2 {
			assert.True(t, cpu.X86.HasAVX2, "AVX2 kernel registered on a CPU without AVX2")
		}
	}
	if !NoSimdEnv() {
		assert.Equal(t, paths[len(paths)-1], CurrentPath(), "the fastest available kernel is selected at init")
	}
}

func TestSetPath(t *testing.T) {
	assert.Equal(t, "generic", PathGeneric.String())
	assert.Equal(t, "avx2", PathAVX2.String())
	assert.Equal(t, "unknown", KernelPath(100).String())
	require.Error(t, SetPath(KernelPath(100)))
	assert.NotEmpty(t, CPUFeatures())

	t.Setenv(NoSimdEnvVar, "")
	assert.False(t, NoSimdEnv())
	t.Setenv(NoSimdEnvVar, "false")
	assert.False(t, NoSimdEnv())
	t.Setenv(NoSimdEnvVar, "1")
	assert.True(t, NoSimdEnv())
	t.Setenv(NoSimdEnvVar, "yes")
	assert.True(t, NoSimdEnv())
}

// testParallelizer runs tasks in new goroutines, up to a limit, and counts them.
type testParallelizer struct {
	mu              sync.Mutex
	started, budget int
}

func (p *testParallelizer) StartIfAvailable(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started >= p.budget {
		return false
	}
	p.started++
	go task()
	return true
}

func TestParallelSumProd(t *testing.T) {
	defer func(previous int) { MinTilesPerTask = previous }(MinTilesPerTask)
	MinTilesPerTask = 2

	p := memory.MustNewHostProvider()
	const vol = 11 * LaneWidth
	a, b, c := newRandomScalar(t, p, vol, 10), newRandomScalar(t, p, vol, 20), newRandomScalar(t, p, vol, 30)
	lhs, err := NewTiledConfFromScalar(p, a)
	require.NoError(t, err)
	rhs, err := NewTiledConfFromScalar(p, b)
	require.NoError(t, err)

	sequential, err := NewTiledConfFromScalar(p, c)
	require.NoError(t, err)
	require.NoError(t, sequential.SumProd(lhs, rhs))
	want, err := NewScalarConf(p, vol)
	require.NoError(t, err)
	require.NoError(t, sequential.ToScalar(want))

	for _, budget := range []int{0, 1, 3, 100} {
		par := &testParallelizer{budget: budget}
		dest, err := NewTiledConfFromScalar(p, c)
		require.NoError(t, err)
		require.NoError(t, dest.ParallelSumProd(par, lhs, rhs))
		got, err := NewScalarConf(p, vol)
		require.NoError(t, err)
		require.NoError(t, dest.ToScalar(got))
		assert.True(t, want.Equal(got), "budget=%d", budget)
		assert.Equal(t, min(budget, 6), par.started, "budget=%d", budget)
	}
}

func TestCheckIndices(t *testing.T) {
	defer func(previous bool) { CheckIndices = previous }(CheckIndices)
	CheckIndices = true
	p := memory.MustNewHostProvider()
	s, err := NewScalarConf(p, 4)
	require.NoError(t, err)
	c, err := NewTiledConf(p, 4)
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.Set(3, 3, 2, 2, 1, 1) })
	assert.Panics(t, func() { s.Get(4, 0, 0, 0, 0) })
	assert.Panics(t, func() { s.Get(0, 4, 0, 0, 0) })
	assert.Panics(t, func() { s.Set(0, 0, 3, 0, 0, 1) })
	assert.Panics(t, func() { s.Get(0, 0, 0, -1, 0) })
	assert.Panics(t, func() { s.Get(0, 0, 0, 0, 2) })
	assert.NotPanics(t, func() { c.Set(0, 3, 2, 2, 1, algebra.Lane{}) })
	assert.Panics(t, func() { c.Get(1, 0, 0, 0, 0) })
	assert.Panics(t, func() { c.Site(4, 0, 0, 0, 0) })
}

func BenchmarkSumProd(b *testing.B) {
	defer func(original KernelPath) { _ = SetPath(original) }(CurrentPath())
	p := memory.MustNewHostProvider()
	for _, vol := range []int{1 << 8, 1 << 14} {
		confs := make([]*TiledConf, 3)
		for ii := range confs {
			var err error
			confs[ii], err = NewTiledConf(p, vol)
			require.NoError(b, err)
		}
		for _, path := range AvailablePaths() {
			require.NoError(b, SetPath(path))
			b.Run(fmt.Sprintf("vol=%d/%s", vol, path), func(b *testing.B) {
				for b.Loop() {
					_ = confs[0].SumProd(confs[1], confs[2])
				}
				b.ReportMetric(float64(FlopsPerSite)*float64(vol)*float64(b.N)/1e9/b.Elapsed().Seconds(), "GFlops")
			})
		}
		for _, c := range confs {
			require.NoError(b, c.Finalize())
		}
	}
}
