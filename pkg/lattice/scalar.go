// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"math"

	"github.com/gomlx/gaugebench/pkg/core/memory"
	"github.com/pkg/errors"
)

// ScalarConf is a gauge configuration in the canonical layout: one float64 per
// (site, direction, col1, col2, reIm), positioned by Index.
//
// It can live on any memory.Provider, including device ones.
type ScalarConf struct {
	vol int
	buf *memory.Buffer[float64]
}

// NewScalarConf allocates a zeroed configuration of vol sites from the provider.
//
// Allocation errors are returned unchanged in meaning: they match memory.ErrAllocation.
func NewScalarConf(p memory.Provider, vol int) (*ScalarConf, error) {
	if vol < 0 || vol > math.MaxInt/SiteSize {
		return nil, errors.Wrapf(ErrSize, "NewScalarConf(vol=%d): volume must be >= 0 and addressable", vol)
	}
	buf, err := memory.Provide[float64](p, vol*SiteSize)
	if err != nil {
		return nil, errors.WithMessagef(err, "NewScalarConf(vol=%d)", vol)
	}
	return &ScalarConf{vol: vol, buf: buf}, nil
}

// Vol returns the number of sites.
func (c *ScalarConf) Vol() int { return c.vol }

// Provider returns the provider owning the configuration's memory.
func (c *ScalarConf) Provider() memory.Provider { return c.buf.Provider() }

// Flat returns the underlying values, in canonical order. It is nil after Finalize.
func (c *ScalarConf) Flat() []float64 { return c.buf.Flat }

// Get returns the scalar at the given coordinates.
func (c *ScalarConf) Get(site, dir, col1, col2, reIm int) float64 {
	if CheckIndices {
		checkCoordinates("ScalarConf.Get", site, c.vol, dir, col1, col2, reIm)
	}
	return c.buf.Flat[Index(site, dir, col1, col2, reIm)]
}

// Set sets the scalar at the given coordinates.
func (c *ScalarConf) Set(site, dir, col1, col2, reIm int, value float64) {
	if CheckIndices {
		checkCoordinates("ScalarConf.Set", site, c.vol, dir, col1, col2, reIm)
	}
	c.buf.Flat[Index(site, dir, col1, col2, reIm)] = value
}

// Fill sets every scalar of the configuration to value.
func (c *ScalarConf) Fill(value float64) {
	flat := c.buf.Flat
	for i := range flat {
		flat[i] = value
	}
}

// FillSite sets the SiteSize scalars of every site to the given values, in canonical order
// within the site.
func (c *ScalarConf) FillSite(values *[SiteSize]float64) {
	flat := c.buf.Flat
	for site := range c.vol {
		copy(flat[site*SiteSize:(site+1)*SiteSize], values[:])
	}
}

// Equal returns whether both configurations hold the same volume and the same bit patterns.
func (c *ScalarConf) Equal(other *ScalarConf) bool {
	if c.vol != other.vol {
		return false
	}
	a, b := c.buf.Flat, other.buf.Flat
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}

// Finalize releases the configuration's memory. It must be called exactly once, further calls
// return an error.
func (c *ScalarConf) Finalize() error {
	if err := c.buf.Finalize(); err != nil {
		return errors.WithMessage(err, "ScalarConf.Finalize()")
	}
	return nil
}
