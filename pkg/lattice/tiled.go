// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lattice

import (
	"math"
	"unsafe"

	"github.com/gomlx/gaugebench/pkg/core/algebra"
	"github.com/gomlx/gaugebench/pkg/core/memory"
	"github.com/pkg/errors"
)

// TiledConf is a gauge configuration in the SIMD layout: site s is stored in lane
// s % LaneWidth of the vectors of tile s / LaneWidth.
//
// The lanes of a tile have the same layout as a Tile (algebra.QuadSU3 of algebra.LaneComplex),
// so the kernels work on Tiles directly.
type TiledConf struct {
	vol, tileCount int
	buf            *memory.Buffer[algebra.Lane]
	tiles          []Tile
}

// NewTiledConf allocates a zeroed configuration of vol sites from the provider.
//
// vol must be a multiple of LaneWidth, otherwise it fails with an error matching ErrSize and
// nothing is allocated. The provider must be a host one, since the kernels run on it.
func NewTiledConf(p memory.Provider, vol int) (*TiledConf, error) {
	if vol < 0 || vol > math.MaxInt/SiteSize {
		return nil, errors.Wrapf(ErrSize, "NewTiledConf(vol=%d): volume must be >= 0 and addressable", vol)
	}
	if vol%LaneWidth != 0 {
		return nil, errors.Wrapf(ErrSize, "NewTiledConf(vol=%d): volume must be a multiple of the lane width %d",
			vol, LaneWidth)
	}
	if p.Location() != memory.Host {
		return nil, errors.Wrapf(ErrDeviceUnsupported, "NewTiledConf(vol=%d): provider %q is on %s",
			vol, p.Name(), p.Location())
	}
	tileCount := vol / LaneWidth
	buf, err := memory.Provide[algebra.Lane](p, tileCount*SiteSize)
	if err != nil {
		return nil, errors.WithMessagef(err, "NewTiledConf(vol=%d)", vol)
	}
	c := &TiledConf{vol: vol, tileCount: tileCount, buf: buf}
	if tileCount > 0 {
		c.tiles = unsafe.Slice((*Tile)(unsafe.Pointer(unsafe.SliceData(buf.Flat))), tileCount)
	}
	return c, nil
}

// NewTiledConfFromScalar allocates a TiledConf with the contents of s.
func NewTiledConfFromScalar(p memory.Provider, s *ScalarConf) (*TiledConf, error) {
	c, err := NewTiledConf(p, s.Vol())
	if err != nil {
		return nil, err
	}
	if err = c.FromScalar(s); err != nil {
		_ = c.Finalize()
		return nil, err
	}
	return c, nil
}

// Vol returns the number of sites.
func (c *TiledConf) Vol() int { return c.vol }

// TileCount returns the number of tiles, Vol() / LaneWidth.
func (c *TiledConf) TileCount() int { return c.tileCount }

// Lanes returns the underlying vectors, positioned by Index(tile, dir, col1, col2, reIm).
func (c *TiledConf) Lanes() []algebra.Lane { return c.buf.Flat }

// Tiles returns the configuration viewed as tiles. It shares memory with Lanes.
func (c *TiledConf) Tiles() []Tile { return c.tiles }

// Get returns the vector at the given tile coordinates.
func (c *TiledConf) Get(tile, dir, col1, col2, reIm int) algebra.Lane {
	if CheckIndices {
		checkCoordinates("TiledConf.Get", tile, c.tileCount, dir, col1, col2, reIm)
	}
	return c.buf.Flat[Index(tile, dir, col1, col2, reIm)]
}

// Set sets the vector at the given tile coordinates.
func (c *TiledConf) Set(tile, dir, col1, col2, reIm int, value algebra.Lane) {
	if CheckIndices {
		checkCoordinates("TiledConf.Set", tile, c.tileCount, dir, col1, col2, reIm)
	}
	c.buf.Flat[Index(tile, dir, col1, col2, reIm)] = value
}

// Site returns the scalar of the given site, as stored in its lane.
func (c *TiledConf) Site(site, dir, col1, col2, reIm int) float64 {
	return c.Get(site/LaneWidth, dir, col1, col2, reIm)[site%LaneWidth]
}

// Zero sets all values to 0.
func (c *TiledConf) Zero() {
	clear(c.buf.Flat)
}

// FromScalar copies the contents of s, which must have the same volume, into c: every scalar
// of site s goes to lane s % LaneWidth of tile s / LaneWidth.
func (c *TiledConf) FromScalar(s *ScalarConf) error {
	if s.Vol() != c.vol {
		return errors.Wrapf(ErrSize, "TiledConf.FromScalar(): volume %d differs from scalar volume %d", c.vol, s.Vol())
	}
	src, dst := s.Flat(), c.buf.Flat
	for site := range c.vol {
		tile, lane := site/LaneWidth, site%LaneWidth
		srcSite := src[site*SiteSize : (site+1)*SiteSize]
		dstTile := dst[tile*SiteSize : (tile+1)*SiteSize]
		for i, value := range srcSite {
			dstTile[i][lane] = value
		}
	}
	return nil
}

// ToScalar copies the contents of c into s, which must have the same volume. It is the
// inverse of FromScalar.
func (c *TiledConf) ToScalar(s *ScalarConf) error {
	if s.Vol() != c.vol {
		return errors.Wrapf(ErrSize, "TiledConf.ToScalar(): volume %d differs from scalar volume %d", c.vol, s.Vol())
	}
	src, dst := c.buf.Flat, s.Flat()
	for tile := range c.tileCount {
		srcTile := src[tile*SiteSize : (tile+1)*SiteSize]
		for i, vec := range srcTile {
			for lane, value := range vec {
				site := lane + LaneWidth*tile
				dst[site*SiteSize+i] = value
			}
		}
	}
	return nil
}

// Finalize releases the configuration's memory. It must be called exactly once, further calls
// return an error.
func (c *TiledConf) Finalize() error {
	c.tiles = nil
	if err := c.buf.Finalize(); err != nil {
		return errors.WithMessage(err, "TiledConf.Finalize()")
	}
	return nil
}

func (c *TiledConf) checkSameSize(method string, others ...*TiledConf) error {
	for _, other := range others {
		if other.tileCount != c.tileCount {
			return errors.Wrapf(ErrSize, "TiledConf.%s(): volumes differ, %d and %d", method, c.vol, other.vol)
		}
	}
	return nil
}
