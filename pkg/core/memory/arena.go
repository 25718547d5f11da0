// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package memory

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
)

// DefaultAlignment of the blocks, in bytes: a cache line, which is also enough for AVX-512 loads.
const DefaultAlignment = 64

// arena implements the bookkeeping shared by the providers: alignment, free lists of released
// blocks keyed by size, capacity limit and statistics.
type arena struct {
	name      string
	location  Location
	alignment int
	capacity  int64

	mu     sync.Mutex
	nextID uint64
	live   map[uint64]*Block
	free   map[int][]freeBlock
	stats  Stats
}

// freeBlock is the memory of a released block, kept for reuse.
type freeBlock struct {
	raw, bytes []byte
}

// Option configures a provider.
type Option func(a *arena)

// WithCapacity limits the number of live bytes of the provider. 0 means unlimited.
func WithCapacity(numBytes int64) Option {
	return func(a *arena) {
		a.capacity = numBytes
	}
}

// WithAlignment sets the alignment of the blocks, it must be a power of 2.
func WithAlignment(alignment int) Option {
	return func(a *arena) {
		a.alignment = alignment
	}
}

func newArena(name string, location Location, options ...Option) (*arena, error) {
	a := &arena{
		name:      name,
		location:  location,
		alignment: DefaultAlignment,
		live:      make(map[uint64]*Block),
		free:      make(map[int][]freeBlock),
	}
	for _, option := range options {
		option(a)
	}
	if a.alignment <= 0 || a.alignment&(a.alignment-1) != 0 {
		return nil, errors.Errorf("%s: alignment must be a positive power of 2, got %d", name, a.alignment)
	}
	if a.capacity < 0 {
		return nil, errors.Errorf("%s: capacity must be >= 0, got %d", name, a.capacity)
	}
	a.stats.Capacity = a.capacity
	return a, nil
}

// allocAligned over-allocates and returns the aligned sub-slice of size numBytes.
func allocAligned(numBytes, alignment int) (raw, aligned []byte) {
	if numBytes == 0 {
		return nil, []byte{}
	}
	raw = make([]byte, numBytes+alignment-1)
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	offset := int((uintptr(alignment) - addr&uintptr(alignment-1)) & uintptr(alignment-1))
	return raw, raw[offset : offset+numBytes : offset+numBytes]
}

func (a *arena) allocate(numBytes int) (*Block, error) {
	if numBytes < 0 {
		return nil, errors.Wrapf(ErrAllocation, "%s: cannot allocate %d bytes", a.name, numBytes)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.capacity > 0 && a.stats.LiveBytes+int64(numBytes) > a.capacity {
		return nil, errors.Wrapf(ErrAllocation, "%s: allocating %d bytes would exceed capacity of %d bytes (%d bytes in use)",
			a.name, numBytes, a.capacity, a.stats.LiveBytes)
	}

	// A reused block gets a new handle, so a stale handle to the released one stays invalid.
	block := &Block{owner: a}
	if cached := a.free[numBytes]; len(cached) > 0 {
		old := cached[len(cached)-1]
		a.free[numBytes] = cached[:len(cached)-1]
		block.raw, block.bytes = old.raw, old.bytes
		clear(block.bytes)
		a.stats.CachedBytes -= int64(numBytes)
		a.stats.Reuses++
	} else {
		block.raw, block.bytes = allocAligned(numBytes, a.alignment)
	}
	a.nextID++
	block.id = a.nextID
	a.live[block.id] = block

	a.stats.Allocations++
	a.stats.LiveBlocks++
	a.stats.LiveBytes += int64(numBytes)
	a.stats.PeakBytes = max(a.stats.PeakBytes, a.stats.LiveBytes)
	return block, nil
}

func (a *arena) release(block *Block) error {
	if block == nil {
		return errors.Wrapf(ErrInvalidRelease, "%s: nil block", a.name)
	}
	if block.owner != a {
		return errors.Wrapf(ErrInvalidRelease, "%s: block was not allocated by this provider", a.name)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if found, ok := a.live[block.id]; !ok || found != block {
		return errors.Wrapf(ErrInvalidRelease, "%s: block #%d (%d bytes) is not live, was it already released?",
			a.name, block.id, block.Len())
	}
	delete(a.live, block.id)
	numBytes := block.Len()
	a.free[numBytes] = append(a.free[numBytes], freeBlock{raw: block.raw, bytes: block.bytes})
	block.id, block.raw, block.bytes = 0, nil, nil

	a.stats.Releases++
	a.stats.LiveBlocks--
	a.stats.LiveBytes -= int64(numBytes)
	a.stats.CachedBytes += int64(numBytes)
	return nil
}

// trim drops all cached blocks, leaving them to the garbage collector.
func (a *arena) trim() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.free)
	a.stats.CachedBytes = 0
}

func (a *arena) snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
