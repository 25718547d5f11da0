// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package memory provides the allocators backing the gauge configurations.
//
// A Provider hands out raw blocks of memory and takes them back. Configurations receive their
// Provider explicitly at construction time, and use Provide to get a typed Buffer on top of a
// block. There are two implementations:
//
//   - HostProvider: aligned host memory, with reuse of released blocks.
//   - DeviceProvider: a device backend emulated on unified host memory, with a capacity limit.
//
// Providers are safe for concurrent use, although the configurations only need them to be
// safe when used sequentially.
package memory

import (
	"fmt"

	"github.com/pkg/errors"
)

// Location where a Provider keeps its memory.
type Location int

const (
	// Host memory, directly accessible by the CPU kernels.
	Host Location = iota

	// Device memory, e.g. an accelerator. Kernels don't run on device memory.
	Device
)

// String implements fmt.Stringer.
func (l Location) String() string {
	switch l {
	case Host:
		return "host"
	case Device:
		return "device"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

var (
	// ErrAllocation is returned (wrapped) when a provider can't provide the requested memory.
	ErrAllocation = errors.New("memory allocation failure")

	// ErrInvalidRelease is returned (wrapped) when releasing a block that is not live in the provider:
	// it was already released, or it belongs to another provider.
	ErrInvalidRelease = errors.New("invalid memory release")
)

// Provider is the capability set {Allocate, Release} used by the configurations to own memory.
type Provider interface {
	// Name of the provider, for reporting.
	Name() string

	// Location of the memory handed out.
	Location() Location

	// Allocate returns a zeroed block of numBytes bytes.
	// It returns an error matching ErrAllocation if the memory can't be provided.
	Allocate(numBytes int) (*Block, error)

	// Release returns the block to the provider. The block must not be used afterward.
	// It returns an error matching ErrInvalidRelease if the block is not live in this provider.
	Release(block *Block) error

	// Stats returns a snapshot of the provider's accounting.
	Stats() Stats
}

// Block of memory handed out by a Provider.
type Block struct {
	id    uint64
	owner *arena
	raw   []byte // Backing allocation, includes alignment slack.
	bytes []byte // Aligned view of the requested size.
}

// Bytes returns the memory of the block.
func (b *Block) Bytes() []byte { return b.bytes }

// Len returns the size of the block in bytes.
func (b *Block) Len() int { return len(b.bytes) }

// Stats holds the accounting of a Provider.
type Stats struct {
	// Allocations is the number of successful calls to Allocate, Reuses the number of those
	// served from previously released blocks.
	Allocations, Reuses int64

	// Releases is the number of successful calls to Release.
	Releases int64

	// LiveBlocks and LiveBytes are the blocks currently allocated and not released.
	LiveBlocks int
	LiveBytes  int64

	// PeakBytes is the maximum LiveBytes seen.
	PeakBytes int64

	// CachedBytes are released bytes kept for reuse.
	CachedBytes int64

	// Capacity is the limit of LiveBytes, 0 if unlimited.
	Capacity int64
}
