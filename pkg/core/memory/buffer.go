// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package memory

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"
)

// Buffer is a typed view over a Block owned by a Provider.
//
// It must be released with Finalize exactly once; after that Flat is nil.
type Buffer[T any] struct {
	// Flat holds the elements of the buffer.
	Flat []T

	provider Provider
	block    *Block
}

// Provide allocates a Buffer of count elements of type T from the provider.
//
// T must not contain pointers: the memory is not scanned by the garbage collector.
// Errors from the provider are returned with context, and still match ErrAllocation.
func Provide[T any](p Provider, count int) (*Buffer[T], error) {
	var zero T
	elementSize := int(unsafe.Sizeof(zero))
	if count < 0 {
		return nil, errors.Wrapf(ErrAllocation, "cannot provide %d elements of %T", count, zero)
	}
	if elementSize > 0 && count > math.MaxInt/elementSize {
		return nil, errors.Wrapf(ErrAllocation, "%d elements of %T overflow the addressable size", count, zero)
	}
	block, err := p.Allocate(count * elementSize)
	if err != nil {
		return nil, errors.WithMessagef(err, "providing %d elements of %T from %s", count, zero, p.Name())
	}
	b := &Buffer[T]{provider: p, block: block}
	if count > 0 {
		b.Flat = unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(block.Bytes()))), count)
	} else {
		b.Flat = []T{}
	}
	return b, nil
}

// Len returns the number of elements in the buffer.
func (b *Buffer[T]) Len() int { return len(b.Flat) }

// Provider that owns the buffer's memory.
func (b *Buffer[T]) Provider() Provider { return b.provider }

// IsFinalized returns whether the buffer was already released.
func (b *Buffer[T]) IsFinalized() bool { return b.block == nil }

// Finalize releases the buffer's memory back to its provider.
// Calling it more than once returns an error matching ErrInvalidRelease.
func (b *Buffer[T]) Finalize() error {
	if b.block == nil {
		return errors.Wrapf(ErrInvalidRelease, "Buffer[%T].Finalize(): buffer was already finalized", *new(T))
	}
	block := b.block
	b.block = nil
	b.Flat = nil
	return b.provider.Release(block)
}
