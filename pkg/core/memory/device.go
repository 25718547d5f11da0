// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package memory

import "github.com/janpfeifer/must"

// DefaultDeviceCapacity is the capacity of a DeviceProvider created without WithCapacity: 4GiB.
const DefaultDeviceCapacity = int64(4) << 30

// DeviceProvider is the pluggable device backend.
//
// There is no accelerator support: the device memory is emulated on unified host memory, so
// scalar configurations can live on it and be converted from/to the host layouts, but it
// reports Location() == Device and enforces a capacity, like real device memory would.
type DeviceProvider struct {
	arena *arena
}

// Compile-time check.
var _ Provider = (*DeviceProvider)(nil)

// NewDeviceProvider creates a DeviceProvider, with DefaultDeviceCapacity unless WithCapacity
// is given.
func NewDeviceProvider(options ...Option) (*DeviceProvider, error) {
	options = append([]Option{WithCapacity(DefaultDeviceCapacity)}, options...)
	a, err := newArena("device", Device, options...)
	if err != nil {
		return nil, err
	}
	return &DeviceProvider{arena: a}, nil
}

// MustNewDeviceProvider is like NewDeviceProvider, but panics on error.
func MustNewDeviceProvider(options ...Option) *DeviceProvider {
	return must.M1(NewDeviceProvider(options...))
}

// Name implements Provider.
func (p *DeviceProvider) Name() string { return p.arena.name }

// Location implements Provider.
func (p *DeviceProvider) Location() Location { return Device }

// Allocate implements Provider.
func (p *DeviceProvider) Allocate(numBytes int) (*Block, error) { return p.arena.allocate(numBytes) }

// Release implements Provider.
func (p *DeviceProvider) Release(block *Block) error { return p.arena.release(block) }

// Stats implements Provider.
func (p *DeviceProvider) Stats() Stats { return p.arena.snapshot() }
