// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package memory

import "github.com/janpfeifer/must"

// HostProvider provides aligned host memory. Released blocks are kept and reused by later
// allocations of the same size, until Trim is called.
type HostProvider struct {
	arena *arena
}

// Compile-time check.
var _ Provider = (*HostProvider)(nil)

// NewHostProvider creates a HostProvider. By default, it is unlimited and aligns blocks
// to DefaultAlignment.
func NewHostProvider(options ...Option) (*HostProvider, error) {
	a, err := newArena("host", Host, options...)
	if err != nil {
		return nil, err
	}
	return &HostProvider{arena: a}, nil
}

// MustNewHostProvider is like NewHostProvider, but panics on error.
func MustNewHostProvider(options ...Option) *HostProvider {
	return must.M1(NewHostProvider(options...))
}

// Name implements Provider.
func (p *HostProvider) Name() string { return p.arena.name }

// Location implements Provider.
func (p *HostProvider) Location() Location { return Host }

// Allocate implements Provider.
func (p *HostProvider) Allocate(numBytes int) (*Block, error) { return p.arena.allocate(numBytes) }

// Release implements Provider.
func (p *HostProvider) Release(block *Block) error { return p.arena.release(block) }

// Stats implements Provider.
func (p *HostProvider) Stats() Stats { return p.arena.snapshot() }

// Trim drops the released blocks kept for reuse.
func (p *HostProvider) Trim() { p.arena.trim() }
