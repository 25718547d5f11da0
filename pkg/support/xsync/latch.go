// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import "sync"

// Latch is a one-time signal: once triggered it stays triggered forever.
type Latch struct {
	once sync.Once
	wait chan struct{}
}

// NewLatch returns an un-triggered Latch.
func NewLatch() *Latch {
	return &Latch{wait: make(chan struct{})}
}

// Trigger the latch. Further calls are no-ops.
func (l *Latch) Trigger() {
	l.once.Do(func() { close(l.wait) })
}

// Wait blocks until the latch is triggered.
func (l *Latch) Wait() {
	<-l.wait
}

// Test returns whether the latch was triggered, without blocking.
func (l *Latch) Test() bool {
	select {
	case <-l.wait:
		return true
	default:
		return false
	}
}

// WaitChan returns a channel that is closed when the latch is triggered, to use in a select.
func (l *Latch) WaitChan() <-chan struct{} {
	return l.wait
}
