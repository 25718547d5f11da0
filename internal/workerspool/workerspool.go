// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool limits the number of goroutines running the parallel kernels.
//
// A Pool never queues work: StartIfAvailable either starts the task right away or refuses it,
// and the caller then runs it inline. This keeps the calling goroutine busy too, and makes it
// safe to use the same Pool from nested tasks.
package workerspool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool of workers with a soft limit on the number of tasks running in parallel.
type Pool struct {
	mu             sync.Mutex
	maxParallelism int
	numRunning     int

	started, refused atomic.Int64
}

// New returns a Pool with the given parallelism.
// 0 disables parallelism (all tasks are refused), a negative value means unlimited, and
// DefaultParallelism uses runtime.NumCPU().
func New(maxParallelism int) *Pool {
	if maxParallelism == DefaultParallelism {
		maxParallelism = runtime.NumCPU()
	}
	return &Pool{maxParallelism: maxParallelism}
}

// DefaultParallelism can be given to New to use one worker per CPU.
const DefaultParallelism = -2

// IsEnabled returns whether parallelism is enabled.
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// MaxParallelism returns the limit of tasks running in parallel: 0 if disabled, and negative
// for unlimited.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// SetMaxParallelism changes the limit. It should only be called while no tasks are running.
func (w *Pool) SetMaxParallelism(maxParallelism int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxParallelism = maxParallelism
}

// StartIfAvailable runs the task in a separate goroutine, if the limit of parallel tasks has
// not been reached. It returns true if the task was started, false otherwise.
//
// It's up to the caller to synchronize with the end of the task.
func (w *Pool) StartIfAvailable(task func()) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.maxParallelism == 0 || (w.maxParallelism > 0 && w.numRunning >= w.maxParallelism) {
		w.refused.Add(1)
		return false
	}
	w.numRunning++
	w.started.Add(1)
	go func() {
		defer w.taskDone()
		task()
	}()
	return true
}

func (w *Pool) taskDone() {
	w.mu.Lock()
	w.numRunning--
	w.mu.Unlock()
}

// Stats returns how many tasks were started in a worker and how many were refused (and
// presumably run inline by the caller) since the Pool was created or the last ResetStats.
func (w *Pool) Stats() (started, refused int64) {
	return w.started.Load(), w.refused.Load()
}

// ResetStats zeroes the counters returned by Stats.
func (w *Pool) ResetStats() {
	w.started.Store(0)
	w.refused.Store(0)
}
