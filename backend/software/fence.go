// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import "sync"

// fenceWaiter is a channel closed once the fence reaches value.
type fenceWaiter struct {
	value uint64
	ch    chan struct{}
}

// Fence is a simulated GPU fence. Its value is written by queue workers.
type Fence struct {
	mu      sync.Mutex
	value   uint64
	waiters []fenceWaiter
}

func newFence(initial uint64) *Fence {
	return &Fence{value: initial}
}

// CompletedValue returns the last signaled value.
func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Done returns a channel closed once the fence reaches value.
func (f *Fence) Done(value uint64) <-chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.value >= value {
		close(ch)
		return ch
	}
	f.waiters = append(f.waiters, fenceWaiter{value: value, ch: ch})
	return ch
}

// signal sets the fence value and releases satisfied waiters.
func (f *Fence) signal(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.value = value
	pending := f.waiters[:0]
	for _, w := range f.waiters {
		if w.value <= value {
			close(w.ch)
			continue
		}
		pending = append(pending, w)
	}
	f.waiters = pending
}

// Destroy is a no-op; simulated fences hold no native memory.
func (f *Fence) Destroy() {}
