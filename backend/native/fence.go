// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// fenceWaitSlice bounds a single blocking HAL wait issued by Done.
const fenceWaitSlice = 50 * time.Millisecond

// Fence wraps a hal.Fence. The HAL fence counts from zero; values at or below
// the initial value are complete without asking the driver.
type Fence struct {
	device *Device
	raw    hal.Fence

	mu        sync.Mutex
	completed uint64
	pending   []uint64 // signaled values not yet observed complete, ascending
}

func newFence(d *Device, raw hal.Fence, initial uint64) *Fence {
	return &Fence{device: d, raw: raw, completed: initial}
}

// CompletedValue polls the driver for every pending value in order and
// returns the highest one reached.
func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollLocked()
	return f.completed
}

func (f *Fence) pollLocked() {
	n := 0
	for _, v := range f.pending {
		ok, err := f.device.raw.Wait(f.raw, v, 0)
		if err != nil {
			f.device.markLost(err)
			break
		}
		if !ok {
			break
		}
		f.completed = v
		n++
	}
	f.pending = f.pending[n:]
}

// submitted records that a queue signal for value was submitted.
func (f *Fence) submitted(value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.pending); n > 0 && f.pending[n-1] >= value {
		return
	}
	if value <= f.completed {
		return
	}
	f.pending = append(f.pending, value)
}

// reachable reports whether value is complete or has a signal submitted.
func (f *Fence) reachable(value uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if value <= f.completed {
		return true
	}
	n := len(f.pending)
	return n > 0 && f.pending[n-1] >= value
}

// Done returns a channel closed once the fence reaches value. Waiting runs on
// its own goroutine in bounded HAL waits so device loss is noticed.
func (f *Fence) Done(value uint64) <-chan struct{} {
	ch := make(chan struct{})
	if f.CompletedValue() >= value {
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		for {
			if f.CompletedValue() >= value || f.device.Lost() {
				return
			}
			if !f.reachable(value) {
				time.Sleep(fenceWaitSlice)
				continue
			}
			if _, err := f.device.raw.Wait(f.raw, value, fenceWaitSlice); err != nil {
				f.device.markLost(err)
				return
			}
		}
	}()
	return ch
}

// Destroy releases the HAL fence.
func (f *Fence) Destroy() {
	f.device.raw.DestroyFence(f.raw)
}
