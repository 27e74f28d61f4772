// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpuframe/gpucore"
)

// Queue wraps one hardware submission engine and the fence that tracks it.
//
// Queue is safe for concurrent use.
type Queue struct {
	engine gpucore.EngineType
	native gpucore.CommandQueue
	fence  gpucore.Fence
	pool   *AllocatorPool

	// fenceMu serializes Signal calls so issued values stay ordered on
	// the GPU timeline.
	fenceMu   sync.Mutex
	nextFence uint64

	// lastCompleted only grows.
	lastCompleted atomic.Uint64
}

// NewQueue creates the native queue, its fence and an empty allocator pool.
func NewQueue(device gpucore.Device, engine gpucore.EngineType) (*Queue, error) {
	if !engine.Valid() {
		return nil, fmt.Errorf("queue: invalid engine %v", engine)
	}
	native, err := device.CreateCommandQueue(engine)
	if err != nil {
		return nil, fmt.Errorf("queue: create %v queue: %w", engine, err)
	}
	base := gpucore.FenceBase(engine)
	fence, err := device.CreateFence(base)
	if err != nil {
		native.Destroy()
		return nil, fmt.Errorf("queue: create %v fence: %w", engine, err)
	}
	q := &Queue{
		engine:    engine,
		native:    native,
		fence:     fence,
		pool:      NewAllocatorPool(device, engine),
		nextFence: base + 1,
	}
	q.lastCompleted.Store(base)
	return q, nil
}

// Engine returns the engine type of the queue.
func (q *Queue) Engine() gpucore.EngineType { return q.engine }

// Native returns the underlying command queue.
func (q *Queue) Native() gpucore.CommandQueue { return q.native }

// Fence returns the queue fence.
func (q *Queue) Fence() gpucore.Fence { return q.fence }

// Pool returns the queue's allocator pool.
func (q *Queue) Pool() *AllocatorPool { return q.pool }

// ExecuteCommandList submits closed lists and returns the fence value that
// marks their completion.
func (q *Queue) ExecuteCommandList(lists ...gpucore.CommandList) (uint64, error) {
	if err := q.native.ExecuteCommandLists(lists...); err != nil {
		return 0, fmt.Errorf("queue: execute on %v queue: %w", q.engine, err)
	}

	q.fenceMu.Lock()
	defer q.fenceMu.Unlock()
	if err := q.native.Signal(q.fence, q.nextFence); err != nil {
		return 0, fmt.Errorf("queue: signal %v fence %#x: %w", q.engine, q.nextFence, err)
	}
	v := q.nextFence
	q.nextFence++
	return v, nil
}

// NextFenceValue returns the value the next ExecuteCommandList will signal.
func (q *Queue) NextFenceValue() uint64 {
	q.fenceMu.Lock()
	defer q.fenceMu.Unlock()
	return q.nextFence
}

// LastSubmittedFenceValue returns the most recently issued fence value, or
// the queue's base value if nothing was submitted yet.
func (q *Queue) LastSubmittedFenceValue() uint64 {
	return q.NextFenceValue() - 1
}

// CompletedFenceValue polls the fence and returns the highest value known to
// be complete.
func (q *Queue) CompletedFenceValue() uint64 {
	return q.observe(q.fence.CompletedValue())
}

// IsFenceComplete reports whether v has been reached. It polls the fence only
// if the cached completed value is below v.
func (q *Queue) IsFenceComplete(v uint64) bool {
	last := q.lastCompleted.Load()
	if v > last {
		last = q.observe(q.fence.CompletedValue())
	}
	return last >= v
}

// observe raises the cached completed value to at least v and returns the
// cached value.
func (q *Queue) observe(v uint64) uint64 {
	for {
		cur := q.lastCompleted.Load()
		if v <= cur {
			return cur
		}
		if q.lastCompleted.CompareAndSwap(cur, v) {
			return v
		}
	}
}

// InsertWait makes later work on this queue wait on the GPU until this
// queue's fence reaches v.
func (q *Queue) InsertWait(v uint64) error {
	return q.wait(q.fence, v)
}

// InsertWaitOnOtherQueueFence makes later work on this queue wait on the GPU
// until other's fence reaches v.
func (q *Queue) InsertWaitOnOtherQueueFence(other *Queue, v uint64) error {
	return q.wait(other.fence, v)
}

// InsertWaitOnOtherQueue makes later work on this queue wait on the GPU for
// everything submitted to other so far.
func (q *Queue) InsertWaitOnOtherQueue(other *Queue) error {
	return q.wait(other.fence, other.LastSubmittedFenceValue())
}

func (q *Queue) wait(fence gpucore.Fence, v uint64) error {
	if err := q.native.Wait(fence, v); err != nil {
		return fmt.Errorf("queue: %v queue wait for %#x: %w", q.engine, v, err)
	}
	return nil
}

// WaitForFence blocks until v is complete. There is no timeout: a GPU that
// never reaches v blocks the caller forever. Concurrent waiters do not block
// each other; each one returns as soon as its own value completes.
func (q *Queue) WaitForFence(v uint64) {
	if q.IsFenceComplete(v) {
		return
	}
	<-q.fence.Done(v)
	q.observe(v)
}

// WaitForIdle blocks until all work submitted so far is complete.
func (q *Queue) WaitForIdle() {
	q.WaitForFence(q.LastSubmittedFenceValue())
}

// RequestAllocator returns an allocator from the queue's pool using the
// queue's current completed fence value.
func (q *Queue) RequestAllocator() (gpucore.CommandAllocator, error) {
	return q.pool.RequestAllocator(q.CompletedFenceValue())
}

// ReturnAllocator returns a to the pool tagged with fence.
func (q *Queue) ReturnAllocator(fence uint64, a gpucore.CommandAllocator) {
	q.pool.ReturnAllocator(fence, a)
}

// Close destroys the pool, the fence and the native queue. The caller must
// ensure the queue is idle.
func (q *Queue) Close() {
	q.pool.Close()
	q.fence.Destroy()
	q.native.Destroy()
}
