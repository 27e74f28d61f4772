// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fifo"
	"github.com/gogpu/gpuframe/internal/glog"
)

// namer is implemented by native objects that accept debug names.
type namer interface {
	SetName(name string)
}

// PoolStats describes an allocator pool.
type PoolStats struct {
	Engine  gpucore.EngineType
	Created int // allocators created over the pool lifetime
	Ready   int // allocators waiting in the ready queue
	Reused  int // requests served from the ready queue
}

// String returns a human-readable representation of the stats.
func (s PoolStats) String() string {
	return fmt.Sprintf("%v allocators: %d created, %d ready, %d reused",
		s.Engine, s.Created, s.Ready, s.Reused)
}

// AllocatorPool recycles command allocators of one engine type.
//
// AllocatorPool is safe for concurrent use.
type AllocatorPool struct {
	device gpucore.Device
	engine gpucore.EngineType

	mu     sync.Mutex
	all    []gpucore.CommandAllocator
	ready  fifo.Queue[gpucore.CommandAllocator]
	reused int
}

// NewAllocatorPool creates an empty pool for engine.
func NewAllocatorPool(device gpucore.Device, engine gpucore.EngineType) *AllocatorPool {
	return &AllocatorPool{device: device, engine: engine}
}

// Engine returns the engine type of the pooled allocators.
func (p *AllocatorPool) Engine() gpucore.EngineType { return p.engine }

// RequestAllocator returns a reset allocator that no in-flight work uses.
//
// Only the oldest returned allocator is considered: it is reused if its fence
// tag is at most completed. Otherwise a new allocator is created.
func (p *AllocatorPool) RequestAllocator(completed uint64) (gpucore.CommandAllocator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.ready.PopIf(func(fence uint64) bool { return fence <= completed }); ok {
		if err := a.Reset(); err != nil {
			return nil, fmt.Errorf("queue: reset %v command allocator: %w", p.engine, err)
		}
		p.reused++
		return a, nil
	}

	a, err := p.device.CreateCommandAllocator(p.engine)
	if err != nil {
		return nil, fmt.Errorf("queue: create %v command allocator: %w", p.engine, err)
	}
	name := fmt.Sprintf("CommandAllocator %d", len(p.all))
	if n, ok := a.(namer); ok {
		n.SetName(name)
	}
	p.all = append(p.all, a)
	glog.Logger().Debug("queue: new command allocator",
		"engine", p.engine, "name", name, "pending", p.ready.Len())
	return a, nil
}

// ReturnAllocator queues a for reuse once fence completes. fence must be the
// value under which the work recorded into a was submitted.
func (p *AllocatorPool) ReturnAllocator(fence uint64, a gpucore.CommandAllocator) {
	if a == nil {
		panic("queue: ReturnAllocator called with nil allocator")
	}
	p.mu.Lock()
	p.ready.Push(fence, a)
	p.mu.Unlock()
}

// Size returns the number of allocators the pool has created.
func (p *AllocatorPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.all)
}

// Ready returns the number of allocators waiting for reuse.
func (p *AllocatorPool) Ready() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready.Len()
}

// Stats returns a snapshot of the pool counters.
func (p *AllocatorPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Engine:  p.engine,
		Created: len(p.all),
		Ready:   p.ready.Len(),
		Reused:  p.reused,
	}
}

// Close destroys every allocator the pool created. The caller must ensure
// no work recorded into them is still executing.
func (p *AllocatorPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready.Drain(func(uint64, gpucore.CommandAllocator) {})
	for _, a := range p.all {
		a.Destroy()
	}
	p.all = nil
}
