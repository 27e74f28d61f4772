// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/pagealloc"
)

// Frame is one recording context of the frame loop: a graphics command list,
// its allocator, and a linear allocator per page class.
//
// A Frame is valid from BeginFrame until Submit.
type Frame struct {
	ctx  *Context
	slot int

	// Guarded by ctx.mu.
	active bool
	index  uint64
	fence  uint64

	list  gpucore.CommandList
	alloc gpucore.CommandAllocator
	gpu   *pagealloc.Allocator
	cpu   *pagealloc.Allocator
}

// Index returns the frame number, counting from 0.
func (f *Frame) Index() uint64 { return f.index }

// Slot returns the frame slot in [0, FramesInFlight).
func (f *Frame) Slot() int { return f.slot }

// CommandList returns the graphics list of the frame.
func (f *Frame) CommandList() gpucore.CommandList { return f.list }

// GPU returns the frame's GPU-exclusive linear allocator.
func (f *Frame) GPU() *pagealloc.Allocator { return f.gpu }

// CPU returns the frame's CPU-writable linear allocator.
func (f *Frame) CPU() *pagealloc.Allocator { return f.cpu }

// AllocateGPU allocates transient GPU-exclusive memory for this frame.
func (f *Frame) AllocateGPU(size, alignment uint64) (pagealloc.Allocation, error) {
	if f.list == nil {
		return pagealloc.Allocation{}, ErrFrameSubmitted
	}
	a, err := f.gpu.Allocate(size, alignment)
	if err != nil {
		return a, f.ctx.fail(err)
	}
	return a, nil
}

// AllocateCPU allocates transient CPU-writable memory for this frame.
func (f *Frame) AllocateCPU(size, alignment uint64) (pagealloc.Allocation, error) {
	if f.list == nil {
		return pagealloc.Allocation{}, ErrFrameSubmitted
	}
	a, err := f.cpu.Allocate(size, alignment)
	if err != nil {
		return a, f.ctx.fail(err)
	}
	return a, nil
}

// Submit closes and executes the frame's list on the graphics queue, returns
// the allocator to its pool and retires the frame's pages, all under the
// returned fence value. A failure poisons the Context.
func (f *Frame) Submit() (uint64, error) {
	if f.list == nil {
		return 0, ErrFrameSubmitted
	}
	c := f.ctx
	gfx := c.queues.Graphics()

	if err := f.list.Close(); err != nil {
		return 0, c.fail(fmt.Errorf("close frame %d: %w", f.index, err))
	}
	fence, err := gfx.ExecuteCommandList(f.list)
	if err != nil {
		return 0, c.fail(err)
	}
	gfx.ReturnAllocator(fence, f.alloc)
	f.gpu.CleanupUsedPages(fence)
	f.cpu.CleanupUsedPages(fence)
	f.list.Destroy()
	f.list = nil
	f.alloc = nil

	c.mu.Lock()
	f.fence = fence
	f.active = false
	c.mu.Unlock()

	c.log.Debug("gpuframe: frame submitted", "frame", f.index, "fence", fence)
	return fence, nil
}

// abandon releases an unsubmitted frame during Close.
func (f *Frame) abandon() {
	if f.list == nil {
		return
	}
	_ = f.list.Close()
	gfx := f.ctx.queues.Graphics()
	gfx.ReturnAllocator(gfx.CompletedFenceValue(), f.alloc)
	f.list.Destroy()
	f.list = nil
	f.alloc = nil
	f.active = false
}
