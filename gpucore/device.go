// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "errors"

// Common device errors.
var (
	// ErrDeviceLost is returned when the backend can no longer execute work.
	// All outstanding resources are invalid once it is observed.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrNotMappable is returned when mapping a device-local resource.
	ErrNotMappable = errors.New("gpucore: resource is not CPU-visible")

	// ErrListNotClosed is returned when executing a list that is still recording.
	ErrListNotClosed = errors.New("gpucore: command list is still recording")

	// ErrListClosed is returned when recording into a closed list.
	ErrListClosed = errors.New("gpucore: command list is closed")

	// ErrEngineMismatch is returned when objects of different engines are mixed.
	ErrEngineMismatch = errors.New("gpucore: engine type mismatch")

	// ErrAllocatorInUse is returned when resetting an allocator whose recorded
	// work has not finished executing.
	ErrAllocatorInUse = errors.New("gpucore: command allocator still in use by the GPU")
)

// Device creates every native object gpuframe works with.
//
// Implementations must be safe for concurrent use. Objects created by a
// Device are owned by the caller and must be destroyed explicitly.
type Device interface {
	// CreateCommandQueue creates a submission queue for the given engine.
	CreateCommandQueue(engine EngineType) (CommandQueue, error)

	// CreateFence creates a fence whose completed value starts at initial.
	CreateFence(initial uint64) (Fence, error)

	// CreateCommandAllocator creates backing storage for command lists of
	// the given engine.
	CreateCommandAllocator(engine EngineType) (CommandAllocator, error)

	// CreateCommandList creates a command list in the recording state,
	// bound to alloc.
	CreateCommandList(engine EngineType, alloc CommandAllocator) (CommandList, error)

	// CreateCommittedResource creates a buffer resource with its own memory.
	CreateCommittedResource(desc *ResourceDesc) (Resource, error)
}

// CommandQueue is one hardware submission engine.
//
// Work submitted to one queue executes in submission order. Ordering between
// queues exists only through Signal/Wait pairs.
type CommandQueue interface {
	// Engine returns the engine type of the queue.
	Engine() EngineType

	// ExecuteCommandLists submits closed command lists for execution.
	ExecuteCommandLists(lists ...CommandList) error

	// Signal sets fence to value once all previously submitted work is done.
	Signal(fence Fence, value uint64) error

	// Wait makes work submitted after this call wait on the GPU until fence
	// reaches value. It does not block the calling goroutine.
	Wait(fence Fence, value uint64) error

	// Destroy releases the queue.
	Destroy()
}

// Fence is a monotonic GPU completion counter.
type Fence interface {
	// CompletedValue returns the last value the GPU signaled.
	// The result may be stale by the time the caller inspects it.
	CompletedValue() uint64

	// Done returns a channel that is closed once the fence reaches value.
	Done(value uint64) <-chan struct{}

	// Destroy releases the fence.
	Destroy()
}

// CommandAllocator is the backing storage of recorded commands.
// It must not be reset while work recorded into it is still executing.
type CommandAllocator interface {
	// Engine returns the engine type the allocator records for.
	Engine() EngineType

	// Reset reclaims the memory of every list recorded from the allocator.
	Reset() error

	// Destroy releases the allocator.
	Destroy()
}

// CommandList records commands into a CommandAllocator.
type CommandList interface {
	// Engine returns the engine type of the list.
	Engine() EngineType

	// Reset reopens a closed list for recording into alloc.
	Reset(alloc CommandAllocator) error

	// Close ends recording. A list must be closed before execution.
	Close() error

	// CopyBufferRegion records a copy of size bytes from src to dst.
	CopyBufferRegion(dst Resource, dstOffset uint64, src Resource, srcOffset, size uint64)

	// ResourceBarrier records state transitions.
	ResourceBarrier(barriers ...ResourceBarrier)

	// SetName sets a debug name.
	SetName(name string)

	// Destroy releases the list.
	Destroy()
}

// Resource is a committed GPU buffer.
type Resource interface {
	// Size returns the resource size in bytes.
	Size() uint64

	// GPUAddress returns the base GPU virtual address of the resource.
	GPUAddress() uint64

	// Map returns the CPU view of an upload heap resource.
	// Device-local resources return ErrNotMappable.
	Map() ([]byte, error)

	// Unmap ends a CPU mapping started by Map.
	Unmap()

	// SetName sets a debug name.
	SetName(name string)

	// Release frees the resource memory.
	Release()
}
