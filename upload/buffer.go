// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package upload

import (
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/resource"
)

// Buffer is a persistent device-local buffer. It is never recycled; the
// owner destroys it once the GPU no longer reads it.
type Buffer struct {
	handle *resource.Handle

	NumElements uint32
	ElementSize uint32
	Size        uint64
}

// Handle returns the resource handle, for recording barriers.
func (b *Buffer) Handle() *resource.Handle { return b.handle }

// Resource returns the native resource for recording commands.
func (b *Buffer) Resource() gpucore.Resource { return b.handle.Get() }

// Name returns the debug name given at creation.
func (b *Buffer) Name() string { return b.handle.Name() }

// GPUAddress returns the GPU base address, or 0 once destroyed.
func (b *Buffer) GPUAddress() uint64 { return b.handle.GPUAddress() }

// Destroy releases the buffer and clears its dimensions.
// Calling Destroy more than once is a no-op.
func (b *Buffer) Destroy() {
	b.handle.Destroy()
	b.NumElements = 0
	b.ElementSize = 0
	b.Size = 0
}
