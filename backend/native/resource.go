// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// Resource is a committed buffer backed by a hal.Buffer.
type Resource struct {
	device *Device
	raw    hal.Buffer
	heap   gpucore.HeapType
	size   uint64
	addr   uint64

	mu       sync.Mutex
	name     string
	shadow   []byte
	mapped   bool
	released bool
}

// Size returns the resource size in bytes.
func (r *Resource) Size() uint64 { return r.size }

// GPUAddress returns the address assigned at creation. The HAL does not
// expose buffer device addresses, so addresses come from a per-device counter
// and only serve as stable identifiers.
func (r *Resource) GPUAddress() uint64 { return r.addr }

// Raw returns the underlying HAL buffer.
func (r *Resource) Raw() hal.Buffer { return r.raw }

// Heap returns the heap the resource was created in.
func (r *Resource) Heap() gpucore.HeapType { return r.heap }

// Map returns the host copy of an upload heap resource.
func (r *Resource) Map() ([]byte, error) {
	if r.heap != gpucore.HeapUpload {
		return nil, gpucore.ErrNotMappable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mapped {
		r.mapped = true
		r.device.trackMapped(r, true)
	}
	return r.shadow[:r.size], nil
}

// Unmap writes the host copy to the GPU buffer and ends the mapping.
func (r *Resource) Unmap() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mapped {
		return
	}
	r.mapped = false
	r.device.trackMapped(r, false)
	r.flushLocked()
}

// flush writes the host copy of a mapped resource to the GPU buffer.
func (r *Resource) flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapped {
		r.flushLocked()
	}
}

func (r *Resource) flushLocked() {
	if r.released {
		return
	}
	r.device.queue.WriteBuffer(r.raw, 0, r.shadow)
}

// SetName sets a debug name.
func (r *Resource) SetName(name string) {
	r.mu.Lock()
	r.name = name
	r.mu.Unlock()
}

// Name returns the debug name.
func (r *Resource) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Release destroys the HAL buffer. Releasing twice is a no-op.
func (r *Resource) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	if r.mapped {
		r.mapped = false
		r.device.trackMapped(r, false)
	}
	r.shadow = nil
	r.mu.Unlock()
	r.device.raw.DestroyBuffer(r.raw)
}
