// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
)

// Resource is a simulated committed buffer backed by host memory.
type Resource struct {
	mu       sync.Mutex
	name     string
	heap     gpucore.HeapType
	mem      []byte
	addr     uint64
	mapped   bool
	released bool
	device   *Device
}

// Size returns the buffer size in bytes.
func (r *Resource) Size() uint64 { return uint64(len(r.mem)) }

// GPUAddress returns the simulated virtual address of the buffer.
func (r *Resource) GPUAddress() uint64 { return r.addr }

// Heap returns the heap the resource was created in.
func (r *Resource) Heap() gpucore.HeapType { return r.heap }

// Name returns the debug name.
func (r *Resource) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Map returns the backing memory of an upload heap resource.
func (r *Resource) Map() ([]byte, error) {
	if r.heap != gpucore.HeapUpload {
		return nil, gpucore.ErrNotMappable
	}
	r.mu.Lock()
	r.mapped = true
	r.mu.Unlock()
	return r.mem, nil
}

// Unmap ends the CPU mapping.
func (r *Resource) Unmap() {
	r.mu.Lock()
	r.mapped = false
	r.mu.Unlock()
}

// Mapped reports whether the resource is currently mapped.
func (r *Resource) Mapped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mapped
}

// SetName sets the debug name.
func (r *Resource) SetName(name string) {
	r.mu.Lock()
	r.name = name
	r.mu.Unlock()
}

// Release frees the resource. Releasing twice is recorded as a device error.
func (r *Resource) Release() {
	r.mu.Lock()
	twice := r.released
	r.released = true
	r.mu.Unlock()
	r.device.resourceReleased(r, twice)
}

// Released reports whether Release has been called.
func (r *Resource) Released() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released
}

// Contents returns a copy of the buffer contents as the GPU sees them.
func (r *Resource) Contents() []byte {
	r.device.copyMu.Lock()
	defer r.device.copyMu.Unlock()
	out := make([]byte, len(r.mem))
	copy(out, r.mem)
	return out
}

// copyFrom copies size bytes from src. The caller holds device.copyMu.
func (r *Resource) copyFrom(dstOffset uint64, src *Resource, srcOffset, size uint64) {
	copy(r.mem[dstOffset:dstOffset+size], src.mem[srcOffset:srcOffset+size])
}
