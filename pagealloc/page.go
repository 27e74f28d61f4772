// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pagealloc

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/resource"
)

// Class selects the memory a page manager hands out.
type Class uint8

// Allocator classes.
const (
	// ClassGPUExclusive pages live in device-local memory and are written by
	// shaders through unordered access.
	ClassGPUExclusive Class = iota

	// ClassCPUWritable pages live in upload memory and stay mapped for
	// their whole lifetime.
	ClassCPUWritable
)

// Default page sizes.
const (
	GPUExclusivePageSize = 64 << 10 // 64 KiB
	CPUWritablePageSize  = 2 << 20  // 2 MiB
)

// DefaultAlignment satisfies constant buffer placement on every backend.
const DefaultAlignment = 256

// pageName is the debug name given to every page.
const pageName = "Linear Page Allocation"

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case ClassGPUExclusive:
		return "GPUExclusive"
	case ClassCPUWritable:
		return "CPUWritable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// PageSize returns the default page size of the class.
func (c Class) PageSize() uint64 {
	if c == ClassCPUWritable {
		return CPUWritablePageSize
	}
	return GPUExclusivePageSize
}

// desc returns the resource description of a page of this class.
func (c Class) desc(size uint64) *gpucore.ResourceDesc {
	if c == ClassCPUWritable {
		return &gpucore.ResourceDesc{
			Label:        pageName,
			Size:         size,
			Heap:         gpucore.HeapUpload,
			InitialState: gpucore.StateGenericRead,
			Usage:        gpucore.UploadUsage,
		}
	}
	return &gpucore.ResourceDesc{
		Label:        pageName,
		Size:         size,
		Heap:         gpucore.HeapDeviceLocal,
		InitialState: gpucore.StateUnorderedAccess,
		Usage:        gpucore.DeviceLocalUsage,
	}
}

// Page is one block of GPU memory owned by a PageManager.
//
// CPU-writable pages are mapped when created and unmapped when destroyed.
type Page struct {
	handle  *resource.Handle
	mapping *resource.Mapping
	cpu     []byte
	gpuBase uint64
	size    uint64
}

// Size returns the page size in bytes.
func (p *Page) Size() uint64 { return p.size }

// GPUAddress returns the GPU base address of the page.
func (p *Page) GPUAddress() uint64 { return p.gpuBase }

// CPU returns the mapped memory of a CPU-writable page, or nil.
func (p *Page) CPU() []byte { return p.cpu }

// Handle returns the resource handle of the page, for recording barriers.
func (p *Page) Handle() *resource.Handle { return p.handle }

func (p *Page) destroy() {
	p.cpu = nil
	if p.mapping != nil {
		p.mapping.Close()
	}
	p.handle.Destroy()
}
