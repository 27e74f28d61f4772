// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// EngineType identifies one hardware submission engine.
type EngineType uint8

// Submission engines.
const (
	// EngineGraphics executes draw, compute and copy work.
	EngineGraphics EngineType = iota

	// EngineCompute executes compute and copy work.
	EngineCompute

	// EngineCopy executes copy work only.
	EngineCopy

	// NumEngines is the number of engine types.
	NumEngines = 3
)

// String returns the string representation of EngineType.
func (e EngineType) String() string {
	switch e {
	case EngineGraphics:
		return "Graphics"
	case EngineCompute:
		return "Compute"
	case EngineCopy:
		return "Copy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// Valid reports whether e is one of the defined engines.
func (e EngineType) Valid() bool {
	return e < NumEngines
}

// fenceEngineShift is the bit position of the engine id inside a fence value.
const fenceEngineShift = 56

// FenceBase returns the completed value a freshly created queue of the given
// engine starts from. The first value such a queue issues is FenceBase(e)+1.
func FenceBase(e EngineType) uint64 {
	return uint64(e) << fenceEngineShift
}

// EngineOfFence returns the engine that issued fence value v.
func EngineOfFence(v uint64) EngineType {
	return EngineType(v >> fenceEngineShift)
}

// HeapType selects the memory pool a committed resource lives in.
type HeapType uint8

// Heap types.
const (
	// HeapDeviceLocal is GPU-exclusive memory. It cannot be mapped.
	HeapDeviceLocal HeapType = iota

	// HeapUpload is host-visible, CPU-writable memory.
	HeapUpload
)

// String returns the string representation of HeapType.
func (h HeapType) String() string {
	switch h {
	case HeapDeviceLocal:
		return "DeviceLocal"
	case HeapUpload:
		return "Upload"
	default:
		return fmt.Sprintf("Unknown(%d)", int(h))
	}
}

// ResourceState is a bitmask describing how the GPU last accessed a resource.
type ResourceState uint32

// Resource states.
const (
	// StateCommon is the state resources decay to after copy-engine access.
	StateCommon ResourceState = 0

	// StateVertexBuffer marks vertex or constant buffer reads.
	StateVertexBuffer ResourceState = 1 << 0

	// StateIndexBuffer marks index buffer reads.
	StateIndexBuffer ResourceState = 1 << 1

	// StateConstantBuffer marks uniform reads.
	StateConstantBuffer ResourceState = 1 << 2

	// StateUnorderedAccess marks shader read-write access.
	StateUnorderedAccess ResourceState = 1 << 3

	// StateCopyDest marks the destination of a copy.
	StateCopyDest ResourceState = 1 << 4

	// StateCopySource marks the source of a copy.
	StateCopySource ResourceState = 1 << 5

	// StateGenericRead is the required state of upload heap resources.
	StateGenericRead = StateVertexBuffer | StateIndexBuffer | StateConstantBuffer | StateCopySource
)

// String returns a human-readable list of the set state bits.
func (s ResourceState) String() string {
	if s == StateCommon {
		return "Common"
	}
	if s == StateGenericRead {
		return "GenericRead"
	}
	names := []struct {
		bit  ResourceState
		name string
	}{
		{StateVertexBuffer, "VertexBuffer"},
		{StateIndexBuffer, "IndexBuffer"},
		{StateConstantBuffer, "ConstantBuffer"},
		{StateUnorderedAccess, "UnorderedAccess"},
		{StateCopyDest, "CopyDest"},
		{StateCopySource, "CopySource"},
	}
	var parts []string
	for _, n := range names {
		if s&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Unknown(%#x)", uint32(s))
	}
	return strings.Join(parts, "|")
}

// ResourceDesc describes a committed buffer resource.
type ResourceDesc struct {
	// Label is an optional debug name.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Heap selects device-local or upload memory.
	Heap HeapType

	// InitialState is the state the resource is created in.
	InitialState ResourceState

	// Usage lists the buffer usages the backend must allow.
	// Backends that do not need usage flags ignore it.
	Usage gputypes.BufferUsage
}

// ResourceBarrier describes a state transition recorded into a command list.
type ResourceBarrier struct {
	Resource Resource
	Before   ResourceState
	After    ResourceState
}

// Default buffer usages per heap.
var (
	// DeviceLocalUsage is used for GPU-exclusive pages and destination buffers.
	DeviceLocalUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst |
		gputypes.BufferUsageCopySrc | gputypes.BufferUsageVertex | gputypes.BufferUsageUniform

	// UploadUsage is used for CPU-writable pages and staging buffers.
	UploadUsage = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst |
		gputypes.BufferUsageVertex | gputypes.BufferUsageUniform
)
