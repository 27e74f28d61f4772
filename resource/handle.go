// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package resource provides the single-owner wrapper around native GPU memory.
package resource

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/glog"
)

// Handle errors.
var (
	// ErrNilResource is returned when wrapping or creating a nil resource.
	ErrNilResource = errors.New("resource: resource is nil")

	// ErrAlreadyMapped is returned when mapping a handle that holds a mapping.
	ErrAlreadyMapped = errors.New("resource: handle is already mapped")
)

// NoTransition is the transitioning state of a handle with no barrier in flight.
const NoTransition gpucore.ResourceState = 0xFFFFFFFF

// Handle owns exactly one native GPU resource.
//
// A Handle has no reference counting. Ownership changes hands with Move, which
// leaves the source handle destroyed without releasing the resource. Handles
// must never be copied; the noCopy field makes go vet's copylocks check reject
// copies.
//
// The usage and transitioning states are bookkeeping for the code that records
// barriers. The handle itself never issues GPU commands on its own.
type Handle struct {
	_  noCopy
	mu sync.Mutex

	res        gpucore.Resource
	name       string
	size       uint64
	gpuAddress uint64

	usageState         gpucore.ResourceState
	transitioningState gpucore.ResourceState

	mapping   *Mapping
	destroyed bool
}

// New takes ownership of res, recording state as its current usage state.
func New(res gpucore.Resource, state gpucore.ResourceState) *Handle {
	if res == nil {
		panic("resource: New called with nil resource")
	}
	return &Handle{
		res:                res,
		size:               res.Size(),
		gpuAddress:         res.GPUAddress(),
		usageState:         state,
		transitioningState: NoTransition,
	}
}

// Create allocates a committed resource on device and wraps it.
func Create(device gpucore.Device, desc *gpucore.ResourceDesc) (*Handle, error) {
	res, err := device.CreateCommittedResource(desc)
	if err != nil {
		return nil, fmt.Errorf("create %q (%d bytes, %v): %w", desc.Label, desc.Size, desc.Heap, err)
	}
	if res == nil {
		return nil, ErrNilResource
	}
	if desc.Label != "" {
		res.SetName(desc.Label)
	}
	h := New(res, desc.InitialState)
	h.name = desc.Label
	return h, nil
}

// Get returns the native resource for recording commands.
// It panics if the handle has been destroyed or moved.
func (h *Handle) Get() gpucore.Resource {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		panic(fmt.Sprintf("resource: use of destroyed handle %q", h.name))
	}
	return h.res
}

// Name returns the debug name given at creation.
func (h *Handle) Name() string {
	return h.name
}

// Size returns the resource size in bytes.
func (h *Handle) Size() uint64 {
	return h.size
}

// GPUAddress returns the base GPU address, or 0 once destroyed.
func (h *Handle) GPUAddress() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gpuAddress
}

// Destroyed reports whether the handle no longer owns a resource.
func (h *Handle) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// UsageState returns the last known GPU access state.
func (h *Handle) UsageState() gpucore.ResourceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.usageState
}

// TransitioningState returns the target of an in-flight barrier,
// or NoTransition.
func (h *Handle) TransitioningState() gpucore.ResourceState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transitioningState
}

// SetUsageState records a new usage state and clears any pending transition.
func (h *Handle) SetUsageState(s gpucore.ResourceState) {
	h.mu.Lock()
	h.usageState = s
	h.transitioningState = NoTransition
	h.mu.Unlock()
}

// BeginTransition records that a split barrier towards s has been issued.
func (h *Handle) BeginTransition(s gpucore.ResourceState) {
	h.mu.Lock()
	h.transitioningState = s
	h.mu.Unlock()
}

// EndTransition completes a transition started by BeginTransition.
func (h *Handle) EndTransition() {
	h.mu.Lock()
	if h.transitioningState != NoTransition {
		h.usageState = h.transitioningState
		h.transitioningState = NoTransition
	}
	h.mu.Unlock()
}

// Transition records a barrier from the current usage state to s into list
// and updates the bookkeeping. It records nothing if the state is unchanged.
func (h *Handle) Transition(list gpucore.CommandList, s gpucore.ResourceState) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		panic(fmt.Sprintf("resource: transition of destroyed handle %q", h.name))
	}
	before := h.usageState
	res := h.res
	h.usageState = s
	h.transitioningState = NoTransition
	h.mu.Unlock()

	if before == s {
		return
	}
	list.ResourceBarrier(gpucore.ResourceBarrier{Resource: res, Before: before, After: s})
}

// Move transfers ownership to a new handle. The receiver is left destroyed
// without releasing the resource. An open mapping moves with it.
func (h *Handle) Move() *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		panic(fmt.Sprintf("resource: move of destroyed handle %q", h.name))
	}
	moved := &Handle{
		res:                h.res,
		name:               h.name,
		size:               h.size,
		gpuAddress:         h.gpuAddress,
		usageState:         h.usageState,
		transitioningState: h.transitioningState,
		mapping:            h.mapping,
	}
	if moved.mapping != nil {
		moved.mapping.owner = moved
	}
	h.res = nil
	h.mapping = nil
	h.gpuAddress = 0
	h.destroyed = true
	return moved
}

// Destroy unmaps and releases the resource and clears its GPU address.
// Calling Destroy more than once is a no-op.
func (h *Handle) Destroy() {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.destroyed = true
	res := h.res
	mapped := h.mapping != nil
	if mapped {
		h.mapping.data = nil
		h.mapping.closed = true
		h.mapping = nil
	}
	h.res = nil
	h.gpuAddress = 0
	h.mu.Unlock()

	if mapped {
		res.Unmap()
	}
	res.Release()
	glog.Logger().Debug("resource: destroyed", "name", h.name, "size", h.size)
}

// Map maps the resource for CPU writes. The mapping stays valid until it is
// closed or the handle is destroyed, whichever happens first.
func (h *Handle) Map() (*Mapping, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		panic(fmt.Sprintf("resource: map of destroyed handle %q", h.name))
	}
	if h.mapping != nil {
		return nil, ErrAlreadyMapped
	}
	data, err := h.res.Map()
	if err != nil {
		return nil, fmt.Errorf("map %q: %w", h.name, err)
	}
	h.mapping = &Mapping{owner: h, data: data}
	return h.mapping, nil
}

// noCopy may be embedded into structs which must not be copied after first
// use. It is recognized by go vet's copylocks checker.
type noCopy struct{}

// Lock is a no-op used by go vet's copylocks checker.
func (*noCopy) Lock() {}

// Unlock is a no-op used by go vet's copylocks checker.
func (*noCopy) Unlock() {}
