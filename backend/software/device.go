// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
)

var (
	// ErrOutOfMemory is returned by CreateCommittedResource after FailAllocations.
	ErrOutOfMemory = errors.New("software: out of device memory")

	errForeignObject = errors.New("software: object was not created by this backend")
)

// addressBase is the first simulated GPU virtual address. Resources are placed
// on 64 KiB boundaries.
const (
	addressBase  = 0x1_0000_0000
	addressAlign = 64 << 10
)

// Option configures a Device.
type Option func(*Device)

// WithEnginesPaused creates queues of the given engines paused. Work submitted
// to them is queued but not executed until Queue.Resume is called.
func WithEnginesPaused(engines ...gpucore.EngineType) Option {
	return func(d *Device) {
		for _, e := range engines {
			d.paused[e] = true
		}
	}
}

// WithExecutionDelay makes every executed command list take at least delay.
func WithExecutionDelay(delay time.Duration) Option {
	return func(d *Device) {
		d.delay = delay
	}
}

// Event is one entry of the device execution log.
type Event struct {
	// Seq orders events across all queues.
	Seq uint64

	// Engine is the engine of the queue that executed the operation.
	Engine gpucore.EngineType

	// Kind is "execute", "signal" or "wait".
	Kind string

	// Name is the command list name for "execute" events.
	Name string

	// Value is the fence value for "signal" and "wait" events.
	Value uint64
}

// Device is a simulated GPU. Each queue runs its work on its own goroutine,
// copies move real bytes between host buffers, and fences are signaled only
// when preceding work has actually run.
//
// Device is safe for concurrent use.
type Device struct {
	paused [gpucore.NumEngines]bool
	delay  time.Duration

	copyMu sync.Mutex
	seq    atomic.Uint64

	mu          sync.Mutex
	queues      [gpucore.NumEngines][]*Queue
	nextAddr    uint64
	live        map[*Resource]struct{}
	created     int
	events      []Event
	violations  []string
	failAllocs  int
	lost        bool
	allocators  int
	commandList int
}

// New creates a simulated device.
func New(opts ...Option) *Device {
	d := &Device{
		nextAddr: addressBase,
		live:     make(map[*Resource]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreateCommandQueue creates a queue with its own worker goroutine.
func (d *Device) CreateCommandQueue(engine gpucore.EngineType) (gpucore.CommandQueue, error) {
	if !engine.Valid() {
		return nil, fmt.Errorf("software: invalid engine %v", engine)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, gpucore.ErrDeviceLost
	}
	q := newQueue(d, engine, d.paused[engine])
	d.queues[engine] = append(d.queues[engine], q)
	return q, nil
}

// CreateFence creates a fence starting at initial.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	if d.Lost() {
		return nil, gpucore.ErrDeviceLost
	}
	return newFence(initial), nil
}

// CreateCommandAllocator creates a command allocator.
func (d *Device) CreateCommandAllocator(engine gpucore.EngineType) (gpucore.CommandAllocator, error) {
	if !engine.Valid() {
		return nil, fmt.Errorf("software: invalid engine %v", engine)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, gpucore.ErrDeviceLost
	}
	d.allocators++
	return &Allocator{engine: engine, device: d}, nil
}

// CreateCommandList creates a list in the recording state.
func (d *Device) CreateCommandList(engine gpucore.EngineType, alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	a, ok := alloc.(*Allocator)
	if !ok || a == nil {
		return nil, errForeignObject
	}
	if a.engine != engine {
		return nil, gpucore.ErrEngineMismatch
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, gpucore.ErrDeviceLost
	}
	d.commandList++
	return &CommandList{engine: engine, device: d, alloc: a, recording: true}, nil
}

// CreateCommittedResource creates a buffer backed by host memory.
func (d *Device) CreateCommittedResource(desc *gpucore.ResourceDesc) (gpucore.Resource, error) {
	if desc == nil || desc.Size == 0 {
		return nil, fmt.Errorf("software: invalid resource size")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return nil, gpucore.ErrDeviceLost
	}
	if d.failAllocs > 0 {
		d.failAllocs--
		return nil, fmt.Errorf("software: create %q (%d bytes): %w", desc.Label, desc.Size, ErrOutOfMemory)
	}
	r := &Resource{
		name:   desc.Label,
		heap:   desc.Heap,
		mem:    make([]byte, desc.Size),
		addr:   d.nextAddr,
		device: d,
	}
	d.nextAddr += (desc.Size + addressAlign - 1) &^ (addressAlign - 1)
	d.live[r] = struct{}{}
	d.created++
	return r, nil
}

// resourceReleased removes r from the live set.
func (d *Device) resourceReleased(r *Resource, twice bool) {
	if twice {
		d.violation("resource %q released twice", r.Name())
		return
	}
	d.mu.Lock()
	delete(d.live, r)
	d.mu.Unlock()
}

// violation records misuse that a real driver would report through its
// debug layer.
func (d *Device) violation(format string, args ...any) {
	d.mu.Lock()
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
	d.mu.Unlock()
}

// record appends an event to the execution log.
func (d *Device) record(e Event) {
	e.Seq = d.seq.Add(1)
	d.mu.Lock()
	d.events = append(d.events, e)
	d.mu.Unlock()
}

// FailAllocations makes the next n resource creations fail with ErrOutOfMemory.
func (d *Device) FailAllocations(n int) {
	d.mu.Lock()
	d.failAllocs = n
	d.mu.Unlock()
}

// Lose marks the device as lost. Every later creation or submission fails
// with gpucore.ErrDeviceLost.
func (d *Device) Lose() {
	d.mu.Lock()
	d.lost = true
	d.mu.Unlock()
}

// Lost reports whether Lose was called.
func (d *Device) Lost() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lost
}

// Queue returns the first queue created for engine, or nil.
func (d *Device) Queue(engine gpucore.EngineType) *Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !engine.Valid() || len(d.queues[engine]) == 0 {
		return nil
	}
	return d.queues[engine][0]
}

// Events returns a copy of the execution log in execution order.
func (d *Device) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Violations returns the misuse recorded so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.violations))
	copy(out, d.violations)
	return out
}

// LiveResources returns the number of resources created and not released.
func (d *Device) LiveResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// CreatedResources returns the number of resources ever created.
func (d *Device) CreatedResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// CreatedAllocators returns the number of command allocators ever created.
func (d *Device) CreatedAllocators() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocators
}

// Close stops every queue worker. Pending work is discarded.
func (d *Device) Close() {
	d.mu.Lock()
	var all []*Queue
	for _, qs := range d.queues {
		all = append(all, qs...)
	}
	d.mu.Unlock()
	for _, q := range all {
		q.Destroy()
	}
}

// Compile-time interface checks.
var (
	_ gpucore.Device           = (*Device)(nil)
	_ gpucore.CommandQueue     = (*Queue)(nil)
	_ gpucore.Fence            = (*Fence)(nil)
	_ gpucore.CommandAllocator = (*Allocator)(nil)
	_ gpucore.CommandList      = (*CommandList)(nil)
	_ gpucore.Resource         = (*Resource)(nil)
)
