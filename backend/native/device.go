// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/glog"
	"github.com/gogpu/wgpu/hal"

	// Register the Vulkan HAL backend for standalone devices.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

var (
	// ErrNoAdapter is returned when the HAL reports no usable adapter.
	ErrNoAdapter = errors.New("native: no GPU adapters found")

	// ErrNilProvider is returned when NewFromProvider gets a nil provider.
	ErrNilProvider = errors.New("native: nil DeviceProvider")

	errForeignObject = errors.New("native: object was not created by this backend")
)

// Synthetic GPU addresses start here and advance in 64 KiB steps.
const (
	addressBase  = 0x1_0000_0000
	addressAlign = 64 << 10

	// copyAlignment is the HAL requirement for buffer copy sizes.
	copyAlignment = 4
)

// Device implements gpucore.Device over a hal.Device and hal.Queue.
//
// Device is safe for concurrent use.
type Device struct {
	raw   hal.Device
	queue hal.Queue

	// Set for standalone devices, destroyed by Close.
	instance hal.Instance
	owned    bool

	nextAddr atomic.Uint64
	lost     atomic.Bool
	submitMu sync.Mutex

	mu     sync.Mutex
	mapped map[*Resource]struct{}
	closed bool
}

// New wraps an existing HAL device and queue. The caller keeps ownership of
// both.
func New(device hal.Device, queue hal.Queue) *Device {
	d := &Device{
		raw:    device,
		queue:  queue,
		mapped: make(map[*Resource]struct{}),
	}
	d.nextAddr.Store(addressBase)
	return d
}

// NewFromProvider wraps the HAL device of a gpucontext provider such as a
// gogpu window. The provider must expose HalDevice() any and HalQueue() any.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("native: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("native: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("native: provider HalQueue is not hal.Queue")
	}
	return New(device, queue), nil
}

// NewStandalone opens a Vulkan device, preferring discrete and integrated
// GPUs. Close destroys it.
func NewStandalone() (*Device, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("native: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("native: create instance: %w", err)
	}
	return open(instance)
}

// open creates a Device on the best adapter of instance. The Device owns the
// instance on success; on failure the instance is destroyed.
func open(instance hal.Instance) (*Device, error) {
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}

	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	d := New(openDev.Device, openDev.Queue)
	d.instance = instance
	d.owned = true
	glog.Logger().Info("native: device opened", "adapter", selected.Info.Name)
	return d, nil
}

// Raw returns the wrapped HAL device.
func (d *Device) Raw() hal.Device { return d.raw }

// CreateCommandQueue returns a view of the shared HAL queue for engine.
func (d *Device) CreateCommandQueue(engine gpucore.EngineType) (gpucore.CommandQueue, error) {
	if !engine.Valid() {
		return nil, fmt.Errorf("native: invalid engine %v", engine)
	}
	if d.Lost() {
		return nil, gpucore.ErrDeviceLost
	}
	return &Queue{device: d, engine: engine}, nil
}

// CreateFence creates a HAL fence whose completed value starts at initial.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	if d.Lost() {
		return nil, gpucore.ErrDeviceLost
	}
	raw, err := d.raw.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("native: create fence: %w", err)
	}
	return newFence(d, raw, initial), nil
}

// CreateCommandAllocator creates an allocator for engine.
func (d *Device) CreateCommandAllocator(engine gpucore.EngineType) (gpucore.CommandAllocator, error) {
	if !engine.Valid() {
		return nil, fmt.Errorf("native: invalid engine %v", engine)
	}
	if d.Lost() {
		return nil, gpucore.ErrDeviceLost
	}
	return &Allocator{device: d, engine: engine}, nil
}

// CreateCommandList creates a list recording into alloc.
func (d *Device) CreateCommandList(engine gpucore.EngineType, alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	a, ok := alloc.(*Allocator)
	if !ok || a.device != d {
		return nil, errForeignObject
	}
	if a.engine != engine {
		return nil, fmt.Errorf("%w: list %v, allocator %v", gpucore.ErrEngineMismatch, engine, a.engine)
	}
	if d.Lost() {
		return nil, gpucore.ErrDeviceLost
	}
	l := &CommandList{device: d, engine: engine}
	if err := d.beginList(l, a); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateCommittedResource creates a HAL buffer. Upload heap resources get a
// host copy that backs Map.
func (d *Device) CreateCommittedResource(desc *gpucore.ResourceDesc) (gpucore.Resource, error) {
	if desc == nil || desc.Size == 0 {
		return nil, fmt.Errorf("native: invalid resource descriptor")
	}
	if d.Lost() {
		return nil, gpucore.ErrDeviceLost
	}
	usage := desc.Usage
	if usage == 0 {
		usage = gpucore.DeviceLocalUsage
		if desc.Heap == gpucore.HeapUpload {
			usage = gpucore.UploadUsage
		}
	}
	alignedSize := (desc.Size + copyAlignment - 1) &^ (copyAlignment - 1)
	raw, err := d.raw.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  alignedSize,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer: %w", err)
	}

	r := &Resource{
		device: d,
		raw:    raw,
		heap:   desc.Heap,
		size:   desc.Size,
		name:   desc.Label,
	}
	if desc.Heap == gpucore.HeapUpload {
		r.shadow = make([]byte, alignedSize)
	}
	span := (desc.Size + addressAlign - 1) &^ (addressAlign - 1)
	r.addr = d.nextAddr.Add(span) - span
	return r, nil
}

// trackMapped adds or removes r from the set flushed before each submission.
func (d *Device) trackMapped(r *Resource, mapped bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if mapped {
		d.mapped[r] = struct{}{}
	} else {
		delete(d.mapped, r)
	}
}

func (d *Device) flushMapped() {
	d.mu.Lock()
	resources := make([]*Resource, 0, len(d.mapped))
	for r := range d.mapped {
		resources = append(resources, r)
	}
	d.mu.Unlock()
	for _, r := range resources {
		r.flush()
	}
}

// markLost records a driver error that ends the device.
func (d *Device) markLost(err error) {
	if d.lost.CompareAndSwap(false, true) {
		glog.Logger().Error("native: device lost", "error", err)
	}
}

// Lost reports whether a driver error was observed.
func (d *Device) Lost() bool { return d.lost.Load() }

// Close destroys a standalone device. Wrapped devices are left to their owner.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	if d.owned {
		d.raw.Destroy()
		d.instance.Destroy()
	}
	return nil
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
