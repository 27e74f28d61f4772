// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"errors"
	"testing"

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/wgpu/hal/noop"
)

// newNoopDevice opens a Device on the noop HAL backend.
func newNoopDevice(t *testing.T) *Device {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	d, err := open(instance)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestCreateCommittedResource(t *testing.T) {
	d := newNoopDevice(t)

	gpu, err := d.CreateCommittedResource(&gpucore.ResourceDesc{Label: "gpu", Size: 100, Heap: gpucore.HeapDeviceLocal})
	if err != nil {
		t.Fatalf("CreateCommittedResource failed: %v", err)
	}
	defer gpu.Release()
	cpu, err := d.CreateCommittedResource(&gpucore.ResourceDesc{Label: "cpu", Size: 70 << 10, Heap: gpucore.HeapUpload})
	if err != nil {
		t.Fatalf("CreateCommittedResource failed: %v", err)
	}
	defer cpu.Release()

	if gpu.Size() != 100 {
		t.Errorf("Size() = %d, want 100", gpu.Size())
	}
	if gpu.GPUAddress()%addressAlign != 0 || cpu.GPUAddress()%addressAlign != 0 {
		t.Errorf("addresses %#x, %#x are not 64 KiB aligned", gpu.GPUAddress(), cpu.GPUAddress())
	}
	if cpu.GPUAddress() < gpu.GPUAddress()+addressAlign {
		t.Errorf("addresses overlap: %#x then %#x", gpu.GPUAddress(), cpu.GPUAddress())
	}

	if _, err := gpu.Map(); !errors.Is(err, gpucore.ErrNotMappable) {
		t.Errorf("Map(device-local) error = %v, want ErrNotMappable", err)
	}
	data, err := cpu.Map()
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if len(data) != 70<<10 {
		t.Errorf("len(Map()) = %d, want %d", len(data), 70<<10)
	}
	data[0] = 0xAB
	cpu.Unmap()
	cpu.Unmap()

	if _, err := d.CreateCommittedResource(&gpucore.ResourceDesc{Heap: gpucore.HeapUpload}); err == nil {
		t.Error("expected error for zero-sized resource")
	}
}

func TestReleaseTwice(t *testing.T) {
	d := newNoopDevice(t)
	r, err := d.CreateCommittedResource(&gpucore.ResourceDesc{Size: 64, Heap: gpucore.HeapUpload})
	if err != nil {
		t.Fatalf("CreateCommittedResource failed: %v", err)
	}
	if _, err := r.Map(); err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	r.Release()
	r.Release()
	if n := len(d.mapped); n != 0 {
		t.Errorf("mapped set has %d entries after Release, want 0", n)
	}
}

func TestCommandListStates(t *testing.T) {
	d := newNoopDevice(t)
	alloc, err := d.CreateCommandAllocator(gpucore.EngineCopy)
	if err != nil {
		t.Fatalf("CreateCommandAllocator failed: %v", err)
	}
	defer alloc.Destroy()

	list, err := d.CreateCommandList(gpucore.EngineCopy, alloc)
	if err != nil {
		t.Fatalf("CreateCommandList failed: %v", err)
	}
	defer list.Destroy()

	if err := list.Reset(alloc); !errors.Is(err, gpucore.ErrListNotClosed) {
		t.Errorf("Reset(recording) error = %v, want ErrListNotClosed", err)
	}
	if err := list.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := list.Close(); !errors.Is(err, gpucore.ErrListClosed) {
		t.Errorf("Close(closed) error = %v, want ErrListClosed", err)
	}
	if got := len(alloc.(*Allocator).buffers); got != 1 {
		t.Errorf("allocator holds %d command buffers, want 1", got)
	}
	if err := alloc.Reset(); err != nil {
		t.Fatalf("allocator Reset failed: %v", err)
	}
	if err := list.Reset(alloc); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	gfx, err := d.CreateCommandAllocator(gpucore.EngineGraphics)
	if err != nil {
		t.Fatalf("CreateCommandAllocator failed: %v", err)
	}
	if _, err := d.CreateCommandList(gpucore.EngineCopy, gfx); !errors.Is(err, gpucore.ErrEngineMismatch) {
		t.Errorf("CreateCommandList(mismatch) error = %v, want ErrEngineMismatch", err)
	}
}

func TestRecordingIntoClosedListPanics(t *testing.T) {
	d := newNoopDevice(t)
	alloc, _ := d.CreateCommandAllocator(gpucore.EngineGraphics)
	list, err := d.CreateCommandList(gpucore.EngineGraphics, alloc)
	if err != nil {
		t.Fatalf("CreateCommandList failed: %v", err)
	}
	if err := list.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic recording a barrier into a closed list")
		}
	}()
	list.ResourceBarrier()
}

func TestSubmitAndSignal(t *testing.T) {
	d := newNoopDevice(t)

	src, _ := d.CreateCommittedResource(&gpucore.ResourceDesc{Size: 256, Heap: gpucore.HeapUpload})
	dst, _ := d.CreateCommittedResource(&gpucore.ResourceDesc{Size: 256, Heap: gpucore.HeapDeviceLocal})
	defer src.Release()
	defer dst.Release()
	if _, err := src.Map(); err != nil {
		t.Fatalf("Map failed: %v", err)
	}

	copyQ, _ := d.CreateCommandQueue(gpucore.EngineCopy)
	gfxQ, _ := d.CreateCommandQueue(gpucore.EngineGraphics)
	alloc, _ := d.CreateCommandAllocator(gpucore.EngineCopy)
	list, err := d.CreateCommandList(gpucore.EngineCopy, alloc)
	if err != nil {
		t.Fatalf("CreateCommandList failed: %v", err)
	}
	list.CopyBufferRegion(dst, 0, src, 0, 256)

	if err := copyQ.ExecuteCommandLists(list); !errors.Is(err, gpucore.ErrListNotClosed) {
		t.Errorf("ExecuteCommandLists(recording) error = %v, want ErrListNotClosed", err)
	}
	if err := list.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := gfxQ.ExecuteCommandLists(list); !errors.Is(err, gpucore.ErrEngineMismatch) {
		t.Errorf("ExecuteCommandLists(wrong engine) error = %v, want ErrEngineMismatch", err)
	}
	if err := copyQ.ExecuteCommandLists(list); err != nil {
		t.Fatalf("ExecuteCommandLists failed: %v", err)
	}

	base := gpucore.FenceBase(gpucore.EngineCopy)
	fence, err := d.CreateFence(base)
	if err != nil {
		t.Fatalf("CreateFence failed: %v", err)
	}
	defer fence.Destroy()
	if got := fence.CompletedValue(); got != base {
		t.Errorf("CompletedValue() = %#x, want %#x", got, base)
	}
	select {
	case <-fence.Done(base):
	default:
		t.Error("Done(initial) is not closed")
	}

	if err := gfxQ.Wait(fence, base+1); !errors.Is(err, ErrWaitNotSubmitted) {
		t.Errorf("Wait(unsignaled) error = %v, want ErrWaitNotSubmitted", err)
	}
	if err := copyQ.Signal(fence, base+1); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	if err := gfxQ.Wait(fence, base+1); err != nil {
		t.Errorf("Wait(signaled) error = %v", err)
	}
}

func TestNewFromProviderNil(t *testing.T) {
	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNilProvider) {
		t.Errorf("NewFromProvider(nil) error = %v, want ErrNilProvider", err)
	}
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.Native) {
		t.Error("native backend is not registered")
	}
}
