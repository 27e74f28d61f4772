// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/backend/software"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/pagealloc"
)

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	ctx, err := Open(backend.Software, opts...)
	if err != nil {
		t.Fatalf("Open(software) error = %v", err)
	}
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func newPausableContext(t *testing.T, dev *software.Device, opts ...Option) *Context {
	t.Helper()
	ctx, err := NewContext(dev, opts...)
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() {
		_ = ctx.Close()
		dev.Close()
	})
	return ctx
}

func TestOpen(t *testing.T) {
	ctx := newTestContext(t)
	if ctx.Backend() != backend.Software {
		t.Errorf("Backend() = %q, want %q", ctx.Backend(), backend.Software)
	}
	if ctx.FramesInFlight() != 2 {
		t.Errorf("FramesInFlight() = %d, want 2", ctx.FramesInFlight())
	}
	if ctx.Uploads().Capacity() != 256 {
		t.Errorf("staging capacity = %d, want 256", ctx.Uploads().Capacity())
	}
	if got := ctx.PageManager(pagealloc.ClassGPUExclusive).PageSize(); got != 64<<10 {
		t.Errorf("GPU page size = %d, want %d", got, 64<<10)
	}
	if got := ctx.PageManager(pagealloc.ClassCPUWritable).PageSize(); got != 2<<20 {
		t.Errorf("CPU page size = %d, want %d", got, 2<<20)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("nonexistent"); !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestOptions(t *testing.T) {
	ctx := newTestContext(t,
		WithFramesInFlight(3),
		WithStagingCapacity(8),
		WithPageSizes(4096, 8192),
		WithFramesInFlight(0), // ignored
	)
	if ctx.FramesInFlight() != 3 {
		t.Errorf("FramesInFlight() = %d, want 3", ctx.FramesInFlight())
	}
	if ctx.Uploads().Capacity() != 8 {
		t.Errorf("staging capacity = %d, want 8", ctx.Uploads().Capacity())
	}
	if got := ctx.PageManager(pagealloc.ClassGPUExclusive).PageSize(); got != 4096 {
		t.Errorf("GPU page size = %d, want 4096", got)
	}
	if got := ctx.PageManager(pagealloc.ClassCPUWritable).PageSize(); got != 8192 {
		t.Errorf("CPU page size = %d, want 8192", got)
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newTextLogger(&buf)
	newTestContext(t, WithLogger(l))
	if !strings.Contains(buf.String(), "context created") {
		t.Errorf("context did not log through WithLogger: %q", buf.String())
	}
}

func TestFrameLoopRecyclesPages(t *testing.T) {
	ctx := newTestContext(t, WithPageSizes(4096, 4096))
	var last uint64
	for i := 0; i < 50; i++ {
		f, err := ctx.BeginFrame()
		if err != nil {
			t.Fatalf("frame %d: BeginFrame() error = %v", i, err)
		}
		if f.Index() != uint64(i) {
			t.Fatalf("Index() = %d, want %d", f.Index(), i)
		}
		for j := 0; j < 3; j++ {
			if _, err := f.AllocateCPU(1000, 256); err != nil {
				t.Fatalf("AllocateCPU() error = %v", err)
			}
			if _, err := f.AllocateGPU(1000, 256); err != nil {
				t.Fatalf("AllocateGPU() error = %v", err)
			}
		}
		fence, err := f.Submit()
		if err != nil {
			t.Fatalf("frame %d: Submit() error = %v", i, err)
		}
		if fence <= last {
			t.Fatalf("Submit() fence %#x not above %#x", fence, last)
		}
		last = fence
	}

	s := ctx.Stats()
	if s.Frames != 50 {
		t.Errorf("Frames = %d, want 50", s.Frames)
	}
	// Frames in flight bound how many pages can be outstanding.
	if s.CPUPages.PagesCreated > 6 || s.GPUPages.PagesCreated > 6 {
		t.Errorf("pages not recycled: %v", s)
	}
	if s.Allocators[gpucore.EngineGraphics].Created > 3 {
		t.Errorf("graphics allocators not recycled: %v", s.Allocators[gpucore.EngineGraphics])
	}
	if !strings.Contains(s.String(), "frames: 50") {
		t.Errorf("String() = %q", s.String())
	}
}

func TestBeginFrameWaitsForSlot(t *testing.T) {
	dev := software.New(software.WithEnginesPaused(gpucore.EngineGraphics))
	ctx := newPausableContext(t, dev, WithFramesInFlight(2))

	for i := 0; i < 2; i++ {
		f, err := ctx.BeginFrame()
		if err != nil {
			t.Fatalf("BeginFrame() error = %v", err)
		}
		if _, err := f.Submit(); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	began := make(chan error, 1)
	go func() {
		f, err := ctx.BeginFrame()
		if err == nil {
			_, err = f.Submit()
		}
		began <- err
	}()

	select {
	case <-began:
		t.Fatal("BeginFrame() returned while the slot's frame was still on the GPU")
	case <-time.After(20 * time.Millisecond):
	}

	dev.Queue(gpucore.EngineGraphics).Resume()
	select {
	case err := <-began:
		if err != nil {
			t.Fatalf("BeginFrame() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("BeginFrame() did not return after the GPU caught up")
	}
	if v := dev.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
}

func TestBeginFrameSlotActive(t *testing.T) {
	ctx := newTestContext(t, WithFramesInFlight(1))
	f, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	if _, err := ctx.BeginFrame(); !errors.Is(err, ErrFrameActive) {
		t.Errorf("second BeginFrame() error = %v, want ErrFrameActive", err)
	}
	if _, err := f.Submit(); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := f.Submit(); !errors.Is(err, ErrFrameSubmitted) {
		t.Errorf("second Submit() error = %v, want ErrFrameSubmitted", err)
	}
	if _, err := f.AllocateCPU(16, 256); !errors.Is(err, ErrFrameSubmitted) {
		t.Errorf("AllocateCPU() after Submit error = %v, want ErrFrameSubmitted", err)
	}
}

func TestSubmitFailurePoisonsContext(t *testing.T) {
	dev := software.New()
	ctx := newPausableContext(t, dev)

	f, err := ctx.BeginFrame()
	if err != nil {
		t.Fatalf("BeginFrame() error = %v", err)
	}
	dev.Lose()
	_, err = f.Submit()
	if !errors.Is(err, ErrContextFailed) || !errors.Is(err, gpucore.ErrDeviceLost) {
		t.Fatalf("Submit() error = %v, want ErrContextFailed wrapping ErrDeviceLost", err)
	}
	if _, err := ctx.BeginFrame(); !errors.Is(err, ErrContextFailed) {
		t.Errorf("BeginFrame() after failure error = %v, want ErrContextFailed", err)
	}
	if !errors.Is(ctx.Err(), gpucore.ErrDeviceLost) {
		t.Errorf("Err() = %v, want ErrDeviceLost", ctx.Err())
	}
}

func TestFlushUploads(t *testing.T) {
	ctx := newTestContext(t)
	data := []byte("vertex data 0123")
	buf, err := ctx.Uploads().CreateOnGPU("Vertices", 4, 4, data)
	if err != nil {
		t.Fatalf("CreateOnGPU() error = %v", err)
	}
	if err := ctx.FlushUploads(true); err != nil {
		t.Fatalf("FlushUploads() error = %v", err)
	}
	s := ctx.Stats()
	if s.Uploads.Staged != 0 || s.Uploads.Batches != 1 {
		t.Errorf("Uploads = %+v, want batch executed and reset", s.Uploads)
	}
	got := buf.Resource().(*software.Resource).Contents()
	if !bytes.Equal(got, data) {
		t.Errorf("buffer contents = %q, want %q", got, data)
	}
	buf.Destroy()
}

func TestCloseReleasesEverything(t *testing.T) {
	ctx, err := Open(backend.Software)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dev := ctx.Device().(*software.Device)

	if _, err := ctx.Uploads().CreateOnGPU("pending", 1, 4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("CreateOnGPU() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		f, err := ctx.BeginFrame()
		if err != nil {
			t.Fatalf("BeginFrame() error = %v", err)
		}
		_, _ = f.AllocateGPU(128<<10, 256)
		_, _ = f.AllocateCPU(64, 256)
		if _, err := f.Submit(); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}
	f, _ := ctx.BeginFrame()
	_, _ = f.AllocateCPU(64, 256)

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	// The destination buffer belongs to the caller; everything else is gone.
	if got := dev.LiveResources(); got != 1 {
		t.Errorf("LiveResources() after Close = %d, want 1", got)
	}
	if v := dev.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
	if _, err := ctx.BeginFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame() after Close error = %v, want ErrClosed", err)
	}
}

func TestLinearAllocatorOutsideFrames(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.NewLinearAllocator(pagealloc.ClassCPUWritable)
	alloc, err := a.Allocate(100, ConstantAlignment)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if alloc.CPU == nil || alloc.GPUAddress == 0 {
		t.Errorf("allocation = %+v, want CPU view and GPU address", alloc)
	}
	a.CleanupUsedPages(ctx.Queues().Graphics().LastSubmittedFenceValue())
	if s := ctx.Stats(); s.CPUPages.PagesRetired != 1 {
		t.Errorf("PagesRetired = %d, want 1", s.CPUPages.PagesRetired)
	}
}
