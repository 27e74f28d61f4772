// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pagealloc

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/gogpu/gpuframe/backend/software"
)

// fences is a FenceTracker completed up to a settable value.
type fences struct {
	mu        sync.Mutex
	completed uint64
}

func (f *fences) IsFenceComplete(v uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return v <= f.completed
}

func (f *fences) complete(v uint64) {
	f.mu.Lock()
	f.completed = v
	f.mu.Unlock()
}

func newManager(t *testing.T, class Class, opts ...Option) (*PageManager, *fences, *software.Device) {
	t.Helper()
	d := software.New()
	f := &fences{}
	m := NewPageManager(d, class, f, opts...)
	t.Cleanup(func() {
		m.Close()
		d.Close()
	})
	return m, f, d
}

func mustAllocate(t *testing.T, a *Allocator, size, alignment uint64) Allocation {
	t.Helper()
	alloc, err := a.Allocate(size, alignment)
	if err != nil {
		t.Fatalf("Allocate(%d, %d) error = %v", size, alignment, err)
	}
	return alloc
}

func TestAllocateOffsets(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive)
	if m.PageSize() != 65536 {
		t.Fatalf("PageSize() = %d, want 65536", m.PageSize())
	}
	a := NewAllocator(m)

	first := mustAllocate(t, a, 100, 256)
	second := mustAllocate(t, a, 50, 256)
	if first.Offset != 0 {
		t.Errorf("first Offset = %d, want 0", first.Offset)
	}
	if second.Offset != 256 {
		t.Errorf("second Offset = %d, want 256", second.Offset)
	}
	if first.Size != 256 || second.Size != 256 {
		t.Errorf("sizes = %d, %d, want 256, 256", first.Size, second.Size)
	}
	if first.Page != second.Page {
		t.Error("allocations came from different pages")
	}
	if second.GPUAddress != first.Page.GPUAddress()+256 {
		t.Errorf("GPUAddress = %#x, want page base + 256", second.GPUAddress)
	}
	if first.CPU != nil {
		t.Error("GPU-exclusive allocation has a CPU view")
	}
}

func TestAllocateAlignment(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive)
	a := NewAllocator(m)

	tests := []struct {
		size, alignment uint64
		wantOffset      uint64
		wantSize        uint64
	}{
		{3, 4, 0, 4},
		{1, 16, 16, 16},
		{10, 1, 32, 10},
		{0, 512, 512, 0},
		{1, 512, 512, 512},
	}
	for _, tt := range tests {
		got := mustAllocate(t, a, tt.size, tt.alignment)
		if got.Offset != tt.wantOffset || got.Size != tt.wantSize {
			t.Errorf("Allocate(%d, %d) = offset %d size %d, want offset %d size %d",
				tt.size, tt.alignment, got.Offset, got.Size, tt.wantOffset, tt.wantSize)
		}
	}
}

func TestAllocateBadAlignmentPanics(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive)
	a := NewAllocator(m)
	for _, alignment := range []uint64{0, 3, 100} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Allocate(1, %d) did not panic", alignment)
				}
			}()
			_, _ = a.Allocate(1, alignment)
		}()
	}
}

func TestAllocateSizeOverflow(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive)
	a := NewAllocator(m)
	tests := []struct {
		size, alignment uint64
	}{
		{math.MaxUint64 - 10, 256},
		{math.MaxUint64, 2},
		{1<<63 + 1, 1 << 63},
	}
	for _, tt := range tests {
		got, err := a.Allocate(tt.size, tt.alignment)
		if !errors.Is(err, ErrSizeOverflow) {
			t.Errorf("Allocate(%d, %d) = size %d offset %d err %v, want ErrSizeOverflow",
				tt.size, tt.alignment, got.Size, got.Offset, err)
		}
	}
	if n := a.PagesInUse(); n != 0 {
		t.Errorf("PagesInUse() = %d after failed allocations, want 0", n)
	}
	if s := m.Stats(); s.PagesCreated != 0 || s.LargeCreated != 0 {
		t.Errorf("pages created after failed allocations: %+v", s)
	}
}

func TestAllocateAlignmentBeyondPage(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive, WithPageSize(4096))
	a := NewAllocator(m)
	mustAllocate(t, a, 100, 4)

	got := mustAllocate(t, a, 0, 8192)
	if got.Offset != 0 {
		t.Errorf("Offset = %d, want 0 on a fresh page", got.Offset)
	}
	if got.Offset+got.Size > got.Page.Size() {
		t.Errorf("allocation [%d, %d) runs past page size %d", got.Offset, got.Offset+got.Size, got.Page.Size())
	}
	if n := a.PagesInUse(); n != 2 {
		t.Errorf("PagesInUse() = %d, want 2", n)
	}
}

func TestAllocateNoOverlap(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive, WithPageSize(4096))
	a := NewAllocator(m)
	rng := rand.New(rand.NewSource(1))

	type span struct{ start, end uint64 }
	byPage := make(map[*Page][]span)
	for i := 0; i < 500; i++ {
		size := uint64(rng.Intn(1500))
		alignment := uint64(1) << rng.Intn(9)
		got := mustAllocate(t, a, size, alignment)
		if got.Offset%alignment != 0 {
			t.Fatalf("Allocate(%d, %d) offset %d is misaligned", size, alignment, got.Offset)
		}
		if got.Offset+got.Size > got.Page.Size() {
			t.Fatalf("allocation [%d, %d) exceeds page size %d", got.Offset, got.Offset+got.Size, got.Page.Size())
		}
		byPage[got.Page] = append(byPage[got.Page], span{got.Offset, got.Offset + got.Size})
	}
	for _, spans := range byPage {
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		for i := 1; i < len(spans); i++ {
			if spans[i].start < spans[i-1].end {
				t.Fatalf("overlapping allocations [%d, %d) and [%d, %d)",
					spans[i-1].start, spans[i-1].end, spans[i].start, spans[i].end)
			}
		}
	}
}

func TestPageOverflowStartsNewPage(t *testing.T) {
	m, _, _ := newManager(t, ClassGPUExclusive, WithPageSize(1024))
	a := NewAllocator(m)
	first := mustAllocate(t, a, 768, 256)
	second := mustAllocate(t, a, 512, 256)
	if first.Page == second.Page {
		t.Fatal("overflowing allocation shares the full page")
	}
	if second.Offset != 0 {
		t.Errorf("Offset = %d on a fresh page, want 0", second.Offset)
	}
	if a.PagesInUse() != 2 {
		t.Errorf("PagesInUse() = %d, want 2", a.PagesInUse())
	}
}

func TestLargePageNeverReused(t *testing.T) {
	m, f, d := newManager(t, ClassGPUExclusive)
	a := NewAllocator(m)

	big := mustAllocate(t, a, 100<<10, 256)
	if big.Offset != 0 || big.Size != 100<<10 || big.Page.Size() != 100<<10 {
		t.Fatalf("large allocation = offset %d size %d page %d", big.Offset, big.Size, big.Page.Size())
	}
	a.CleanupUsedPages(1)
	f.complete(1)

	for i := 0; i < 4; i++ {
		p, err := m.RequestPage()
		if err != nil {
			t.Fatalf("RequestPage() error = %v", err)
		}
		if p == big.Page {
			t.Fatal("RequestPage() returned a large page")
		}
	}

	// The next cleanup drains the deletion queue.
	live := d.LiveResources()
	a.CleanupUsedPages(2)
	if got := d.LiveResources(); got != live-1 {
		t.Errorf("LiveResources() = %d after freeing large page, want %d", got, live-1)
	}
	if !big.Page.Handle().Destroyed() {
		t.Error("large page not destroyed after its fence completed")
	}
	if s := m.Stats(); s.LargeCreated != 1 || s.LargeFreed != 1 || s.LargePending != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestRetiredPageWaitsForFence(t *testing.T) {
	m, f, _ := newManager(t, ClassCPUWritable, WithPageSize(4096))
	a := NewAllocator(m)
	used := mustAllocate(t, a, 64, 256).Page
	a.CleanupUsedPages(10)

	for completed := uint64(0); completed < 10; completed++ {
		f.complete(completed)
		p, err := m.RequestPage()
		if err != nil {
			t.Fatalf("RequestPage() error = %v", err)
		}
		if p == used {
			t.Fatalf("page retired under fence 10 reused at completed %d", completed)
		}
	}

	f.complete(10)
	p, err := m.RequestPage()
	if err != nil {
		t.Fatalf("RequestPage() error = %v", err)
	}
	if p != used {
		t.Error("retired page not reused once its fence completed")
	}
	if s := m.Stats(); s.PagesReused != 1 {
		t.Errorf("PagesReused = %d, want 1", s.PagesReused)
	}
}

func TestFreeLargePagesHeadOnly(t *testing.T) {
	m, f, _ := newManager(t, ClassGPUExclusive)
	late, err := m.CreateNewPage(128 << 10)
	if err != nil {
		t.Fatalf("CreateNewPage() error = %v", err)
	}
	early, err := m.CreateNewPage(128 << 10)
	if err != nil {
		t.Fatalf("CreateNewPage() error = %v", err)
	}
	m.FreeLargePages(5, []*Page{late})
	m.FreeLargePages(3, []*Page{early})

	f.complete(4)
	m.FreeLargePages(4, nil)
	if early.Handle().Destroyed() {
		t.Error("entry behind a pending head was collected")
	}
	if s := m.Stats(); s.LargePending != 2 {
		t.Errorf("LargePending = %d, want 2", s.LargePending)
	}

	f.complete(5)
	m.FreeLargePages(5, nil)
	if !late.Handle().Destroyed() || !early.Handle().Destroyed() {
		t.Error("large pages not destroyed once the head completed")
	}
}

func TestCleanupWithoutCurrentPageFreesLargePages(t *testing.T) {
	m, f, _ := newManager(t, ClassGPUExclusive)
	a := NewAllocator(m)
	big := mustAllocate(t, a, 1<<20, 256)
	a.CleanupUsedPages(1)
	f.complete(1)
	a.CleanupUsedPages(2)
	if !big.Page.Handle().Destroyed() {
		t.Error("large page leaked when no regular page was in use")
	}
}

func TestCPUWritableView(t *testing.T) {
	m, _, _ := newManager(t, ClassCPUWritable)
	if m.PageSize() != 2<<20 {
		t.Fatalf("PageSize() = %d, want %d", m.PageSize(), 2<<20)
	}
	a := NewAllocator(m)
	mustAllocate(t, a, 16, 256)
	got := mustAllocate(t, a, 5, 256)
	copy(got.CPU, "hello")
	if string(got.Page.CPU()[256:261]) != "hello" {
		t.Error("CPU view does not alias the page mapping")
	}
	if len(got.CPU) != 256 || cap(got.CPU) != 256 {
		t.Errorf("CPU view len %d cap %d, want 256", len(got.CPU), cap(got.CPU))
	}
	if got.Page.Handle().UsageState().String() != "GenericRead" {
		t.Errorf("CPU page state = %v, want GenericRead", got.Page.Handle().UsageState())
	}
}

func TestCloseReleasesPages(t *testing.T) {
	d := software.New()
	defer d.Close()
	f := &fences{}
	m := NewPageManager(d, ClassCPUWritable, f, WithPageSize(4096))
	a := NewAllocator(m)
	mustAllocate(t, a, 100, 256)
	mustAllocate(t, a, 8192, 256)
	a.CleanupUsedPages(1)
	mustAllocate(t, a, 100, 256)

	m.Close()
	if got := d.LiveResources(); got != 0 {
		t.Errorf("LiveResources() = %d after Close, want 0", got)
	}
	if v := d.Violations(); len(v) != 0 {
		t.Errorf("Violations() = %v", v)
	}
}

func TestAllocateError(t *testing.T) {
	m, _, d := newManager(t, ClassGPUExclusive)
	a := NewAllocator(m)
	d.FailAllocations(1)
	_, err := a.Allocate(64, 256)
	if !errors.Is(err, software.ErrOutOfMemory) {
		t.Errorf("Allocate() error = %v, want ErrOutOfMemory", err)
	}
	if _, err := a.Allocate(64, 256); err != nil {
		t.Errorf("Allocate() after failure error = %v", err)
	}
}

func TestManagerConcurrent(t *testing.T) {
	m, f, _ := newManager(t, ClassGPUExclusive, WithPageSize(1024))
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			a := NewAllocator(m)
			for frame := uint64(1); frame <= 20; frame++ {
				for i := 0; i < 8; i++ {
					if _, err := a.Allocate(200, 256); err != nil {
						t.Errorf("Allocate() error = %v", err)
						return
					}
				}
				a.CleanupUsedPages(frame)
			}
		}(g)
	}
	f.complete(20)
	wg.Wait()
	if s := m.Stats(); s.PagesCreated == 0 {
		t.Errorf("Stats() = %+v, want pages created", s)
	}
}

func TestClassString(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{ClassGPUExclusive, "GPUExclusive"},
		{ClassCPUWritable, "CPUWritable"},
		{Class(7), "Unknown(7)"},
	}
	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
