// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pagealloc

import (
	"errors"
	"fmt"
	"math"
)

// ErrSizeOverflow is returned when an allocation size rounded up to its
// alignment does not fit in 64 bits.
var ErrSizeOverflow = errors.New("pagealloc: allocation size overflows")

// Allocation is a view of a byte range inside a page. It is valid until the
// allocator that returned it calls CleanupUsedPages and the fence passed
// there completes.
type Allocation struct {
	Page   *Page
	Offset uint64
	Size   uint64

	// CPU is the mapped range for CPU-writable pages, nil otherwise.
	CPU []byte

	// GPUAddress is the page GPU base address plus Offset.
	GPUAddress uint64
}

// Allocator carves aligned allocations out of pages of one class.
//
// Allocator is not safe for concurrent use. Use one per recording context.
type Allocator struct {
	mgr *PageManager

	cur    *Page
	offset uint64
	used   []*Page
	large  []*Page
}

// NewAllocator creates an allocator backed by mgr.
func NewAllocator(mgr *PageManager) *Allocator {
	return &Allocator{mgr: mgr}
}

// Manager returns the page manager backing the allocator.
func (a *Allocator) Manager() *PageManager { return a.mgr }

// Allocate returns size bytes aligned to alignment. The size is rounded up
// to a multiple of alignment. Sizes above the page size get a dedicated large
// page. It panics if alignment is not a power of two and returns
// ErrSizeOverflow if the rounded size does not fit in 64 bits.
func (a *Allocator) Allocate(size, alignment uint64) (Allocation, error) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		panic(fmt.Sprintf("pagealloc: alignment %d is not a power of two", alignment))
	}
	if size > math.MaxUint64-(alignment-1) {
		return Allocation{}, fmt.Errorf("%w: size %d, alignment %d", ErrSizeOverflow, size, alignment)
	}
	aligned := alignUp(size, alignment)

	if aligned > a.mgr.PageSize() {
		p, err := a.mgr.CreateNewPage(aligned)
		if err != nil {
			return Allocation{}, err
		}
		a.large = append(a.large, p)
		return view(p, 0, aligned), nil
	}

	// aligned <= page size here, so cur.size-aligned cannot wrap.
	if next := alignUp(a.offset, alignment); a.cur != nil && (next < a.offset || next > a.cur.size-aligned) {
		a.used = append(a.used, a.cur)
		a.cur = nil
	}
	if a.cur == nil {
		p, err := a.mgr.RequestPage()
		if err != nil {
			return Allocation{}, err
		}
		a.cur = p
		a.offset = 0
	}
	a.offset = alignUp(a.offset, alignment)

	alloc := view(a.cur, a.offset, aligned)
	a.offset += aligned
	return alloc, nil
}

// CleanupUsedPages retires every page used since the last call under fence.
// Call it once per context turn, after the work that reads the allocations
// was submitted under fence.
func (a *Allocator) CleanupUsedPages(fence uint64) {
	if a.cur != nil {
		a.used = append(a.used, a.cur)
		a.cur = nil
		a.offset = 0
	}
	if len(a.used) > 0 {
		a.mgr.DiscardPages(fence, a.used)
		a.used = nil
	}
	a.mgr.FreeLargePages(fence, a.large)
	a.large = nil
}

// PagesInUse returns the number of regular pages the allocator holds.
func (a *Allocator) PagesInUse() int {
	n := len(a.used)
	if a.cur != nil {
		n++
	}
	return n
}

func view(p *Page, offset, size uint64) Allocation {
	alloc := Allocation{
		Page:       p,
		Offset:     offset,
		Size:       size,
		GPUAddress: p.gpuBase + offset,
	}
	if p.cpu != nil {
		alloc.CPU = p.cpu[offset : offset+size : offset+size]
	}
	return alloc
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}
