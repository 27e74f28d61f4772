// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pagealloc

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fifo"
	"github.com/gogpu/gpuframe/internal/glog"
	"github.com/gogpu/gpuframe/resource"
)

// FenceTracker reports fence completion. queue.Manager implements it for
// fence values of every engine.
type FenceTracker interface {
	IsFenceComplete(v uint64) bool
}

// Option configures a PageManager.
type Option func(*PageManager)

// WithPageSize overrides the default page size of the class.
func WithPageSize(size uint64) Option {
	return func(m *PageManager) {
		if size > 0 {
			m.pageSize = size
		}
	}
}

// Stats describes a page manager.
type Stats struct {
	Class        Class
	PageSize     uint64
	PagesCreated int    // regular pages created
	PagesReused  int    // RequestPage calls served from the retired queue
	PagesRetired int    // pages waiting in the retired queue
	LargeCreated int    // large pages created
	LargePending int    // large pages waiting for destruction
	LargeFreed   int    // large pages destroyed
	LiveBytes    uint64 // bytes of every page not yet destroyed
}

// String returns a human-readable representation of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("%v pages (%d B): %d created, %d reused, %d retired; large: %d created, %d pending, %d freed; live %d B",
		s.Class, s.PageSize, s.PagesCreated, s.PagesReused, s.PagesRetired,
		s.LargeCreated, s.LargePending, s.LargeFreed, s.LiveBytes)
}

// PageManager recycles the pages of one class.
//
// PageManager is safe for concurrent use.
type PageManager struct {
	device   gpucore.Device
	class    Class
	pageSize uint64
	fences   FenceTracker

	mu       sync.Mutex
	retired  fifo.Queue[*Page]
	deletion fifo.Queue[*Page]
	live     map[*Page]struct{}
	stats    Stats
}

// NewPageManager creates a page manager for class. fences decides when
// retired pages may be reused.
func NewPageManager(device gpucore.Device, class Class, fences FenceTracker, opts ...Option) *PageManager {
	m := &PageManager{
		device:   device,
		class:    class,
		pageSize: class.PageSize(),
		fences:   fences,
		live:     make(map[*Page]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Class returns the class of the managed pages.
func (m *PageManager) Class() Class { return m.class }

// PageSize returns the size of regular pages.
func (m *PageManager) PageSize() uint64 { return m.pageSize }

// RequestPage returns the oldest retired page if its fence is complete, or a
// new page otherwise.
func (m *PageManager) RequestPage() (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.retired.PopIf(m.fences.IsFenceComplete); ok {
		m.stats.PagesReused++
		return p, nil
	}
	p, err := m.createPageLocked(m.pageSize)
	if err != nil {
		return nil, err
	}
	m.stats.PagesCreated++
	glog.Logger().Debug("pagealloc: new page",
		"class", m.class, "size", m.pageSize, "retired", m.retired.Len())
	return p, nil
}

// CreateNewPage creates a page of the given size. It serves large
// allocations, which are released through FreeLargePages.
func (m *PageManager) CreateNewPage(size uint64) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.createPageLocked(size)
	if err != nil {
		return nil, err
	}
	m.stats.LargeCreated++
	glog.Logger().Debug("pagealloc: new large page", "class", m.class, "size", size)
	return p, nil
}

func (m *PageManager) createPageLocked(size uint64) (*Page, error) {
	h, err := resource.Create(m.device, m.class.desc(size))
	if err != nil {
		return nil, fmt.Errorf("pagealloc: %v page: %w", m.class, err)
	}
	p := &Page{handle: h, gpuBase: h.GPUAddress(), size: size}
	if m.class == ClassCPUWritable {
		mapping, err := h.Map()
		if err != nil {
			h.Destroy()
			return nil, fmt.Errorf("pagealloc: %v page: %w", m.class, err)
		}
		p.mapping = mapping
		p.cpu = mapping.Bytes()
	}
	m.live[p] = struct{}{}
	m.stats.LiveBytes += size
	return p, nil
}

// DiscardPages queues pages for reuse once fence completes. fence must be
// the value under which the work that used the pages was submitted.
func (m *PageManager) DiscardPages(fence uint64, pages []*Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range pages {
		m.retired.Push(fence, p)
	}
}

// FreeLargePages destroys queued large pages whose fence is complete, then
// queues pages for destruction once fence completes.
//
// Draining stops at the first pending entry. Fences pushed out of order can
// hold back entries that are already complete.
func (m *PageManager) FreeLargePages(fence uint64, pages []*Page) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		p, ok := m.deletion.PopIf(m.fences.IsFenceComplete)
		if !ok {
			break
		}
		m.destroyLocked(p)
		m.stats.LargeFreed++
	}
	for _, p := range pages {
		m.deletion.Push(fence, p)
	}
}

func (m *PageManager) destroyLocked(p *Page) {
	if _, ok := m.live[p]; !ok {
		return
	}
	delete(m.live, p)
	m.stats.LiveBytes -= p.size
	p.destroy()
}

// Stats returns a snapshot of the manager counters.
func (m *PageManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Class = m.class
	s.PageSize = m.pageSize
	s.PagesRetired = m.retired.Len()
	s.LargePending = m.deletion.Len()
	return s
}

// Close destroys every page the manager created, including pages still held
// by allocators. The caller must ensure the GPU no longer uses them.
func (m *PageManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retired.Drain(func(uint64, *Page) {})
	m.deletion.Drain(func(uint64, *Page) {})
	for p := range m.live {
		m.destroyLocked(p)
	}
}
