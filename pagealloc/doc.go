// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pagealloc provides paged bump allocation of transient GPU memory.
//
// A [PageManager] owns the pages of one [Class]. It is shared by every
// [Allocator] of that class and serializes access with a single mutex.
// An [Allocator] belongs to one recording context (a frame in flight or a
// worker goroutine) and is never shared, so individual allocations take no
// lock.
//
// # Page Lifetime
//
//	RequestPage -> Allocate... -> CleanupUsedPages(fence) -> retired queue
//	                                                          |
//	RequestPage <------- fence complete (head only) <---------+
//
// Allocations larger than the page size get a dedicated large page. Large
// pages are never reused: CleanupUsedPages hands them to FreeLargePages,
// which destroys them once their fence completes.
//
// # Basic Usage
//
//	mgr := pagealloc.NewPageManager(dev, pagealloc.ClassCPUWritable, queues)
//	alloc := pagealloc.NewAllocator(mgr)
//
//	a, err := alloc.Allocate(uint64(len(constants)), pagealloc.DefaultAlignment)
//	copy(a.CPU, constants)
//	// bind a.GPUAddress, record and submit under fence
//
//	alloc.CleanupUsedPages(fence)
package pagealloc
