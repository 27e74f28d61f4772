// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"fmt"
	"strings"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/pagealloc"
	"github.com/gogpu/gpuframe/queue"
	"github.com/gogpu/gpuframe/upload"
)

// Stats aggregates the counters of every pool a Context owns.
type Stats struct {
	Frames     uint64 // frames begun
	Fences     [gpucore.NumEngines]uint64
	Allocators [gpucore.NumEngines]queue.PoolStats
	GPUPages   pagealloc.Stats
	CPUPages   pagealloc.Stats
	Uploads    upload.Stats
}

// String returns a human-readable representation of the stats.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frames: %d\n", s.Frames)
	for e, a := range s.Allocators {
		fmt.Fprintf(&b, "%s (completed fence %#x)\n", a, s.Fences[e])
	}
	fmt.Fprintf(&b, "%s\n%s\n%s", s.GPUPages, s.CPUPages, s.Uploads)
	return b.String()
}

// Stats returns a snapshot of the Context counters.
func (c *Context) Stats() Stats {
	c.mu.Lock()
	frames := c.next
	c.mu.Unlock()

	s := Stats{
		Frames:     frames,
		Allocators: c.queues.Stats(),
		GPUPages:   c.gpuPages.Stats(),
		CPUPages:   c.cpuPages.Stats(),
		Uploads:    c.uploads.Stats(),
	}
	for e := gpucore.EngineType(0); e < gpucore.NumEngines; e++ {
		s.Fences[e] = c.queues.Queue(e).CompletedFenceValue()
	}
	return s
}
