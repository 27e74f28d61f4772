// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
)

// Allocator is a simulated command allocator. It tracks how many lists
// recorded from it are still queued or executing, and refuses to reset while
// any are.
type Allocator struct {
	engine gpucore.EngineType
	device *Device

	mu       sync.Mutex
	name     string
	inFlight int
	resets   int
}

// Engine returns the engine type the allocator records for.
func (a *Allocator) Engine() gpucore.EngineType { return a.engine }

// Reset reclaims recorded commands. It fails with gpucore.ErrAllocatorInUse
// while recorded work is still pending on a queue.
func (a *Allocator) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight > 0 {
		a.device.violation("reset of command allocator with %d lists in flight", a.inFlight)
		return gpucore.ErrAllocatorInUse
	}
	a.resets++
	return nil
}

// SetName sets the debug name.
func (a *Allocator) SetName(name string) {
	a.mu.Lock()
	a.name = name
	a.mu.Unlock()
}

// Name returns the debug name.
func (a *Allocator) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.name
}

// Resets returns how many times the allocator has been reset.
func (a *Allocator) Resets() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resets
}

// InFlight returns the number of lists recorded from the allocator that the
// simulated GPU has not finished.
func (a *Allocator) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inFlight
}

func (a *Allocator) addInFlight(n int) {
	a.mu.Lock()
	a.inFlight += n
	a.mu.Unlock()
}

// Destroy is a no-op; simulated allocators hold no native memory.
func (a *Allocator) Destroy() {}

type commandKind int

const (
	cmdCopy commandKind = iota
	cmdBarrier
)

// command is one recorded command.
type command struct {
	kind      commandKind
	dst, src  *Resource
	dstOffset uint64
	srcOffset uint64
	size      uint64
	barrier   gpucore.ResourceBarrier
}

// CommandList is a simulated command list.
type CommandList struct {
	engine gpucore.EngineType
	device *Device

	mu        sync.Mutex
	name      string
	alloc     *Allocator
	recording bool
	cmds      []command
}

// Engine returns the engine type of the list.
func (l *CommandList) Engine() gpucore.EngineType { return l.engine }

// Name returns the debug name.
func (l *CommandList) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

// SetName sets the debug name.
func (l *CommandList) SetName(name string) {
	l.mu.Lock()
	l.name = name
	l.mu.Unlock()
}

// Reset reopens the list for recording into alloc.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	a, ok := alloc.(*Allocator)
	if !ok || a == nil {
		return errForeignObject
	}
	if a.engine != l.engine {
		return gpucore.ErrEngineMismatch
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recording {
		return gpucore.ErrListNotClosed
	}
	l.alloc = a
	l.cmds = nil
	l.recording = true
	return nil
}

// Close ends recording.
func (l *CommandList) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.recording {
		return gpucore.ErrListClosed
	}
	l.recording = false
	return nil
}

// Recording reports whether the list is open.
func (l *CommandList) Recording() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recording
}

// CopyBufferRegion records a buffer copy.
func (l *CommandList) CopyBufferRegion(dst gpucore.Resource, dstOffset uint64, src gpucore.Resource, srcOffset, size uint64) {
	d, dok := dst.(*Resource)
	s, sok := src.(*Resource)
	if !dok || !sok {
		panic("software: CopyBufferRegion with foreign resource")
	}
	if dstOffset+size > d.Size() || srcOffset+size > s.Size() {
		panic("software: CopyBufferRegion out of bounds")
	}
	l.record(command{kind: cmdCopy, dst: d, src: s, dstOffset: dstOffset, srcOffset: srcOffset, size: size})
}

// ResourceBarrier records state transitions.
func (l *CommandList) ResourceBarrier(barriers ...gpucore.ResourceBarrier) {
	for _, b := range barriers {
		l.record(command{kind: cmdBarrier, barrier: b})
	}
}

func (l *CommandList) record(c command) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.recording {
		panic("software: recording into a closed command list")
	}
	l.cmds = append(l.cmds, c)
}

// snapshot returns the recorded commands for submission.
func (l *CommandList) snapshot() ([]command, *Allocator, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recording {
		return nil, nil, "", gpucore.ErrListNotClosed
	}
	cmds := make([]command, len(l.cmds))
	copy(cmds, l.cmds)
	return cmds, l.alloc, l.name, nil
}

// Destroy is a no-op; simulated lists hold no native memory.
func (l *CommandList) Destroy() {}
