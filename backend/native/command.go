// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// Allocator owns the HAL command buffers recorded by the lists bound to it.
// Reset frees them.
type Allocator struct {
	device *Device
	engine gpucore.EngineType

	mu      sync.Mutex
	name    string
	buffers []hal.CommandBuffer
}

// Engine returns the engine type of the allocator.
func (a *Allocator) Engine() gpucore.EngineType { return a.engine }

// Reset frees every command buffer recorded from the allocator.
// The caller guarantees the GPU has finished executing them.
func (a *Allocator) Reset() error {
	a.mu.Lock()
	buffers := a.buffers
	a.buffers = nil
	a.mu.Unlock()
	for _, cb := range buffers {
		a.device.raw.FreeCommandBuffer(cb)
	}
	return nil
}

// SetName sets a debug name.
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

func (a *Allocator) adopt(cb hal.CommandBuffer) {
	a.mu.Lock()
	a.buffers = append(a.buffers, cb)
	a.mu.Unlock()
}

// Destroy frees the remaining command buffers.
func (a *Allocator) Destroy() {
	_ = a.Reset()
}

// CommandList records into a HAL command encoder. Each recording pass uses a
// fresh encoder; Close hands the finished command buffer to the allocator.
type CommandList struct {
	device *Device
	engine gpucore.EngineType

	mu      sync.Mutex
	name    string
	alloc   *Allocator
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

func (d *Device) beginList(l *CommandList, alloc *Allocator) error {
	encoder, err := d.raw.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: l.name})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(l.name); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}
	l.alloc = alloc
	l.encoder = encoder
	l.cmd = nil
	return nil
}

// Engine returns the engine type of the list.
func (l *CommandList) Engine() gpucore.EngineType { return l.engine }

// Reset reopens a closed list for recording into alloc.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	a, ok := alloc.(*Allocator)
	if !ok || a.device != l.device {
		return errForeignObject
	}
	if a.engine != l.engine {
		return fmt.Errorf("%w: list %v, allocator %v", gpucore.ErrEngineMismatch, l.engine, a.engine)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.encoder != nil {
		return gpucore.ErrListNotClosed
	}
	return l.device.beginList(l, a)
}

// Close ends encoding and hands the command buffer to the allocator.
func (l *CommandList) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.encoder == nil {
		return gpucore.ErrListClosed
	}
	cb, err := l.encoder.EndEncoding()
	l.encoder = nil
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	l.cmd = cb
	l.alloc.adopt(cb)
	return nil
}

// recorded returns the command buffer of a closed list.
func (l *CommandList) recorded() (hal.CommandBuffer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.encoder != nil {
		return nil, gpucore.ErrListNotClosed
	}
	return l.cmd, nil
}

// CopyBufferRegion records a buffer to buffer copy.
func (l *CommandList) CopyBufferRegion(dst gpucore.Resource, dstOffset uint64, src gpucore.Resource, srcOffset, size uint64) {
	d, okd := dst.(*Resource)
	s, oks := src.(*Resource)
	if !okd || !oks {
		panic(errForeignObject)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.encoder == nil {
		panic(gpucore.ErrListClosed)
	}
	l.encoder.CopyBufferToBuffer(s.raw, d.raw, []hal.BufferCopy{{
		SrcOffset: srcOffset,
		DstOffset: dstOffset,
		Size:      size,
	}})
}

// ResourceBarrier validates the list state. The HAL tracks buffer usage
// between copy and shader access itself, so no barrier is encoded.
func (l *CommandList) ResourceBarrier(_ ...gpucore.ResourceBarrier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.encoder == nil {
		panic(gpucore.ErrListClosed)
	}
}

// SetName sets a debug name used as the encoder label of the next pass.
func (l *CommandList) SetName(name string) {
	l.mu.Lock()
	l.name = name
	l.mu.Unlock()
}

// Name returns the debug name.
func (l *CommandList) Name() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.name
}

// Destroy discards an unfinished recording.
func (l *CommandList) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.encoder != nil {
		l.encoder.DiscardEncoding()
		l.encoder = nil
	}
}
