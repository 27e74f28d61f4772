// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package upload

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/glog"
	"github.com/gogpu/gpuframe/queue"
	"github.com/gogpu/gpuframe/resource"
)

// DefaultCapacity is the default number of uploads staged per batch.
const DefaultCapacity = 256

// Upload errors.
var (
	// ErrBatchInFlight is returned by Reset while the last batch is still
	// executing on the copy engine.
	ErrBatchInFlight = errors.New("upload: batch still executing")

	// ErrNotExecuted is returned by Reset when uploads are staged but were
	// never executed.
	ErrNotExecuted = errors.New("upload: staged batch was not executed")

	// ErrEmptyBuffer is returned when creating a buffer with no elements.
	ErrEmptyBuffer = errors.New("upload: buffer size is zero")

	// ErrShortData is returned when data is smaller than the buffer.
	ErrShortData = errors.New("upload: data smaller than buffer")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("upload: manager closed")
)

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity sets the number of uploads staged before a forced flush.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// Stats describes upload activity.
type Stats struct {
	Staged   int    // uploads in the current batch
	Uploads  int    // uploads staged over the manager lifetime
	Bytes    uint64 // bytes staged over the manager lifetime
	Batches  int    // batches submitted to the copy queue
	Flushes  int    // batches forced by a full staging ring
	Capacity int
}

// String returns a human-readable representation of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("uploads: %d/%d staged, %d total (%d B), %d batches, %d forced flushes",
		s.Staged, s.Capacity, s.Uploads, s.Bytes, s.Batches, s.Flushes)
}

// Manager batches buffer uploads through the copy queue.
//
// Manager is safe for concurrent use; calls are serialized.
type Manager struct {
	device   gpucore.Device
	queues   *queue.Manager
	capacity int

	mu       sync.Mutex
	list     gpucore.CommandList
	alloc    gpucore.CommandAllocator // nil between Execute and Reset
	staging  []*resource.Handle
	fence    uint64
	executed bool
	closed   bool
	stats    Stats
}

// NewManager opens the first copy list of the manager.
func NewManager(device gpucore.Device, queues *queue.Manager, opts ...Option) (*Manager, error) {
	m := &Manager{
		device:   device,
		queues:   queues,
		capacity: DefaultCapacity,
		fence:    queues.Copy().LastSubmittedFenceValue(),
	}
	for _, opt := range opts {
		opt(m)
	}
	list, alloc, err := queues.CreateNewCommandList(gpucore.EngineCopy)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	list.SetName("Upload Batch")
	m.list = list
	m.alloc = alloc
	m.staging = make([]*resource.Handle, 0, m.capacity)
	return m, nil
}

// Capacity returns the number of uploads staged before a forced flush.
func (m *Manager) Capacity() int { return m.capacity }

// CreateOnGPU creates a device-local buffer of numElements*elementSize bytes
// in the CopyDest state. If data is not nil, its first Size bytes are staged
// and a copy is recorded into the current batch. The buffer contents are
// undefined until the batch executes.
//
// CreateOnGPU blocks in two cases: when the batch is full it executes it and
// waits for the copy, and when the previous batch was executed but not Reset
// it waits for that batch's copy fence before reusing the batch.
func (m *Manager) CreateOnGPU(name string, numElements, elementSize uint32, data []byte) (*Buffer, error) {
	size := uint64(numElements) * uint64(elementSize)
	if size == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyBuffer, name)
	}
	if data != nil && uint64(len(data)) < size {
		return nil, fmt.Errorf("%w: %q has %d bytes, want %d", ErrShortData, name, len(data), size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}

	h, err := resource.Create(m.device, &gpucore.ResourceDesc{
		Label:        name,
		Size:         size,
		Heap:         gpucore.HeapDeviceLocal,
		InitialState: gpucore.StateCopyDest,
		Usage:        gpucore.DeviceLocalUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	buf := &Buffer{handle: h, NumElements: numElements, ElementSize: elementSize, Size: size}
	if data == nil {
		return buf, nil
	}

	if err := m.stageLocked(buf, data[:size]); err != nil {
		h.Destroy()
		return nil, err
	}
	return buf, nil
}

func (m *Manager) stageLocked(buf *Buffer, data []byte) error {
	if m.executed {
		// The previous batch must be reclaimed before recording again.
		m.queues.Copy().WaitForFence(m.fence)
		if err := m.resetLocked(); err != nil {
			return err
		}
	}
	if len(m.staging) >= m.capacity {
		m.stats.Flushes++
		glog.Logger().Debug("upload: staging full, flushing", "staged", len(m.staging))
		if err := m.executeLocked(true); err != nil {
			return err
		}
		if err := m.resetLocked(); err != nil {
			return err
		}
	}

	staging, err := resource.Create(m.device, &gpucore.ResourceDesc{
		Label:        buf.Name() + " (staging)",
		Size:         buf.Size,
		Heap:         gpucore.HeapUpload,
		InitialState: gpucore.StateGenericRead,
		Usage:        gpucore.UploadUsage,
	})
	if err != nil {
		return fmt.Errorf("upload: staging: %w", err)
	}
	mapping, err := staging.Map()
	if err != nil {
		staging.Destroy()
		return fmt.Errorf("upload: staging: %w", err)
	}
	copy(mapping.Bytes(), data)
	mapping.Close()

	// Buffers decay to Common after copy engine access; no barrier is needed.
	m.list.CopyBufferRegion(buf.handle.Get(), 0, staging.Get(), 0, buf.Size)
	m.staging = append(m.staging, staging)
	m.stats.Uploads++
	m.stats.Bytes += buf.Size
	return nil
}

// Execute submits the staged copies to the copy queue and makes the graphics
// queue wait on the GPU for them. If wait is true it also blocks until the
// copies complete. It does nothing if no upload is staged.
func (m *Manager) Execute(wait bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.executeLocked(wait)
}

func (m *Manager) executeLocked(wait bool) error {
	if m.executed || len(m.staging) == 0 {
		return nil
	}
	copyQ := m.queues.Copy()

	if err := m.list.Close(); err != nil {
		return fmt.Errorf("upload: close batch: %w", err)
	}
	fence, err := copyQ.ExecuteCommandList(m.list)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	copyQ.ReturnAllocator(fence, m.alloc)
	m.alloc = nil
	m.fence = fence
	m.executed = true
	m.stats.Batches++

	if err := m.queues.Graphics().InsertWaitOnOtherQueueFence(copyQ, fence); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if wait {
		copyQ.WaitForFence(fence)
	}
	return nil
}

// Reset releases the staging buffers of the executed batch and opens a new
// one. It returns ErrBatchInFlight if the batch has not completed and
// ErrNotExecuted if uploads are staged but not executed. It does nothing if
// no upload is staged.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.resetLocked()
}

func (m *Manager) resetLocked() error {
	if !m.queues.Copy().IsFenceComplete(m.fence) {
		return ErrBatchInFlight
	}
	if len(m.staging) == 0 {
		return nil
	}
	if !m.executed {
		return ErrNotExecuted
	}

	alloc, err := m.queues.Copy().RequestAllocator()
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := m.list.Reset(alloc); err != nil {
		m.queues.Copy().ReturnAllocator(m.queues.Copy().CompletedFenceValue(), alloc)
		return fmt.Errorf("upload: reset batch: %w", err)
	}
	m.alloc = alloc
	m.releaseStagingLocked()
	m.executed = false
	return nil
}

func (m *Manager) releaseStagingLocked() {
	for _, h := range m.staging {
		h.Destroy()
	}
	m.staging = m.staging[:0]
}

// IsComplete reports whether the last executed batch has completed.
func (m *Manager) IsComplete() bool {
	m.mu.Lock()
	fence := m.fence
	m.mu.Unlock()
	return m.queues.Copy().IsFenceComplete(fence)
}

// Fence returns the copy fence value of the last executed batch.
func (m *Manager) Fence() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fence
}

// Stats returns a snapshot of the upload counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Staged = len(m.staging)
	s.Capacity = m.capacity
	return s
}

// Close waits for the last batch, releases staging buffers and the copy list.
// Uploads staged but not executed are discarded.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true

	copyQ := m.queues.Copy()
	if m.executed {
		copyQ.WaitForFence(m.fence)
	}
	m.releaseStagingLocked()
	if m.alloc != nil {
		_ = m.list.Close()
		copyQ.ReturnAllocator(copyQ.CompletedFenceValue(), m.alloc)
		m.alloc = nil
	}
	m.list.Destroy()
}
