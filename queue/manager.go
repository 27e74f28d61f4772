// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/glog"
)

// Manager owns the graphics, compute and copy queues of one device.
//
// Manager is safe for concurrent use.
type Manager struct {
	device gpucore.Device
	queues [gpucore.NumEngines]*Queue
}

// NewManager creates one queue per engine on device.
func NewManager(device gpucore.Device) (*Manager, error) {
	m := &Manager{device: device}
	for e := gpucore.EngineType(0); e < gpucore.NumEngines; e++ {
		q, err := NewQueue(device, e)
		if err != nil {
			m.closeQueues()
			return nil, err
		}
		m.queues[e] = q
	}
	glog.Logger().Debug("queue: manager ready")
	return m, nil
}

// Device returns the device the queues were created on.
func (m *Manager) Device() gpucore.Device { return m.device }

// Graphics returns the graphics queue.
func (m *Manager) Graphics() *Queue { return m.queues[gpucore.EngineGraphics] }

// Compute returns the compute queue.
func (m *Manager) Compute() *Queue { return m.queues[gpucore.EngineCompute] }

// Copy returns the copy queue.
func (m *Manager) Copy() *Queue { return m.queues[gpucore.EngineCopy] }

// Queue returns the queue of engine e. It panics if e is not a valid engine.
func (m *Manager) Queue(e gpucore.EngineType) *Queue {
	if !e.Valid() {
		panic(fmt.Sprintf("queue: invalid engine %v", e))
	}
	return m.queues[e]
}

// CreateNewCommandList requests an allocator from the queue of engine e and
// binds a new recording list to it. The caller returns the allocator with
// ReturnAllocator once the list has been submitted.
func (m *Manager) CreateNewCommandList(e gpucore.EngineType) (gpucore.CommandList, gpucore.CommandAllocator, error) {
	q := m.Queue(e)
	alloc, err := q.RequestAllocator()
	if err != nil {
		return nil, nil, err
	}
	list, err := m.device.CreateCommandList(e, alloc)
	if err != nil {
		// Nothing was recorded, so the allocator is reusable right away.
		q.ReturnAllocator(q.CompletedFenceValue(), alloc)
		return nil, nil, fmt.Errorf("queue: create %v command list: %w", e, err)
	}
	list.SetName("CommandList")
	return list, alloc, nil
}

// IsFenceComplete reports whether v is complete on the queue that issued it.
func (m *Manager) IsFenceComplete(v uint64) bool {
	return m.Queue(gpucore.EngineOfFence(v)).IsFenceComplete(v)
}

// WaitForFence blocks until v is complete on the queue that issued it.
func (m *Manager) WaitForFence(v uint64) {
	m.Queue(gpucore.EngineOfFence(v)).WaitForFence(v)
}

// WaitForIdle blocks until every queue is idle.
func (m *Manager) WaitForIdle() {
	for _, q := range m.queues {
		q.WaitForIdle()
	}
}

// Stats returns the allocator pool statistics of every engine.
func (m *Manager) Stats() [gpucore.NumEngines]PoolStats {
	var s [gpucore.NumEngines]PoolStats
	for e, q := range m.queues {
		s[e] = q.pool.Stats()
	}
	return s
}

// Close waits for all queues to go idle and destroys them.
func (m *Manager) Close() {
	m.WaitForIdle()
	m.closeQueues()
}

func (m *Manager) closeQueues() {
	for i, q := range m.queues {
		if q != nil {
			q.Close()
			m.queues[i] = nil
		}
	}
}
