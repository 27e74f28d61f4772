// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// ErrWaitNotSubmitted is returned by Queue.Wait for a fence value no queue has
// submitted a signal for yet. A single HAL queue cannot wait on future work.
var ErrWaitNotSubmitted = errors.New("native: wait on a fence value that was never signaled")

// Queue is one gpuframe engine mapped onto the shared HAL queue.
type Queue struct {
	device *Device
	engine gpucore.EngineType
}

// Engine returns the engine type of the queue.
func (q *Queue) Engine() gpucore.EngineType { return q.engine }

// ExecuteCommandLists flushes mapped upload resources and submits the
// command buffers of closed lists.
func (q *Queue) ExecuteCommandLists(lists ...gpucore.CommandList) error {
	if q.device.Lost() {
		return gpucore.ErrDeviceLost
	}
	buffers := make([]hal.CommandBuffer, 0, len(lists))
	for _, list := range lists {
		l, ok := list.(*CommandList)
		if !ok || l.device != q.device {
			return errForeignObject
		}
		if l.engine != q.engine {
			return fmt.Errorf("%w: queue %v, list %v", gpucore.ErrEngineMismatch, q.engine, l.engine)
		}
		cb, err := l.recorded()
		if err != nil {
			return err
		}
		buffers = append(buffers, cb)
	}
	q.device.flushMapped()

	q.device.submitMu.Lock()
	defer q.device.submitMu.Unlock()
	if err := q.device.queue.Submit(buffers, nil, 0); err != nil {
		return fmt.Errorf("native: submit: %w", err)
	}
	return nil
}

// Signal submits a fence signal behind all work submitted so far.
func (q *Queue) Signal(fence gpucore.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok || f.device != q.device {
		return errForeignObject
	}
	q.device.submitMu.Lock()
	defer q.device.submitMu.Unlock()
	if err := q.device.queue.Submit(nil, f.raw, value); err != nil {
		return fmt.Errorf("native: signal: %w", err)
	}
	f.submitted(value)
	return nil
}

// Wait orders later work after the signal of value. All engines share one
// in-order HAL queue, so a value whose signal is already submitted needs no
// further work.
func (q *Queue) Wait(fence gpucore.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok || f.device != q.device {
		return errForeignObject
	}
	if !f.reachable(value) {
		return fmt.Errorf("%w: %#x", ErrWaitNotSubmitted, value)
	}
	return nil
}

// Destroy is a no-op; the HAL queue belongs to the device.
func (q *Queue) Destroy() {}
