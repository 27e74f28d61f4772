// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"sync"
	"time"

	"github.com/gogpu/gpuframe/gpucore"
)

type opKind int

const (
	opExecute opKind = iota
	opSignal
	opWait
)

// op is one queued GPU operation.
type op struct {
	kind  opKind
	name  string
	cmds  []command
	alloc *Allocator
	fence *Fence
	value uint64
}

// Queue is a simulated submission engine. Operations run in submission order
// on a dedicated goroutine.
type Queue struct {
	engine gpucore.EngineType
	device *Device

	mu      sync.Mutex
	cond    *sync.Cond
	ops     []op
	paused  bool
	closed  bool
	stop    chan struct{}
	stopped chan struct{}
}

func newQueue(d *Device, engine gpucore.EngineType, paused bool) *Queue {
	q := &Queue{
		engine:  engine,
		device:  d,
		paused:  paused,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Engine returns the engine type of the queue.
func (q *Queue) Engine() gpucore.EngineType { return q.engine }

// ExecuteCommandLists queues closed lists for execution.
func (q *Queue) ExecuteCommandLists(lists ...gpucore.CommandList) error {
	if q.device.Lost() {
		return gpucore.ErrDeviceLost
	}
	batch := make([]op, 0, len(lists))
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok || cl == nil {
			return errForeignObject
		}
		if cl.engine != q.engine {
			return gpucore.ErrEngineMismatch
		}
		cmds, alloc, name, err := cl.snapshot()
		if err != nil {
			return err
		}
		batch = append(batch, op{kind: opExecute, name: name, cmds: cmds, alloc: alloc})
	}
	for _, o := range batch {
		o.alloc.addInFlight(1)
	}
	return q.push(batch...)
}

// Signal queues a fence update after all previously queued work.
func (q *Queue) Signal(fence gpucore.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok || f == nil {
		return errForeignObject
	}
	if q.device.Lost() {
		return gpucore.ErrDeviceLost
	}
	return q.push(op{kind: opSignal, fence: f, value: value})
}

// Wait stalls later operations on this queue until fence reaches value.
func (q *Queue) Wait(fence gpucore.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok || f == nil {
		return errForeignObject
	}
	if q.device.Lost() {
		return gpucore.ErrDeviceLost
	}
	return q.push(op{kind: opWait, fence: f, value: value})
}

func (q *Queue) push(ops ...op) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		for _, o := range ops {
			if o.alloc != nil {
				o.alloc.addInFlight(-1)
			}
		}
		return gpucore.ErrDeviceLost
	}
	q.ops = append(q.ops, ops...)
	q.cond.Broadcast()
	return nil
}

// Pause stops the queue before its next operation.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume continues a paused queue.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Pending returns the number of queued operations not yet finished.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Idle blocks until the queue has no pending operations or timeout elapses.
// It reports whether the queue drained.
func (q *Queue) Idle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if q.Pending() == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// Destroy stops the worker. Queued operations are dropped.
func (q *Queue) Destroy() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.stopped
		return
	}
	q.closed = true
	close(q.stop)
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.stopped
}

func (q *Queue) run() {
	defer close(q.stopped)
	for {
		q.mu.Lock()
		for !q.closed && (q.paused || len(q.ops) == 0) {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		o := q.ops[0]
		q.mu.Unlock()

		if !q.exec(o) {
			return
		}

		q.mu.Lock()
		q.ops = q.ops[1:]
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// exec runs one operation. It returns false if the queue was destroyed while
// the operation was blocked.
func (q *Queue) exec(o op) bool {
	switch o.kind {
	case opWait:
		select {
		case <-o.fence.Done(o.value):
		case <-q.stop:
			return false
		}
		q.device.record(Event{Engine: q.engine, Kind: "wait", Value: o.value})
	case opSignal:
		o.fence.signal(o.value)
		q.device.record(Event{Engine: q.engine, Kind: "signal", Value: o.value})
	case opExecute:
		if q.device.delay > 0 {
			select {
			case <-time.After(q.device.delay):
			case <-q.stop:
				return false
			}
		}
		q.device.copyMu.Lock()
		for _, c := range o.cmds {
			if c.kind == cmdCopy {
				c.dst.copyFrom(c.dstOffset, c.src, c.srcOffset, c.size)
			}
		}
		q.device.copyMu.Unlock()
		q.device.record(Event{Engine: q.engine, Kind: "execute", Name: o.name})
		o.alloc.addInFlight(-1)
	}
	return true
}
