// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fifo provides the fence-tagged queue behind every recycling pool.
package fifo

import "container/list"

// entry is one queued value and the fence that guards it.
type entry[T any] struct {
	fence uint64
	value T
}

// Queue is a first-in first-out queue of values tagged with fence values.
//
// Callers push in non-decreasing fence order, which lets every reclaim path
// look at the head only. Queue is not safe for concurrent use; the owning
// pool serializes access.
type Queue[T any] struct {
	l *list.List
}

func (q *Queue[T]) lazyInit() {
	if q.l == nil {
		q.l = list.New()
	}
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	if q.l == nil {
		return 0
	}
	return q.l.Len()
}

// Push appends v at the tail, tagged with fence.
func (q *Queue[T]) Push(fence uint64, v T) {
	q.lazyInit()
	q.l.PushBack(entry[T]{fence: fence, value: v})
}

// Front returns the head entry without removing it.
func (q *Queue[T]) Front() (fence uint64, v T, ok bool) {
	if q.Len() == 0 {
		return 0, v, false
	}
	e := q.l.Front().Value.(entry[T])
	return e.fence, e.value, true
}

// PopIf removes and returns the head value if ready reports its fence as
// complete. Entries behind the head are never inspected.
func (q *Queue[T]) PopIf(ready func(fence uint64) bool) (v T, ok bool) {
	if q.Len() == 0 {
		return v, false
	}
	front := q.l.Front()
	e := front.Value.(entry[T])
	if !ready(e.fence) {
		return v, false
	}
	q.l.Remove(front)
	return e.value, true
}

// Drain removes every entry, calling fn for each in queue order.
func (q *Queue[T]) Drain(fn func(fence uint64, v T)) {
	if q.l == nil {
		return
	}
	for front := q.l.Front(); front != nil; front = q.l.Front() {
		e := q.l.Remove(front).(entry[T])
		fn(e.fence, e.value)
	}
}
