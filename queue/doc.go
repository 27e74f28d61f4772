// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package queue provides fence-tracked submission queues and the command
// allocator pools behind them.
//
// A [Manager] owns one [Queue] per engine (graphics, compute, copy). Each
// queue owns a native command queue, a fence and an [AllocatorPool].
//
// # Fence Values
//
// ExecuteCommandList signals the queue fence with the next value and returns
// it. Values issued by one queue are strictly increasing, and the engine that
// issued a value is encoded in its top byte (see gpucore.FenceBase), so
// [Manager.IsFenceComplete] can route any value to the queue that owns it.
//
// # Recycling
//
// Command allocators are returned to their pool tagged with the fence value
// under which their recorded work was submitted. The pool hands out the oldest
// returned allocator only once that fence is complete; otherwise it creates a
// new one. The pool grows without bound.
//
// # Blocking
//
// Only WaitForFence and WaitForIdle block the calling goroutine, and they wait
// without a timeout. InsertWait and its variants add GPU-side dependencies and
// return immediately.
package queue
