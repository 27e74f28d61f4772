// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpucore.Device as a simulated GPU.
//
// Each queue executes its operations in order on a dedicated goroutine.
// Copies move real bytes between host buffers, fences are signaled only once
// the preceding work ran, and a queue Wait blocks later work on that queue
// until another queue's fence reaches the awaited value.
//
// The device keeps an execution log ([Device.Events]) and records misuse a
// real driver's debug layer would catch ([Device.Violations]): resetting a
// command allocator while its lists are in flight, releasing a resource twice.
// Queues can be paused ([Queue.Pause]) to hold work back and make completion
// order observable in tests.
//
// Importing the package registers it with the backend registry as "software".
package software
