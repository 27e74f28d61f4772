// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpuframe manages the lifetime and recycling of GPU command and
// memory resources in a real-time frame loop.
//
// # Overview
//
// The CPU records work frames ahead of the GPU. Command allocators, memory
// pages and staging buffers must not be reused until the GPU has finished
// with them, yet recycling must not stall the CPU. gpuframe tags every
// recycled object with the fence value of the submission that last used it
// and reuses it only once that fence is complete.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/gpuframe"
//		_ "github.com/gogpu/gpuframe/backend/software"
//	)
//
//	ctx, err := gpuframe.Open("software")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	vb, err := ctx.Uploads().CreateOnGPU("Vertices", n, 32, vertices)
//	err = ctx.FlushUploads(false)
//
//	for {
//		f, err := ctx.BeginFrame()
//		cb, err := f.AllocateCPU(256, gpuframe.ConstantAlignment)
//		copy(cb.CPU, constants)
//		// record into f.CommandList() using vb and cb.GPUAddress
//		fence, err := f.Submit()
//	}
//
// # Architecture
//
// The library is organized into:
//   - gpucore: device abstraction (queues, fences, allocators, lists, resources)
//   - resource: single-owner handle around one native resource
//   - queue: fence-tracked queues and command allocator pools
//   - pagealloc: page managers and per-context linear allocators
//   - upload: batched staging uploads through the copy engine
//   - backend: registry of device backends (native, software)
//
// A Context owns one queue manager, one page manager per page class, one
// upload manager and a fixed number of frames in flight. There is no global
// state apart from the logger and the backend registry.
//
// # Errors
//
// Native failures are returned as errors. A failure at a frame boundary is
// fatal: the Context wraps it in ErrContextFailed and refuses further frames.
// Contract violations such as a non-power-of-two alignment panic.
package gpuframe

// ConstantAlignment is the placement alignment of constant data.
const ConstantAlignment = 256
