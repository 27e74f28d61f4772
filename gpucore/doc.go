// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore provides the device abstraction consumed by gpuframe.
//
// This package defines the [Device] interface and the objects it creates:
// command queues, fences, command allocators, command lists and committed
// resources. The recycling pools, the paged bump allocator and the upload
// manager are written once against these interfaces, while thin backends
// translate them to a concrete API:
//   - backend/native: gogpu/wgpu HAL (Vulkan, Metal, DX12)
//   - backend/software: a simulated GPU used for tests and tooling
//
// # Architecture
//
//	          +--------------------------------------+
//	          |  queue / pagealloc / upload          |
//	          |  (fence-tracked recycling)           |
//	          +------------------+-------------------+
//	                             |
//	                     +-------v-------+
//	                     |    gpucore    |
//	                     |   (Device)    |
//	                     +-------+-------+
//	                             |
//	         +-------------------+-------------------+
//	         |                                       |
//	+--------v--------+                     +--------v--------+
//	| backend/native  |                     | backend/software|
//	|  (hal.Device)   |                     |  (simulated)    |
//	+-----------------+                     +-----------------+
//
// # Fences
//
// Every queue owns one [Fence]. Fence values are 64-bit and monotonically
// increasing per queue. The top byte of a value encodes the [EngineType] that
// issued it (see [FenceBase] and [EngineOfFence]), so values from different
// queues never collide and a fence value alone identifies the queue that must
// be asked about its completion.
//
// # Ownership
//
// Objects returned by a [Device] have exactly one owner. Destroying an object
// while the GPU may still reference it is undefined behavior; the pools in
// gpuframe exist to make that impossible.
package gpucore
