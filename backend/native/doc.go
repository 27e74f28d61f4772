// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package native implements gpucore.Device on top of the gogpu/wgpu HAL.
//
// The HAL exposes a single submission queue per device, so every gpuframe
// engine is backed by the same hal.Queue. Submissions on one HAL queue
// execute in order, which makes cross-engine waits on already submitted
// fence values hold without extra synchronization.
//
// Upload heap resources keep a host copy of their contents. The copy is
// written to the GPU buffer with hal.Queue.WriteBuffer when the resource is
// unmapped and before every submission while it stays mapped, so persistently
// mapped pages behave like the write-combined memory they model.
//
// Importing the package registers it with the backend registry as "native".
// The registered factory opens a standalone Vulkan device.
package native
