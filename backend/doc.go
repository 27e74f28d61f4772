// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend provides a pluggable device backend registry.
//
// The recycling pools in gpuframe are written against [gpucore.Device].
// Backends register a [Factory] from init() and are selected at runtime.
//
// # Backend Registration
//
// Import a backend package for its side effect:
//
//	import _ "github.com/gogpu/gpuframe/backend/software"
//
// # Backend Selection
//
// Use Default() to open the best available backend, or Open() to request
// a specific backend by name:
//
//	dev, name, err := backend.Default()
//
//	// Or request a specific backend
//	dev, err := backend.Open("software")
//
// Release the device with [Close] once every object created from it is gone.
//
// # Available Backends
//
//   - "native": gogpu/wgpu HAL device (Vulkan, Metal, DX12)
//   - "software": simulated GPU with one goroutine per queue (always available)
package backend
