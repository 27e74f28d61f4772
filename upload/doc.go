// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package upload moves initial buffer contents to device-local memory
// through the copy engine.
//
// [Manager.CreateOnGPU] creates the destination buffer, fills a staging
// buffer and records a copy into the manager's open copy list. Nothing is
// submitted until [Manager.Execute], which also makes the graphics queue wait
// on the GPU for the copy. Graphics work submitted after Execute therefore
// sees the uploaded data without the CPU waiting.
//
// At most a fixed number of uploads are staged at once (256 by default).
// Staging one more first executes the batch, waits for it and resets.
//
//	vb, err := up.CreateOnGPU("Vertices", n, 32, vertexBytes)
//	ib, err := up.CreateOnGPU("Indices", m, 4, indexBytes)
//	err = up.Execute(false)
//	// record and submit graphics work that reads vb and ib
//	// later, once up.IsComplete():
//	err = up.Reset()
package upload
