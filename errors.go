// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import "errors"

// Context errors.
var (
	// ErrContextFailed wraps the first fatal error observed at a frame
	// boundary. Once returned, every later BeginFrame returns it too.
	ErrContextFailed = errors.New("gpuframe: context failed")

	// ErrClosed is returned when using a closed Context.
	ErrClosed = errors.New("gpuframe: context closed")

	// ErrFrameActive is returned by BeginFrame when the frame slot it would
	// reuse has not been submitted yet.
	ErrFrameActive = errors.New("gpuframe: previous frame in this slot not submitted")

	// ErrFrameSubmitted is returned when using a frame after Submit.
	ErrFrameSubmitted = errors.New("gpuframe: frame already submitted")
)
