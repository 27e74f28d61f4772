// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"log/slog"

	"github.com/gogpu/gpuframe/pagealloc"
	"github.com/gogpu/gpuframe/upload"
)

// Option configures a Context during creation.
// Use functional options to customize Context behavior.
//
// Example:
//
//	// Defaults: 2 frames in flight, 256 staged uploads
//	ctx, err := gpuframe.NewContext(dev)
//
//	// Triple buffering with a larger upload ring
//	ctx, err := gpuframe.NewContext(dev,
//		gpuframe.WithFramesInFlight(3),
//		gpuframe.WithStagingCapacity(1024))
type Option func(*options)

// options holds optional configuration for Context creation.
type options struct {
	framesInFlight  int
	stagingCapacity int
	gpuPageSize     uint64
	cpuPageSize     uint64
	logger          *slog.Logger
}

// defaultOptions returns the default context options.
func defaultOptions() options {
	return options{
		framesInFlight:  2,
		stagingCapacity: upload.DefaultCapacity,
		gpuPageSize:     pagealloc.GPUExclusivePageSize,
		cpuPageSize:     pagealloc.CPUWritablePageSize,
		logger:          nil, // Will use the package logger if nil
	}
}

// WithFramesInFlight sets how many frames the CPU may record ahead of the GPU.
// Values below 1 are ignored.
func WithFramesInFlight(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.framesInFlight = n
		}
	}
}

// WithStagingCapacity sets how many uploads are staged before a forced flush.
// Values below 1 are ignored.
func WithStagingCapacity(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.stagingCapacity = n
		}
	}
}

// WithPageSizes sets the page sizes of the GPU-exclusive and CPU-writable
// page managers. Zero keeps the default for that class.
func WithPageSizes(gpu, cpu uint64) Option {
	return func(o *options) {
		if gpu > 0 {
			o.gpuPageSize = gpu
		}
		if cpu > 0 {
			o.cpuPageSize = cpu
		}
	}
}

// WithLogger sets the logger used for Context lifecycle messages.
// Sub-packages keep logging through the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
