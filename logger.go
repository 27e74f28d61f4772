// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"log/slog"

	"github.com/gogpu/gpuframe/internal/glog"
)

// SetLogger configures the logger for gpuframe and all its sub-packages.
// By default, gpuframe produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by gpuframe:
//   - [slog.LevelDebug]: pool growth and recycling (new allocator, new page, forced upload flush)
//   - [slog.LevelInfo]: lifecycle events (context created, backend selected)
//   - [slog.LevelWarn]: non-fatal issues during shutdown
//   - [slog.LevelError]: a failed frame submission that poisons its Context
//
// Example:
//
//	// Enable info-level logging to stderr:
//	gpuframe.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	gpuframe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	glog.SetLogger(l)
}

// Logger returns the current logger used by gpuframe.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return glog.Logger()
}
