// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpuframe

import (
	"log/slog"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.framesInFlight != 2 {
		t.Errorf("framesInFlight = %d, want 2", o.framesInFlight)
	}
	if o.stagingCapacity != 256 {
		t.Errorf("stagingCapacity = %d, want 256", o.stagingCapacity)
	}
	if o.gpuPageSize != 64<<10 || o.cpuPageSize != 2<<20 {
		t.Errorf("page sizes = %d/%d, want %d/%d", o.gpuPageSize, o.cpuPageSize, 64<<10, 2<<20)
	}
	if o.logger != nil {
		t.Error("logger is set by default, want nil")
	}
}

func TestOptionsIgnoreInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero frames", WithFramesInFlight(0)},
		{"negative frames", WithFramesInFlight(-3)},
		{"zero capacity", WithStagingCapacity(0)},
		{"zero page sizes", WithPageSizes(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := defaultOptions()
			tt.opt(&o)
			if o != defaultOptions() {
				t.Errorf("options = %+v, want defaults", o)
			}
		})
	}
}

func TestOptionsApply(t *testing.T) {
	l := slog.New(slog.DiscardHandler)
	o := defaultOptions()
	for _, opt := range []Option{
		WithFramesInFlight(3),
		WithStagingCapacity(16),
		WithPageSizes(4096, 0),
		WithLogger(l),
	} {
		opt(&o)
	}
	if o.framesInFlight != 3 {
		t.Errorf("framesInFlight = %d, want 3", o.framesInFlight)
	}
	if o.stagingCapacity != 16 {
		t.Errorf("stagingCapacity = %d, want 16", o.stagingCapacity)
	}
	if o.gpuPageSize != 4096 {
		t.Errorf("gpuPageSize = %d, want 4096", o.gpuPageSize)
	}
	if o.cpuPageSize != 2<<20 {
		t.Errorf("cpuPageSize = %d, want default %d", o.cpuPageSize, 2<<20)
	}
	if o.logger != l {
		t.Error("logger not applied")
	}
}
