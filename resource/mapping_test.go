// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"testing"

	"github.com/gogpu/gpuframe/gpucore"
)

func TestMapping(t *testing.T) {
	res := newFake(16, true)
	h := New(res, gpucore.StateGenericRead)

	m, err := h.Map()
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	copy(m.Bytes(), "hello")
	if string(res.mem[:5]) != "hello" {
		t.Errorf("mapped write not visible: %q", res.mem[:5])
	}

	if _, err := h.Map(); !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("second Map() error = %v, want ErrAlreadyMapped", err)
	}

	m.Close()
	m.Close()
	if res.unmaps != 1 {
		t.Errorf("Unmap called %d times, want 1", res.unmaps)
	}
	if m.Bytes() != nil {
		t.Error("Bytes() after Close is not nil")
	}

	if _, err := h.Map(); err != nil {
		t.Errorf("Map() after Close error = %v", err)
	}
	h.Destroy()
	if res.unmaps != 2 {
		t.Errorf("Destroy of mapped handle: unmaps = %d, want 2", res.unmaps)
	}
}

func TestMapNotMappable(t *testing.T) {
	h := New(newFake(16, false), gpucore.StateCommon)
	if _, err := h.Map(); !errors.Is(err, gpucore.ErrNotMappable) {
		t.Errorf("Map() error = %v, want ErrNotMappable", err)
	}
}

func TestMappingCloseAfterDestroy(t *testing.T) {
	res := newFake(16, true)
	h := New(res, gpucore.StateGenericRead)
	m, _ := h.Map()
	h.Destroy()
	m.Close()
	if res.unmaps != 1 {
		t.Errorf("Unmap called %d times, want 1", res.unmaps)
	}
}
