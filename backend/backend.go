// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"io"

	"github.com/gogpu/gpuframe/gpucore"
)

// Backend name constants.
const (
	// Software is the name of the simulated GPU backend.
	Software = "software"
	// Native is the name of the gogpu/wgpu HAL backend.
	Native = "native"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoBackends is returned by Default when no backend could open a device.
	ErrNoBackends = errors.New("backend: no backend could open a device")
)

// Factory opens a device. Backends register a Factory from init().
type Factory func() (gpucore.Device, error)

// Close releases dev if its backend needs explicit shutdown.
// Devices that do not implement io.Closer or Close() are left alone.
func Close(dev gpucore.Device) error {
	switch c := dev.(type) {
	case io.Closer:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
