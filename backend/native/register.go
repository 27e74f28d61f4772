// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package native

import (
	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
)

// init registers the native backend on package import.
func init() {
	backend.Register(backend.Native, func() (gpucore.Device, error) {
		d, err := NewStandalone()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}
