// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
)

// init registers the software backend on package import.
func init() {
	backend.Register(backend.Software, func() (gpucore.Device, error) {
		return New(), nil
	})
}
