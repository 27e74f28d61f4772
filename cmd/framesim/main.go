// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command framesim drives a simulated frame loop through gpuframe and prints
// the recycling statistics of every pool.
package main

import (
	"os"

	"github.com/gogpu/gpuframe/cmd/framesim/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
