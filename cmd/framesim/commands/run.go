// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/gpuframe"
	"github.com/gogpu/gpuframe/internal/config"
	"github.com/gogpu/gpuframe/pagealloc"
	"github.com/gogpu/gpuframe/upload"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the frame loop and print pool statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, map[string]string{
				"frames.count":     "frames",
				"frames.in_flight": "in-flight",
				"frames.uploads":   "uploads",
				"staging.capacity": "staging-capacity",
			})
			if err != nil {
				return err
			}
			return runFrames(cmd, cfg)
		},
	}
	cmd.Flags().Int("frames", 0, "number of frames to simulate")
	cmd.Flags().Int("in-flight", 0, "frames in flight")
	cmd.Flags().Int("uploads", 0, "buffer uploads per frame")
	cmd.Flags().Int("staging-capacity", 0, "uploads per staging batch")
	return cmd
}

func runFrames(cmd *cobra.Command, cfg *config.Config) error {
	log := newLogger(cmd.ErrOrStderr(), cfg)
	gpuframe.SetLogger(log)
	defer gpuframe.SetLogger(nil)

	ctx, err := gpuframe.Open(cfg.Backend,
		gpuframe.WithFramesInFlight(cfg.Frames.InFlight),
		gpuframe.WithStagingCapacity(cfg.Staging.Capacity),
		gpuframe.WithPageSizes(cfg.Pages.GPUSize, cfg.Pages.CPUSize),
		gpuframe.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer func() { _ = ctx.Close() }()

	payload := make([]byte, cfg.Frames.UploadBytes)
	for i := range payload {
		payload[i] = byte(i)
	}

	var buffers []*upload.Buffer
	defer func() {
		ctx.Queues().WaitForIdle()
		for _, b := range buffers {
			b.Destroy()
		}
	}()
	for i := 0; i < cfg.Frames.Count; i++ {
		frame, err := ctx.BeginFrame()
		if err != nil {
			return err
		}
		for j := 0; j < cfg.Frames.GPUAllocs; j++ {
			if _, err := frame.AllocateGPU(cfg.Frames.AllocSize, pagealloc.DefaultAlignment); err != nil {
				return err
			}
		}
		for j := 0; j < cfg.Frames.CPUAllocs; j++ {
			a, err := frame.AllocateCPU(cfg.Frames.AllocSize, pagealloc.DefaultAlignment)
			if err != nil {
				return err
			}
			copy(a.CPU, payload)
		}
		for j := 0; j < cfg.Frames.Uploads && len(payload) >= 4; j++ {
			buf, err := ctx.Uploads().CreateOnGPU(fmt.Sprintf("frame %d buffer %d", i, j),
				uint32(len(payload)/4), 4, payload)
			if err != nil {
				return err
			}
			buffers = append(buffers, buf)
		}
		if err := ctx.FlushUploads(false); err != nil {
			return err
		}
		if _, err := frame.Submit(); err != nil {
			return err
		}
	}
	if err := ctx.FlushUploads(true); err != nil {
		return err
	}
	ctx.Queues().WaitForIdle()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend: %s\n", ctx.Backend())
	fmt.Fprintf(out, "buffers uploaded: %d\n", len(buffers))
	fmt.Fprintln(out, ctx.Stats())
	return nil
}
