// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package commands implements the framesim command tree.
package commands

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gogpu/gpuframe/internal/config"

	// Register device backends.
	_ "github.com/gogpu/gpuframe/backend/native"
	_ "github.com/gogpu/gpuframe/backend/software"
)

var cfgFile string

// rootCmd represents the base command.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "framesim",
		Short: "Simulate a GPU frame loop with gpuframe",
		Long: `framesim runs a frame loop against a gpuframe backend: every frame
allocates from the linear page allocators, stages uploads through the copy
engine and submits a graphics command list. It prints how many command
allocators, pages and staging batches were created and recycled.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./framesim.yaml or $HOME/.gpuframe/framesim.yaml)")
	cmd.PersistentFlags().String("backend", "", "device backend (software, native)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (text, json)")

	cmd.AddCommand(newRunCmd(), newBackendsCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig binds the persistent flags of cmd and loads the configuration.
func loadConfig(cmd *cobra.Command, bind map[string]string) (*config.Config, error) {
	v := viper.New()
	flags := map[string]string{
		"backend":        "backend",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}
	for key, name := range bind {
		flags[key] = name
	}
	for key, name := range flags {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, err
		}
	}
	return config.Load(v, cfgFile)
}

// newLogger builds the slog logger selected by cfg.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
