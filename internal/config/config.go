// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package config loads framesim settings from defaults, an optional YAML
// file and GPUFRAME_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. GPUFRAME_FRAMES_COUNT.
const EnvPrefix = "GPUFRAME"

// Config is the framesim configuration.
type Config struct {
	Backend string        `mapstructure:"backend"`
	Frames  FramesConfig  `mapstructure:"frames"`
	Pages   PagesConfig   `mapstructure:"pages"`
	Staging StagingConfig `mapstructure:"staging"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FramesConfig shapes the simulated frame loop.
type FramesConfig struct {
	Count       int    `mapstructure:"count"`
	InFlight    int    `mapstructure:"in_flight"`
	GPUAllocs   int    `mapstructure:"gpu_allocs"`
	CPUAllocs   int    `mapstructure:"cpu_allocs"`
	AllocSize   uint64 `mapstructure:"alloc_size"`
	Uploads     int    `mapstructure:"uploads"`
	UploadBytes uint32 `mapstructure:"upload_bytes"`
}

// PagesConfig sets the linear allocator page sizes.
type PagesConfig struct {
	GPUSize uint64 `mapstructure:"gpu_size"`
	CPUSize uint64 `mapstructure:"cpu_size"`
}

// StagingConfig sets the upload batch capacity.
type StagingConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: "software",
		Frames: FramesConfig{
			Count:       120,
			InFlight:    2,
			GPUAllocs:   16,
			CPUAllocs:   16,
			AllocSize:   4 << 10,
			Uploads:     4,
			UploadBytes: 1 << 10,
		},
		Pages: PagesConfig{
			GPUSize: 64 << 10,
			CPUSize: 2 << 20,
		},
		Staging: StagingConfig{
			Capacity: 256,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads configuration from cfgFile (or ./framesim.yaml and
// $HOME/.gpuframe/framesim.yaml when empty), then applies environment
// overrides and flags bound to v. A missing default file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gpuframe"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("framesim")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("frames.count", cfg.Frames.Count)
	v.SetDefault("frames.in_flight", cfg.Frames.InFlight)
	v.SetDefault("frames.gpu_allocs", cfg.Frames.GPUAllocs)
	v.SetDefault("frames.cpu_allocs", cfg.Frames.CPUAllocs)
	v.SetDefault("frames.alloc_size", cfg.Frames.AllocSize)
	v.SetDefault("frames.uploads", cfg.Frames.Uploads)
	v.SetDefault("frames.upload_bytes", cfg.Frames.UploadBytes)
	v.SetDefault("pages.gpu_size", cfg.Pages.GPUSize)
	v.SetDefault("pages.cpu_size", cfg.Pages.CPUSize)
	v.SetDefault("staging.capacity", cfg.Staging.Capacity)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Frames.Count < 0 {
		return errors.New("frames.count must not be negative")
	}
	if c.Frames.InFlight < 1 {
		return errors.New("frames.in_flight must be at least 1")
	}
	if c.Frames.GPUAllocs < 0 || c.Frames.CPUAllocs < 0 || c.Frames.Uploads < 0 {
		return errors.New("per-frame counts must not be negative")
	}
	if c.Staging.Capacity < 1 {
		return errors.New("staging.capacity must be at least 1")
	}
	for _, size := range []uint64{c.Pages.GPUSize, c.Pages.CPUSize} {
		if size == 0 || size&(size-1) != 0 {
			return fmt.Errorf("page size %d is not a power of two", size)
		}
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		return fmt.Errorf("logging.format must be text or json")
	}
	return nil
}

// Level returns the slog level of Logging.Level.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelWarn
	}
	return l
}
