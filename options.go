// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rp

import (
	"log/slog"

	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/plugin"
)

// Option configures a RenderPipeline during creation.
// Use functional options to customize pipeline behavior.
//
// Example:
//
//	// Headless pipeline with defaults
//	p := rp.New()
//
//	// Pipeline on an application-provided device
//	p := rp.New(rp.WithDevice(dev), rp.WithResolution(2560, 1440))
type Option func(*pipelineOptions)

// pipelineOptions holds optional configuration for pipeline creation.
type pipelineOptions struct {
	settings     Settings
	settingsPath string
	device       device.DeviceHandle
	pluginConfig *plugin.Config
	logger       *slog.Logger
	overrides    []func(*Settings)
}

// defaultPipelineOptions returns the default pipeline options.
func defaultPipelineOptions() pipelineOptions {
	return pipelineOptions{
		settings: DefaultSettings(),
		device:   device.NullDeviceHandle{},
	}
}

// WithDevice sets the GPU device handle the pipeline renders on.
// Without it the pipeline runs headless: the graph is wired and
// updated, but no GPU resources are allocated.
func WithDevice(h device.DeviceHandle) Option {
	return func(o *pipelineOptions) {
		if h != nil {
			o.device = h
		}
	}
}

// WithSettingsFile loads pipeline settings from a YAML file before the
// other options apply.
func WithSettingsFile(path string) Option {
	return func(o *pipelineOptions) {
		o.settingsPath = path
	}
}

// WithShaderDir sets the root directory of the pipeline's WGSL sources.
func WithShaderDir(dir string) Option {
	return func(o *pipelineOptions) {
		o.overrides = append(o.overrides, func(s *Settings) { s.ShaderDir = dir })
	}
}

// WithResolution sets the initial pipeline resolution.
func WithResolution(width, height int) Option {
	return func(o *pipelineOptions) {
		o.overrides = append(o.overrides, func(s *Settings) {
			s.Width, s.Height = width, height
		})
	}
}

// WithHotReload enables or disables shader hot reloading.
func WithHotReload(enabled bool) Option {
	return func(o *pipelineOptions) {
		o.overrides = append(o.overrides, func(s *Settings) { s.HotReload = enabled })
	}
}

// WithPluginConfigFile sets the path of the plugin configuration file.
func WithPluginConfigFile(path string) Option {
	return func(o *pipelineOptions) {
		o.overrides = append(o.overrides, func(s *Settings) { s.PluginConfig = path })
	}
}

// WithPluginConfig supplies the plugin configuration directly, bypassing
// the configuration file.
func WithPluginConfig(cfg plugin.Config) Option {
	return func(o *pipelineOptions) {
		o.pluginConfig = &cfg
	}
}

// WithDayTime sets the initial normalized time of day in [0, 1).
func WithDayTime(t float64) Option {
	return func(o *pipelineOptions) {
		o.overrides = append(o.overrides, func(s *Settings) { s.DayTime = t })
	}
}

// WithLogger installs a logger for the pipeline and all sub-packages.
// Equivalent to calling [SetLogger] before New.
func WithLogger(l *slog.Logger) Option {
	return func(o *pipelineOptions) {
		o.logger = l
	}
}
