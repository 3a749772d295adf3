// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rp

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Settings holds the pipeline-level configuration. Values load from a
// YAML file, then environment variables override individual fields, then
// functional options override both.
type Settings struct {
	// ShaderDir is the root directory of the pipeline's WGSL sources.
	ShaderDir string `yaml:"shader_dir" env:"RP_SHADER_DIR"`

	// PluginConfig is the path of the plugin configuration file.
	// Empty disables file-based plugin configuration.
	PluginConfig string `yaml:"plugin_config" env:"RP_PLUGIN_CONFIG"`

	// HotReload recompiles shaders when their source files change.
	HotReload bool `yaml:"hot_reload" env:"RP_HOT_RELOAD"`

	// Width and Height are the initial pipeline resolution.
	Width  int `yaml:"width" env:"RP_WIDTH"`
	Height int `yaml:"height" env:"RP_HEIGHT"`

	// DayTime is the initial normalized time of day in [0, 1),
	// where 0.5 is noon.
	DayTime float64 `yaml:"day_time" env:"RP_DAY_TIME"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		ShaderDir: "shaders",
		Width:     1920,
		Height:    1080,
		DayTime:   0.5,
	}
}

// LoadSettings reads a YAML settings file and applies RP_* environment
// overrides on top. Missing file fields keep their defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return s, fmt.Errorf("rp: read settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return s, fmt.Errorf("rp: parse settings: %w", err)
		}
	}
	if err := env.Parse(&s); err != nil {
		return s, fmt.Errorf("rp: settings from environment: %w", err)
	}
	return s, nil
}
