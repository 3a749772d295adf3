// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plugin

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/rp/internal/logging"
)

// Manager errors.
var (
	ErrUnknownPlugin   = errors.New("plugin: plugin is not registered")
	ErrPluginDisabled  = errors.New("plugin: plugin is not enabled")
	ErrAlreadyEnabled  = errors.New("plugin: plugin is already enabled")
	ErrRequirementLoop = errors.New("plugin: required plugins form a cycle")
)

// Config is the decoded plugin configuration file.
type Config struct {
	// Enabled lists the plugin IDs to load, in activation order.
	Enabled []string `yaml:"enabled"`

	// Overrides maps plugin ID to setting name to value, applied on top
	// of setting defaults during activation.
	Overrides map[string]map[string]any `yaml:"overrides"`

	// DaySettings maps plugin ID to day setting name to its YAML
	// definition, replacing the plugin's built-in day curves.
	DaySettings map[string]map[string]map[string]any `yaml:"day_settings"`
}

// Manager owns the set of active plugins: it resolves the enabled list
// against the registry, pulls in required plugins, applies setting
// overrides, and dispatches lifecycle hooks in deterministic order.
type Manager struct {
	config    Config
	instances map[string]Plugin
	order     []string
}

// NewManager creates an empty plugin manager.
func NewManager() *Manager {
	return &Manager{instances: make(map[string]Plugin)}
}

// LoadConfig reads and applies a YAML plugin configuration file.
func (m *Manager) LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("plugin: read config: %w", err)
	}
	return m.ParseConfig(data)
}

// ParseConfig applies a YAML plugin configuration.
func (m *Manager) ParseConfig(data []byte) error {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("plugin: parse config: %w", err)
	}
	m.config = cfg
	return nil
}

// SetConfig replaces the configuration directly, for programmatic setup.
func (m *Manager) SetConfig(cfg Config) { m.config = cfg }

// Activate instantiates every enabled plugin plus its requirements.
// Activation order follows the configured order, with each plugin's
// requirements activated before the plugin itself.
func (m *Manager) Activate() error {
	m.instances = make(map[string]Plugin)
	m.order = nil

	visiting := make(map[string]bool)
	var activate func(id string, chain []string) error
	activate = func(id string, chain []string) error {
		if _, done := m.instances[id]; done {
			return nil
		}
		if visiting[id] {
			return fmt.Errorf("%w: %s", ErrRequirementLoop, strings.Join(append(chain, id), " -> "))
		}
		p := Get(id)
		if p == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPlugin, id)
		}
		visiting[id] = true
		for _, req := range p.Info().RequiredPlugins {
			if _, done := m.instances[req]; !done {
				logging.Logger().Info("enabling required plugin",
					"plugin", req, "required_by", id)
			}
			if err := activate(req, append(chain, id)); err != nil {
				return err
			}
		}
		delete(visiting, id)

		if err := m.applyOverrides(id, p); err != nil {
			return err
		}
		m.instances[id] = p
		m.order = append(m.order, id)
		return nil
	}

	for _, id := range m.config.Enabled {
		if err := activate(id, nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) applyOverrides(id string, p Plugin) error {
	for _, name := range settingOverrideOrder(m.config.Overrides[id]) {
		if err := p.Settings().Set(name, m.config.Overrides[id][name]); err != nil {
			return fmt.Errorf("plugin %s: override %s: %w", id, name, err)
		}
	}
	for name, raw := range m.config.DaySettings[id] {
		ds := p.DaySettings()
		if ds == nil {
			logging.Logger().Warn("day setting override for plugin without day settings",
				"plugin", id, "setting", name)
			continue
		}
		parsed, err := ParseDaySetting(raw)
		if err != nil {
			return fmt.Errorf("plugin %s: day setting %s: %w", id, name, err)
		}
		ds.Define(name, parsed)
	}
	return nil
}

// settingOverrideOrder sorts override names for deterministic application.
func settingOverrideOrder(overrides map[string]any) []string {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled returns the active plugin IDs in activation order.
func (m *Manager) Enabled() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// IsEnabled reports whether the plugin with the given ID is active.
func (m *Manager) IsEnabled(id string) bool {
	_, ok := m.instances[id]
	return ok
}

// Plugin returns the active plugin instance with the given ID.
func (m *Manager) Plugin(id string) (Plugin, bool) {
	p, ok := m.instances[id]
	return p, ok
}

// Enable adds a plugin to the enabled set. The pipeline must be rebuilt
// for the change to take effect.
func (m *Manager) Enable(id string) error {
	if m.IsEnabled(id) {
		return fmt.Errorf("%w: %q", ErrAlreadyEnabled, id)
	}
	if !IsRegistered(id) {
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, id)
	}
	m.config.Enabled = append(m.config.Enabled, id)
	return nil
}

// Disable removes a plugin from the enabled set and runs its unload hook.
// The pipeline must be rebuilt for the change to take effect.
func (m *Manager) Disable(h Host, id string) error {
	p, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPluginDisabled, id)
	}
	if err := p.OnUnload(h); err != nil {
		return err
	}
	filtered := m.config.Enabled[:0]
	for _, e := range m.config.Enabled {
		if e != id {
			filtered = append(filtered, e)
		}
	}
	m.config.Enabled = filtered
	return nil
}

// InjectStages runs the stage setup hooks and registers every plugin
// stage with the stage manager, in activation order.
func (m *Manager) InjectStages(h Host) error {
	for _, id := range m.order {
		p := m.instances[id]
		if err := p.OnStageSetup(h); err != nil {
			return fmt.Errorf("plugin %s: stage setup: %w", id, err)
		}
		for _, st := range p.Stages() {
			if err := h.StageManager().AddStage(st); err != nil {
				return fmt.Errorf("plugin %s: %w", id, err)
			}
		}
	}
	return nil
}

// ExportDefines publishes plugin presence and shader-relevant settings as
// defines on the stage manager. A plugin with ID "bloom" and int setting
// "num_mips" yields HAVE_PLUGIN_bloom and bloom.num_mips; the autoconfig
// writer sanitizes the names for WGSL.
func (m *Manager) ExportDefines(h Host) {
	sm := h.StageManager()
	for _, id := range m.order {
		p := m.instances[id]
		sm.SetDefine("HAVE_PLUGIN_"+id, "1")
		for _, name := range p.Settings().Names() {
			setting, _ := p.Settings().Get(name)
			if !setting.ShaderRelevant() {
				continue
			}
			sm.SetDefine(id+"."+name, setting.DefineValue())
		}
	}
}

// SetSetting updates a plugin setting at runtime. Shader-relevant runtime
// settings get their define refreshed; the caller decides when to trigger
// the shader reload. Non-runtime settings are rejected.
func (m *Manager) SetSetting(h Host, pluginID, name string, value any) error {
	p, ok := m.instances[pluginID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrPluginDisabled, pluginID)
	}
	setting, ok := p.Settings().Get(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownSetting, pluginID, name)
	}
	if !setting.Runtime && !setting.ShaderRuntime {
		return fmt.Errorf("%w: %s.%s", ErrNotRuntime, pluginID, name)
	}
	if err := setting.Set(value); err != nil {
		return err
	}
	if setting.ShaderRelevant() {
		h.StageManager().SetDefine(pluginID+"."+name, setting.DefineValue())
	}
	return p.OnSettingChanged(h, name)
}

// NeedsShaderReload reports whether changing the given setting requires
// recompiling shaders.
func (m *Manager) NeedsShaderReload(pluginID, name string) bool {
	p, ok := m.instances[pluginID]
	if !ok {
		return false
	}
	setting, ok := p.Settings().Get(name)
	return ok && setting.ShaderRuntime
}

// UpdateDayTime evaluates every day setting at the given normalized time
// of day and publishes the values as stage manager inputs named
// "<plugin>.<setting>".
func (m *Manager) UpdateDayTime(h Host, t float64) {
	sm := h.StageManager()
	for _, id := range m.order {
		ds := m.instances[id].DaySettings()
		if ds == nil {
			continue
		}
		for _, name := range ds.Names() {
			setting, _ := ds.Get(name)
			sm.SetInput(id+"."+name, setting.ValueAt(t))
		}
	}
}

// Hook dispatch, in activation order. The first error aborts.

// OnPipelineCreated notifies every plugin that setup finished.
func (m *Manager) OnPipelineCreated(h Host) error {
	return m.each(h, "pipeline created", Plugin.OnPipelineCreated)
}

// OnPostStageSetup notifies every plugin that the stage graph is wired.
func (m *Manager) OnPostStageSetup(h Host) error {
	return m.each(h, "post stage setup", Plugin.OnPostStageSetup)
}

// OnPreRenderUpdate runs the per-frame plugin hooks.
func (m *Manager) OnPreRenderUpdate(h Host) error {
	return m.each(h, "pre render update", Plugin.OnPreRenderUpdate)
}

// OnShaderReload notifies every plugin that shaders were recompiled.
func (m *Manager) OnShaderReload(h Host) error {
	return m.each(h, "shader reload", Plugin.OnShaderReload)
}

// OnWindowResized notifies every plugin of the new resolution.
func (m *Manager) OnWindowResized(h Host, width, height int) error {
	for _, id := range m.order {
		if err := m.instances[id].OnWindowResized(h, width, height); err != nil {
			return fmt.Errorf("plugin %s: window resized: %w", id, err)
		}
	}
	return nil
}

func (m *Manager) each(h Host, what string, hook func(Plugin, Host) error) error {
	for _, id := range m.order {
		if err := hook(m.instances[id], h); err != nil {
			return fmt.Errorf("plugin %s: %s: %w", id, what, err)
		}
	}
	return nil
}
