// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package plugin implements the plugin layer of the render pipeline:
// discovery through a factory registry, configuration from YAML, typed
// settings with shader-define export, day-time animated settings, and the
// lifecycle hooks through which plugins contribute stages and react to
// pipeline events.
package plugin

import (
	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/shader"
	"github.com/gogpu/rp/stage"
)

// Info describes a plugin to the configuration layer and the UI.
type Info struct {
	// ID is the unique plugin identifier used in configuration files,
	// define names and target namespacing. Lowercase with underscores.
	ID string

	// Name is the human-readable plugin name.
	Name string

	// Description summarizes what the plugin renders.
	Description string

	// Version is the plugin version string.
	Version string

	// RequiredPlugins lists plugin IDs that must be enabled for this
	// plugin to work. The manager enables them automatically.
	RequiredPlugins []string
}

// Host is the view of the render pipeline exposed to plugins and their
// hooks. The root pipeline implements it.
type Host interface {
	// StageManager returns the pipeline's stage graph.
	StageManager() *stage.Manager

	// DeviceHandle returns the host application's GPU device handle.
	DeviceHandle() device.DeviceHandle

	// ShaderLoader returns the pipeline's shader loader.
	ShaderLoader() *shader.Loader

	// Resolution returns the current pipeline resolution.
	Resolution() (width, height int)
}

// Plugin is an optional bundle of stages, settings and event hooks.
//
// Embed BasePlugin for the metadata plumbing and no-op hooks; a concrete
// plugin typically overrides OnStageSetup to create and register its
// stages.
type Plugin interface {
	// Info returns the plugin metadata.
	Info() Info

	// Stages returns the stages this plugin contributes to the graph.
	// Called after OnStageSetup.
	Stages() []stage.RenderStage

	// Settings returns the plugin's setting container.
	Settings() *Settings

	// DaySettings returns the plugin's day-time animated settings, or nil.
	DaySettings() *DaySettings

	// OnPipelineCreated runs after the whole pipeline is set up.
	OnPipelineCreated(h Host) error

	// OnStageSetup runs before stage injection; plugins construct their
	// stages here.
	OnStageSetup(h Host) error

	// OnPostStageSetup runs after the stage graph is wired.
	OnPostStageSetup(h Host) error

	// OnPreRenderUpdate runs every frame before the stage updates.
	OnPreRenderUpdate(h Host) error

	// OnShaderReload runs after a shader reload completed.
	OnShaderReload(h Host) error

	// OnWindowResized runs after the pipeline resolution changed.
	OnWindowResized(h Host, width, height int) error

	// OnSettingChanged runs when one of the plugin's runtime settings
	// changed. Shader-relevant changes additionally trigger a reload,
	// handled by the manager.
	OnSettingChanged(h Host, name string) error

	// OnUnload runs when the plugin is disabled at runtime.
	OnUnload(h Host) error
}

// BasePlugin provides metadata storage, stage bookkeeping and no-op hooks.
type BasePlugin struct {
	info        Info
	settings    *Settings
	daySettings *DaySettings
	stages      []stage.RenderStage
}

// NewBase creates the embeddable plugin core.
func NewBase(info Info) BasePlugin {
	return BasePlugin{
		info:     info,
		settings: NewSettings(),
	}
}

// Info returns the plugin metadata.
func (p *BasePlugin) Info() Info { return p.info }

// Settings returns the plugin's setting container.
func (p *BasePlugin) Settings() *Settings { return p.settings }

// DaySettings returns the plugin's day-time settings, or nil.
func (p *BasePlugin) DaySettings() *DaySettings { return p.daySettings }

// SetDaySettings installs the plugin's day-time settings.
func (p *BasePlugin) SetDaySettings(ds *DaySettings) { p.daySettings = ds }

// AddStage records a stage contribution and claims it for this plugin.
func (p *BasePlugin) AddStage(st stage.RenderStage) {
	if claimer, ok := st.(interface{ SetPluginID(string) }); ok {
		claimer.SetPluginID(p.info.ID)
	}
	p.stages = append(p.stages, st)
}

// Stages returns the contributed stages in registration order.
func (p *BasePlugin) Stages() []stage.RenderStage {
	out := make([]stage.RenderStage, len(p.stages))
	copy(out, p.stages)
	return out
}

// Default no-op hooks.

func (p *BasePlugin) OnPipelineCreated(Host) error         { return nil }
func (p *BasePlugin) OnStageSetup(Host) error              { return nil }
func (p *BasePlugin) OnPostStageSetup(Host) error          { return nil }
func (p *BasePlugin) OnPreRenderUpdate(Host) error         { return nil }
func (p *BasePlugin) OnShaderReload(Host) error            { return nil }
func (p *BasePlugin) OnWindowResized(Host, int, int) error { return nil }
func (p *BasePlugin) OnSettingChanged(Host, string) error  { return nil }
func (p *BasePlugin) OnUnload(Host) error                  { return nil }
