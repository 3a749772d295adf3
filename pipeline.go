// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rp

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync/atomic"

	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/internal/logging"
	"github.com/gogpu/rp/plugin"
	"github.com/gogpu/rp/shader"
	"github.com/gogpu/rp/stage"
)

// Pipeline errors.
var (
	ErrAlreadyCreated = errors.New("rp: pipeline is already created")
	ErrNotCreated     = errors.New("rp: pipeline is not created yet")
)

// RenderPipeline owns the stage graph, the shader loader and the plugin
// set, and drives them through the frame lifecycle. It is not safe for
// concurrent use; drive it from the render thread.
type RenderPipeline struct {
	settings  Settings
	dev       device.DeviceHandle
	pluginCfg *plugin.Config

	shaders *shader.Loader
	stages  *stage.Manager
	plugins *plugin.Manager
	watcher *shader.Watcher

	frameIndex uint64
	dayTime    float64
	created    bool

	// reloadPending is set by the watcher goroutine and consumed at the
	// start of Update, so the reload itself runs on the render thread.
	reloadPending atomic.Bool
}

// New creates an unconfigured pipeline. Call Create to build the stage
// graph before the first Update.
func New(opts ...Option) *RenderPipeline {
	o := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}
	if o.settingsPath != "" {
		loaded, err := LoadSettings(o.settingsPath)
		if err != nil {
			logging.Logger().Warn("settings file ignored", "error", err)
		} else {
			o.settings = loaded
		}
	}
	for _, override := range o.overrides {
		override(&o.settings)
	}

	return &RenderPipeline{
		settings:  o.settings,
		dev:       o.device,
		pluginCfg: o.pluginConfig,
		dayTime:   clampDayTime(o.settings.DayTime),
	}
}

// Settings returns the effective pipeline settings.
func (p *RenderPipeline) Settings() Settings { return p.settings }

// Create builds the pipeline: it activates the configured plugins, wires
// the stage graph, compiles the initial shader set and starts the hot
// reload watcher if enabled.
func (p *RenderPipeline) Create() error {
	if p.created {
		return ErrAlreadyCreated
	}

	p.shaders = shader.NewLoader(p.dev, p.settings.ShaderDir)
	p.plugins = plugin.NewManager()
	switch {
	case p.pluginCfg != nil:
		p.plugins.SetConfig(*p.pluginCfg)
	case p.settings.PluginConfig != "":
		if err := p.plugins.LoadConfig(p.settings.PluginConfig); err != nil {
			return err
		}
	}

	if err := p.build(); err != nil {
		return err
	}
	p.created = true

	if p.settings.HotReload {
		if err := p.startWatcher(); err != nil {
			logging.Logger().Warn("shader hot reload unavailable", "error", err)
		}
	}

	logging.Logger().Info("pipeline created",
		"stages", len(p.stages.Order()),
		"plugins", len(p.plugins.Enabled()),
		"width", p.settings.Width, "height", p.settings.Height)
	return p.plugins.OnPipelineCreated(p)
}

// build activates plugins and wires a fresh stage graph. Used by Create
// and by plugin toggles, which need the graph rebuilt from scratch.
func (p *RenderPipeline) build() error {
	if err := p.plugins.Activate(); err != nil {
		return err
	}
	for _, id := range p.plugins.Enabled() {
		p.shaders.SetPluginRoot(id, filepath.Join(p.settings.ShaderDir, "plugins", id))
	}

	p.stages = stage.NewManager(&stage.Context{
		Device:  p.dev,
		Shaders: p.shaders,
		Width:   p.settings.Width,
		Height:  p.settings.Height,
	})
	p.stages.AddInput("DayTime", p.dayTime)
	p.stages.AddInput("FrameTime", 0.0)
	p.stages.AddInput("FrameIndex", p.frameIndex)

	if err := p.plugins.InjectStages(p); err != nil {
		return err
	}
	p.plugins.ExportDefines(p)

	if err := p.stages.Setup(); err != nil {
		var soft *stage.SetupError
		if !errors.As(err, &soft) {
			return fmt.Errorf("rp: stage setup: %w", err)
		}
		// Unsatisfiable stages were disabled; the graph still runs.
		logging.Logger().Warn("stages disabled during setup", "error", soft)
	}
	p.plugins.UpdateDayTime(p, p.dayTime)
	return p.plugins.OnPostStageSetup(p)
}

func (p *RenderPipeline) startWatcher() error {
	dirs := []string{p.settings.ShaderDir}
	for _, id := range p.plugins.Enabled() {
		dirs = append(dirs, filepath.Join(p.settings.ShaderDir, "plugins", id))
	}
	w, err := shader.NewWatcher(dirs, func(path string) {
		logging.Logger().Info("shader changed, reload scheduled", "path", path)
		p.reloadPending.Store(true)
	})
	if err != nil {
		return err
	}
	p.watcher = w
	return nil
}

// Update advances the pipeline by one frame: it performs any shader
// reload scheduled by the hot-reload watcher, publishes the frame inputs,
// runs the per-frame plugin hooks and updates every active stage in
// dependency order.
func (p *RenderPipeline) Update(frameTime float64) error {
	if !p.created {
		return ErrNotCreated
	}
	if p.reloadPending.CompareAndSwap(true, false) {
		if err := p.ReloadShaders(); err != nil {
			logging.Logger().Warn("shader reload failed", "error", err)
		}
	}
	p.frameIndex++
	p.stages.SetInput("FrameTime", frameTime)
	p.stages.SetInput("FrameIndex", p.frameIndex)
	if err := p.plugins.OnPreRenderUpdate(p); err != nil {
		return err
	}
	return p.stages.Update()
}

// FrameIndex returns the number of completed Update calls.
func (p *RenderPipeline) FrameIndex() uint64 { return p.frameIndex }

// SetDayTime sets the normalized time of day in [0, 1) and pushes every
// day setting's value for that time into the stage graph.
func (p *RenderPipeline) SetDayTime(t float64) {
	p.dayTime = clampDayTime(t)
	if !p.created {
		return
	}
	p.stages.SetInput("DayTime", p.dayTime)
	p.plugins.UpdateDayTime(p, p.dayTime)
}

// DayTime returns the current normalized time of day.
func (p *RenderPipeline) DayTime() float64 { return p.dayTime }

// ReloadShaders regenerates the autoconfig header, recompiles every stage
// program and rebinds the graph, then notifies the plugins.
func (p *RenderPipeline) ReloadShaders() error {
	if !p.created {
		return ErrNotCreated
	}
	if err := p.stages.ReloadShaders(); err != nil {
		return err
	}
	return p.plugins.OnShaderReload(p)
}

// HandleWindowResize propagates a new resolution through every stage and
// plugin. Targets sized relative to the resolution are recreated.
func (p *RenderPipeline) HandleWindowResize(width, height int) error {
	if !p.created {
		return ErrNotCreated
	}
	p.settings.Width, p.settings.Height = width, height
	if err := p.stages.HandleWindowResize(width, height); err != nil {
		return err
	}
	return p.plugins.OnWindowResized(p, width, height)
}

// SetPluginEnabled toggles a plugin at runtime and rebuilds the stage
// graph so its stages enter or leave the schedule.
func (p *RenderPipeline) SetPluginEnabled(id string, enabled bool) error {
	if !p.created {
		return ErrNotCreated
	}
	if enabled {
		if err := p.plugins.Enable(id); err != nil {
			return err
		}
	} else {
		if err := p.plugins.Disable(p, id); err != nil {
			return err
		}
	}
	logging.Logger().Info("plugin toggled, rebuilding graph",
		"plugin", id, "enabled", enabled)
	err := p.build()
	if err == nil {
		return nil
	}

	// Roll the toggle back and restore the previous graph so one bad
	// plugin cannot leave the pipeline half-built.
	logging.Logger().Warn("graph rebuild failed, rolling back toggle",
		"plugin", id, "enabled", enabled, "error", err)
	var rollback error
	if enabled {
		rollback = p.plugins.Disable(p, id)
	} else {
		rollback = p.plugins.Enable(id)
	}
	if rollback == nil {
		rollback = p.build()
	}
	if rollback != nil {
		return errors.Join(err, rollback)
	}
	return err
}

// SetSetting updates a plugin setting at runtime. Settings baked into
// shader defines trigger a shader reload.
func (p *RenderPipeline) SetSetting(pluginID, name string, value any) error {
	if !p.created {
		return ErrNotCreated
	}
	needsReload := p.plugins.NeedsShaderReload(pluginID, name)
	if err := p.plugins.SetSetting(p, pluginID, name, value); err != nil {
		return err
	}
	if needsReload {
		return p.ReloadShaders()
	}
	return nil
}

// Destroy stops the shader watcher and releases the pipeline. The GPU
// device itself belongs to the host application and is left untouched.
func (p *RenderPipeline) Destroy() error {
	if p.watcher != nil {
		if err := p.watcher.Close(); err != nil {
			return err
		}
		p.watcher = nil
	}
	p.created = false
	return nil
}

// plugin.Host implementation.

// StageManager returns the pipeline's stage graph.
func (p *RenderPipeline) StageManager() *stage.Manager { return p.stages }

// DeviceHandle returns the device handle the pipeline renders on.
func (p *RenderPipeline) DeviceHandle() device.DeviceHandle { return p.dev }

// ShaderLoader returns the pipeline's shader loader.
func (p *RenderPipeline) ShaderLoader() *shader.Loader { return p.shaders }

// Resolution returns the current pipeline resolution.
func (p *RenderPipeline) Resolution() (int, int) {
	return p.settings.Width, p.settings.Height
}

// clampDayTime wraps a day time into [0, 1).
func clampDayTime(t float64) float64 {
	t = t - math.Floor(t)
	if t < 0 || math.IsNaN(t) {
		return 0
	}
	return t
}
