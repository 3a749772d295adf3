// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package stage

import (
	"errors"
	"fmt"

	"github.com/gogpu/rp/shader"
	"github.com/gogpu/rp/target"
)

// ErrTargetExists is returned when a stage creates two targets with the
// same name.
var ErrTargetExists = errors.New("stage: target already exists")

// BaseStage provides the common machinery of a render stage: target
// ownership, shader-input fan-out, activity toggling, resource publishing
// and shader loading. Concrete stages embed it and override the declaration
// methods and lifecycle hooks they need.
//
//	type AmbientStage struct {
//	    stage.BaseStage
//	    tgt *target.Target
//	}
//
//	func NewAmbientStage() *AmbientStage {
//	    return &AmbientStage{BaseStage: stage.NewBase("AmbientStage")}
//	}
//
//	func (s *AmbientStage) Create(ctx *stage.Context) error {
//	    s.Init(ctx)
//	    ...
//	}
type BaseStage struct {
	id       string
	pluginID string
	ctx      *Context
	active   bool

	targets     map[string]*target.Target
	targetOrder []*target.Target

	resources map[string]any
}

// NewBase creates the embeddable stage core. The stage starts active and
// belongs to the pipeline core until a plugin claims it via SetPluginID.
func NewBase(id string) BaseStage {
	return BaseStage{
		id:        id,
		pluginID:  InternalPluginID,
		active:    true,
		targets:   make(map[string]*target.Target),
		resources: make(map[string]any),
	}
}

// StageID returns the unique stage identifier.
func (s *BaseStage) StageID() string { return s.id }

// PluginID returns the owning plugin identifier.
func (s *BaseStage) PluginID() string { return s.pluginID }

// SetPluginID claims the stage for a plugin. Called by the plugin manager
// when injecting plugin stages; affects target namespacing and shader
// resolution.
func (s *BaseStage) SetPluginID(id string) { s.pluginID = id }

// Init stores the stage context. Concrete stages call it first in Create.
func (s *BaseStage) Init(ctx *Context) { s.ctx = ctx }

// Ctx returns the stage context bound by Init.
func (s *BaseStage) Ctx() *Context { return s.ctx }

// Default declarations: a bare stage requires and produces nothing.

// RequiredPipes returns no pipes.
func (s *BaseStage) RequiredPipes() []string { return nil }

// RequiredInputs returns no inputs.
func (s *BaseStage) RequiredInputs() []string { return nil }

// ProducedPipes returns no pipes.
func (s *BaseStage) ProducedPipes() []string { return nil }

// ProducedInputs returns no inputs.
func (s *BaseStage) ProducedInputs() []string { return nil }

// ProducedDefines returns no defines.
func (s *BaseStage) ProducedDefines() map[string]string { return nil }

// Publish stores the value of a produced pipe or input. Called from Create
// once the backing image or buffer exists.
func (s *BaseStage) Publish(name string, value any) {
	s.resources[name] = value
}

// Resource returns the published value for a produced pipe or input.
func (s *BaseStage) Resource(name string) (any, bool) {
	v, ok := s.resources[name]
	return v, ok
}

// Create stores the context. Stages without GPU state need nothing more.
func (s *BaseStage) Create(ctx *Context) error {
	s.Init(ctx)
	return nil
}

// Update does nothing by default.
func (s *BaseStage) Update() error { return nil }

// ReloadShaders does nothing by default.
func (s *BaseStage) ReloadShaders() error { return nil }

// CreateTarget creates a render target owned by this stage. The target name
// is namespaced as plugin:stage:name; creating the same name twice is an
// error.
func (s *BaseStage) CreateTarget(name string) (*target.Target, error) {
	full := fmt.Sprintf("%s:%s:%s", s.pluginID, s.id, name)
	if _, ok := s.targets[full]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTargetExists, full)
	}
	t := target.New(s.ctx.Device, full)
	s.targets[full] = t
	s.targetOrder = append(s.targetOrder, t)
	return t, nil
}

// RemoveTarget destroys a target and releases its attachments.
func (s *BaseStage) RemoveTarget(t *target.Target) {
	if t == nil {
		return
	}
	t.Remove()
	delete(s.targets, t.Name())
	for i, other := range s.targetOrder {
		if other == t {
			s.targetOrder = append(s.targetOrder[:i], s.targetOrder[i+1:]...)
			break
		}
	}
}

// Targets returns the stage's targets in creation order.
func (s *BaseStage) Targets() []*target.Target {
	out := make([]*target.Target, len(s.targetOrder))
	copy(out, s.targetOrder)
	return out
}

// SetShaderInput binds a named value into all of the stage's targets.
func (s *BaseStage) SetShaderInput(name string, value any) {
	for _, t := range s.targetOrder {
		t.SetShaderInput(name, value)
	}
}

// SetActive toggles the stage and all its targets.
func (s *BaseStage) SetActive(active bool) {
	if s.active == active {
		return
	}
	s.active = active
	for _, t := range s.targetOrder {
		t.SetActive(active)
	}
}

// Active reports whether the stage participates in the pipeline.
func (s *BaseStage) Active() bool { return s.active }

// HandleWindowResize lets every target reconsider its size against the new
// resolution. Stages with additional resolution-dependent state override
// this and call it on their embedded BaseStage.
func (s *BaseStage) HandleWindowResize(width, height int) error {
	if s.ctx != nil {
		s.ctx.Width = width
		s.ctx.Height = height
	}
	for _, t := range s.targetOrder {
		if err := t.ConsiderResize(width, height); err != nil {
			return fmt.Errorf("stage %s: %w", s.id, err)
		}
	}
	return nil
}

// LoadShader compiles a program from the pipeline shader root. A single
// source is treated as a fragment stage with the default post-process
// vertex stage prepended.
func (s *BaseStage) LoadShader(sources ...string) (*shader.Program, error) {
	return s.ctx.Shaders.Load(sources...)
}

// LoadPluginShader compiles a program from the owning plugin's shader
// directory.
func (s *BaseStage) LoadPluginShader(sources ...string) (*shader.Program, error) {
	return s.ctx.Shaders.LoadPlugin(s.pluginID, sources...)
}
