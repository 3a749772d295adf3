// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package stage implements the render-stage dependency graph and its
// execution scheduler.
//
// A RenderStage is a unit of GPU work that declares the named resources
// ("pipes") it requires and produces. The Manager topologically sorts the
// stages by those declarations, creates them in dependency order, wires
// produced pipe values into the shader inputs of consuming stages, and
// drives the per-frame update, window-resize and shader-reload walks — the
// same order every time.
//
// Two pipe namespaces relax the DAG without breaking it: a stage may consume
// the previous frame's copy of a pipe (PreviousFramePrefix), serviced by an
// internal transfer stage that runs at the end of the frame, or declare a
// requirement as a future pipe (FuturePrefix) that is bound after setup
// without contributing an ordering edge.
package stage

import (
	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/shader"
)

// Pipe namespaces. The prefix is stripped before the pipe registry lookup.
const (
	// PreviousFramePrefix marks a requirement on last frame's value of a
	// pipe. Consuming it adds no graph edge; the bound input is named
	// "Previous_<pipe>".
	PreviousFramePrefix = "PreviousFrame::"

	// FuturePrefix marks a requirement that is bound after all stages are
	// created, without an ordering edge. This is how intentional feedback
	// loops (e.g. temporal effects reading their own output) are declared.
	FuturePrefix = "FuturePipe::"
)

// InternalPluginID namespaces targets and shaders of stages that belong to
// the pipeline core rather than to a plugin.
const InternalPluginID = "render_pipeline_internal"

// Context carries the pipeline services a stage needs during its lifecycle:
// the host GPU device, the shader loader, and the current resolution.
type Context struct {
	// Device is the host application's GPU device handle.
	Device device.DeviceHandle

	// Shaders loads and compiles stage programs.
	Shaders *shader.Loader

	// Width and Height are the current pipeline resolution.
	Width  int
	Height int
}

// RenderStage is a unit of GPU work scheduled by the Manager.
//
// The declaration methods (RequiredPipes through ProducedDefines) must be
// stable: the Manager reads them before Create to build the dependency
// graph. Produced values are collected after Create via Resource.
//
// Embed BaseStage for default implementations of everything except Create.
type RenderStage interface {
	// StageID returns the unique stage identifier.
	StageID() string

	// PluginID returns the owning plugin's identifier, or
	// InternalPluginID for core stages.
	PluginID() string

	// RequiredPipes lists the pipes this stage consumes, optionally
	// namespaced with PreviousFramePrefix or FuturePrefix.
	RequiredPipes() []string

	// RequiredInputs lists the named inputs (uniforms, constant buffers)
	// this stage consumes.
	RequiredInputs() []string

	// ProducedPipes lists the pipes this stage produces. The values are
	// published during Create and collected via Resource.
	ProducedPipes() []string

	// ProducedInputs lists the named inputs this stage produces.
	ProducedInputs() []string

	// ProducedDefines returns shader defines exported by this stage into
	// the generated define header.
	ProducedDefines() map[string]string

	// Resource returns the published value for a produced pipe or input.
	// Only valid after Create.
	Resource(name string) (any, bool)

	// Create builds the stage's targets, images and shaders. Called once
	// during Manager.Setup, in dependency order.
	Create(ctx *Context) error

	// Update performs the stage's per-frame work. Called in dependency
	// order for active stages.
	Update() error

	// ReloadShaders rebuilds the stage's shader programs. Bound inputs
	// survive a reload; only the programs are replaced.
	ReloadShaders() error

	// HandleWindowResize adjusts the stage to a new pipeline resolution.
	HandleWindowResize(width, height int) error

	// SetShaderInput binds a named value into all of the stage's targets.
	// The Manager uses this to wire required pipes and inputs.
	SetShaderInput(name string, value any)

	// SetActive toggles the stage. Inactive stages are skipped by Setup
	// and Update and contribute no pipes or defines.
	SetActive(active bool)

	// Active reports whether the stage participates in the pipeline.
	Active() bool
}
