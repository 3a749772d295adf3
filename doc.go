// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package rp provides a modular, physically based deferred rendering
// pipeline for the GoGPU ecosystem.
//
// # Overview
//
// rp organizes rendering as a graph of stages. Each stage declares the
// pipes (render targets, buffers) and inputs (uniform values) it requires
// and produces; the stage manager orders the graph topologically, wires
// producer outputs into consumer shader inputs, and re-wires everything
// on window resizes and shader reloads. Plugins bundle stages, typed
// settings and day-time curves, and can be toggled through a YAML
// configuration file.
//
// # Quick Start
//
//	import "github.com/gogpu/rp"
//
//	pipeline := rp.New(
//	    rp.WithDevice(dev),
//	    rp.WithShaderDir("shaders"),
//	    rp.WithResolution(1920, 1080),
//	)
//	if err := pipeline.Create(); err != nil {
//	    log.Fatal(err)
//	}
//
//	for running {
//	    pipeline.Update(frameTime)
//	}
//
// # Architecture
//
// The library is organized into:
//   - Public API: RenderPipeline, functional options, settings
//   - stage: the stage graph, scheduler and previous-frame transfers
//   - target: render targets and fullscreen regions
//   - shader: WGSL loading, include resolution, autoconfig, hot reload
//   - plugin: plugin registry, configuration, settings, day-time curves
//   - device: GPU device handles and image resources
//
// # Logging
//
// rp produces no log output by default. Call [SetLogger] to enable it.
package rp

// Version information
const (
	// Version is the current version of the library
	Version = "0.2.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 2

	// VersionPatch is the patch version
	VersionPatch = 0
)
