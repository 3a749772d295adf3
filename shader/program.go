// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package shader loads, preprocesses and compiles the WGSL programs used by
// render stages.
//
// Sources are resolved against the pipeline shader root (or a plugin's
// shader directory), textual includes are expanded, the stage manager's
// generated define header is prepended, and the result is compiled to
// SPIR-V through naga. When a GPU device is available the loader also
// creates the HAL shader module; headless, the Program carries only the
// compiled words.
package shader

import (
	"github.com/gogpu/wgpu/hal"
)

// Program is a compiled shader program.
//
// Programs are immutable after compilation. A shader reload produces new
// Program values; stale ones are dropped by the targets that held them.
type Program struct {
	// Name identifies the program for logs and debug labels. For file-based
	// programs this is the joined source paths.
	Name string

	// Hash is the FNV-1a hash of the fully preprocessed source, including
	// the define header. Identical hashes mean identical compiled output.
	Hash uint64

	// WGSL is the fully preprocessed source that was compiled.
	WGSL string

	// SPIRV is the compiled SPIR-V code.
	SPIRV []uint32

	// Module is the HAL shader module, or nil when compiled headless.
	Module hal.ShaderModule
}
