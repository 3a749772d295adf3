// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/internal/logging"
)

// Loader errors.
var (
	// ErrNoSources is returned when Load is called without source files.
	ErrNoSources = errors.New("shader: no source files")

	// ErrTooManySources is returned when Load is called with more than two
	// source files. WGSL has no geometry stage, so a program is at most a
	// vertex source plus a fragment source.
	ErrTooManySources = errors.New("shader: at most two source files (vertex, fragment)")

	// ErrUnknownPlugin is returned when loading against an unregistered
	// plugin shader root.
	ErrUnknownPlugin = errors.New("shader: unknown plugin shader root")

	// ErrIncludeCycle is returned when include resolution loops.
	ErrIncludeCycle = errors.New("shader: include cycle")
)

// includeDirective marks a textual include line, mirroring the pragma-style
// includes of GLSL pipelines: #include "file.wgsl". Includes are resolved
// relative to the including file, falling back to the shader root.
const includeDirective = "#include"

// DefaultPostProcessVertex is the vertex stage prepended to single-source
// (fragment only) programs. It emits the fullscreen triangle from the vertex
// index alone, so post-process passes need no vertex buffers.
const DefaultPostProcessVertex = `struct PostProcessOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) texcoord: vec2<f32>,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> PostProcessOutput {
    var out: PostProcessOutput;
    let x = f32(i32(index & 1u)) * 4.0 - 1.0;
    let y = f32(i32(index >> 1u)) * 4.0 - 1.0;
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.texcoord = vec2<f32>((x + 1.0) * 0.5, (y + 1.0) * 0.5);
    return out;
}
`

// Loader resolves, preprocesses and compiles WGSL programs.
//
// The loader owns the generated define header: the stage manager pushes the
// merged define set through SetDefines, and every subsequent compilation
// sees the new constants. Compiled programs are cached by the hash of their
// fully preprocessed source, so a reload only recompiles what changed.
//
// Loader is safe for concurrent use.
type Loader struct {
	mu          sync.RWMutex
	root        string
	pluginRoots map[string]string
	header      string
	dev         hal.Device
	cache       *programCache
}

// NewLoader creates a loader resolving sources against the given shader
// root directory. When the device handle exposes a HAL device, compiled
// programs also carry a shader module.
func NewLoader(h device.DeviceHandle, root string) *Loader {
	l := &Loader{
		root:        root,
		pluginRoots: make(map[string]string),
		header:      GenerateHeader(nil),
		cache:       newProgramCache(DefaultCacheCapacity),
	}
	if dev, ok := device.HalDevice(h); ok {
		l.dev = dev
	}
	return l
}

// SetPluginRoot registers the shader directory of a plugin so that
// LoadPlugin can resolve its sources.
func (l *Loader) SetPluginRoot(pluginID, dir string) {
	l.mu.Lock()
	l.pluginRoots[pluginID] = dir
	l.mu.Unlock()
}

// SetDefines regenerates the define header from the merged define set.
// Programs compiled afterwards see the new constants; already compiled
// programs are unaffected (the stage manager reloads them explicitly).
func (l *Loader) SetDefines(defines map[string]string) {
	header := GenerateHeader(defines)
	l.mu.Lock()
	l.header = header
	l.mu.Unlock()
}

// Header returns the current generated define header.
func (l *Loader) Header() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.header
}

// DumpHeader writes the current define header to path, for debugging
// generated constants.
func (l *Loader) DumpHeader(path string) error {
	return os.WriteFile(path, []byte(l.Header()), 0o644)
}

// CacheStats returns program cache statistics.
func (l *Loader) CacheStats() CacheStats {
	return l.cache.stats()
}

// ClearCache drops all cached programs. Used on shader reload so that
// changed files recompile even when their resolved path is unchanged.
func (l *Loader) ClearCache() {
	l.cache.clear()
}

// Load compiles a program from sources resolved against the shader root.
//
// With a single source the file is treated as the fragment stage and the
// default post-process vertex stage is prepended. With two sources the
// first is the vertex stage and the second the fragment stage.
func (l *Loader) Load(sources ...string) (*Program, error) {
	l.mu.RLock()
	root := l.root
	l.mu.RUnlock()
	return l.loadFrom(root, sources)
}

// LoadPlugin compiles a program from sources resolved against the given
// plugin's shader directory.
func (l *Loader) LoadPlugin(pluginID string, sources ...string) (*Program, error) {
	l.mu.RLock()
	root, ok := l.pluginRoots[pluginID]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, pluginID)
	}
	return l.loadFrom(root, sources)
}

// LoadSource compiles a program from in-memory WGSL, used by generated
// shaders (pipe transfers, texture display). The name is used for logs,
// debug labels and nothing else.
func (l *Loader) LoadSource(name, wgsl string) (*Program, error) {
	return l.compile(name, wgsl)
}

func (l *Loader) loadFrom(root string, sources []string) (*Program, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if len(sources) > 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooManySources, len(sources))
	}

	var parts []string
	if len(sources) == 1 {
		parts = append(parts, DefaultPostProcessVertex)
	}
	for _, src := range sources {
		path := src
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, src)
		}
		text, err := l.preprocess(path, nil)
		if err != nil {
			return nil, err
		}
		parts = append(parts, text)
	}

	return l.compile(strings.Join(sources, "+"), strings.Join(parts, "\n"))
}

// preprocess reads a source file and expands include directives. The seen
// map carries the include chain for cycle detection.
func (l *Loader) preprocess(path string, seen map[string]bool) (string, error) {
	clean := filepath.Clean(path)
	if seen == nil {
		seen = make(map[string]bool)
	}
	if seen[clean] {
		return "", fmt.Errorf("%w: %s", ErrIncludeCycle, clean)
	}
	seen[clean] = true
	defer delete(seen, clean)

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", fmt.Errorf("shader: reading %s: %w", clean, err)
	}

	var b strings.Builder
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, includeDirective) {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}

		name := strings.Trim(strings.TrimSpace(trimmed[len(includeDirective):]), `"`)
		incPath := filepath.Join(filepath.Dir(clean), name)
		if _, statErr := os.Stat(incPath); statErr != nil {
			l.mu.RLock()
			incPath = filepath.Join(l.root, name)
			l.mu.RUnlock()
		}
		text, incErr := l.preprocess(incPath, seen)
		if incErr != nil {
			return "", incErr
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// compile prepends the define header, consults the cache, and runs naga.
func (l *Loader) compile(name, source string) (*Program, error) {
	l.mu.RLock()
	header := l.header
	dev := l.dev
	l.mu.RUnlock()

	full := header + "\n" + source

	h := fnv.New64a()
	_, _ = h.Write([]byte(full)) // fnv.Write never returns an error
	hash := h.Sum64()

	if p, ok := l.cache.get(hash); ok {
		return p, nil
	}

	spirvBytes, err := naga.Compile(full)
	if err != nil {
		return nil, fmt.Errorf("shader: compiling %s: %w", name, err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirv := make([]uint32, len(spirvBytes)/4)
	for i := range spirv {
		spirv[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	p := &Program{
		Name:  name,
		Hash:  hash,
		WGSL:  full,
		SPIRV: spirv,
	}

	if dev != nil {
		module, modErr := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label: name,
			Source: hal.ShaderSource{
				SPIRV: spirv,
			},
		})
		if modErr != nil {
			return nil, fmt.Errorf("shader: creating module %s: %w", name, modErr)
		}
		p.Module = module
	}

	l.cache.put(hash, p)
	logging.Logger().Debug("compiled shader", "name", name, "hash", hash, "spirvWords", len(spirv))
	return p, nil
}
