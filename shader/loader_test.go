// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/rp/device"
)

const trivialCompute = "@compute @workgroup_size(1)\nfn main() {}\n"

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	root := t.TempDir()
	return NewLoader(device.NullDeviceHandle{}, root), root
}

func writeShader(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSourceCompiles(t *testing.T) {
	l, _ := newTestLoader(t)

	p, err := l.LoadSource("trivial", trivialCompute)
	if err != nil {
		t.Fatalf("LoadSource: %v", err)
	}
	if len(p.SPIRV) == 0 {
		t.Error("compiled program has no SPIR-V words")
	}
	if p.SPIRV[0] != 0x07230203 {
		t.Errorf("SPIR-V magic = %#x, want 0x07230203", p.SPIRV[0])
	}
	if p.Module != nil {
		t.Error("headless loader created a shader module")
	}
	if !strings.Contains(p.WGSL, autoconfigBanner) {
		t.Error("compiled source missing the generated header")
	}
}

func TestLoadSourceCached(t *testing.T) {
	l, _ := newTestLoader(t)

	first, err := l.LoadSource("a", trivialCompute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.LoadSource("a", trivialCompute)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("identical source compiled twice")
	}
	if st := l.CacheStats(); st.Hits != 1 {
		t.Errorf("cache hits = %d, want 1", st.Hits)
	}
}

func TestLoadSourceRecompilesAfterDefineChange(t *testing.T) {
	l, _ := newTestLoader(t)

	first, err := l.LoadSource("a", trivialCompute)
	if err != nil {
		t.Fatal(err)
	}
	l.SetDefines(map[string]string{"NUM_SAMPLES": "16"})
	second, err := l.LoadSource("a", trivialCompute)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("define change did not change the program")
	}
	if !strings.Contains(second.WGSL, "const NUM_SAMPLES: i32 = 16;") {
		t.Errorf("new header missing define:\n%s", second.WGSL)
	}
}

func TestLoadArgumentErrors(t *testing.T) {
	l, _ := newTestLoader(t)

	if _, err := l.Load(); !errors.Is(err, ErrNoSources) {
		t.Errorf("Load() error = %v, want ErrNoSources", err)
	}
	if _, err := l.Load("a", "b", "c"); !errors.Is(err, ErrTooManySources) {
		t.Errorf("Load(3 sources) error = %v, want ErrTooManySources", err)
	}
	if _, err := l.LoadPlugin("nope", "a.wgsl"); !errors.Is(err, ErrUnknownPlugin) {
		t.Errorf("LoadPlugin error = %v, want ErrUnknownPlugin", err)
	}
}

func TestLoadFragmentWithDefaultVertex(t *testing.T) {
	l, root := newTestLoader(t)
	writeShader(t, root, "post.wgsl", `@fragment
fn fs_main(in: PostProcessOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.texcoord, 0.0, 1.0);
}
`)

	p, err := l.Load("post.wgsl")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(p.WGSL, "fn vs_main") {
		t.Error("single-source program missing the default vertex stage")
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	l, root := newTestLoader(t)
	writeShader(t, root, "common.wgsl", "const SHARED: f32 = 2.5;\n")
	writeShader(t, root, "post.wgsl", `#include "common.wgsl"
@fragment
fn fs_main(in: PostProcessOutput) -> @location(0) vec4<f32> {
    return vec4<f32>(in.texcoord * SHARED, 0.0, 1.0);
}
`)

	p, err := l.Load("post.wgsl")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(p.WGSL, "const SHARED: f32 = 2.5;") {
		t.Error("include was not expanded")
	}
	if strings.Contains(p.WGSL, "#include") {
		t.Error("include directive left in preprocessed source")
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	l, root := newTestLoader(t)
	writeShader(t, root, "a.wgsl", "#include \"b.wgsl\"\n")
	writeShader(t, root, "b.wgsl", "#include \"a.wgsl\"\n")

	if _, err := l.Load("a.wgsl"); !errors.Is(err, ErrIncludeCycle) {
		t.Errorf("cyclic include error = %v, want ErrIncludeCycle", err)
	}
}

func TestLoadMissingInclude(t *testing.T) {
	l, root := newTestLoader(t)
	writeShader(t, root, "a.wgsl", "#include \"missing.wgsl\"\n")

	if _, err := l.Load("a.wgsl"); err == nil {
		t.Error("missing include did not fail")
	}
}

func TestLoadPluginRoot(t *testing.T) {
	l, _ := newTestLoader(t)
	pluginDir := t.TempDir()
	writeShader(t, pluginDir, "kernel.wgsl", trivialCompute)

	l.SetPluginRoot("bloom", pluginDir)
	if _, err := l.LoadPlugin("bloom", "kernel.wgsl"); err != nil {
		t.Fatalf("LoadPlugin: %v", err)
	}
}

func TestDumpHeader(t *testing.T) {
	l, _ := newTestLoader(t)
	l.SetDefines(map[string]string{"X": "1"})

	path := filepath.Join(t.TempDir(), "autoconfig.wgsl")
	if err := l.DumpHeader(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "const X: i32 = 1;") {
		t.Errorf("dumped header = %q", data)
	}
}
