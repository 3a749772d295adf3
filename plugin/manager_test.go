// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plugin

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/shader"
	"github.com/gogpu/rp/stage"
)

// testHost is a minimal Host around a fresh stage manager.
type testHost struct {
	sm      *stage.Manager
	shaders *shader.Loader
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	shaders := shader.NewLoader(device.NullDeviceHandle{}, t.TempDir())
	sm := stage.NewManager(&stage.Context{
		Device:  device.NullDeviceHandle{},
		Shaders: shaders,
		Width:   64,
		Height:  32,
	})
	return &testHost{sm: sm, shaders: shaders}
}

func (h *testHost) StageManager() *stage.Manager      { return h.sm }
func (h *testHost) DeviceHandle() device.DeviceHandle { return device.NullDeviceHandle{} }
func (h *testHost) ShaderLoader() *shader.Loader      { return h.shaders }
func (h *testHost) Resolution() (int, int)            { return 64, 32 }

// recordPlugin counts hook invocations.
type recordPlugin struct {
	BasePlugin
	setups int
}

func newRecordPlugin(info Info) *recordPlugin {
	return &recordPlugin{BasePlugin: NewBase(info)}
}

func (p *recordPlugin) OnStageSetup(Host) error {
	p.setups++
	return nil
}

func registerTestPlugin(t *testing.T, id string, required ...string) {
	t.Helper()
	Register(id, func() Plugin {
		return newRecordPlugin(Info{ID: id, RequiredPlugins: required})
	})
	t.Cleanup(func() { Unregister(id) })
}

func TestRegistry(t *testing.T) {
	registerTestPlugin(t, "zz_test_b")
	registerTestPlugin(t, "zz_test_a")

	if !IsRegistered("zz_test_a") {
		t.Error("registered plugin not found")
	}
	if Get("zz_test_a") == nil {
		t.Error("Get returned nil for registered plugin")
	}
	if Get("zz_test_missing") != nil {
		t.Error("Get returned an instance for unknown ID")
	}

	ids := Available()
	ai := -1
	bi := -1
	for i, id := range ids {
		switch id {
		case "zz_test_a":
			ai = i
		case "zz_test_b":
			bi = i
		}
	}
	if ai < 0 || bi < 0 || ai > bi {
		t.Errorf("Available not sorted or incomplete: %v", ids)
	}
}

func TestActivateResolvesRequirements(t *testing.T) {
	registerTestPlugin(t, "base_env")
	registerTestPlugin(t, "scattering", "base_env")
	registerTestPlugin(t, "volumetrics", "scattering")

	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"volumetrics"}})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}

	got := strings.Join(m.Enabled(), " ")
	if got != "base_env scattering volumetrics" {
		t.Errorf("activation order = %q, want requirements first", got)
	}
}

func TestActivateUnknownPlugin(t *testing.T) {
	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"does_not_exist"}})
	if err := m.Activate(); !errors.Is(err, ErrUnknownPlugin) {
		t.Errorf("Activate error = %v, want ErrUnknownPlugin", err)
	}
}

func TestActivateRequirementCycle(t *testing.T) {
	registerTestPlugin(t, "cyc_a", "cyc_b")
	registerTestPlugin(t, "cyc_b", "cyc_a")

	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"cyc_a"}})
	if err := m.Activate(); !errors.Is(err, ErrRequirementLoop) {
		t.Errorf("Activate error = %v, want ErrRequirementLoop", err)
	}
}

func TestActivateAppliesOverrides(t *testing.T) {
	Register("bloom_t", func() Plugin {
		p := newRecordPlugin(Info{ID: "bloom_t"})
		p.Settings().Define("num_mips", &Setting{Type: TypeInt, Default: 6, Min: 1, Max: 12})
		return p
	})
	t.Cleanup(func() { Unregister("bloom_t") })

	m := NewManager()
	m.SetConfig(Config{
		Enabled:   []string{"bloom_t"},
		Overrides: map[string]map[string]any{"bloom_t": {"num_mips": 9}},
	})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}

	p, _ := m.Plugin("bloom_t")
	if got := p.Settings().Int("num_mips"); got != 9 {
		t.Errorf("num_mips = %d, want 9", got)
	}
}

func TestActivateRejectsBadOverride(t *testing.T) {
	Register("strict_t", func() Plugin {
		p := newRecordPlugin(Info{ID: "strict_t"})
		p.Settings().Define("quality", &Setting{Type: TypeInt, Min: 1, Max: 4})
		return p
	})
	t.Cleanup(func() { Unregister("strict_t") })

	m := NewManager()
	m.SetConfig(Config{
		Enabled:   []string{"strict_t"},
		Overrides: map[string]map[string]any{"strict_t": {"quality": 99}},
	})
	if err := m.Activate(); !errors.Is(err, ErrSettingRange) {
		t.Errorf("Activate error = %v, want ErrSettingRange", err)
	}
}

func TestParseConfig(t *testing.T) {
	m := NewManager()
	err := m.ParseConfig([]byte(`
enabled:
  - bloom
  - ao
overrides:
  bloom:
    num_mips: 8
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(m.config.Enabled) != 2 || m.config.Enabled[0] != "bloom" {
		t.Errorf("enabled = %v", m.config.Enabled)
	}
	if m.config.Overrides["bloom"]["num_mips"] != 8 {
		t.Errorf("override = %v", m.config.Overrides["bloom"])
	}
}

func TestExportDefines(t *testing.T) {
	Register("ao_t", func() Plugin {
		p := newRecordPlugin(Info{ID: "ao_t"})
		p.Settings().Define("num_samples", &Setting{Type: TypeInt, Default: 16})
		p.Settings().Define("ies_dir", &Setting{Type: TypePath, Default: "data"})
		return p
	})
	t.Cleanup(func() { Unregister("ao_t") })

	h := newTestHost(t)
	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"ao_t"}})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}
	m.ExportDefines(h)

	defines := h.sm.Defines()
	if defines["HAVE_PLUGIN_ao_t"] != "1" {
		t.Error("missing plugin presence define")
	}
	if defines["ao_t.num_samples"] != "16" {
		t.Errorf("setting define = %q, want 16", defines["ao_t.num_samples"])
	}
	if _, ok := defines["ao_t.ies_dir"]; ok {
		t.Error("path setting leaked into defines")
	}
}

func TestInjectStages(t *testing.T) {
	Register("stages_t", func() Plugin {
		p := &stagePlugin{recordPlugin: *newRecordPlugin(Info{ID: "stages_t"})}
		return p
	})
	t.Cleanup(func() { Unregister("stages_t") })

	h := newTestHost(t)
	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"stages_t"}})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}
	if err := m.InjectStages(h); err != nil {
		t.Fatal(err)
	}
	if err := h.sm.Setup(); err != nil {
		t.Fatal(err)
	}

	order := h.sm.Order()
	if len(order) != 1 || order[0].StageID() != "InjectedStage" {
		t.Fatalf("order = %v", order)
	}
	if order[0].PluginID() != "stages_t" {
		t.Errorf("stage plugin = %q, want stages_t", order[0].PluginID())
	}
}

type stagePlugin struct {
	recordPlugin
}

func (p *stagePlugin) OnStageSetup(Host) error {
	p.AddStage(&injectedStage{BaseStage: stage.NewBase("InjectedStage")})
	return nil
}

type injectedStage struct {
	stage.BaseStage
}

func TestSetSetting(t *testing.T) {
	Register("rt_t", func() Plugin {
		p := newRecordPlugin(Info{ID: "rt_t"})
		p.Settings().Define("strength", &Setting{Type: TypeFloat, Default: 1.0, Runtime: true})
		p.Settings().Define("frozen", &Setting{Type: TypeInt, Default: 1})
		p.Settings().Define("kernel", &Setting{Type: TypeInt, Default: 4, ShaderRuntime: true})
		return p
	})
	t.Cleanup(func() { Unregister("rt_t") })

	h := newTestHost(t)
	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"rt_t"}})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}

	if err := m.SetSetting(h, "rt_t", "strength", 2.0); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSetting(h, "rt_t", "frozen", 2); !errors.Is(err, ErrNotRuntime) {
		t.Errorf("non-runtime error = %v, want ErrNotRuntime", err)
	}

	if err := m.SetSetting(h, "rt_t", "kernel", 8); err != nil {
		t.Fatal(err)
	}
	if !m.NeedsShaderReload("rt_t", "kernel") {
		t.Error("shader-runtime setting does not request reload")
	}
	if m.NeedsShaderReload("rt_t", "strength") {
		t.Error("plain runtime setting requests reload")
	}
	if h.sm.Defines()["rt_t.kernel"] != "8" {
		t.Errorf("define = %q, want 8", h.sm.Defines()["rt_t.kernel"])
	}
}

func TestUpdateDayTime(t *testing.T) {
	Register("day_t", func() Plugin {
		p := newRecordPlugin(Info{ID: "day_t"})
		ds := NewDaySettings()
		ds.Define("sun_intensity", &ScalarDaySetting{
			Min: 0, Max: 100,
			ValuesCurve: NewCurve(
				CurvePoint{Time: 0, Value: 0},
				CurvePoint{Time: 1, Value: 1},
			),
		})
		p.SetDaySettings(ds)
		return p
	})
	t.Cleanup(func() { Unregister("day_t") })

	h := newTestHost(t)
	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"day_t"}})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}

	m.UpdateDayTime(h, 0.5)
	v, ok := h.sm.Input("day_t.sun_intensity")
	if !ok {
		t.Fatal("day setting value not published as input")
	}
	vals := v.([]float64)
	if len(vals) != 1 || vals[0] != 50 {
		t.Errorf("sun_intensity = %v, want [50]", vals)
	}
}

func TestDisableRemovesFromConfig(t *testing.T) {
	registerTestPlugin(t, "tog_a")
	registerTestPlugin(t, "tog_b")

	h := newTestHost(t)
	m := NewManager()
	m.SetConfig(Config{Enabled: []string{"tog_a", "tog_b"}})
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}

	if err := m.Disable(h, "tog_a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(m.Enabled(), " "); got != "tog_b" {
		t.Errorf("enabled after disable = %q, want tog_b", got)
	}

	if err := m.Enable("tog_a"); err != nil {
		t.Fatal(err)
	}
	if err := m.Activate(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(m.Enabled(), " "); got != "tog_b tog_a" {
		t.Errorf("enabled after re-enable = %q", got)
	}
}
