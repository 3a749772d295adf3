// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"strings"
	"testing"
)

func TestGenerateHeaderEmpty(t *testing.T) {
	got := GenerateHeader(nil)
	if got != autoconfigBanner {
		t.Errorf("empty header = %q, want banner only", got)
	}
}

func TestGenerateHeader(t *testing.T) {
	header := GenerateHeader(map[string]string{
		"bloom.num_mips":    "6",
		"bloom.intensity":   "0.85",
		"HAVE_PLUGIN_bloom": "1",
		"DEBUG_MODE":        "false",
		"scattering.model":  "eric_bruneton",
	})

	if !strings.HasPrefix(header, autoconfigBanner) {
		t.Fatalf("header missing banner: %q", header)
	}
	for _, want := range []string{
		"const HAVE_PLUGIN_bloom: i32 = 1;\n",
		"const bloom_num_mips: i32 = 6;\n",
		"const bloom_intensity: f32 = 0.85;\n",
		"const DEBUG_MODE: i32 = 0;\n",
		"// scattering_model = eric_bruneton\n",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("header missing %q:\n%s", want, header)
		}
	}
}

func TestGenerateHeaderDeterministic(t *testing.T) {
	defines := map[string]string{"B": "2", "A": "1", "C": "3"}
	first := GenerateHeader(defines)
	for i := 0; i < 10; i++ {
		if got := GenerateHeader(defines); got != first {
			t.Fatalf("header not deterministic:\n%s\nvs\n%s", first, got)
		}
	}
	if strings.Index(first, "const A") > strings.Index(first, "const B") {
		t.Errorf("keys not sorted:\n%s", first)
	}
}

func TestSanitizeDefineName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bloom.num_mips", "bloom_num_mips"},
		{"HAVE_PLUGIN_ao", "HAVE_PLUGIN_ao"},
		{"a-b c", "a_b_c"},
		{"3d_mode", "_3d_mode"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := SanitizeDefineName(tt.in); got != tt.want {
			t.Errorf("SanitizeDefineName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
