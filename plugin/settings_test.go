// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plugin

import (
	"errors"
	"testing"
)

func TestSettingValidation(t *testing.T) {
	tests := []struct {
		name    string
		setting Setting
		value   any
		wantErr error
	}{
		{"bool ok", Setting{Type: TypeBool, Default: false}, true, nil},
		{"bool wrong type", Setting{Type: TypeBool}, "yes", ErrSettingType},
		{"int ok", Setting{Type: TypeInt, Min: 1, Max: 10}, 5, nil},
		{"int from yaml float", Setting{Type: TypeInt}, float64(7), nil},
		{"int out of range", Setting{Type: TypeInt, Min: 1, Max: 10}, 11, ErrSettingRange},
		{"float ok", Setting{Type: TypeFloat, Min: 0, Max: 1}, 0.5, nil},
		{"float accepts int", Setting{Type: TypeFloat}, 2, nil},
		{"float out of range", Setting{Type: TypeFloat, Min: 0.1, Max: 1}, 1.5, ErrSettingRange},
		{"pot ok", Setting{Type: TypePowerOfTwo}, 64, nil},
		{"pot rejects odd", Setting{Type: TypePowerOfTwo}, 48, ErrSettingRange},
		{"pot rejects zero", Setting{Type: TypePowerOfTwo}, 0, ErrSettingRange},
		{"enum ok", Setting{Type: TypeEnum, Values: []string{"low", "high"}}, "high", nil},
		{"enum unknown", Setting{Type: TypeEnum, Values: []string{"low", "high"}}, "ultra", ErrSettingRange},
		{"sample sequence ok", Setting{Type: TypeSampleSequence, Values: []string{"poisson_32", "halton_16"}}, "halton_16", nil},
		{"sample sequence unknown", Setting{Type: TypeSampleSequence, Values: []string{"poisson_32"}}, "sobol_8", ErrSettingRange},
		{"path ok", Setting{Type: TypePath}, "data/ies", nil},
		{"unknown type", Setting{Type: "mystery"}, 1, ErrSettingType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.setting
			err := s.Set(tt.value)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Set(%v): %v", tt.value, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Set(%v) error = %v, want %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestSettingDefaultAndReset(t *testing.T) {
	s := Setting{Type: TypeInt, Default: 4}
	if s.Value() != 4 {
		t.Errorf("default value = %v, want 4", s.Value())
	}
	if err := s.Set(8); err != nil {
		t.Fatal(err)
	}
	if s.Value() != 8 {
		t.Errorf("value = %v, want 8", s.Value())
	}
	s.Reset()
	if s.Value() != 4 {
		t.Errorf("value after reset = %v, want 4", s.Value())
	}
}

func TestSettingDefineValue(t *testing.T) {
	tests := []struct {
		name    string
		setting Setting
		value   any
		want    string
	}{
		{"bool true", Setting{Type: TypeBool}, true, "1"},
		{"bool false", Setting{Type: TypeBool}, false, "0"},
		{"int", Setting{Type: TypeInt}, 12, "12"},
		{"float", Setting{Type: TypeFloat}, 0.25, "0.25"},
		{"enum index", Setting{Type: TypeEnum, Values: []string{"low", "med", "high"}}, "med", "1"},
		{"sample sequence index", Setting{Type: TypeSampleSequence, Values: []string{"poisson_32", "halton_16"}}, "halton_16", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.setting
			if err := s.Set(tt.value); err != nil {
				t.Fatal(err)
			}
			if got := s.DefineValue(); got != tt.want {
				t.Errorf("DefineValue = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSettingShaderRelevant(t *testing.T) {
	if (&Setting{Type: TypePath}).ShaderRelevant() {
		t.Error("path setting exported as define")
	}
	if !(&Setting{Type: TypeInt}).ShaderRelevant() {
		t.Error("int setting not shader relevant")
	}
}

func TestSettingsContainer(t *testing.T) {
	s := NewSettings()
	s.Define("b_second", &Setting{Type: TypeInt, Default: 2})
	s.Define("a_first", &Setting{Type: TypeBool, Default: true})

	names := s.Names()
	if len(names) != 2 || names[0] != "b_second" || names[1] != "a_first" {
		t.Errorf("Names = %v, want definition order", names)
	}

	if err := s.Set("b_second", 9); err != nil {
		t.Fatal(err)
	}
	if s.Int("b_second") != 9 {
		t.Errorf("Int = %d, want 9", s.Int("b_second"))
	}
	if !s.Bool("a_first") {
		t.Error("Bool default lost")
	}
	if err := s.Set("nope", 1); !errors.Is(err, ErrUnknownSetting) {
		t.Errorf("unknown setting error = %v, want ErrUnknownSetting", err)
	}
}
