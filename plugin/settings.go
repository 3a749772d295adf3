// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plugin

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Setting errors.
var (
	ErrUnknownSetting = errors.New("plugin: unknown setting")
	ErrSettingType    = errors.New("plugin: setting value has wrong type")
	ErrSettingRange   = errors.New("plugin: setting value out of range")
	ErrNotRuntime     = errors.New("plugin: setting cannot change at runtime")
)

// SettingType identifies the value type of a plugin setting.
type SettingType string

// Supported setting types.
const (
	TypeBool       SettingType = "bool"
	TypeInt        SettingType = "int"
	TypeFloat      SettingType = "float"
	TypeEnum       SettingType = "enum"
	TypePowerOfTwo SettingType = "power_of_two"
	TypePath       SettingType = "path"

	// TypeSampleSequence selects a named sampling pattern (poisson disk,
	// halton, ...). Validated like an enum; the define is the index into
	// Values, which shaders use to select the baked sequence.
	TypeSampleSequence SettingType = "sample_sequence"
)

// Setting is a single typed plugin setting. The zero value is not usable;
// fill in at least Type and Default.
type Setting struct {
	// Type is the value type. Determines validation and define export.
	Type SettingType `yaml:"type"`

	// Label is the short display name.
	Label string `yaml:"label"`

	// Description explains the setting to the user.
	Description string `yaml:"description"`

	// Default is the initial value.
	Default any `yaml:"default"`

	// Runtime marks settings that may change without a pipeline rebuild.
	Runtime bool `yaml:"runtime"`

	// ShaderRuntime marks runtime settings whose change requires a
	// shader reload because the value is baked into a define.
	ShaderRuntime bool `yaml:"shader_runtime"`

	// Min and Max bound int and float settings. Both zero means unbounded.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// Values lists the allowed values of an enum setting.
	Values []string `yaml:"values"`

	value any
}

// Value returns the current value, falling back to the default.
func (s *Setting) Value() any {
	if s.value == nil {
		return s.Default
	}
	return s.value
}

// Set validates and stores a new value.
func (s *Setting) Set(v any) error {
	norm, err := s.normalize(v)
	if err != nil {
		return err
	}
	s.value = norm
	return nil
}

// Reset restores the default value.
func (s *Setting) Reset() { s.value = nil }

// normalize coerces and validates v for this setting's type. YAML decodes
// numbers as int or float64 depending on their spelling, so both are
// accepted where numeric values are expected.
func (s *Setting) normalize(v any) (any, error) {
	switch s.Type {
	case TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: want bool, got %T", ErrSettingType, v)
		}
		return b, nil

	case TypeInt, TypePowerOfTwo:
		n, ok := asInt(v)
		if !ok {
			return nil, fmt.Errorf("%w: want int, got %T", ErrSettingType, v)
		}
		if s.Min != 0 || s.Max != 0 {
			if float64(n) < s.Min || float64(n) > s.Max {
				return nil, fmt.Errorf("%w: %d not in [%g, %g]", ErrSettingRange, n, s.Min, s.Max)
			}
		}
		if s.Type == TypePowerOfTwo {
			if n <= 0 || n&(n-1) != 0 {
				return nil, fmt.Errorf("%w: %d is not a power of two", ErrSettingRange, n)
			}
		}
		return n, nil

	case TypeFloat:
		f, ok := asFloat(v)
		if !ok {
			return nil, fmt.Errorf("%w: want float, got %T", ErrSettingType, v)
		}
		if s.Min != 0 || s.Max != 0 {
			if f < s.Min || f > s.Max {
				return nil, fmt.Errorf("%w: %g not in [%g, %g]", ErrSettingRange, f, s.Min, s.Max)
			}
		}
		return f, nil

	case TypeEnum, TypeSampleSequence:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: want string, got %T", ErrSettingType, v)
		}
		for _, allowed := range s.Values {
			if str == allowed {
				return str, nil
			}
		}
		return nil, fmt.Errorf("%w: %q not in %v", ErrSettingRange, str, s.Values)

	case TypePath:
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: want string, got %T", ErrSettingType, v)
		}
		return str, nil

	default:
		return nil, fmt.Errorf("%w: unknown setting type %q", ErrSettingType, s.Type)
	}
}

// ShaderRelevant reports whether the setting is exported as a define.
// Path settings never reach shaders.
func (s *Setting) ShaderRelevant() bool {
	return s.Type != TypePath
}

// DefineValue renders the current value for the autoconfig header.
// Bools become 1 or 0, enums their index into Values.
func (s *Setting) DefineValue() string {
	v := s.Value()
	switch s.Type {
	case TypeBool:
		if b, _ := v.(bool); b {
			return "1"
		}
		return "0"
	case TypeInt, TypePowerOfTwo:
		n, _ := asInt(v)
		return strconv.Itoa(n)
	case TypeFloat:
		f, _ := asFloat(v)
		return strconv.FormatFloat(f, 'g', -1, 64)
	case TypeEnum, TypeSampleSequence:
		str, _ := v.(string)
		for i, allowed := range s.Values {
			if str == allowed {
				return strconv.Itoa(i)
			}
		}
		return "0"
	default:
		return ""
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Settings is an ordered collection of named settings. Order determines
// define export and UI presentation order.
type Settings struct {
	names  []string
	byName map[string]*Setting
}

// NewSettings creates an empty setting collection.
func NewSettings() *Settings {
	return &Settings{byName: make(map[string]*Setting)}
}

// Define adds a setting under the given name. Redefining a name replaces
// the setting but keeps its original position.
func (s *Settings) Define(name string, setting *Setting) {
	if _, ok := s.byName[name]; !ok {
		s.names = append(s.names, name)
	}
	s.byName[name] = setting
}

// Get returns the setting with the given name.
func (s *Settings) Get(name string) (*Setting, bool) {
	setting, ok := s.byName[name]
	return setting, ok
}

// Names returns the setting names in definition order.
func (s *Settings) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Set validates and updates the named setting.
func (s *Settings) Set(name string, v any) error {
	setting, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return setting.Set(v)
}

// Value returns the current value of the named setting.
func (s *Settings) Value(name string) (any, bool) {
	setting, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return setting.Value(), true
}

// Bool returns the named setting as a bool, or false if absent.
func (s *Settings) Bool(name string) bool {
	v, ok := s.Value(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Int returns the named setting as an int, or 0 if absent.
func (s *Settings) Int(name string) int {
	v, ok := s.Value(name)
	if !ok {
		return 0
	}
	n, _ := asInt(v)
	return n
}

// Float returns the named setting as a float64, or 0 if absent.
func (s *Settings) Float(name string) float64 {
	v, ok := s.Value(name)
	if !ok {
		return 0
	}
	f, _ := asFloat(v)
	return f
}

// String returns the named setting as a string, or "" if absent.
func (s *Settings) String(name string) string {
	v, ok := s.Value(name)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}
