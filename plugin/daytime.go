// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package plugin

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DaySetting errors.
var (
	ErrUnknownDaySetting = errors.New("plugin: unknown day setting")
	ErrDaySettingType    = errors.New("plugin: bad day setting type")
)

// CurvePoint is a control point of a day curve. Time is the normalized
// time of day in [0, 1], Value the normalized value in [0, 1].
type CurvePoint struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
}

// Curve interpolates control points over a full day. The day wraps, so
// the segment between the last and the first point crosses midnight.
type Curve struct {
	points []CurvePoint
}

// NewCurve creates a curve from control points. Points are sorted by time.
func NewCurve(points ...CurvePoint) *Curve {
	c := &Curve{points: append([]CurvePoint(nil), points...)}
	sort.Slice(c.points, func(i, j int) bool {
		return c.points[i].Time < c.points[j].Time
	})
	return c
}

// Points returns the control points sorted by time.
func (c *Curve) Points() []CurvePoint {
	out := make([]CurvePoint, len(c.points))
	copy(out, c.points)
	return out
}

// ValueAt evaluates the curve at the given normalized day time.
func (c *Curve) ValueAt(t float64) float64 {
	switch len(c.points) {
	case 0:
		return 0
	case 1:
		return c.points[0].Value
	}
	t = t - math.Floor(t)

	// Find the first point at or after t; its predecessor starts the
	// enclosing segment. Wraps across midnight.
	idx := sort.Search(len(c.points), func(i int) bool {
		return c.points[i].Time >= t
	})
	next := c.points[idx%len(c.points)]
	prev := c.points[(idx+len(c.points)-1)%len(c.points)]

	// Exact hit. Also guards the degenerate wrap segment of a curve with
	// points at both 0 and 1, whose span would otherwise collapse to zero.
	if next.Time == t {
		return next.Value
	}

	span := next.Time - prev.Time
	if span <= 0 {
		span += 1
	}
	offset := t - prev.Time
	if offset < 0 {
		offset += 1
	}
	frac := offset / span
	return prev.Value + (next.Value-prev.Value)*frac
}

// DaySetting is a setting animated over the time of day. Values are
// stored as normalized curves and scaled to their physical range on read.
type DaySetting interface {
	// Label returns the short display name.
	Label() string

	// Description explains the setting.
	Description() string

	// WGSLType returns the shader-side type of the scaled value.
	WGSLType() string

	// Components returns the number of value components.
	Components() int

	// ValueAt returns the scaled value at the given normalized day time.
	// The slice has Components() entries.
	ValueAt(t float64) []float64
}

// ScalarDaySetting animates a single physical quantity. With a nonzero
// LogarithmicFactor the normalized curve value maps exponentially onto
// [Min, Max], which gives fine control near the low end of wide ranges
// such as sun intensity in lux.
type ScalarDaySetting struct {
	LabelText   string
	Describe    string
	Unit        string
	Min, Max    float64
	LogFactor   float64
	DefaultVal  float64
	ValuesCurve *Curve
}

func (s *ScalarDaySetting) Label() string       { return s.LabelText }
func (s *ScalarDaySetting) Description() string { return s.Describe }
func (s *ScalarDaySetting) WGSLType() string    { return "f32" }
func (s *ScalarDaySetting) Components() int     { return 1 }

// ValueAt returns the scaled scalar at the given day time.
func (s *ScalarDaySetting) ValueAt(t float64) []float64 {
	if s.ValuesCurve == nil || len(s.ValuesCurve.points) == 0 {
		return []float64{s.DefaultVal}
	}
	return []float64{s.scale(s.ValuesCurve.ValueAt(t))}
}

func (s *ScalarDaySetting) scale(v float64) float64 {
	if s.LogFactor != 0 {
		exp := math.Exp(s.LogFactor)
		v = (math.Exp(s.LogFactor*v) - 1) / (exp - 1)
	}
	return s.Min + v*(s.Max-s.Min)
}

// ColorDaySetting animates an RGB color with one curve per channel.
type ColorDaySetting struct {
	LabelText  string
	Describe   string
	DefaultVal [3]float64
	Channels   [3]*Curve
}

func (s *ColorDaySetting) Label() string       { return s.LabelText }
func (s *ColorDaySetting) Description() string { return s.Describe }
func (s *ColorDaySetting) WGSLType() string    { return "vec3<f32>" }
func (s *ColorDaySetting) Components() int     { return 3 }

// ValueAt returns the RGB color at the given day time.
func (s *ColorDaySetting) ValueAt(t float64) []float64 {
	out := make([]float64, 3)
	for i, curve := range s.Channels {
		if curve == nil || len(curve.points) == 0 {
			out[i] = s.DefaultVal[i]
			continue
		}
		out[i] = curve.ValueAt(t)
	}
	return out
}

// daySettingSpec mirrors the YAML layout of a day setting definition.
type daySettingSpec struct {
	Type        string         `yaml:"type"`
	Label       string         `yaml:"label"`
	Description string         `yaml:"description"`
	Unit        string         `yaml:"unit"`
	Range       []float64      `yaml:"range"`
	Logarithmic float64        `yaml:"logarithmic_factor"`
	Default     any            `yaml:"default"`
	Curves      [][]CurvePoint `yaml:"curves"`
}

// ParseDaySetting builds a day setting from its decoded YAML definition.
func ParseDaySetting(raw map[string]any) (DaySetting, error) {
	spec, err := decodeDaySpec(raw)
	if err != nil {
		return nil, err
	}
	switch spec.Type {
	case "scalar":
		s := &ScalarDaySetting{
			LabelText: spec.Label,
			Describe:  spec.Description,
			Unit:      spec.Unit,
			LogFactor: spec.Logarithmic,
		}
		if len(spec.Range) == 2 {
			s.Min, s.Max = spec.Range[0], spec.Range[1]
		}
		if f, ok := asFloat(spec.Default); ok {
			s.DefaultVal = f
		}
		if len(spec.Curves) > 0 {
			s.ValuesCurve = NewCurve(spec.Curves[0]...)
		}
		return s, nil

	case "color":
		s := &ColorDaySetting{
			LabelText: spec.Label,
			Describe:  spec.Description,
		}
		if def, ok := spec.Default.([]any); ok && len(def) == 3 {
			for i, v := range def {
				if f, ok := asFloat(v); ok {
					s.DefaultVal[i] = f
				}
			}
		}
		for i := 0; i < 3 && i < len(spec.Curves); i++ {
			s.Channels[i] = NewCurve(spec.Curves[i]...)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrDaySettingType, spec.Type)
	}
}

func decodeDaySpec(raw map[string]any) (*daySettingSpec, error) {
	spec := &daySettingSpec{}
	if t, ok := raw["type"].(string); ok {
		spec.Type = t
	}
	if l, ok := raw["label"].(string); ok {
		spec.Label = l
	}
	if d, ok := raw["description"].(string); ok {
		spec.Description = d
	}
	if u, ok := raw["unit"].(string); ok {
		spec.Unit = u
	}
	if r, ok := raw["range"].([]any); ok {
		for _, v := range r {
			if f, ok := asFloat(v); ok {
				spec.Range = append(spec.Range, f)
			}
		}
	}
	if f, ok := asFloat(raw["logarithmic_factor"]); ok {
		spec.Logarithmic = f
	}
	spec.Default = raw["default"]
	if curves, ok := raw["curves"].([]any); ok {
		for _, rawCurve := range curves {
			pts, ok := rawCurve.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: curve is not a point list", ErrDaySettingType)
			}
			var curve []CurvePoint
			for _, rawPt := range pts {
				pair, ok := rawPt.([]any)
				if !ok || len(pair) != 2 {
					return nil, fmt.Errorf("%w: control point is not a [time, value] pair", ErrDaySettingType)
				}
				t, tok := asFloat(pair[0])
				v, vok := asFloat(pair[1])
				if !tok || !vok {
					return nil, fmt.Errorf("%w: control point is not numeric", ErrDaySettingType)
				}
				curve = append(curve, CurvePoint{Time: t, Value: v})
			}
			spec.Curves = append(spec.Curves, curve)
		}
	}
	return spec, nil
}

// DaySettings is an ordered collection of day settings.
type DaySettings struct {
	names  []string
	byName map[string]DaySetting
}

// NewDaySettings creates an empty day setting collection.
func NewDaySettings() *DaySettings {
	return &DaySettings{byName: make(map[string]DaySetting)}
}

// Define adds a day setting under the given name.
func (d *DaySettings) Define(name string, setting DaySetting) {
	if _, ok := d.byName[name]; !ok {
		d.names = append(d.names, name)
	}
	d.byName[name] = setting
}

// Get returns the day setting with the given name.
func (d *DaySettings) Get(name string) (DaySetting, bool) {
	setting, ok := d.byName[name]
	return setting, ok
}

// Names returns the day setting names in definition order.
func (d *DaySettings) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}
