// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rp/device"
)

func TestBuildDisplayShader(t *testing.T) {
	tex2D, err := device.NewImage2D(device.NullDeviceHandle{}, "Color", 64, 32, gputypes.TextureFormatRGBA16Float)
	if err != nil {
		t.Fatalf("NewImage2D: %v", err)
	}
	texArray, err := device.NewImage2DArray(device.NullDeviceHandle{}, "Shadows", 16, 16, 4, gputypes.TextureFormatRGBA16Float)
	if err != nil {
		t.Fatalf("NewImage2DArray: %v", err)
	}
	buf, err := device.NewBuffer(device.NullDeviceHandle{}, "CellData", 256, gputypes.TextureFormatRGBA32Float)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	counter, err := device.NewCounter(device.NullDeviceHandle{}, "LightCount")
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}

	tests := []struct {
		name     string
		img      *device.Image
		contains []string
	}{
		{
			name: "2d",
			img:  tex2D,
			contains: []string{
				"var display_tex: texture_2d<f32>",
				"textureLoad(display_tex, int_coord, controls.mipmap)",
			},
		},
		{
			name: "array",
			img:  texArray,
			contains: []string{
				"var display_tex: texture_2d_array<f32>",
				"controls.slice",
			},
		},
		{
			name: "buffer",
			img:  buf,
			contains: []string{
				"int_index < buf_size",
				"vec3<f32>(1.0, 0.6, 0.2)",
			},
		},
		{
			name: "counter",
			img:  counter,
			contains: []string{
				"texture_2d<i32>",
				"f32(count)",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, wgsl := BuildDisplayShader(tt.img, 320, 240)
			if !strings.HasPrefix(name, "$$texdisplay-") {
				t.Errorf("name = %q, want $$texdisplay- prefix", name)
			}
			for _, want := range []string{
				"struct DisplayControls",
				"controls.brightness",
				"vec2<i32>(320, 240)",
				"@fragment",
			} {
				if !strings.Contains(wgsl, want) {
					t.Errorf("source missing %q", want)
				}
			}
			for _, want := range tt.contains {
				if !strings.Contains(wgsl, want) {
					t.Errorf("source missing %q", want)
				}
			}
		})
	}
}

func TestBuildDisplayShaderStableName(t *testing.T) {
	img, err := device.NewImage2D(device.NullDeviceHandle{}, "Color", 64, 32, gputypes.TextureFormatRGBA16Float)
	if err != nil {
		t.Fatalf("NewImage2D: %v", err)
	}
	a, _ := BuildDisplayShader(img, 320, 240)
	b, _ := BuildDisplayShader(img, 320, 240)
	if a != b {
		t.Errorf("names differ for identical inputs: %q vs %q", a, b)
	}
	c, _ := BuildDisplayShader(img, 640, 480)
	if a == c {
		t.Errorf("name did not change with view size: %q", a)
	}
}
