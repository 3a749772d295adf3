// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"fmt"
	"strings"

	"github.com/gogpu/rp/device"
)

// BuildDisplayShader generates a fragment program that visualizes an
// arbitrary pipe image in a view of the given size, for buffer inspectors
// and debugging overlays. The generated source samples the image according
// to its kind (2D, array, buffer, counter) and applies the standard display
// controls: mip level, slice, brightness, optional Reinhard tonemap.
//
// The returned name is stable for a given image descriptor and view size,
// so the loader's program cache collapses repeated builds.
func BuildDisplayShader(img *device.Image, viewWidth, viewHeight int) (name, wgsl string) {
	name = fmt.Sprintf("$$texdisplay-x%d-y%d-z%d-k%d-vw%d-vh%d",
		img.Width(), img.Height(), img.Layers(), img.Kind(), viewWidth, viewHeight)

	var b strings.Builder
	b.WriteString("struct DisplayControls {\n")
	b.WriteString("    mipmap: i32,\n")
	b.WriteString("    slice: i32,\n")
	b.WriteString("    brightness: f32,\n")
	b.WriteString("    tonemap: i32,\n")
	b.WriteString("}\n\n")
	b.WriteString("@group(0) @binding(0) var<uniform> controls: DisplayControls;\n")
	b.WriteString(samplerDeclaration(img))
	b.WriteString("\n@fragment\n")
	b.WriteString("fn fs_main(@location(0) texcoord: vec2<f32>) -> @location(0) vec4<f32> {\n")
	fmt.Fprintf(&b, "    let view_size = vec2<i32>(%d, %d);\n", viewWidth, viewHeight)
	b.WriteString("    let display_coord = vec2<i32>(texcoord * vec2<f32>(view_size));\n")
	b.WriteString(samplingCode(img))
	b.WriteString("    result = result * controls.brightness;\n")
	b.WriteString("    if (controls.tonemap != 0) {\n")
	b.WriteString("        result = result / (vec3<f32>(1.0) + result);\n")
	b.WriteString("    }\n")
	b.WriteString("    return vec4<f32>(result, 1.0);\n")
	b.WriteString("}\n")
	return name, b.String()
}

func samplerDeclaration(img *device.Image) string {
	switch img.Kind() {
	case device.Kind2DArray:
		return "@group(0) @binding(1) var display_tex: texture_2d_array<f32>;\n"
	case device.KindCounter:
		return "@group(0) @binding(1) var display_tex: texture_2d<i32>;\n"
	default:
		return "@group(0) @binding(1) var display_tex: texture_2d<f32>;\n"
	}
}

func samplingCode(img *device.Image) string {
	switch img.Kind() {
	case device.Kind2D:
		return "" +
			"    let tex_size = textureDimensions(display_tex, u32(controls.mipmap));\n" +
			"    let int_coord = vec2<i32>(texcoord * vec2<f32>(tex_size));\n" +
			"    var result = textureLoad(display_tex, int_coord, controls.mipmap).xyz;\n"
	case device.Kind2DArray:
		return "" +
			"    let tex_size = textureDimensions(display_tex, u32(controls.mipmap));\n" +
			"    let int_coord = vec2<i32>(texcoord * vec2<f32>(tex_size));\n" +
			"    var result = textureLoad(display_tex, int_coord, controls.slice, controls.mipmap).xyz;\n"
	case device.KindBuffer:
		// Out-of-range buffer indices render orange, matching the buffer
		// inspector convention.
		return "" +
			"    let int_index = display_coord.x + display_coord.y * view_size.x;\n" +
			"    let buf_size = i32(textureDimensions(display_tex, 0u).x);\n" +
			"    var result = vec3<f32>(1.0, 0.6, 0.2);\n" +
			"    if (int_index < buf_size) {\n" +
			"        result = textureLoad(display_tex, vec2<i32>(int_index, 0), 0).xyz;\n" +
			"    }\n"
	case device.KindCounter:
		return "" +
			"    let count = textureLoad(display_tex, vec2<i32>(0, 0), 0).x;\n" +
			"    var result = vec3<f32>(f32(count) / 10.0);\n"
	default:
		// Magenta marks an unhandled image kind.
		return "    var result = vec3<f32>(1.0, 0.0, 1.0);\n"
	}
}
