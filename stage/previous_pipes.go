// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package stage

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/shader"
)

// PreviousPipesStageID identifies the internal transfer stage.
const PreviousPipesStageID = "StorePreviousPipes"

// PreviousPipesStage copies pipes into their persistent previous-frame
// images at the end of each frame. The Manager creates it automatically
// when any stage consumes a PreviousFramePrefix pipe and schedules it after
// every producer.
//
// The copy shader is generated from the registered transfer list: one
// source/destination binding pair per transfer, a textureLoad/textureStore
// copy per pixel, and a layer loop for array pipes.
type PreviousPipesStage struct {
	BaseStage

	transfers []Transfer
	program   *shader.Program
}

// Transfer is one pipe-to-copy assignment.
type Transfer struct {
	// Src is the live pipe image written during the frame.
	Src *device.Image

	// Dst is the persistent copy consumers read next frame.
	Dst *device.Image
}

// NewPreviousPipesStage creates the internal transfer stage with an empty
// transfer list.
func NewPreviousPipesStage() *PreviousPipesStage {
	return &PreviousPipesStage{BaseStage: NewBase(PreviousPipesStageID)}
}

// AddTransfer registers a pipe copy. Must be called before Create.
func (s *PreviousPipesStage) AddTransfer(src, dst *device.Image) {
	s.transfers = append(s.transfers, Transfer{Src: src, Dst: dst})
}

// Transfers returns the registered transfer list.
func (s *PreviousPipesStage) Transfers() []Transfer {
	out := make([]Transfer, len(s.transfers))
	copy(out, s.transfers)
	return out
}

// Create compiles the generated copy shader.
func (s *PreviousPipesStage) Create(ctx *Context) error {
	s.Init(ctx)
	return s.ReloadShaders()
}

// ReloadShaders regenerates and recompiles the copy shader from the
// transfer list.
func (s *PreviousPipesStage) ReloadShaders() error {
	p, err := s.Ctx().Shaders.LoadSource("$$update_previous_pipes", s.buildCopyShader())
	if err != nil {
		return err
	}
	s.program = p
	return nil
}

// Program returns the compiled copy shader. The host render graph
// dispatches it once per frame over the pipeline resolution.
func (s *PreviousPipesStage) Program() *shader.Program {
	return s.program
}

// HandleWindowResize resizes every copy image to the new resolution and
// keeps array copies in sync with their source layer count.
func (s *PreviousPipesStage) HandleWindowResize(width, height int) error {
	if err := s.BaseStage.HandleWindowResize(width, height); err != nil {
		return err
	}
	for _, tr := range s.transfers {
		if err := tr.Dst.SetSize(width, height); err != nil {
			return err
		}
		if tr.Src.Kind() == device.Kind2DArray {
			if err := tr.Dst.SetLayers(tr.Src.Layers()); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildCopyShader generates the WGSL compute shader copying every source
// pipe into its persistent image.
func (s *PreviousPipesStage) buildCopyShader() string {
	var b strings.Builder
	b.WriteString("// Autogenerated, do not edit! Your changes will be lost.\n\n")

	for i, tr := range s.transfers {
		fmt.Fprintf(&b, "@group(0) @binding(%d) var SrcTex%d: %s;\n",
			2*i, i, sampledType(tr.Src))
		fmt.Fprintf(&b, "@group(0) @binding(%d) var DestTex%d: %s;\n",
			2*i+1, i, storageType(tr.Dst))
	}

	b.WriteString("\n@compute @workgroup_size(8, 8, 1)\n")
	b.WriteString("fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {\n")
	b.WriteString("    let coord = vec2<i32>(id.xy);\n")

	for i, tr := range s.transfers {
		fmt.Fprintf(&b, "\n    // Copying %s to %s\n", tr.Src.Name(), tr.Dst.Name())
		if tr.Src.Kind() == device.Kind2DArray {
			fmt.Fprintf(&b, "    for (var z = 0; z < i32(textureNumLayers(SrcTex%d)); z = z + 1) {\n", i)
			fmt.Fprintf(&b, "        let data%d = textureLoad(SrcTex%d, coord, z, 0);\n", i, i)
			fmt.Fprintf(&b, "        textureStore(DestTex%d, coord, z, data%d);\n", i, i)
			b.WriteString("    }\n")
		} else {
			fmt.Fprintf(&b, "    let data%d = textureLoad(SrcTex%d, coord, 0);\n", i, i)
			fmt.Fprintf(&b, "    textureStore(DestTex%d, coord, data%d);\n", i, i)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// sampledType returns the WGSL sampled-texture type of an image. The
// sampled scalar follows the format so integer textures load and store
// with matching types.
func sampledType(img *device.Image) string {
	scalar := "f32"
	if img.Format() == gputypes.TextureFormatR32Sint {
		scalar = "i32"
	}
	if img.Kind() == device.Kind2DArray {
		return "texture_2d_array<" + scalar + ">"
	}
	return "texture_2d<" + scalar + ">"
}

// storageType returns the WGSL write-only storage-texture type of an image.
func storageType(img *device.Image) string {
	format := storageFormatName(img.Format())
	if img.Kind() == device.Kind2DArray {
		return fmt.Sprintf("texture_storage_2d_array<%s, write>", format)
	}
	return fmt.Sprintf("texture_storage_2d<%s, write>", format)
}

// storageFormatName maps a texture format to its WGSL storage format name.
func storageFormatName(format gputypes.TextureFormat) string {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case gputypes.TextureFormatR32Float:
		return "r32float"
	case gputypes.TextureFormatR32Sint:
		return "r32sint"
	case gputypes.TextureFormatRG32Float:
		return "rg32float"
	case gputypes.TextureFormatRGBA32Float:
		return "rgba32float"
	default:
		return "rgba16float"
	}
}
