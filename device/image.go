// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	types "github.com/gogpu/gputypes"

	"github.com/gogpu/rp/internal/logging"
)

// Image errors.
var (
	// ErrImageDestroyed is returned when operating on a destroyed image.
	ErrImageDestroyed = errors.New("device: image has been destroyed")

	// ErrInvalidImageSize is returned when image dimensions are invalid.
	ErrInvalidImageSize = errors.New("device: invalid image size")
)

// ImageKind describes the sampler category of an image. The stage scheduler
// uses it to generate transfer and display shaders that sample the image
// correctly.
type ImageKind int

const (
	// Kind2D is a regular 2D texture.
	Kind2D ImageKind = iota

	// Kind2DArray is a layered 2D texture array.
	Kind2DArray

	// KindBuffer is a linear buffer texture (width x 1).
	KindBuffer

	// KindCounter is a single-element integer counter.
	KindCounter
)

// String returns the image kind name.
func (k ImageKind) String() string {
	switch k {
	case Kind2D:
		return "2D"
	case Kind2DArray:
		return "2DArray"
	case KindBuffer:
		return "Buffer"
	case KindCounter:
		return "Counter"
	default:
		return "Unknown"
	}
}

// Image is a named GPU texture owned by a render stage and flowed between
// stages as a pipe value.
//
// An Image always carries its descriptor (size, layers, format, kind), even
// when the pipeline runs headless and no HAL texture exists. This lets the
// scheduler build and validate the full stage graph without a GPU, which is
// how the tests and the rpgraph dry-run tool operate.
//
// Thread Safety: Image is safe for concurrent reads. SetSize and Destroy
// must not race with Texture/View access from other goroutines; in practice
// all mutation happens on the render thread during resize handling.
type Image struct {
	mu sync.RWMutex

	name   string
	kind   ImageKind
	width  int
	height int
	layers int
	format gputypes.TextureFormat

	clearColor [4]float64

	device    hal.Device
	texture   hal.Texture
	view      hal.TextureView
	destroyed bool
}

// NewImage2D creates a 2D texture image.
func NewImage2D(h DeviceHandle, name string, width, height int, format gputypes.TextureFormat) (*Image, error) {
	return newImage(h, name, Kind2D, width, height, 1, format)
}

// NewImage2DArray creates a layered 2D texture array image.
func NewImage2DArray(h DeviceHandle, name string, width, height, layers int, format gputypes.TextureFormat) (*Image, error) {
	return newImage(h, name, Kind2DArray, width, height, layers, format)
}

// NewBuffer creates a linear buffer image holding size elements.
func NewBuffer(h DeviceHandle, name string, size int, format gputypes.TextureFormat) (*Image, error) {
	return newImage(h, name, KindBuffer, size, 1, 1, format)
}

// NewCounter creates a single-element integer counter image, typically used
// to count rejected pixels for upscale passes.
func NewCounter(h DeviceHandle, name string) (*Image, error) {
	return newImage(h, name, KindCounter, 1, 1, 1, gputypes.TextureFormatR32Sint)
}

func newImage(h DeviceHandle, name string, kind ImageKind, width, height, layers int, format gputypes.TextureFormat) (*Image, error) {
	if width <= 0 || height <= 0 || layers <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidImageSize, width, height, layers)
	}

	img := &Image{
		name:   name,
		kind:   kind,
		width:  width,
		height: height,
		layers: layers,
		format: format,
	}

	if dev, ok := HalDevice(h); ok {
		img.device = dev
		if err := img.allocate(); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// allocate creates the HAL texture and default view. Caller holds no lock
// (only reachable before the image is shared, or under mu from SetSize).
func (i *Image) allocate() error {
	usage := types.TextureUsageTextureBinding |
		types.TextureUsageStorageBinding |
		types.TextureUsageCopySrc |
		types.TextureUsageCopyDst
	if i.kind == Kind2D || i.kind == Kind2DArray {
		usage |= types.TextureUsageRenderAttachment
	}

	tex, err := i.device.CreateTexture(&hal.TextureDescriptor{
		Label: i.name,
		Size: hal.Extent3D{
			Width:              uint32(i.width),
			Height:             uint32(i.height),
			DepthOrArrayLayers: uint32(i.layers),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        convertTextureFormat(i.format),
		Usage:         usage,
	})
	if err != nil {
		return fmt.Errorf("device: creating texture %q: %w", i.name, err)
	}

	view, err := i.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           i.name + " (default view)",
		Format:          types.TextureFormatUndefined,
		Dimension:       types.TextureViewDimensionUndefined,
		Aspect:          types.TextureAspectAll,
		BaseMipLevel:    0,
		MipLevelCount:   0,
		BaseArrayLayer:  0,
		ArrayLayerCount: 0,
	})
	if err != nil {
		i.device.DestroyTexture(tex)
		return fmt.Errorf("device: creating view for %q: %w", i.name, err)
	}

	i.texture = tex
	i.view = view
	logging.Logger().Debug("allocated image",
		"name", i.name, "kind", i.kind.String(),
		"width", i.width, "height", i.height, "layers", i.layers)
	return nil
}

// release destroys the HAL objects without touching the descriptor.
func (i *Image) release() {
	if i.device == nil {
		return
	}
	if i.view != nil {
		i.device.DestroyTextureView(i.view)
		i.view = nil
	}
	if i.texture != nil {
		i.device.DestroyTexture(i.texture)
		i.texture = nil
	}
}

// Name returns the image debug name.
func (i *Image) Name() string { return i.name }

// Kind returns the sampler category.
func (i *Image) Kind() ImageKind { return i.kind }

// Width returns the image width in pixels (or element count for buffers).
func (i *Image) Width() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.width
}

// Height returns the image height in pixels.
func (i *Image) Height() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.height
}

// Layers returns the array layer count.
func (i *Image) Layers() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.layers
}

// Format returns the pixel format.
func (i *Image) Format() gputypes.TextureFormat { return i.format }

// SetClearColor stores the clear color applied when the owning stage clears
// this image at frame start.
func (i *Image) SetClearColor(r, g, b, a float64) {
	i.mu.Lock()
	i.clearColor = [4]float64{r, g, b, a}
	i.mu.Unlock()
}

// ClearColor returns the stored clear color.
func (i *Image) ClearColor() [4]float64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.clearColor
}

// Texture returns the underlying HAL texture, or nil when headless.
func (i *Image) Texture() hal.Texture {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.texture
}

// View returns the default HAL texture view, or nil when headless.
func (i *Image) View() hal.TextureView {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.view
}

// SetSize resizes the image. The contents are not preserved: the HAL texture
// is recreated at the new size. A no-op when the size is unchanged.
func (i *Image) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidImageSize, width, height)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return ErrImageDestroyed
	}
	if i.width == width && i.height == height {
		return nil
	}
	i.width = width
	i.height = height
	if i.device == nil {
		return nil
	}
	i.release()
	return i.allocate()
}

// SetLayers resizes the array layer count. Only meaningful for Kind2DArray.
func (i *Image) SetLayers(layers int) error {
	if layers <= 0 {
		return fmt.Errorf("%w: %d layers", ErrInvalidImageSize, layers)
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return ErrImageDestroyed
	}
	if i.layers == layers {
		return nil
	}
	i.layers = layers
	if i.device == nil {
		return nil
	}
	i.release()
	return i.allocate()
}

// Destroy releases the GPU resources. The image must not be used afterwards.
func (i *Image) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return
	}
	i.release()
	i.destroyed = true
}
