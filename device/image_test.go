// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package device

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestImageKinds(t *testing.T) {
	h := NullDeviceHandle{}

	tests := []struct {
		name string
		make func() (*Image, error)
		kind ImageKind
	}{
		{"2d", func() (*Image, error) {
			return NewImage2D(h, "color", 128, 64, gputypes.TextureFormatRGBA16Float)
		}, Kind2D},
		{"array", func() (*Image, error) {
			return NewImage2DArray(h, "cascades", 256, 256, 4, gputypes.TextureFormatRGBA16Float)
		}, Kind2DArray},
		{"buffer", func() (*Image, error) {
			return NewBuffer(h, "cells", 4096, gputypes.TextureFormatR32Float)
		}, KindBuffer},
		{"counter", func() (*Image, error) {
			return NewCounter(h, "lights")
		}, KindCounter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := tt.make()
			if err != nil {
				t.Fatal(err)
			}
			if img.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", img.Kind(), tt.kind)
			}
			// Headless: no HAL device, no texture.
			if img.Texture() != nil {
				t.Error("headless image carries a texture")
			}
		})
	}
}

func TestImageInvalidSize(t *testing.T) {
	h := NullDeviceHandle{}
	if _, err := NewImage2D(h, "bad", 0, 10, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, ErrInvalidImageSize) {
		t.Errorf("zero width error = %v, want ErrInvalidImageSize", err)
	}
	if _, err := NewImage2D(h, "bad", 10, -1, gputypes.TextureFormatRGBA8Unorm); !errors.Is(err, ErrInvalidImageSize) {
		t.Errorf("negative height error = %v, want ErrInvalidImageSize", err)
	}
}

func TestImageSetSize(t *testing.T) {
	img, err := NewImage2D(NullDeviceHandle{}, "scene", 100, 50, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}

	if err := img.SetSize(200, 100); err != nil {
		t.Fatal(err)
	}
	if img.Width() != 200 || img.Height() != 100 {
		t.Errorf("size = %dx%d, want 200x100", img.Width(), img.Height())
	}

	if err := img.SetSize(0, 100); !errors.Is(err, ErrInvalidImageSize) {
		t.Errorf("SetSize(0, _) error = %v, want ErrInvalidImageSize", err)
	}
}

func TestImageSetLayers(t *testing.T) {
	img, err := NewImage2DArray(NullDeviceHandle{}, "arr", 64, 64, 2, gputypes.TextureFormatRGBA16Float)
	if err != nil {
		t.Fatal(err)
	}
	if err := img.SetLayers(5); err != nil {
		t.Fatal(err)
	}
	if img.Layers() != 5 {
		t.Errorf("layers = %d, want 5", img.Layers())
	}
}

func TestImageDestroy(t *testing.T) {
	img, err := NewImage2D(NullDeviceHandle{}, "tmp", 8, 8, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	img.Destroy()

	if err := img.SetSize(16, 16); !errors.Is(err, ErrImageDestroyed) {
		t.Errorf("SetSize after Destroy = %v, want ErrImageDestroyed", err)
	}
	// Destroy is idempotent.
	img.Destroy()
}

func TestImageClearColor(t *testing.T) {
	img, err := NewImage2D(NullDeviceHandle{}, "c", 8, 8, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	img.SetClearColor(0.1, 0.2, 0.3, 1)
	if got := img.ClearColor(); got != [4]float64{0.1, 0.2, 0.3, 1} {
		t.Errorf("clear color = %v", got)
	}
}

func TestImageKindString(t *testing.T) {
	tests := []struct {
		kind ImageKind
		want string
	}{
		{Kind2D, "2D"},
		{Kind2DArray, "2DArray"},
		{KindBuffer, "Buffer"},
		{KindCounter, "Counter"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestCounterFormat(t *testing.T) {
	img, err := NewCounter(NullDeviceHandle{}, "counter")
	if err != nil {
		t.Fatal(err)
	}
	if img.Format() != gputypes.TextureFormatR32Sint {
		t.Errorf("counter format = %v, want R32Sint", img.Format())
	}
}
