// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package device provides the GPU integration layer of rp.
//
// rp does not create its own GPU device. The host application (e.g. a gogpu
// window, or any framework built on gpucontext) owns the device and passes a
// DeviceHandle into the pipeline. All GPU resources created by rp — stage
// framebuffers, pipe textures, counter buffers — are allocated through this
// package against the host's device.
package device

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	types "github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// Key principle: rp RECEIVES the device from the host, it does NOT create
// one. This enables shared GPU resources between rp and the host, and
// consistent resource lifetime management across the stack.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, providing an
// rp-specific name for the interface while maintaining full compatibility
// with the gpucontext ecosystem.
type DeviceHandle = gpucontext.DeviceProvider

// HalProvider is implemented by device handles that expose the underlying
// wgpu HAL objects. gogpu's window context implements it. When a handle does
// not implement HalProvider, rp operates headless: resource objects carry
// their descriptors but allocate no GPU memory.
type HalProvider interface {
	// HalDevice returns the hal.Device as an untyped value.
	HalDevice() any

	// HalQueue returns the hal.Queue as an untyped value.
	HalQueue() any
}

// HalDevice extracts the wgpu HAL device from a handle, if available.
func HalDevice(h DeviceHandle) (hal.Device, bool) {
	hp, ok := h.(HalProvider)
	if !ok {
		return nil, false
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, false
	}
	return dev, true
}

// HalQueue extracts the wgpu HAL queue from a handle, if available.
func HalQueue(h DeviceHandle) (hal.Queue, bool) {
	hp, ok := h.(HalProvider)
	if !ok {
		return nil, false
	}
	q, ok := hp.HalQueue().(hal.Queue)
	if !ok || q == nil {
		return nil, false
	}
	return q, true
}

// NullDeviceHandle is a DeviceHandle that provides nil implementations.
// Used for headless operation: graph construction, scheduling dry runs,
// and tests that never touch the GPU.
type NullDeviceHandle struct{}

// Device returns nil for the null device.
func (NullDeviceHandle) Device() gpucontext.Device { return nil }

// Queue returns nil for the null device.
func (NullDeviceHandle) Queue() gpucontext.Queue { return nil }

// Adapter returns nil for the null device.
func (NullDeviceHandle) Adapter() gpucontext.Adapter { return nil }

// SurfaceFormat returns undefined format for the null device.
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

// AdapterInfo returns unknown adapter metadata for the null device.
func (NullDeviceHandle) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Type: gpucontext.AdapterTypeUnknown}
}

// Ensure NullDeviceHandle implements DeviceHandle.
var _ DeviceHandle = NullDeviceHandle{}

// convertTextureFormat converts gputypes.TextureFormat to types.TextureFormat
// for HAL descriptor construction.
func convertTextureFormat(format gputypes.TextureFormat) types.TextureFormat {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return types.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatRGBA8UnormSrgb:
		return types.TextureFormatRGBA8UnormSrgb
	case gputypes.TextureFormatBGRA8Unorm:
		return types.TextureFormatBGRA8Unorm
	case gputypes.TextureFormatBGRA8UnormSrgb:
		return types.TextureFormatBGRA8UnormSrgb
	case gputypes.TextureFormatR8Unorm:
		return types.TextureFormatR8Unorm
	case gputypes.TextureFormatR32Float:
		return types.TextureFormatR32Float
	case gputypes.TextureFormatR32Sint:
		return types.TextureFormatR32Sint
	case gputypes.TextureFormatRG32Float:
		return types.TextureFormatRG32Float
	case gputypes.TextureFormatRGBA16Float:
		return types.TextureFormatRGBA16Float
	case gputypes.TextureFormatRGBA32Float:
		return types.TextureFormatRGBA32Float
	case gputypes.TextureFormatDepth24PlusStencil8:
		return types.TextureFormatDepth24PlusStencil8
	case gputypes.TextureFormatDepth32Float:
		return types.TextureFormatDepth32Float
	default:
		return types.TextureFormatRGBA8Unorm
	}
}
