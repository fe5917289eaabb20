// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

// DeviceHandle provides GPU device access from the host application.
//
// DeviceHandle is an alias for gpucontext.DeviceProvider, so any host that
// already integrates with the gpucontext ecosystem can hand its device to
// the scene graph without an adapter.
type DeviceHandle = gpucontext.DeviceProvider

// Sample count sentinels accepted by SurfaceDescriptor.Samples. They are
// resolved against the renderer each time a view updates, so a change of the
// renderer's sample counts recreates the affected surfaces.
const (
	// SamplesSurface uses the renderer's window surface sample count.
	SamplesSurface uint32 = math.MaxUint32

	// SamplesDefault uses the renderer's default sample count.
	SamplesDefault uint32 = math.MaxUint32 - 1
)

// SurfaceDescriptor describes an offscreen or renderbuffer created by a view.
type SurfaceDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Format is the pixel format. TextureFormatUndefined selects the
	// device surface format.
	Format gputypes.TextureFormat

	// Width is the surface width in pixels.
	Width uint32

	// Height is the surface height in pixels.
	Height uint32

	// Depth is the array layer count. Use 0 for a non-array surface.
	Depth uint32

	// Cube marks a cube map; each array layer then has six faces.
	Cube bool

	// MipLevels is the number of mipmap levels. Use 0 or 1 for none.
	MipLevels uint32

	// Samples is the multisample count, or one of SamplesSurface and
	// SamplesDefault.
	Samples uint32

	// Usage specifies how the surface will be used.
	Usage gputypes.TextureUsage

	// Resolve requests an implicit resolve of a multisampled offscreen.
	Resolve bool
}

// LayerCount returns the number of addressable framebuffer layers.
func (d SurfaceDescriptor) LayerCount() uint32 {
	layers := max(d.Depth, 1)
	if d.Cube {
		layers *= 6
	}
	return layers
}

// ResolveSamples returns the concrete sample count for r.
func (d SurfaceDescriptor) ResolveSamples(r Renderer) uint32 {
	switch d.Samples {
	case SamplesSurface:
		return r.SurfaceSamples()
	case SamplesDefault:
		return r.DefaultSamples()
	case 0:
		return 1
	default:
		return d.Samples
	}
}

// UsesRendererSamples reports whether the sample count follows the renderer.
func (d SurfaceDescriptor) UsesRendererSamples() bool {
	return d.Samples == SamplesSurface || d.Samples == SamplesDefault
}

// Rotation is the orientation of a window surface relative to the display.
type Rotation int

const (
	Rotation0 Rotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// Valid reports whether r is one of the defined rotations.
func (r Rotation) Valid() bool {
	return r >= Rotation0 && r <= Rotation270
}

// SwapsAxes reports whether width and height are exchanged by r.
func (r Rotation) SwapsAxes() bool {
	return r == Rotation90 || r == Rotation270
}

// String returns the rotation in degrees.
func (r Rotation) String() string {
	switch r {
	case Rotation0:
		return "0"
	case Rotation90:
		return "90"
	case Rotation180:
		return "180"
	case Rotation270:
		return "270"
	default:
		return "invalid"
	}
}
