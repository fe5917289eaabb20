// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

// SurfaceType identifies the kind of object a framebuffer attachment uses.
type SurfaceType int

const (
	// SurfaceTypeOffscreen is a sampleable texture render target.
	SurfaceTypeOffscreen SurfaceType = iota

	// SurfaceTypeRenderbuffer is a render-only target.
	SurfaceTypeRenderbuffer

	// SurfaceTypeColorRenderSurface is the color image of a window surface.
	SurfaceTypeColorRenderSurface

	// SurfaceTypeDepthRenderSurface is the depth image of a window surface.
	SurfaceTypeDepthRenderSurface
)

// IsRenderSurface reports whether t refers to a window surface.
func (t SurfaceType) IsRenderSurface() bool {
	return t == SurfaceTypeColorRenderSurface || t == SurfaceTypeDepthRenderSurface
}

// String returns a human-readable surface type name.
func (t SurfaceType) String() string {
	switch t {
	case SurfaceTypeOffscreen:
		return "Offscreen"
	case SurfaceTypeRenderbuffer:
		return "Renderbuffer"
	case SurfaceTypeColorRenderSurface:
		return "ColorRenderSurface"
	case SurfaceTypeDepthRenderSurface:
		return "DepthRenderSurface"
	default:
		return "Unknown"
	}
}

// Surface is any object a framebuffer can render into.
type Surface interface {
	// Destroy releases the surface.
	Destroy() error
}

// Offscreen is a texture that can be rendered to and later sampled.
type Offscreen interface {
	Surface

	// Descriptor returns the parameters the offscreen was created with,
	// with sample sentinels resolved.
	Descriptor() SurfaceDescriptor
}

// Renderbuffer is a render-only target.
type Renderbuffer interface {
	Surface

	Descriptor() SurfaceDescriptor
}

// RenderSurface is a window surface owned by the host.
//
// Views never create render surfaces; they are supplied by the host and
// left untouched when the view is destroyed.
type RenderSurface interface {
	Surface

	// Width returns the pre-rotation width in pixels.
	Width() uint32

	// Height returns the pre-rotation height in pixels.
	Height() uint32

	// ClientRotations reports whether the application is responsible for
	// rotating its output to the display orientation.
	ClientRotations() bool
}

// FramebufferSurface binds one surface into a framebuffer.
type FramebufferSurface struct {
	Type    SurfaceType
	Surface Surface

	// Layer is the first array layer to render into.
	Layer uint32

	// CubeFace is the face of a cube map surface.
	CubeFace int

	// MipLevel is the mip level to render into.
	MipLevel uint32
}

// FramebufferDescriptor describes a framebuffer to create.
type FramebufferDescriptor struct {
	Name     string
	Surfaces []FramebufferSurface
	Width    uint32
	Height   uint32
	Layers   uint32
}

// Framebuffer is a set of surfaces rendered by one render pass.
type Framebuffer interface {
	Name() string
	Width() uint32
	Height() uint32
	Layers() uint32

	// Destroy releases the framebuffer. The surfaces are not destroyed.
	Destroy() error
}
