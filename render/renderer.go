// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "github.com/gogpu/gputypes"

// Renderer is the host graphics device as seen by the scene graph.
//
// Thread Safety: FrameNumber, SurfaceSamples and DefaultSamples may be
// called from any goroutine. Resource creation goes through the
// ResourceManager and follows its rules.
type Renderer interface {
	// Device returns the host device provider.
	Device() DeviceHandle

	// Resources returns the resource manager used to create GPU objects.
	Resources() ResourceManager

	// FrameNumber returns the number of the frame currently being recorded.
	// It increases monotonically; command buffer pools are reset the first
	// time they are used in a new frame.
	FrameNumber() uint64

	// SurfaceSamples returns the sample count of window surfaces.
	SurfaceSamples() uint32

	// DefaultSamples returns the default sample count for offscreens.
	DefaultSamples() uint32
}

// ResourceManager creates GPU objects.
//
// CreateResourceContext is called once from every draw worker thread; all
// other methods are only called from the thread that owns the view.
type ResourceManager interface {
	// CreateResourceContext binds a resource context to the calling thread.
	CreateResourceContext() (ResourceContext, error)

	// RenderTargetSupported reports whether format can be rendered to.
	RenderTargetSupported(format gputypes.TextureFormat) bool

	// CreateOffscreen creates a sampleable render target.
	CreateOffscreen(desc SurfaceDescriptor) (Offscreen, error)

	// CreateRenderbuffer creates a render-only target.
	CreateRenderbuffer(desc SurfaceDescriptor) (Renderbuffer, error)

	// CreateFramebuffer creates a framebuffer over existing surfaces.
	CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error)

	// CreateCommandBufferPool creates a pool of command buffers.
	CreateCommandBufferPool(usage CommandBufferUsage) (CommandBufferPool, error)
}

// ResourceContext is a per-thread graphics context. It must be destroyed
// on the thread that created it.
type ResourceContext interface {
	Destroy() error
}
