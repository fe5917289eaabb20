// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

// CommandBufferUsage specifies how command buffers from a pool are used.
// These flags can be combined with bitwise OR.
type CommandBufferUsage uint32

const (
	// CommandBufferUsageStandard is a primary command buffer.
	CommandBufferUsageStandard CommandBufferUsage = 0

	// CommandBufferUsageSecondary records commands that are later submitted
	// into a primary command buffer inside a render pass.
	CommandBufferUsageSecondary CommandBufferUsage = 1 << iota

	// CommandBufferUsageMultiFrame keeps recorded buffers valid across
	// frames.
	CommandBufferUsageMultiFrame
)

// CommandBuffer records GPU commands.
//
// A command buffer is recorded by one goroutine at a time. Different command
// buffers may be recorded concurrently from threads holding a
// ResourceContext.
type CommandBuffer interface {
	// Usage returns the usage flags of the pool the buffer came from.
	Usage() CommandBufferUsage

	// Begin starts recording a standalone command buffer.
	Begin() error

	// BeginSecondary starts recording a secondary command buffer that will
	// be submitted inside subpass of renderPass. The viewport is in pixels.
	BeginSecondary(framebuffer Framebuffer, renderPass RenderPass, subpass int, viewport Viewport) error

	// End finishes recording.
	End() error

	// Submit replays a finished command buffer into this one.
	Submit(sub CommandBuffer) error
}

// CommandBufferPool hands out command buffers.
type CommandBufferPool interface {
	// Usage returns the usage flags the pool was created with.
	Usage() CommandBufferUsage

	// Create allocates count new command buffers from the pool. Buffers
	// stay owned by the pool.
	Create(count int) ([]CommandBuffer, error)

	// Reset makes every buffer created by the pool recordable again.
	Reset() error

	// Destroy releases the pool and all of its buffers.
	Destroy() error
}
