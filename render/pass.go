// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// ErrInvalidViewport is returned when a normalized viewport leaves [0, 1].
var ErrInvalidViewport = errors.New("render: viewport must be within [0, 1]")

// ClearValue is the value an attachment is cleared to when its load
// operation is gputypes.LoadOpClear.
type ClearValue struct {
	// Color is used for color attachments.
	Color gputypes.Color

	// Depth and Stencil are used for depth-stencil attachments.
	Depth   float32
	Stencil uint32
}

// Attachment describes one attachment of a render pass.
type Attachment struct {
	Format  gputypes.TextureFormat
	Samples uint32
	LoadOp  gputypes.LoadOp
	StoreOp gputypes.StoreOp
}

// RenderPass groups subpasses that render into one framebuffer.
type RenderPass interface {
	// AttachmentCount returns the number of attachments; clear value
	// slices passed to Begin must have this length.
	AttachmentCount() int

	// SubpassCount returns the number of subpasses.
	SubpassCount() int

	// Begin starts the pass on cb. With secondary set, the contents of each
	// subpass come from submitted secondary command buffers.
	Begin(cb CommandBuffer, framebuffer Framebuffer, viewport Viewport, clearValues []ClearValue, secondary bool) error

	// NextSubpass advances to the next subpass.
	NextSubpass(cb CommandBuffer, secondary bool) error

	// End finishes the pass.
	End(cb CommandBuffer) error

	// Destroy releases the render pass.
	Destroy() error
}

// Viewport is an axis-aligned box. Framebuffer viewports are normalized to
// [0, 1]; viewports handed to command buffers are in pixels.
type Viewport struct {
	MinX, MinY, MinDepth float32
	MaxX, MaxY, MaxDepth float32
}

// FullViewport covers the whole framebuffer and depth range.
var FullViewport = Viewport{MaxX: 1, MaxY: 1, MaxDepth: 1}

// IsZero reports whether v is the zero viewport.
func (v Viewport) IsZero() bool {
	return v == (Viewport{})
}

// Validate checks that a normalized viewport is within [0, 1] and not
// inverted.
func (v Viewport) Validate() error {
	for _, c := range [...]float32{v.MinX, v.MinY, v.MinDepth, v.MaxX, v.MaxY, v.MaxDepth} {
		if c < 0 || c > 1 {
			return ErrInvalidViewport
		}
	}
	if v.MinX > v.MaxX || v.MinY > v.MaxY || v.MinDepth > v.MaxDepth {
		return ErrInvalidViewport
	}
	return nil
}

// Rotate maps a normalized viewport given in display orientation to the
// pre-rotated surface orientation.
func (v Viewport) Rotate(r Rotation) Viewport {
	out := v
	switch r {
	case Rotation90:
		out.MinX, out.MaxX = 1-v.MaxY, 1-v.MinY
		out.MinY, out.MaxY = v.MinX, v.MaxX
	case Rotation180:
		out.MinX, out.MaxX = 1-v.MaxX, 1-v.MinX
		out.MinY, out.MaxY = 1-v.MaxY, 1-v.MinY
	case Rotation270:
		out.MinX, out.MaxX = v.MinY, v.MaxY
		out.MinY, out.MaxY = 1-v.MaxX, 1-v.MinX
	}
	return out
}

// Scale converts a normalized viewport to pixels. Depth is left unchanged.
func (v Viewport) Scale(width, height uint32) Viewport {
	w, h := float32(width), float32(height)
	return Viewport{
		MinX: v.MinX * w, MinY: v.MinY * h, MinDepth: v.MinDepth,
		MaxX: v.MaxX * w, MaxY: v.MaxY * h, MaxDepth: v.MaxDepth,
	}
}
