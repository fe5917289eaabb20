// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recorder

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
)

type surface struct {
	r         *Renderer
	id        int
	desc      render.SurfaceDescriptor
	destroyed bool
}

func (s *surface) Destroy() error {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.destroyed = true
	s.r.liveSurfaces--
	return nil
}

// Descriptor returns the creation parameters with samples resolved.
func (s *surface) Descriptor() render.SurfaceDescriptor { return s.desc }

// Destroyed reports whether Destroy has been called.
func (s *surface) Destroyed() bool {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	return s.destroyed
}

// Offscreen is a recorded offscreen.
type Offscreen struct{ *surface }

// Renderbuffer is a recorded renderbuffer.
type Renderbuffer struct{ *surface }

var (
	_ render.Offscreen     = (*Offscreen)(nil)
	_ render.Renderbuffer  = (*Renderbuffer)(nil)
	_ render.RenderSurface = (*RenderSurface)(nil)
	_ render.Framebuffer   = (*Framebuffer)(nil)
)

// RenderSurface is a host window surface.
type RenderSurface struct {
	mu              sync.Mutex
	width, height   uint32
	clientRotations bool
	destroyed       bool
}

func (s *RenderSurface) Width() uint32         { return s.width }
func (s *RenderSurface) Height() uint32        { return s.height }
func (s *RenderSurface) ClientRotations() bool { return s.clientRotations }

// Resize changes the surface size, as a window resize would.
func (s *RenderSurface) Resize(width, height uint32) {
	s.width, s.height = width, height
}

func (s *RenderSurface) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return ErrDestroyed
	}
	s.destroyed = true
	return nil
}

// Destroyed reports whether Destroy has been called.
func (s *RenderSurface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

// Framebuffer is a recorded framebuffer.
type Framebuffer struct {
	r         *Renderer
	desc      render.FramebufferDescriptor
	destroyed bool
}

func (f *Framebuffer) Name() string   { return f.desc.Name }
func (f *Framebuffer) Width() uint32  { return f.desc.Width }
func (f *Framebuffer) Height() uint32 { return f.desc.Height }
func (f *Framebuffer) Layers() uint32 { return max(f.desc.Layers, 1) }

// Surfaces returns the bound surfaces.
func (f *Framebuffer) Surfaces() []render.FramebufferSurface { return f.desc.Surfaces }

func (f *Framebuffer) Destroy() error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.destroyed {
		return ErrDestroyed
	}
	f.destroyed = true
	f.r.liveFramebuffers--
	return nil
}

// Pool is a recorded command buffer pool. Buffers are kept for the pool's
// lifetime and cleared on Reset.
type Pool struct {
	r         *Renderer
	usage     render.CommandBufferUsage
	mu        sync.Mutex
	buffers   []*CommandBuffer
	resets    int
	destroyed bool
}

var _ render.CommandBufferPool = (*Pool)(nil)

func (p *Pool) Usage() render.CommandBufferUsage { return p.usage }

// Create allocates count buffers.
func (p *Pool) Create(count int) ([]render.CommandBuffer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return nil, ErrPoolExhausted
	}
	out := make([]render.CommandBuffer, count)
	for i := range out {
		cb := &CommandBuffer{id: p.r.id(), usage: p.usage}
		p.buffers = append(p.buffers, cb)
		out[i] = cb
	}
	return out, nil
}

// Reset clears every buffer created by the pool.
func (p *Pool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrPoolExhausted
	}
	for _, cb := range p.buffers {
		cb.reset()
	}
	p.resets++
	return nil
}

// Resets returns how many times Reset has been called.
func (p *Pool) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

// Len returns the number of buffers created by the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

func (p *Pool) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.destroyed = true
	p.buffers = nil

	p.r.mu.Lock()
	p.r.livePools--
	p.r.mu.Unlock()
	return nil
}

// RenderPass is a recorded render pass.
type RenderPass struct {
	name        string
	attachments []render.Attachment
	subpasses   int

	mu        sync.Mutex
	destroyed bool
}

var _ render.RenderPass = (*RenderPass)(nil)

func (p *RenderPass) Name() string         { return p.name }
func (p *RenderPass) AttachmentCount() int { return len(p.attachments) }
func (p *RenderPass) SubpassCount() int    { return p.subpasses }

// Begin records the start of the pass. Only clear values of attachments
// with gputypes.LoadOpClear are kept.
func (p *RenderPass) Begin(cb render.CommandBuffer, fb render.Framebuffer, viewport render.Viewport,
	clearValues []render.ClearValue, secondary bool) error {
	c, ok := cb.(*CommandBuffer)
	if !ok {
		return ErrForeignObject
	}
	if fb == nil {
		return errNilFramebuffer
	}
	if len(clearValues) != len(p.attachments) {
		return fmt.Errorf("pass %q: got %d, want %d: %w", p.name, len(clearValues), len(p.attachments), ErrClearMismatch)
	}

	var cleared []render.ClearValue
	for i, a := range p.attachments {
		if a.LoadOp == gputypes.LoadOpClear {
			cleared = append(cleared, clearValues[i])
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotRecording
	}
	if c.pass != nil {
		return fmt.Errorf("pass %q begun inside %q: %w", p.name, c.pass.name, ErrRenderPass)
	}
	c.pass, c.subpass, c.secondaryPass = p, 0, secondary
	c.commands = append(c.commands, Command{
		Op:       OpBeginRenderPass,
		Label:    p.name + "@" + fb.Name(),
		Viewport: viewport,
		Clear:    cleared,
	})
	return nil
}

// NextSubpass records a subpass transition.
func (p *RenderPass) NextSubpass(cb render.CommandBuffer, secondary bool) error {
	c, ok := cb.(*CommandBuffer)
	if !ok {
		return ErrForeignObject
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pass != p || c.subpass+1 >= p.subpasses {
		return fmt.Errorf("next subpass of %q: %w", p.name, ErrRenderPass)
	}
	c.subpass++
	c.secondaryPass = secondary
	c.commands = append(c.commands, Command{Op: OpNextSubpass, Label: p.name, Subpass: c.subpass})
	return nil
}

// End records the end of the pass. Every subpass must have been visited.
func (p *RenderPass) End(cb render.CommandBuffer) error {
	c, ok := cb.(*CommandBuffer)
	if !ok {
		return ErrForeignObject
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pass != p || c.subpass != p.subpasses-1 {
		return fmt.Errorf("end of %q: %w", p.name, ErrRenderPass)
	}
	c.pass = nil
	c.commands = append(c.commands, Command{Op: OpEndRenderPass, Label: p.name})
	return nil
}

func (p *RenderPass) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrDestroyed
	}
	p.destroyed = true
	return nil
}

// Destroyed reports whether Destroy has been called.
func (p *RenderPass) Destroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
