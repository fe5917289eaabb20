// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package recorder implements the render contracts in memory.
//
// Every command recorded into a [CommandBuffer] is kept as a [Command], and
// submitted secondary buffers are captured at submission time, so a primary
// buffer can be flattened into the exact sequence a GPU would execute.
// Faults can be injected to exercise error paths.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
)

// Errors returned by the recorder when a fault is injected or a contract is
// violated.
var (
	ErrInjected       = errors.New("recorder: injected failure")
	ErrNotRecording   = errors.New("recorder: command buffer is not recording")
	ErrRecording      = errors.New("recorder: command buffer is already recording")
	ErrForeignObject  = errors.New("recorder: object was not created by the recorder")
	ErrRenderPass     = errors.New("recorder: render pass misuse")
	ErrDestroyed      = errors.New("recorder: object already destroyed")
	ErrUnsupported    = errors.New("recorder: format is not renderable")
	ErrWrongUsage     = errors.New("recorder: wrong command buffer usage")
	ErrBadDescriptor  = errors.New("recorder: invalid descriptor")
	ErrClearMismatch  = errors.New("recorder: clear value count does not match attachments")
	ErrLayerOverflow  = errors.New("recorder: framebuffer layers exceed surface")
	ErrPoolExhausted  = errors.New("recorder: command buffer pool is destroyed")
	errNilFramebuffer = errors.New("recorder: nil framebuffer")
)

// provider implements gpucontext.DeviceProvider for a headless device.
type provider struct {
	format gputypes.TextureFormat
}

type device struct{}
type queue struct{}
type adapter struct{}

func (p *provider) Device() gpucontext.Device             { return &device{} }
func (p *provider) Queue() gpucontext.Queue               { return &queue{} }
func (p *provider) Adapter() gpucontext.Adapter           { return &adapter{} }
func (p *provider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *provider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "recorder", Type: gpucontext.AdapterTypeSoftware}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSurfaceFormat sets the format reported by the device provider.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(r *Renderer) { r.provider.format = f }
}

// WithSamples sets the surface and default sample counts.
func WithSamples(surface, def uint32) Option {
	return func(r *Renderer) {
		r.surfaceSamples.Store(surface)
		r.defaultSamples.Store(def)
	}
}

// WithContextLimit makes CreateResourceContext fail once limit contexts
// have been created.
func WithContextLimit(limit int) Option {
	return func(r *Renderer) { r.contextLimit = limit }
}

// WithUnsupportedFormats marks formats as not renderable.
func WithUnsupportedFormats(formats ...gputypes.TextureFormat) Option {
	return func(r *Renderer) {
		for _, f := range formats {
			r.unsupported[f] = true
		}
	}
}

// Renderer is an in-memory render.Renderer and render.ResourceManager.
//
// Renderer is safe for concurrent use.
type Renderer struct {
	provider provider

	frame          atomic.Uint64
	surfaceSamples atomic.Uint32
	defaultSamples atomic.Uint32
	nextID         atomic.Int64

	mu                sync.Mutex
	contextLimit      int
	contextsCreated   int
	liveContexts      int
	liveSurfaces      int
	liveFramebuffers  int
	livePools         int
	unsupported       map[gputypes.TextureFormat]bool
	failSurfaces      bool
	failFramebuffers  bool
	failPools         bool
	createdSurfaces   int
	createdFramebuffs int
}

var (
	_ render.Renderer        = (*Renderer)(nil)
	_ render.ResourceManager = (*Renderer)(nil)
)

// New creates a recording renderer. The defaults are a BGRA8 surface
// format, single sampling and no context limit.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		provider:     provider{format: gputypes.TextureFormatBGRA8Unorm},
		contextLimit: -1,
		unsupported:  make(map[gputypes.TextureFormat]bool),
	}
	r.surfaceSamples.Store(1)
	r.defaultSamples.Store(1)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Device returns the headless device provider.
func (r *Renderer) Device() render.DeviceHandle { return &r.provider }

// Resources returns r.
func (r *Renderer) Resources() render.ResourceManager { return r }

// FrameNumber returns the current frame.
func (r *Renderer) FrameNumber() uint64 { return r.frame.Load() }

// NextFrame advances the frame counter and returns the new frame number.
func (r *Renderer) NextFrame() uint64 { return r.frame.Add(1) }

// SurfaceSamples returns the window surface sample count.
func (r *Renderer) SurfaceSamples() uint32 { return r.surfaceSamples.Load() }

// DefaultSamples returns the default sample count.
func (r *Renderer) DefaultSamples() uint32 { return r.defaultSamples.Load() }

// SetSamples changes the renderer sample counts.
func (r *Renderer) SetSamples(surface, def uint32) {
	r.surfaceSamples.Store(surface)
	r.defaultSamples.Store(def)
}

// FailSurfaces makes offscreen and renderbuffer creation fail.
func (r *Renderer) FailSurfaces(fail bool) {
	r.mu.Lock()
	r.failSurfaces = fail
	r.mu.Unlock()
}

// FailFramebuffers makes framebuffer creation fail.
func (r *Renderer) FailFramebuffers(fail bool) {
	r.mu.Lock()
	r.failFramebuffers = fail
	r.mu.Unlock()
}

// FailPools makes command buffer pool creation fail.
func (r *Renderer) FailPools(fail bool) {
	r.mu.Lock()
	r.failPools = fail
	r.mu.Unlock()
}

// Stats is a snapshot of live and created object counts.
type Stats struct {
	LiveContexts        int
	LiveSurfaces        int
	LiveFramebuffers    int
	LivePools           int
	CreatedContexts     int
	CreatedSurfaces     int
	CreatedFramebuffers int
}

// Stats returns the current object counts.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		LiveContexts:        r.liveContexts,
		LiveSurfaces:        r.liveSurfaces,
		LiveFramebuffers:    r.liveFramebuffers,
		LivePools:           r.livePools,
		CreatedContexts:     r.contextsCreated,
		CreatedSurfaces:     r.createdSurfaces,
		CreatedFramebuffers: r.createdFramebuffs,
	}
}

func (r *Renderer) id() int { return int(r.nextID.Add(1)) }

// resourceContext is a per-thread context.
type resourceContext struct {
	r         *Renderer
	destroyed bool
}

func (c *resourceContext) Destroy() error {
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}
	c.destroyed = true
	c.r.liveContexts--
	return nil
}

// CreateResourceContext creates a context unless the context limit has been
// reached.
func (r *Renderer) CreateResourceContext() (render.ResourceContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.contextLimit >= 0 && r.contextsCreated >= r.contextLimit {
		return nil, fmt.Errorf("resource context %d: %w", r.contextsCreated, ErrInjected)
	}
	r.contextsCreated++
	r.liveContexts++
	return &resourceContext{r: r}, nil
}

// RenderTargetSupported reports whether f is renderable.
func (r *Renderer) RenderTargetSupported(f gputypes.TextureFormat) bool {
	if f == gputypes.TextureFormatUndefined {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.unsupported[f]
}

func (r *Renderer) createSurface(desc render.SurfaceDescriptor) (*surface, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("surface %q %dx%d: %w", desc.Label, desc.Width, desc.Height, ErrBadDescriptor)
	}
	if !r.RenderTargetSupported(desc.Format) {
		return nil, fmt.Errorf("surface %q format %v: %w", desc.Label, desc.Format, ErrUnsupported)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSurfaces {
		return nil, fmt.Errorf("surface %q: %w", desc.Label, ErrInjected)
	}
	desc.Samples = desc.ResolveSamples(r)
	r.liveSurfaces++
	r.createdSurfaces++
	return &surface{r: r, id: r.id(), desc: desc}, nil
}

// CreateOffscreen creates an offscreen.
func (r *Renderer) CreateOffscreen(desc render.SurfaceDescriptor) (render.Offscreen, error) {
	s, err := r.createSurface(desc)
	if err != nil {
		return nil, err
	}
	return &Offscreen{surface: s}, nil
}

// CreateRenderbuffer creates a renderbuffer.
func (r *Renderer) CreateRenderbuffer(desc render.SurfaceDescriptor) (render.Renderbuffer, error) {
	s, err := r.createSurface(desc)
	if err != nil {
		return nil, err
	}
	return &Renderbuffer{surface: s}, nil
}

// CreateFramebuffer creates a framebuffer. Layer ranges are checked against
// offscreen and renderbuffer descriptors.
func (r *Renderer) CreateFramebuffer(desc render.FramebufferDescriptor) (render.Framebuffer, error) {
	if desc.Width == 0 || desc.Height == 0 || len(desc.Surfaces) == 0 {
		return nil, fmt.Errorf("framebuffer %q: %w", desc.Name, ErrBadDescriptor)
	}
	layers := max(desc.Layers, 1)
	for _, fs := range desc.Surfaces {
		var sd *render.SurfaceDescriptor
		switch s := fs.Surface.(type) {
		case *Offscreen:
			sd = &s.desc
		case *Renderbuffer:
			sd = &s.desc
		case *RenderSurface:
		default:
			return nil, fmt.Errorf("framebuffer %q surface %T: %w", desc.Name, fs.Surface, ErrForeignObject)
		}
		if sd != nil && fs.Layer+layers > sd.LayerCount() {
			return nil, fmt.Errorf("framebuffer %q: %w", desc.Name, ErrLayerOverflow)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFramebuffers {
		return nil, fmt.Errorf("framebuffer %q: %w", desc.Name, ErrInjected)
	}
	r.liveFramebuffers++
	r.createdFramebuffs++
	return &Framebuffer{r: r, desc: desc}, nil
}

// CreateCommandBufferPool creates a command buffer pool.
func (r *Renderer) CreateCommandBufferPool(usage render.CommandBufferUsage) (render.CommandBufferPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPools {
		return nil, fmt.Errorf("command buffer pool: %w", ErrInjected)
	}
	r.livePools++
	return &Pool{r: r, usage: usage}, nil
}

// NewRenderSurface creates a window surface as the host would.
func (r *Renderer) NewRenderSurface(width, height uint32, clientRotations bool) *RenderSurface {
	return &RenderSurface{width: width, height: height, clientRotations: clientRotations}
}

// NewCommandBuffer creates an open primary command buffer, the equivalent
// of the host's per-frame main command buffer.
func (r *Renderer) NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{id: r.id(), open: true, usage: render.CommandBufferUsageStandard}
}

// NewRenderPass creates a render pass with the given attachments and
// subpass count.
func (r *Renderer) NewRenderPass(name string, attachments []render.Attachment, subpasses int) *RenderPass {
	return &RenderPass{name: name, attachments: attachments, subpasses: subpasses}
}
