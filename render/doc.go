// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the graphics device contracts the scene graph
// draws through.
//
// The scene graph does not own a GPU backend. The host application supplies
// a [Renderer] whose [ResourceManager] creates the objects the scene needs:
// resource contexts for worker threads, offscreens and renderbuffers for view
// surfaces, framebuffers, and command buffer pools.
//
// # Key Principle
//
// The scene graph RECEIVES a device from the host, it does NOT create one.
// [Renderer.Device] exposes the host's [gpucontext.DeviceProvider] so that
// surfaces created with [gputypes.TextureFormatUndefined] follow the host
// surface format.
//
// # Core Interfaces
//
//   - Renderer: frame counter, sample counts and resource access
//   - ResourceManager: creation of contexts, surfaces, framebuffers and pools
//   - CommandBuffer, CommandBufferPool: primary and secondary recording
//   - RenderPass: begin/next-subpass/end around recorded subpasses
//   - Framebuffer, Offscreen, Renderbuffer, RenderSurface: render targets
//
// A complete in-memory implementation lives in render/recorder and is used
// by tests and the scenedemo command.
package render
