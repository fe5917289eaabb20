// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package recorder

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gogpu/scenegraph/render"
)

// Op identifies a recorded command.
type Op int

const (
	OpBegin Op = iota
	OpBeginSecondary
	OpEnd
	OpSubmit
	OpBeginRenderPass
	OpNextSubpass
	OpEndRenderPass
	OpDraw
)

// String returns the command name used in traces.
func (o Op) String() string {
	switch o {
	case OpBegin:
		return "begin"
	case OpBeginSecondary:
		return "begin-secondary"
	case OpEnd:
		return "end"
	case OpSubmit:
		return "submit"
	case OpBeginRenderPass:
		return "begin-pass"
	case OpNextSubpass:
		return "next-subpass"
	case OpEndRenderPass:
		return "end-pass"
	case OpDraw:
		return "draw"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Command is one recorded command.
type Command struct {
	Op       Op
	Label    string
	Subpass  int
	Viewport render.Viewport
	Clear    []render.ClearValue

	// Nested holds the commands of a submitted buffer as they were at
	// submission time.
	Nested []Command
}

// CommandBuffer is a recorded command buffer.
type CommandBuffer struct {
	id    int
	usage render.CommandBufferUsage

	mu            sync.Mutex
	open          bool
	commands      []Command
	pass          *RenderPass
	subpass       int
	secondaryPass bool
	failBegin     bool
}

var _ render.CommandBuffer = (*CommandBuffer)(nil)

// ID returns a renderer-unique identifier.
func (c *CommandBuffer) ID() int { return c.id }

func (c *CommandBuffer) Usage() render.CommandBufferUsage { return c.usage }

// FailNextBegin makes the next Begin or BeginSecondary fail.
func (c *CommandBuffer) FailNextBegin() {
	c.mu.Lock()
	c.failBegin = true
	c.mu.Unlock()
}

func (c *CommandBuffer) begin(cmd Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failBegin {
		c.failBegin = false
		return ErrInjected
	}
	if c.open {
		return ErrRecording
	}
	c.open = true
	c.commands = append(c.commands[:0], cmd)
	return nil
}

func (c *CommandBuffer) Begin() error {
	return c.begin(Command{Op: OpBegin})
}

func (c *CommandBuffer) BeginSecondary(fb render.Framebuffer, rp render.RenderPass, subpass int, viewport render.Viewport) error {
	if c.usage&render.CommandBufferUsageSecondary == 0 {
		return ErrWrongUsage
	}
	if fb == nil {
		return errNilFramebuffer
	}
	label := fb.Name()
	if p, ok := rp.(*RenderPass); ok {
		label = p.name + "@" + label
	}
	return c.begin(Command{Op: OpBeginSecondary, Label: label, Subpass: subpass, Viewport: viewport})
}

func (c *CommandBuffer) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotRecording
	}
	c.open = false
	c.commands = append(c.commands, Command{Op: OpEnd})
	return nil
}

// Submit captures the commands of sub, which must have finished recording.
func (c *CommandBuffer) Submit(sub render.CommandBuffer) error {
	s, ok := sub.(*CommandBuffer)
	if !ok {
		return ErrForeignObject
	}
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return fmt.Errorf("submit buffer %d: %w", s.id, ErrRecording)
	}
	nested := append([]Command(nil), s.commands...)
	s.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotRecording
	}
	c.commands = append(c.commands, Command{Op: OpSubmit, Nested: nested})
	return nil
}

// Draw records a labelled draw. Item lists use it as their only command.
func (c *CommandBuffer) Draw(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrNotRecording
	}
	c.commands = append(c.commands, Command{Op: OpDraw, Label: label})
	return nil
}

// Commands returns a copy of the recorded commands.
func (c *CommandBuffer) Commands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command(nil), c.commands...)
}

func (c *CommandBuffer) reset() {
	c.mu.Lock()
	c.open = false
	c.pass = nil
	c.commands = c.commands[:0]
	c.mu.Unlock()
}

// Flatten expands submitted buffers in place and returns one line per
// command. Buffer identities are omitted so traces from different runs can
// be compared.
func (c *CommandBuffer) Flatten() []string {
	var lines []string
	flatten(c.Commands(), 0, &lines)
	return lines
}

func flatten(cmds []Command, depth int, lines *[]string) {
	indent := strings.Repeat("  ", depth)
	for _, cmd := range cmds {
		if cmd.Op == OpSubmit {
			*lines = append(*lines, indent+"submit")
			flatten(cmd.Nested, depth+1, lines)
			continue
		}
		*lines = append(*lines, indent+cmd.String())
	}
}

// String formats a single command.
func (cmd Command) String() string {
	var b strings.Builder
	b.WriteString(cmd.Op.String())
	if cmd.Label != "" {
		b.WriteString(" ")
		b.WriteString(cmd.Label)
	}
	switch cmd.Op {
	case OpBeginSecondary, OpNextSubpass:
		fmt.Fprintf(&b, " subpass=%d", cmd.Subpass)
	}
	if cmd.Op == OpBeginSecondary || cmd.Op == OpBeginRenderPass {
		v := cmd.Viewport
		fmt.Fprintf(&b, " viewport=[%g,%g %g,%g]", v.MinX, v.MinY, v.MaxX, v.MaxY)
	}
	for _, cv := range cmd.Clear {
		fmt.Fprintf(&b, " clear=(%g,%g,%g,%g d%g s%d)", cv.Color.R, cv.Color.G, cv.Color.B, cv.Color.A, cv.Depth, cv.Stencil)
	}
	return b.String()
}
