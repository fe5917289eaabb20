package scene

import (
	"fmt"

	"github.com/gogpu/scenegraph/render"
)

// RenderPassStage renders draw lists into one framebuffer of the view.
type RenderPassStage struct {
	// RenderPass is owned by the scene once passed to New.
	RenderPass render.RenderPass

	// Framebuffer names a framebuffer of every view of the scene.
	Framebuffer string

	// ClearValues has one entry per render pass attachment, or is empty
	// to clear to zero.
	ClearValues []render.ClearValue

	// DrawLists holds the lists of each subpass, in draw order.
	DrawLists [][]ItemList
}

// PipelineStage is either a render pass or a standalone item list.
// Exactly one field is set.
type PipelineStage struct {
	RenderPass *RenderPassStage
	Items      ItemList
}

// PassStage returns a pipeline stage for a render pass.
func PassStage(rp render.RenderPass, framebuffer string, clearValues []render.ClearValue, drawLists ...[]ItemList) PipelineStage {
	return PipelineStage{RenderPass: &RenderPassStage{
		RenderPass:  rp,
		Framebuffer: framebuffer,
		ClearValues: clearValues,
		DrawLists:   drawLists,
	}}
}

// ItemStage returns a pipeline stage for a standalone item list.
func ItemStage(l ItemList) PipelineStage {
	return PipelineStage{Items: l}
}

func (st *PipelineStage) validate(i int) error {
	switch {
	case st.RenderPass == nil && st.Items == nil:
		return fmt.Errorf("pipeline stage %d is empty: %w", i, ErrInvalidArgument)
	case st.RenderPass != nil && st.Items != nil:
		return fmt.Errorf("pipeline stage %d has both a render pass and items: %w", i, ErrInvalidArgument)
	case st.Items != nil:
		return nil
	}

	rs := st.RenderPass
	if rs.RenderPass == nil {
		return fmt.Errorf("pipeline stage %d has no render pass: %w", i, ErrInvalidArgument)
	}
	if rs.Framebuffer == "" {
		return fmt.Errorf("pipeline stage %d has no framebuffer: %w", i, ErrInvalidArgument)
	}
	if n := rs.RenderPass.SubpassCount(); len(rs.DrawLists) != n {
		return fmt.Errorf("pipeline stage %d: %d draw list groups for %d subpasses: %w",
			i, len(rs.DrawLists), n, ErrInvalidArgument)
	}
	attachments := rs.RenderPass.AttachmentCount()
	switch len(rs.ClearValues) {
	case 0:
		rs.ClearValues = make([]render.ClearValue, attachments)
	case attachments:
	default:
		return fmt.Errorf("pipeline stage %d: %d clear values for %d attachments: %w",
			i, len(rs.ClearValues), attachments, ErrInvalidArgument)
	}
	for sp, lists := range rs.DrawLists {
		for _, l := range lists {
			if l == nil {
				return fmt.Errorf("pipeline stage %d subpass %d has a nil draw list: %w", i, sp, ErrInvalidArgument)
			}
		}
	}
	return nil
}

// forEachList calls fn for every item list of the stage in draw order.
func (st *PipelineStage) forEachList(fn func(ItemList)) {
	if st.Items != nil {
		fn(st.Items)
		return
	}
	if st.RenderPass == nil {
		return
	}
	for _, lists := range st.RenderPass.DrawLists {
		for _, l := range lists {
			fn(l)
		}
	}
}
