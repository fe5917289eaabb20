package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/render/recorder"
	"github.com/gogpu/scenegraph/scene"
	"github.com/gogpu/scenegraph/scene/itemlists"
)

var (
	meshType  = &scene.NodeType{Name: "Mesh"}
	glassType = &scene.NodeType{Name: "Glass", Parent: meshType}
)

// demo is a scene with a shadow stage and a two-subpass main pass drawn
// into a window.
type demo struct {
	r      *recorder.Renderer
	scene  *scene.Scene
	view   *scene.View
	window *recorder.RenderSurface
	root   *scene.Node
}

// objectLabel draws an entry as list:object.
func objectLabel(list string) itemlists.TransformOption {
	return itemlists.WithLabel(func(e *itemlists.TransformEntry) string {
		return fmt.Sprintf("%s:%v", list, e.Node.UserData())
	})
}

func drawLabel(label string) itemlists.CommitFunc {
	return func(_ *scene.View, cb render.CommandBuffer, _ []*scene.TreeNode) error {
		d, ok := cb.(itemlists.Drawer)
		if !ok {
			return itemlists.ErrNoDrawer
		}
		return d.Draw(label)
	}
}

func newDemo(width, height uint32, objects int) (*demo, error) {
	d := &demo{r: recorder.New(recorder.WithSurfaceFormat(gputypes.TextureFormatBGRA8Unorm))}

	pass := d.r.NewRenderPass("main", []render.Attachment{
		{Format: gputypes.TextureFormatBGRA8Unorm, Samples: 1, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore},
		{Format: gputypes.TextureFormatDepth24PlusStencil8, Samples: 1, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpDiscard},
	}, 2)
	clears := []render.ClearValue{
		{Color: gputypes.Color{R: 0.1, G: 0.1, B: 0.2, A: 1}},
		{Depth: 1},
	}

	s, err := scene.New(d.r,
		[][]scene.ItemList{{
			itemlists.NewFuncList("cull", nil, itemlists.WithoutCommandBuffer()),
			itemlists.NewTransformList("shadows", meshType, objectLabel("shadow")),
		}},
		[]scene.PipelineStage{
			scene.ItemStage(itemlists.NewFuncList("lights", drawLabel("lights"))),
			scene.PassStage(pass, "window", clears,
				[]scene.ItemList{
					itemlists.NewTransformList("opaque", meshType, objectLabel("opaque")),
					itemlists.NewFuncList("sky", drawLabel("sky")),
				},
				[]scene.ItemList{
					itemlists.NewTransformList("transparent", glassType, objectLabel("transparent")),
				},
			),
		})
	if err != nil {
		return nil, err
	}
	d.scene = s

	d.window = d.r.NewRenderSurface(width, height, false)
	d.view, err = scene.NewView(s,
		[]scene.SurfaceInfo{
			{Name: "window", Type: render.SurfaceTypeColorRenderSurface, Surface: d.window, WindowFramebuffer: true},
			{Name: "depth", Type: render.SurfaceTypeRenderbuffer, WindowFramebuffer: true,
				Descriptor: render.SurfaceDescriptor{Format: gputypes.TextureFormatDepth24PlusStencil8, Samples: render.SamplesSurface}},
		},
		[]scene.FramebufferInfo{{
			Name: "window",
			Surfaces: []scene.FramebufferSurfaceRef{
				{Name: "window", Type: scene.SurfaceTypeAny},
				{Name: "depth", Type: scene.SurfaceTypeAny},
			},
		}},
		width, height)
	if err != nil {
		_ = s.Destroy()
		return nil, err
	}
	if err := d.view.SetPerspectiveProjection(mgl32.DegToRad(60), 0.1, 100); err != nil {
		d.destroy()
		return nil, err
	}
	d.view.SetCameraMatrix(mgl32.Translate3D(0, 2, 10))

	if err := d.populate(objects); err != nil {
		d.destroy()
		return nil, err
	}
	return d, nil
}

// populate adds objects meshes on a line under one root transform. Every
// third object is glass.
func (d *demo) populate(objects int) error {
	d.root = scene.NewTransformNode(mgl32.Ident4())
	for i := range objects {
		xf := scene.NewTransformNode(mgl32.Translate3D(float32(i)*2, 0, 0))
		typ, lists := meshType, []string{"shadows", "opaque"}
		if i%3 == 2 {
			typ, lists = glassType, []string{"shadows", "transparent"}
		}
		obj := scene.NewNode(typ, lists, nil)
		obj.SetUserData(fmt.Sprintf("%s%d", typ, i))

		_, err := xf.AddChild(obj)
		obj.Release()
		if err == nil {
			_, err = d.root.AddChild(xf)
		}
		xf.Release()
		if err != nil {
			return err
		}
	}
	_, err := d.scene.AddNode(d.root)
	return err
}

// step spins the scene around the vertical axis and updates it.
func (d *demo) step(frame int, dt float64) error {
	angle := float32(frame) * float32(dt)
	if err := d.root.SetTransform(mgl32.HomogRotate3DY(angle)); err != nil {
		return err
	}
	return d.scene.Update(dt)
}

// draw records one frame and returns the flattened trace.
func (d *demo) draw(tm *scene.ThreadManager) ([]string, error) {
	cb := d.r.NewCommandBuffer()
	if err := d.view.Draw(cb, tm); err != nil {
		return nil, err
	}
	if err := cb.End(); err != nil {
		return nil, err
	}
	d.r.NextFrame()
	return cb.Flatten(), nil
}

// itemCount returns the number of item lists of the scene.
func (d *demo) itemCount() int {
	n := 0
	d.scene.ForEachItemList(func(scene.ItemList) bool {
		n++
		return true
	})
	return n
}

func (d *demo) destroy() {
	_ = d.view.Destroy()
	_ = d.scene.Destroy()
	if d.root != nil {
		d.root.Release()
		d.root = nil
	}
}
