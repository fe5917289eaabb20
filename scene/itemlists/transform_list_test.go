package itemlists

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/render/recorder"
	"github.com/gogpu/scenegraph/scene"
)

var meshType = &scene.NodeType{Name: "Mesh"}

var skinnedMeshType = &scene.NodeType{Name: "SkinnedMesh", Parent: meshType}

// passScene creates a scene that draws lists in one render pass into a
// 64x32 window and a view of it.
func passScene(t *testing.T, r *recorder.Renderer, opts []scene.Option, lists ...scene.ItemList) (*scene.Scene, *scene.View) {
	t.Helper()
	rp := r.NewRenderPass("main", []render.Attachment{{
		Format:  gputypes.TextureFormatRGBA8Unorm,
		Samples: 1,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}}, 1)
	s, err := scene.New(r, nil, []scene.PipelineStage{scene.PassStage(rp, "window", nil, lists)}, opts...)
	if err != nil {
		t.Fatalf("scene.New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Destroy() })

	window := r.NewRenderSurface(64, 32, false)
	v, err := scene.NewView(s,
		[]scene.SurfaceInfo{{Name: "window", Type: render.SurfaceTypeColorRenderSurface, Surface: window, WindowFramebuffer: true}},
		[]scene.FramebufferInfo{{Name: "window", Surfaces: []scene.FramebufferSurfaceRef{{Name: "window", Type: scene.SurfaceTypeAny}}}},
		64, 32)
	if err != nil {
		t.Fatalf("scene.NewView() error = %v", err)
	}
	t.Cleanup(func() { _ = v.Destroy() })
	return s, v
}

// draws returns the draw labels recorded by a serial draw of v.
func draws(t *testing.T, r *recorder.Renderer, v *scene.View, tm *scene.ThreadManager) []string {
	t.Helper()
	cb := r.NewCommandBuffer()
	if err := v.Draw(cb, tm); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	var out []string
	for _, line := range cb.Flatten() {
		if label, ok := strings.CutPrefix(strings.TrimSpace(line), "draw "); ok {
			out = append(out, label)
		}
	}
	return out
}

// meshTree adds a transform node with two meshes below it to s.
func meshTree(t *testing.T, s *scene.Scene, m mgl32.Mat4) (root, mesh, skinned *scene.Node) {
	t.Helper()
	root = scene.NewTransformNode(m, "meshes")
	mesh = scene.NewNode(meshType, []string{"meshes"}, nil)
	skinned = scene.NewNode(skinnedMeshType, []string{"meshes"}, nil)
	for _, c := range []*scene.Node{mesh, skinned} {
		if _, err := root.AddChild(c); err != nil {
			t.Fatalf("AddChild() error = %v", err)
		}
		c.Release()
	}
	if _, err := s.AddNode(root); err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}
	root.Release()
	return root, mesh, skinned
}

// =============================================================================
// Registration and updates
// =============================================================================

func TestTransformList_RegistersByType(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", meshType)
	s, _ := passScene(t, r, nil, l)

	move := mgl32.Translate3D(1, 2, 3)
	_, mesh, skinned := meshTree(t, s, move)

	// The transform node itself is rejected.
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	for _, n := range []*scene.Node{mesh, skinned} {
		occ := n.Occurrences()[0]
		id := occ.Entry(l)
		e, ok := l.Entry(id)
		if !ok {
			t.Fatalf("Entry(%d) not found for %v", id, n.Type())
		}
		if e.Node != n || e.Occurrence != occ {
			t.Errorf("entry of %v = %+v", n.Type(), e)
		}
		if !e.Transform.ApproxEqual(move) {
			t.Errorf("initial transform of %v = %v, want %v", n.Type(), e.Transform, move)
		}
		if e.UpdateCount != 0 {
			t.Errorf("UpdateCount = %d, want 0", e.UpdateCount)
		}
	}
}

func TestTransformList_AcceptsAnyType(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", nil)
	s, _ := passScene(t, r, nil, l)
	meshTree(t, s, mgl32.Ident4())
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestTransformList_UpdateNode(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", meshType)
	s, _ := passScene(t, r, nil, l)
	root, mesh, _ := meshTree(t, s, mgl32.Ident4())

	moved := mgl32.Translate3D(0, 5, 0)
	if err := root.SetTransform(moved); err != nil {
		t.Fatal(err)
	}
	id := mesh.Occurrences()[0].Entry(l)
	if e, _ := l.Entry(id); !e.Transform.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("transform changed before Update: %v", e.Transform)
	}

	if err := s.Update(0.016); err != nil {
		t.Fatal(err)
	}
	e, ok := l.Entry(id)
	if !ok {
		t.Fatal("entry lost after Update")
	}
	if !e.Transform.ApproxEqual(moved) || e.UpdateCount != 1 {
		t.Errorf("after Update: transform %v count %d", e.Transform, e.UpdateCount)
	}

	// Clean updates leave entries alone.
	if err := s.Update(0.016); err != nil {
		t.Fatal(err)
	}
	if e, _ := l.Entry(id); e.UpdateCount != 1 {
		t.Errorf("UpdateCount = %d after clean update, want 1", e.UpdateCount)
	}
}

func TestTransformList_RemoveIsQueued(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", meshType)
	s, _ := passScene(t, r, nil, l)
	root, mesh, _ := meshTree(t, s, mgl32.Ident4())
	id := mesh.Occurrences()[0].Entry(l)

	if err := root.RemoveChildNode(mesh); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d before flush, want 2", l.Len())
	}
	if _, ok := l.Entry(id); ok {
		t.Error("removed entry still visible")
	}

	if err := s.Update(0); err != nil {
		t.Fatal(err)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d after Update, want 1", l.Len())
	}
}

// =============================================================================
// Commit
// =============================================================================

func TestTransformList_CommitDrawsEveryEntry(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", meshType)
	_, v := passScene(t, r, nil, l)
	meshTree(t, v.Scene(), mgl32.Ident4())

	want := []string{"meshes:Mesh", "meshes:SkinnedMesh"}
	if got := draws(t, r, v, nil); !slices.Equal(got, want) {
		t.Errorf("serial draws = %v, want %v", got, want)
	}

	tm, err := scene.NewThreadManager(r, 2, scene.WithLockOSThread(false))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tm.Destroy() }()
	if got := draws(t, r, v, tm); !slices.Equal(got, want) {
		t.Errorf("parallel draws = %v, want %v", got, want)
	}
}

func TestTransformList_CommitFlushesRemovals(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", meshType, WithLabel(func(e *TransformEntry) string {
		return e.Node.Type().String()
	}))
	s, v := passScene(t, r, nil, l)
	root, mesh, _ := meshTree(t, s, mgl32.Ident4())

	if err := root.RemoveChildNode(mesh); err != nil {
		t.Fatal(err)
	}
	if got := draws(t, r, v, nil); !slices.Equal(got, []string{"SkinnedMesh"}) {
		t.Errorf("draws = %v", got)
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestTransformList_CommitErrors(t *testing.T) {
	r := recorder.New()
	l := NewTransformList("meshes", meshType)
	s, _ := passScene(t, r, nil, l)

	// Nothing to draw needs no drawer.
	if err := l.Commit(nil, nil); err != nil {
		t.Errorf("empty Commit() error = %v", err)
	}

	meshTree(t, s, mgl32.Ident4())
	if err := l.Commit(nil, nil); !errors.Is(err, ErrNoDrawer) {
		t.Errorf("Commit(nil) error = %v, want %v", err, ErrNoDrawer)
	}

	cb := r.NewCommandBuffer()
	if err := cb.End(); err != nil {
		t.Fatal(err)
	}
	if err := l.Commit(nil, cb); !errors.Is(err, recorder.ErrNotRecording) {
		t.Errorf("Commit(closed) error = %v, want %v", err, recorder.ErrNotRecording)
	}
}

// =============================================================================
// Reuse
// =============================================================================

func TestTransformList_HashEqual(t *testing.T) {
	base := NewTransformList("meshes", meshType, WithListID(7))
	tests := []struct {
		name  string
		other *TransformList
		want  bool
	}{
		{"same", NewTransformList("meshes", meshType, WithListID(7)), true},
		{"other id", NewTransformList("meshes", meshType, WithListID(8)), false},
		{"other type", NewTransformList("meshes", skinnedMeshType, WithListID(7)), false},
		{"any type", NewTransformList("meshes", nil, WithListID(7)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Equal(tt.other); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
			if tt.want && base.Hash(42) != tt.other.Hash(42) {
				t.Error("equal lists hash differently")
			}
		})
	}
	if base.Hash(1) == base.Hash(2) {
		t.Error("Hash ignores the seed")
	}
	if base.Equal(NewFuncList("meshes", nil)) {
		t.Error("Equal(FuncList) = true")
	}
}

func TestTransformList_ReusedAcrossScenes(t *testing.T) {
	r := recorder.New()
	old := NewTransformList("meshes", meshType, WithListID(1))
	prev, _ := passScene(t, r, nil, old)
	_, mesh, _ := meshTree(t, prev, mgl32.Ident4())
	id := mesh.Occurrences()[0].Entry(old)
	if e, _ := old.Entry(id); e != nil {
		e.UpdateCount = 3
	}

	fresh := NewTransformList("meshes", meshType, WithListID(1))
	next, v := passScene(t, r, []scene.Option{scene.WithPreviousScene(prev)}, fresh)

	if got := next.FindItemList("meshes"); got != old {
		t.Fatalf("FindItemList() = %p, want the previous list %p", got, old)
	}
	if !fresh.Destroyed() || old.Destroyed() {
		t.Errorf("destroyed: fresh=%v old=%v, want true, false", fresh.Destroyed(), old.Destroyed())
	}
	if old.Len() != 2 {
		t.Errorf("Len() = %d, want 2", old.Len())
	}
	if e, ok := old.Entry(mesh.Occurrences()[0].Entry(old)); !ok || e.UpdateCount != 3 {
		t.Errorf("entry after reuse = %+v, %v", e, ok)
	}
	if got := draws(t, r, v, nil); len(got) != 2 {
		t.Errorf("draws = %v", got)
	}
}

func TestTransformList_ReplacedAcrossScenes(t *testing.T) {
	r := recorder.New()
	old := NewTransformList("meshes", meshType, WithListID(1))
	prev, _ := passScene(t, r, nil, old)
	meshTree(t, prev, mgl32.Ident4())

	fresh := NewTransformList("meshes", meshType, WithListID(2))
	next, _ := passScene(t, r, []scene.Option{scene.WithPreviousScene(prev)}, fresh)

	if got := next.FindItemList("meshes"); got != fresh {
		t.Fatalf("FindItemList() = %p, want the new list %p", got, fresh)
	}
	if !old.Destroyed() || fresh.Destroyed() {
		t.Errorf("destroyed: old=%v fresh=%v, want true, false", old.Destroyed(), fresh.Destroyed())
	}
	// The moved tree registers with the new list.
	if fresh.Len() != 2 {
		t.Errorf("Len() = %d, want 2", fresh.Len())
	}
	if _, err := old.AddNode(scene.NewNode(meshType, nil, nil), nil); !errors.Is(err, scene.ErrDestroyed) {
		t.Errorf("AddNode() on destroyed list error = %v", err)
	}
}
