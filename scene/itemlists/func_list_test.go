package itemlists

import (
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/render/recorder"
	"github.com/gogpu/scenegraph/scene"
)

func TestFuncList_CommitReceivesOccurrences(t *testing.T) {
	r := recorder.New()
	var got []*scene.TreeNode
	var gotView *scene.View
	l := NewFuncList("meshes", func(view *scene.View, cb render.CommandBuffer, occs []*scene.TreeNode) error {
		gotView = view
		got = slices.Clone(occs)
		d := cb.(Drawer)
		return d.Draw("batch")
	}, WithAccept(func(n *scene.Node) bool { return n.IsOfType(meshType) }))

	s, v := passScene(t, r, nil, l)
	_, mesh, skinned := meshTree(t, s, mgl32.Ident4())
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}

	if d := draws(t, r, v, nil); !slices.Equal(d, []string{"batch"}) {
		t.Errorf("draws = %v", d)
	}
	want := []*scene.TreeNode{mesh.Occurrences()[0], skinned.Occurrences()[0]}
	if !slices.Equal(got, want) {
		t.Errorf("occurrences = %v, want %v", got, want)
	}
	if gotView != v {
		t.Error("commit got a different view")
	}

	if err := s.RemoveNodeIndex(0); err != nil {
		t.Fatal(err)
	}
	draws(t, r, v, nil)
	if len(got) != 0 || l.Len() != 0 {
		t.Errorf("after removal: occurrences %d, Len() %d", len(got), l.Len())
	}
}

func TestFuncList_Options(t *testing.T) {
	destroyed := 0
	l := NewFuncList("prep", nil, WithoutCommandBuffer(), WithDestroy(func() { destroyed++ }))
	if l.NeedsCommandBuffer() {
		t.Error("NeedsCommandBuffer() = true")
	}
	if err := l.Commit(nil, nil); err != nil {
		t.Errorf("nil commit error = %v", err)
	}
	l.Destroy()
	if destroyed != 1 {
		t.Errorf("destroy ran %d times, want 1", destroyed)
	}

	if !NewFuncList("draw", nil).NeedsCommandBuffer() {
		t.Error("default NeedsCommandBuffer() = false")
	}
}

func TestFuncList_CommitError(t *testing.T) {
	r := recorder.New()
	errCommit := errors.New("commit failed")
	l := NewFuncList("broken", func(*scene.View, render.CommandBuffer, []*scene.TreeNode) error {
		return errCommit
	})
	_, v := passScene(t, r, nil, l)

	// Failed commits are logged; the draw goes on.
	if d := draws(t, r, v, nil); len(d) != 0 {
		t.Errorf("draws = %v", d)
	}
	if err := l.Commit(v, nil); !errors.Is(err, errCommit) {
		t.Errorf("Commit() error = %v, want %v", err, errCommit)
	}
}
