package scene

import (
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/render/recorder"
)

// =============================================================================
// Mock item list
// =============================================================================

var mockNodeType = &NodeType{Name: "MockNode"}

var errMockAdd = errors.New("mock: add failed")
var errMockCommit = errors.New("mock: commit failed")

type mockEntry struct {
	id          EntryID
	node        *Node
	occ         *TreeNode
	updateCount int
}

// mockList records registrations in insertion order and draws its name on
// commit when it needs a command buffer.
type mockList struct {
	name     string
	id       int
	nodeType *NodeType
	needsCB  bool

	entries []*mockEntry
	nextID  EntryID

	failAdd    bool
	failCommit bool

	commits      atomic.Int32
	destroyed    int
	reparents    int
	preUpdates   int
	postUpdates  int
	preRenderRan int
}

func newMockList(name string) *mockList {
	return &mockList{name: name, nodeType: mockNodeType, needsCB: true}
}

func (l *mockList) Name() string { return l.name }

func (l *mockList) AddNode(node *Node, occ *TreeNode) (EntryID, error) {
	if l.failAdd {
		return NoEntry, errMockAdd
	}
	if l.nodeType != nil && !node.IsOfType(l.nodeType) {
		return NoEntry, nil
	}
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, &mockEntry{id: id, node: node, occ: occ})
	return id, nil
}

func (l *mockList) RemoveNode(_ *TreeNode, id EntryID) {
	l.entries = slices.DeleteFunc(l.entries, func(e *mockEntry) bool { return e.id == id })
}

func (l *mockList) UpdateNode(_ *TreeNode, id EntryID) {
	for _, e := range l.entries {
		if e.id == id {
			e.updateCount++
			return
		}
	}
}

func (l *mockList) ReparentNode(*TreeNode, EntryID, *TreeNode) { l.reparents++ }

func (l *mockList) PreTransformUpdate(*Scene, float64) { l.preUpdates++ }

func (l *mockList) Update(*Scene, float64) { l.postUpdates++ }

func (l *mockList) PreRenderPass(*View, render.CommandBuffer, *RenderPassStage) error {
	l.preRenderRan++
	return nil
}

func (l *mockList) NeedsCommandBuffer() bool { return l.needsCB }

func (l *mockList) Commit(_ *View, cb render.CommandBuffer) error {
	l.commits.Add(1)
	if l.failCommit {
		return errMockCommit
	}
	if rc, ok := cb.(*recorder.CommandBuffer); ok && l.needsCB {
		return rc.Draw(l.name)
	}
	return nil
}

func (l *mockList) Destroy() { l.destroyed++ }

func (l *mockList) Hash(seed uint64) uint64 { return seed ^ uint64(l.id) }

func (l *mockList) Equal(other ItemList) bool {
	o, ok := other.(*mockList)
	return ok && o.id == l.id
}

// otherList shares names with mockList but is a different type.
type otherList struct{ mockList }

// =============================================================================
// Fixtures
// =============================================================================

func newMockNode() *Node {
	return NewNode(mockNodeType, []string{"TestItems"}, nil)
}

func matricesEqual(a, b mgl32.Mat4) bool {
	return a.ApproxEqualThreshold(b, 1e-4)
}

// newItemScene creates a scene with a single standalone item list.
func newItemScene(t *testing.T, l ItemList) *Scene {
	t.Helper()
	s, err := New(recorder.New(), nil, []PipelineStage{ItemStage(l)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Destroy() })
	return s
}

var colorDepthAttachments = []render.Attachment{
	{Format: gputypes.TextureFormatRGBA8Unorm, Samples: 1, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpStore},
	{Format: gputypes.TextureFormatDepth24PlusStencil8, Samples: 1, LoadOp: gputypes.LoadOpClear, StoreOp: gputypes.StoreOpDiscard},
}

// drawFixture is a scene with shared items, a standalone stage, a render
// pass with an empty middle subpass and a render pass whose framebuffer is
// skipped.
type drawFixture struct {
	r      *recorder.Renderer
	scene  *Scene
	view   *View
	lists  map[string]*mockList
	passes []*recorder.RenderPass
}

// itemCount is the number of item lists of the fixture that record.
func (f *drawFixture) itemCount() int { return len(f.lists) }

func newDrawFixture(t *testing.T) *drawFixture {
	t.Helper()
	f := &drawFixture{r: recorder.New(), lists: make(map[string]*mockList)}
	list := func(name string) *mockList {
		l := newMockList(name)
		f.lists[name] = l
		return l
	}

	prep := list("prep")
	prep.needsCB = false
	shared := [][]ItemList{
		{list("shadow0"), prep, list("shadow1")},
		{list("lights")},
	}

	main := f.r.NewRenderPass("main", colorDepthAttachments, 3)
	post := f.r.NewRenderPass("post", colorDepthAttachments[:1], 1)
	f.passes = []*recorder.RenderPass{main, post}
	clears := []render.ClearValue{
		{Color: gputypes.Color{R: 1, A: 1}},
		{Depth: 1},
	}

	pipeline := []PipelineStage{
		ItemStage(list("compute")),
		PassStage(main, "primary", clears,
			[]ItemList{list("opaque"), list("cutout"), list("sky")},
			nil,
			[]ItemList{list("transparent")},
		),
		PassStage(post, "layered", nil, []ItemList{list("blur")}),
	}

	s, err := New(f.r, shared, pipeline)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.scene = s
	t.Cleanup(func() { _ = s.Destroy() })

	surfaces := []SurfaceInfo{
		{Name: "color", Type: render.SurfaceTypeOffscreen,
			Descriptor: render.SurfaceDescriptor{Format: gputypes.TextureFormatRGBA8Unorm, Samples: render.SamplesDefault}},
		{Name: "depth", Type: render.SurfaceTypeRenderbuffer,
			Descriptor: render.SurfaceDescriptor{Format: gputypes.TextureFormatDepth24PlusStencil8, Samples: render.SamplesDefault}},
		{Name: "array", Type: render.SurfaceTypeOffscreen,
			Descriptor: render.SurfaceDescriptor{Format: gputypes.TextureFormatRGBA8Unorm, Width: 16, Height: 16, Depth: 2}},
	}
	framebuffers := []FramebufferInfo{
		{Name: "primary", Surfaces: []FramebufferSurfaceRef{
			{Name: "color", Type: SurfaceTypeAny},
			{Name: "depth", Type: render.SurfaceTypeRenderbuffer},
		}},
		{Name: "layered", Layers: 2, Surfaces: []FramebufferSurfaceRef{
			{Name: "array", Type: SurfaceTypeAny, Layer: 1},
		}},
	}
	v, err := NewView(s, surfaces, framebuffers, 64, 32)
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	f.view = v
	t.Cleanup(func() { _ = v.Destroy() })
	return f
}

// recordingLists are the lists of the fixture that end up in the trace.
var recordingLists = []string{"shadow0", "shadow1", "lights", "compute", "opaque", "cutout", "sky", "transparent"}
