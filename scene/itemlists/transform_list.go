package itemlists

import (
	"errors"
	"fmt"
	"hash/fnv"
	"iter"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/scene"
)

// ErrNoDrawer is returned by TransformList.Commit when the command buffer
// cannot record labelled draws.
var ErrNoDrawer = errors.New("itemlists: command buffer does not accept draws")

// Drawer is implemented by command buffers that record labelled draws.
type Drawer interface {
	Draw(label string) error
}

// TransformEntry is the state a TransformList keeps per occurrence.
type TransformEntry struct {
	Node       *scene.Node
	Occurrence *scene.TreeNode

	// Transform is the world transform as of the last update.
	Transform mgl32.Mat4

	// UpdateCount counts transform updates since registration.
	UpdateCount int
}

// TransformList tracks the world transforms of nodes of one type and
// records one labelled draw per entry.
//
// Removals are queued and applied before the next transform update or
// commit. Two lists with the same name, node type and id are
// interchangeable, so a rebuilt scene keeps the old list and its entries.
type TransformList struct {
	name     string
	id       uint64
	nodeType *scene.NodeType
	label    func(*TransformEntry) string

	entries   Entries[TransformEntry]
	destroyed bool
}

var (
	_ scene.ItemList            = (*TransformList)(nil)
	_ scene.NodeUpdater         = (*TransformList)(nil)
	_ scene.PreTransformUpdater = (*TransformList)(nil)
	_ scene.Reusable            = (*TransformList)(nil)
)

// TransformOption configures a TransformList.
type TransformOption func(*TransformList)

// WithListID sets the identity used to match the list against the list of
// a previous scene.
func WithListID(id uint64) TransformOption {
	return func(l *TransformList) { l.id = id }
}

// WithLabel sets the function producing the draw label of an entry. The
// default label is the list name followed by the node type.
func WithLabel(label func(*TransformEntry) string) TransformOption {
	return func(l *TransformList) { l.label = label }
}

// NewTransformList creates a list that accepts nodes of nodeType, or of
// any type when nodeType is nil.
func NewTransformList(name string, nodeType *scene.NodeType, opts ...TransformOption) *TransformList {
	l := &TransformList{name: name, nodeType: nodeType}
	for _, opt := range opts {
		opt(l)
	}
	if l.label == nil {
		l.label = func(e *TransformEntry) string {
			return fmt.Sprintf("%s:%v", name, e.Node.Type())
		}
	}
	return l
}

func (l *TransformList) Name() string { return l.name }

// ID returns the reuse identity.
func (l *TransformList) ID() uint64 { return l.id }

func (l *TransformList) AddNode(node *scene.Node, occ *scene.TreeNode) (scene.EntryID, error) {
	if l.destroyed {
		return scene.NoEntry, scene.ErrDestroyed
	}
	if l.nodeType != nil && !node.IsOfType(l.nodeType) {
		return scene.NoEntry, nil
	}
	return l.entries.Add(TransformEntry{
		Node:       node,
		Occurrence: occ,
		Transform:  occ.Transform(),
	}), nil
}

func (l *TransformList) RemoveNode(_ *scene.TreeNode, id scene.EntryID) {
	l.entries.QueueRemove(id)
}

func (l *TransformList) UpdateNode(occ *scene.TreeNode, id scene.EntryID) {
	if e, ok := l.entries.Find(id); ok {
		e.Transform = occ.Transform()
		e.UpdateCount++
	}
}

func (l *TransformList) PreTransformUpdate(*scene.Scene, float64) {
	l.entries.Flush()
}

func (l *TransformList) NeedsCommandBuffer() bool { return true }

func (l *TransformList) Commit(_ *scene.View, cb render.CommandBuffer) error {
	l.entries.Flush()
	if l.entries.Len() == 0 {
		return nil
	}
	d, ok := cb.(Drawer)
	if !ok {
		return fmt.Errorf("%s: %T: %w", l.name, cb, ErrNoDrawer)
	}
	for _, e := range l.entries.All() {
		if err := d.Draw(l.label(e)); err != nil {
			return fmt.Errorf("%s: %w", l.name, err)
		}
	}
	return nil
}

// Entry returns the entry with the given id.
func (l *TransformList) Entry(id scene.EntryID) (*TransformEntry, bool) {
	return l.entries.Find(id)
}

// Len returns the number of entries, including queued removals.
func (l *TransformList) Len() int { return l.entries.Len() }

// Entries iterates over the live entries in registration order.
func (l *TransformList) Entries() iter.Seq2[scene.EntryID, *TransformEntry] {
	return l.entries.All()
}

func (l *TransformList) Hash(seed uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte((seed ^ l.id) >> (8 * i))
	}
	_, _ = h.Write(buf[:])
	_, _ = h.Write([]byte(l.nodeType.String()))
	return h.Sum64()
}

func (l *TransformList) Equal(other scene.ItemList) bool {
	o, ok := other.(*TransformList)
	return ok && o.id == l.id && o.nodeType == l.nodeType
}

// Destroyed reports whether the owning scene destroyed the list.
func (l *TransformList) Destroyed() bool { return l.destroyed }

func (l *TransformList) Destroy() {
	l.destroyed = true
	l.entries.Reset()
}
