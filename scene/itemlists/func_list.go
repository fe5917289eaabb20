package itemlists

import (
	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/scene"
)

// CommitFunc records the commands of a FuncList. occs holds the accepted
// occurrences in registration order.
type CommitFunc func(view *scene.View, cb render.CommandBuffer, occs []*scene.TreeNode) error

// FuncList is an item list built from closures.
type FuncList struct {
	name    string
	commit  CommitFunc
	accept  func(*scene.Node) bool
	destroy func()
	needsCB bool

	occs Entries[*scene.TreeNode]
	buf  []*scene.TreeNode
}

var _ scene.ItemList = (*FuncList)(nil)

// FuncOption configures a FuncList.
type FuncOption func(*FuncList)

// WithAccept restricts the list to nodes for which accept returns true.
func WithAccept(accept func(*scene.Node) bool) FuncOption {
	return func(l *FuncList) { l.accept = accept }
}

// WithoutCommandBuffer marks the list as one that only prepares data.
// Outside render passes it is committed with a nil command buffer.
func WithoutCommandBuffer() FuncOption {
	return func(l *FuncList) { l.needsCB = false }
}

// WithDestroy sets a function called when the owning scene destroys the
// list.
func WithDestroy(destroy func()) FuncOption {
	return func(l *FuncList) { l.destroy = destroy }
}

// NewFuncList creates a list named name that calls commit on every draw.
// A nil commit records nothing.
func NewFuncList(name string, commit CommitFunc, opts ...FuncOption) *FuncList {
	l := &FuncList{name: name, commit: commit, needsCB: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *FuncList) Name() string { return l.name }

func (l *FuncList) AddNode(node *scene.Node, occ *scene.TreeNode) (scene.EntryID, error) {
	if l.accept != nil && !l.accept(node) {
		return scene.NoEntry, nil
	}
	return l.occs.Add(occ), nil
}

func (l *FuncList) RemoveNode(_ *scene.TreeNode, id scene.EntryID) {
	l.occs.Remove(id)
}

func (l *FuncList) NeedsCommandBuffer() bool { return l.needsCB }

func (l *FuncList) Commit(view *scene.View, cb render.CommandBuffer) error {
	if l.commit == nil {
		return nil
	}
	l.buf = l.buf[:0]
	for _, occ := range l.occs.All() {
		l.buf = append(l.buf, *occ)
	}
	return l.commit(view, cb, l.buf)
}

// Len returns the number of registered occurrences.
func (l *FuncList) Len() int { return l.occs.Len() }

func (l *FuncList) Destroy() {
	l.occs.Reset()
	l.buf = nil
	if l.destroy != nil {
		l.destroy()
	}
}
