package scene

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// EntryID identifies a node's registration inside one item list.
type EntryID uint64

// NoEntry marks an item list that rejected an occurrence, or an item list
// name that does not exist in the scene.
const NoEntry EntryID = math.MaxUint64

// ItemEntry is one registration of an occurrence. List is nil when no item
// list with the requested name exists.
type ItemEntry struct {
	List ItemList
	ID   EntryID
}

// TreeNode is one occurrence of a Node inside a scene.
//
// Occurrences are created and destroyed by the scene graph; each is owned by
// its parent occurrence (or the scene root) and destroyed with it.
type TreeNode struct {
	scene    *Scene
	node     *Node
	parent   *TreeNode
	children []*TreeNode
	attachID ChildID

	// entries parallels node.itemLists.
	entries []ItemEntry

	transform mgl32.Mat4
	dirty     bool

	// slot is the occurrence's index in the scene arena, -1 for the root.
	slot int
}

// Node returns the node this occurrence represents.
func (t *TreeNode) Node() *Node { return t.node }

// Parent returns the parent occurrence, or nil for the scene root.
func (t *TreeNode) Parent() *TreeNode { return t.parent }

// Children returns the child occurrences. The slice must not be modified.
func (t *TreeNode) Children() []*TreeNode { return t.children }

// Scene returns the scene the occurrence belongs to.
func (t *TreeNode) Scene() *Scene { return t.scene }

// AttachmentID returns the id of the parent attachment that created the
// occurrence.
func (t *TreeNode) AttachmentID() ChildID { return t.attachID }

// Entries returns the item list registrations, one per item list name of
// the node. The slice must not be modified.
func (t *TreeNode) Entries() []ItemEntry { return t.entries }

// Entry returns the registration with list, or NoEntry.
func (t *TreeNode) Entry(list ItemList) EntryID {
	for _, e := range t.entries {
		if e.List == list {
			return e.ID
		}
	}
	return NoEntry
}

// Transform returns the world transform as of the last update.
func (t *TreeNode) Transform() mgl32.Mat4 { return t.transform }

// Dirty reports whether the transform is waiting for the next update.
func (t *TreeNode) Dirty() bool { return t.dirty }

// MarkDirty schedules the occurrence and its subtree for a transform update.
// Marking an occurrence several times before an update has the effect of
// marking it once.
func (t *TreeNode) MarkDirty() {
	if t.dirty {
		return
	}
	t.dirty = true
	if t.scene != nil && t.slot >= 0 {
		t.scene.dirty.Mark(t.slot)
	}
}

// Depth returns the number of ancestors below the scene root.
func (t *TreeNode) Depth() int {
	d := 0
	for p := t.parent; p != nil && p.parent != nil; p = p.parent {
		d++
	}
	return d
}

func (t *TreeNode) computeTransform() {
	parent := mgl32.Ident4()
	if t.parent != nil {
		parent = t.parent.transform
	}
	if t.node.hasTransform {
		t.transform = parent.Mul4(t.node.local)
	} else {
		t.transform = parent
	}
}

func (t *TreeNode) removeChildOccurrence(child *TreeNode) {
	if i := slices.Index(t.children, child); i >= 0 {
		t.children = slices.Delete(t.children, i, i+1)
	}
}

// register adds the occurrence to every item list its node names.
func (t *TreeNode) register() error {
	t.entries = make([]ItemEntry, 0, len(t.node.itemLists))
	for _, name := range t.node.itemLists {
		if err := t.registerWith(name, t.scene.itemLists[name]); err != nil {
			return err
		}
	}
	return nil
}

func (t *TreeNode) registerWith(name string, list ItemList) error {
	if list == nil {
		t.entries = append(t.entries, ItemEntry{ID: NoEntry})
		return nil
	}
	id, err := list.AddNode(t.node, t)
	if err != nil {
		return fmt.Errorf("register with item list %q: %w", name, err)
	}
	t.entries = append(t.entries, ItemEntry{List: list, ID: id})
	return nil
}

func (t *TreeNode) unregister() {
	for _, e := range t.entries {
		if e.List != nil && e.ID != NoEntry {
			e.List.RemoveNode(t, e.ID)
		}
	}
	t.entries = nil
}

func (t *TreeNode) notifyReparent(oldParent *TreeNode) {
	for _, e := range t.entries {
		if e.ID == NoEntry {
			continue
		}
		if r, ok := e.List.(Reparenter); ok {
			r.ReparentNode(t, e.ID, oldParent)
		}
	}
}

// buildSubtree creates an occurrence of node under parent and recurses into
// the node's existing children. A created occurrence is linked into the
// tree before it registers, so a failed build can be undone by
// removeSubtree.
func buildSubtree(parent *TreeNode, node *Node, id ChildID) error {
	occ := &TreeNode{
		scene:    parent.scene,
		node:     node.AddRef(),
		parent:   parent,
		attachID: id,
		slot:     -1,
	}
	occ.computeTransform()
	node.occurrences = append(node.occurrences, occ)
	parent.children = append(parent.children, occ)
	occ.slot = occ.scene.occs.Insert(occ)
	if parent.dirty {
		// The parent transform is stale; recompute with it.
		occ.MarkDirty()
	}

	if err := occ.register(); err != nil {
		return err
	}
	for _, c := range node.children {
		if err := buildSubtree(occ, c.node, c.id); err != nil {
			return err
		}
	}
	return nil
}

// removeSubtree destroys every occurrence of child whose parent occurrence
// belongs to parent, optionally only those created by attachment id.
func removeSubtree(parent, child *Node, id ChildID, filterID bool) {
	for _, occ := range slices.Clone(child.occurrences) {
		if occ.parent == nil || occ.parent.node != parent {
			continue
		}
		if filterID && occ.attachID != id {
			continue
		}
		occ.parent.removeChildOccurrence(occ)
		destroyOccurrence(occ)
	}
}

// destroyOccurrence tears down occ and its subtree in post order.
func destroyOccurrence(occ *TreeNode) {
	for _, c := range occ.children {
		destroyOccurrence(c)
	}
	occ.children = nil

	occ.unregister()

	n := occ.node
	if i := slices.Index(n.occurrences, occ); i >= 0 {
		n.occurrences = slices.Delete(n.occurrences, i, i+1)
	}
	if s := occ.scene; s != nil && occ.slot >= 0 {
		s.dirty.Unmark(occ.slot)
		s.occs.Remove(occ.slot)
	}
	occ.slot = -1
	occ.parent = nil
	occ.scene = nil
	occ.node = nil
	n.Release()
}

// updateSubtree recomputes the subtree of the highest dirty ancestor of t.
// Occurrences already updated through an ancestor are clean and skipped.
func (t *TreeNode) updateSubtree() {
	if !t.dirty {
		return
	}
	top := t
	for p := t.parent; p != nil; p = p.parent {
		if p.dirty {
			top = p
		}
	}
	top.updateRec()
}

func (t *TreeNode) updateRec() {
	t.computeTransform()
	t.dirty = false
	for _, e := range t.entries {
		if e.ID == NoEntry {
			continue
		}
		if u, ok := e.List.(NodeUpdater); ok {
			u.UpdateNode(t, e.ID)
		}
	}
	for _, c := range t.children {
		c.updateRec()
	}
}
