package scene

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

// NodeType identifies the kind of a node. Types form a single-inheritance
// chain through Parent.
type NodeType struct {
	Name   string
	Parent *NodeType
}

// Is reports whether t is other or derives from it.
func (t *NodeType) Is(other *NodeType) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur == other {
			return true
		}
	}
	return false
}

// String returns the type name.
func (t *NodeType) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// TransformNodeType is the type of nodes created by NewTransformNode.
var TransformNodeType = &NodeType{Name: "TransformNode"}

// rootNodeType is the type of a scene's internal root node.
var rootNodeType = &NodeType{Name: "SceneRoot"}

// ChildID identifies one attachment of a child under a parent. The same
// child may be attached to a parent several times.
type ChildID uint32

type childRef struct {
	node *Node
	id   ChildID
}

// Node is a reference-counted participant of the scene graph.
//
// A node may be placed under any number of parents; each placement inside a
// scene is a TreeNode occurrence. The node keeps non-owning references to its
// occurrences, while each occurrence holds a reference on the node.
//
// Nodes are not safe for concurrent mutation.
type Node struct {
	typ       *NodeType
	itemLists []string

	children    []childRef
	nextChildID ChildID

	occurrences []*TreeNode

	refs atomic.Int32

	local        mgl32.Mat4
	hasTransform bool

	userData  any
	onDestroy func(*Node)
}

// NewNode creates a node of type t that joins the named item lists. The
// caller owns one reference. onDestroy, if non-nil, runs when the last
// reference is released.
func NewNode(t *NodeType, itemLists []string, onDestroy func(*Node)) *Node {
	n := &Node{
		typ:       t,
		itemLists: slices.Clone(itemLists),
		local:     mgl32.Ident4(),
		onDestroy: onDestroy,
	}
	n.refs.Store(1)
	return n
}

// NewTransformNode creates a node that applies m to its subtree.
func NewTransformNode(m mgl32.Mat4, itemLists ...string) *Node {
	n := NewNode(TransformNodeType, itemLists, nil)
	n.local = m
	n.hasTransform = true
	return n
}

// Type returns the node type.
func (n *Node) Type() *NodeType { return n.typ }

// IsOfType reports whether the node's type is t or derives from t.
func (n *Node) IsOfType(t *NodeType) bool { return n.typ.Is(t) }

// ItemLists returns the names of the item lists the node joins.
func (n *Node) ItemLists() []string { return n.itemLists }

// UserData returns the value set with SetUserData.
func (n *Node) UserData() any { return n.userData }

// SetUserData attaches an arbitrary value to the node.
func (n *Node) SetUserData(v any) { n.userData = v }

// AddRef adds a reference and returns n.
func (n *Node) AddRef() *Node {
	n.refs.Add(1)
	return n
}

// Release drops a reference. Releasing the last reference releases the
// node's children and runs the destroy callback.
func (n *Node) Release() {
	switch refs := n.refs.Add(-1); {
	case refs > 0:
		return
	case refs < 0:
		panic("scene: Node released too many times")
	}

	children := n.children
	n.children = nil
	for _, c := range children {
		c.node.Release()
	}
	if n.onDestroy != nil {
		n.onDestroy(n)
	}
}

// RefCount returns the current reference count.
func (n *Node) RefCount() int { return int(n.refs.Load()) }

// HasTransform reports whether the node applies a local transform.
func (n *Node) HasTransform() bool { return n.hasTransform }

// Transform returns the local transform. Nodes without a transform return
// the identity.
func (n *Node) Transform() mgl32.Mat4 { return n.local }

// SetTransform replaces the local transform of a transform node and marks
// every occurrence dirty. World transforms change on the next Scene.Update.
func (n *Node) SetTransform(m mgl32.Mat4) error {
	if !n.hasTransform {
		return fmt.Errorf("set transform on %v node: %w", n.typ, ErrInvalidArgument)
	}
	n.local = m
	for _, occ := range n.occurrences {
		occ.MarkDirty()
	}
	return nil
}

// ChildCount returns the number of child attachments.
func (n *Node) ChildCount() int { return len(n.children) }

// Child returns the child at attachment index i.
func (n *Node) Child(i int) *Node { return n.children[i].node }

// ChildID returns the attachment id at index i.
func (n *Node) ChildID(i int) ChildID { return n.children[i].id }

// Occurrences returns the node's current occurrences across all scenes.
// The slice is a copy.
func (n *Node) Occurrences() []*TreeNode { return slices.Clone(n.occurrences) }

// hasDescendant reports whether target is reachable through n's children.
func (n *Node) hasDescendant(target *Node) bool {
	for _, c := range n.children {
		if c.node == target || c.node.hasDescendant(target) {
			return true
		}
	}
	return false
}

// AddChild attaches child under n and creates occurrences of child's subtree
// under every occurrence of n. The parent takes a reference on child.
//
// If an item list fails to register a new occurrence, every occurrence
// created for this attachment is removed again, the attachment is dropped
// and the error is returned.
func (n *Node) AddChild(child *Node) (ChildID, error) {
	if child == nil {
		return 0, fmt.Errorf("add nil child: %w", ErrInvalidArgument)
	}
	if child == n || child.hasDescendant(n) {
		return 0, ErrCycle
	}

	id := n.nextChildID
	n.nextChildID++
	n.children = append(n.children, childRef{node: child.AddRef(), id: id})

	for _, parent := range slices.Clone(n.occurrences) {
		if err := buildSubtree(parent, child, id); err != nil {
			removeSubtree(n, child, id, true)
			n.dropChild(len(n.children) - 1)
			return 0, err
		}
	}
	return id, nil
}

// RemoveChildID detaches the attachment with the given id.
func (n *Node) RemoveChildID(id ChildID) error {
	for i, c := range n.children {
		if c.id == id {
			return n.RemoveChildIndex(i)
		}
	}
	return fmt.Errorf("child id %d: %w", id, ErrNotFound)
}

// RemoveChildIndex detaches the attachment at index i.
func (n *Node) RemoveChildIndex(i int) error {
	if i < 0 || i >= len(n.children) {
		return fmt.Errorf("child index %d of %d: %w", i, len(n.children), ErrNotFound)
	}
	c := n.children[i]
	removeSubtree(n, c.node, c.id, true)
	n.dropChild(i)
	return nil
}

// RemoveChildNode detaches every attachment of child.
func (n *Node) RemoveChildNode(child *Node) error {
	found := false
	for i := len(n.children) - 1; i >= 0; i-- {
		if n.children[i].node == child {
			found = true
			_ = n.RemoveChildIndex(i)
		}
	}
	if !found {
		return fmt.Errorf("child %v: %w", child.typ, ErrNotFound)
	}
	return nil
}

// Clear detaches every child.
func (n *Node) Clear() {
	for i := len(n.children) - 1; i >= 0; i-- {
		_ = n.RemoveChildIndex(i)
	}
}

// dropChild removes the attachment at i and releases the child.
func (n *Node) dropChild(i int) {
	c := n.children[i]
	n.children = slices.Delete(n.children, i, i+1)
	c.node.Release()
}

// ReparentChild moves the first attachment of child from n to newParent.
//
// When every scene contains as many occurrences of newParent as there are
// moving occurrences of child, the occurrences are moved in place: their
// item list registrations are kept, lists implementing Reparenter are
// notified and the occurrences are marked dirty. Otherwise the child is
// attached to newParent and detached from n, which re-registers the
// subtree.
func (n *Node) ReparentChild(child, newParent *Node) error {
	if child == nil || newParent == nil {
		return fmt.Errorf("reparent nil node: %w", ErrInvalidArgument)
	}
	idx := slices.IndexFunc(n.children, func(c childRef) bool { return c.node == child })
	if idx < 0 {
		return fmt.Errorf("reparent child %v: %w", child.typ, ErrNotFound)
	}
	if newParent == n {
		return nil
	}
	if child == newParent || child.hasDescendant(newParent) {
		return ErrCycle
	}
	oldID := n.children[idx].id

	moving := make(map[*Scene][]*TreeNode)
	for _, occ := range child.occurrences {
		if occ.parent != nil && occ.parent.node == n && occ.attachID == oldID {
			moving[occ.scene] = append(moving[occ.scene], occ)
		}
	}
	targets := make(map[*Scene][]*TreeNode)
	for _, occ := range newParent.occurrences {
		targets[occ.scene] = append(targets[occ.scene], occ)
	}

	if !sameShape(moving, targets) {
		if _, err := newParent.AddChild(child); err != nil {
			return err
		}
		return n.RemoveChildIndex(idx)
	}

	// Transfer the reference held by n to newParent.
	n.children = slices.Delete(n.children, idx, idx+1)
	newID := newParent.nextChildID
	newParent.nextChildID++
	newParent.children = append(newParent.children, childRef{node: child, id: newID})

	for s, occs := range moving {
		for i, occ := range occs {
			oldParent := occ.parent
			oldParent.removeChildOccurrence(occ)
			target := targets[s][i]
			target.children = append(target.children, occ)
			occ.parent = target
			occ.attachID = newID
			occ.notifyReparent(oldParent)
			occ.MarkDirty()
		}
	}
	return nil
}

func sameShape(moving, targets map[*Scene][]*TreeNode) bool {
	if len(moving) != len(targets) {
		return false
	}
	for s, occs := range moving {
		if len(targets[s]) != len(occs) {
			return false
		}
	}
	return true
}
