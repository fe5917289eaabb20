package scene

import "github.com/gogpu/scenegraph/render"

// ItemList collects the occurrences of nodes that name it and records draw
// commands for them.
//
// Commit may run on any draw thread; different item lists are committed
// concurrently, but a single list is committed by one thread at a time. All
// other methods run on the thread that mutates the scene.
type ItemList interface {
	// Name returns the unique name nodes use to join the list.
	Name() string

	// AddNode registers an occurrence of node. Returning NoEntry with a
	// nil error rejects the node; a non-nil error aborts the attachment
	// that created the occurrence.
	AddNode(node *Node, occ *TreeNode) (EntryID, error)

	// RemoveNode drops the registration id of occ.
	RemoveNode(occ *TreeNode, id EntryID)

	// NeedsCommandBuffer reports whether Commit records commands. Lists
	// that only prepare data are committed with a nil command buffer when
	// outside a render pass.
	NeedsCommandBuffer() bool

	// Commit records the list's commands for view into cb.
	Commit(view *View, cb render.CommandBuffer) error

	// Destroy releases the list. It is called once by the owning scene.
	Destroy()
}

// NodeUpdater is implemented by item lists that track occurrence
// transforms. UpdateNode is called once per update for every recomputed
// occurrence registered with the list.
type NodeUpdater interface {
	UpdateNode(occ *TreeNode, id EntryID)
}

// Reparenter is implemented by item lists that want to know when an
// occurrence moved to a different parent without being re-registered.
type Reparenter interface {
	ReparentNode(occ *TreeNode, id EntryID, oldParent *TreeNode)
}

// PreTransformUpdater is implemented by item lists that run work before
// transforms are recomputed by Scene.Update.
type PreTransformUpdater interface {
	PreTransformUpdate(s *Scene, dt float64)
}

// Updater is implemented by item lists that run work after transforms are
// recomputed by Scene.Update.
type Updater interface {
	Update(s *Scene, dt float64)
}

// PreRenderPasser is implemented by draw lists that record commands before
// their render pass begins. It is only used when a view draws without a
// thread manager.
type PreRenderPasser interface {
	PreRenderPass(view *View, cb render.CommandBuffer, stage *RenderPassStage) error
}

// Reusable is implemented by item lists whose state can survive the
// replacement of their scene. A new list is replaced by an old one with the
// same name and dynamic type when both hash to the same value and Equal
// reports true.
type Reusable interface {
	Hash(seed uint64) uint64
	Equal(other ItemList) bool
}
