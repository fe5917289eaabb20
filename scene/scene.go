package scene

import (
	"errors"
	"fmt"
	"hash/fnv"
	"reflect"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/scenegraph/internal/arena"
	"github.com/gogpu/scenegraph/render"
)

// Scene owns a tree of node occurrences, the item lists they register with
// and the ordered pipeline that draws them.
//
// A Scene is not safe for concurrent use. Tree mutation, Update and drawing
// must be serialized by the caller.
type Scene struct {
	renderer render.Renderer

	rootNode *Node
	root     *TreeNode

	sharedItems [][]ItemList
	pipeline    []PipelineStage

	// itemLists indexes every list by name; lists keeps declaration order.
	itemLists map[string]ItemList
	lists     []ItemList

	occs  arena.Slots[*TreeNode]
	dirty arena.DirtySet

	globalData []GlobalData

	userData        any
	destroyUserData func(any)

	destroyed bool
}

// New creates a scene. sharedItems are committed once per draw before the
// pipeline, one group after another; lists within a group may be committed
// concurrently.
//
// The scene takes ownership of every item list, render pass and global data
// object passed in, and of the user data. If New fails, all of them are
// destroyed before it returns.
func New(r render.Renderer, sharedItems [][]ItemList, pipeline []PipelineStage, opts ...Option) (*Scene, error) {
	var o sceneOptions
	for _, opt := range opts {
		opt(&o)
	}

	s, err := newScene(r, sharedItems, pipeline, &o)
	if err != nil {
		Logger().Error("scene: create failed", "err", err)
		destroyInputs(sharedItems, pipeline, &o)
		return nil, err
	}

	if prev := o.previous; prev != nil && !prev.destroyed {
		kept := s.reuseItemLists(prev)
		s.takeTree(prev, kept)
		prev.destroyReplaced(s, kept)
	}
	return s, nil
}

func newScene(r render.Renderer, sharedItems [][]ItemList, pipeline []PipelineStage, o *sceneOptions) (*Scene, error) {
	if r == nil {
		return nil, fmt.Errorf("nil renderer: %w", ErrInvalidArgument)
	}
	if len(pipeline) == 0 {
		return nil, fmt.Errorf("empty pipeline: %w", ErrInvalidArgument)
	}
	for i := range pipeline {
		if err := pipeline[i].validate(i); err != nil {
			return nil, err
		}
	}
	for _, g := range o.globalData {
		if g == nil {
			return nil, fmt.Errorf("nil global data: %w", ErrInvalidArgument)
		}
	}

	s := &Scene{
		renderer:        r,
		sharedItems:     sharedItems,
		pipeline:        pipeline,
		itemLists:       make(map[string]ItemList),
		globalData:      o.globalData,
		userData:        o.userData,
		destroyUserData: o.destroyUserData,
	}

	for gi, group := range sharedItems {
		for _, l := range group {
			if l == nil {
				return nil, fmt.Errorf("shared item group %d has a nil list: %w", gi, ErrInvalidArgument)
			}
			if err := s.addItemList(l); err != nil {
				return nil, err
			}
		}
	}
	for i := range pipeline {
		var err error
		pipeline[i].forEachList(func(l ItemList) {
			if err == nil {
				err = s.addItemList(l)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	s.rootNode = NewNode(rootNodeType, nil, nil)
	s.root = &TreeNode{scene: s, node: s.rootNode, transform: mgl32.Ident4(), slot: -1}
	s.rootNode.occurrences = []*TreeNode{s.root}
	return s, nil
}

func (s *Scene) addItemList(l ItemList) error {
	name := l.Name()
	if existing, ok := s.itemLists[name]; ok {
		if reflect.TypeOf(existing) != reflect.TypeOf(l) {
			return fmt.Errorf("item list %q (%T and %T): %w", name, existing, l, ErrDuplicateName)
		}
		return fmt.Errorf("item list %q: %w", name, ErrDuplicateName)
	}
	s.itemLists[name] = l
	s.lists = append(s.lists, l)
	return nil
}

// destroyInputs destroys everything handed to a failed New. Objects passed
// more than once are destroyed once.
func destroyInputs(sharedItems [][]ItemList, pipeline []PipelineStage, o *sceneOptions) {
	seen := make(map[ItemList]bool)
	destroyList := func(l ItemList) {
		if l == nil || seen[l] {
			return
		}
		seen[l] = true
		l.Destroy()
	}
	for _, group := range sharedItems {
		for _, l := range group {
			destroyList(l)
		}
	}
	passes := make(map[render.RenderPass]bool)
	for i := range pipeline {
		st := &pipeline[i]
		if st.Items != nil {
			destroyList(st.Items)
		}
		if st.RenderPass == nil {
			continue
		}
		for _, lists := range st.RenderPass.DrawLists {
			for _, l := range lists {
				destroyList(l)
			}
		}
		if rp := st.RenderPass.RenderPass; rp != nil && !passes[rp] {
			passes[rp] = true
			_ = rp.Destroy()
		}
	}
	for _, g := range o.globalData {
		if g != nil {
			g.Destroy()
		}
	}
	if o.destroyUserData != nil {
		o.destroyUserData(o.userData)
	}
}

// reuseSeed derives the hash seed of a list from its name and type.
func reuseSeed(l ItemList) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(l.Name() + "/" + reflect.TypeOf(l).String())) // fnv.Write never returns an error
	return h.Sum64()
}

// reusable reports whether old can stand in for l.
func reusable(old, l ItemList) bool {
	if reflect.TypeOf(old) != reflect.TypeOf(l) {
		return false
	}
	ro, ok := old.(Reusable)
	if !ok {
		return false
	}
	rl, ok := l.(Reusable)
	if !ok {
		return false
	}
	seed := reuseSeed(l)
	return ro.Hash(seed) == rl.Hash(seed) && rl.Equal(old)
}

// reuseItemLists replaces lists of s with matching lists of prev. The
// replaced lists are destroyed. It returns the set of lists taken from prev.
func (s *Scene) reuseItemLists(prev *Scene) map[ItemList]bool {
	replace := make(map[ItemList]ItemList)
	kept := make(map[ItemList]bool)
	for _, l := range s.lists {
		old, ok := prev.itemLists[l.Name()]
		switch {
		case !ok:
		case old == l:
			kept[old] = true
		case reusable(old, l):
			replace[l] = old
		}
	}
	if len(replace) == 0 {
		return kept
	}

	swap := func(l ItemList) ItemList {
		if old, ok := replace[l]; ok {
			return old
		}
		return l
	}
	for _, group := range s.sharedItems {
		for i, l := range group {
			group[i] = swap(l)
		}
	}
	for i := range s.pipeline {
		st := &s.pipeline[i]
		if st.Items != nil {
			st.Items = swap(st.Items)
			continue
		}
		for _, lists := range st.RenderPass.DrawLists {
			for j, l := range lists {
				lists[j] = swap(l)
			}
		}
	}
	for i, l := range s.lists {
		s.lists[i] = swap(l)
		s.itemLists[l.Name()] = s.lists[i]
	}

	for l, old := range replace {
		kept[old] = true
		Logger().Debug("scene: reusing item list", "name", old.Name())
		l.Destroy()
	}
	return kept
}

// takeTree moves every root child of prev, with its occurrences, into s.
// Registrations with kept lists stay; all others are made with the lists
// of s.
func (s *Scene) takeTree(prev *Scene, kept map[ItemList]bool) {
	s.rootNode.children = prev.rootNode.children
	s.rootNode.nextChildID = prev.rootNode.nextChildID
	prev.rootNode.children = nil

	s.root.children = prev.root.children
	prev.root.children = nil
	for _, occ := range s.root.children {
		occ.parent = s.root
		s.adopt(prev, occ, kept)
	}
	prev.occs.Reset()
	prev.dirty.Clear()
}

func (s *Scene) adopt(prev *Scene, occ *TreeNode, kept map[ItemList]bool) {
	wasDirty := prev.dirty.IsDirty(occ.slot)
	occ.scene = s
	occ.slot = s.occs.Insert(occ)
	if wasDirty {
		s.dirty.Mark(occ.slot)
	}

	for i, name := range occ.node.itemLists {
		if e := occ.entries[i]; e.List != nil && kept[e.List] {
			continue
		}
		list := s.itemLists[name]
		if list == nil {
			occ.entries[i] = ItemEntry{ID: NoEntry}
			continue
		}
		id, err := list.AddNode(occ.node, occ)
		if err != nil {
			Logger().Warn("scene: register moved node failed", "list", name, "err", err)
			id = NoEntry
		}
		occ.entries[i] = ItemEntry{List: list, ID: id}
	}

	for _, c := range occ.children {
		s.adopt(prev, c, kept)
	}
}

// destroyReplaced destroys prev after its tree and reusable lists moved to
// next. Objects still used by next survive.
func (s *Scene) destroyReplaced(next *Scene, kept map[ItemList]bool) {
	passes := make(map[render.RenderPass]bool)
	for i := range next.pipeline {
		if rs := next.pipeline[i].RenderPass; rs != nil {
			passes[rs.RenderPass] = true
		}
	}
	data := make(map[GlobalData]bool)
	for _, g := range next.globalData {
		data[g] = true
	}

	s.destroyed = true
	s.rootNode.occurrences = nil
	s.rootNode.Release()
	for _, l := range s.lists {
		if !kept[l] {
			l.Destroy()
		}
	}
	for i := range s.pipeline {
		if rs := s.pipeline[i].RenderPass; rs != nil && !passes[rs.RenderPass] {
			passes[rs.RenderPass] = true
			_ = rs.RenderPass.Destroy()
		}
	}
	for _, g := range s.globalData {
		if !data[g] {
			g.Destroy()
		}
	}
	s.destroyHandles()
}

func (s *Scene) destroyHandles() {
	if s.destroyUserData != nil {
		s.destroyUserData(s.userData)
	}
	s.userData = nil
	s.destroyUserData = nil
	s.globalData = nil
	s.itemLists = nil
	s.lists = nil
	s.sharedItems = nil
	s.pipeline = nil
}

// Renderer returns the renderer the scene was created with.
func (s *Scene) Renderer() render.Renderer { return s.renderer }

// Root returns the root occurrence. Its node is internal to the scene.
func (s *Scene) Root() *TreeNode { return s.root }

// SharedItems returns the shared item list groups.
func (s *Scene) SharedItems() [][]ItemList { return s.sharedItems }

// Pipeline returns the pipeline stages in draw order.
func (s *Scene) Pipeline() []PipelineStage { return s.pipeline }

// GlobalData returns the global data objects.
func (s *Scene) GlobalData() []GlobalData { return s.globalData }

// UserData returns the value set with WithUserData.
func (s *Scene) UserData() any { return s.userData }

// FindItemList returns the item list with the given name, or nil.
func (s *Scene) FindItemList(name string) ItemList { return s.itemLists[name] }

// ForEachItemList calls fn for every item list in declaration order until
// fn returns false.
func (s *Scene) ForEachItemList(fn func(ItemList) bool) {
	for _, l := range s.lists {
		if !fn(l) {
			return
		}
	}
}

// OccurrenceCount returns the number of occurrences in the tree, excluding
// the root.
func (s *Scene) OccurrenceCount() int { return s.occs.Len() }

// DirtyCount returns the number of occurrences marked dirty since the last
// update.
func (s *Scene) DirtyCount() int { return s.dirty.Len() }

// AddNode attaches n under the scene root.
func (s *Scene) AddNode(n *Node) (ChildID, error) {
	if s.destroyed {
		return 0, ErrDestroyed
	}
	return s.rootNode.AddChild(n)
}

// RemoveNode detaches every root attachment of n.
func (s *Scene) RemoveNode(n *Node) error {
	return s.rootNode.RemoveChildNode(n)
}

// RemoveNodeIndex detaches the root attachment at index i.
func (s *Scene) RemoveNodeIndex(i int) error {
	return s.rootNode.RemoveChildIndex(i)
}

// ClearNodes detaches every node from the root.
func (s *Scene) ClearNodes() {
	if s.rootNode != nil {
		s.rootNode.Clear()
	}
}

// NodeCount returns the number of root attachments.
func (s *Scene) NodeCount() int { return s.rootNode.ChildCount() }

// Node returns the node at root attachment index i.
func (s *Scene) Node(i int) *Node { return s.rootNode.Child(i) }

// Update runs the pre-transform hooks, recomputes every dirty subtree once
// and then runs the update hooks of the item lists. dt is the time since the
// previous update in seconds.
func (s *Scene) Update(dt float64) error {
	if s.destroyed {
		return ErrDestroyed
	}
	for _, l := range s.lists {
		if u, ok := l.(PreTransformUpdater); ok {
			u.PreTransformUpdate(s, dt)
		}
	}

	s.dirty.ForEach(func(slot int) {
		if occ := s.occs.Get(slot); occ != nil {
			occ.updateSubtree()
		}
	})
	s.dirty.Clear()

	for _, l := range s.lists {
		if u, ok := l.(Updater); ok {
			u.Update(s, dt)
		}
	}
	return nil
}

// Destroy detaches every node and destroys the item lists, render passes,
// global data and user data. Calling Destroy more than once is a no-op.
func (s *Scene) Destroy() error {
	if s == nil || s.destroyed {
		return nil
	}
	s.ClearNodes()
	s.rootNode.occurrences = nil
	s.rootNode.Release()
	s.occs.Reset()
	s.dirty.Clear()
	s.destroyed = true

	var errs []error
	for _, l := range s.lists {
		l.Destroy()
	}
	passes := make(map[render.RenderPass]bool)
	for i := range s.pipeline {
		rs := s.pipeline[i].RenderPass
		if rs == nil || passes[rs.RenderPass] {
			continue
		}
		passes[rs.RenderPass] = true
		if err := rs.RenderPass.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy render pass of stage %d: %w", i, err))
		}
	}
	for _, g := range s.globalData {
		g.Destroy()
	}
	s.destroyHandles()
	return errors.Join(errs...)
}
