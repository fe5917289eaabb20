// Package scene implements a scene graph with dirty-tracked transforms and
// parallel, deterministically ordered draw submission.
//
// # Nodes and occurrences
//
// A [Node] is a reference-counted logical participant. A node may be added
// as a child of several parents, and each placement in a scene becomes one
// [TreeNode] occurrence with its own world transform. When a node is added
// under a parent, one occurrence is created under every occurrence of the
// parent, recursively for the node's existing children.
//
// Every occurrence registers with the item lists named by its node. An
// [ItemList] may reject a node (for example by type), which is recorded as
// [NoEntry].
//
// # Transforms
//
// World transforms are composed from the local transforms of transform
// nodes. Changing a transform only marks occurrences dirty; [Scene.Update]
// recomputes each dirty subtree once, from its highest dirty ancestor, and
// notifies item lists at most once per occurrence.
//
// # Drawing
//
// A [Scene] holds shared item lists and an ordered pipeline of render pass
// and standalone stages. A [View] turns framebuffer descriptions into
// resources. [ThreadManager] records item lists on persistent worker
// threads and submits the recorded command buffers in pipeline order:
//
//	tm, err := scene.NewThreadManager(renderer, 4)
//	...
//	if err := s.Update(dt); err != nil { ... }
//	if err := view.Update(); err != nil { ... }
//	if err := view.Draw(commandBuffer, tm); err != nil { ... }
//
// Tree mutation, Scene.Update and drawing must not run concurrently.
package scene
