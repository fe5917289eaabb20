package scene

import "github.com/gogpu/scenegraph/render"

// GlobalData is per-scene data that is refreshed for every draw, such as
// camera uniforms shared by all item lists.
//
// Populate runs on the calling thread before any item list is committed;
// Finish runs after every command buffer has been submitted.
type GlobalData interface {
	Populate(view *View, cb render.CommandBuffer) error
	Finish() error
	Destroy()
}
