package scene

import "github.com/gogpu/scenegraph/render"

// Option configures a Scene during creation.
//
// Example:
//
//	// Replace a scene, keeping compatible item lists alive
//	next, err := scene.New(r, shared, pipeline, scene.WithPreviousScene(prev))
type Option func(*sceneOptions)

// sceneOptions holds optional configuration for Scene creation.
type sceneOptions struct {
	previous        *Scene
	globalData      []GlobalData
	userData        any
	destroyUserData func(any)
}

// WithPreviousScene reuses item lists of prev and moves its nodes into the
// new scene. prev is destroyed when the new scene is created successfully
// and left untouched otherwise.
func WithPreviousScene(prev *Scene) Option {
	return func(o *sceneOptions) {
		o.previous = prev
	}
}

// WithGlobalData adds per-draw global data. The scene takes ownership.
func WithGlobalData(data ...GlobalData) Option {
	return func(o *sceneOptions) {
		o.globalData = append(o.globalData, data...)
	}
}

// WithUserData attaches an arbitrary value to the scene. destroy, if
// non-nil, is called with the value when the scene is destroyed.
func WithUserData(v any, destroy func(any)) Option {
	return func(o *sceneOptions) {
		o.userData = v
		o.destroyUserData = destroy
	}
}

// ViewOption configures a View during creation.
type ViewOption func(*viewOptions)

type viewOptions struct {
	rotation        render.Rotation
	userData        any
	destroyUserData func(any)
}

// WithRotation sets the initial display rotation of window surfaces.
func WithRotation(r render.Rotation) ViewOption {
	return func(o *viewOptions) {
		o.rotation = r
	}
}

// WithViewUserData attaches an arbitrary value to the view. destroy, if
// non-nil, is called with the value when the view is destroyed.
func WithViewUserData(v any, destroy func(any)) ViewOption {
	return func(o *viewOptions) {
		o.userData = v
		o.destroyUserData = destroy
	}
}

// ThreadManagerOption configures a ThreadManager during creation.
//
// Example:
//
//	// Four draw threads, without pinning to OS threads
//	tm, err := scene.NewThreadManager(r, 4, scene.WithLockOSThread(false))
type ThreadManagerOption func(*threadManagerOptions)

type threadManagerOptions struct {
	lockOSThread bool
	name         string
}

func defaultThreadManagerOptions() threadManagerOptions {
	return threadManagerOptions{
		lockOSThread: true,
		name:         "draw",
	}
}

// WithLockOSThread controls whether every draw thread is locked to its own
// OS thread. The default is true, as graphics contexts are bound to the
// thread that created them.
func WithLockOSThread(lock bool) ThreadManagerOption {
	return func(o *threadManagerOptions) {
		o.lockOSThread = lock
	}
}

// WithThreadName sets the name used in log records of the draw threads.
func WithThreadName(name string) ThreadManagerOption {
	return func(o *threadManagerOptions) {
		o.name = name
	}
}
