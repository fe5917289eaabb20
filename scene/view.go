package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
)

// SurfaceTypeAny lets a framebuffer surface reference take the type of the
// view surface it names.
const SurfaceTypeAny render.SurfaceType = -1

// SurfaceInfo describes a named surface of a view.
type SurfaceInfo struct {
	Name string
	Type render.SurfaceType

	// Surface is an externally owned surface, such as a window surface.
	// When nil, the view creates and owns an offscreen or renderbuffer
	// from Descriptor.
	Surface render.Surface

	// Descriptor is used for view-created surfaces. A zero Width or
	// Height is replaced by the matching ratio of the view size.
	Descriptor render.SurfaceDescriptor

	// WidthRatio and HeightRatio scale the view size for zero
	// descriptor dimensions. Both default to 1.
	WidthRatio  float32
	HeightRatio float32

	// WindowFramebuffer marks surfaces rendered to the window; they are
	// sized by the pre-rotation dimensions and their viewports rotate
	// with the view.
	WindowFramebuffer bool
}

// FramebufferSurfaceRef binds a named view surface into a framebuffer.
type FramebufferSurfaceRef struct {
	Name string

	// Type must match the surface type, or be SurfaceTypeAny.
	Type render.SurfaceType

	Layer    uint32
	CubeFace int
	MipLevel uint32
}

// FramebufferInfo describes a named framebuffer of a view.
type FramebufferInfo struct {
	Name     string
	Surfaces []FramebufferSurfaceRef

	// Width and Height are absolute sizes. A zero value uses the matching
	// ratio of the view size, which defaults to 1.
	Width       uint32
	Height      uint32
	WidthRatio  float32
	HeightRatio float32

	// Layers is the number of layers to render; 0 means 1.
	Layers uint32

	// Viewport is the normalized viewport. The zero value covers the
	// whole framebuffer.
	Viewport render.Viewport
}

type viewFramebuffer struct {
	framebuffer render.Framebuffer
	rotated     bool
}

type projectionKind int

const (
	projectionOrtho projectionKind = iota
	projectionFrustum
	projectionPerspective
)

type projectionParams struct {
	kind                     projectionKind
	left, right, bottom, top float32
	fovy, aspect             float32
	near, far                float32
}

func (p projectionParams) matrix() mgl32.Mat4 {
	switch p.kind {
	case projectionFrustum:
		return mgl32.Frustum(p.left, p.right, p.bottom, p.top, p.near, p.far)
	case projectionPerspective:
		return mgl32.Perspective(p.fovy, p.aspect, p.near, p.far)
	default:
		return mgl32.Ortho(p.left, p.right, p.bottom, p.top, p.near, p.far)
	}
}

// View maps the framebuffers a scene draws into onto concrete surfaces.
//
// Surfaces and framebuffers are only (re)created by Update; SetDimensions
// and SetSurface merely record the change. A View is not safe for
// concurrent use.
type View struct {
	scene *Scene

	surfaceInfos []SurfaceInfo
	surfaces     []render.Surface
	owned        []bool
	surfaceIndex map[string]int

	framebufferInfos []FramebufferInfo
	framebuffers     []viewFramebuffer
	framebufferIndex map[string]int

	// pipelineFramebuffers maps a pipeline stage to its framebuffer, or
	// -1 for standalone stages.
	pipelineFramebuffers []int

	width, height                  uint32
	preRotateWidth, preRotateHeight uint32
	rotation                        render.Rotation

	sizeUpdated        bool
	surfaceSet         bool
	lastSurfaceSamples uint32
	lastDefaultSamples uint32

	camera         mgl32.Mat4
	viewMatrix     mgl32.Mat4
	projection     mgl32.Mat4
	viewProjection mgl32.Mat4
	projParams     projectionParams

	userData        any
	destroyUserData func(any)

	destroyed bool
}

// NewView creates a view of s with the given surfaces and framebuffers and
// creates its resources. Every framebuffer used by the scene pipeline must
// be declared.
func NewView(s *Scene, surfaces []SurfaceInfo, framebuffers []FramebufferInfo, width, height uint32, opts ...ViewOption) (*View, error) {
	var o viewOptions
	for _, opt := range opts {
		opt(&o)
	}
	fail := func(err error) (*View, error) {
		Logger().Error("scene: create view failed", "err", err)
		if o.destroyUserData != nil {
			o.destroyUserData(o.userData)
		}
		return nil, err
	}

	switch {
	case s == nil || s.destroyed:
		return fail(fmt.Errorf("view scene: %w", ErrInvalidArgument))
	case len(surfaces) == 0 || len(framebuffers) == 0:
		return fail(fmt.Errorf("view needs surfaces and framebuffers: %w", ErrInvalidArgument))
	case width == 0 || height == 0:
		return fail(fmt.Errorf("view size %dx%d: %w", width, height, ErrInvalidArgument))
	case !o.rotation.Valid():
		return fail(fmt.Errorf("view rotation %d: %w", o.rotation, ErrInvalidArgument))
	}

	v := &View{
		scene:        s,
		surfaceInfos: make([]SurfaceInfo, len(surfaces)),
		surfaces:     make([]render.Surface, len(surfaces)),
		owned:        make([]bool, len(surfaces)),
		surfaceIndex: make(map[string]int, len(surfaces)),
		width:        width,
		height:       height,
		rotation:     o.rotation,
		camera:       mgl32.Ident4(),
		viewMatrix:   mgl32.Ident4(),
		sizeUpdated:  true,
		surfaceSet:   true,
	}
	v.updatePreRotated()
	v.setProjection(projectionParams{kind: projectionOrtho, left: -1, right: 1, bottom: -1, top: 1, near: -1, far: 1})

	r := s.renderer
	for i, info := range surfaces {
		if err := v.validateSurface(r, &info); err != nil {
			return fail(err)
		}
		if _, ok := v.surfaceIndex[info.Name]; ok {
			return fail(fmt.Errorf("surface %q: %w", info.Name, ErrDuplicateName))
		}
		v.surfaceIndex[info.Name] = i
		v.surfaceInfos[i] = info
		v.surfaces[i] = info.Surface
		v.owned[i] = info.Surface == nil
	}

	v.framebufferInfos = make([]FramebufferInfo, len(framebuffers))
	v.framebuffers = make([]viewFramebuffer, len(framebuffers))
	v.framebufferIndex = make(map[string]int, len(framebuffers))
	for i, info := range framebuffers {
		rotated, err := v.validateFramebuffer(&info)
		if err != nil {
			return fail(err)
		}
		if _, ok := v.framebufferIndex[info.Name]; ok {
			return fail(fmt.Errorf("framebuffer %q: %w", info.Name, ErrDuplicateName))
		}
		v.framebufferIndex[info.Name] = i
		v.framebufferInfos[i] = info
		v.framebuffers[i].rotated = rotated
	}

	v.pipelineFramebuffers = make([]int, len(s.pipeline))
	for i := range s.pipeline {
		v.pipelineFramebuffers[i] = -1
		rs := s.pipeline[i].RenderPass
		if rs == nil {
			continue
		}
		idx, ok := v.framebufferIndex[rs.Framebuffer]
		if !ok {
			return fail(fmt.Errorf("framebuffer %q of pipeline stage %d: %w", rs.Framebuffer, i, ErrNotFound))
		}
		v.pipelineFramebuffers[i] = idx
	}

	v.lastSurfaceSamples = r.SurfaceSamples()
	v.lastDefaultSamples = r.DefaultSamples()
	v.userData = o.userData
	v.destroyUserData = o.destroyUserData

	if err := v.Update(); err != nil {
		Logger().Error("scene: create view failed", "err", err)
		_ = v.Destroy()
		return nil, err
	}
	return v, nil
}

func (v *View) validateSurface(r render.Renderer, info *SurfaceInfo) error {
	if info.Name == "" {
		return fmt.Errorf("unnamed surface: %w", ErrInvalidArgument)
	}
	if info.Type < render.SurfaceTypeOffscreen || info.Type > render.SurfaceTypeDepthRenderSurface {
		return fmt.Errorf("surface %q type %d: %w", info.Name, info.Type, ErrInvalidArgument)
	}

	if info.Surface != nil {
		if err := checkSurfaceType(info.Name, info.Surface, info.Type); err != nil {
			return err
		}
		if rs, ok := info.Surface.(render.RenderSurface); ok && rs.ClientRotations() && !info.WindowFramebuffer {
			return fmt.Errorf("window surface %q uses client rotations but is not a window framebuffer: %w",
				info.Name, ErrInvalidArgument)
		}
		return nil
	}

	if info.Type.IsRenderSurface() {
		return fmt.Errorf("surface %q: view cannot create %v surfaces: %w", info.Name, info.Type, ErrInvalidArgument)
	}
	if info.Descriptor.Format == gputypes.TextureFormatUndefined {
		info.Descriptor.Format = r.Device().SurfaceFormat()
	}
	if !r.Resources().RenderTargetSupported(info.Descriptor.Format) {
		return fmt.Errorf("surface %q format %v is not renderable: %w", info.Name, info.Descriptor.Format, ErrInvalidArgument)
	}
	if info.WidthRatio < 0 || info.HeightRatio < 0 {
		return fmt.Errorf("surface %q has a negative size ratio: %w", info.Name, ErrInvalidArgument)
	}
	if info.Descriptor.Width == 0 && info.WidthRatio == 0 {
		info.WidthRatio = 1
	}
	if info.Descriptor.Height == 0 && info.HeightRatio == 0 {
		info.HeightRatio = 1
	}
	return nil
}

func checkSurfaceType(name string, s render.Surface, t render.SurfaceType) error {
	var ok bool
	switch t {
	case render.SurfaceTypeOffscreen:
		_, ok = s.(render.Offscreen)
	case render.SurfaceTypeRenderbuffer:
		_, ok = s.(render.Renderbuffer)
	default:
		_, ok = s.(render.RenderSurface)
	}
	if !ok {
		return fmt.Errorf("surface %q (%T) is not a %v: %w", name, s, t, ErrTypeMismatch)
	}
	return nil
}

// validateFramebuffer resolves surface types in info and reports whether the
// framebuffer renders to the window.
func (v *View) validateFramebuffer(info *FramebufferInfo) (bool, error) {
	if info.Name == "" {
		return false, fmt.Errorf("unnamed framebuffer: %w", ErrInvalidArgument)
	}
	if len(info.Surfaces) == 0 {
		return false, fmt.Errorf("framebuffer %q has no surfaces: %w", info.Name, ErrInvalidArgument)
	}
	if info.WidthRatio < 0 || info.HeightRatio < 0 {
		return false, fmt.Errorf("framebuffer %q has a negative size ratio: %w", info.Name, ErrInvalidArgument)
	}
	if info.Viewport.IsZero() {
		info.Viewport = render.FullViewport
	}
	if err := info.Viewport.Validate(); err != nil {
		return false, fmt.Errorf("framebuffer %q: %w: %w", info.Name, err, ErrInvalidArgument)
	}
	if info.Width == 0 && info.WidthRatio == 0 {
		info.WidthRatio = 1
	}
	if info.Height == 0 && info.HeightRatio == 0 {
		info.HeightRatio = 1
	}
	info.Layers = max(info.Layers, 1)

	refs := make([]FramebufferSurfaceRef, len(info.Surfaces))
	copy(refs, info.Surfaces)
	info.Surfaces = refs

	rotated := false
	for j := range refs {
		ref := &refs[j]
		idx, ok := v.surfaceIndex[ref.Name]
		if !ok {
			return false, fmt.Errorf("framebuffer %q surface %q: %w", info.Name, ref.Name, ErrNotFound)
		}
		surface := &v.surfaceInfos[idx]
		switch ref.Type {
		case SurfaceTypeAny:
			ref.Type = surface.Type
		case surface.Type:
		default:
			return false, fmt.Errorf("framebuffer %q surface %q is %v, not %v: %w",
				info.Name, ref.Name, surface.Type, ref.Type, ErrTypeMismatch)
		}
		if j == 0 {
			rotated = surface.WindowFramebuffer
		} else if surface.WindowFramebuffer != rotated {
			return false, fmt.Errorf("framebuffer %q mixes window and non-window surfaces: %w",
				info.Name, ErrInvalidArgument)
		}
	}
	return rotated, nil
}

func (v *View) updatePreRotated() {
	if v.rotation.SwapsAxes() {
		v.preRotateWidth, v.preRotateHeight = v.height, v.width
	} else {
		v.preRotateWidth, v.preRotateHeight = v.width, v.height
	}
}

func (v *View) setProjection(p projectionParams) {
	v.projParams = p
	v.projection = p.matrix()
	v.viewProjection = v.projection.Mul4(v.viewMatrix)
}

// Scene returns the scene the view draws.
func (v *View) Scene() *Scene { return v.scene }

// Width returns the view width.
func (v *View) Width() uint32 { return v.width }

// Height returns the view height.
func (v *View) Height() uint32 { return v.height }

// Rotation returns the display rotation.
func (v *View) Rotation() render.Rotation { return v.rotation }

// PreRotateWidth returns the width of window surfaces before rotation.
func (v *View) PreRotateWidth() uint32 { return v.preRotateWidth }

// PreRotateHeight returns the height of window surfaces before rotation.
func (v *View) PreRotateHeight() uint32 { return v.preRotateHeight }

// UserData returns the value set with WithViewUserData.
func (v *View) UserData() any { return v.userData }

// SetDimensions records a new size and rotation. Surfaces and framebuffers
// are resized by the next Update.
func (v *View) SetDimensions(width, height uint32, rotation render.Rotation) error {
	if width == 0 || height == 0 || !rotation.Valid() {
		return fmt.Errorf("view dimensions %dx%d rotation %v: %w", width, height, rotation, ErrInvalidArgument)
	}
	if v.width == width && v.height == height && v.rotation == rotation {
		return nil
	}
	v.width, v.height, v.rotation = width, height, rotation
	v.updatePreRotated()
	v.sizeUpdated = true

	if v.projParams.kind == projectionPerspective {
		p := v.projParams
		p.aspect = float32(width) / float32(height)
		v.setProjection(p)
	}
	return nil
}

// Surface returns the surface with the given name and its type.
func (v *View) Surface(name string) (render.Surface, render.SurfaceType, bool) {
	idx, ok := v.surfaceIndex[name]
	if !ok {
		return nil, 0, false
	}
	return v.surfaces[idx], v.surfaceInfos[idx].Type, true
}

// SetSurface replaces an externally owned surface. Surfaces created by the
// view cannot be replaced. Framebuffers are rebuilt by the next Update.
func (v *View) SetSurface(name string, surface render.Surface, surfaceType render.SurfaceType) error {
	if surface == nil {
		return fmt.Errorf("set surface %q to nil: %w", name, ErrInvalidArgument)
	}
	idx, ok := v.surfaceIndex[name]
	if !ok {
		return fmt.Errorf("surface %q: %w", name, ErrNotFound)
	}
	if v.owned[idx] {
		return fmt.Errorf("surface %q is owned by the view: %w", name, ErrPermission)
	}
	info := &v.surfaceInfos[idx]
	if info.Type != surfaceType {
		return fmt.Errorf("surface %q is %v, not %v: %w", name, info.Type, surfaceType, ErrTypeMismatch)
	}
	if err := checkSurfaceType(name, surface, surfaceType); err != nil {
		return err
	}

	info.Surface = surface
	v.surfaces[idx] = surface
	v.surfaceSet = true
	return nil
}

// Framebuffer returns the framebuffer with the given name. The framebuffer
// is nil until the first Update and while its layers are out of range.
func (v *View) Framebuffer(name string) (render.Framebuffer, bool) {
	idx, ok := v.framebufferIndex[name]
	if !ok {
		return nil, false
	}
	return v.framebuffers[idx].framebuffer, true
}

// stageTarget returns the framebuffer of pipeline stage i and the pass
// viewport in pixels. The framebuffer is nil for standalone stages and for
// framebuffers skipped by Update.
func (v *View) stageTarget(i int) (render.Framebuffer, render.Viewport) {
	idx := v.pipelineFramebuffers[i]
	if idx < 0 {
		return nil, render.Viewport{}
	}
	fb := v.framebuffers[idx]
	if fb.framebuffer == nil {
		return nil, render.Viewport{}
	}
	vp := v.framebufferInfos[idx].Viewport
	if fb.rotated {
		vp = vp.Rotate(v.rotation)
	}
	return fb.framebuffer, vp.Scale(fb.framebuffer.Width(), fb.framebuffer.Height())
}

func scaleDim(ratio float32, dim uint32) uint32 {
	return max(uint32(math.Round(float64(ratio*float32(dim)))), 1)
}

// Update recreates view-owned surfaces whose size or sample count changed
// and then rebuilds every framebuffer. It does nothing when neither the
// dimensions, a surface, nor the renderer sample counts changed.
//
// On failure the view is left partially updated; Update may be retried.
func (v *View) Update() error {
	if v.destroyed {
		return ErrDestroyed
	}
	r := v.scene.renderer
	surfaceSamples, defaultSamples := r.SurfaceSamples(), r.DefaultSamples()
	sizeChanged := v.sizeUpdated
	surfaceSamplesChanged := surfaceSamples != v.lastSurfaceSamples
	defaultSamplesChanged := defaultSamples != v.lastDefaultSamples
	if !sizeChanged && !v.surfaceSet && !surfaceSamplesChanged && !defaultSamplesChanged {
		return nil
	}

	rm := r.Resources()
	for i := range v.surfaceInfos {
		if !v.owned[i] {
			continue
		}
		info := &v.surfaceInfos[i]
		desc := info.Descriptor
		fixedSize := desc.Width > 0 && desc.Height > 0
		if v.surfaces[i] != nil &&
			(fixedSize || !sizeChanged) &&
			(desc.Samples != render.SamplesSurface || !surfaceSamplesChanged) &&
			(desc.Samples != render.SamplesDefault || !defaultSamplesChanged) {
			continue
		}

		w, h := v.width, v.height
		if info.WindowFramebuffer {
			w, h = v.preRotateWidth, v.preRotateHeight
		}
		if desc.Width == 0 {
			desc.Width = scaleDim(info.WidthRatio, w)
		}
		if desc.Height == 0 {
			desc.Height = scaleDim(info.HeightRatio, h)
		}
		desc.Samples = desc.ResolveSamples(r)
		if desc.Label == "" {
			desc.Label = info.Name
		}

		var (
			created render.Surface
			err     error
		)
		if info.Type == render.SurfaceTypeOffscreen {
			created, err = rm.CreateOffscreen(desc)
		} else {
			created, err = rm.CreateRenderbuffer(desc)
		}
		if err != nil {
			return fmt.Errorf("create surface %q: %w", info.Name, err)
		}
		if old := v.surfaces[i]; old != nil {
			if err := old.Destroy(); err != nil {
				Logger().Warn("scene: destroy replaced surface", "surface", info.Name, "err", err)
			}
		}
		v.surfaces[i] = created
	}

	// Every framebuffer is rebuilt rather than tracking which surfaces
	// each one uses.
	for i := range v.framebufferInfos {
		fb, err := v.createFramebuffer(i)
		if err != nil {
			return err
		}
		if old := v.framebuffers[i].framebuffer; old != nil {
			if err := old.Destroy(); err != nil {
				Logger().Warn("scene: destroy replaced framebuffer", "framebuffer", v.framebufferInfos[i].Name, "err", err)
			}
		}
		v.framebuffers[i].framebuffer = fb
	}

	v.sizeUpdated = false
	v.surfaceSet = false
	v.lastSurfaceSamples = surfaceSamples
	v.lastDefaultSamples = defaultSamples
	return nil
}

func (v *View) createFramebuffer(i int) (render.Framebuffer, error) {
	info := &v.framebufferInfos[i]
	rotated := v.framebuffers[i].rotated

	surfaces := make([]render.FramebufferSurface, len(info.Surfaces))
	outOfRange := false
	for j, ref := range info.Surfaces {
		surfaces[j] = render.FramebufferSurface{
			Type:     ref.Type,
			Surface:  v.surfaces[v.surfaceIndex[ref.Name]],
			Layer:    ref.Layer,
			CubeFace: ref.CubeFace,
			MipLevel: ref.MipLevel,
		}
		if !layerInRange(surfaces[j], info.Layers) {
			outOfRange = true
		}
	}
	if outOfRange {
		Logger().Warn("scene: skipping framebuffer with layers out of range", "framebuffer", info.Name)
		return nil, nil
	}

	w, h := v.width, v.height
	if rotated {
		w, h = v.preRotateWidth, v.preRotateHeight
	}
	desc := render.FramebufferDescriptor{
		Name:     info.Name,
		Surfaces: surfaces,
		Width:    info.Width,
		Height:   info.Height,
		Layers:   info.Layers,
	}
	if desc.Width == 0 {
		desc.Width = scaleDim(info.WidthRatio, w)
	}
	if desc.Height == 0 {
		desc.Height = scaleDim(info.HeightRatio, h)
	}
	fb, err := v.scene.renderer.Resources().CreateFramebuffer(desc)
	if err != nil {
		return nil, fmt.Errorf("create framebuffer %q: %w", info.Name, err)
	}
	return fb, nil
}

// layerInRange reports whether layers starting at the surface layer fit in
// the surface. Cube faces count as layers.
func layerInRange(s render.FramebufferSurface, layers uint32) bool {
	o, ok := s.Surface.(render.Offscreen)
	if !ok || s.Type != render.SurfaceTypeOffscreen {
		return layers == 1
	}
	desc := o.Descriptor()
	surfaceLayers := max(desc.Depth, 1)
	layer := s.Layer
	if desc.Cube {
		layer = layer*6 + uint32(s.CubeFace)
		layers *= 6
		surfaceLayers *= 6
	}
	return layer < surfaceLayers && layers <= surfaceLayers-layer
}

// SetCameraMatrix sets the camera transform. The view matrix is its
// inverse.
func (v *View) SetCameraMatrix(camera mgl32.Mat4) {
	v.camera = camera
	v.viewMatrix = camera.Inv()
	v.viewProjection = v.projection.Mul4(v.viewMatrix)
}

// SetOrthoProjection sets an orthographic projection.
func (v *View) SetOrthoProjection(left, right, bottom, top, near, far float32) error {
	if left == right || bottom == top || near == far {
		return fmt.Errorf("ortho projection: %w", ErrInvalidArgument)
	}
	v.setProjection(projectionParams{kind: projectionOrtho,
		left: left, right: right, bottom: bottom, top: top, near: near, far: far})
	return nil
}

// SetFrustumProjection sets a perspective projection from frustum planes.
func (v *View) SetFrustumProjection(left, right, bottom, top, near, far float32) error {
	if left == right || bottom == top || near <= 0 || far <= near {
		return fmt.Errorf("frustum projection: %w", ErrInvalidArgument)
	}
	v.setProjection(projectionParams{kind: projectionFrustum,
		left: left, right: right, bottom: bottom, top: top, near: near, far: far})
	return nil
}

// SetPerspectiveProjection sets a perspective projection with a vertical
// field of view in radians. The aspect ratio follows the view dimensions.
func (v *View) SetPerspectiveProjection(fovy, near, far float32) error {
	if fovy <= 0 || near <= 0 || far <= near {
		return fmt.Errorf("perspective projection: %w", ErrInvalidArgument)
	}
	v.setProjection(projectionParams{kind: projectionPerspective,
		fovy: fovy, aspect: float32(v.width) / float32(v.height), near: near, far: far})
	return nil
}

// CameraMatrix returns the camera transform.
func (v *View) CameraMatrix() mgl32.Mat4 { return v.camera }

// ViewMatrix returns the inverse of the camera transform.
func (v *View) ViewMatrix() mgl32.Mat4 { return v.viewMatrix }

// ProjectionMatrix returns the projection.
func (v *View) ProjectionMatrix() mgl32.Mat4 { return v.projection }

// ViewProjectionMatrix returns projection * view.
func (v *View) ViewProjectionMatrix() mgl32.Mat4 { return v.viewProjection }

// Draw records the scene into cb. With a thread manager, item lists are
// recorded in parallel and submitted in pipeline order; otherwise they are
// committed directly into cb on the calling goroutine.
//
// Call Update before Draw after changing the view.
func (v *View) Draw(cb render.CommandBuffer, tm *ThreadManager) error {
	if v.destroyed {
		return ErrDestroyed
	}
	if cb == nil {
		return fmt.Errorf("draw into nil command buffer: %w", ErrInvalidArgument)
	}

	s := v.scene
	for _, g := range s.globalData {
		if err := g.Populate(v, cb); err != nil {
			return fmt.Errorf("populate global data: %w", err)
		}
	}

	var err error
	if tm != nil {
		err = tm.Draw(v, cb)
	} else {
		err = v.drawSerial(cb)
	}

	errs := []error{err}
	for _, g := range s.globalData {
		if ferr := g.Finish(); ferr != nil {
			errs = append(errs, fmt.Errorf("finish global data: %w", ferr))
		}
	}
	return errors.Join(errs...)
}

func (v *View) drawSerial(cb render.CommandBuffer) error {
	s := v.scene
	commit := func(l ItemList) {
		if err := l.Commit(v, cb); err != nil {
			Logger().Warn("scene: item list commit failed", "list", l.Name(), "err", err)
		}
	}

	for _, group := range s.sharedItems {
		for _, l := range group {
			commit(l)
		}
	}

	for i := range s.pipeline {
		st := &s.pipeline[i]
		if st.Items != nil {
			commit(st.Items)
			continue
		}

		rs := st.RenderPass
		fb, viewport := v.stageTarget(i)
		if fb == nil {
			continue
		}
		for _, lists := range rs.DrawLists {
			for _, l := range lists {
				if p, ok := l.(PreRenderPasser); ok {
					if err := p.PreRenderPass(v, cb, rs); err != nil {
						Logger().Warn("scene: pre render pass failed", "list", l.Name(), "err", err)
					}
				}
			}
		}

		if err := rs.RenderPass.Begin(cb, fb, viewport, rs.ClearValues, false); err != nil {
			return fmt.Errorf("begin render pass of stage %d: %w", i, err)
		}
		for sp, lists := range rs.DrawLists {
			if sp > 0 {
				if err := rs.RenderPass.NextSubpass(cb, false); err != nil {
					return fmt.Errorf("stage %d subpass %d: %w", i, sp, err)
				}
			}
			for _, l := range lists {
				commit(l)
			}
		}
		if err := rs.RenderPass.End(cb); err != nil {
			return fmt.Errorf("end render pass of stage %d: %w", i, err)
		}
	}
	return nil
}

// Destroy releases the framebuffers and view-created surfaces and the user
// data. Externally supplied surfaces are left untouched.
func (v *View) Destroy() error {
	if v == nil || v.destroyed {
		return nil
	}
	v.destroyed = true

	var errs []error
	for i := range v.framebuffers {
		if fb := v.framebuffers[i].framebuffer; fb != nil {
			if err := fb.Destroy(); err != nil {
				errs = append(errs, fmt.Errorf("destroy framebuffer %q: %w", fb.Name(), err))
			}
			v.framebuffers[i].framebuffer = nil
		}
	}
	for i, s := range v.surfaces {
		if !v.owned[i] || s == nil {
			continue
		}
		if err := s.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("destroy surface %q: %w", v.surfaceInfos[i].Name, err))
		}
		v.surfaces[i] = nil
	}
	if v.destroyUserData != nil {
		v.destroyUserData(v.userData)
	}
	v.userData = nil
	v.destroyUserData = nil
	return errors.Join(errs...)
}
