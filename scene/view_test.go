package scene

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/scenegraph/render"
	"github.com/gogpu/scenegraph/render/recorder"
)

// =============================================================================
// Fixtures
// =============================================================================

// windowFixture draws one render pass into a host window surface.
type windowFixture struct {
	r      *recorder.Renderer
	scene  *Scene
	window *recorder.RenderSurface
	list   *mockList
}

func newWindowFixture(t *testing.T) *windowFixture {
	t.Helper()
	f := &windowFixture{r: recorder.New(), list: newMockList("ui")}
	rp := f.r.NewRenderPass("win", colorDepthAttachments, 1)
	s, err := New(f.r, nil, []PipelineStage{PassStage(rp, "window", nil, []ItemList{f.list})})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Destroy() })
	f.scene = s
	f.window = f.r.NewRenderSurface(32, 64, true)
	return f
}

func (f *windowFixture) surfaces() []SurfaceInfo {
	return []SurfaceInfo{
		{Name: "window", Type: render.SurfaceTypeColorRenderSurface, Surface: f.window, WindowFramebuffer: true},
		{Name: "depth", Type: render.SurfaceTypeRenderbuffer, WindowFramebuffer: true,
			Descriptor: render.SurfaceDescriptor{Format: gputypes.TextureFormatDepth24PlusStencil8, Samples: render.SamplesSurface}},
	}
}

func (f *windowFixture) framebuffers(viewport render.Viewport) []FramebufferInfo {
	return []FramebufferInfo{{
		Name:     "window",
		Viewport: viewport,
		Surfaces: []FramebufferSurfaceRef{
			{Name: "window", Type: render.SurfaceTypeColorRenderSurface},
			{Name: "depth", Type: SurfaceTypeAny},
		},
	}}
}

func mustFramebuffer(t *testing.T, v *View, name string) render.Framebuffer {
	t.Helper()
	fb, ok := v.Framebuffer(name)
	if !ok || fb == nil {
		t.Fatalf("Framebuffer(%q) = %v, %v", name, fb, ok)
	}
	return fb
}

func surfaceDescriptor(t *testing.T, v *View, name string) render.SurfaceDescriptor {
	t.Helper()
	s, _, ok := v.Surface(name)
	if !ok {
		t.Fatalf("Surface(%q) not found", name)
	}
	o, ok := s.(interface{ Descriptor() render.SurfaceDescriptor })
	if !ok {
		t.Fatalf("Surface(%q) = %T has no descriptor", name, s)
	}
	return o.Descriptor()
}

// =============================================================================
// Creation
// =============================================================================

func TestNewView_CreatesResources(t *testing.T) {
	f := newDrawFixture(t)
	v := f.view

	st := f.r.Stats()
	if st.LiveSurfaces != 3 || st.CreatedSurfaces != 3 {
		t.Errorf("surfaces live=%d created=%d, want 3, 3", st.LiveSurfaces, st.CreatedSurfaces)
	}
	if st.LiveFramebuffers != 1 {
		t.Errorf("LiveFramebuffers = %d, want 1", st.LiveFramebuffers)
	}

	fb := mustFramebuffer(t, v, "primary")
	if fb.Width() != 64 || fb.Height() != 32 {
		t.Errorf("primary size = %dx%d, want 64x32", fb.Width(), fb.Height())
	}
	if fb, ok := v.Framebuffer("layered"); !ok || fb != nil {
		t.Errorf("Framebuffer(layered) = %v, %v, want nil, true", fb, ok)
	}
	if _, ok := v.Framebuffer("missing"); ok {
		t.Error("Framebuffer(missing) found")
	}

	color := surfaceDescriptor(t, v, "color")
	if color.Width != 64 || color.Height != 32 || color.Samples != 1 || color.Label != "color" {
		t.Errorf("color descriptor = %+v", color)
	}
	array := surfaceDescriptor(t, v, "array")
	if array.Width != 16 || array.Height != 16 {
		t.Errorf("array size = %dx%d, want 16x16", array.Width, array.Height)
	}
	if _, typ, _ := v.Surface("depth"); typ != render.SurfaceTypeRenderbuffer {
		t.Errorf("depth type = %v, want %v", typ, render.SurfaceTypeRenderbuffer)
	}
}

func TestNewView_UndefinedFormatUsesSurfaceFormat(t *testing.T) {
	f := newWindowFixture(t)
	surfaces := f.surfaces()
	surfaces = append(surfaces, SurfaceInfo{Name: "extra", Type: render.SurfaceTypeOffscreen,
		WidthRatio: 0.5, HeightRatio: 0.25})
	v, err := NewView(f.scene, surfaces, f.framebuffers(render.Viewport{}), 64, 32)
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	defer func() { _ = v.Destroy() }()

	d := surfaceDescriptor(t, v, "extra")
	if d.Format != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("Format = %v, want %v", d.Format, gputypes.TextureFormatBGRA8Unorm)
	}
	if d.Width != 32 || d.Height != 8 {
		t.Errorf("size = %dx%d, want 32x8", d.Width, d.Height)
	}
}

func TestNewView_Validation(t *testing.T) {
	f := newWindowFixture(t)
	other := recorder.New(recorder.WithUnsupportedFormats(gputypes.TextureFormatR8Unorm))
	otherScene, err := New(other, nil, []PipelineStage{ItemStage(newMockList("x"))})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = otherScene.Destroy() }()

	tests := []struct {
		name    string
		scene   *Scene
		edit    func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo)
		width   uint32
		opts    []ViewOption
		wantErr error
	}{
		{name: "nil scene", wantErr: ErrInvalidArgument},
		{
			name: "no surfaces",
			edit: func(_ []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				return nil, fb
			},
			wantErr: ErrInvalidArgument,
		},
		{name: "zero width", width: 0, wantErr: ErrInvalidArgument},
		{name: "bad rotation", opts: []ViewOption{WithRotation(render.Rotation(7))}, wantErr: ErrInvalidArgument},
		{
			name: "duplicate surface",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				return append(s, s[1]), fb
			},
			wantErr: ErrDuplicateName,
		},
		{
			name: "created window surface",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				s[0].Surface = nil
				return s, fb
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "surface type mismatch",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				s[0].Type = render.SurfaceTypeOffscreen
				return s, fb
			},
			wantErr: ErrTypeMismatch,
		},
		{
			name: "client rotations outside window framebuffer",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				s[0].WindowFramebuffer = false
				return s, fb
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "framebuffer without surfaces",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				fb[0].Surfaces = nil
				return s, fb
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "framebuffer unknown surface",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				fb[0].Surfaces[1].Name = "stencil"
				return s, fb
			},
			wantErr: ErrNotFound,
		},
		{
			name: "framebuffer surface type mismatch",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				fb[0].Surfaces[1].Type = render.SurfaceTypeOffscreen
				return s, fb
			},
			wantErr: ErrTypeMismatch,
		},
		{
			name: "mixed window and offscreen surfaces",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				s[1].WindowFramebuffer = false
				return s, fb
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "invalid viewport",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				fb[0].Viewport = render.Viewport{MinX: 0.5, MaxX: 0.25, MaxY: 1}
				return s, fb
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "duplicate framebuffer",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				return s, append(fb, fb[0])
			},
			wantErr: ErrDuplicateName,
		},
		{
			name: "pipeline framebuffer missing",
			edit: func(s []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				fb[0].Name = "offscreen"
				return s, fb
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "unsupported format",
			scene: otherScene,
			edit: func(_ []SurfaceInfo, fb []FramebufferInfo) ([]SurfaceInfo, []FramebufferInfo) {
				return []SurfaceInfo{{Name: "hdr", Type: render.SurfaceTypeOffscreen,
						Descriptor: render.SurfaceDescriptor{Format: gputypes.TextureFormatR8Unorm}}},
					[]FramebufferInfo{{Name: "hdr", Surfaces: []FramebufferSurfaceRef{{Name: "hdr", Type: SurfaceTypeAny}}}}
			},
			wantErr: ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.scene
			if s == nil && tt.name != "nil scene" {
				s = f.scene
			}
			surfaces, framebuffers := f.surfaces(), f.framebuffers(render.Viewport{})
			if tt.edit != nil {
				surfaces, framebuffers = tt.edit(surfaces, framebuffers)
			}
			width := uint32(64)
			if tt.name == "zero width" {
				width = tt.width
			}
			destroyed := 0
			opts := append(slices.Clone(tt.opts), WithViewUserData(nil, func(any) { destroyed++ }))

			v, err := NewView(s, surfaces, framebuffers, width, 32, opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewView() error = %v, want %v", err, tt.wantErr)
			}
			if v != nil {
				t.Error("NewView() returned a view on error")
			}
			if destroyed != 1 {
				t.Errorf("user data destroyed %d times, want 1", destroyed)
			}
		})
	}

	if st := f.r.Stats(); st.LiveSurfaces != 0 || st.LiveFramebuffers != 0 {
		t.Errorf("leaked resources: %+v", st)
	}
}

func TestNewView_UpdateFailure(t *testing.T) {
	f := newWindowFixture(t)
	f.r.FailFramebuffers(true)
	destroyed := false
	v, err := NewView(f.scene, f.surfaces(), f.framebuffers(render.Viewport{}), 64, 32,
		WithViewUserData(nil, func(any) { destroyed = true }))
	if !errors.Is(err, recorder.ErrInjected) {
		t.Fatalf("NewView() error = %v, want %v", err, recorder.ErrInjected)
	}
	if v != nil {
		t.Error("NewView() returned a view on error")
	}
	if !destroyed {
		t.Error("user data not destroyed")
	}
	if st := f.r.Stats(); st.LiveSurfaces != 0 {
		t.Errorf("LiveSurfaces = %d, want 0", st.LiveSurfaces)
	}
	if f.window.Destroyed() {
		t.Error("host window surface destroyed")
	}
}

// =============================================================================
// Update
// =============================================================================

func TestView_UpdateWithoutChanges(t *testing.T) {
	f := newDrawFixture(t)
	before := f.r.Stats()
	for range 3 {
		if err := f.view.Update(); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	if after := f.r.Stats(); after != before {
		t.Errorf("Stats() = %+v, want %+v", after, before)
	}
}

func TestView_SetDimensions(t *testing.T) {
	f := newDrawFixture(t)
	v := f.view

	if err := v.SetDimensions(0, 10, render.Rotation0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetDimensions(0, 10) error = %v, want %v", err, ErrInvalidArgument)
	}
	if err := v.SetDimensions(128, 96, render.Rotation0); err != nil {
		t.Fatalf("SetDimensions() error = %v", err)
	}

	// Nothing is recreated before Update.
	if fb := mustFramebuffer(t, v, "primary"); fb.Width() != 64 {
		t.Errorf("primary width before Update = %d, want 64", fb.Width())
	}
	if err := v.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	fb := mustFramebuffer(t, v, "primary")
	if fb.Width() != 128 || fb.Height() != 96 {
		t.Errorf("primary size = %dx%d, want 128x96", fb.Width(), fb.Height())
	}
	st := f.r.Stats()
	// color and depth follow the view size; array has a fixed size.
	if st.CreatedSurfaces != 5 {
		t.Errorf("CreatedSurfaces = %d, want 5", st.CreatedSurfaces)
	}
	if st.LiveSurfaces != 3 || st.LiveFramebuffers != 1 {
		t.Errorf("live surfaces=%d framebuffers=%d, want 3, 1", st.LiveSurfaces, st.LiveFramebuffers)
	}
	if d := surfaceDescriptor(t, v, "array"); d.Width != 16 {
		t.Errorf("array width = %d, want 16", d.Width)
	}
}

func TestView_SampleCountChange(t *testing.T) {
	f := newDrawFixture(t)
	v := f.view

	f.r.SetSamples(1, 4)
	if err := v.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if d := surfaceDescriptor(t, v, "color"); d.Samples != 4 {
		t.Errorf("color samples = %d, want 4", d.Samples)
	}
	if d := surfaceDescriptor(t, v, "array"); d.Samples != 1 {
		t.Errorf("array samples = %d, want 1", d.Samples)
	}
	if got := f.r.Stats().CreatedSurfaces; got != 5 {
		t.Errorf("CreatedSurfaces = %d, want 5", got)
	}

	// A change of the window sample count only touches surfaces that use it.
	f.r.SetSamples(2, 4)
	if err := v.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := f.r.Stats().CreatedSurfaces; got != 5 {
		t.Errorf("CreatedSurfaces = %d, want 5", got)
	}
}

func TestView_UpdateRetry(t *testing.T) {
	f := newDrawFixture(t)
	v := f.view
	if err := v.SetDimensions(32, 32, render.Rotation0); err != nil {
		t.Fatal(err)
	}
	f.r.FailSurfaces(true)
	if err := v.Update(); !errors.Is(err, recorder.ErrInjected) {
		t.Fatalf("Update() error = %v, want %v", err, recorder.ErrInjected)
	}
	f.r.FailSurfaces(false)
	if err := v.Update(); err != nil {
		t.Fatalf("Update() retry error = %v", err)
	}
	if fb := mustFramebuffer(t, v, "primary"); fb.Width() != 32 || fb.Height() != 32 {
		t.Errorf("primary size = %dx%d, want 32x32", fb.Width(), fb.Height())
	}
}

// =============================================================================
// Surfaces
// =============================================================================

func TestView_SetSurface(t *testing.T) {
	f := newWindowFixture(t)
	v, err := NewView(f.scene, f.surfaces(), f.framebuffers(render.Viewport{}), 64, 32)
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	defer func() { _ = v.Destroy() }()

	replacement := f.r.NewRenderSurface(64, 64, true)
	offscreen, err := f.r.CreateOffscreen(render.SurfaceDescriptor{Format: gputypes.TextureFormatRGBA8Unorm, Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = offscreen.Destroy() }()

	tests := []struct {
		name    string
		surface string
		value   render.Surface
		typ     render.SurfaceType
		wantErr error
	}{
		{"nil surface", "window", nil, render.SurfaceTypeColorRenderSurface, ErrInvalidArgument},
		{"unknown name", "missing", replacement, render.SurfaceTypeColorRenderSurface, ErrNotFound},
		{"view owned", "depth", replacement, render.SurfaceTypeRenderbuffer, ErrPermission},
		{"declared type differs", "window", replacement, render.SurfaceTypeDepthRenderSurface, ErrTypeMismatch},
		{"object of wrong type", "window", offscreen, render.SurfaceTypeColorRenderSurface, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := v.SetSurface(tt.surface, tt.value, tt.typ); !errors.Is(err, tt.wantErr) {
				t.Errorf("SetSurface() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	created := f.r.Stats().CreatedFramebuffers
	if err := v.SetSurface("window", replacement, render.SurfaceTypeColorRenderSurface); err != nil {
		t.Fatalf("SetSurface() error = %v", err)
	}
	if s, _, _ := v.Surface("window"); s != replacement {
		t.Error("Surface(window) not replaced")
	}
	if err := v.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := f.r.Stats().CreatedFramebuffers; got != created+1 {
		t.Errorf("CreatedFramebuffers = %d, want %d", got, created+1)
	}
	if f.window.Destroyed() {
		t.Error("replaced host surface destroyed")
	}
}

func TestView_DestroyKeepsHostSurfaces(t *testing.T) {
	f := newWindowFixture(t)
	userData := 0
	v, err := NewView(f.scene, f.surfaces(), f.framebuffers(render.Viewport{}), 64, 32,
		WithViewUserData(7, func(v any) { userData = v.(int) }))
	if err != nil {
		t.Fatalf("NewView() error = %v", err)
	}
	if v.UserData() != 7 {
		t.Errorf("UserData() = %v, want 7", v.UserData())
	}

	for range 2 {
		if err := v.Destroy(); err != nil {
			t.Fatalf("Destroy() error = %v", err)
		}
	}
	if f.window.Destroyed() {
		t.Error("host window surface destroyed")
	}
	if st := f.r.Stats(); st.LiveSurfaces != 0 || st.LiveFramebuffers != 0 {
		t.Errorf("live resources after Destroy: %+v", st)
	}
	if userData != 7 {
		t.Errorf("user data destroy got %d, want 7", userData)
	}
	if err := v.Update(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Update() after Destroy error = %v, want %v", err, ErrDestroyed)
	}
}

// =============================================================================
// Rotation
// =============================================================================

func TestView_Rotation(t *testing.T) {
	tests := []struct {
		rotation       render.Rotation
		viewport       render.Viewport
		preW, preH     uint32
		wantViewport   string
		wantDepthWidth uint32
	}{
		{render.Rotation0, render.Viewport{}, 64, 32, "viewport=[0,0 64,32]", 64},
		{render.Rotation90, render.Viewport{MaxX: 0.5, MaxY: 1, MaxDepth: 1}, 32, 64, "viewport=[0,0 32,32]", 32},
		{render.Rotation180, render.Viewport{MaxX: 0.5, MaxY: 1, MaxDepth: 1}, 64, 32, "viewport=[32,0 64,32]", 64},
		{render.Rotation270, render.Viewport{MaxX: 0.5, MaxY: 1, MaxDepth: 1}, 32, 64, "viewport=[0,32 32,64]", 32},
	}
	for _, tt := range tests {
		t.Run(tt.rotation.String(), func(t *testing.T) {
			f := newWindowFixture(t)
			v, err := NewView(f.scene, f.surfaces(), f.framebuffers(tt.viewport), 64, 32, WithRotation(tt.rotation))
			if err != nil {
				t.Fatalf("NewView() error = %v", err)
			}
			defer func() { _ = v.Destroy() }()

			if v.Width() != 64 || v.Height() != 32 || v.Rotation() != tt.rotation {
				t.Errorf("dimensions = %dx%d %v", v.Width(), v.Height(), v.Rotation())
			}
			if v.PreRotateWidth() != tt.preW || v.PreRotateHeight() != tt.preH {
				t.Errorf("pre-rotate = %dx%d, want %dx%d", v.PreRotateWidth(), v.PreRotateHeight(), tt.preW, tt.preH)
			}
			if d := surfaceDescriptor(t, v, "depth"); d.Width != tt.wantDepthWidth {
				t.Errorf("depth width = %d, want %d", d.Width, tt.wantDepthWidth)
			}

			cb := f.r.NewCommandBuffer()
			if err := v.Draw(cb, nil); err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			lines := cb.Flatten()
			if len(lines) == 0 || !strings.HasPrefix(lines[0], "begin-pass win@window "+tt.wantViewport) {
				t.Errorf("trace = %q, want begin-pass with %s", lines, tt.wantViewport)
			}
		})
	}
}

// =============================================================================
// Camera
// =============================================================================

func TestView_Camera(t *testing.T) {
	f := newDrawFixture(t)
	v := f.view

	camera := mgl32.Translate3D(1, 2, 3)
	v.SetCameraMatrix(camera)
	if !matricesEqual(v.CameraMatrix(), camera) {
		t.Errorf("CameraMatrix() = %v", v.CameraMatrix())
	}
	if want := mgl32.Translate3D(-1, -2, -3); !matricesEqual(v.ViewMatrix(), want) {
		t.Errorf("ViewMatrix() = %v, want %v", v.ViewMatrix(), want)
	}

	if err := v.SetOrthoProjection(0, 64, 0, 32, -1, 1); err != nil {
		t.Fatal(err)
	}
	want := mgl32.Ortho(0, 64, 0, 32, -1, 1).Mul4(mgl32.Translate3D(-1, -2, -3))
	if !matricesEqual(v.ViewProjectionMatrix(), want) {
		t.Errorf("ViewProjectionMatrix() = %v, want %v", v.ViewProjectionMatrix(), want)
	}

	if err := v.SetFrustumProjection(-1, 1, -1, 1, 0, 10); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetFrustumProjection(near=0) error = %v, want %v", err, ErrInvalidArgument)
	}
	if err := v.SetOrthoProjection(1, 1, 0, 1, 0, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetOrthoProjection(left=right) error = %v, want %v", err, ErrInvalidArgument)
	}
	if err := v.SetFrustumProjection(-1, 1, -1, 1, 1, 10); err != nil {
		t.Fatal(err)
	}
	if want := mgl32.Frustum(-1, 1, -1, 1, 1, 10); !matricesEqual(v.ProjectionMatrix(), want) {
		t.Errorf("ProjectionMatrix() = %v, want %v", v.ProjectionMatrix(), want)
	}
}

func TestView_PerspectiveFollowsAspect(t *testing.T) {
	f := newDrawFixture(t)
	v := f.view
	fovy := float32(math.Pi / 3)

	if err := v.SetPerspectiveProjection(fovy, 0.1, 100); err != nil {
		t.Fatal(err)
	}
	if want := mgl32.Perspective(fovy, 2, 0.1, 100); !matricesEqual(v.ProjectionMatrix(), want) {
		t.Errorf("ProjectionMatrix() = %v, want aspect 2", v.ProjectionMatrix())
	}

	if err := v.SetDimensions(32, 64, render.Rotation0); err != nil {
		t.Fatal(err)
	}
	if want := mgl32.Perspective(fovy, 0.5, 0.1, 100); !matricesEqual(v.ProjectionMatrix(), want) {
		t.Errorf("ProjectionMatrix() = %v, want aspect 0.5", v.ProjectionMatrix())
	}
}

// =============================================================================
// Serial draw
// =============================================================================

func TestView_DrawSerial(t *testing.T) {
	f := newDrawFixture(t)
	g := &mockGlobalData{}
	f.scene.globalData = append(f.scene.globalData, g)

	cb := f.r.NewCommandBuffer()
	if err := f.view.Draw(cb, nil); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	want := []string{
		"draw shadow0",
		"draw shadow1",
		"draw lights",
		"draw compute",
		"begin-pass main@primary viewport=[0,0 64,32] clear=(1,0,0,1 d0 s0) clear=(0,0,0,0 d1 s0)",
		"draw opaque",
		"draw cutout",
		"draw sky",
		"next-subpass main subpass=1",
		"next-subpass main subpass=2",
		"draw transparent",
		"end-pass main",
	}
	if got := cb.Flatten(); !slices.Equal(got, want) {
		t.Errorf("trace:\n%s\nwant:\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}

	if g.populated != 1 || g.finished != 1 {
		t.Errorf("global data populated=%d finished=%d, want 1, 1", g.populated, g.finished)
	}
	for _, name := range []string{"opaque", "cutout", "sky", "transparent"} {
		if got := f.lists[name].preRenderRan; got != 1 {
			t.Errorf("%s PreRenderPass ran %d times, want 1", name, got)
		}
	}
	if f.lists["blur"].commits.Load() != 0 || f.lists["blur"].preRenderRan != 0 {
		t.Error("list of a skipped framebuffer was committed")
	}
	if got := f.lists["prep"].commits.Load(); got != 1 {
		t.Errorf("prep commits = %d, want 1", got)
	}
}

func TestView_DrawCommitErrorsAreLogged(t *testing.T) {
	f := newDrawFixture(t)
	f.lists["cutout"].failCommit = true

	cb := f.r.NewCommandBuffer()
	if err := f.view.Draw(cb, nil); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	lines := cb.Flatten()
	if slices.Contains(lines, "draw cutout") {
		t.Error("failed list drew")
	}
	if !slices.Contains(lines, "draw sky") {
		t.Error("draw stopped after a failed commit")
	}
}

func TestView_DrawErrors(t *testing.T) {
	f := newDrawFixture(t)
	if err := f.view.Draw(nil, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Draw(nil) error = %v, want %v", err, ErrInvalidArgument)
	}
	_ = f.view.Destroy()
	if err := f.view.Draw(f.r.NewCommandBuffer(), nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Draw() after Destroy error = %v, want %v", err, ErrDestroyed)
	}
}
