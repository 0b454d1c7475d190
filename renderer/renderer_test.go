package renderer

import (
	"errors"
	"image"
	"image/color"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/camera"
	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/volume"
)

func init() {
	config.MustInit("")
}

const viewSize = 32

func newTestScene(t *testing.T, dims volume.Dims, mutate func(*Settings)) (*fluid.Fluid, *Raymarcher) {
	t.Helper()
	d := volume.NewDispatcher(0)
	t.Cleanup(d.Close)

	p := fluid.DefaultParams()
	p.Injections = nil
	f := fluid.New(d, p)
	if err := f.Initialize(dims); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	s := DefaultSettings()
	if mutate != nil {
		mutate(&s)
	}
	return f, New(d, s)
}

func testView() View {
	cam := camera.New(viewSize, viewSize)
	return View{ViewProjection: cam.ViewProjection(), Width: viewSize, Height: viewSize}
}

func fillDensity(f *fluid.Fluid, v float32) {
	fd := f.Density().Ping()
	d := fd.Dims()
	for z := 0; z < d.Z; z++ {
		for y := 0; y < d.Y; y++ {
			for x := 0; x < d.X; x++ {
				fd.SetVoxel(x, y, z, [4]float32{v, v, v, v})
			}
		}
	}
}

type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(name string) {
	r.phases = append(r.phases, name)
}

func TestParseDebugMode(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want DebugMode
	}{
		{"", DebugDisabled},
		{"disabled", DebugDisabled},
		{"front_faces", DebugFrontFaces},
		{"back_faces", DebugBackFaces},
		{"directions", DebugDirections},
	} {
		got, err := ParseDebugMode(tc.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
	if _, err := ParseDebugMode("wireframe"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestDebugModeCycles(t *testing.T) {
	m := DebugDisabled
	seen := []DebugMode{m}
	for i := 0; i < 3; i++ {
		m = m.Next()
		seen = append(seen, m)
	}
	want := []DebugMode{DebugDisabled, DebugFrontFaces, DebugBackFaces, DebugDirections}
	if !slices.Equal(seen, want) {
		t.Errorf("got %v, want %v", seen, want)
	}
	if m.Next() != DebugDisabled {
		t.Errorf("expected wrap to disabled, got %v", m.Next())
	}
}

func TestSettingsFromConfigMatchesDefaults(t *testing.T) {
	s, err := SettingsFromConfig(config.Cfg())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s != DefaultSettings() {
		t.Errorf("got %+v, want %+v", s, DefaultSettings())
	}
}

func TestModelMatrix(t *testing.T) {
	m := ModelMatrix(volume.Dims{X: 32, Y: 64, Z: 16})

	for _, tc := range []struct {
		in, want r3.Vec
	}{
		{r3.Vec{}, r3.Vec{X: -0.25, Y: -0.5, Z: -0.125}},
		{r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: 0.25, Y: 0.5, Z: 0.125}},
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, r3.Vec{}},
	} {
		got := camera.Project(m, tc.in)
		if r3.Norm(r3.Sub(got, tc.want)) > 1e-9 {
			t.Errorf("model(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestInverseMVPRoundTrip(t *testing.T) {
	dims := volume.Dims{X: 16, Y: 16, Z: 16}
	vp := testView().ViewProjection
	inv, err := InverseMVP(vp, dims)
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	var mvp, id mat.Dense
	mvp.Mul(vp, ModelMatrix(dims))
	id.Mul(&mvp, inv)
	if !mat.EqualApprox(&id, mat.NewDiagDense(4, []float64{1, 1, 1, 1}), 1e-9) {
		t.Errorf("mvp * inverse is not identity:\n%v", mat.Formatted(&id))
	}
}

func TestIntersectUnitBox(t *testing.T) {
	near, far, hit := intersectUnitBox([3]float64{0.5, 0.5, -1}, [3]float64{0, 0, 1})
	if !hit || math.Abs(near-1) > 1e-9 || math.Abs(far-2) > 1e-9 {
		t.Errorf("axis ray: hit=%v near=%.4f far=%.4f", hit, near, far)
	}
	if _, _, hit := intersectUnitBox([3]float64{2, 0.5, -1}, [3]float64{0, 0, 1}); hit {
		t.Error("expected miss for ray outside the box")
	}
	near, _, hit = intersectUnitBox([3]float64{0.5, 0.5, 0.5}, [3]float64{1, 0, 0})
	if !hit || near != 0 {
		t.Errorf("inside ray: hit=%v near=%.4f", hit, near)
	}
}

func TestRenderErrors(t *testing.T) {
	d := volume.NewDispatcher(1)
	defer d.Close()
	r := New(d, DefaultSettings())

	f := fluid.New(d, fluid.DefaultParams())
	if _, err := r.Render(f, testView()); !errors.Is(err, fluid.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if err := f.Initialize(volume.Dims{X: 8, Y: 8, Z: 8}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := r.Render(f, View{ViewProjection: testView().ViewProjection}); !errors.Is(err, ErrEmptyView) {
		t.Errorf("expected ErrEmptyView, got %v", err)
	}
}

func TestEmptyVolumeRendersBackground(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)

	img, err := r.Render(f, testView())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, viewSize, viewSize) {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	bg := r.Settings.Background
	want := color.RGBA{R: to8(float32(bg.X)), G: to8(float32(bg.Y)), B: to8(float32(bg.Z)), A: 255}
	for y := 0; y < viewSize; y++ {
		for x := 0; x < viewSize; x++ {
			if got := img.RGBAAt(x, y); got != want {
				t.Fatalf("pixel (%d, %d) = %v, want background %v", x, y, got, want)
			}
		}
	}
}

func TestDensityOccludesBackground(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(s *Settings) {
		s.Shadows = false
	})
	fillDensity(f, 1)

	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	centre := r.Target().Voxel(viewSize/2, viewSize/2, 0)
	bg := r.Settings.Background

	var diff float64
	for c, b := range []float64{bg.X, bg.Y, bg.Z} {
		diff += math.Abs(float64(centre[c]) - b)
	}
	if diff < 0.1 {
		t.Errorf("expected smoke to change the centre pixel, got %v", centre)
	}
}

func TestFrontAndBackFaceDebug(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(s *Settings) {
		s.Debug = DebugFrontFaces
	})
	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	front := r.Target().Voxel(viewSize/2, viewSize/2, 0)

	r.Settings.Debug = DebugBackFaces
	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	back := r.Target().Voxel(viewSize/2, viewSize/2, 0)

	for c := 0; c < 3; c++ {
		for _, v := range []float32{front[c], back[c]} {
			if v < -1e-4 || v > 1+1e-4 {
				t.Errorf("channel %d: face coordinate %.4f outside the unit box", c, v)
			}
		}
	}
	var dist float64
	for c := 0; c < 3; c++ {
		dist += float64((front[c] - back[c]) * (front[c] - back[c]))
	}
	if math.Sqrt(dist) < 0.5 {
		t.Errorf("expected entry and exit to be apart, got front %v back %v", front, back)
	}
}

func TestDirectionsDebugIsUnit(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(s *Settings) {
		s.Debug = DebugDirections
	})
	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, p := range [][2]int{{0, 0}, {viewSize / 2, viewSize / 2}, {viewSize - 1, 3}} {
		v := r.Target().Voxel(p[0], p[1], 0)
		n := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2]))
		if math.Abs(n-1) > 1e-4 {
			t.Errorf("pixel %v: direction length %.4f, want 1", p, n)
		}
	}
}

func TestShadowsAttenuateBehindDensity(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 12, Y: 12, Z: 12}, nil)

	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	unshadowed := f.Lighting().At(6, 6, 6, 0)
	for _, v := range f.Lighting().Data() {
		if v > float32(r.Settings.LightIntensity)+1e-4 {
			t.Fatalf("lighting %.4f exceeds intensity %.4f", v, r.Settings.LightIntensity)
		}
	}

	fillDensity(f, 0.2)
	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	shadowed := f.Lighting().At(6, 6, 6, 0)
	if shadowed >= unshadowed {
		t.Errorf("expected density to shadow the centre: clear %.4f, shadowed %.4f", unshadowed, shadowed)
	}
}

func TestRenderStageOrder(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(s *Settings) {
		s.Radiance = true
		s.Scattering = true
		s.Blur.Radiance.Enabled = true
		s.Blur.Obstacle.Enabled = true
		s.Blur.Shadows.Enabled = true
		s.Blur.Density.Enabled = true
	})
	if err := f.ChangeObstacle(fluid.ObstacleSphere); err != nil {
		t.Fatalf("change obstacle: %v", err)
	}
	timer := &recordingTimer{}
	r.SetTimer(timer)

	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := []string{
		StageBlurObstacle,
		StageBlurTemperature,
		StageBlurDensity,
		StageShadows,
		StageBlurShadows,
		StageRayMarching,
	}
	if !slices.Equal(timer.phases, want) {
		t.Errorf("stages: got %v, want %v", timer.phases, want)
	}
}

func TestObstacleBlurSkippedWithoutObstacle(t *testing.T) {
	f, r := newTestScene(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(s *Settings) {
		s.Shadows = false
		s.Blur.Obstacle.Enabled = true
	})
	timer := &recordingTimer{}
	r.SetTimer(timer)

	if err := r.RenderField(f, testView()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !slices.Equal(timer.phases, []string{StageRayMarching}) {
		t.Errorf("stages: got %v", timer.phases)
	}
}

func TestUpscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	fill := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.SetRGBA(x, y, fill)
		}
	}
	dst := Upscale(src, 16, 12)
	if dst.Bounds().Dx() != 16 || dst.Bounds().Dy() != 12 {
		t.Fatalf("unexpected size %v", dst.Bounds())
	}
	if got := dst.RGBAAt(7, 5); got != fill {
		t.Errorf("expected uniform colour %v, got %v", fill, got)
	}
}

func TestScaledSize(t *testing.T) {
	w, h := ScaledSize(1280, 720, 0.5)
	if w != 640 || h != 360 {
		t.Errorf("got %dx%d, want 640x360", w, h)
	}
	w, h = ScaledSize(3, 3, 0.01)
	if w != 1 || h != 1 {
		t.Errorf("got %dx%d, want 1x1", w, h)
	}
}

func TestSliceImageOrientation(t *testing.T) {
	dims := volume.Dims{X: 4, Y: 3, Z: 2}
	fd := volume.New("slice", dims, volume.RGBA)
	// one bright voxel at the bottom-left of slice z=1
	fd.SetVoxel(0, 0, 1, [4]float32{1, 0, 0, 0})
	// one negative voxel at the top-right of slice z=1
	fd.SetVoxel(3, 2, 1, [4]float32{-1, 0, 0, 0})

	img, err := SliceImage(fd, AxisZ, 1, 0, 1)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("expected 4x3 image, got %v", b)
	}
	if got := img.RGBAAt(0, 2); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("expected white bottom-left, got %v", got)
	}
	if got := img.RGBAAt(3, 0); got.B != 255 || got.R != 0 {
		t.Errorf("expected blue top-right, got %v", got)
	}
	if got := img.RGBAAt(1, 1); got != (color.RGBA{A: 255}) {
		t.Errorf("expected black elsewhere, got %v", got)
	}

	side, err := SliceImage(fd, AxisX, 0, ChannelMagnitude, 1)
	if err != nil {
		t.Fatalf("side slice: %v", err)
	}
	if b := side.Bounds(); b.Dx() != 2 || b.Dy() != 3 {
		t.Errorf("expected 2x3 side image, got %v", b)
	}
	if got := side.RGBAAt(1, 2); got.R != 255 {
		t.Errorf("expected magnitude 1 at z=1 y=0, got %v", got)
	}
}

func TestSliceImageRange(t *testing.T) {
	fd := volume.New("slice", volume.Dims{X: 2, Y: 2, Z: 2}, volume.R)
	if _, err := SliceImage(fd, AxisY, 2, 0, 1); !errors.Is(err, ErrSliceRange) {
		t.Errorf("expected ErrSliceRange for index, got %v", err)
	}
	if _, err := SliceImage(fd, AxisZ, 0, 1, 1); !errors.Is(err, ErrSliceRange) {
		t.Errorf("expected ErrSliceRange for channel, got %v", err)
	}
	if AxisZ.Next() != AxisX {
		t.Errorf("expected axis cycle to wrap, got %s", AxisZ.Next())
	}
}
