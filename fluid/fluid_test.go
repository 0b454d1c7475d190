package fluid

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

func init() {
	config.MustInit("")
}

func newTestFluid(t *testing.T, dims volume.Dims, mutate func(*Params)) *Fluid {
	t.Helper()
	d := volume.NewDispatcher(0)
	t.Cleanup(d.Close)

	p := DefaultParams()
	if mutate != nil {
		mutate(&p)
	}
	f := New(d, p)
	if err := f.Initialize(dims); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return f
}

func maxChannel(fd *volume.Field, c int) float32 {
	var m float32
	for z := 0; z < fd.Dims().Z; z++ {
		for y := 0; y < fd.Dims().Y; y++ {
			for x := 0; x < fd.Dims().X; x++ {
				m = max(m, fd.At(x, y, z, c))
			}
		}
	}
	return m
}

func allZero(fd *volume.Field) bool {
	for _, v := range fd.Data() {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestParamsFromConfigMatchesDefaults(t *testing.T) {
	p := ParamsFromConfig(config.Cfg())
	want := DefaultParams()

	if p.Losses != want.Losses {
		t.Errorf("losses: got %+v, want %+v", p.Losses, want.Losses)
	}
	if p.Pressure != want.Pressure {
		t.Errorf("pressure: got %+v, want %+v", p.Pressure, want.Pressure)
	}
	if len(p.Injections) != 1 || p.Injections[0] != want.Injections[0] {
		t.Errorf("injections: got %+v, want %+v", p.Injections, want.Injections)
	}
	if p.Buoyancy.Direction != (r3.Vec{Y: 1}) {
		t.Errorf("buoyancy direction: got %v", p.Buoyancy.Direction)
	}
}

func TestStepBeforeInitialize(t *testing.T) {
	d := volume.NewDispatcher(1)
	defer d.Close()
	f := New(d, DefaultParams())
	if err := f.Step(0.1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestNoInjectionStaysEmpty(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 16, Y: 16, Z: 16}, func(p *Params) {
		p.Injections = nil
	})
	if err := f.Resize(volume.Dims{X: 12, Y: 12, Z: 12}); err != nil {
		t.Fatal(err)
	}
	if err := f.Step(1.0 / 60); err != nil {
		t.Fatalf("step: %v", err)
	}
	if !allZero(f.Density().Ping()) {
		t.Error("expected density to stay zero without injections")
	}
	if !allZero(f.Temperature().Ping()) {
		t.Error("expected temperature to stay zero without injections")
	}
	if f.Dims() != (volume.Dims{X: 12, Y: 12, Z: 12}) {
		t.Errorf("dims after resize: got %s", f.Dims())
	}
}

func TestSwapTwiceRestores(t *testing.T) {
	q := NewQuantity("q", volume.Dims{X: 2, Y: 2, Z: 2}, volume.R, nil)
	ping, pong := q.Ping(), q.Pong()
	q.Swap()
	if q.Ping() != pong || q.Pong() != ping {
		t.Fatal("single swap did not exchange buffers")
	}
	q.Swap()
	if q.Ping() != ping || q.Pong() != pong {
		t.Error("double swap did not restore buffers")
	}
}

func TestQuantityPropertyErrors(t *testing.T) {
	q := NewQuantity("q", volume.Dims{X: 2, Y: 2, Z: 2}, volume.R, nil)
	if _, err := q.Property("missing"); !errors.Is(err, param.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := q.SetProperty("dissipation", param.Float(0.1)); err != nil {
		t.Fatal(err)
	}
	if err := q.SetProperty("dissipation", param.Int(1)); !errors.Is(err, param.ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch on set, got %v", err)
	}
	if _, err := q.Vec3("dissipation"); !errors.Is(err, param.ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch on typed get, got %v", err)
	}
}

func TestInjectWithoutStrategy(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	if err := f.PressureField().Inject(f.Context(), r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1); err == nil {
		t.Error("expected error injecting into a quantity without a strategy")
	}
}

func TestInjectThenAdvectPeakBound(t *testing.T) {
	const (
		intensity   = 100.0
		dissipation = 0.1
	)
	dims := volume.Dims{X: 16, Y: 16, Z: 16}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()
	q := f.Density()

	for name, v := range map[string]param.Value{
		"sigma":     param.Float(1),
		"intensity": param.Float(intensity),
		"color":     param.Vec3(r3.Vec{X: 1, Y: 1, Z: 1}),
	} {
		if err := q.SetProperty(name, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Inject(ctx, r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, 1); err != nil {
		t.Fatalf("inject: %v", err)
	}
	injected := maxChannel(q.Ping(), 0)
	if injected <= 0 {
		t.Fatal("expected injection to deposit density")
	}

	zero := volume.New("zero", dims, volume.RGBA)
	if err := (SemiLagrangian{}).Advect(ctx, f.ObstacleMask(), zero, q.Ping(), q.Pong(), dissipation, 0, 1); err != nil {
		t.Fatalf("advect: %v", err)
	}
	q.Swap()

	peak := maxChannel(q.Ping(), 0)
	bound := float32(intensity / 3 * (1 - dissipation))
	if peak > bound+1e-4 {
		t.Errorf("peak %.4f exceeds bound %.4f", peak, bound)
	}
	if math.Abs(float64(peak-injected*(1-dissipation))) > 1e-3 {
		t.Errorf("zero-velocity advection: got peak %.4f, want %.4f", peak, injected*(1-dissipation))
	}
}

func TestSemiLagrangianShifts(t *testing.T) {
	dims := volume.Dims{X: 16, Y: 16, Z: 16}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()

	vel := volume.New("vel", dims, volume.RGBA)
	if err := vel.Fill(ctx, [4]float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}
	src := volume.New("src", dims, volume.R)
	dst := volume.New("dst", dims, volume.R)
	src.Set(5, 8, 8, 0, 1)

	if err := (SemiLagrangian{}).Advect(ctx, f.ObstacleMask(), vel, src, dst, 0, 0, 1); err != nil {
		t.Fatal(err)
	}
	if got := dst.At(6, 8, 8, 0); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("expected impulse moved to x=6, got %.4f", got)
	}
	if got := dst.At(5, 8, 8, 0); got != 0 {
		t.Errorf("expected x=5 emptied, got %.4f", got)
	}
}

func TestAdvectRejectsAliasedTarget(t *testing.T) {
	dims := volume.Dims{X: 8, Y: 8, Z: 8}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()

	vel := volume.New("vel", dims, volume.RGBA)
	src := volume.New("src", dims, volume.R)
	src.Set(3, 3, 3, 0, 1)

	if err := (SemiLagrangian{}).Advect(ctx, f.ObstacleMask(), vel, src, src, 0, 0, 1); !errors.Is(err, volume.ErrHazard) {
		t.Errorf("semi-Lagrangian: expected ErrHazard, got %v", err)
	}
	mc := NewMacCormack(true)
	defer mc.Release()
	if err := mc.Advect(ctx, f.ObstacleMask(), vel, src, src, 0, 0, 1); !errors.Is(err, volume.ErrHazard) {
		t.Errorf("MacCormack: expected ErrHazard, got %v", err)
	}
	if got := src.At(3, 3, 3, 0); got != 1 {
		t.Errorf("source modified by rejected advection: got %.4f", got)
	}
}

func TestAdvectDecayShrinksTowardZero(t *testing.T) {
	dims := volume.Dims{X: 8, Y: 8, Z: 8}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()

	zero := volume.New("zero", dims, volume.RGBA)
	src := volume.New("src", dims, volume.R)
	dst := volume.New("dst", dims, volume.R)
	src.Set(3, 3, 3, 0, 1)
	src.Set(4, 4, 4, 0, -1)
	src.Set(2, 2, 2, 0, 0.1)

	if err := (SemiLagrangian{}).Advect(ctx, f.ObstacleMask(), zero, src, dst, 0, 0.5, 1); err != nil {
		t.Fatal(err)
	}
	if got := dst.At(3, 3, 3, 0); math.Abs(float64(got-0.5)) > 1e-6 {
		t.Errorf("positive decay: got %.4f, want 0.5", got)
	}
	if got := dst.At(4, 4, 4, 0); math.Abs(float64(got+0.5)) > 1e-6 {
		t.Errorf("negative decay: got %.4f, want -0.5", got)
	}
	if got := dst.At(2, 2, 2, 0); got != 0 {
		t.Errorf("decay past zero: got %.4f, want 0", got)
	}
}

func TestAdvectZeroesSolid(t *testing.T) {
	dims := volume.Dims{X: 8, Y: 8, Z: 8}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()

	zero := volume.New("zero", dims, volume.RGBA)
	src := volume.New("src", dims, volume.R)
	dst := volume.New("dst", dims, volume.R)
	if err := src.Fill(ctx, [4]float32{1}); err != nil {
		t.Fatal(err)
	}
	if err := (SemiLagrangian{}).Advect(ctx, f.ObstacleMask(), zero, src, dst, 0, 0, 1); err != nil {
		t.Fatal(err)
	}
	if dst.At(0, 4, 4, 0) != 0 {
		t.Error("expected boundary shell voxel to be zero")
	}
	if dst.At(4, 4, 4, 0) != 1 {
		t.Error("expected interior voxel to keep its value")
	}
}

func TestMacCormackZeroVelocityIsIdentity(t *testing.T) {
	dims := volume.Dims{X: 10, Y: 10, Z: 10}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()

	zero := volume.New("zero", dims, volume.RGBA)
	src := volume.New("src", dims, volume.RGBA)
	dst := volume.New("dst", dims, volume.RGBA)
	for z := 1; z < 9; z++ {
		for y := 1; y < 9; y++ {
			for x := 1; x < 9; x++ {
				src.SetVoxel(x, y, z, [4]float32{float32(x), float32(y), float32(z), 1})
			}
		}
	}

	mc := NewMacCormack(true)
	if err := mc.Advect(ctx, f.ObstacleMask(), zero, src, dst, 0, 0, 0.5); err != nil {
		t.Fatalf("maccormack: %v", err)
	}
	for z := 1; z < 9; z++ {
		for y := 1; y < 9; y++ {
			for x := 1; x < 9; x++ {
				if dst.Voxel(x, y, z) != src.Voxel(x, y, z) {
					t.Fatalf("voxel (%d,%d,%d): got %v, want %v", x, y, z, dst.Voxel(x, y, z), src.Voxel(x, y, z))
				}
			}
		}
	}
	mc.Release()
}

func TestMacCormackClampBoundsResult(t *testing.T) {
	dims := volume.Dims{X: 16, Y: 16, Z: 16}
	f := newTestFluid(t, dims, nil)
	ctx := f.Context()

	vel := volume.New("vel", dims, volume.RGBA)
	if err := vel.Fill(ctx, [4]float32{0.7, 0.3, 0, 0}); err != nil {
		t.Fatal(err)
	}
	src := volume.New("src", dims, volume.R)
	dst := volume.New("dst", dims, volume.R)
	// sharp step the unclamped scheme overshoots on
	for z := 1; z < 15; z++ {
		for y := 1; y < 15; y++ {
			for x := 1; x < 8; x++ {
				src.Set(x, y, z, 0, 1)
			}
		}
	}

	mc := NewMacCormack(true)
	if err := mc.Advect(ctx, f.ObstacleMask(), vel, src, dst, 0, 0, 1); err != nil {
		t.Fatal(err)
	}
	for i, v := range dst.Data() {
		if v < -1e-6 || v > 1+1e-6 {
			t.Fatalf("clamped result out of source range at %d: %.4f", i, v)
		}
	}
}

func TestPressureIterationsClamped(t *testing.T) {
	dims := volume.Dims{X: 12, Y: 12, Z: 12}
	a := newTestFluid(t, dims, func(p *Params) { p.Pressure.Iterations = 0 })
	b := newTestFluid(t, dims, func(p *Params) { p.Pressure.Iterations = 20 })

	for _, f := range []*Fluid{a, b} {
		if err := f.Step(1.0 / 60); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if a.Pressure.Iterations != 20 {
		t.Errorf("expected iterations clamped to 20, got %d", a.Pressure.Iterations)
	}
	if !a.PressureField().Ping().Equal(b.PressureField().Ping()) {
		t.Error("pressure with 0 iterations differs from pressure with 20")
	}
	if allZero(b.PressureField().Ping()) {
		t.Error("expected non-zero pressure after injection")
	}
}

func TestNegativeGradientScaleClamped(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(p *Params) { p.Pressure.GradientScale = -2 })
	if err := f.Step(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	if f.Pressure.GradientScale != 1 {
		t.Errorf("expected gradient scale clamped to 1, got %.2f", f.Pressure.GradientScale)
	}
}

func TestDivergenceOfUniformFlow(t *testing.T) {
	dims := volume.Dims{X: 16, Y: 16, Z: 16}
	f := newTestFluid(t, dims, nil)
	if err := f.Velocity().Ping().Fill(f.Context(), [4]float32{2, 1, -1, 0}); err != nil {
		t.Fatal(err)
	}
	if err := f.ComputeDivergence(); err != nil {
		t.Fatal(err)
	}
	if got := f.Divergence().At(8, 8, 8, 0); math.Abs(float64(got)) > 1e-6 {
		t.Errorf("interior divergence of uniform flow: got %.6f, want 0", got)
	}
	// next to the solid shell the missing inflow shows up
	if got := f.Divergence().At(1, 8, 8, 0); got <= 0 {
		t.Errorf("expected positive divergence next to the x=0 wall, got %.4f", got)
	}
}

func TestProjectionReducesDivergence(t *testing.T) {
	dims := volume.Dims{X: 16, Y: 16, Z: 16}
	f := newTestFluid(t, dims, func(p *Params) {
		p.Pressure.Iterations = 60
		p.Features.Buoyancy = false
		p.Features.Vorticity = false
	})
	for i := 0; i < 3; i++ {
		if err := f.Step(1.0 / 60); err != nil {
			t.Fatal(err)
		}
	}
	before := MaxAbs(f.Divergence())
	if err := f.ComputeDivergence(); err != nil {
		t.Fatal(err)
	}
	after := MaxAbs(f.Divergence())
	if after >= before {
		t.Errorf("projection did not reduce divergence: %.4f -> %.4f", before, after)
	}
}

func TestVorticityOfRotation(t *testing.T) {
	dims := volume.Dims{X: 12, Y: 12, Z: 12}
	f := newTestFluid(t, dims, nil)
	vel := f.Velocity().Ping()
	// rigid rotation about z: u = (-y, x, 0), curl = (0, 0, 2)
	for z := 0; z < 12; z++ {
		for y := 0; y < 12; y++ {
			for x := 0; x < 12; x++ {
				vel.SetVoxel(x, y, z, [4]float32{-float32(y), float32(x), 0, 0})
			}
		}
	}
	if err := f.ComputeVorticity(); err != nil {
		t.Fatal(err)
	}
	w := f.VorticityField().Voxel(6, 6, 6)
	if math.Abs(float64(w[2]-2)) > 1e-5 || w[0] != 0 || w[1] != 0 {
		t.Errorf("curl of rotation: got (%.4f, %.4f, %.4f), want (0, 0, 2)", w[0], w[1], w[2])
	}
}

func TestBuoyancyLiftsHotVoxels(t *testing.T) {
	dims := volume.Dims{X: 8, Y: 8, Z: 8}
	f := newTestFluid(t, dims, nil)
	f.Temperature().Ping().Set(4, 4, 4, 0, 1)
	if err := f.ComputeBuoyancy(0.5); err != nil {
		t.Fatal(err)
	}
	// dt * strength * T = 0.5 * 10 * 1
	if got := f.Velocity().Ping().At(4, 4, 4, 1); math.Abs(float64(got-5)) > 1e-5 {
		t.Errorf("buoyant velocity: got %.4f, want 5", got)
	}
	if got := f.Velocity().Ping().At(3, 3, 3, 1); got != 0 {
		t.Errorf("cold voxel velocity: got %.4f, want 0", got)
	}
}

func TestObstacleRoundTrip(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 16, Y: 16, Z: 16}, nil)
	before := f.ObstacleMask().Clone()

	if err := f.ChangeObstacle(ObstacleCube); err != nil {
		t.Fatal(err)
	}
	if f.ObstacleMask().Equal(before) {
		t.Fatal("cube mask equals empty mask")
	}
	if f.ObstacleMask().At(8, 8, 8, 0) != 1 {
		t.Error("expected cube centre to be solid")
	}
	if err := f.ChangeObstacle(ObstacleNone); err != nil {
		t.Fatal(err)
	}
	if !f.ObstacleMask().Equal(before) {
		t.Error("mask after 0 -> 2 -> 0 differs from the original")
	}
}

func TestNoObstacleShell(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	m := f.ObstacleMask()
	if m.At(0, 3, 3, 0) != 1 || m.At(7, 3, 3, 0) != 1 || m.At(3, 3, 7, 0) != 1 {
		t.Error("expected boundary shell to be solid")
	}
	if m.At(3, 3, 3, 0) != 0 || m.At(1, 1, 1, 0) != 0 {
		t.Error("expected interior to be fluid")
	}
}

func TestSphereObstacle(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 20, Y: 20, Z: 20}, nil)
	if err := f.ChangeObstacle(ObstacleSphere); err != nil {
		t.Fatal(err)
	}
	m := f.ObstacleMask()
	if m.At(10, 10, 10, 0) != 1 {
		t.Error("expected sphere centre solid")
	}
	// corner of the bounding cube lies outside the sphere
	if m.At(6, 6, 6, 0) != 0 {
		t.Error("expected bounding-cube corner outside the sphere")
	}
}

func TestChangeObstacleOutOfRange(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	for _, i := range []int{-1, 3, 10} {
		if err := f.ChangeObstacle(i); !errors.Is(err, ErrObstacleIndex) {
			t.Errorf("index %d: expected ErrObstacleIndex, got %v", i, err)
		}
	}
}

func TestMoveAndResetObstacle(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 16, Y: 16, Z: 16}, nil)
	if _, ok := f.ObstaclePosition(); ok {
		t.Error("expected no position for the empty obstacle")
	}
	if err := f.ChangeObstacle(ObstacleSphere); err != nil {
		t.Fatal(err)
	}
	f.ObstacleMoved()

	target := r3.Vec{X: 0.3, Y: 0.6, Z: 0.5}
	if err := f.MoveObstacle(target); err != nil {
		t.Fatal(err)
	}
	pos, ok := f.ObstaclePosition()
	if !ok || pos != target {
		t.Errorf("obstacle position: got %v (%v), want %v", pos, ok, target)
	}
	if !f.ObstacleMoved() {
		t.Error("expected moved flag after MoveObstacle")
	}
	if f.ObstacleMoved() {
		t.Error("expected moved flag to clear after reading")
	}

	if err := f.ResetObstacle(); err != nil {
		t.Fatal(err)
	}
	pos, _ = f.ObstaclePosition()
	if pos != (r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}) {
		t.Errorf("position after reset: got %v", pos)
	}
}

func TestInjectionListOrder(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, func(p *Params) { p.Injections = nil })
	for i := 0; i < 3; i++ {
		site := DefaultInjection()
		site.Position.X = float64(i) * 0.25
		f.AddInjection(site)
	}
	// duplicates are allowed
	f.AddInjection(f.Injections()[0])

	if err := f.RemoveInjection(1); err != nil {
		t.Fatal(err)
	}
	got := f.Injections()
	if len(got) != 3 {
		t.Fatalf("expected 3 sites, got %d", len(got))
	}
	want := []float64{0, 0.5, 0}
	for i, w := range want {
		if got[i].Position.X != w {
			t.Errorf("site %d x: got %.2f, want %.2f", i, got[i].Position.X, w)
		}
	}
	if err := f.RemoveInjection(7); !errors.Is(err, ErrInjectionIndex) {
		t.Errorf("expected ErrInjectionIndex, got %v", err)
	}

	if err := f.Resize(volume.Dims{X: 10, Y: 10, Z: 10}); err != nil {
		t.Fatal(err)
	}
	if len(f.Injections()) != 3 {
		t.Error("injection list did not survive resize")
	}
}

func TestLossSetters(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	f.SetTemperatureDissipation(0.25)

	got, err := f.Temperature().Float("dissipation")
	if err != nil {
		t.Fatal(err)
	}
	if got != 0.25 {
		t.Errorf("temperature dissipation: got %.4f, want 0.25", got)
	}
	vel, _ := f.Velocity().Float("dissipation")
	if vel != 0.001 {
		t.Errorf("velocity dissipation changed to %.4f", vel)
	}

	f.SetDensityDecay(0.5)
	if err := f.Resize(volume.Dims{X: 6, Y: 6, Z: 6}); err != nil {
		t.Fatal(err)
	}
	decay, _ := f.Density().Float("decay")
	if decay != 0.5 {
		t.Errorf("density decay after resize: got %.4f, want 0.5", decay)
	}
}

func TestLossSetterMismatchIsLogged(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	f.Density().props = param.NewBag()
	if err := f.Density().SetProperty("decay", param.Int(1)); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	f.SetDensityDecay(0.5)

	if !strings.Contains(buf.String(), "loss not applied") {
		t.Errorf("expected a warning for the mismatched property, got %q", buf.String())
	}
	if f.Losses().DensityDecay != 0.5 {
		t.Errorf("stored density decay: got %.4f, want 0.5", f.Losses().DensityDecay)
	}
	if n, err := f.Density().Properties().Int("decay"); err != nil || n != 1 {
		t.Errorf("mismatched property changed: got %d (%v)", n, err)
	}
}

func TestObstacleEditsBeforeInitialize(t *testing.T) {
	d := volume.NewDispatcher(1)
	defer d.Close()
	f := New(d, DefaultParams())

	if err := f.MoveObstacle(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("move before initialize: expected ErrNotInitialized, got %v", err)
	}
	if err := f.ResetObstacle(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("reset before initialize: expected ErrNotInitialized, got %v", err)
	}
	if _, ok := f.ObstaclePosition(); ok {
		t.Error("expected no obstacle position before initialize")
	}
	if err := f.ChangeObstacle(ObstacleSphere); !errors.Is(err, ErrObstacleIndex) {
		t.Errorf("change before initialize: expected ErrObstacleIndex, got %v", err)
	}

	if err := f.Initialize(volume.Dims{X: 8, Y: 8, Z: 8}); err != nil {
		t.Fatal(err)
	}
	f.Reset()
	if err := f.MoveObstacle(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("move after reset: expected ErrNotInitialized, got %v", err)
	}
}

func TestResetIdempotent(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	f.Reset()
	if f.Initialized() {
		t.Fatal("expected fluid uninitialized after reset")
	}
	f.Reset()
	if err := f.Step(0.1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized after reset, got %v", err)
	}
}

type recordingTimer struct {
	phases []string
}

func (r *recordingTimer) StartPhase(name string) {
	r.phases = append(r.phases, name)
}

func TestStageOrder(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	rec := &recordingTimer{}
	f.SetTimer(rec)
	if err := f.Step(1.0 / 60); err != nil {
		t.Fatal(err)
	}
	want := []string{
		StageAdvection, StageInjection, StageBuoyancy, StageVorticity,
		StageConfinement, StageDivergence, StagePressure, StageSubtractGradient,
	}
	if len(rec.phases) != len(want) {
		t.Fatalf("phases: got %v, want %v", rec.phases, want)
	}
	for i := range want {
		if rec.phases[i] != want[i] {
			t.Errorf("phase %d: got %s, want %s", i, rec.phases[i], want[i])
		}
	}
}

func TestStepWithSkipInjection(t *testing.T) {
	f := newTestFluid(t, volume.Dims{X: 8, Y: 8, Z: 8}, nil)
	if err := f.StepWith(1.0/60, StepOptions{SkipInjection: true}); err != nil {
		t.Fatal(err)
	}
	if !allZero(f.Density().Ping()) {
		t.Error("expected no density when injection is skipped")
	}
	if err := f.StepWith(1.0/60, StepOptions{InjectDT: 1}); err != nil {
		t.Fatal(err)
	}
	if f.Measure().DensityMass <= 0 {
		t.Error("expected density after burst injection")
	}
}

func TestMeasureCenterOfMass(t *testing.T) {
	fd := volume.New("d", volume.Dims{X: 4, Y: 4, Z: 4}, volume.RGBA)
	fd.SetVoxel(1, 2, 3, [4]float32{3, 3, 3, 0})
	if m := Mass(fd); math.Abs(m-3) > 1e-9 {
		t.Errorf("mass: got %.4f, want 3", m)
	}
	c, ok := CenterOfMass(fd)
	if !ok {
		t.Fatal("expected centre of mass")
	}
	want := r3.Vec{X: 1.5 / 4, Y: 2.5 / 4, Z: 3.5 / 4}
	if r3.Norm(r3.Sub(c, want)) > 1e-9 {
		t.Errorf("centre of mass: got %v, want %v", c, want)
	}
	if _, ok := CenterOfMass(volume.New("e", volume.Dims{X: 2, Y: 2, Z: 2}, volume.R)); ok {
		t.Error("expected no centre of mass for an empty field")
	}
}

func TestSmokeRises(t *testing.T) {
	const dt = 1.0 / 60
	f := newTestFluid(t, volume.Dims{X: 32, Y: 32, Z: 32}, func(p *Params) {
		site := DefaultInjection()
		site.Position = r3.Vec{X: 0.5, Y: 0.1, Z: 0.5}
		p.Injections = []InjectionProperties{site}
		p.Buoyancy = BuoyancyProperties{Strength: 10, Weight: 10, Direction: r3.Vec{Y: 1}}
	})

	if err := f.Step(dt); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	first := f.Measure()
	if first.DensityMass <= 0 {
		t.Fatal("expected density after the first tick")
	}

	for i := 2; i <= 60; i++ {
		if err := f.Step(dt); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	last := f.Measure()
	if last.DensityMass <= 0 {
		t.Errorf("expected positive mass after 60 ticks, got %.4f", last.DensityMass)
	}
	if last.CenterOfMass.Y <= first.CenterOfMass.Y {
		t.Errorf("smoke did not rise: centre y %.4f at tick 1, %.4f at tick 60",
			first.CenterOfMass.Y, last.CenterOfMass.Y)
	}
}
