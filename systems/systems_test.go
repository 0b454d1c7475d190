package systems

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/components"
	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/volume"
)

func init() {
	config.MustInit("")
}

func site(x float64) fluid.InjectionProperties {
	s := fluid.DefaultInjection()
	s.Position.X = x
	return s
}

func newEmitters(t *testing.T, xs ...float64) (*ecs.World, *EmitterSystem) {
	t.Helper()
	w := ecs.NewWorld()
	es := NewEmitterSystem(w)
	for _, x := range xs {
		es.Spawn(site(x))
	}
	return w, es
}

func positionsX(sites []fluid.InjectionProperties) []float64 {
	out := make([]float64, len(sites))
	for i, s := range sites {
		out[i] = s.Position.X
	}
	return out
}

// ---------- EmitterSystem ----------

func TestEmitters_SpawnKeepsOrder(t *testing.T) {
	_, es := newEmitters(t, 0.1, 0.2, 0.3)

	if es.Count() != 3 {
		t.Fatalf("count = %d, want 3", es.Count())
	}
	got := positionsX(es.Sites())
	if !slices.Equal(got, []float64{0.1, 0.2, 0.3}) {
		t.Errorf("sites x = %v", got)
	}
}

func TestEmitters_Duplicate(t *testing.T) {
	_, es := newEmitters(t, 0.25)

	if _, err := es.Duplicate(); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	got := positionsX(es.Sites())
	if len(got) != 2 || math.Abs(got[1]-0.5) > 1e-12 {
		t.Errorf("expected copy at x=0.5, got %v", got)
	}

	_, empty := newEmitters(t)
	if _, err := empty.Duplicate(); !errors.Is(err, ErrNoEmitters) {
		t.Errorf("expected ErrNoEmitters, got %v", err)
	}
}

func TestEmitters_RemoveRenumbers(t *testing.T) {
	_, es := newEmitters(t, 0.1, 0.2, 0.3, 0.4)

	if err := es.Remove(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := positionsX(es.Sites()); !slices.Equal(got, []float64{0.1, 0.3, 0.4}) {
		t.Errorf("after remove: %v", got)
	}

	// New emitters go to the end after a removal
	es.Spawn(site(0.9))
	if got := positionsX(es.Sites()); !slices.Equal(got, []float64{0.1, 0.3, 0.4, 0.9}) {
		t.Errorf("after spawn: %v", got)
	}

	if err := es.Remove(7); !errors.Is(err, fluid.ErrInjectionIndex) {
		t.Errorf("expected ErrInjectionIndex, got %v", err)
	}
}

func TestEmitters_CollectAppliesGain(t *testing.T) {
	_, es := newEmitters(t, 0.1, 0.2)
	entities := es.Entities()
	es.Emitter(entities[0]).Gain = 0.5
	es.Emitter(entities[1]).Disabled = true

	sites := es.Collect(false)
	if len(sites) != 1 {
		t.Fatalf("expected disabled emitter skipped, got %d sites", len(sites))
	}
	base := fluid.DefaultInjection()
	if math.Abs(sites[0].DensityIntensity-0.5*base.DensityIntensity) > 1e-12 {
		t.Errorf("density intensity = %.4f, want %.4f", sites[0].DensityIntensity, 0.5*base.DensityIntensity)
	}
	if math.Abs(sites[0].VelocityIntensity-0.5*base.VelocityIntensity) > 1e-12 {
		t.Errorf("velocity intensity = %.4f, want %.4f", sites[0].VelocityIntensity, 0.5*base.VelocityIntensity)
	}
	if sites[0].DensitySigma != base.DensitySigma {
		t.Errorf("sigma should not scale: %.4f", sites[0].DensitySigma)
	}
}

func TestEmitters_SyncIntoFluid(t *testing.T) {
	_, es := newEmitters(t, 0.2, 0.7)
	d := volume.NewDispatcher(1)
	defer d.Close()
	f := fluid.New(d, fluid.DefaultParams())

	if n := es.Sync(f, false); n != 2 {
		t.Errorf("synced %d, want 2", n)
	}
	if got := positionsX(f.Injections()); !slices.Equal(got, []float64{0.2, 0.7}) {
		t.Errorf("fluid injections x = %v", got)
	}
}

// ---------- Orbit ----------

func TestOrbit_MovesAroundCenter(t *testing.T) {
	w, es := newEmitters(t, 0.5)
	e := es.Entities()[0]
	es.SetOrbit(e, components.Orbit{
		Center: r3.Vec{X: 0.5, Y: 0.3, Z: 0.5},
		Radius: 0.25,
		Speed:  45,
		Sense:  1,
	})

	sys := NewOrbitSystem(w)
	sys.Update(2) // 90 degrees

	pos := es.Emitter(e).Site.Position
	want := r3.Vec{X: 0.5, Y: 0.3, Z: 0.75}
	if r3.Norm(r3.Sub(pos, want)) > 1e-9 {
		t.Errorf("position after 90 degrees = %v, want %v", pos, want)
	}
}

func TestApplyMode_RotatedAlternatesSense(t *testing.T) {
	w, es := newEmitters(t, 0.2, 0.4, 0.6)
	ms := DefaultModeSettings()
	ApplyMode(es, ModeRotated, ms, es.Sites())

	before := es.Sites()
	NewOrbitSystem(w).Update(1)
	after := es.Sites()

	for i := range before {
		// angular motion about the centre, sign of the cross product y component
		a := r3.Sub(before[i].Position, ms.OrbitCenter)
		b := r3.Sub(after[i].Position, ms.OrbitCenter)
		turn := a.Z*b.X - a.X*b.Z
		wantSign := 1.0
		if i%2 == 1 {
			wantSign = -1
		}
		if turn*wantSign >= 0 {
			t.Errorf("emitter %d turned the wrong way (cross %.4f)", i, turn)
		}
		if math.Abs(r3.Norm(b)-ms.OrbitRadius) > 1e-9 {
			t.Errorf("emitter %d left the orbit radius: %.4f", i, r3.Norm(b))
		}
	}
}

func TestApplyMode_ContinuousRestoresPositions(t *testing.T) {
	w, es := newEmitters(t, 0.2, 0.4)
	base := es.Sites()
	ms := DefaultModeSettings()

	ApplyMode(es, ModeRotated, ms, base)
	NewOrbitSystem(w).Update(0.5)
	ApplyMode(es, ModeContinuous, ms, base)

	for _, e := range es.Entities() {
		if es.HasOrbit(e) || es.HasBurst(e) {
			t.Errorf("expected motion components removed")
		}
	}
	if got := positionsX(es.Sites()); !slices.Equal(got, []float64{0.2, 0.4}) {
		t.Errorf("positions not restored: %v", got)
	}
}

// ---------- Burst ----------

func TestBurst_FiresOnSchedule(t *testing.T) {
	w, es := newEmitters(t, 0.5)
	ms := DefaultModeSettings()
	ApplyMode(es, ModeExplosive, ms, es.Sites())
	sys := NewBurstSystem(w)

	var fireTimes []int
	for tick := 1; tick <= 12; tick++ {
		if sys.Update(1) > 0 {
			fireTimes = append(fireTimes, tick)
		}
	}
	// first after 1s, then every 5s
	if !slices.Equal(fireTimes, []int{1, 6, 11}) {
		t.Errorf("fired at %v, want [1 6 11]", fireTimes)
	}
}

func TestBurst_CollectOnlyFired(t *testing.T) {
	w, es := newEmitters(t, 0.3, 0.6)
	ms := DefaultModeSettings()
	ApplyMode(es, ModeExplosive, ms, es.Sites())
	sys := NewBurstSystem(w)

	fired := sys.Update(0.5)
	if fired != 0 || len(es.Collect(true)) != 0 {
		t.Errorf("expected nothing before the first burst, fired %d", fired)
	}
	opt := StepOptions(ModeExplosive, ms, fired)
	if !opt.SkipInjection {
		t.Error("expected injection skipped without a burst")
	}

	fired = sys.Update(0.5)
	if fired != 2 || len(es.Collect(true)) != 2 {
		t.Errorf("expected both emitters to burst, fired %d", fired)
	}
	opt = StepOptions(ModeExplosive, ms, fired)
	if opt.SkipInjection || opt.InjectDT != ms.InjectDT {
		t.Errorf("unexpected burst options %+v", opt)
	}
}

func TestUntilNext(t *testing.T) {
	b := components.Burst{Delay: 1, Interval: 5, Elapsed: 3, Count: 1}
	if got := UntilNext(b); math.Abs(got-3) > 1e-12 {
		t.Errorf("until next = %.4f, want 3", got)
	}
}

// ---------- Flicker ----------

func TestFlicker_GainBounded(t *testing.T) {
	w, es := newEmitters(t, 0.5)
	e := es.Entities()[0]
	es.SetFlicker(e, components.Flicker{Amplitude: 0.3, Frequency: 1.5})
	sys := NewFlickerSystem(w, 7)

	varied := false
	for i := 0; i < 200; i++ {
		sys.Update(1.0 / 30)
		g := es.Emitter(e).Gain
		if g < 0.7-1e-9 || g > 1.3+1e-9 {
			t.Fatalf("gain %.4f outside [0.7, 1.3]", g)
		}
		if math.Abs(g-1) > 1e-3 {
			varied = true
		}
	}
	if !varied {
		t.Error("expected gain to vary over time")
	}
}

func TestFlicker_Deterministic(t *testing.T) {
	fl := components.Flicker{Amplitude: 0.5, Frequency: 2, Offset: 3}
	a := NewFlickerSystem(ecs.NewWorld(), 1)
	b := NewFlickerSystem(ecs.NewWorld(), 1)
	for i := 0; i < 10; i++ {
		a.Update(0.1)
		b.Update(0.1)
		if a.Gain(fl) != b.Gain(fl) {
			t.Fatalf("step %d: gains differ for the same seed", i)
		}
	}
}

func TestFlicker_ClearResetsGain(t *testing.T) {
	w, es := newEmitters(t, 0.5)
	e := es.Entities()[0]
	es.SetFlicker(e, components.Flicker{Amplitude: 0.5, Frequency: 3})
	NewFlickerSystem(w, 2).Update(0.37)

	es.ClearFlicker()
	if es.HasFlicker(e) || es.Emitter(e).Gain != 1 {
		t.Errorf("expected flicker removed and gain 1, got %.4f", es.Emitter(e).Gain)
	}
}

// ---------- Modes ----------

func TestParseMode(t *testing.T) {
	for i, name := range ModeNames() {
		m, err := ParseMode(name)
		if err != nil || int(m) != i {
			t.Errorf("%q: got %v, %v", name, m, err)
		}
	}
	if _, err := ParseMode("sideways"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if ModeExplosive.Next() != ModeContinuous {
		t.Errorf("expected wrap to continuous")
	}
	if StepOptions(ModeContinuous, DefaultModeSettings(), 0) != (fluid.StepOptions{}) {
		t.Error("continuous mode should use default step options")
	}
}

func TestModeSettingsFromConfigMatchesDefaults(t *testing.T) {
	if got := ModeSettingsFromConfig(config.Cfg()); got != DefaultModeSettings() {
		t.Errorf("got %+v, want %+v", got, DefaultModeSettings())
	}
}

// ---------- Registry ----------

func TestRegistryCoversStages(t *testing.T) {
	reg := NewSystemRegistry()
	for _, id := range []string{fluid.StagePressure, "flicker", "ray_marching"} {
		if _, ok := reg.Get(id); !ok {
			t.Errorf("missing %q", id)
		}
	}
	if got := reg.GetName("unknown_stage"); got != "unknown_stage" {
		t.Errorf("fallback name = %q", got)
	}
	if !slices.Equal(reg.Categories(), []string{"emitters", "simulation", "render"}) {
		t.Errorf("categories = %v", reg.Categories())
	}
}
