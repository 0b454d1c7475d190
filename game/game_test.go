package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/renderer"
	"github.com/pthm-cable/smoke/telemetry"
	"github.com/pthm-cable/smoke/volume"
)

func init() {
	config.MustInit("")
}

func testConfig(t *testing.T, mutate func(*config.Config)) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Grid.X, cfg.Grid.Y, cfg.Grid.Z = 16, 16, 16
	cfg.Grid.Workers = 2
	if mutate != nil {
		mutate(cfg)
	}
	cfg.Recompute()
	return cfg
}

func newTestGame(t *testing.T, opts Options) *Game {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig(t, nil)
	}
	opts.Headless = true
	g, err := NewGame(opts)
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

func runTicks(t *testing.T, g *Game, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := g.UpdateHeadless(); err != nil {
			t.Fatalf("tick %d: %v", g.Tick(), err)
		}
	}
}

func TestHeadlessStepsInjectSmoke(t *testing.T) {
	g := newTestGame(t, Options{StepsPerUpdate: 5})

	runTicks(t, g, 2)

	if g.Tick() != 10 {
		t.Errorf("expected tick 10, got %d", g.Tick())
	}
	if g.Injecting() != 1 {
		t.Errorf("expected 1 injecting site, got %d", g.Injecting())
	}
	m := g.Measurements()
	if m.DensityMass <= 0 {
		t.Errorf("expected density mass > 0, got %.4f", m.DensityMass)
	}
	if g.SimTime() <= 0 {
		t.Errorf("expected sim time > 0, got %.4f", g.SimTime())
	}
}

func TestExplosiveWaitsForFirstBurst(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Simulation.Mode = "explosive"
		c.Modes.Explosive.FirstDelay = 1
	})
	g := newTestGame(t, Options{Config: cfg})

	// half a second of ticks, before the first burst
	runTicks(t, g, 30)

	if g.Injecting() != 0 {
		t.Errorf("expected no injection before the first burst, got %d", g.Injecting())
	}
	if m := g.Measurements(); m.DensityMass != 0 {
		t.Errorf("expected no density before the first burst, got %.4f", m.DensityMass)
	}
}

func TestEmitterEdits(t *testing.T) {
	g := newTestGame(t, Options{})

	if err := g.AddInjection(); err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := g.Emitters().Count(); n != 2 {
		t.Errorf("expected 2 emitters after add, got %d", n)
	}
	sites := g.Emitters().Sites()
	if sites[1].Position.X <= sites[0].Position.X {
		t.Errorf("expected duplicate shifted along x, got %.4f <= %.4f", sites[1].Position.X, sites[0].Position.X)
	}

	for i := 0; i < 2; i++ {
		if err := g.RemoveInjection(); err != nil {
			t.Fatalf("remove %d: %v", i, err)
		}
	}
	if n := g.Emitters().Count(); n != 0 {
		t.Errorf("expected 0 emitters, got %d", n)
	}
	if err := g.RemoveInjection(); !errors.Is(err, fluid.ErrInjectionIndex) {
		t.Errorf("expected ErrInjectionIndex removing from empty list, got %v", err)
	}
}

func TestCycleObstacle(t *testing.T) {
	g := newTestGame(t, Options{})

	want := []string{"sphere", "cube", "none"}
	for i, name := range want {
		if err := g.CycleObstacle(); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if got := g.ObstacleName(); got != name {
			t.Errorf("cycle %d: expected %s, got %s", i, name, got)
		}
	}
}

func TestResetClearsQuantities(t *testing.T) {
	g := newTestGame(t, Options{})
	runTicks(t, g, 5)
	tick := g.Tick()

	if err := g.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if g.Tick() != tick {
		t.Errorf("expected reset to keep tick %d, got %d", tick, g.Tick())
	}
	if m := g.Fluid().Measure(); m.DensityMass != 0 {
		t.Errorf("expected zero density after reset, got %.4f", m.DensityMass)
	}
}

func TestScaleGridClamps(t *testing.T) {
	g := newTestGame(t, Options{})

	if err := g.ScaleGrid(0.5); err != nil {
		t.Fatalf("scale down: %v", err)
	}
	if d := g.Fluid().Dims(); d.X != MinGridSize {
		t.Errorf("expected edge clamped to %d, got %d", MinGridSize, d.X)
	}

	if err := g.ScaleGrid(2); err != nil {
		t.Fatalf("scale up: %v", err)
	}
	if d := g.Fluid().Dims(); d != (volume.Dims{X: 32, Y: 32, Z: 32}) {
		t.Errorf("expected 32^3 after doubling, got %s", d)
	}
}

func TestOutputDirWritesStats(t *testing.T) {
	dir := t.TempDir()
	g := newTestGame(t, Options{OutputDir: dir, StatsWindowSec: 0.05})

	runTicks(t, g, 6)

	f, err := os.Open(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatalf("open stats.csv: %v", err)
	}
	defer f.Close()

	var rows []telemetry.WindowStats
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		t.Fatalf("unmarshal stats.csv: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected at least one stats window")
	}
	if rows[len(rows)-1].DensityMass <= 0 {
		t.Errorf("expected density mass in last window, got %.4f", rows[len(rows)-1].DensityMass)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot missing: %v", err)
	}
}

func TestRenderImageSize(t *testing.T) {
	g := newTestGame(t, Options{})
	runTicks(t, g, 3)

	img, err := g.RenderImage(32, 24)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("expected 32x24 image, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestStatsCallbackReceivesWindows(t *testing.T) {
	var windows []telemetry.WindowStats
	g := newTestGame(t, Options{
		StatsWindowSec: 0.05,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})

	runTicks(t, g, 9)

	if len(windows) < 2 {
		t.Fatalf("expected at least 2 windows, got %d", len(windows))
	}
	for i := 1; i < len(windows); i++ {
		if windows[i].WindowEndTick <= windows[i-1].WindowEndTick {
			t.Errorf("window %d: end tick %d not after %d", i, windows[i].WindowEndTick, windows[i-1].WindowEndTick)
		}
	}
}

func TestHeadlessRenderTimesRenderStages(t *testing.T) {
	cfg := testConfig(t, func(c *config.Config) {
		c.Screen.Width, c.Screen.Height = 32, 24
	})
	g := newTestGame(t, Options{Config: cfg, HeadlessRender: true})

	runTicks(t, g, 2)

	stats := g.PerfStats()
	if _, ok := stats.PhaseAvg[renderer.StageRayMarching]; !ok {
		t.Errorf("expected %s in perf phases, got %v", renderer.StageRayMarching, stats.PhaseAvg)
	}
	if _, ok := stats.PhaseAvg[fluid.StagePressure]; !ok {
		t.Errorf("expected %s in perf phases, got %v", fluid.StagePressure, stats.PhaseAvg)
	}
}
