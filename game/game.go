// Package game hosts the smoke viewer: it owns the solver, renderer, emitter
// systems and telemetry, and drives them once per tick either headless or
// in a raylib window.
package game

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/smoke/camera"
	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/renderer"
	"github.com/pthm-cable/smoke/systems"
	"github.com/pthm-cable/smoke/telemetry"
	"github.com/pthm-cable/smoke/ui"
	"github.com/pthm-cable/smoke/volume"
)

// Options configures a Game.
type Options struct {
	Config         *config.Config // nil uses config.Cfg()
	Headless       bool
	LogStats       bool
	StatsWindowSec float64 // 0 uses the config value
	OutputDir      string  // empty disables CSV output
	StreamAddr     string  // empty disables the websocket stream
	StepsPerUpdate int
	HeadlessRender bool // headless updates also raymarch the last tick

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Game holds the complete viewer state.
type Game struct {
	cfg *config.Config

	dispatcher *volume.Dispatcher
	fluid      *fluid.Fluid
	raymarcher *renderer.Raymarcher
	camera     *camera.Camera

	// Emitter entities and the systems that move and gate them
	world        *ecs.World
	emitters     *systems.EmitterSystem
	orbits       *systems.OrbitSystem
	bursts       *systems.BurstSystem
	flicker      *systems.FlickerSystem
	registry     *systems.SystemRegistry
	mode         systems.Mode
	modeSettings systems.ModeSettings
	baseSites    []fluid.InjectionProperties
	flickerOn    bool

	// Telemetry
	perfCollector *telemetry.PerfCollector
	collector     *telemetry.Collector
	outputManager *telemetry.OutputManager
	stream        *telemetry.Stream
	statsCallback func(telemetry.WindowStats)
	logStats      bool

	// Viewer (nil when headless)
	frame    *FrameTexture
	hud      *ui.HUD
	perfUI   *ui.PerfPanel
	controls *ui.ControlPanel
	params   *ui.ControlPanel

	// State
	tick           int32
	simTime        float64
	dt             float64
	paused         bool
	headless       bool
	headlessRender bool
	stepsPerUpdate int
	injecting      int
	measure        fluid.Measurements
	frameDirty     bool
	showPerf       bool
	renderScale    float64
	err            error

	screenWidth, screenHeight int
}

// NewGame builds the solver at the configured resolution and seeds one
// emitter per configured injection site.
func NewGame(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	g := &Game{
		cfg:            cfg,
		dt:             cfg.Simulation.DT,
		headless:       opts.Headless,
		headlessRender: opts.HeadlessRender,
		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
		stepsPerUpdate: max(opts.StepsPerUpdate, 1),
		renderScale:    cfg.Render.Scale,
		screenWidth:    cfg.Screen.Width,
		screenHeight:   cfg.Screen.Height,
		frameDirty:     true,
	}
	if g.renderScale <= 0 {
		g.renderScale = 1
	}

	g.dispatcher = volume.NewDispatcher(cfg.Grid.Workers)
	g.dispatcher.SetWorkGroupSize(cfg.Grid.WorkGroupSize)

	params := fluid.ParamsFromConfig(cfg)
	g.fluid = fluid.New(g.dispatcher, params)
	if err := g.fluid.Initialize(cfg.Derived.Dims); err != nil {
		g.dispatcher.Close()
		return nil, fmt.Errorf("initializing fluid: %w", err)
	}

	settings, err := renderer.SettingsFromConfig(cfg)
	if err != nil {
		slog.Warn("ignoring render debug mode", "error", err)
	}
	g.raymarcher = renderer.New(g.dispatcher, settings)

	g.camera = newCamera(cfg)

	// Emitters
	g.world = ecs.NewWorld()
	g.emitters = systems.NewEmitterSystem(g.world)
	g.orbits = systems.NewOrbitSystem(g.world)
	g.bursts = systems.NewBurstSystem(g.world)
	g.flicker = systems.NewFlickerSystem(g.world, cfg.Flicker.Seed)
	g.registry = systems.NewSystemRegistry()
	for _, site := range params.Injections {
		g.emitters.Spawn(site)
	}
	g.baseSites = g.emitters.Sites()
	g.modeSettings = systems.ModeSettingsFromConfig(cfg)
	g.mode, err = systems.ParseMode(cfg.Simulation.Mode)
	if err != nil {
		slog.Warn("unknown simulation mode", "error", err, "using", g.mode.String())
	}
	g.flickerOn = cfg.Flicker.Enabled
	g.applyMode()

	// Telemetry
	g.perfCollector = telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	g.fluid.SetTimer(g.perfCollector)
	g.raymarcher.SetTimer(g.perfCollector)

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}
	g.collector = telemetry.NewCollector(statsWindow, float32(g.dt))

	g.outputManager, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		g.Unload()
		return nil, err
	}
	if err := g.outputManager.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	if opts.StreamAddr != "" {
		g.stream = telemetry.NewStream()
		if err := g.stream.Start(opts.StreamAddr); err != nil {
			g.Unload()
			return nil, fmt.Errorf("starting stats stream: %w", err)
		}
	}

	if !g.headless {
		g.frame = NewFrameTexture()
		g.hud = ui.NewHUD()
		g.controls = ui.NewControlPanel(10, 120, controlPanelWidth, g.controlPanel())
		g.params = ui.NewControlPanel(0, 10, controlPanelWidth, g.parameterPanel())
		g.perfUI = ui.NewPerfPanel(0, 10, controlPanelWidth)
		g.layoutPanels()
		g.camera.Resize(float64(g.screenWidth), float64(g.screenHeight))
	}

	slog.Info("game initialized",
		"dims", cfg.Derived.Dims.String(),
		"mode", g.mode.String(),
		"emitters", g.emitters.Count(),
		"headless", g.headless,
	)
	return g, nil
}

func newCamera(cfg *config.Config) *camera.Camera {
	c := camera.New(float64(cfg.Screen.Width), float64(cfg.Screen.Height))
	cc := cfg.Camera
	if cc.Distance > 0 {
		c.Distance = cc.Distance
	}
	c.Yaw = cc.Yaw
	c.Pitch = cc.Pitch
	if cc.FOV > 0 {
		c.FOV = cc.FOV
	}
	if cc.Near > 0 && cc.Far > cc.Near {
		c.Near = cc.Near
		c.Far = cc.Far
	}
	if cc.MinDistance > 0 && cc.MaxDistance > cc.MinDistance {
		c.MinDistance = cc.MinDistance
		c.MaxDistance = cc.MaxDistance
	}
	return c
}

// Update handles input and runs StepsPerUpdate ticks. The last tick of the
// update also renders the frame.
func (g *Game) Update() {
	g.handleInput()

	if g.paused {
		if g.frameDirty {
			g.renderFrame()
		}
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.runTick(i == g.stepsPerUpdate-1)
	}
}

// UpdateHeadless runs StepsPerUpdate ticks, rendering only with
// HeadlessRender. It returns the step error that paused the simulation, if any.
func (g *Game) UpdateHeadless() error {
	for i := 0; i < g.stepsPerUpdate && !g.paused; i++ {
		g.runTick(g.headlessRender && i == g.stepsPerUpdate-1)
	}
	return g.err
}

// Tick returns the current simulation tick.
func (g *Game) Tick() int32 {
	return g.tick
}

// SimTime returns the simulated seconds since start.
func (g *Game) SimTime() float64 {
	return g.simTime
}

// Fluid returns the solver.
func (g *Game) Fluid() *fluid.Fluid {
	return g.fluid
}

// Raymarcher returns the renderer.
func (g *Game) Raymarcher() *renderer.Raymarcher {
	return g.raymarcher
}

// Camera returns the orbit camera.
func (g *Game) Camera() *camera.Camera {
	return g.camera
}

// Emitters returns the emitter system.
func (g *Game) Emitters() *systems.EmitterSystem {
	return g.emitters
}

// Mode returns the active simulation mode.
func (g *Game) Mode() systems.Mode {
	return g.mode
}

// Measurements returns the measurements taken after the last tick.
func (g *Game) Measurements() fluid.Measurements {
	return g.measure
}

// Injecting returns how many sites injected on the last tick.
func (g *Game) Injecting() int {
	return g.injecting
}

// PerfStats returns the rolling performance statistics.
func (g *Game) PerfStats() telemetry.PerfStats {
	return g.perfCollector.Stats()
}

// SetPaused pauses or resumes stepping.
func (g *Game) SetPaused(p bool) {
	g.paused = p
}

// Paused reports whether stepping is paused.
func (g *Game) Paused() bool {
	return g.paused
}

// Unload releases the window resources, telemetry outputs and workers.
func (g *Game) Unload() {
	if g.frame != nil {
		g.frame.Unload()
	}
	if err := g.stream.Close(); err != nil {
		slog.Warn("closing stats stream", "error", err)
	}
	if err := g.outputManager.Close(); err != nil {
		slog.Error("closing output", "error", err)
	}
	g.raymarcher.Release()
	g.fluid.Reset()
	g.dispatcher.Close()
}
