package game

import (
	"image"
	"log/slog"

	"github.com/pthm-cable/smoke/renderer"
	"github.com/pthm-cable/smoke/systems"
	"github.com/pthm-cable/smoke/telemetry"
)

// runTick advances the simulation by one fixed step:
// emitter systems, solver step, measurements, then optionally the frame.
func (g *Game) runTick(render bool) {
	g.perfCollector.StartTick()

	if err := g.step(); err != nil {
		// pause so the error is logged once
		slog.Error("simulation step failed", "tick", g.tick, "error", err)
		g.paused = true
		g.err = err
	}

	if render {
		g.renderFrame()
	}
	g.perfCollector.EndTick()

	g.flushTelemetry()
}

// step runs the systems and the solver for one tick.
func (g *Game) step() error {
	g.perfCollector.StartPhase(telemetry.PhaseSystems)
	fired := g.updateSystems(g.dt)
	if fired > 0 {
		g.collector.Record(telemetry.NewBurstEvent(g.tick))
	}
	g.injecting = g.emitters.Sync(g.fluid, g.mode == systems.ModeExplosive)

	opt := systems.StepOptions(g.mode, g.modeSettings, fired)
	if err := g.fluid.StepWith(g.dt, opt); err != nil {
		return err
	}
	if opt.SkipInjection {
		g.injecting = 0
	}

	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.measure = g.fluid.Measure()
	g.collector.Observe(g.measure)

	g.tick++
	g.simTime += g.dt
	g.frameDirty = true
	return nil
}

// updateSystems advances the emitter systems for the active mode and
// returns how many bursts fired.
func (g *Game) updateSystems(dt float64) int {
	fired := 0
	switch g.mode {
	case systems.ModeRotated:
		g.orbits.Update(dt)
	case systems.ModeExplosive:
		fired = g.bursts.Update(dt)
	}
	if g.flickerOn {
		g.flicker.Update(dt)
	}
	return fired
}

// View returns the render view for a w x h target from the current camera.
func (g *Game) View(w, h int) renderer.View {
	g.camera.Resize(float64(w), float64(h))
	return renderer.View{
		ViewProjection: g.camera.ViewProjection(),
		Width:          w,
		Height:         h,
	}
}

// RenderImage raymarches the current state into a w x h image.
func (g *Game) RenderImage(w, h int) (*image.RGBA, error) {
	return g.raymarcher.Render(g.fluid, g.View(w, h))
}

// renderFrame raymarches at the reduced render scale and uploads the result.
func (g *Game) renderFrame() {
	w, h := renderer.ScaledSize(g.screenWidth, g.screenHeight, g.renderScale)
	img, err := g.RenderImage(w, h)
	if err != nil {
		slog.Error("render failed", "tick", g.tick, "error", err)
		return
	}
	g.perfCollector.StartPhase(telemetry.PhaseUpload)
	if g.frame != nil {
		g.frame.Update(img)
	}
	g.frameDirty = false
}
