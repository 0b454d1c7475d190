package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smoke/ui"
)

const controlsLegend = "[P] pause  [R] reset  [O] obstacle  [M] mode  [F] flicker  [H] shadows  [G] debug  [I/K] emitters  [ / ] grid  [Tab] panels  [T] perf  drag: orbit  wheel: zoom"

// Draw renders the last raymarched frame and the UI.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()

	rl.BeginDrawing()
	bg := g.raymarcher.Settings.Background
	rl.ClearBackground(rl.Color{R: to8(bg.X), G: to8(bg.Y), B: to8(bg.Z), A: 255})

	g.frame.Draw(float32(g.screenWidth), float32(g.screenHeight))

	g.hud.Draw(ui.HUDData{
		Title:     "Smoke",
		Tick:      g.tick,
		SimTime:   g.simTime,
		FPS:       rl.GetFPS(),
		Paused:    g.paused,
		Mode:      g.mode.String(),
		Obstacle:  g.ObstacleName(),
		Debug:     g.raymarcher.Settings.Debug.String(),
		Grid:      g.fluid.Dims(),
		Emitters:  g.emitters.Count(),
		Injecting: g.injecting,
		Measure:   g.measure,
	})
	g.hud.DrawControls(int32(g.screenHeight), controlsLegend)

	g.controls.Draw()
	if g.showPerf {
		stats := g.perfCollector.Stats()
		g.perfUI.Draw(ui.PerfPanelData{
			PhaseTimes: stats.PhaseAvg,
			Total:      stats.AvgTickDuration,
			Registry:   g.registry,
		})
	} else {
		g.params.Draw()
	}

	rl.EndDrawing()
}

func to8(v float64) uint8 {
	return uint8(min(max(v, 0), 1) * 255)
}
