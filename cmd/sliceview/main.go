// Slice viewer - steps the solver and shows one axis-aligned slice of a
// volume with sliders for the slice index and value scale.
//
// Usage: go run ./cmd/sliceview -grid 48
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/game"
	"github.com/pthm-cable/smoke/renderer"
	"github.com/pthm-cable/smoke/volume"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
)

// view is one selectable volume.
type view struct {
	name    string
	channel int
	field   func(f *fluid.Fluid) *volume.Field
}

var views = []view{
	{"density", 0, func(f *fluid.Fluid) *volume.Field { return f.Density().Ping() }},
	{"temperature", 0, func(f *fluid.Fluid) *volume.Field { return f.Temperature().Ping() }},
	{"speed", renderer.ChannelMagnitude, func(f *fluid.Fluid) *volume.Field { return f.Velocity().Ping() }},
	{"pressure", 0, func(f *fluid.Fluid) *volume.Field { return f.PressureField().Ping() }},
	{"divergence", 0, func(f *fluid.Fluid) *volume.Field { return f.Divergence() }},
	{"vorticity", renderer.ChannelMagnitude, func(f *fluid.Fluid) *volume.Field { return f.VorticityField() }},
	{"obstacle", 0, func(f *fluid.Fluid) *volume.Field { return f.ObstacleMask() }},
}

// sliceTexture holds the GPU texture for the current slice size.
type sliceTexture struct {
	tex    rl.Texture2D
	w, h   int
	pixels []color.RGBA
}

func (s *sliceTexture) update(img *image.RGBA) {
	b := img.Bounds()
	if b.Dx() != s.w || b.Dy() != s.h {
		if s.w > 0 {
			rl.UnloadTexture(s.tex)
		}
		s.w, s.h = b.Dx(), b.Dy()
		blank := rl.GenImageColor(s.w, s.h, rl.Black)
		s.tex = rl.LoadTextureFromImage(blank)
		rl.UnloadImage(blank)
		s.pixels = make([]color.RGBA, s.w*s.h)
	}
	for i := range s.pixels {
		p := img.Pix[i*4 : i*4+4]
		s.pixels[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	rl.UpdateTexture(s.tex, s.pixels)
}

func (s *sliceTexture) unload() {
	if s.w > 0 {
		rl.UnloadTexture(s.tex)
	}
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	grid := flag.Int("grid", 48, "Grid edge length")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg().Clone()
	cfg.Grid.X, cfg.Grid.Y, cfg.Grid.Z = *grid, *grid, *grid
	cfg.Recompute()

	rl.InitWindow(windowWidth, windowHeight, "Smoke Slice Viewer")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	g, err := game.NewGame(game.Options{Config: cfg, Headless: true, StepsPerUpdate: 1})
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	var tex sliceTexture
	defer tex.unload()

	current := 0
	axis := renderer.AxisZ
	index := float32(cfg.Grid.Z / 2)
	logScale := float32(0) // value scale is 10^logScale
	paused := false

	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeySpace) {
			paused = !paused
		}
		if !paused {
			// the game stays paused on a step error until Reset
			if err := g.UpdateHeadless(); err != nil {
				paused = true
			}
		}

		f := g.Fluid()
		v := views[current]
		extent := axis.Extent(f.Dims())
		slice := min(max(int(index), 0), extent-1)
		scale := math.Pow(10, float64(logScale))

		img, sliceErr := renderer.SliceImage(v.field(f), axis, slice, v.channel, scale)
		if sliceErr == nil {
			tex.update(img)
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		// Draw preview
		if tex.w > 0 {
			rl.DrawTexturePro(
				tex.tex,
				rl.Rectangle{X: 0, Y: 0, Width: float32(tex.w), Height: float32(tex.h)},
				rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
				rl.Vector2{X: 0, Y: 0},
				0,
				rl.White,
			)
		}
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		// Draw stats
		m := g.Measurements()
		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Tick: %d  Time: %.2fs  Grid: %s", g.Tick(), g.SimTime(), f.Dims()), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Mass: %.2f  Max density: %.3f  Max temp: %.3f", m.DensityMass, m.MaxDensity, m.MaxTemperature), 15, statsY+20, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Max speed: %.3f  Max divergence: %.4f", m.MaxSpeed, m.MaxDivergence), 15, statsY+40, 16, rl.DarkGray)
		if sliceErr != nil {
			rl.DrawText(sliceErr.Error(), 15, statsY+60, 14, rl.Red)
		}

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Slice", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 24}, "Volume: "+v.name) {
			current = (current + 1) % len(views)
		}
		panelY += 32

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 24}, "Axis: "+axis.String()) {
			axis = axis.Next()
			index = float32(axis.Extent(f.Dims()) / 2)
		}
		panelY += 40

		// Slice index slider
		rl.DrawText("Slice index", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		index = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", fmt.Sprint(extent-1),
			index, 0, float32(extent-1),
		)
		rl.DrawText(fmt.Sprintf("%d", slice), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		panelY += 35

		// Value scale slider
		rl.DrawText("Value scale (log10)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		logScale = gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"-3", "2",
			logScale, -3, 2,
		)
		rl.DrawText(fmt.Sprintf("x%.3g", scale), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 24}, toggleText(paused, "Resume", "Pause")) {
			paused = !paused
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 24}, "Reset") {
			if err := g.Reset(); err != nil {
				slog.Error("reset failed", "error", err)
			}
		}
		panelY += 32

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 24}, "Obstacle: "+g.ObstacleName()) {
			if err := g.CycleObstacle(); err != nil {
				slog.Error("obstacle change failed", "error", err)
			}
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 24}, "Mode: "+g.Mode().String()) {
			g.SetMode(g.Mode().Next())
		}

		rl.DrawText("Space: pause   C: copy slice stats", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)

		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(fmt.Sprintf("tick=%d volume=%s axis=%s slice=%d mass=%.4f com=(%.4f, %.4f, %.4f)",
				g.Tick(), v.name, axis, slice, m.DensityMass, m.CenterOfMass.X, m.CenterOfMass.Y, m.CenterOfMass.Z))
		}

		rl.EndDrawing()
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
