// Frame dump tool - steps the solver headless and writes a raymarched PNG.
//
// Usage: go run ./cmd/framedump -ticks 300 -out frame.png
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/game"
	"github.com/pthm-cable/smoke/renderer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	grid := flag.Int("grid", 0, "Grid edge length (0 = use config)")
	ticks := flag.Int("ticks", 300, "Simulation ticks before rendering")
	width := flag.Int("width", 640, "Output width")
	height := flag.Int("height", 480, "Output height")
	scale := flag.Float64("scale", 0, "Raymarch resolution relative to output (0 = use config)")
	mode := flag.String("mode", "", "Simulation mode (empty = use config)")
	obstacle := flag.Int("obstacle", -1, "Obstacle index: 0 none, 1 sphere, 2 cube (-1 = use config)")
	debug := flag.String("debug", "", "Debug render mode (empty = use config)")
	yaw := flag.Float64("yaw", 0, "Extra camera yaw in degrees")
	pitch := flag.Float64("pitch", 0, "Extra camera pitch in degrees")
	outPath := flag.String("out", "frame.png", "Output PNG path")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := config.Init(*configPath); err != nil {
		fail("failed to load config: %v", err)
	}
	cfg := config.Cfg().Clone()
	if *grid > 0 {
		cfg.Grid.X, cfg.Grid.Y, cfg.Grid.Z = *grid, *grid, *grid
	}
	if *scale > 0 {
		cfg.Render.Scale = *scale
	}
	if *mode != "" {
		cfg.Simulation.Mode = *mode
	}
	if *obstacle >= 0 {
		cfg.Obstacle.Index = *obstacle
	}
	if *debug != "" {
		cfg.Render.DebugMode = *debug
	}
	cfg.Screen.Width, cfg.Screen.Height = *width, *height
	cfg.Recompute()

	g, err := game.NewGame(game.Options{Config: cfg, Headless: true, StepsPerUpdate: *ticks})
	if err != nil {
		fail("failed to start: %v", err)
	}
	defer g.Unload()

	if *ticks > 0 {
		if err := g.UpdateHeadless(); err != nil {
			fail("simulation failed at tick %d: %v", g.Tick(), err)
		}
	}
	g.Camera().Orbit(*yaw, *pitch)

	rw, rh := renderer.ScaledSize(*width, *height, cfg.Render.Scale)
	frame, err := g.RenderImage(rw, rh)
	if err != nil {
		fail("render failed: %v", err)
	}
	var out image.Image = frame
	if rw != *width || rh != *height {
		out = renderer.Upscale(frame, *width, *height)
	}

	if err := writePNG(*outPath, out); err != nil {
		fail("%v", err)
	}

	m := g.Measurements()
	fmt.Printf("Frame rendered to: %s (%dx%d from %dx%d) after %d ticks, mass %.2f\n",
		*outPath, *width, *height, rw, rh, g.Tick(), m.DensityMass)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
