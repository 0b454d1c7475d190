// Profile tool - sweeps grid resolutions and feature scenarios, stepping and
// raymarching N frames each, and writes one CSV of stage timings per scenario.
//
// Usage: go run ./cmd/profile -sizes 16,32,64 -frames 60 -output profile/
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/game"
	"github.com/pthm-cable/smoke/telemetry"
)

// scenario adjusts a config before a profiling run.
type scenario struct {
	name  string
	apply func(*config.Config)
}

var scenarios = []scenario{
	{"full", func(*config.Config) {}},
	{"no_shadows", func(c *config.Config) { c.Features.Shadows = false }},
	{"semi_lagrangian", func(c *config.Config) { c.Advection.MacCormack = false }},
	{"no_vorticity", func(c *config.Config) { c.Features.Vorticity = false }},
	{"sphere", func(c *config.Config) { c.Obstacle.Index = 1 }},
	{"blur", func(c *config.Config) {
		c.Blur.Radiance.Enabled = true
		c.Blur.Obstacle.Enabled = true
		c.Blur.Shadows.Enabled = true
		c.Blur.Density.Enabled = true
		c.Obstacle.Index = 1
	}},
}

// profileRow is one resolution of a scenario.
type profileRow struct {
	Grid     int     `csv:"grid"`
	Frames   int     `csv:"frames"`
	WallMS   int64   `csv:"wall_ms"`
	Mass     float64 `csv:"density_mass"`
	PhasesUS string  `csv:"phases_us"`
	telemetry.PerfStatsCSV
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	sizes := flag.String("sizes", "16,32,64", "Comma-separated grid edge lengths")
	frames := flag.Int("frames", 60, "Frames (step + render) per run")
	width := flag.Int("width", 320, "Render width")
	height := flag.Int("height", 240, "Render height")
	only := flag.String("scenario", "", "Run a single scenario by name (empty = all)")
	outputDir := flag.String("output", "", "Output directory for CSVs")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	edges, err := parseSizes(*sizes)
	if err != nil {
		log.Fatal(err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	out, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	defer out.Close()

	for _, sc := range scenarios {
		if *only != "" && sc.name != *only {
			continue
		}
		var rows []profileRow
		for _, n := range edges {
			cfg := config.Cfg().Clone()
			cfg.Grid.X, cfg.Grid.Y, cfg.Grid.Z = n, n, n
			cfg.Screen.Width, cfg.Screen.Height = *width, *height
			cfg.Render.Scale = 1
			cfg.Telemetry.PerfWindow = *frames
			sc.apply(cfg)
			cfg.Recompute()

			row, err := profile(cfg, *frames)
			if err != nil {
				log.Fatalf("%s at %d: %v", sc.name, n, err)
			}
			rows = append(rows, row)
			fmt.Printf("%-16s %4d^3  %8.2f ms/frame  %6.1f frames/s\n",
				sc.name, n, float64(row.AvgTickUS)/1000, row.TicksPerSec)
		}

		name := sc.name + ".csv"
		if err := out.WriteCSV(name, rows); err != nil {
			log.Fatalf("writing %s: %v", name, err)
		}
	}
	fmt.Printf("Profiles written to: %s\n", out.Dir())
}

// profile runs frames step+render cycles and returns the averaged timings.
func profile(cfg *config.Config, frames int) (profileRow, error) {
	g, err := game.NewGame(game.Options{
		Config:         cfg,
		Headless:       true,
		HeadlessRender: true,
		StepsPerUpdate: 1,
	})
	if err != nil {
		return profileRow{}, err
	}
	defer g.Unload()

	start := time.Now()
	for i := 0; i < frames; i++ {
		if err := g.UpdateHeadless(); err != nil {
			return profileRow{}, err
		}
	}
	wall := time.Since(start)

	stats := g.PerfStats()
	return profileRow{
		Grid:         cfg.Grid.X,
		Frames:       frames,
		WallMS:       wall.Milliseconds(),
		Mass:         g.Measurements().DensityMass,
		PhasesUS:     phaseSummary(stats),
		PerfStatsCSV: stats.ToCSV(g.Tick()),
	}, nil
}

// phaseSummary lists the average microseconds of every phase that ran.
func phaseSummary(s telemetry.PerfStats) string {
	var parts []string
	for _, phase := range telemetry.Phases {
		if d, ok := s.PhaseAvg[phase]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", phase, d.Microseconds()))
		}
	}
	return strings.Join(parts, " ")
}

func parseSizes(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid grid size %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
