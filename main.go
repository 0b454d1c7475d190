package main

import (
	"flag"
	"log/slog"
	"os"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	stream := flag.Bool("stream", false, "Serve window stats over a websocket")
	streamAddr := flag.String("stream-addr", "", "Websocket listen address (empty = use config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Simulation ticks per update call (higher = faster headless runs)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "json", "Log format: json or text")

	flag.Parse()

	setupLogging(*logLevel, *logFormat)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	opts := game.Options{
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
	}
	if *stream || *streamAddr != "" {
		opts.StreamAddr = *streamAddr
		if opts.StreamAddr == "" {
			opts.StreamAddr = cfg.Telemetry.StreamAddr
		}
	}

	if *headless {
		os.Exit(runHeadless(opts, *maxTicks))
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Smoke")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGame(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if *maxTicks > 0 && int(g.Tick()) >= *maxTicks {
			break
		}
	}
}

// runHeadless steps without a window and returns the process exit code.
func runHeadless(opts game.Options, maxTicks int) int {
	g, err := game.NewGame(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"stats_window", opts.StatsWindowSec,
		"max_ticks", maxTicks,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for {
		if err := g.UpdateHeadless(); err != nil {
			slog.Error("simulation stopped", "tick", g.Tick(), "error", err)
			return 1
		}

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			if opts.LogStats {
				g.LogState()
				g.LogPerfSummary()
			}
			return 0
		}
	}
}

func setupLogging(level, format string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: lvl}

	// JSON to stdout for structured logging
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, hopts)
	if format == "text" {
		h = slog.NewTextHandler(os.Stderr, hopts)
	}
	slog.SetDefault(slog.New(h))
}
