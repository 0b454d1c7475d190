package game

import (
	"log/slog"
)

// flushTelemetry checks if the stats window should be flushed and writes
// the window to the enabled sinks.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.measure, g.injecting, g.dispatcher.Stats())
	perfStats := g.perfCollector.Stats()

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if err := g.outputManager.WriteStats(stats); err != nil {
		slog.Error("failed to write stats", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	g.stream.BroadcastStats(stats)
	g.stream.BroadcastPerf(perfStats, stats.WindowEndTick)
}
