package game

import (
	"fmt"
	"io"
	"time"

	"github.com/pthm-cable/smoke/ui"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// LogPerfSummary writes the per-stage timing table, slowest stage first.
func (g *Game) LogPerfSummary() {
	stats := g.perfCollector.Stats()
	total := stats.AvgTickDuration
	Logf("=== Perf @ Tick %d (%d steps/update) | %.0f ticks/s ===", g.tick, g.stepsPerUpdate, stats.TicksPerSecond)
	Logf("Avg tick time: %s", total.Round(time.Microsecond))

	for _, name := range ui.SortedPhases(stats.PhaseAvg) {
		avg := stats.PhaseAvg[name]
		Logf("  %-18s %10s  %5.1f%%", g.registry.GetName(name), avg.Round(time.Microsecond), stats.PhasePct[name])
	}
	Logf("")
}

// LogState writes a one-block summary of the volume and emitters.
func (g *Game) LogState() {
	m := g.measure
	d := g.fluid.Dims()
	Logf("=== Tick %d (t=%.2fs) ===", g.tick, g.simTime)
	Logf("Grid: %dx%dx%d | Mode: %s | Obstacle: %s", d.X, d.Y, d.Z, g.mode, g.ObstacleName())
	Logf("Emitters: %d (%d injecting) | Flicker: %v", g.emitters.Count(), g.injecting, g.flickerOn)
	Logf("Density mass: %.2f | COM: (%.3f, %.3f, %.3f) | Max density: %.3f",
		m.DensityMass, m.CenterOfMass.X, m.CenterOfMass.Y, m.CenterOfMass.Z, m.MaxDensity)
	Logf("Temperature: max %.3f mean %.4f | Max speed: %.3f | Max divergence: %.4f",
		m.MaxTemperature, m.MeanTemperature, m.MaxSpeed, m.MaxDivergence)
	Logf("")
}
