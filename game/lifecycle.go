package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/smoke/components"
	"github.com/pthm-cable/smoke/systems"
	"github.com/pthm-cable/smoke/telemetry"
	"github.com/pthm-cable/smoke/volume"
)

// Grid edge limits for interactive resolution changes.
const (
	MinGridSize = 16
	MaxGridSize = 256
)

// flickerOffsetStep decorrelates emitters sharing the flicker noise.
const flickerOffsetStep = 7.3

// Reset clears every quantity by recreating the volumes at the current
// resolution, and restarts the mode timers.
func (g *Game) Reset() error {
	if err := g.fluid.Resize(g.fluid.Dims()); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	g.flicker.Reset()
	g.applyMode()
	g.paused = false
	g.err = nil
	g.frameDirty = true
	g.collector.Record(telemetry.NewResetEvent(g.tick))
	slog.Info("simulation reset", "tick", g.tick)
	return nil
}

// Resize changes the grid resolution. Quantities restart from zero; the
// injection list and active obstacle carry over.
func (g *Game) Resize(dims volume.Dims) error {
	if err := g.fluid.Resize(dims); err != nil {
		return err
	}
	g.applyMode()
	g.paused = false
	g.err = nil
	g.frameDirty = true
	g.collector.Record(telemetry.NewResizeEvent(g.tick, dims.Count()))
	return nil
}

// ScaleGrid multiplies every grid edge by factor, clamped to
// [MinGridSize, MaxGridSize].
func (g *Game) ScaleGrid(factor float64) error {
	d := g.fluid.Dims()
	scale := func(n int) int {
		return min(max(int(float64(n)*factor), MinGridSize), MaxGridSize)
	}
	next := volume.Dims{X: scale(d.X), Y: scale(d.Y), Z: scale(d.Z)}
	if next == d {
		return nil
	}
	return g.Resize(next)
}

// CycleObstacle activates the next obstacle in the list.
func (g *Game) CycleObstacle() error {
	n := len(g.fluid.Obstacles())
	if n == 0 {
		return nil
	}
	next := (g.fluid.ActiveObstacle() + 1) % n
	if err := g.fluid.ChangeObstacle(next); err != nil {
		return err
	}
	g.frameDirty = true
	g.collector.Record(telemetry.NewObstacleChangeEvent(g.tick, next))
	return nil
}

// ObstacleName returns the name of the active obstacle.
func (g *Game) ObstacleName() string {
	obs := g.fluid.Obstacles()
	i := g.fluid.ActiveObstacle()
	if i < 0 || i >= len(obs) {
		return "none"
	}
	return fmt.Sprint(obs[i])
}

// AddInjection duplicates the last emitter shifted along x.
func (g *Game) AddInjection() error {
	return g.editEmitters(func() error {
		_, err := g.emitters.Duplicate()
		return err
	})
}

// RemoveInjection removes the last emitter.
func (g *Game) RemoveInjection() error {
	return g.editEmitters(func() error {
		return g.emitters.Remove(g.emitters.Count() - 1)
	})
}

// editEmitters applies edit with motion cleared, so the configured sites
// are what gets copied or removed, then reapplies the mode.
func (g *Game) editEmitters(edit func() error) error {
	g.emitters.ClearMotion(g.baseSites)
	err := edit()
	g.baseSites = g.emitters.Sites()
	g.applyMode()
	return err
}

// SetMode switches the simulation mode.
func (g *Game) SetMode(m systems.Mode) {
	if m == g.mode {
		return
	}
	g.mode = m
	g.applyMode()
	slog.Info("simulation mode changed", "mode", m.String())
}

// SetFlicker turns noise modulation of emitter intensity on or off.
func (g *Game) SetFlicker(on bool) {
	g.flickerOn = on
	g.applyMode()
}

// FlickerEnabled reports whether flicker is on.
func (g *Game) FlickerEnabled() bool {
	return g.flickerOn
}

// applyMode attaches the components for the current mode and flicker state.
func (g *Game) applyMode() {
	systems.ApplyMode(g.emitters, g.mode, g.modeSettings, g.baseSites)

	if !g.flickerOn {
		g.emitters.ClearFlicker()
		return
	}
	fc := g.cfg.Flicker
	for i, e := range g.emitters.Entities() {
		g.emitters.SetFlicker(e, components.Flicker{
			Amplitude: fc.Amplitude,
			Frequency: fc.Frequency,
			Offset:    float64(i) * flickerOffsetStep,
		})
	}
}
