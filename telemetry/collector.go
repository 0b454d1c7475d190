package telemetry

import (
	"math"

	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/volume"
)

// Collector accumulates per-tick measurements and events within time windows
// and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32
	startCenterY    float64
	haveStart       bool
	startDispatch   volume.Stats

	// Per-tick samples for the current window
	masses []float64
	speeds []float64

	// Event counters for current window
	bursts          int
	obstacleChanges int
	resets          int
	resizes         int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(math.Round(windowDurationSec / float64(dt)))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record counts a host event in the current window.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventBurst:
		c.bursts++
	case EventObstacleChange:
		c.obstacleChanges++
	case EventReset:
		c.resets++
		c.haveStart = false
	case EventResize:
		c.resizes++
		c.haveStart = false
	}
}

// Observe samples the measurements of one tick.
func (c *Collector) Observe(m fluid.Measurements) {
	if !c.haveStart {
		c.startCenterY = m.CenterOfMass.Y
		c.haveStart = true
	}
	c.masses = append(c.masses, m.DensityMass)
	c.speeds = append(c.speeds, m.MaxSpeed)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// The caller provides the current tick, the measurements at window end,
// the number of active injection sites and the dispatcher counters.
func (c *Collector) Flush(currentTick int32, m fluid.Measurements, injections int, ds volume.Stats) WindowStats {
	massMean, massStd, massP10, massP50, massP90 := ComputeDistribution(c.masses)
	speedMean, _, _, _, speedP90 := ComputeDistribution(c.speeds)

	var rise float64
	elapsed := float64(currentTick-c.windowStartTick) * float64(c.dt)
	if c.haveStart && elapsed > 0 {
		rise = (m.CenterOfMass.Y - c.startCenterY) / elapsed
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		DensityMass:     m.DensityMass,
		CenterX:         m.CenterOfMass.X,
		CenterY:         m.CenterOfMass.Y,
		CenterZ:         m.CenterOfMass.Z,
		MaxDensity:      m.MaxDensity,
		MaxTemperature:  m.MaxTemperature,
		MeanTemperature: m.MeanTemperature,
		MaxSpeed:        m.MaxSpeed,
		MaxDivergence:   m.MaxDivergence,
		RiseRate:        rise,

		MassMean: massMean,
		MassStd:  massStd,
		MassP10:  massP10,
		MassP50:  massP50,
		MassP90:  massP90,

		SpeedMean: speedMean,
		SpeedP90:  speedP90,

		Bursts:          c.bursts,
		ObstacleChanges: c.obstacleChanges,
		Resets:          c.resets,
		Resizes:         c.resizes,
		Injections:      injections,

		Dispatches: ds.Dispatches - c.startDispatch.Dispatches,
		Voxels:     ds.Voxels - c.startDispatch.Voxels,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.startCenterY = m.CenterOfMass.Y
	c.haveStart = true
	c.startDispatch = ds
	c.masses = c.masses[:0]
	c.speeds = c.speeds[:0]
	c.bursts = 0
	c.obstacleChanges = 0
	c.resets = 0
	c.resizes = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
