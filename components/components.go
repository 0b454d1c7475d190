// Package components defines ECS components for injection emitters.
package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/fluid"
)

// Emitter is an injection site driven by the host systems.
type Emitter struct {
	// Site holds the configured injection; its Position is rewritten by Orbit.
	Site fluid.InjectionProperties

	// Gain scales every intensity when synced into the solver (1 = unchanged).
	Gain float64

	// Disabled emitters are skipped by the sync.
	Disabled bool
}

// Order is the emitter's position in the solver's injection list.
type Order struct {
	Index int
}

// Orbit moves an emitter around a vertical axis through Center.
type Orbit struct {
	Center r3.Vec
	Radius float64
	Angle  float64 // degrees
	Speed  float64 // degrees per second
	Sense  float64 // +1 counter-clockwise, -1 clockwise
}

// Burst gates injection to periodic bursts.
type Burst struct {
	Delay    float64 // seconds before the first burst
	Interval float64 // seconds between bursts
	Elapsed  float64
	Fired    bool // set for the tick on which the burst fires
	Count    int
}

// Flicker modulates emitter gain with coherent noise.
type Flicker struct {
	Amplitude float64 // gain varies in [1-Amplitude, 1+Amplitude]
	Frequency float64 // noise samples per second
	Offset    float64 // decorrelates emitters sharing a noise source
}
