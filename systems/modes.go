package systems

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/components"
	"github.com/pthm-cable/smoke/config"
	"github.com/pthm-cable/smoke/fluid"
)

// Mode selects how emitters move and when they inject.
type Mode int

const (
	ModeContinuous Mode = iota // inject every tick at the configured positions
	ModeRotated                // emitters orbit, alternating direction
	ModeExplosive              // inject only on bursts, with a fixed injection dt
)

var modeNames = []string{"continuous", "rotated", "explosive"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Next cycles to the following mode.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}

// ParseMode converts a config name to a Mode. Empty is continuous.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeContinuous, nil
	}
	for i, name := range modeNames {
		if name == s {
			return Mode(i), nil
		}
	}
	return ModeContinuous, fmt.Errorf("unknown simulation mode %q", s)
}

// ModeNames returns the mode names in order, for UI lists.
func ModeNames() []string {
	return modeNames
}

// ModeSettings parameterizes the rotated and explosive modes.
type ModeSettings struct {
	OrbitCenter r3.Vec
	OrbitRadius float64
	OrbitSpeed  float64 // degrees per second

	FirstDelay float64 // seconds before the first burst
	Interval   float64 // seconds between bursts
	InjectDT   float64 // injection dt used for a burst
}

// DefaultModeSettings returns the embedded mode defaults.
func DefaultModeSettings() ModeSettings {
	return ModeSettings{
		OrbitCenter: r3.Vec{X: 0.5, Y: 0.3, Z: 0.5},
		OrbitRadius: 0.25,
		OrbitSpeed:  45,
		FirstDelay:  1,
		Interval:    5,
		InjectDT:    1,
	}
}

// ModeSettingsFromConfig reads mode settings from the configuration.
func ModeSettingsFromConfig(cfg *config.Config) ModeSettings {
	r := cfg.Modes.Rotated
	e := cfg.Modes.Explosive
	return ModeSettings{
		OrbitCenter: r3.Vec{X: r.Center[0], Y: r.Center[1], Z: r.Center[2]},
		OrbitRadius: r.Radius,
		OrbitSpeed:  r.AngularSpeed,
		FirstDelay:  e.FirstDelay,
		Interval:    e.Interval,
		InjectDT:    e.InjectDT,
	}
}

// ApplyMode attaches the components for mode to every emitter, removing
// those of other modes. base holds the configured sites so positions can be
// restored when orbits are removed.
func ApplyMode(es *EmitterSystem, mode Mode, ms ModeSettings, base []fluid.InjectionProperties) {
	es.ClearMotion(base)

	switch mode {
	case ModeRotated:
		entities := es.Entities()
		n := len(entities)
		for i, e := range entities {
			sense := 1.0
			if i%2 == 1 {
				sense = -1
			}
			orb := components.Orbit{
				Center: ms.OrbitCenter,
				Radius: ms.OrbitRadius,
				Angle:  360 * float64(i) / float64(n),
				Speed:  ms.OrbitSpeed,
				Sense:  sense,
			}
			es.SetOrbit(e, orb)
			es.Emitter(e).Site.Position = OrbitPosition(orb)
		}
	case ModeExplosive:
		for _, e := range es.Entities() {
			es.SetBurst(e, components.Burst{Delay: ms.FirstDelay, Interval: ms.Interval})
		}
	}
}

// StepOptions returns the solver options for a tick in mode given how many
// bursts fired.
func StepOptions(mode Mode, ms ModeSettings, fired int) fluid.StepOptions {
	if mode != ModeExplosive {
		return fluid.StepOptions{}
	}
	return fluid.StepOptions{SkipInjection: fired == 0, InjectDT: ms.InjectDT}
}
