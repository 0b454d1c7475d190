package renderer

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/config"
)

// DebugMode replaces the shaded volume with a diagnostic image.
type DebugMode int

const (
	DebugDisabled   DebugMode = iota
	DebugFrontFaces           // ray entry point as color
	DebugBackFaces            // ray exit point as color
	DebugDirections           // absolute ray direction as color
)

var debugModeNames = []string{"disabled", "front_faces", "back_faces", "directions"}

func (m DebugMode) String() string {
	if m < 0 || int(m) >= len(debugModeNames) {
		return fmt.Sprintf("DebugMode(%d)", int(m))
	}
	return debugModeNames[m]
}

// Next cycles to the following mode.
func (m DebugMode) Next() DebugMode {
	return (m + 1) % DebugMode(len(debugModeNames))
}

// ParseDebugMode converts a config name to a DebugMode. Empty is disabled.
func ParseDebugMode(s string) (DebugMode, error) {
	if s == "" {
		return DebugDisabled, nil
	}
	for i, name := range debugModeNames {
		if name == s {
			return DebugMode(i), nil
		}
	}
	return DebugDisabled, fmt.Errorf("unknown debug mode %q", s)
}

// BlurToggle enables a render-path blur with the given sigma.
type BlurToggle struct {
	Enabled bool
	Factor  float64
}

// BlurSettings groups the render-path blurs and their shared kernel size.
type BlurSettings struct {
	KernelSize int
	Radiance   BlurToggle
	Obstacle   BlurToggle
	Shadows    BlurToggle
	Density    BlurToggle
}

// Settings holds lighting, marching and feature parameters.
type Settings struct {
	Shadows    bool
	Radiance   bool
	Scattering bool

	ShadowSamples  int
	DensitySamples int
	ShadowJitter   float64
	DensityJitter  float64

	LightPosition  r3.Vec // normalized domain coordinates
	LightColor     r3.Vec
	LightIntensity float64
	Ambient        float64
	Absorption     float64
	DensityFactor  float64
	Falloff        float64
	Background     r3.Vec

	Debug DebugMode
	Blur  BlurSettings
}

// DefaultSettings returns settings matching the embedded defaults.
func DefaultSettings() Settings {
	return Settings{
		Shadows:        true,
		ShadowSamples:  64,
		DensitySamples: 128,
		DensityJitter:  1,
		LightPosition:  r3.Vec{X: 4, Y: 1, Z: 2},
		LightColor:     r3.Vec{X: 1, Y: 1, Z: 1},
		LightIntensity: 20,
		Ambient:        1,
		Absorption:     20,
		DensityFactor:  10,
		Falloff:        100,
		Background:     r3.Vec{X: 0.08, Y: 0.08, Z: 0.1},
		Blur: BlurSettings{
			KernelSize: 5,
			Radiance:   BlurToggle{Factor: 0.01},
			Obstacle:   BlurToggle{Factor: 0.01},
			Shadows:    BlurToggle{Factor: 0.01},
			Density:    BlurToggle{Factor: 0.01},
		},
	}
}

// SettingsFromConfig builds renderer settings from the loaded configuration.
// An unknown debug mode is logged by the caller and treated as disabled.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	r := cfg.Render
	b := cfg.Blur
	debug, err := ParseDebugMode(r.DebugMode)
	s := Settings{
		Shadows:        cfg.Features.Shadows,
		Radiance:       cfg.Features.Radiance,
		Scattering:     cfg.Features.Scattering,
		ShadowSamples:  r.ShadowSamples,
		DensitySamples: r.DensitySamples,
		ShadowJitter:   r.ShadowJitter,
		DensityJitter:  r.DensityJitter,
		LightPosition:  vec(r.LightPosition),
		LightColor:     vec(r.LightColor),
		LightIntensity: r.LightIntensity,
		Ambient:        r.Ambient,
		Absorption:     r.Absorption,
		DensityFactor:  r.DensityFactor,
		Falloff:        r.Falloff,
		Background:     vec(r.Background),
		Debug:          debug,
		Blur: BlurSettings{
			KernelSize: b.KernelSize,
			Radiance:   BlurToggle(b.Radiance),
			Obstacle:   BlurToggle(b.Obstacle),
			Shadows:    BlurToggle(b.Shadows),
			Density:    BlurToggle(b.Density),
		},
	}
	return s, err
}

func vec(v config.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
