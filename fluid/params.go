package fluid

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/config"
)

// InjectionProperties describes one emitter site in normalized domain units.
type InjectionProperties struct {
	Position  r3.Vec
	Color     r3.Vec
	Direction r3.Vec // velocity injection direction

	DensitySigma         float64
	DensityIntensity     float64
	TemperatureSigma     float64
	TemperatureIntensity float64
	VelocitySigma        float64
	VelocityIntensity    float64
}

// DefaultInjection returns the default emitter at the bottom centre.
func DefaultInjection() InjectionProperties {
	return InjectionProperties{
		Position:             r3.Vec{X: 0.5, Y: 0.1, Z: 0.5},
		Color:                r3.Vec{X: 0.1, Y: 0.1, Z: 0.1},
		Direction:            r3.Vec{Y: 1},
		DensitySigma:         1,
		DensityIntensity:     100,
		TemperatureSigma:     0.5,
		TemperatureIntensity: 32,
		VelocitySigma:        0.25,
		VelocityIntensity:    100,
	}
}

// Features toggles optional solver stages.
type Features struct {
	Injection bool
	Buoyancy  bool
	Vorticity bool
}

// BuoyancyProperties holds the buoyant force parameters.
type BuoyancyProperties struct {
	Strength  float64
	Weight    float64
	Ambient   float64
	Direction r3.Vec
}

// PressureProperties holds the Jacobi solver parameters.
type PressureProperties struct {
	Iterations    int
	GradientScale float64
}

// Losses holds dissipation and decay for the advected quantities.
type Losses struct {
	VelocityDissipation    float64
	TemperatureDissipation float64
	TemperatureDecay       float64
	DensityDissipation     float64
	DensityDecay           float64
}

// ObstacleProperties holds obstacle defaults applied when the obstacle list is rebuilt.
type ObstacleProperties struct {
	Index        int
	Position     r3.Vec
	SphereRadius float64
	CubeExtent   float64
}

// Params holds everything a Fluid needs at construction.
type Params struct {
	Features          Features
	Losses            Losses
	Buoyancy          BuoyancyProperties
	VorticityStrength float64
	Pressure          PressureProperties
	Obstacle          ObstacleProperties

	UseMacCormack   bool
	MacCormackClamp bool
	SigmaScale      float64
	SigmaMin        float64

	Injections []InjectionProperties
}

// DefaultParams returns solver parameters matching the embedded defaults.
func DefaultParams() Params {
	return Params{
		Features: Features{Injection: true, Buoyancy: true, Vorticity: true},
		Losses: Losses{
			VelocityDissipation:    0.001,
			TemperatureDissipation: 0.001,
			TemperatureDecay:       0.03,
			DensityDissipation:     0.001,
			DensityDecay:           0.03,
		},
		Buoyancy: BuoyancyProperties{
			Strength:  10,
			Weight:    10,
			Direction: r3.Vec{Y: 1},
		},
		VorticityStrength: 10,
		Pressure:          PressureProperties{Iterations: 20, GradientScale: 1},
		Obstacle: ObstacleProperties{
			Position:     r3.Vec{X: 0.5, Y: 0.5, Z: 0.5},
			SphereRadius: 0.2,
			CubeExtent:   0.2,
		},
		UseMacCormack:   true,
		MacCormackClamp: true,
		SigmaScale:      DefaultSigmaScale,
		SigmaMin:        1e-4,
		Injections:      []InjectionProperties{DefaultInjection()},
	}
}

// ParamsFromConfig builds solver parameters from the loaded configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	q := cfg.Quantities
	p := Params{
		Features: Features{
			Injection: cfg.Features.Injection,
			Buoyancy:  cfg.Features.Buoyancy,
			Vorticity: cfg.Features.Vorticity,
		},
		Losses: Losses{
			VelocityDissipation:    q.Velocity.Dissipation,
			TemperatureDissipation: q.Temperature.Dissipation,
			TemperatureDecay:       q.Temperature.Decay,
			DensityDissipation:     q.Density.Dissipation,
			DensityDecay:           q.Density.Decay,
		},
		Buoyancy: BuoyancyProperties{
			Strength:  cfg.Buoyancy.Strength,
			Weight:    cfg.Buoyancy.Weight,
			Ambient:   cfg.Buoyancy.Ambient,
			Direction: vec(cfg.Derived.BuoyancyDir),
		},
		VorticityStrength: cfg.Vorticity.Strength,
		Pressure: PressureProperties{
			Iterations:    cfg.Pressure.Iterations,
			GradientScale: cfg.Pressure.GradientScale,
		},
		Obstacle: ObstacleProperties{
			Index:        cfg.Obstacle.Index,
			Position:     vec(cfg.Obstacle.Position),
			SphereRadius: cfg.Obstacle.SphereRadius,
			CubeExtent:   cfg.Obstacle.CubeExtent,
		},
		UseMacCormack:   cfg.Advection.MacCormack,
		MacCormackClamp: cfg.Advection.MacCormackClamp,
		SigmaScale:      cfg.Injection.SigmaScale,
		SigmaMin:        cfg.Blur.SigmaMin,
	}
	for _, s := range cfg.Injection.Sites {
		p.Injections = append(p.Injections, InjectionFromConfig(s))
	}
	return p
}

// InjectionFromConfig converts one configured site.
func InjectionFromConfig(s config.InjectionSiteConfig) InjectionProperties {
	return InjectionProperties{
		Position:             vec(s.Position),
		Color:                vec(s.Color),
		Direction:            vec(s.Direction),
		DensitySigma:         s.DensitySigma,
		DensityIntensity:     s.DensityIntensity,
		TemperatureSigma:     s.TemperatureSigma,
		TemperatureIntensity: s.TemperatureIntensity,
		VelocitySigma:        s.VelocitySigma,
		VelocityIntensity:    s.VelocityIntensity,
	}
}

func vec(v config.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
