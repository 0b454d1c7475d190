// Package config provides configuration loading and access for the smoke solver.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/smoke/volume"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all solver, renderer and host configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Grid       GridConfig       `yaml:"grid"`
	Simulation SimulationConfig `yaml:"simulation"`
	Features   FeaturesConfig   `yaml:"features"`
	Quantities QuantitiesConfig `yaml:"quantities"`
	Advection  AdvectionConfig  `yaml:"advection"`
	Injection  InjectionConfig  `yaml:"injection"`
	Buoyancy   BuoyancyConfig   `yaml:"buoyancy"`
	Vorticity  VorticityConfig  `yaml:"vorticity"`
	Pressure   PressureConfig   `yaml:"pressure"`
	Blur       BlurConfig       `yaml:"blur"`
	Render     RenderConfig     `yaml:"render"`
	Obstacle   ObstacleConfig   `yaml:"obstacle"`
	Modes      ModesConfig      `yaml:"modes"`
	Flicker    FlickerConfig    `yaml:"flicker"`
	Camera     CameraConfig     `yaml:"camera"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// Vec3 is a 3-component vector in YAML flow form: [x, y, z].
type Vec3 [3]float64

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// GridConfig holds the voxel resolution and dispatch settings.
type GridConfig struct {
	X             int `yaml:"x"`
	Y             int `yaml:"y"`
	Z             int `yaml:"z"`
	Workers       int `yaml:"workers"`         // 0 = GOMAXPROCS
	WorkGroupSize int `yaml:"work_group_size"` // edge length of a cubic work group
}

// SimulationConfig holds stepping parameters.
type SimulationConfig struct {
	DT   float64 `yaml:"dt"`   // fixed timestep in seconds
	Mode string  `yaml:"mode"` // continuous, rotated or explosive
}

// FeaturesConfig toggles solver and renderer stages.
type FeaturesConfig struct {
	Injection  bool `yaml:"injection"`
	Buoyancy   bool `yaml:"buoyancy"`
	Vorticity  bool `yaml:"vorticity"`
	Shadows    bool `yaml:"shadows"`
	Radiance   bool `yaml:"radiance"`
	Scattering bool `yaml:"scattering"`
}

// QuantityConfig holds per-quantity loss parameters.
type QuantityConfig struct {
	Dissipation float64 `yaml:"dissipation"` // multiplicative loss per step
	Decay       float64 `yaml:"decay"`       // magnitude shrink per second
}

// QuantitiesConfig groups the advected quantities.
type QuantitiesConfig struct {
	Velocity    QuantityConfig `yaml:"velocity"`
	Temperature QuantityConfig `yaml:"temperature"`
	Density     QuantityConfig `yaml:"density"`
}

// AdvectionConfig selects the advection scheme for scalar quantities.
type AdvectionConfig struct {
	MacCormack      bool `yaml:"maccormack"`
	MacCormackClamp bool `yaml:"maccormack_clamp"`
}

// InjectionSiteConfig is one emitter in normalized domain coordinates.
type InjectionSiteConfig struct {
	Position             Vec3    `yaml:"position"`
	Color                Vec3    `yaml:"color"`
	Direction            Vec3    `yaml:"direction"`
	DensitySigma         float64 `yaml:"density_sigma"`
	DensityIntensity     float64 `yaml:"density_intensity"`
	TemperatureSigma     float64 `yaml:"temperature_sigma"`
	TemperatureIntensity float64 `yaml:"temperature_intensity"`
	VelocitySigma        float64 `yaml:"velocity_sigma"`
	VelocityIntensity    float64 `yaml:"velocity_intensity"`
}

// InjectionConfig holds the emitter list and the sigma scale.
type InjectionConfig struct {
	SigmaScale float64               `yaml:"sigma_scale"` // sigma units -> normalized domain units
	Sites      []InjectionSiteConfig `yaml:"sites"`
}

// BuoyancyConfig holds buoyant force parameters.
type BuoyancyConfig struct {
	Strength  float64 `yaml:"strength"`
	Weight    float64 `yaml:"weight"`
	Ambient   float64 `yaml:"ambient"`
	Direction Vec3    `yaml:"direction"`
}

// VorticityConfig holds confinement strength.
type VorticityConfig struct {
	Strength float64 `yaml:"strength"`
}

// PressureConfig holds Jacobi solver parameters.
type PressureConfig struct {
	Iterations    int     `yaml:"iterations"`
	GradientScale float64 `yaml:"gradient_scale"`
}

// BlurToggle enables a blur and sets its sigma.
type BlurToggle struct {
	Enabled bool    `yaml:"enabled"`
	Factor  float64 `yaml:"factor"`
}

// BlurConfig holds render-path blur settings.
type BlurConfig struct {
	SigmaMin   float64    `yaml:"sigma_min"`
	KernelSize int        `yaml:"kernel_size"`
	Radiance   BlurToggle `yaml:"radiance"`
	Obstacle   BlurToggle `yaml:"obstacle"`
	Shadows    BlurToggle `yaml:"shadows"`
	Density    BlurToggle `yaml:"density"`
}

// RenderConfig holds raymarch and lighting parameters.
type RenderConfig struct {
	Scale          float64 `yaml:"scale"` // raymarch resolution relative to the viewport
	ShadowSamples  int     `yaml:"shadow_samples"`
	DensitySamples int     `yaml:"density_samples"`
	ShadowJitter   float64 `yaml:"shadow_jitter"`
	DensityJitter  float64 `yaml:"density_jitter"`
	LightPosition  Vec3    `yaml:"light_position"`
	LightColor     Vec3    `yaml:"light_color"`
	LightIntensity float64 `yaml:"light_intensity"`
	Ambient        float64 `yaml:"ambient"`
	Absorption     float64 `yaml:"absorption"`
	DensityFactor  float64 `yaml:"density_factor"`
	Falloff        float64 `yaml:"falloff"`
	Background     Vec3    `yaml:"background"`
	DebugMode      string  `yaml:"debug_mode"` // disabled, front_faces, back_faces, directions
}

// ObstacleConfig holds obstacle selection and shape defaults.
type ObstacleConfig struct {
	Index        int     `yaml:"index"` // 0 none, 1 sphere, 2 cube
	Position     Vec3    `yaml:"position"`
	SphereRadius float64 `yaml:"sphere_radius"`
	CubeExtent   float64 `yaml:"cube_extent"`
}

// RotatedConfig holds the rotated emitter mode parameters.
type RotatedConfig struct {
	Center       Vec3    `yaml:"center"`
	Radius       float64 `yaml:"radius"`
	AngularSpeed float64 `yaml:"angular_speed"` // degrees per second
}

// ExplosiveConfig holds the burst mode parameters.
type ExplosiveConfig struct {
	FirstDelay float64 `yaml:"first_delay"` // seconds before the first burst
	Interval   float64 `yaml:"interval"`    // seconds between bursts
	InjectDT   float64 `yaml:"inject_dt"`   // timestep used for the burst injection
}

// ModesConfig holds parameters for the simulation modes.
type ModesConfig struct {
	Rotated   RotatedConfig   `yaml:"rotated"`
	Explosive ExplosiveConfig `yaml:"explosive"`
}

// FlickerConfig holds noise modulation of emitter intensity.
type FlickerConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Amplitude float64 `yaml:"amplitude"` // fraction of base intensity
	Frequency float64 `yaml:"frequency"` // noise samples per second
	Seed      int64   `yaml:"seed"`
}

// CameraConfig holds orbit camera defaults.
type CameraConfig struct {
	Distance    float64 `yaml:"distance"`
	Yaw         float64 `yaml:"yaw"`   // degrees
	Pitch       float64 `yaml:"pitch"` // degrees
	FOV         float64 `yaml:"fov"`   // vertical, degrees
	Near        float64 `yaml:"near"`
	Far         float64 `yaml:"far"`
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
}

// TelemetryConfig holds stats and profiling output parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	PerfWindow  int     `yaml:"perf_window"`  // ticks in the rolling perf window
	StreamAddr  string  `yaml:"stream_addr"`  // websocket listen address
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32        float32     // Simulation.DT as float32
	Dims        volume.Dims // Grid resolution
	BuoyancyDir Vec3        // Buoyancy.Direction normalized
	WorkGroups  [3]int      // groups covering Dims
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Simulation.DT)
	c.Derived.Dims = volume.Dims{X: c.Grid.X, Y: c.Grid.Y, Z: c.Grid.Z}

	d := c.Buoyancy.Direction
	n := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	if n > 0 {
		c.Derived.BuoyancyDir = Vec3{d[0] / n, d[1] / n, d[2] / n}
	} else {
		c.Derived.BuoyancyDir = Vec3{0, 1, 0}
	}

	wg := c.Grid.WorkGroupSize
	if wg < 1 {
		wg = volume.DefaultWorkGroupSize
	}
	c.Derived.WorkGroups = [3]int{
		(c.Grid.X + wg - 1) / wg,
		(c.Grid.Y + wg - 1) / wg,
		(c.Grid.Z + wg - 1) / wg,
	}

	// Sites missing a direction inject upward
	for i := range c.Injection.Sites {
		if c.Injection.Sites[i].Direction == (Vec3{}) {
			c.Injection.Sites[i].Direction = Vec3{0, 1, 0}
		}
	}
}

// Clone returns a deep copy with the derived values recomputed.
func (c *Config) Clone() *Config {
	out := *c
	out.Injection.Sites = slices.Clone(c.Injection.Sites)
	out.computeDerived()
	return &out
}

// Recompute refreshes the derived values after fields are edited in place.
func (c *Config) Recompute() {
	c.computeDerived()
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
