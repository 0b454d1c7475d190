package systems

import (
	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/renderer"
)

// SystemInfo describes a simulation system for UI display.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "visual", "ai")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so the UI and perf tracker stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds all known systems and stages to the registry.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	// Emitter systems
	r.Register(SystemInfo{ID: "orbit", Name: "Orbit", Description: "Moves rotating emitters", Category: "emitters"})
	r.Register(SystemInfo{ID: "burst", Name: "Burst", Description: "Fires explosive injection timers", Category: "emitters"})
	r.Register(SystemInfo{ID: "flicker", Name: "Flicker", Description: "Modulates emitter intensity with noise", Category: "emitters"})
	r.Register(SystemInfo{ID: "emitterSync", Name: "Emitter Sync", Description: "Writes emitters into the injection list", Category: "emitters"})

	// Solver stages
	r.Register(SystemInfo{ID: fluid.StageAdvection, Name: "Advection", Description: "Transports velocity, temperature and density", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StageInjection, Name: "Injection", Description: "Splats Gaussian sources", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StageBuoyancy, Name: "Buoyancy", Description: "Lifts hot smoke, sinks dense smoke", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StageVorticity, Name: "Vorticity", Description: "Computes the curl of velocity", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StageConfinement, Name: "Confinement", Description: "Reinjects small-scale swirl", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StageDivergence, Name: "Divergence", Description: "Measures velocity divergence", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StagePressure, Name: "Pressure", Description: "Jacobi pressure solve", Category: "simulation"})
	r.Register(SystemInfo{ID: fluid.StageSubtractGradient, Name: "Projection", Description: "Subtracts the pressure gradient", Category: "simulation"})

	// Render stages
	r.Register(SystemInfo{ID: renderer.StageBlurObstacle, Name: "Blur Obstacle", Description: "Softens the obstacle mask", Category: "render"})
	r.Register(SystemInfo{ID: renderer.StageBlurTemperature, Name: "Blur Temperature", Description: "Softens emission", Category: "render"})
	r.Register(SystemInfo{ID: renderer.StageBlurDensity, Name: "Blur Density", Description: "Softens density for scattering", Category: "render"})
	r.Register(SystemInfo{ID: renderer.StageShadows, Name: "Shadows", Description: "Marches light through the volume", Category: "render"})
	r.Register(SystemInfo{ID: renderer.StageBlurShadows, Name: "Blur Shadows", Description: "Softens the lighting volume", Category: "render"})
	r.Register(SystemInfo{ID: renderer.StageRayMarching, Name: "Ray Marching", Description: "Shades the viewport", Category: "render"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Categories returns all unique categories.
func (r *SystemRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, info := range r.systems {
		if !seen[info.Category] {
			seen[info.Category] = true
			cats = append(cats, info.Category)
		}
	}
	return cats
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
