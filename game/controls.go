package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/smoke/ui"
)

const controlPanelWidth = 280

// Control panel sections.
const (
	groupSimulation = "Simulation"
	groupFeatures   = "Features"
	groupBlur       = "Blur"
	groupLosses     = "Losses"
	groupForces     = "Forces"
	groupLight      = "Light"
)

// logFailure logs a failed control action.
func logFailure(action string, err error) {
	if err != nil {
		slog.Error("control action failed", "action", action, "error", err)
	}
}

// controlPanel describes the left-hand panel: actions and feature toggles.
func (g *Game) controlPanel() ui.PanelDescriptor {
	f := g.fluid
	rs := &g.raymarcher.Settings

	return ui.PanelDescriptor{
		Title:  "Smoke",
		Groups: []string{groupSimulation, groupFeatures, groupBlur},
		Actions: []ui.ActionDescriptor{
			{ID: "pause", Group: groupSimulation,
				Label: func() string { return toggleLabel(g.paused, "Resume (P)", "Pause (P)") },
				Do:    func() { g.paused = !g.paused }},
			{ID: "reset", Group: groupSimulation,
				Label: func() string { return "Reset (R)" },
				Do:    func() { logFailure("reset", g.Reset()) }},
			{ID: "mode", Group: groupSimulation,
				Label: func() string { return "Mode: " + g.mode.String() },
				Do:    func() { g.SetMode(g.mode.Next()) }},
			{ID: "obstacle", Group: groupSimulation,
				Label: func() string { return "Obstacle: " + g.ObstacleName() },
				Do:    func() { logFailure("obstacle", g.CycleObstacle()) }},
			{ID: "addInjection", Group: groupSimulation,
				Label: func() string { return "Add emitter" },
				Do:    func() { logFailure("add emitter", g.AddInjection()) }},
			{ID: "removeInjection", Group: groupSimulation,
				Label: func() string { return "Remove emitter" },
				Do:    func() { logFailure("remove emitter", g.RemoveInjection()) }},
			{ID: "gridDown", Group: groupSimulation,
				Label: func() string { return fmt.Sprintf("Grid /2 (%d)", f.Dims().X) },
				Do:    func() { logFailure("resize", g.ScaleGrid(0.5)) }},
			{ID: "gridUp", Group: groupSimulation,
				Label: func() string { return "Grid x2" },
				Do:    func() { logFailure("resize", g.ScaleGrid(2)) }},
			{ID: "debug", Group: groupSimulation,
				Label: func() string { return "Debug: " + rs.Debug.String() },
				Do:    func() { rs.Debug = rs.Debug.Next(); g.frameDirty = true }},
		},
		Toggles: []ui.ToggleDescriptor{
			{ID: "injection", Label: "Injection", Group: groupFeatures,
				Get: func() bool { return f.Features.Injection },
				Set: func(v bool) { f.Features.Injection = v }},
			{ID: "buoyancy", Label: "Buoyancy", Group: groupFeatures,
				Get: func() bool { return f.Features.Buoyancy },
				Set: func(v bool) { f.Features.Buoyancy = v }},
			{ID: "vorticity", Label: "Vorticity", Group: groupFeatures,
				Get: func() bool { return f.Features.Vorticity },
				Set: func(v bool) { f.Features.Vorticity = v }},
			{ID: "maccormack", Label: "MacCormack", Group: groupFeatures,
				Get: func() bool { return f.UseMacCormack },
				Set: func(v bool) { f.UseMacCormack = v }},
			{ID: "clamp", Label: "MC clamp", Group: groupFeatures,
				Get: f.MacCormackClamp,
				Set: f.SetMacCormackClamp},
			{ID: "flicker", Label: "Flicker", Key: "F", Group: groupFeatures,
				Get: g.FlickerEnabled,
				Set: g.SetFlicker},
			{ID: "shadows", Label: "Shadows", Key: "H", Group: groupFeatures,
				Get: func() bool { return rs.Shadows },
				Set: func(v bool) { rs.Shadows = v; g.frameDirty = true }},
			{ID: "radiance", Label: "Radiance", Group: groupFeatures,
				Get: func() bool { return rs.Radiance },
				Set: func(v bool) { rs.Radiance = v; g.frameDirty = true }},
			{ID: "scattering", Label: "Scattering", Group: groupFeatures,
				Get: func() bool { return rs.Scattering },
				Set: func(v bool) { rs.Scattering = v; g.frameDirty = true }},
			{ID: "blurRadiance", Label: "Radiance", Group: groupBlur,
				Get: func() bool { return rs.Blur.Radiance.Enabled },
				Set: func(v bool) { rs.Blur.Radiance.Enabled = v; g.frameDirty = true }},
			{ID: "blurObstacle", Label: "Obstacle", Group: groupBlur,
				Get: func() bool { return rs.Blur.Obstacle.Enabled },
				Set: func(v bool) { rs.Blur.Obstacle.Enabled = v; g.frameDirty = true }},
			{ID: "blurShadows", Label: "Shadows", Group: groupBlur,
				Get: func() bool { return rs.Blur.Shadows.Enabled },
				Set: func(v bool) { rs.Blur.Shadows.Enabled = v; g.frameDirty = true }},
			{ID: "blurDensity", Label: "Density", Group: groupBlur,
				Get: func() bool { return rs.Blur.Density.Enabled },
				Set: func(v bool) { rs.Blur.Density.Enabled = v; g.frameDirty = true }},
		},
	}
}

// parameterPanel describes the right-hand panel of sliders.
func (g *Game) parameterPanel() ui.PanelDescriptor {
	f := g.fluid
	rs := &g.raymarcher.Settings

	light := func(label string, lo, hi float32, p *float64) ui.SliderDescriptor {
		return ui.SliderDescriptor{
			ID: label, Label: label, Min: lo, Max: hi, Group: groupLight,
			Get: func() float64 { return *p },
			Set: func(v float64) { *p = v; g.frameDirty = true },
		}
	}

	return ui.PanelDescriptor{
		Title:  "Parameters",
		Groups: []string{groupLosses, groupForces, groupLight},
		Sliders: []ui.SliderDescriptor{
			{ID: "velDissipation", Label: "Velocity dissipation", Min: 0, Max: 0.05, Format: "%.4f", Group: groupLosses,
				Get: func() float64 { return f.Losses().VelocityDissipation },
				Set: f.SetVelocityDissipation},
			{ID: "tempDissipation", Label: "Temperature dissipation", Min: 0, Max: 0.05, Format: "%.4f", Group: groupLosses,
				Get: func() float64 { return f.Losses().TemperatureDissipation },
				Set: f.SetTemperatureDissipation},
			{ID: "tempDecay", Label: "Temperature decay", Min: 0, Max: 0.5, Format: "%.3f", Group: groupLosses,
				Get: func() float64 { return f.Losses().TemperatureDecay },
				Set: f.SetTemperatureDecay},
			{ID: "densDissipation", Label: "Density dissipation", Min: 0, Max: 0.05, Format: "%.4f", Group: groupLosses,
				Get: func() float64 { return f.Losses().DensityDissipation },
				Set: f.SetDensityDissipation},
			{ID: "densDecay", Label: "Density decay", Min: 0, Max: 0.5, Format: "%.3f", Group: groupLosses,
				Get: func() float64 { return f.Losses().DensityDecay },
				Set: f.SetDensityDecay},
			{ID: "buoyancyStrength", Label: "Buoyancy strength", Min: 0, Max: 50, Format: "%.1f", Group: groupForces,
				Get: func() float64 { return f.Buoyancy.Strength },
				Set: func(v float64) { f.Buoyancy.Strength = v }},
			{ID: "buoyancyWeight", Label: "Smoke weight", Min: 0, Max: 50, Format: "%.1f", Group: groupForces,
				Get: func() float64 { return f.Buoyancy.Weight },
				Set: func(v float64) { f.Buoyancy.Weight = v }},
			{ID: "vorticity", Label: "Vorticity strength", Min: 0, Max: 50, Format: "%.1f", Group: groupForces,
				Get: func() float64 { return f.VorticityStrength },
				Set: func(v float64) { f.VorticityStrength = v }},
			{ID: "pressureIterations", Label: "Pressure iterations", Min: 1, Max: 80, Format: "%.0f", Group: groupForces,
				Get: func() float64 { return float64(f.Pressure.Iterations) },
				Set: func(v float64) { f.Pressure.Iterations = int(v) }},
			light("Light intensity", 0, 100, &rs.LightIntensity),
			light("Absorption", 0, 100, &rs.Absorption),
			light("Density factor", 0, 50, &rs.DensityFactor),
			light("Ambient", 0, 2, &rs.Ambient),
		},
	}
}

func toggleLabel(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
