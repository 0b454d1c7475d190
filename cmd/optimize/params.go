// Package main provides CMA-ES optimization for smoke solver parameters.
package main

import (
	"github.com/pthm-cable/smoke/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Losses
			{Name: "velocity_dissipation", Path: "quantities.velocity.dissipation", Min: 0, Max: 0.05, Default: 0.001},
			{Name: "temperature_decay", Path: "quantities.temperature.decay", Min: 0, Max: 0.5, Default: 0.03},
			{Name: "density_dissipation", Path: "quantities.density.dissipation", Min: 0, Max: 0.05, Default: 0.001},
			{Name: "density_decay", Path: "quantities.density.decay", Min: 0, Max: 0.5, Default: 0.03},
			// Forces
			{Name: "buoyancy_strength", Path: "buoyancy.strength", Min: 0, Max: 40, Default: 10},
			{Name: "buoyancy_weight", Path: "buoyancy.weight", Min: 0, Max: 40, Default: 10},
			{Name: "vorticity_strength", Path: "vorticity.strength", Min: 0, Max: 40, Default: 10},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	q := &cfg.Quantities
	q.Velocity.Dissipation = clamped[0]
	q.Temperature.Decay = clamped[1]
	q.Density.Dissipation = clamped[2]
	q.Density.Decay = clamped[3]

	cfg.Buoyancy.Strength = clamped[4]
	cfg.Buoyancy.Weight = clamped[5]
	cfg.Vorticity.Strength = clamped[6]
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	q := cfg.Quantities
	return []float64{
		q.Velocity.Dissipation,
		q.Temperature.Decay,
		q.Density.Dissipation,
		q.Density.Decay,
		cfg.Buoyancy.Strength,
		cfg.Buoyancy.Weight,
		cfg.Vorticity.Strength,
	}
}
