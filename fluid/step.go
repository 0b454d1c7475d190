package fluid

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

// defaultPressureIterations replaces a non-positive iteration count.
const defaultPressureIterations = 20

// StepOptions adjusts the injection stage of a single step.
type StepOptions struct {
	SkipInjection bool
	InjectDT      float64 // 0 = use the step dt
}

// Step advances the simulation by dt seconds.
func (f *Fluid) Step(dt float64) error {
	return f.StepWith(dt, StepOptions{})
}

// StepWith advances the simulation by dt with per-step injection options.
func (f *Fluid) StepWith(dt float64, opt StepOptions) error {
	if !f.initialized {
		return ErrNotInitialized
	}

	if err := f.Advect(dt); err != nil {
		return err
	}
	if !opt.SkipInjection {
		injectDT := opt.InjectDT
		if injectDT == 0 {
			injectDT = dt
		}
		if err := f.Inject(injectDT); err != nil {
			return err
		}
	}
	if err := f.ComputeBuoyancy(dt); err != nil {
		return err
	}
	if err := f.ComputeVorticity(); err != nil {
		return err
	}
	if err := f.ComputeConfinement(dt); err != nil {
		return err
	}
	if err := f.ComputeDivergence(); err != nil {
		return err
	}
	if err := f.SolvePressure(); err != nil {
		return err
	}
	return f.ProjectAndSubtract()
}

// Advect moves velocity with semi-Lagrangian advection, then temperature
// and density with the selected scheme.
func (f *Fluid) Advect(dt float64) error {
	f.phase(StageAdvection)

	velDiss, err := f.velocity.Float("dissipation")
	if err != nil {
		return err
	}
	if err := f.advect(f.semiLagrangian, f.velocity, velDiss, 0, dt); err != nil {
		return err
	}

	var scheme Advection = f.semiLagrangian
	if f.UseMacCormack {
		scheme = f.macCormack
	}
	for _, q := range []*Quantity{f.temperature, f.density} {
		diss, err := q.Float("dissipation")
		if err != nil {
			return err
		}
		decay, err := q.Float("decay")
		if err != nil {
			return err
		}
		if err := f.advect(scheme, q, diss, decay, dt); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fluid) advect(scheme Advection, q *Quantity, dissipation, decay, dt float64) error {
	if err := scheme.Advect(f.ctx, f.mask, f.velocity.Ping(), q.Ping(), q.Pong(), dissipation, decay, dt); err != nil {
		return err
	}
	q.Swap()
	return nil
}

// Inject deposits density, temperature and velocity for every site in order.
func (f *Fluid) Inject(dt float64) error {
	f.phase(StageInjection)
	if !f.Features.Injection {
		return nil
	}

	for i, site := range f.injections {
		if err := f.injectSite(site, dt); err != nil {
			return fmt.Errorf("injection %d: %w", i, err)
		}
	}
	return nil
}

func (f *Fluid) injectSite(site InjectionProperties, dt float64) error {
	steps := []struct {
		q     *Quantity
		props param.Set
	}{
		{f.density, param.Set{
			"sigma":     param.Float(site.DensitySigma),
			"intensity": param.Float(site.DensityIntensity),
			"color":     param.Vec3(site.Color),
		}},
		{f.temperature, param.Set{
			"sigma":     param.Float(site.TemperatureSigma),
			"intensity": param.Float(site.TemperatureIntensity),
		}},
		{f.velocity, param.Set{
			"sigma":     param.Float(site.VelocitySigma),
			"intensity": param.Float(site.VelocityIntensity),
			"direction": param.Vec3(site.Direction),
		}},
	}
	for _, s := range steps {
		for name, v := range s.props {
			if err := s.q.SetProperty(name, v); err != nil {
				return err
			}
		}
		if err := s.q.Inject(f.ctx, site.Position, dt); err != nil {
			return err
		}
	}
	return nil
}

// ComputeBuoyancy adds the temperature and density driven force.
func (f *Fluid) ComputeBuoyancy(dt float64) error {
	f.phase(StageBuoyancy)
	if !f.Features.Buoyancy {
		return nil
	}

	dir := f.Buoyancy.Direction
	if n := r3.Norm(dir); n > 0 {
		dir = r3.Scale(1/n, dir)
	} else {
		slog.Warn("buoyancy direction is zero", "using", "(0,1,0)")
		dir = r3.Vec{Y: 1}
		f.Buoyancy.Direction = dir
	}

	return f.run(KernelBuoyancy, param.Set{
		"dt":        param.Float(dt),
		"strength":  param.Float(f.Buoyancy.Strength),
		"weight":    param.Float(f.Buoyancy.Weight),
		"ambient":   param.Float(f.Buoyancy.Ambient),
		"direction": param.Vec3(dir),
	}, volume.Bindings{}.
		Sample(0, f.velocity.Ping()).
		Sample(1, f.temperature.Ping()).
		Sample(2, f.density.Ping()).
		Sample(3, f.mask).
		Write(0, f.velocity.Pong()),
		f.velocity)
}

// ComputeVorticity writes the curl of velocity into the vorticity volume.
func (f *Fluid) ComputeVorticity() error {
	f.phase(StageVorticity)
	if !f.Features.Vorticity {
		return nil
	}
	return f.run(KernelVorticity, nil, volume.Bindings{}.
		Sample(0, f.velocity.Ping()).
		Write(0, f.vorticity),
		nil)
}

// ComputeConfinement adds the vorticity confinement force.
func (f *Fluid) ComputeConfinement(dt float64) error {
	f.phase(StageConfinement)
	if !f.Features.Vorticity {
		return nil
	}
	return f.run(KernelConfinement, param.Set{
		"dt":       param.Float(dt),
		"strength": param.Float(f.VorticityStrength),
	}, volume.Bindings{}.
		Sample(0, f.velocity.Ping()).
		Sample(1, f.vorticity).
		Sample(2, f.mask).
		Write(0, f.velocity.Pong()),
		f.velocity)
}

// ComputeDivergence writes the velocity divergence.
func (f *Fluid) ComputeDivergence() error {
	f.phase(StageDivergence)
	return f.run(KernelDivergence, nil, volume.Bindings{}.
		Sample(0, f.velocity.Ping()).
		Sample(1, f.mask).
		Write(0, f.divergence),
		nil)
}

// SolvePressure clears pressure and runs the configured Jacobi iterations.
func (f *Fluid) SolvePressure() error {
	f.phase(StagePressure)

	if f.Pressure.Iterations <= 0 {
		slog.Warn("pressure iterations too low", "iterations", f.Pressure.Iterations, "using", defaultPressureIterations)
		f.Pressure.Iterations = defaultPressureIterations
	}

	if err := f.pressure.Ping().Clear(f.ctx); err != nil {
		return err
	}

	p, err := f.ctx.Bind(KernelJacobi)
	if err != nil {
		return err
	}
	defer p.Unbind()

	gx, gy, gz := f.ctx.Groups()
	for i := 0; i < f.Pressure.Iterations; i++ {
		b := volume.Bindings{}.
			Sample(0, f.pressure.Ping()).
			Sample(1, f.divergence).
			Sample(2, f.mask).
			Write(0, f.pressure.Pong())
		if err := p.Dispatch(b, gx, gy, gz); err != nil {
			return fmt.Errorf("jacobi iteration %d: %w", i, err)
		}
		f.ctx.Barrier()
		f.pressure.Swap()
	}
	return nil
}

// ProjectAndSubtract removes the pressure gradient from velocity.
func (f *Fluid) ProjectAndSubtract() error {
	f.phase(StageSubtractGradient)

	if f.Pressure.GradientScale < 0 {
		slog.Warn("gradient scale negative", "gradient_scale", f.Pressure.GradientScale, "using", 1.0)
		f.Pressure.GradientScale = 1
	}

	return f.run(KernelProjection, param.Set{
		"gradientScale": param.Float(f.Pressure.GradientScale),
	}, volume.Bindings{}.
		Sample(0, f.velocity.Ping()).
		Sample(1, f.pressure.Ping()).
		Sample(2, f.mask).
		Write(0, f.velocity.Pong()),
		f.velocity)
}

// run binds kernel, sets params, dispatches over the grid and barriers.
// When swap is non-nil it is swapped after the barrier.
func (f *Fluid) run(kernel string, params param.Set, b volume.Bindings, swap *Quantity) error {
	p, err := f.ctx.Bind(kernel)
	if err != nil {
		return err
	}
	defer p.Unbind()

	for name, v := range params {
		p.SetParameter(name, v)
	}
	gx, gy, gz := f.ctx.Groups()
	if err := p.Dispatch(b, gx, gy, gz); err != nil {
		return fmt.Errorf("%s: %w", kernel, err)
	}
	f.ctx.Barrier()
	if swap != nil {
		swap.Swap()
	}
	return nil
}
