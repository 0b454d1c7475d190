// Package fluid implements the grid smoke solver: advected quantities,
// injection, buoyancy, vorticity confinement and pressure projection,
// expressed as kernels on a volume dispatcher.
package fluid

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

var (
	// ErrObstacleIndex is returned for an obstacle index outside the list.
	ErrObstacleIndex = errors.New("fluid: obstacle index out of range")
	// ErrInjectionIndex is returned for an injection index outside the list.
	ErrInjectionIndex = errors.New("fluid: injection index out of range")
	// ErrNotInitialized is returned when stepping or editing obstacles
	// before Initialize.
	ErrNotInitialized = errors.New("fluid: not initialized")
)

// Obstacle indices in the list rebuilt by Resize.
const (
	ObstacleNone = iota
	ObstacleSphere
	ObstacleCube
)

// StageTimer receives stage boundaries for profiling.
type StageTimer interface {
	StartPhase(name string)
}

// Simulation stage names reported to the StageTimer.
const (
	StageAdvection        = "advection"
	StageInjection        = "injection"
	StageBuoyancy         = "buoyancy"
	StageVorticity        = "vorticity"
	StageConfinement      = "confinement"
	StageDivergence       = "divergence"
	StagePressure         = "pressure"
	StageSubtractGradient = "subtract_gradient"
)

// Fluid owns the quantities, obstacles and stage volumes of one grid and
// runs the simulation step. It is driven from a single goroutine.
type Fluid struct {
	Features          Features
	Buoyancy          BuoyancyProperties
	VorticityStrength float64
	Pressure          PressureProperties
	UseMacCormack     bool

	dispatcher *volume.Dispatcher
	ctx        *volume.Context
	dims       volume.Dims

	velocity    *Quantity
	temperature *Quantity
	density     *Quantity
	pressure    *Quantity

	divergence *volume.Field
	vorticity  *volume.Field
	lighting   *volume.Field
	mask       *volume.Field

	semiLagrangian SemiLagrangian
	macCormack     *MacCormack

	obstacles      []Obstacle
	activeObstacle int
	obstacleMoved  bool
	obstacleProps  ObstacleProperties

	losses     Losses
	sigmaScale float64
	sigmaMin   float64
	injections []InjectionProperties

	timer       StageTimer
	initialized bool
}

// New creates an uninitialized solver. The solver kernels are registered on d.
func New(d *volume.Dispatcher, p Params) *Fluid {
	RegisterKernels(d)
	f := &Fluid{
		Features:          p.Features,
		Buoyancy:          p.Buoyancy,
		VorticityStrength: p.VorticityStrength,
		Pressure:          p.Pressure,
		UseMacCormack:     p.UseMacCormack,
		dispatcher:        d,
		macCormack:        NewMacCormack(p.MacCormackClamp),
		obstacleProps:     p.Obstacle,
		activeObstacle:    p.Obstacle.Index,
		losses:            p.Losses,
		sigmaScale:        p.SigmaScale,
		sigmaMin:          p.SigmaMin,
		injections:        slices.Clone(p.Injections),
	}
	if f.sigmaScale <= 0 {
		f.sigmaScale = DefaultSigmaScale
	}
	if f.sigmaMin <= 0 {
		f.sigmaMin = volume.DefaultSigmaMin
	}
	return f
}

// Initialize allocates every volume at dims and fills the active obstacle.
func (f *Fluid) Initialize(dims volume.Dims) error {
	return f.Resize(dims)
}

// Resize discards every owned volume and recreates them at dims.
// Quantities restart from zero; the obstacle list is rebuilt.
func (f *Fluid) Resize(dims volume.Dims) error {
	if !dims.Valid() {
		return fmt.Errorf("fluid: invalid dims %s", dims)
	}
	f.Reset()

	f.dims = dims
	f.ctx = volume.NewContext(f.dispatcher, dims)
	f.ctx.SigmaMin = f.sigmaMin

	f.velocity = NewQuantity("velocity", dims, volume.RGBA, VelocityInjection{SigmaScale: f.sigmaScale})
	f.temperature = NewQuantity("temperature", dims, volume.R, TemperatureInjection{SigmaScale: f.sigmaScale})
	f.density = NewQuantity("density", dims, volume.RGBA, DensityInjection{SigmaScale: f.sigmaScale})
	f.pressure = NewQuantity("pressure", dims, volume.R, nil)

	f.divergence = volume.New("divergence", dims, volume.R)
	f.vorticity = volume.New("vorticity", dims, volume.RGBA)
	f.lighting = volume.New("lighting", dims, volume.R)
	f.mask = volume.New("obstacle", dims, volume.R)

	if err := f.applyLosses(); err != nil {
		return err
	}

	op := f.obstacleProps
	f.obstacles = []Obstacle{
		NoObstacle{},
		NewSphere(op.Position, op.SphereRadius),
		NewCube(op.Position, op.CubeExtent),
	}
	if f.activeObstacle < 0 || f.activeObstacle >= len(f.obstacles) {
		slog.Warn("obstacle index out of range", "index", f.activeObstacle, "using", ObstacleNone)
		f.activeObstacle = ObstacleNone
	}
	f.initialized = true
	if err := f.obstacles[f.activeObstacle].Fill(f.ctx, f.mask); err != nil {
		return err
	}
	f.obstacleMoved = true

	slog.Info("fluid resized", "dims", dims.String(), "obstacle", f.activeObstacle)
	return nil
}

// applyLosses seeds the quantity property bags from the stored losses.
func (f *Fluid) applyLosses() error {
	sets := []struct {
		q    *Quantity
		name string
		v    float64
	}{
		{f.velocity, "dissipation", f.losses.VelocityDissipation},
		{f.temperature, "dissipation", f.losses.TemperatureDissipation},
		{f.temperature, "decay", f.losses.TemperatureDecay},
		{f.density, "dissipation", f.losses.DensityDissipation},
		{f.density, "decay", f.losses.DensityDecay},
	}
	for _, s := range sets {
		if err := s.q.SetProperty(s.name, param.Float(s.v)); err != nil {
			return err
		}
	}
	return nil
}

// Reset releases every owned volume. Calling Reset again is a no-op.
func (f *Fluid) Reset() {
	if !f.initialized {
		return
	}
	for _, q := range []*Quantity{f.velocity, f.temperature, f.density, f.pressure} {
		q.Reset()
	}
	for _, v := range []*volume.Field{f.divergence, f.vorticity, f.lighting, f.mask} {
		v.Reset()
	}
	f.macCormack.Release()
	f.ctx.Release()
	f.obstacles = nil
	f.initialized = false
}

// Initialized reports whether volumes are allocated.
func (f *Fluid) Initialized() bool { return f.initialized }

// Dims returns the grid resolution.
func (f *Fluid) Dims() volume.Dims { return f.dims }

// Context returns the grid-scoped dispatch context.
func (f *Fluid) Context() *volume.Context { return f.ctx }

// SetTimer installs a stage timer; nil disables timing.
func (f *Fluid) SetTimer(t StageTimer) { f.timer = t }

func (f *Fluid) phase(name string) {
	if f.timer != nil {
		f.timer.StartPhase(name)
	}
}

// Velocity returns the velocity quantity.
func (f *Fluid) Velocity() *Quantity { return f.velocity }

// Temperature returns the temperature quantity.
func (f *Fluid) Temperature() *Quantity { return f.temperature }

// Density returns the density quantity.
func (f *Fluid) Density() *Quantity { return f.density }

// PressureField returns the pressure quantity.
func (f *Fluid) PressureField() *Quantity { return f.pressure }

// Divergence returns the divergence volume.
func (f *Fluid) Divergence() *volume.Field { return f.divergence }

// VorticityField returns the vorticity volume.
func (f *Fluid) VorticityField() *volume.Field { return f.vorticity }

// Lighting returns the lighting volume written by the renderer.
func (f *Fluid) Lighting() *volume.Field { return f.lighting }

// ObstacleMask returns the shared solid mask.
func (f *Fluid) ObstacleMask() *volume.Field { return f.mask }

// Obstacles returns the obstacle list.
func (f *Fluid) Obstacles() []Obstacle { return f.obstacles }

// ActiveObstacle returns the active obstacle index.
func (f *Fluid) ActiveObstacle() int { return f.activeObstacle }

// ChangeObstacle activates obstacle i and refills the mask.
func (f *Fluid) ChangeObstacle(i int) error {
	if i < 0 || i >= len(f.obstacles) {
		return fmt.Errorf("%w: %d (have %d)", ErrObstacleIndex, i, len(f.obstacles))
	}
	f.activeObstacle = i
	if err := f.obstacles[i].Fill(f.ctx, f.mask); err != nil {
		return err
	}
	f.obstacleMoved = true
	slog.Info("obstacle changed", "index", i, "obstacle", fmt.Sprint(f.obstacles[i]))
	return nil
}

// active returns the active obstacle, or ErrNotInitialized before the
// obstacle list is built.
func (f *Fluid) active() (Obstacle, error) {
	if !f.initialized || f.activeObstacle < 0 || f.activeObstacle >= len(f.obstacles) {
		return nil, ErrNotInitialized
	}
	return f.obstacles[f.activeObstacle], nil
}

// ResetObstacle restores the active obstacle's defaults and refills the mask.
func (f *Fluid) ResetObstacle() error {
	o, err := f.active()
	if err != nil {
		return err
	}
	if r, ok := o.(interface{ Reset() }); ok {
		r.Reset()
	}
	return f.ChangeObstacle(f.activeObstacle)
}

// MoveObstacle moves the active obstacle to pos and refills the mask.
// It is a no-op for obstacles without a position.
func (f *Fluid) MoveObstacle(pos r3.Vec) error {
	o, err := f.active()
	if err != nil {
		return err
	}
	m, ok := o.(Movable)
	if !ok {
		return nil
	}
	m.MoveTo(pos)
	if err := o.Fill(f.ctx, f.mask); err != nil {
		return err
	}
	f.obstacleMoved = true
	return nil
}

// ObstaclePosition returns the active obstacle's position, if it has one.
func (f *Fluid) ObstaclePosition() (r3.Vec, bool) {
	o, err := f.active()
	if err != nil {
		return r3.Vec{}, false
	}
	m, ok := o.(Movable)
	if !ok {
		return r3.Vec{}, false
	}
	return m.Center(), true
}

// ObstacleMoved reports whether the mask changed since the last call.
func (f *Fluid) ObstacleMoved() bool {
	moved := f.obstacleMoved
	f.obstacleMoved = false
	return moved
}

// Injections returns a copy of the injection list.
func (f *Fluid) Injections() []InjectionProperties {
	return slices.Clone(f.injections)
}

// SetInjections replaces the injection list.
func (f *Fluid) SetInjections(list []InjectionProperties) {
	f.injections = slices.Clone(list)
}

// AddInjection appends a site.
func (f *Fluid) AddInjection(p InjectionProperties) {
	f.injections = append(f.injections, p)
}

// RemoveInjection removes site i, keeping the order of the rest.
func (f *Fluid) RemoveInjection(i int) error {
	if i < 0 || i >= len(f.injections) {
		return fmt.Errorf("%w: %d (have %d)", ErrInjectionIndex, i, len(f.injections))
	}
	f.injections = slices.Delete(f.injections, i, i+1)
	return nil
}

// Losses returns the current dissipation and decay settings.
func (f *Fluid) Losses() Losses { return f.losses }

func (f *Fluid) setLoss(q *Quantity, name string, dst *float64, v float64) {
	*dst = v
	if !f.initialized {
		return
	}
	if err := q.SetProperty(name, param.Float(v)); err != nil {
		slog.Warn("loss not applied", "quantity", q.Name(), "property", name, "value", v, "error", err)
	}
}

// SetVelocityDissipation sets velocity dissipation.
func (f *Fluid) SetVelocityDissipation(v float64) {
	f.setLoss(f.velocity, "dissipation", &f.losses.VelocityDissipation, v)
}

// SetTemperatureDissipation sets temperature dissipation.
func (f *Fluid) SetTemperatureDissipation(v float64) {
	f.setLoss(f.temperature, "dissipation", &f.losses.TemperatureDissipation, v)
}

// SetTemperatureDecay sets temperature decay.
func (f *Fluid) SetTemperatureDecay(v float64) {
	f.setLoss(f.temperature, "decay", &f.losses.TemperatureDecay, v)
}

// SetDensityDissipation sets density dissipation.
func (f *Fluid) SetDensityDissipation(v float64) {
	f.setLoss(f.density, "dissipation", &f.losses.DensityDissipation, v)
}

// SetDensityDecay sets density decay.
func (f *Fluid) SetDensityDecay(v float64) {
	f.setLoss(f.density, "decay", &f.losses.DensityDecay, v)
}

// SetMacCormackClamp toggles MacCormack range clamping.
func (f *Fluid) SetMacCormackClamp(on bool) { f.macCormack.Clamp = on }

// MacCormackClamp reports whether MacCormack clamping is on.
func (f *Fluid) MacCormackClamp() bool { return f.macCormack.Clamp }
