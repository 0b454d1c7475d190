package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

// DefaultSigmaScale converts injection sigma to normalized domain units.
const DefaultSigmaScale = 0.05

// Injection deposits a Gaussian splat into a quantity at a normalized
// position. It reads ping, writes pong and swaps.
type Injection interface {
	Inject(ctx *volume.Context, q *Quantity, position r3.Vec, dt float64) error
}

// DensityInjection deposits color. Reads the sigma, intensity and color properties.
type DensityInjection struct {
	SigmaScale float64
}

// Inject implements Injection.
func (i DensityInjection) Inject(ctx *volume.Context, q *Quantity, position r3.Vec, dt float64) error {
	color, err := q.Vec3("color")
	if err != nil {
		return err
	}
	return splat(ctx, q, KernelInjection4D, position, dt, i.SigmaScale, func(p *volume.Pipeline) {
		p.SetParameter("color", param.Vec3(color))
	})
}

// TemperatureInjection deposits heat. Reads the sigma and intensity properties.
type TemperatureInjection struct {
	SigmaScale float64
}

// Inject implements Injection.
func (i TemperatureInjection) Inject(ctx *volume.Context, q *Quantity, position r3.Vec, dt float64) error {
	return splat(ctx, q, KernelInjection1D, position, dt, i.SigmaScale, nil)
}

// VelocityInjection deposits momentum along the direction property.
// Reads the sigma, intensity and direction properties.
type VelocityInjection struct {
	SigmaScale float64
}

// Inject implements Injection.
func (i VelocityInjection) Inject(ctx *volume.Context, q *Quantity, position r3.Vec, dt float64) error {
	dir, err := q.Vec3("direction")
	if err != nil {
		return err
	}
	if n := r3.Norm(dir); n > 0 {
		dir = r3.Scale(1/n, dir)
	}
	return splat(ctx, q, KernelInjectionVelocity, position, dt, i.SigmaScale, func(p *volume.Pipeline) {
		p.SetParameter("direction", param.Vec3(dir))
	})
}

// splat dispatches an injection kernel from q's ping into its pong, then swaps.
func splat(ctx *volume.Context, q *Quantity, kernel string, position r3.Vec, dt, sigmaScale float64, extra func(*volume.Pipeline)) error {
	sigma, err := q.Float("sigma")
	if err != nil {
		return err
	}
	intensity, err := q.Float("intensity")
	if err != nil {
		return err
	}
	if sigmaScale <= 0 {
		sigmaScale = DefaultSigmaScale
	}

	p, err := ctx.Bind(kernel)
	if err != nil {
		return err
	}
	defer p.Unbind()

	p.SetParameter("position", param.Vec3(position))
	p.SetParameter("sigma", param.Float(sigma*sigmaScale))
	p.SetParameter("intensity", param.Float(intensity))
	p.SetParameter("dt", param.Float(dt))
	if extra != nil {
		extra(p)
	}

	b := volume.Bindings{}.Sample(0, q.Ping()).Write(0, q.Pong())
	gx, gy, gz := ctx.Groups()
	if err := p.Dispatch(b, gx, gy, gz); err != nil {
		return fmt.Errorf("inject %s: %w", q.Name(), err)
	}
	ctx.Barrier()
	q.Swap()
	return nil
}
