package fluid

import (
	"fmt"

	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

// Advection moves source along velocity into target. Implementations never
// read and write the same field in one dispatch.
type Advection interface {
	Advect(ctx *volume.Context, obstacle, velocity, source, target *volume.Field, dissipation, decay, dt float64) error
}

// SemiLagrangian backtraces each voxel through the velocity field.
type SemiLagrangian struct{}

// Advect implements Advection.
func (SemiLagrangian) Advect(ctx *volume.Context, obstacle, velocity, source, target *volume.Field, dissipation, decay, dt float64) error {
	kernel := KernelAdvect4D
	if source.Format() == volume.R {
		kernel = KernelAdvect1D
	}
	return advectSL(ctx, kernel, obstacle, velocity, source, target, dissipation, decay, dt)
}

func advectSL(ctx *volume.Context, kernel string, obstacle, velocity, source, target *volume.Field, dissipation, decay, dt float64) error {
	p, err := ctx.Bind(kernel)
	if err != nil {
		return err
	}
	defer p.Unbind()

	p.SetParameter("dt", param.Float(dt))
	p.SetParameter("dissipation", param.Float(dissipation))
	p.SetParameter("decay", param.Float(decay))

	b := volume.Bindings{}.
		Sample(0, velocity).
		Sample(1, source).
		Sample(2, obstacle).
		Write(0, target)
	gx, gy, gz := ctx.Groups()
	if err := p.Dispatch(b, gx, gy, gz); err != nil {
		return fmt.Errorf("advect %s: %w", source.Name(), err)
	}
	ctx.Barrier()
	return nil
}

// MacCormack runs a forward and a backward semi-Lagrangian pass and
// corrects the forward estimate by half the round-trip error.
type MacCormack struct {
	// Clamp limits the corrected value to the range of the source voxels
	// around the backtraced point.
	Clamp bool

	scratch map[volume.Format]*[2]*volume.Field
}

// NewMacCormack creates the strategy; scratch volumes are allocated on first use.
func NewMacCormack(clamp bool) *MacCormack {
	return &MacCormack{
		Clamp:   clamp,
		scratch: make(map[volume.Format]*[2]*volume.Field),
	}
}

// scratchFor returns the forward and backward estimate volumes matching f.
func (m *MacCormack) scratchFor(f *volume.Field) (fwd, back *volume.Field) {
	s, ok := m.scratch[f.Format()]
	if !ok || !s[0].Initialized() || s[0].Dims() != f.Dims() {
		s = &[2]*volume.Field{
			volume.New("maccormack.forward."+f.Format().String(), f.Dims(), f.Format()),
			volume.New("maccormack.backward."+f.Format().String(), f.Dims(), f.Format()),
		}
		m.scratch[f.Format()] = s
	}
	return s[0], s[1]
}

// Release frees the scratch volumes.
func (m *MacCormack) Release() {
	for k, s := range m.scratch {
		s[0].Reset()
		s[1].Reset()
		delete(m.scratch, k)
	}
}

// Advect implements Advection.
func (m *MacCormack) Advect(ctx *volume.Context, obstacle, velocity, source, target *volume.Field, dissipation, decay, dt float64) error {
	slKernel, mcKernel := KernelAdvect4D, KernelAdvectMC4D
	if source.Format() == volume.R {
		slKernel, mcKernel = KernelAdvect1D, KernelAdvectMC1D
	}
	fwd, back := m.scratchFor(source)

	if err := advectSL(ctx, slKernel, obstacle, velocity, source, fwd, 0, 0, dt); err != nil {
		return err
	}
	if err := advectSL(ctx, slKernel, obstacle, velocity, fwd, back, 0, 0, -dt); err != nil {
		return err
	}

	p, err := ctx.Bind(mcKernel)
	if err != nil {
		return err
	}
	defer p.Unbind()

	clamp := 0
	if m.Clamp {
		clamp = 1
	}
	p.SetParameter("dt", param.Float(dt))
	p.SetParameter("dissipation", param.Float(dissipation))
	p.SetParameter("decay", param.Float(decay))
	p.SetParameter("clamp", param.Int(clamp))

	b := volume.Bindings{}.
		Sample(0, velocity).
		Sample(1, source).
		Sample(2, fwd).
		Sample(3, back).
		Sample(4, obstacle).
		Write(0, target)
	gx, gy, gz := ctx.Groups()
	if err := p.Dispatch(b, gx, gy, gz); err != nil {
		return fmt.Errorf("maccormack %s: %w", source.Name(), err)
	}
	ctx.Barrier()
	return nil
}
