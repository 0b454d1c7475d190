// Package renderer raymarches the simulated volume into an image.
//
// Rendering runs on the same dispatcher as the solver: optional blurs of the
// obstacle, temperature, density and lighting volumes, a shadow pass into the
// lighting volume, and a raytracing pass over a 2D target field.
package renderer

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"

	"github.com/pthm-cable/smoke/fluid"
	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

// Render stage names reported to the StageTimer.
const (
	StageShadows         = "shadows"
	StageBlurShadows     = "blur_shadows"
	StageBlurTemperature = "blur_temperature"
	StageBlurDensity     = "blur_density"
	StageBlurObstacle    = "blur_obstacle"
	StageRayMarching     = "ray_marching"
)

// ErrEmptyView is returned when the view has no pixels.
var ErrEmptyView = errors.New("renderer: view has zero size")

// View is the per-frame camera input.
type View struct {
	// ViewProjection maps world to clip space (4x4).
	ViewProjection mat.Matrix
	// Width and Height of the render target in pixels.
	Width, Height int
}

// Raymarcher renders a fluid with the render kernels registered on its dispatcher.
type Raymarcher struct {
	Settings Settings

	dispatcher *volume.Dispatcher
	target     *volume.Field
	timer      fluid.StageTimer
	frame      int
}

// New creates a raymarcher and registers its kernels on d.
func New(d *volume.Dispatcher, s Settings) *Raymarcher {
	if !d.Has(KernelRaytracing) {
		RegisterKernels(d)
	}
	return &Raymarcher{Settings: s, dispatcher: d}
}

// SetTimer installs a stage timer; nil disables timing.
func (r *Raymarcher) SetTimer(t fluid.StageTimer) { r.timer = t }

func (r *Raymarcher) phase(name string) {
	if r.timer != nil {
		r.timer.StartPhase(name)
	}
}

// Target returns the last rendered target field, or nil.
func (r *Raymarcher) Target() *volume.Field { return r.target }

// Release frees the render target.
func (r *Raymarcher) Release() {
	if r.target != nil {
		r.target.Reset()
		r.target = nil
	}
}

// ModelMatrix maps the unit volume onto a box centred at the origin whose
// longest side is 1, preserving the grid aspect ratio.
func ModelMatrix(dims volume.Dims) *mat.Dense {
	m := float64(max(dims.X, dims.Y, dims.Z))
	sx, sy, sz := float64(dims.X)/m, float64(dims.Y)/m, float64(dims.Z)/m
	return mat.NewDense(4, 4, []float64{
		sx, 0, 0, -0.5 * sx,
		0, sy, 0, -0.5 * sy,
		0, 0, sz, -0.5 * sz,
		0, 0, 0, 1,
	})
}

// InverseMVP returns the inverse of ViewProjection * Model for the grid.
func InverseMVP(vp mat.Matrix, dims volume.Dims) (*mat.Dense, error) {
	var mvp, inv mat.Dense
	mvp.Mul(vp, ModelMatrix(dims))
	if err := inv.Inverse(&mvp); err != nil {
		return nil, fmt.Errorf("renderer: invert mvp: %w", err)
	}
	return &inv, nil
}

// Render runs the render passes for f and returns the shaded image.
func (r *Raymarcher) Render(f *fluid.Fluid, view View) (*image.RGBA, error) {
	if err := r.RenderField(f, view); err != nil {
		return nil, err
	}
	return ToImage(r.target), nil
}

// RenderField runs the render passes for f into the target field without
// converting it.
func (r *Raymarcher) RenderField(f *fluid.Fluid, view View) error {
	if !f.Initialized() {
		return fluid.ErrNotInitialized
	}
	if view.Width <= 0 || view.Height <= 0 {
		return ErrEmptyView
	}
	ctx := f.Context()
	s := r.Settings
	size := s.Blur.KernelSize
	r.frame++

	obstacle := f.ObstacleMask()
	if s.Blur.Obstacle.Enabled && f.ActiveObstacle() > 0 {
		r.phase(StageBlurObstacle)
		if err := obstacle.Blur(ctx, s.Blur.Obstacle.Factor, size); err != nil {
			return fmt.Errorf("blur obstacle: %w", err)
		}
		obstacle = obstacle.Blurred()
	}

	temperature := f.Temperature().Ping()
	if s.Radiance && s.Blur.Radiance.Enabled {
		r.phase(StageBlurTemperature)
		if err := temperature.Blur(ctx, s.Blur.Radiance.Factor, size); err != nil {
			return fmt.Errorf("blur temperature: %w", err)
		}
		temperature = temperature.Blurred()
	}

	density := f.Density().Ping()
	var blurred *volume.Field
	if s.Blur.Density.Enabled || s.Scattering {
		r.phase(StageBlurDensity)
		if err := density.Blur(ctx, s.Blur.Density.Factor, size); err != nil {
			return fmt.Errorf("blur density: %w", err)
		}
		blurred = density.Blurred()
		if s.Blur.Density.Enabled {
			density = blurred
		}
	}

	lighting := f.Lighting()
	if s.Shadows {
		r.phase(StageShadows)
		if err := r.shadows(ctx, density, obstacle, f.ActiveObstacle() > 0, lighting); err != nil {
			return err
		}
		if s.Blur.Shadows.Enabled {
			r.phase(StageBlurShadows)
			if err := lighting.Blur(ctx, s.Blur.Shadows.Factor, size); err != nil {
				return fmt.Errorf("blur shadows: %w", err)
			}
			lighting = lighting.Blurred()
		}
	}

	r.phase(StageRayMarching)
	inv, err := InverseMVP(view.ViewProjection, f.Dims())
	if err != nil {
		return err
	}
	r.ensureTarget(view.Width, view.Height)

	p, err := r.dispatcher.Bind(KernelRaytracing)
	if err != nil {
		return err
	}
	defer p.Unbind()
	p.SetParameter("invMVP", param.Mat4(inv))
	p.SetParameter("samples", param.Int(s.DensitySamples))
	p.SetParameter("jitter", param.Float(s.DensityJitter))
	p.SetParameter("absorption", param.Float(s.Absorption))
	p.SetParameter("densityFactor", param.Float(s.DensityFactor))
	p.SetParameter("lightColor", param.Vec3(s.LightColor))
	p.SetParameter("lightIntensity", param.Float(s.LightIntensity))
	p.SetParameter("ambient", param.Float(s.Ambient))
	p.SetParameter("falloff", param.Float(s.Falloff))
	p.SetParameter("background", param.Vec3(s.Background))
	p.SetParameter("shadows", param.Int(boolInt(s.Shadows)))
	p.SetParameter("radiance", param.Int(boolInt(s.Radiance)))
	p.SetParameter("scattering", param.Int(boolInt(s.Scattering && blurred != nil)))
	p.SetParameter("obstacle", param.Int(boolInt(f.ActiveObstacle() > 0)))
	p.SetParameter("debug", param.Int(int(s.Debug)))
	p.SetParameter("seed", param.Int(r.frame))

	b := volume.Bindings{}.
		Sample(0, density).
		Sample(1, lighting).
		Sample(2, obstacle).
		Sample(3, temperature).
		Write(0, r.target)
	if blurred != nil {
		b = b.Sample(4, blurred)
	}
	if err := p.DispatchAll(b); err != nil {
		return fmt.Errorf("ray marching: %w", err)
	}
	r.dispatcher.Barrier()
	return nil
}

func (r *Raymarcher) shadows(ctx *volume.Context, density, obstacle *volume.Field, solid bool, lighting *volume.Field) error {
	s := r.Settings
	p, err := ctx.Bind(KernelShadows)
	if err != nil {
		return err
	}
	defer p.Unbind()
	p.SetParameter("lightPosition", param.Vec3(s.LightPosition))
	p.SetParameter("samples", param.Int(s.ShadowSamples))
	p.SetParameter("jitter", param.Float(s.ShadowJitter))
	p.SetParameter("absorption", param.Float(s.Absorption))
	p.SetParameter("densityFactor", param.Float(s.DensityFactor))
	p.SetParameter("lightIntensity", param.Float(s.LightIntensity))
	p.SetParameter("falloff", param.Float(s.Falloff))
	p.SetParameter("seed", param.Int(r.frame))

	b := volume.Bindings{}.Sample(0, density).Write(0, lighting)
	if solid {
		b = b.Sample(1, obstacle)
	}
	if err := p.DispatchAll(b); err != nil {
		return fmt.Errorf("shadows: %w", err)
	}
	ctx.Barrier()
	return nil
}

func (r *Raymarcher) ensureTarget(w, h int) {
	dims := volume.Dims{X: w, Y: h, Z: 1}
	if r.target != nil && r.target.Dims() == dims {
		return
	}
	r.target = volume.New("render.target", dims, volume.RGBA)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
