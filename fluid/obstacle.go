package fluid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/smoke/param"
	"github.com/pthm-cable/smoke/volume"
)

// Obstacle fills the shared solid mask (1 = solid).
type Obstacle interface {
	Fill(ctx *volume.Context, mask *volume.Field) error
}

// Movable is an obstacle with a position.
type Movable interface {
	Center() r3.Vec
	MoveTo(pos r3.Vec)
}

// fillMask binds kernel, applies properties and writes the mask.
func fillMask(ctx *volume.Context, mask *volume.Field, kernel string, bind func(*volume.Pipeline)) error {
	p, err := ctx.Bind(kernel)
	if err != nil {
		return err
	}
	defer p.Unbind()

	if bind != nil {
		bind(p)
	}
	gx, gy, gz := ctx.Groups()
	if err := p.Dispatch(volume.Bindings{}.Write(0, mask), gx, gy, gz); err != nil {
		return fmt.Errorf("obstacle %s: %w", kernel, err)
	}
	ctx.Barrier()
	return nil
}

// NoObstacle marks only the domain boundary as solid.
type NoObstacle struct{}

// Fill implements Obstacle.
func (NoObstacle) Fill(ctx *volume.Context, mask *volume.Field) error {
	return fillMask(ctx, mask, KernelObstacleFillNone, nil)
}

// Reset is a no-op.
func (NoObstacle) Reset() {}

// BindProperties is a no-op.
func (NoObstacle) BindProperties(*volume.Pipeline) {}

func (NoObstacle) String() string { return "none" }

// Sphere is a solid ball in normalized coordinates.
type Sphere struct {
	Position r3.Vec
	Radius   float64

	defaultPosition r3.Vec
	defaultRadius   float64
}

// NewSphere creates a sphere; Reset restores these values.
func NewSphere(pos r3.Vec, radius float64) *Sphere {
	return &Sphere{
		Position:        pos,
		Radius:          radius,
		defaultPosition: pos,
		defaultRadius:   radius,
	}
}

// Fill implements Obstacle.
func (s *Sphere) Fill(ctx *volume.Context, mask *volume.Field) error {
	return fillMask(ctx, mask, KernelObstacleFillSphere, s.BindProperties)
}

// BindProperties sets position and radius.
func (s *Sphere) BindProperties(p *volume.Pipeline) {
	p.SetParameter("position", param.Vec3(s.Position))
	p.SetParameter("radius", param.Float(s.Radius))
}

// Reset restores the construction position and radius.
func (s *Sphere) Reset() {
	s.Position = s.defaultPosition
	s.Radius = s.defaultRadius
}

// Center implements Movable.
func (s *Sphere) Center() r3.Vec { return s.Position }

// MoveTo implements Movable.
func (s *Sphere) MoveTo(pos r3.Vec) { s.Position = pos }

func (s *Sphere) String() string { return "sphere" }

// Cube is a solid axis-aligned cube with half-size Extent.
type Cube struct {
	Position r3.Vec
	Extent   float64

	defaultPosition r3.Vec
	defaultExtent   float64
}

// NewCube creates a cube; Reset restores these values.
func NewCube(pos r3.Vec, extent float64) *Cube {
	return &Cube{
		Position:        pos,
		Extent:          extent,
		defaultPosition: pos,
		defaultExtent:   extent,
	}
}

// Fill implements Obstacle.
func (c *Cube) Fill(ctx *volume.Context, mask *volume.Field) error {
	return fillMask(ctx, mask, KernelObstacleFillBox, c.BindProperties)
}

// BindProperties sets position and extent.
func (c *Cube) BindProperties(p *volume.Pipeline) {
	p.SetParameter("position", param.Vec3(c.Position))
	p.SetParameter("extent", param.Float(c.Extent))
}

// Reset restores the construction position and extent.
func (c *Cube) Reset() {
	c.Position = c.defaultPosition
	c.Extent = c.defaultExtent
}

// Center implements Movable.
func (c *Cube) Center() r3.Vec { return c.Position }

// MoveTo implements Movable.
func (c *Cube) MoveTo(pos r3.Vec) { c.Position = pos }

func (c *Cube) String() string { return "cube" }
