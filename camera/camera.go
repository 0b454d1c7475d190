// Package camera provides an orbit camera around the simulation volume.
package camera

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Camera orbits a target point. Angles are in degrees.
type Camera struct {
	// Target is the orbit centre in world coordinates
	Target r3.Vec

	// Yaw rotates around the world up axis, Pitch tilts toward it
	Yaw, Pitch float64

	// Distance from the target
	Distance float64

	// Vertical field of view in degrees
	FOV float64

	// Clip planes
	Near, Far float64

	// Viewport dimensions (for aspect ratio)
	ViewportW, ViewportH float64

	// Distance constraints
	MinDistance, MaxDistance float64
}

// maxPitch keeps the camera off the poles where lookAt degenerates.
const maxPitch = 89.0

// New creates a camera looking at the origin.
func New(viewportW, viewportH float64) *Camera {
	return &Camera{
		Yaw:         30,
		Pitch:       20,
		Distance:    2.5,
		FOV:         45,
		Near:        0.1,
		Far:         100,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		MinDistance: 1.2,
		MaxDistance: 8,
	}
}

// Aspect returns viewport width over height.
func (c *Camera) Aspect() float64 {
	if c.ViewportH <= 0 {
		return 1
	}
	return c.ViewportW / c.ViewportH
}

// Eye returns the camera position in world coordinates.
func (c *Camera) Eye() r3.Vec {
	yaw := c.Yaw * math.Pi / 180
	pitch := c.Pitch * math.Pi / 180
	offset := r3.Vec{
		X: c.Distance * math.Cos(pitch) * math.Sin(yaw),
		Y: c.Distance * math.Sin(pitch),
		Z: c.Distance * math.Cos(pitch) * math.Cos(yaw),
	}
	return r3.Add(c.Target, offset)
}

// Orbit rotates the camera by the given degrees, clamping pitch.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 360)
	c.Pitch = clamp(c.Pitch+dPitch, -maxPitch, maxPitch)
}

// Zoom scales the distance by factor, clamped to the distance limits.
// Factors below 1 move closer.
func (c *Camera) Zoom(factor float64) {
	c.Distance = clamp(c.Distance*factor, c.MinDistance, c.MaxDistance)
}

// Resize updates the viewport dimensions.
func (c *Camera) Resize(w, h float64) {
	c.ViewportW = w
	c.ViewportH = h
}

// View returns the world-to-camera matrix (right-handed, looking down -Z).
func (c *Camera) View() *mat.Dense {
	return LookAt(c.Eye(), c.Target, r3.Vec{Y: 1})
}

// Projection returns the OpenGL-style perspective matrix mapping view
// space to clip space with depth in [-1, 1].
func (c *Camera) Projection() *mat.Dense {
	return Perspective(c.FOV, c.Aspect(), c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() *mat.Dense {
	var vp mat.Dense
	vp.Mul(c.Projection(), c.View())
	return &vp
}

// LookAt builds a view matrix for an eye looking at center.
func LookAt(eye, center, up r3.Vec) *mat.Dense {
	f := r3.Unit(r3.Sub(center, eye))
	s := r3.Unit(r3.Cross(f, up))
	u := r3.Cross(s, f)
	return mat.NewDense(4, 4, []float64{
		s.X, s.Y, s.Z, -r3.Dot(s, eye),
		u.X, u.Y, u.Z, -r3.Dot(u, eye),
		-f.X, -f.Y, -f.Z, r3.Dot(f, eye),
		0, 0, 0, 1,
	})
}

// Perspective builds a perspective matrix from a vertical FOV in degrees.
func Perspective(fovDeg, aspect, near, far float64) *mat.Dense {
	f := 1 / math.Tan(fovDeg*math.Pi/360)
	nf := 1 / (near - far)
	return mat.NewDense(4, 4, []float64{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, 2 * far * near * nf,
		0, 0, -1, 0,
	})
}

// Project maps a world point through m and returns normalized device coordinates.
func Project(m mat.Matrix, p r3.Vec) r3.Vec {
	v := mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1})
	var out mat.VecDense
	out.MulVec(m, v)
	w := out.AtVec(3)
	return r3.Vec{X: out.AtVec(0) / w, Y: out.AtVec(1) / w, Z: out.AtVec(2) / w}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
