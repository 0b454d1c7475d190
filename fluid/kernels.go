package fluid

import (
	"math"

	"github.com/pthm-cable/smoke/volume"
)

// Kernel names registered by RegisterKernels.
const (
	KernelAdvect4D           = "advect4D"
	KernelAdvect1D           = "advect1D"
	KernelAdvectMC4D         = "advectMC4D"
	KernelAdvectMC1D         = "advectMC1D"
	KernelBuoyancy           = "buoyancy"
	KernelVorticity          = "vorticity"
	KernelConfinement        = "confinement"
	KernelDivergence         = "divergence"
	KernelJacobi             = "jacobi"
	KernelProjection         = "projection"
	KernelInjection4D        = "injection4D"
	KernelInjection1D        = "injection1D"
	KernelInjectionVelocity  = "injectionVelocity"
	KernelObstacleFillNone   = "obstacleFillNone"
	KernelObstacleFillSphere = "obstacleFillSphere"
	KernelObstacleFillBox    = "obstacleFillBox"
)

// RegisterKernels adds the solver kernels to d.
func RegisterKernels(d *volume.Dispatcher) {
	d.Register(KernelAdvect4D, advectKernel)
	d.Register(KernelAdvect1D, advectKernel)
	d.Register(KernelAdvectMC4D, advectMCKernel)
	d.Register(KernelAdvectMC1D, advectMCKernel)
	d.Register(KernelBuoyancy, buoyancyKernel)
	d.Register(KernelVorticity, vorticityKernel)
	d.Register(KernelConfinement, confinementKernel)
	d.Register(KernelDivergence, divergenceKernel)
	d.Register(KernelJacobi, jacobiKernel)
	d.Register(KernelProjection, projectionKernel)
	d.Register(KernelInjection4D, injectionDensityKernel)
	d.Register(KernelInjection1D, injectionScalarKernel)
	d.Register(KernelInjectionVelocity, injectionVelocityKernel)
	d.Register(KernelObstacleFillNone, obstacleNoneKernel)
	d.Register(KernelObstacleFillSphere, obstacleSphereKernel)
	d.Register(KernelObstacleFillBox, obstacleBoxKernel)
}

// solid reports whether the mask marks voxel (x, y, z) as obstacle.
func solid(mask *volume.Field, x, y, z int) bool {
	return mask.At(x, y, z, 0) > 0.5
}

// applyLoss scales v by (1-dissipation) then shrinks its magnitude by shrink toward 0.
func applyLoss(v, keep, shrink float32) float32 {
	v *= keep
	if v > 0 {
		return max(v-shrink, 0)
	}
	return min(v+shrink, 0)
}

// neighbours returns clamped indices of the six face neighbours.
func neighbours(d volume.Dims, x, y, z int) (xl, xr, yb, yt, zk, zf int) {
	return volume.ClampIndex(x-1, d.X), volume.ClampIndex(x+1, d.X),
		volume.ClampIndex(y-1, d.Y), volume.ClampIndex(y+1, d.Y),
		volume.ClampIndex(z-1, d.Z), volume.ClampIndex(z+1, d.Z)
}

// advectKernel: semi-Lagrangian backtrace.
// sampler 0 velocity, 1 source, 2 obstacle; image 0 target.
func advectKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	src := a.Sampler(1)
	obs := a.Sampler(2)
	dst := a.Image(0)
	dt := a.Float("dt")
	keep := 1 - a.Float("dissipation")
	shrink := a.Float("decay") * dt
	if a.Err() != nil {
		return nil
	}
	ch := dst.Channels()

	return func(x, y, z int) {
		if solid(obs, x, y, z) {
			dst.SetVoxel(x, y, z, [4]float32{})
			return
		}
		u := vel.Voxel(x, y, z)
		v := src.Sample(float32(x)-dt*u[0], float32(y)-dt*u[1], float32(z)-dt*u[2])
		for c := 0; c < ch; c++ {
			v[c] = applyLoss(v[c], keep, shrink)
		}
		dst.SetVoxel(x, y, z, v)
	}
}

// advectMCKernel combines forward and backward estimates.
// sampler 0 velocity, 1 source, 2 forward estimate, 3 backward estimate,
// 4 obstacle; image 0 target.
func advectMCKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	src := a.Sampler(1)
	fwd := a.Sampler(2)
	back := a.Sampler(3)
	obs := a.Sampler(4)
	dst := a.Image(0)
	dt := a.Float("dt")
	keep := 1 - a.Float("dissipation")
	shrink := a.Float("decay") * dt
	clamp := a.IntOr("clamp", 1) != 0
	if a.Err() != nil {
		return nil
	}
	ch := dst.Channels()

	return func(x, y, z int) {
		if solid(obs, x, y, z) {
			dst.SetVoxel(x, y, z, [4]float32{})
			return
		}
		phi1 := fwd.Voxel(x, y, z)
		phi0 := back.Voxel(x, y, z)
		s := src.Voxel(x, y, z)

		var lo, hi [4]float32
		if clamp {
			u := vel.Voxel(x, y, z)
			lo, hi = src.Corners(float32(x)-dt*u[0], float32(y)-dt*u[1], float32(z)-dt*u[2])
		}
		var out [4]float32
		for c := 0; c < ch; c++ {
			v := phi1[c] + 0.5*(s[c]-phi0[c])
			if clamp {
				v = min(max(v, lo[c]), hi[c])
			}
			out[c] = applyLoss(v, keep, shrink)
		}
		dst.SetVoxel(x, y, z, out)
	}
}

// buoyancyKernel adds the buoyant force along a direction.
// sampler 0 velocity, 1 temperature, 2 density, 3 obstacle; image 0 velocity out.
func buoyancyKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	temp := a.Sampler(1)
	dens := a.Sampler(2)
	obs := a.Sampler(3)
	dst := a.Image(0)
	dt := a.Float("dt")
	strength := a.Float("strength")
	weight := a.Float("weight")
	ambient := a.Float("ambient")
	dir := a.Vec3("direction")
	if a.Err() != nil {
		return nil
	}

	return func(x, y, z int) {
		if solid(obs, x, y, z) {
			dst.SetVoxel(x, y, z, [4]float32{})
			return
		}
		u := vel.Voxel(x, y, z)
		t := temp.At(x, y, z, 0)
		d := dens.Voxel(x, y, z)
		rho := (d[0] + d[1] + d[2]) / 3
		f := dt * (strength*(t-ambient) - weight*rho)
		u[0] += f * dir[0]
		u[1] += f * dir[1]
		u[2] += f * dir[2]
		dst.SetVoxel(x, y, z, u)
	}
}

// vorticityKernel writes the curl of velocity.
// sampler 0 velocity; image 0 vorticity.
func vorticityKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	dst := a.Image(0)
	if a.Err() != nil {
		return nil
	}
	d := vel.Dims()

	return func(x, y, z int) {
		xl, xr, yb, yt, zk, zf := neighbours(d, x, y, z)
		uL := vel.Voxel(xl, y, z)
		uR := vel.Voxel(xr, y, z)
		uB := vel.Voxel(x, yb, z)
		uT := vel.Voxel(x, yt, z)
		uK := vel.Voxel(x, y, zk)
		uF := vel.Voxel(x, y, zf)
		dst.SetVoxel(x, y, z, [4]float32{
			0.5 * ((uT[2] - uB[2]) - (uF[1] - uK[1])),
			0.5 * ((uF[0] - uK[0]) - (uR[2] - uL[2])),
			0.5 * ((uR[1] - uL[1]) - (uT[0] - uB[0])),
			0,
		})
	}
}

// confinementKernel adds the vorticity confinement force.
// sampler 0 velocity, 1 vorticity, 2 obstacle; image 0 velocity out.
func confinementKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	vort := a.Sampler(1)
	obs := a.Sampler(2)
	dst := a.Image(0)
	dt := a.Float("dt")
	strength := a.Float("strength")
	if a.Err() != nil {
		return nil
	}
	d := vort.Dims()
	mag := func(x, y, z int) float32 {
		w := vort.Voxel(x, y, z)
		return float32(math.Sqrt(float64(w[0]*w[0] + w[1]*w[1] + w[2]*w[2])))
	}

	return func(x, y, z int) {
		if solid(obs, x, y, z) {
			dst.SetVoxel(x, y, z, [4]float32{})
			return
		}
		xl, xr, yb, yt, zk, zf := neighbours(d, x, y, z)
		gx := 0.5 * (mag(xr, y, z) - mag(xl, y, z))
		gy := 0.5 * (mag(x, yt, z) - mag(x, yb, z))
		gz := 0.5 * (mag(x, y, zf) - mag(x, y, zk))
		n := float32(math.Sqrt(float64(gx*gx+gy*gy+gz*gz))) + 1e-5
		gx, gy, gz = gx/n, gy/n, gz/n

		w := vort.Voxel(x, y, z)
		u := vel.Voxel(x, y, z)
		s := dt * strength
		u[0] += s * (gy*w[2] - gz*w[1])
		u[1] += s * (gz*w[0] - gx*w[2])
		u[2] += s * (gx*w[1] - gy*w[0])
		dst.SetVoxel(x, y, z, u)
	}
}

// divergenceKernel writes the central-difference divergence of velocity.
// Solid neighbours contribute zero velocity.
// sampler 0 velocity, 1 obstacle; image 0 divergence.
func divergenceKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	obs := a.Sampler(1)
	dst := a.Image(0)
	if a.Err() != nil {
		return nil
	}
	d := vel.Dims()
	at := func(x, y, z, c int) float32 {
		if solid(obs, x, y, z) {
			return 0
		}
		return vel.At(x, y, z, c)
	}

	return func(x, y, z int) {
		xl, xr, yb, yt, zk, zf := neighbours(d, x, y, z)
		div := 0.5 * ((at(xr, y, z, 0) - at(xl, y, z, 0)) +
			(at(x, yt, z, 1) - at(x, yb, z, 1)) +
			(at(x, y, zf, 2) - at(x, y, zk, 2)))
		dst.Set(x, y, z, 0, div)
	}
}

// jacobiKernel runs one relaxation pass of the pressure Poisson equation.
// Solid neighbours use the centre pressure.
// sampler 0 pressure, 1 divergence, 2 obstacle; image 0 pressure out.
func jacobiKernel(a *volume.Args) volume.VoxelFunc {
	pres := a.Sampler(0)
	div := a.Sampler(1)
	obs := a.Sampler(2)
	dst := a.Image(0)
	if a.Err() != nil {
		return nil
	}
	d := pres.Dims()

	return func(x, y, z int) {
		if solid(obs, x, y, z) {
			dst.Set(x, y, z, 0, 0)
			return
		}
		pC := pres.At(x, y, z, 0)
		p := func(nx, ny, nz int) float32 {
			if solid(obs, nx, ny, nz) {
				return pC
			}
			return pres.At(nx, ny, nz, 0)
		}
		xl, xr, yb, yt, zk, zf := neighbours(d, x, y, z)
		sum := p(xl, y, z) + p(xr, y, z) + p(x, yb, z) + p(x, yt, z) + p(x, y, zk) + p(x, y, zf)
		dst.Set(x, y, z, 0, (sum-div.At(x, y, z, 0))/6)
	}
}

// projectionKernel subtracts the pressure gradient from velocity.
// sampler 0 velocity, 1 pressure, 2 obstacle; image 0 velocity out.
func projectionKernel(a *volume.Args) volume.VoxelFunc {
	vel := a.Sampler(0)
	pres := a.Sampler(1)
	obs := a.Sampler(2)
	dst := a.Image(0)
	scale := a.Float("gradientScale")
	if a.Err() != nil {
		return nil
	}
	d := pres.Dims()

	return func(x, y, z int) {
		if solid(obs, x, y, z) {
			dst.SetVoxel(x, y, z, [4]float32{})
			return
		}
		pC := pres.At(x, y, z, 0)
		p := func(nx, ny, nz int) float32 {
			if solid(obs, nx, ny, nz) {
				return pC
			}
			return pres.At(nx, ny, nz, 0)
		}
		xl, xr, yb, yt, zk, zf := neighbours(d, x, y, z)
		u := vel.Voxel(x, y, z)
		s := 0.5 * scale
		u[0] -= s * (p(xr, y, z) - p(xl, y, z))
		u[1] -= s * (p(x, yt, z) - p(x, yb, z))
		u[2] -= s * (p(x, y, zf) - p(x, y, zk))
		dst.SetVoxel(x, y, z, u)
	}
}

// gaussian holds the resolved parameters of an injection splat.
type gaussian struct {
	px, py, pz float32
	inv2s2     float32
	scale      float32 // intensity * dt
	nx, ny, nz float32
}

func newGaussian(a *volume.Args, dims volume.Dims) gaussian {
	pos := a.Vec3("position")
	sigma := a.Float("sigma")
	if sigma <= 0 {
		sigma = 1e-4
	}
	return gaussian{
		px: pos[0], py: pos[1], pz: pos[2],
		inv2s2: 1 / (2 * sigma * sigma),
		scale:  a.Float("intensity") * a.Float("dt"),
		nx:     float32(dims.X), ny: float32(dims.Y), nz: float32(dims.Z),
	}
}

// at returns the splat amount at voxel (x, y, z).
func (g gaussian) at(x, y, z int) float32 {
	dx := (float32(x)+0.5)/g.nx - g.px
	dy := (float32(y)+0.5)/g.ny - g.py
	dz := (float32(z)+0.5)/g.nz - g.pz
	d2 := dx*dx + dy*dy + dz*dz
	return g.scale * float32(math.Exp(float64(-d2*g.inv2s2)))
}

// injectionDensityKernel adds color*intensity/3 weighted by the splat.
// sampler 0 source; image 0 target.
func injectionDensityKernel(a *volume.Args) volume.VoxelFunc {
	src := a.Sampler(0)
	dst := a.Image(0)
	color := a.Vec3("color")
	if a.Err() != nil {
		return nil
	}
	g := newGaussian(a, dst.Dims())
	if a.Err() != nil {
		return nil
	}

	return func(x, y, z int) {
		v := src.Voxel(x, y, z)
		s := g.at(x, y, z) / 3
		v[0] += color[0] * s
		v[1] += color[1] * s
		v[2] += color[2] * s
		dst.SetVoxel(x, y, z, v)
	}
}

// injectionScalarKernel adds the splat to channel 0.
// sampler 0 source; image 0 target.
func injectionScalarKernel(a *volume.Args) volume.VoxelFunc {
	src := a.Sampler(0)
	dst := a.Image(0)
	if a.Err() != nil {
		return nil
	}
	g := newGaussian(a, dst.Dims())
	if a.Err() != nil {
		return nil
	}

	return func(x, y, z int) {
		dst.Set(x, y, z, 0, src.At(x, y, z, 0)+g.at(x, y, z))
	}
}

// injectionVelocityKernel adds the splat along a direction.
// sampler 0 source; image 0 target.
func injectionVelocityKernel(a *volume.Args) volume.VoxelFunc {
	src := a.Sampler(0)
	dst := a.Image(0)
	dir := a.Vec3("direction")
	if a.Err() != nil {
		return nil
	}
	g := newGaussian(a, dst.Dims())
	if a.Err() != nil {
		return nil
	}

	return func(x, y, z int) {
		v := src.Voxel(x, y, z)
		s := g.at(x, y, z)
		v[0] += dir[0] * s
		v[1] += dir[1] * s
		v[2] += dir[2] * s
		dst.SetVoxel(x, y, z, v)
	}
}

// shell reports whether (x, y, z) lies on the outer voxel layer.
func shell(d volume.Dims, x, y, z int) bool {
	return x == 0 || y == 0 || z == 0 || x == d.X-1 || y == d.Y-1 || z == d.Z-1
}

// normalized returns the voxel centre in [0,1]^3.
func normalized(d volume.Dims, x, y, z int) (float32, float32, float32) {
	return (float32(x) + 0.5) / float32(d.X),
		(float32(y) + 0.5) / float32(d.Y),
		(float32(z) + 0.5) / float32(d.Z)
}

func maskValue(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// obstacleNoneKernel writes the boundary shell only. image 0 mask.
func obstacleNoneKernel(a *volume.Args) volume.VoxelFunc {
	dst := a.Image(0)
	if a.Err() != nil {
		return nil
	}
	d := dst.Dims()
	return func(x, y, z int) {
		dst.Set(x, y, z, 0, maskValue(shell(d, x, y, z)))
	}
}

// obstacleSphereKernel writes the shell plus a sphere. image 0 mask.
func obstacleSphereKernel(a *volume.Args) volume.VoxelFunc {
	dst := a.Image(0)
	pos := a.Vec3("position")
	r := a.Float("radius")
	if a.Err() != nil {
		return nil
	}
	d := dst.Dims()
	r2 := r * r
	return func(x, y, z int) {
		nx, ny, nz := normalized(d, x, y, z)
		dx, dy, dz := nx-pos[0], ny-pos[1], nz-pos[2]
		inside := dx*dx+dy*dy+dz*dz <= r2
		dst.Set(x, y, z, 0, maskValue(inside || shell(d, x, y, z)))
	}
}

// obstacleBoxKernel writes the shell plus an axis-aligned cube. image 0 mask.
func obstacleBoxKernel(a *volume.Args) volume.VoxelFunc {
	dst := a.Image(0)
	pos := a.Vec3("position")
	e := a.Float("extent")
	if a.Err() != nil {
		return nil
	}
	d := dst.Dims()
	abs := func(v float32) float32 { return float32(math.Abs(float64(v))) }
	return func(x, y, z int) {
		nx, ny, nz := normalized(d, x, y, z)
		inside := abs(nx-pos[0]) <= e && abs(ny-pos[1]) <= e && abs(nz-pos[2]) <= e
		dst.Set(x, y, z, 0, maskValue(inside || shell(d, x, y, z)))
	}
}
