package renderer

import (
	"math"

	"github.com/pthm-cable/smoke/volume"
)

// Kernel names registered by RegisterKernels.
const (
	KernelShadows    = "shadows"
	KernelRaytracing = "raytracing"
)

// RegisterKernels adds the render kernels to d.
func RegisterKernels(d *volume.Dispatcher) {
	d.Register(KernelShadows, shadowsKernel)
	d.Register(KernelRaytracing, raytracingKernel)
}

// hash01 maps integer coordinates to a pseudo-random value in [0, 1).
func hash01(x, y, z, seed int) float32 {
	h := uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(z)*83492791 ^ uint32(seed)*2654435761
	h ^= h >> 16
	h *= 0x7feb352d
	h ^= h >> 15
	h *= 0x846ca68b
	h ^= h >> 16
	return float32(h>>8) / float32(1<<24)
}

func luminance(v [4]float32) float32 {
	return (v[0] + v[1] + v[2]) / 3
}

func exp32(v float32) float32 {
	return float32(math.Exp(float64(v)))
}

// shadowsKernel marches from each voxel toward the light, accumulating
// density, and writes the transmitted light intensity.
// sampler 0 density, 1 obstacle (optional); image 0 lighting.
func shadowsKernel(a *volume.Args) volume.VoxelFunc {
	dens := a.Sampler(0)
	obs := a.OptionalSampler(1)
	dst := a.Image(0)
	light := a.Vec3("lightPosition")
	samples := a.Int("samples")
	jitter := a.Float("jitter")
	absorption := a.Float("absorption")
	factor := a.Float("densityFactor")
	intensity := a.Float("lightIntensity")
	falloff := a.Float("falloff")
	seed := a.IntOr("seed", 0)
	if a.Err() != nil {
		return nil
	}
	if samples < 1 {
		samples = 1
	}
	d := dst.Dims()
	step := 1 / float32(samples)

	return func(x, y, z int) {
		px := (float32(x) + 0.5) / float32(d.X)
		py := (float32(y) + 0.5) / float32(d.Y)
		pz := (float32(z) + 0.5) / float32(d.Z)
		lx, ly, lz := light[0]-px, light[1]-py, light[2]-pz
		dist := float32(math.Sqrt(float64(lx*lx + ly*ly + lz*lz)))
		if dist > 0 {
			lx, ly, lz = lx/dist, ly/dist, lz/dist
		}

		t := step * (1 + jitter*hash01(x, y, z, seed))
		var acc float32
		for i := 0; i < samples && t < dist; i++ {
			sx, sy, sz := px+lx*t, py+ly*t, pz+lz*t
			if sx < 0 || sy < 0 || sz < 0 || sx > 1 || sy > 1 || sz > 1 {
				break
			}
			acc += luminance(dens.SampleNormalized(sx, sy, sz)) * factor * step
			if obs != nil && interior(obs, sx, sy, sz) && obs.SampleNormalized(sx, sy, sz)[0] > 0.5 {
				acc = float32(math.Inf(1))
				break
			}
			t += step
		}

		atten := falloff / (falloff + dist*dist)
		dst.Set(x, y, z, 0, intensity*atten*exp32(-absorption*acc))
	}
}

// interior reports whether a normalized point is at least one voxel inside
// the boundary shell of f.
func interior(f *volume.Field, u, v, w float32) bool {
	d := f.Dims()
	mx, my, mz := 1/float32(d.X), 1/float32(d.Y), 1/float32(d.Z)
	return u > mx && v > my && w > mz && u < 1-mx && v < 1-my && w < 1-mz
}

// transform multiplies a row-major 4x4 matrix by (x, y, z, 1) and divides by w.
func transform(m *[16]float64, x, y, z float64) (float64, float64, float64) {
	ox := m[0]*x + m[1]*y + m[2]*z + m[3]
	oy := m[4]*x + m[5]*y + m[6]*z + m[7]
	oz := m[8]*x + m[9]*y + m[10]*z + m[11]
	ow := m[12]*x + m[13]*y + m[14]*z + m[15]
	if ow != 0 {
		ox, oy, oz = ox/ow, oy/ow, oz/ow
	}
	return ox, oy, oz
}

// intersectUnitBox returns the parametric entry and exit of a ray with [0,1]^3.
func intersectUnitBox(o, d [3]float64) (tNear, tFar float64, hit bool) {
	tNear, tFar = math.Inf(-1), math.Inf(1)
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < 0 || o[i] > 1 {
				return 0, 0, false
			}
			continue
		}
		t0 := (0 - o[i]) / d[i]
		t1 := (1 - o[i]) / d[i]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		tNear = math.Max(tNear, t0)
		tFar = math.Min(tFar, t1)
	}
	if tFar < math.Max(tNear, 0) {
		return 0, 0, false
	}
	return math.Max(tNear, 0), tFar, true
}

// fireColor maps a temperature to an emission color.
func fireColor(t float32) (r, g, b float32) {
	t = min(max(t, 0), 1)
	return t * 1.0, t * t * 0.55, t * t * t * 0.15
}

// raytracingKernel shades one pixel per invocation of a W x H x 1 target.
// sampler 0 density, 1 lighting, 2 obstacle, 3 temperature,
// 4 blurred density (scattering only); image 0 target.
func raytracingKernel(a *volume.Args) volume.VoxelFunc {
	dst := a.Image(0)
	dens := a.Sampler(0)
	lighting := a.Sampler(1)
	obs := a.Sampler(2)
	temp := a.Sampler(3)
	inv := a.Mat4("invMVP")
	samples := a.Int("samples")
	jitter := a.Float("jitter")
	absorption := a.Float("absorption")
	factor := a.Float("densityFactor")
	lightColor := a.Vec3("lightColor")
	lightIntensity := a.Float("lightIntensity")
	ambient := a.Float("ambient")
	falloff := a.Float("falloff")
	background := a.Vec3("background")
	useShadows := a.Int("shadows") != 0
	radiance := a.Int("radiance") != 0
	scattering := a.Int("scattering") != 0
	hasObstacle := a.Int("obstacle") != 0
	debug := DebugMode(a.Int("debug"))
	seed := a.IntOr("seed", 0)
	var blurred *volume.Field
	if scattering {
		blurred = a.Sampler(4)
	}
	if a.Err() != nil {
		return nil
	}
	if samples < 1 {
		samples = 1
	}
	if lightIntensity <= 0 {
		lightIntensity = 1
	}
	if falloff <= 0 {
		falloff = 1
	}

	td := dst.Dims()
	w, h := float64(td.X), float64(td.Y)
	step := math.Sqrt(3) / float64(samples)
	bg := [4]float32{background[0], background[1], background[2], 1}

	return func(px, py, _ int) {
		nx := (float64(px)+0.5)/w*2 - 1
		ny := 1 - (float64(py)+0.5)/h*2
		ox, oy, oz := transform(&inv, nx, ny, -1)
		fx, fy, fz := transform(&inv, nx, ny, 1)
		dir := [3]float64{fx - ox, fy - oy, fz - oz}
		l := math.Sqrt(dir[0]*dir[0] + dir[1]*dir[1] + dir[2]*dir[2])
		if l == 0 {
			dst.SetVoxel(px, py, 0, bg)
			return
		}
		dir = [3]float64{dir[0] / l, dir[1] / l, dir[2] / l}
		origin := [3]float64{ox, oy, oz}

		tNear, tFar, hit := intersectUnitBox(origin, dir)
		if debug == DebugDirections {
			dst.SetVoxel(px, py, 0, [4]float32{
				float32(math.Abs(dir[0])), float32(math.Abs(dir[1])), float32(math.Abs(dir[2])), 1,
			})
			return
		}
		if !hit {
			dst.SetVoxel(px, py, 0, bg)
			return
		}
		switch debug {
		case DebugFrontFaces:
			dst.SetVoxel(px, py, 0, [4]float32{
				float32(origin[0] + dir[0]*tNear), float32(origin[1] + dir[1]*tNear), float32(origin[2] + dir[2]*tNear), 1,
			})
			return
		case DebugBackFaces:
			dst.SetVoxel(px, py, 0, [4]float32{
				float32(origin[0] + dir[0]*tFar), float32(origin[1] + dir[1]*tFar), float32(origin[2] + dir[2]*tFar), 1,
			})
			return
		}

		trans := float32(1)
		var col [3]float32
		s32 := float32(step)
		t := tNear + step*float64(jitter*hash01(px, py, 0, seed))
		for ; t < tFar; t += step {
			u := float32(origin[0] + dir[0]*t)
			v := float32(origin[1] + dir[1]*t)
			wv := float32(origin[2] + dir[2]*t)

			if hasObstacle && interior(obs, u, v, wv) && obs.SampleNormalized(u, v, wv)[0] > 0.5 {
				lit := float32(1)
				if useShadows {
					lit = lighting.SampleNormalized(u, v, wv)[0] / lightIntensity
				}
				shade := 0.35 + 0.65*min(lit, 1)
				for c := 0; c < 3; c++ {
					col[c] += trans * 0.6 * shade * lightColor[c]
				}
				trans = 0
				break
			}

			s := dens.SampleNormalized(u, v, wv)
			rho := luminance(s) * factor
			if rho <= 0 {
				continue
			}
			absorb := exp32(-absorption * rho * s32)

			lit := float32(1)
			if useShadows {
				lit = lighting.SampleNormalized(u, v, wv)[0] / lightIntensity
			}
			// albedo follows the injected color
			albedo := [3]float32{1, 1, 1}
			if m := luminance(s); m > 0 {
				albedo = [3]float32{s[0] / m, s[1] / m, s[2] / m}
			}
			scatter := (1 - absorb) * trans
			for c := 0; c < 3; c++ {
				col[c] += scatter * albedo[c] * lightColor[c] * (lit + 0.1*ambient)
			}

			if radiance {
				e := temp.SampleNormalized(u, v, wv)[0] * 100 / falloff
				r, g, b := fireColor(e)
				col[0] += trans * r * rho * s32
				col[1] += trans * g * rho * s32
				col[2] += trans * b * rho * s32
			}
			if scattering {
				ms := luminance(blurred.SampleNormalized(u, v, wv)) * factor
				for c := 0; c < 3; c++ {
					col[c] += trans * ms * s32 * 0.25 * ambient * lightColor[c]
				}
			}

			trans *= absorb
			if trans < 0.005 {
				trans = 0
				break
			}
		}

		var out [4]float32
		for c := 0; c < 3; c++ {
			out[c] = min(col[c]+trans*bg[c], 1)
		}
		out[3] = 1
		dst.SetVoxel(px, py, 0, out)
	}
}
