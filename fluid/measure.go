package fluid

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/smoke/volume"
)

// Measurements summarizes the solver state for telemetry and tuning.
type Measurements struct {
	DensityMass     float64
	CenterOfMass    r3.Vec // normalized coordinates, zero when there is no mass
	MaxDensity      float64
	MaxTemperature  float64
	MeanTemperature float64
	MaxSpeed        float64
	MaxDivergence   float64
}

// Measure reads back the current volumes. Call after Step returns.
func (f *Fluid) Measure() Measurements {
	if !f.initialized {
		return Measurements{}
	}
	w := DensityWeights(f.density.Ping())
	temp := DensityWeights(f.temperature.Ping())
	m := Measurements{
		DensityMass:     floats.Sum(w),
		MaxDensity:      floats.Max(w),
		MaxTemperature:  floats.Max(temp),
		MeanTemperature: stat.Mean(temp, nil),
		MaxSpeed:        MaxMagnitude(f.velocity.Ping()),
		MaxDivergence:   MaxAbs(f.divergence),
	}
	if c, ok := centerOf(f.dims, w); ok {
		m.CenterOfMass = c
	}
	return m
}

// DensityWeights returns the per-voxel mean of the first three channels,
// or channel 0 for scalar fields.
func DensityWeights(fd *volume.Field) []float64 {
	data := fd.Data()
	ch := fd.Channels()
	n := fd.Dims().Count()
	w := make([]float64, n)
	used := min(ch, 3)
	for i := 0; i < n; i++ {
		var s float32
		for c := 0; c < used; c++ {
			s += data[i*ch+c]
		}
		w[i] = float64(s) / float64(used)
	}
	return w
}

// Mass returns the sum of DensityWeights.
func Mass(fd *volume.Field) float64 {
	return floats.Sum(DensityWeights(fd))
}

// CenterOfMass returns the density-weighted centre in normalized
// coordinates. ok is false when the field holds no positive mass.
func CenterOfMass(fd *volume.Field) (c r3.Vec, ok bool) {
	return centerOf(fd.Dims(), DensityWeights(fd))
}

func centerOf(d volume.Dims, w []float64) (r3.Vec, bool) {
	total := floats.Sum(w)
	if total <= 0 {
		return r3.Vec{}, false
	}
	xs := make([]float64, len(w))
	ys := make([]float64, len(w))
	zs := make([]float64, len(w))
	i := 0
	for z := 0; z < d.Z; z++ {
		for y := 0; y < d.Y; y++ {
			for x := 0; x < d.X; x++ {
				xs[i] = (float64(x) + 0.5) / float64(d.X)
				ys[i] = (float64(y) + 0.5) / float64(d.Y)
				zs[i] = (float64(z) + 0.5) / float64(d.Z)
				i++
			}
		}
	}
	return r3.Vec{
		X: floats.Dot(w, xs) / total,
		Y: floats.Dot(w, ys) / total,
		Z: floats.Dot(w, zs) / total,
	}, true
}

// MaxMagnitude returns the largest xyz vector length in a vector field.
func MaxMagnitude(fd *volume.Field) float64 {
	data := fd.Data()
	ch := fd.Channels()
	var best float64
	for i := 0; i+ch <= len(data); i += ch {
		var s float64
		for c := 0; c < min(ch, 3); c++ {
			s += float64(data[i+c]) * float64(data[i+c])
		}
		best = math.Max(best, s)
	}
	return math.Sqrt(best)
}

// MaxAbs returns the largest absolute value in channel 0.
func MaxAbs(fd *volume.Field) float64 {
	data := fd.Data()
	ch := fd.Channels()
	var best float64
	for i := 0; i < len(data); i += ch {
		best = math.Max(best, math.Abs(float64(data[i])))
	}
	return best
}
