package volume

import (
	"fmt"

	"github.com/pthm-cable/smoke/param"
)

// Built-in kernel names.
const (
	KernelClear = "clear"
	KernelBlur  = "blur"
)

// blurKernel convolves sampler 0 along one axis into image 0.
// Buffer 0 holds weights, buffer 1 holds integer tap offsets.
func blurKernel(a *Args) VoxelFunc {
	src := a.Sampler(0)
	dst := a.Image(0)
	weights := a.Buffer(0)
	offsets := a.Buffer(1)
	axis := a.Int("axis")
	if a.Err() != nil {
		return nil
	}
	if axis < 0 || axis > 2 {
		a.Fail(fmt.Errorf("blur axis %d out of range", axis))
		return nil
	}
	if len(weights.Floats) != len(offsets.Ints) {
		a.Fail(fmt.Errorf("blur has %d weights and %d offsets", len(weights.Floats), len(offsets.Ints)))
		return nil
	}

	sd := src.Dims()
	ch := dst.Channels()
	w := weights.Floats
	off := offsets.Ints

	return func(x, y, z int) {
		var acc [4]float32
		for i, wt := range w {
			sx, sy, sz := x, y, z
			o := int(off[i])
			switch axis {
			case 0:
				sx = ClampIndex(x+o, sd.X)
			case 1:
				sy = ClampIndex(y+o, sd.Y)
			default:
				sz = ClampIndex(z+o, sd.Z)
			}
			v := src.Voxel(sx, sy, sz)
			for c := 0; c < ch; c++ {
				acc[c] += wt * v[c]
			}
		}
		dst.SetVoxel(x, y, z, acc)
	}
}

// Blur runs a separable Gaussian over the field into its blurred copy,
// creating the copy on first use. Passes run X, Y then Z through the
// context's scratch volumes. Sigma below ctx.SigmaMin is clamped.
func (f *Field) Blur(ctx *Context, sigma float64, size int) error {
	if !f.initialized {
		return fmt.Errorf("volume: blur %s: field not initialized", f.name)
	}
	if ctx.Dims() != f.dims {
		return fmt.Errorf("volume: blur %s: field is %s, context is %s", f.name, f.dims, ctx.Dims())
	}
	if sigma < ctx.SigmaMin {
		sigma = ctx.SigmaMin
	}
	if size < 1 {
		size = 1
	}

	if f.blurred == nil {
		f.blurred = New(f.name+".blurred", f.dims, f.format)
	}
	if f.weights == nil {
		f.weights = &Buffer{}
		f.offsets = &Buffer{}
	}
	kw := GaussianKernel(sigma, size)
	f.weights.Floats = f.weights.Floats[:0]
	for _, w := range kw {
		f.weights.Floats = append(f.weights.Floats, float32(w))
	}
	f.offsets.Ints = BlurOffsets(size)

	p, err := ctx.Bind(KernelBlur)
	if err != nil {
		return err
	}
	defer p.Unbind()

	ping, pong := ctx.scratch()
	passes := [3]struct{ src, dst *Field }{
		{f, ping},
		{ping, pong},
		{pong, f.blurred},
	}
	gx, gy, gz := ctx.Groups()
	for axis, pass := range passes {
		p.SetParameter("axis", param.Int(axis))
		b := Bindings{}.
			Sample(0, pass.src).
			Write(0, pass.dst).
			Buffer(0, f.weights).
			Buffer(1, f.offsets)
		if err := p.Dispatch(b, gx, gy, gz); err != nil {
			return fmt.Errorf("volume: blur %s pass %d: %w", f.name, axis, err)
		}
		ctx.Barrier()
	}
	return nil
}
