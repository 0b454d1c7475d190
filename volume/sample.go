package volume

import "math"

// Sample trilinearly interpolates the field at voxel-space position (x, y, z)
// where integer coordinates are voxel centers. Coordinates are clamped to the
// grid edge. Missing channels are 0.
func (f *Field) Sample(x, y, z float32) [4]float32 {
	var out [4]float32
	x0, x1, tx := f.axis(x, f.dims.X)
	y0, y1, ty := f.axis(y, f.dims.Y)
	z0, z1, tz := f.axis(z, f.dims.Z)

	c := f.format.Channels()
	i000 := f.Index(x0, y0, z0)
	i100 := f.Index(x1, y0, z0)
	i010 := f.Index(x0, y1, z0)
	i110 := f.Index(x1, y1, z0)
	i001 := f.Index(x0, y0, z1)
	i101 := f.Index(x1, y0, z1)
	i011 := f.Index(x0, y1, z1)
	i111 := f.Index(x1, y1, z1)

	d := f.data
	for ch := 0; ch < c; ch++ {
		a := d[i000+ch] + (d[i100+ch]-d[i000+ch])*tx
		b := d[i010+ch] + (d[i110+ch]-d[i010+ch])*tx
		e := d[i001+ch] + (d[i101+ch]-d[i001+ch])*tx
		g := d[i011+ch] + (d[i111+ch]-d[i011+ch])*tx
		lo := a + (b-a)*ty
		hi := e + (g-e)*ty
		out[ch] = lo + (hi-lo)*tz
	}
	return out
}

// SampleScalar is Sample restricted to channel 0.
func (f *Field) SampleScalar(x, y, z float32) float32 {
	x0, x1, tx := f.axis(x, f.dims.X)
	y0, y1, ty := f.axis(y, f.dims.Y)
	z0, z1, tz := f.axis(z, f.dims.Z)

	d := f.data
	a := d[f.Index(x0, y0, z0)] + (d[f.Index(x1, y0, z0)]-d[f.Index(x0, y0, z0)])*tx
	b := d[f.Index(x0, y1, z0)] + (d[f.Index(x1, y1, z0)]-d[f.Index(x0, y1, z0)])*tx
	e := d[f.Index(x0, y0, z1)] + (d[f.Index(x1, y0, z1)]-d[f.Index(x0, y0, z1)])*tx
	g := d[f.Index(x0, y1, z1)] + (d[f.Index(x1, y1, z1)]-d[f.Index(x0, y1, z1)])*tx
	lo := a + (b-a)*ty
	hi := e + (g-e)*ty
	return lo + (hi-lo)*tz
}

// SampleNormalized samples at normalized domain coordinates in [0,1]^3.
func (f *Field) SampleNormalized(u, v, w float32) [4]float32 {
	return f.Sample(
		u*float32(f.dims.X)-0.5,
		v*float32(f.dims.Y)-0.5,
		w*float32(f.dims.Z)-0.5,
	)
}

// Corners returns the per-channel min and max over the 8 voxels that
// surround voxel-space position (x, y, z).
func (f *Field) Corners(x, y, z float32) (lo, hi [4]float32) {
	x0, x1, _ := f.axis(x, f.dims.X)
	y0, y1, _ := f.axis(y, f.dims.Y)
	z0, z1, _ := f.axis(z, f.dims.Z)

	c := f.format.Channels()
	for ch := 0; ch < c; ch++ {
		lo[ch] = float32(math.Inf(1))
		hi[ch] = float32(math.Inf(-1))
	}
	for _, i := range [8]int{
		f.Index(x0, y0, z0), f.Index(x1, y0, z0),
		f.Index(x0, y1, z0), f.Index(x1, y1, z0),
		f.Index(x0, y0, z1), f.Index(x1, y0, z1),
		f.Index(x0, y1, z1), f.Index(x1, y1, z1),
	} {
		for ch := 0; ch < c; ch++ {
			v := f.data[i+ch]
			lo[ch] = min(lo[ch], v)
			hi[ch] = max(hi[ch], v)
		}
	}
	return lo, hi
}

// axis clamps a voxel-space coordinate and returns the two neighbouring
// indices and the interpolation weight between them.
func (f *Field) axis(p float32, n int) (i0, i1 int, t float32) {
	maxP := float32(n - 1)
	if p <= 0 {
		return 0, 0, 0
	}
	if p >= maxP {
		return n - 1, n - 1, 0
	}
	fl := float32(math.Floor(float64(p)))
	i0 = int(fl)
	return i0, i0 + 1, p - fl
}

// ClampIndex clamps i into [0, n).
func ClampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
