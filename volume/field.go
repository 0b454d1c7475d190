// Package volume provides 3D voxel fields and the compute dispatcher that
// runs grid kernels over them.
package volume

import (
	"fmt"
	"slices"
)

// Dims is a voxel grid resolution.
type Dims struct {
	X, Y, Z int
}

// Valid reports whether every component is positive.
func (d Dims) Valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// Count returns the number of voxels.
func (d Dims) Count() int {
	return d.X * d.Y * d.Z
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.X, d.Y, d.Z)
}

// Format is the channel layout of a field.
type Format int

const (
	R    Format = 1 // scalar
	RGB  Format = 3 // vector
	RGBA Format = 4 // vector + alpha
)

// Channels returns the number of float channels per voxel.
func (f Format) Channels() int {
	return int(f)
}

func (f Format) String() string {
	switch f {
	case R:
		return "R"
	case RGB:
		return "RGB"
	case RGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Field is a dense 3D voxel store with a fixed format.
// Voxels are laid out x-fastest, channels interleaved.
type Field struct {
	name   string
	dims   Dims
	format Format
	data   []float32

	// blurred is created by the first Blur call.
	blurred *Field

	// filter-kernel buffers, allocated by the first Blur call
	weights *Buffer
	offsets *Buffer

	initialized bool
}

// New allocates a zero-initialized field. Panics if dims are not positive
// or the format is unknown.
func New(name string, dims Dims, format Format) *Field {
	if !dims.Valid() {
		panic(fmt.Sprintf("volume: field %q has invalid dims %s", name, dims))
	}
	if format != R && format != RGB && format != RGBA {
		panic(fmt.Sprintf("volume: field %q has invalid format %d", name, int(format)))
	}
	return &Field{
		name:        name,
		dims:        dims,
		format:      format,
		data:        make([]float32, dims.Count()*format.Channels()),
		initialized: true,
	}
}

// Name returns the debug name of the field.
func (f *Field) Name() string { return f.name }

// Dims returns the voxel resolution.
func (f *Field) Dims() Dims { return f.dims }

// Format returns the channel layout.
func (f *Field) Format() Format { return f.format }

// Channels returns the number of channels per voxel.
func (f *Field) Channels() int { return f.format.Channels() }

// Initialized reports whether storage is allocated.
func (f *Field) Initialized() bool { return f.initialized }

// Data returns the raw voxel storage.
func (f *Field) Data() []float32 { return f.data }

// Blurred returns the blurred copy, or nil if Blur was never called.
func (f *Field) Blurred() *Field { return f.blurred }

// Index returns the offset of channel 0 of voxel (x, y, z).
func (f *Field) Index(x, y, z int) int {
	return ((z*f.dims.Y+y)*f.dims.X + x) * f.format.Channels()
}

// At returns channel c of voxel (x, y, z).
func (f *Field) At(x, y, z, c int) float32 {
	return f.data[f.Index(x, y, z)+c]
}

// Set writes channel c of voxel (x, y, z).
func (f *Field) Set(x, y, z, c int, v float32) {
	f.data[f.Index(x, y, z)+c] = v
}

// Voxel returns up to four channels of voxel (x, y, z); missing channels are 0.
func (f *Field) Voxel(x, y, z int) [4]float32 {
	var out [4]float32
	i := f.Index(x, y, z)
	copy(out[:], f.data[i:i+f.format.Channels()])
	return out
}

// SetVoxel writes the first Channels() components of v to voxel (x, y, z).
func (f *Field) SetVoxel(x, y, z int, v [4]float32) {
	i := f.Index(x, y, z)
	copy(f.data[i:i+f.format.Channels()], v[:])
}

// Equal reports whether two fields have the same dims, format and contents.
func (f *Field) Equal(o *Field) bool {
	return f.dims == o.dims && f.format == o.format && slices.Equal(f.data, o.data)
}

// Clone returns a deep copy of the field without its blurred copy.
func (f *Field) Clone() *Field {
	c := New(f.name, f.dims, f.format)
	copy(c.data, f.data)
	return c
}

// Reset releases storage and marks the field uninitialized.
// Calling Reset again is a no-op.
func (f *Field) Reset() {
	if !f.initialized {
		return
	}
	f.data = nil
	if f.blurred != nil {
		f.blurred.Reset()
		f.blurred = nil
	}
	f.weights = nil
	f.offsets = nil
	f.dims = Dims{}
	f.initialized = false
}

// String implements fmt.Stringer.
func (f *Field) String() string {
	return fmt.Sprintf("%s[%s %s]", f.name, f.dims, f.format)
}
