package volume

// MaxUnits is the number of sampler, image and buffer slots in a binding table.
const MaxUnits = 8

// Buffer is a small structured buffer bound to a kernel, such as blur weights.
type Buffer struct {
	Floats []float32
	Ints   []int32
}

// Bindings is the explicit resource table passed to a single dispatch.
// Samplers are read, images are written, buffers are read.
// It is a value type; each method returns an updated copy.
type Bindings struct {
	samplers [MaxUnits]*Field
	images   [MaxUnits]*Field
	buffers  [MaxUnits]*Buffer
}

// Sample binds f for reading at unit.
func (b Bindings) Sample(unit int, f *Field) Bindings {
	b.samplers[unit] = f
	return b
}

// Write binds f for writing at image unit.
func (b Bindings) Write(unit int, f *Field) Bindings {
	b.images[unit] = f
	return b
}

// Buffer binds buf at buffer unit.
func (b Bindings) Buffer(unit int, buf *Buffer) Bindings {
	b.buffers[unit] = buf
	return b
}

// Unbind clears sampler, image and buffer slots at unit.
func (b Bindings) Unbind(unit int) Bindings {
	b.samplers[unit] = nil
	b.images[unit] = nil
	b.buffers[unit] = nil
	return b
}

// Sampler returns the field sampled at unit, or nil.
func (b *Bindings) Sampler(unit int) *Field { return b.samplers[unit] }

// Image returns the field written at unit, or nil.
func (b *Bindings) Image(unit int) *Field { return b.images[unit] }

// reads returns every bound sampler.
func (b *Bindings) reads() []*Field {
	var out []*Field
	for _, f := range b.samplers {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// writes returns every bound image.
func (b *Bindings) writes() []*Field {
	var out []*Field
	for _, f := range b.images {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}
