package volume

import (
	"fmt"

	"github.com/pthm-cable/smoke/param"
)

// Args gives a kernel typed access to its uniforms and bindings.
// The first failed lookup is kept and reported by the dispatch.
type Args struct {
	kernel string
	params param.Set
	bind   Bindings
	err    error
}

// Kernel returns the name of the kernel being prepared.
func (a *Args) Kernel() string {
	return a.kernel
}

// Err returns the first lookup failure.
func (a *Args) Err() error {
	return a.err
}

// Fail records err if no earlier failure was recorded.
func (a *Args) Fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

func (a *Args) lookup(name string, kind param.Kind) (param.Value, bool) {
	v, ok := a.params[name]
	if !ok {
		a.Fail(fmt.Errorf("%w: uniform %q", param.ErrNotFound, name))
		return param.Value{}, false
	}
	if v.Kind() != kind {
		a.Fail(fmt.Errorf("%w: uniform %q is %s, want %s", param.ErrKindMismatch, name, v.Kind(), kind))
		return param.Value{}, false
	}
	return v, true
}

// Float returns a float uniform.
func (a *Args) Float(name string) float32 {
	v, ok := a.lookup(name, param.KindFloat)
	if !ok {
		return 0
	}
	f, _ := v.AsFloat()
	return float32(f)
}

// FloatOr returns a float uniform, or def if it is unset.
func (a *Args) FloatOr(name string, def float32) float32 {
	if _, ok := a.params[name]; !ok {
		return def
	}
	return a.Float(name)
}

// Int returns an int uniform.
func (a *Args) Int(name string) int {
	v, ok := a.lookup(name, param.KindInt)
	if !ok {
		return 0
	}
	i, _ := v.AsInt()
	return i
}

// IntOr returns an int uniform, or def if it is unset.
func (a *Args) IntOr(name string, def int) int {
	if _, ok := a.params[name]; !ok {
		return def
	}
	return a.Int(name)
}

// Vec3 returns a vec3 uniform.
func (a *Args) Vec3(name string) [3]float32 {
	v, ok := a.lookup(name, param.KindVec3)
	if !ok {
		return [3]float32{}
	}
	vec, _ := v.AsVec3()
	return [3]float32{float32(vec.X), float32(vec.Y), float32(vec.Z)}
}

// Vec4 returns a vec4 uniform.
func (a *Args) Vec4(name string) [4]float32 {
	v, ok := a.lookup(name, param.KindVec4)
	if !ok {
		return [4]float32{}
	}
	vec, _ := v.AsVec4()
	return [4]float32{float32(vec[0]), float32(vec[1]), float32(vec[2]), float32(vec[3])}
}

// Mat4 returns a row-major mat4 uniform.
func (a *Args) Mat4(name string) [16]float64 {
	v, ok := a.lookup(name, param.KindMat4)
	if !ok {
		return [16]float64{}
	}
	m, _ := v.AsMat4()
	return m
}

// Sampler returns the field sampled at unit.
func (a *Args) Sampler(unit int) *Field {
	f := a.bind.samplers[unit]
	if f == nil {
		a.Fail(fmt.Errorf("no sampler bound at unit %d", unit))
	}
	return f
}

// OptionalSampler returns the field sampled at unit, or nil.
func (a *Args) OptionalSampler(unit int) *Field {
	return a.bind.samplers[unit]
}

// Image returns the field written at unit.
func (a *Args) Image(unit int) *Field {
	f := a.bind.images[unit]
	if f == nil {
		a.Fail(fmt.Errorf("no image bound at unit %d", unit))
	}
	return f
}

// Buffer returns the buffer bound at unit.
func (a *Args) Buffer(unit int) *Buffer {
	buf := a.bind.buffers[unit]
	if buf == nil {
		a.Fail(fmt.Errorf("no buffer bound at unit %d", unit))
	}
	return buf
}
