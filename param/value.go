// Package param provides typed parameter values shared by kernel uniforms
// and quantity property bags.
package param

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindFloat
	KindInt
	KindVec3
	KindVec4
	KindMat4
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindVec3:
		return "vec3"
	case KindVec4:
		return "vec4"
	case KindMat4:
		return "mat4"
	default:
		return "invalid"
	}
}

// Value is a tagged union over the parameter types used by the solver.
// The zero Value is invalid.
type Value struct {
	kind Kind
	f    float64
	i    int
	v    [4]float64
	m    [16]float64
}

// Float returns a float Value.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// Int returns an int Value.
func Int(i int) Value {
	return Value{kind: KindInt, i: i}
}

// Vec3 returns a 3-vector Value.
func Vec3(v r3.Vec) Value {
	return Value{kind: KindVec3, v: [4]float64{v.X, v.Y, v.Z, 0}}
}

// Vec4 returns a 4-vector Value.
func Vec4(x, y, z, w float64) Value {
	return Value{kind: KindVec4, v: [4]float64{x, y, z, w}}
}

// Mat4 returns a 4x4 matrix Value stored row-major.
// Panics if m is not 4x4.
func Mat4(m mat.Matrix) Value {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		panic(fmt.Sprintf("param: Mat4 needs a 4x4 matrix, got %dx%d", r, c))
	}
	val := Value{kind: KindMat4}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			val.m[i*4+j] = m.At(i, j)
		}
	}
	return val
}

// Kind reports the type held by v.
func (v Value) Kind() Kind {
	return v.kind
}

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// AsInt returns the int held by v.
func (v Value) AsInt() (int, bool) {
	return v.i, v.kind == KindInt
}

// AsVec3 returns the 3-vector held by v.
func (v Value) AsVec3() (r3.Vec, bool) {
	return r3.Vec{X: v.v[0], Y: v.v[1], Z: v.v[2]}, v.kind == KindVec3
}

// AsVec4 returns the 4-vector held by v.
func (v Value) AsVec4() ([4]float64, bool) {
	return v.v, v.kind == KindVec4
}

// AsMat4 returns the row-major matrix held by v.
func (v Value) AsMat4() ([16]float64, bool) {
	return v.m, v.kind == KindMat4
}

func (v Value) String() string {
	switch v.kind {
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindVec3:
		return fmt.Sprintf("(%g, %g, %g)", v.v[0], v.v[1], v.v[2])
	case KindVec4:
		return fmt.Sprintf("(%g, %g, %g, %g)", v.v[0], v.v[1], v.v[2], v.v[3])
	case KindMat4:
		return fmt.Sprintf("mat4%v", v.m)
	default:
		return "<invalid>"
	}
}
