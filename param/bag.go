package param

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrNotFound is returned when a name was never set.
	ErrNotFound = errors.New("param: not found")
	// ErrKindMismatch is returned when a name is accessed or set with a
	// different kind than it was first set with.
	ErrKindMismatch = errors.New("param: kind mismatch")
)

// Set is a loose name→value map used for kernel uniforms.
// Later writes replace earlier ones regardless of kind.
type Set map[string]Value

// Bag is a named property store whose first Set fixes the kind of each key.
type Bag struct {
	values map[string]Value
}

// NewBag creates an empty property bag.
func NewBag() *Bag {
	return &Bag{values: make(map[string]Value)}
}

// Set stores v under name. Returns ErrKindMismatch if name already holds a
// different kind.
func (b *Bag) Set(name string, v Value) error {
	if v.kind == KindInvalid {
		return fmt.Errorf("%w: %q set with invalid value", ErrKindMismatch, name)
	}
	if old, ok := b.values[name]; ok && old.kind != v.kind {
		return fmt.Errorf("%w: %q is %s, got %s", ErrKindMismatch, name, old.kind, v.kind)
	}
	b.values[name] = v
	return nil
}

// Get returns the value stored under name.
func (b *Bag) Get(name string) (Value, error) {
	v, ok := b.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return v, nil
}

// Has reports whether name was set.
func (b *Bag) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// Float returns the float stored under name.
func (b *Bag) Float(name string) (float64, error) {
	v, err := b.typed(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.f, nil
}

// Int returns the int stored under name.
func (b *Bag) Int(name string) (int, error) {
	v, err := b.typed(name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.i, nil
}

// Vec3 returns the 3-vector stored under name.
func (b *Bag) Vec3(name string) (r3.Vec, error) {
	v, err := b.typed(name, KindVec3)
	if err != nil {
		return r3.Vec{}, err
	}
	vec, _ := v.AsVec3()
	return vec, nil
}

func (b *Bag) typed(name string, kind Kind) (Value, error) {
	v, err := b.Get(name)
	if err != nil {
		return Value{}, err
	}
	if v.kind != kind {
		return Value{}, fmt.Errorf("%w: %q is %s, requested %s", ErrKindMismatch, name, v.kind, kind)
	}
	return v, nil
}

// Names returns the stored names in sorted order.
func (b *Bag) Names() []string {
	names := make([]string, 0, len(b.values))
	for name := range b.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
