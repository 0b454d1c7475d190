package param

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBagFirstSetFixesKind(t *testing.T) {
	b := NewBag()

	if err := b.Set("dissipation", Float(0.001)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Set("dissipation", Float(0.5)); err != nil {
		t.Fatalf("same-kind overwrite failed: %v", err)
	}

	err := b.Set("dissipation", Vec3(r3.Vec{X: 1}))
	if !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}

	got, err := b.Float("dissipation")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.5 {
		t.Errorf("expected 0.5 after failed overwrite, got %.4f", got)
	}
}

func TestBagMissingName(t *testing.T) {
	b := NewBag()

	if _, err := b.Float("sigma"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if b.Has("sigma") {
		t.Error("Has reported a name that was never set")
	}
}

func TestBagTypedAccessMismatch(t *testing.T) {
	b := NewBag()
	if err := b.Set("color", Vec3(r3.Vec{X: 0.1, Y: 0.2, Z: 0.3})); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Float("color"); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch reading vec3 as float, got %v", err)
	}

	c, err := b.Vec3("color")
	if err != nil {
		t.Fatal(err)
	}
	if c.Y != 0.2 {
		t.Errorf("expected color.Y 0.2, got %.4f", c.Y)
	}
}

func TestBagRejectsInvalidValue(t *testing.T) {
	b := NewBag()
	if err := b.Set("x", Value{}); err == nil {
		t.Error("expected error storing zero Value")
	}
}

func TestMat4RowMajor(t *testing.T) {
	m := mat.NewDense(4, 4, []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	})
	v := Mat4(m)
	got, ok := v.AsMat4()
	if !ok {
		t.Fatal("expected mat4 kind")
	}
	if got[1] != 2 || got[4] != 5 || got[15] != 16 {
		t.Errorf("unexpected layout: %v", got)
	}
}

func TestNames(t *testing.T) {
	b := NewBag()
	_ = b.Set("sigma", Float(1))
	_ = b.Set("intensity", Float(100))
	_ = b.Set("color", Vec3(r3.Vec{}))

	names := b.Names()
	want := []string{"color", "intensity", "sigma"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
