package volume

import (
	"fmt"

	"github.com/pthm-cable/smoke/param"
)

// clearKernel fills image 0 with the optional vec4 "value" (default 0).
func clearKernel(a *Args) VoxelFunc {
	dst := a.Image(0)
	var v [4]float32
	if _, ok := a.params["value"]; ok {
		v = a.Vec4("value")
	}
	if a.Err() != nil {
		return nil
	}
	return func(x, y, z int) {
		dst.SetVoxel(x, y, z, v)
	}
}

// Clear zeroes the field through the clear kernel and waits for it.
func (f *Field) Clear(ctx *Context) error {
	return f.Fill(ctx, [4]float32{})
}

// Fill sets every voxel to v through the clear kernel and waits for it.
func (f *Field) Fill(ctx *Context, v [4]float32) error {
	if !f.initialized {
		return fmt.Errorf("volume: clear %s: field not initialized", f.name)
	}
	p, err := ctx.Bind(KernelClear)
	if err != nil {
		return err
	}
	defer p.Unbind()

	p.SetParameter("value", param.Vec4(float64(v[0]), float64(v[1]), float64(v[2]), float64(v[3])))
	if err := p.DispatchAll(Bindings{}.Write(0, f)); err != nil {
		return fmt.Errorf("volume: clear %s: %w", f.name, err)
	}
	ctx.Barrier()
	return nil
}
