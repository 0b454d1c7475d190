package renderer

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/pthm-cable/smoke/volume"
)

// ToImage converts slice z=0 of an RGBA field to an 8-bit image.
// Values are clamped to [0, 1].
func ToImage(f *volume.Field) *image.RGBA {
	d := f.Dims()
	img := image.NewRGBA(image.Rect(0, 0, d.X, d.Y))
	WriteImage(img, f)
	return img
}

// WriteImage copies slice z=0 of f into img, which must match its size.
func WriteImage(img *image.RGBA, f *volume.Field) {
	d := f.Dims()
	for y := 0; y < d.Y; y++ {
		for x := 0; x < d.X; x++ {
			v := f.Voxel(x, y, 0)
			img.SetRGBA(x, y, color.RGBA{
				R: to8(v[0]),
				G: to8(v[1]),
				B: to8(v[2]),
				A: to8(v[3]),
			})
		}
	}
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Upscale scales src to w x h with bilinear filtering.
func Upscale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// ScaledSize applies a render scale to a viewport, keeping at least one pixel.
func ScaledSize(w, h int, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}
