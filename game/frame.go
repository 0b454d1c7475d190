package game

import (
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// FrameTexture holds the raymarched frame on the GPU and draws it scaled
// to the window. The texture is created on the first upload and recreated
// when the frame size changes.
type FrameTexture struct {
	tex    rl.Texture2D
	w, h   int
	pixels []color.RGBA

	initialized bool
}

// NewFrameTexture creates an empty frame texture.
func NewFrameTexture() *FrameTexture {
	return &FrameTexture{}
}

// init allocates a w x h texture (must be called after the window is created).
func (f *FrameTexture) init(w, h int) {
	if f.initialized {
		rl.UnloadTexture(f.tex)
	}
	img := rl.GenImageColor(w, h, rl.Black)
	f.tex = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)

	// Bilinear filtering upscales the reduced render smoothly
	rl.SetTextureFilter(f.tex, rl.FilterBilinear)

	f.w = w
	f.h = h
	f.pixels = make([]color.RGBA, w*h)
	f.initialized = true
}

// Update uploads img, resizing the texture if needed.
func (f *FrameTexture) Update(img *image.RGBA) {
	b := img.Bounds()
	if !f.initialized || b.Dx() != f.w || b.Dy() != f.h {
		f.init(b.Dx(), b.Dy())
	}
	for y := 0; y < f.h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < f.w; x++ {
			o := x * 4
			f.pixels[y*f.w+x] = color.RGBA{R: row[o], G: row[o+1], B: row[o+2], A: row[o+3]}
		}
	}
	rl.UpdateTexture(f.tex, f.pixels)
}

// Draw stretches the frame over a screenW x screenH rectangle.
func (f *FrameTexture) Draw(screenW, screenH float32) {
	if !f.initialized {
		return
	}
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(f.w), Height: float32(f.h)}
	dst := rl.Rectangle{X: 0, Y: 0, Width: screenW, Height: screenH}
	rl.DrawTexturePro(f.tex, src, dst, rl.Vector2{}, 0, rl.White)
}

// Unload frees the texture.
func (f *FrameTexture) Unload() {
	if f.initialized {
		rl.UnloadTexture(f.tex)
		f.initialized = false
	}
}
