package renderer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/pthm-cable/smoke/volume"
)

// Axis selects the normal of a volume slice.
type Axis int

const (
	AxisX Axis = iota // slice image spans z (right) and y (up)
	AxisY             // slice image spans x (right) and z (up)
	AxisZ             // slice image spans x (right) and y (up)
)

var axisNames = []string{"x", "y", "z"}

func (a Axis) String() string {
	if a < 0 || int(a) >= len(axisNames) {
		return fmt.Sprintf("Axis(%d)", int(a))
	}
	return axisNames[a]
}

// Next cycles to the following axis.
func (a Axis) Next() Axis {
	return (a + 1) % Axis(len(axisNames))
}

// Extent returns the number of slices along a in d.
func (a Axis) Extent(d volume.Dims) int {
	switch a {
	case AxisX:
		return d.X
	case AxisY:
		return d.Y
	}
	return d.Z
}

// ChannelMagnitude selects the length of the first three channels.
const ChannelMagnitude = -1

// ErrSliceRange is returned for a slice index or channel outside the field.
var ErrSliceRange = errors.New("renderer: slice out of range")

// SliceImage maps slice index along axis of f to a false-color image.
// Values are multiplied by scale; positive values map to grey, negative
// values to blue. Image rows run top-down, so the up axis is flipped.
func SliceImage(f *volume.Field, axis Axis, index, channel int, scale float64) (*image.RGBA, error) {
	d := f.Dims()
	if index < 0 || index >= axis.Extent(d) {
		return nil, fmt.Errorf("%w: %s index %d of %d", ErrSliceRange, axis, index, axis.Extent(d))
	}
	if channel < ChannelMagnitude || channel >= f.Channels() {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrSliceRange, channel, f.Channels())
	}

	var w, h int
	var voxel func(u, v int) (int, int, int)
	switch axis {
	case AxisX:
		w, h = d.Z, d.Y
		voxel = func(u, v int) (int, int, int) { return index, v, u }
	case AxisY:
		w, h = d.X, d.Z
		voxel = func(u, v int) (int, int, int) { return u, index, v }
	default:
		w, h = d.X, d.Y
		voxel = func(u, v int) (int, int, int) { return u, v, index }
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for v := 0; v < h; v++ {
		for u := 0; u < w; u++ {
			x, y, z := voxel(u, v)
			img.SetRGBA(u, h-1-v, falseColor(sample(f, x, y, z, channel)*scale))
		}
	}
	return img, nil
}

func sample(f *volume.Field, x, y, z, channel int) float64 {
	if channel != ChannelMagnitude {
		return float64(f.At(x, y, z, channel))
	}
	vox := f.Voxel(x, y, z)
	var s float64
	for c := 0; c < min(f.Channels(), 3); c++ {
		s += float64(vox[c]) * float64(vox[c])
	}
	return math.Sqrt(s)
}

func falseColor(v float64) color.RGBA {
	t := float32(min(math.Abs(v), 1))
	if v < 0 {
		return color.RGBA{R: 0, G: to8(t * 0.5), B: to8(t), A: 255}
	}
	return color.RGBA{R: to8(t), G: to8(t), B: to8(t), A: 255}
}
