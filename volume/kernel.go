package volume

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GaussianKernel returns size weights of a Gaussian with the given sigma,
// sampled at -(size-1)/2 ... (size-1)/2 and normalized to sum to 1.
// size < 1 is treated as 1.
func GaussianKernel(sigma float64, size int) []float64 {
	if size < 1 {
		size = 1
	}
	w := make([]float64, size)
	half := float64(size-1) / 2
	twoSigma2 := 2 * sigma * sigma
	for i := range w {
		x := float64(i) - half
		w[i] = math.Exp(-x * x / twoSigma2)
	}
	sum := floats.Sum(w)
	if sum <= 0 || math.IsNaN(sum) {
		// sigma underflow: all weight on the centre tap
		for i := range w {
			w[i] = 0
		}
		w[size/2] = 1
		return w
	}
	floats.Scale(1/sum, w)
	return w
}

// BlurOffsets returns the tap offsets -size/2 ... for a kernel of size taps.
func BlurOffsets(size int) []int32 {
	if size < 1 {
		size = 1
	}
	off := make([]int32, size)
	for i := range off {
		off[i] = int32(i - size/2)
	}
	return off
}
