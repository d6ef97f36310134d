package attack

import "github.com/Brownie44l1/attack-lab/internal/tensor"

// blurKernel is a 5x5 ring of ones; the inner 3x3 is zero.
var blurKernel = [5][5]float64{
	{1, 1, 1, 1, 1},
	{1, 0, 0, 0, 1},
	{1, 0, 0, 0, 1},
	{1, 0, 0, 0, 1},
	{1, 1, 1, 1, 1},
}

const blurDivisor = 16

func blur(img tensor.Image, count int) tensor.Image {
	out := img.Clone()
	for i := 0; i < count; i++ {
		out = blurOnce(out)
	}
	return out
}

// blurOnce convolves every interior pixel with blurKernel. The outer two rows
// and columns are copied through, and images smaller than the kernel are
// returned unchanged.
func blurOnce(img tensor.Image) tensor.Image {
	out := img.Clone()
	if img.H < 5 || img.W < 5 {
		return out
	}
	for c := 0; c < img.C; c++ {
		for y := 2; y < img.H-2; y++ {
			for x := 2; x < img.W-2; x++ {
				var sum float64
				for ky := 0; ky < 5; ky++ {
					for kx := 0; kx < 5; kx++ {
						if k := blurKernel[ky][kx]; k != 0 {
							sum += k * float64(img.At(c, y+ky-2, x+kx-2))
						}
					}
				}
				out.Set(c, y, x, float32(sum/blurDivisor))
			}
		}
	}
	return out
}
