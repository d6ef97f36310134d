package attack

import (
	"math/rand/v2"

	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

// newNoiseSource returns a generator seeded identically on every call, so two
// applications with the same count produce bit-identical output.
func newNoiseSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// addNoise blends a standard normal field into the image with weight
// count*NoiseRatio. The weight is not clamped: past count = 1/NoiseRatio the
// original image enters the blend with a negative weight.
func addNoise(img tensor.Image, count int, p Params) tensor.Image {
	rng := newNoiseSource(p.Seed)
	r := float64(count) * p.NoiseRatio

	out := tensor.New(img.C, img.H, img.W)
	for i, v := range img.Pix {
		n := rng.NormFloat64()
		out.Pix[i] = float32(n*r + float64(v)*(1-r))
	}
	return out
}
