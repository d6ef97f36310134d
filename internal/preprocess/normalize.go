package preprocess

import (
	"fmt"
	"image"
	"math"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

// Tensor is a dense float32 batch in NCHW layout, ready for the classifier.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Normalizer turns an arbitrary 3-channel image into the classifier's fixed
// input: shorter side resized to ResizeTo, centre crop of CropSize, per-channel
// standardisation and a leading batch dimension of 1.
type Normalizer struct {
	ResizeTo int
	CropSize int
	Mean     [3]float32
	Std      [3]float32
}

// ImageNet defaults.
func DefaultNormalizer() Normalizer {
	return Normalizer{
		ResizeTo: 256,
		CropSize: 224,
		Mean:     [3]float32{0.485, 0.456, 0.406},
		Std:      [3]float32{0.229, 0.224, 0.225},
	}
}

// Shape is the tensor shape Normalize produces.
func (n Normalizer) Shape() []int64 {
	return []int64{1, tensor.Channels, int64(n.CropSize), int64(n.CropSize)}
}

func (n Normalizer) Validate() error {
	if n.ResizeTo <= 0 || n.CropSize <= 0 {
		return fmt.Errorf("preprocess: resize %d and crop %d must be positive", n.ResizeTo, n.CropSize)
	}
	for c, s := range n.Std {
		if s <= 0 {
			return fmt.Errorf("preprocess: std[%d] = %v must be positive", c, s)
		}
	}
	return nil
}

func (n Normalizer) Normalize(img tensor.Image) (Tensor, error) {
	if err := n.Validate(); err != nil {
		return Tensor{}, err
	}
	if err := img.Validate(); err != nil {
		return Tensor{}, err
	}
	if img.C != tensor.Channels {
		return Tensor{}, fmt.Errorf("preprocess: expected %d channels, got %d", tensor.Channels, img.C)
	}

	resized, err := n.resize(img)
	if err != nil {
		return Tensor{}, err
	}
	cropped := centerCrop(resized, n.CropSize)

	data := make([]float32, len(cropped.Pix))
	plane := cropped.H * cropped.W
	for c := 0; c < tensor.Channels; c++ {
		mean, std := n.Mean[c], n.Std[c]
		src := cropped.Pix[c*plane : (c+1)*plane]
		dst := data[c*plane : (c+1)*plane]
		for i, v := range src {
			dst[i] = (v - mean) / std
		}
	}
	return Tensor{Shape: n.Shape(), Data: data}, nil
}

// outputSize keeps the aspect ratio with the shorter side at ResizeTo. The
// longer side is truncated.
func (n Normalizer) outputSize(h, w int) (int, int) {
	if w <= h {
		return int(float64(n.ResizeTo) * float64(h) / float64(w)), n.ResizeTo
	}
	return n.ResizeTo, int(float64(n.ResizeTo) * float64(w) / float64(h))
}

// resize is an antialiased bilinear resample through a 16-bit rendering.
// Channels reaching outside [0,1] are first mapped linearly onto it and mapped
// back afterwards, so out-of-range values survive up to 16-bit precision.
func (n Normalizer) resize(img tensor.Image) (tensor.Image, error) {
	nh, nw := n.outputSize(img.H, img.W)
	if nh == img.H && nw == img.W {
		return img, nil
	}
	ranges := channelRanges(img)
	rgba, err := ranges.compress(img).ToRGBA64()
	if err != nil {
		return tensor.Image{}, err
	}
	out := fromRGBA64(resize.Resize(uint(nw), uint(nh), rgba, resize.Bilinear))
	ranges.expand(out)
	return out, nil
}

// valueRange is the interval [lo, lo+span] one channel is mapped from. It
// always contains [0,1], so in-range channels map onto themselves.
type valueRange struct {
	lo, span float32
}

type rangeSet [tensor.Channels]valueRange

func channelRanges(img tensor.Image) rangeSet {
	var rs rangeSet
	for c := range rs {
		lo, hi := float32(0), float32(1)
		for _, v := range img.Plane(c) {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		rs[c] = valueRange{lo: lo, span: hi - lo}
	}
	return rs
}

func (rs rangeSet) identity() bool {
	for _, r := range rs {
		if r.lo != 0 || r.span != 1 {
			return false
		}
	}
	return true
}

func (rs rangeSet) compress(img tensor.Image) tensor.Image {
	if rs.identity() {
		return img
	}
	out := img.Clone()
	for c, r := range rs {
		plane := out.Plane(c)
		for i, v := range plane {
			plane[i] = (v - r.lo) / r.span
		}
	}
	return out
}

// expand inverts compress in place. The bilinear filter never leaves its
// input range, so the result stays inside [lo, lo+span].
func (rs rangeSet) expand(img tensor.Image) {
	if rs.identity() {
		return
	}
	for c, r := range rs {
		plane := img.Plane(c)
		for i, v := range plane {
			plane[i] = v*r.span + r.lo
		}
	}
}

func fromRGBA64(src image.Image) tensor.Image {
	if m, ok := src.(*image.RGBA64); ok {
		b := m.Bounds()
		out := tensor.New(tensor.Channels, b.Dy(), b.Dx())
		plane := out.H * out.W
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				px := m.RGBA64At(b.Min.X+x, b.Min.Y+y)
				i := y*out.W + x
				out.Pix[i] = float32(px.R) / 65535.0
				out.Pix[plane+i] = float32(px.G) / 65535.0
				out.Pix[2*plane+i] = float32(px.B) / 65535.0
			}
		}
		return out
	}
	return tensor.FromImage(src)
}

// centerCrop takes a size x size window around the centre, zero-padding when
// the image is smaller than the window.
func centerCrop(img tensor.Image, size int) tensor.Image {
	if img.H == size && img.W == size {
		return img
	}
	top := cropOffset(img.H, size)
	left := cropOffset(img.W, size)

	out := tensor.New(img.C, size, size)
	for c := 0; c < img.C; c++ {
		for y := 0; y < size; y++ {
			sy := top + y
			if sy < 0 || sy >= img.H {
				continue
			}
			for x := 0; x < size; x++ {
				sx := left + x
				if sx < 0 || sx >= img.W {
					continue
				}
				out.Set(c, y, x, img.At(c, sy, sx))
			}
		}
	}
	return out
}

func cropOffset(length, size int) int {
	if length < size {
		return -((size - length) / 2)
	}
	return int(math.RoundToEven(float64(length-size) / 2))
}
