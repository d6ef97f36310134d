package tensor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
)

// Channels is the only channel count the pipeline accepts.
const Channels = 3

var ErrShape = errors.New("tensor: invalid shape")

// Image is a dense channel-first pixel tensor. Values are in [0,1] for decoded
// images; some transforms (noise) may push them outside that range.
// Pix is laid out as Pix[c*H*W + y*W + x].
type Image struct {
	C, H, W int
	Pix     []float32
}

// New allocates a zero-filled image.
func New(c, h, w int) Image {
	return Image{C: c, H: h, W: w, Pix: make([]float32, c*h*w)}
}

// Filled allocates an image with every channel c set to values[c].
func Filled(h, w int, values ...float32) Image {
	img := New(len(values), h, w)
	plane := h * w
	for c, v := range values {
		for i := 0; i < plane; i++ {
			img.Pix[c*plane+i] = v
		}
	}
	return img
}

// Validate checks the header against the buffer length.
func (m Image) Validate() error {
	if m.C <= 0 || m.H <= 0 || m.W <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrShape, m.C, m.H, m.W)
	}
	if len(m.Pix) != m.C*m.H*m.W {
		return fmt.Errorf("%w: %d values for %dx%dx%d", ErrShape, len(m.Pix), m.C, m.H, m.W)
	}
	return nil
}

func (m Image) Clone() Image {
	out := Image{C: m.C, H: m.H, W: m.W, Pix: make([]float32, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

func (m Image) index(c, y, x int) int {
	return c*m.H*m.W + y*m.W + x
}

func (m Image) At(c, y, x int) float32 {
	return m.Pix[m.index(c, y, x)]
}

func (m Image) Set(c, y, x int, v float32) {
	m.Pix[m.index(c, y, x)] = v
}

// Plane returns the backing slice for channel c.
func (m Image) Plane(c int) []float32 {
	n := m.H * m.W
	return m.Pix[c*n : (c+1)*n]
}

// SameShape reports whether both images have identical dimensions.
func (m Image) SameShape(o Image) bool {
	return m.C == o.C && m.H == o.H && m.W == o.W
}

// MaxAbsDiff returns the largest per-element difference, or +Inf when the
// shapes differ.
func MaxAbsDiff(a, b Image) float64 {
	if !a.SameShape(b) {
		return math.Inf(1)
	}
	var d float64
	for i := range a.Pix {
		if v := math.Abs(float64(a.Pix[i] - b.Pix[i])); v > d {
			d = v
		}
	}
	return d
}

// FromImage converts a decoded image into a 3-channel tensor scaled to [0,1].
// Alpha is dropped; callers are expected to have rejected translucent inputs.
func FromImage(src image.Image) Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	out := New(Channels, h, w)
	plane := w * h

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := y*w + x
			out.Pix[i] = float32(r) / 65535.0
			out.Pix[plane+i] = float32(g) / 65535.0
			out.Pix[2*plane+i] = float32(bl) / 65535.0
		}
	}
	return out
}

// ToRGBA64 renders a 3-channel tensor as an opaque 16-bit image. Values are
// clamped to [0,1].
func (m Image) ToRGBA64() (*image.RGBA64, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.C != Channels {
		return nil, fmt.Errorf("%w: %d channels", ErrShape, m.C)
	}
	out := image.NewRGBA64(image.Rect(0, 0, m.W, m.H))
	plane := m.W * m.H
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			i := y*m.W + x
			out.SetRGBA64(x, y, color.RGBA64{
				R: quantize16(m.Pix[i]),
				G: quantize16(m.Pix[plane+i]),
				B: quantize16(m.Pix[2*plane+i]),
				A: 0xffff,
			})
		}
	}
	return out, nil
}

func quantize16(v float32) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	}
	return uint16(math.Round(float64(v) * 65535.0))
}
