package attack

import (
	"math"

	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

// affine maps output pixel-centre coordinates back into the source image:
// xin = a*x + b*y + c, yin = d*x + e*y + f.
type affine struct {
	a, b, c, d, e, f float64
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m.a*x + m.b*y + m.c, m.d*x + m.e*y + m.f
}

// rotate turns the image by degrees counter-clockwise (negative is clockwise)
// and grows the canvas to hold the rotated content. Uncovered corners are 0.
func rotate(img tensor.Image, degrees float64) tensor.Image {
	deg := math.Mod(degrees, 360)
	if deg < 0 {
		deg += 360
	}
	switch deg {
	case 0:
		return img.Clone()
	case 90:
		return rotate90(img, true)
	case 180:
		return rotate180(img)
	case 270:
		return rotate90(img, false)
	}

	w, h := float64(img.W), float64(img.H)
	rad := -deg * math.Pi / 180
	cos, sin := round15(math.Cos(rad)), round15(math.Sin(rad))
	m := affine{a: cos, b: sin, d: -sin, e: cos}
	cx, cy := w/2, h/2
	m.c, m.f = m.apply(-cx, -cy)
	m.c += cx
	m.f += cy

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}} {
		x, y := m.apply(p[0], p[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	nw := int(math.Ceil(maxX) - math.Floor(minX))
	nh := int(math.Ceil(maxY) - math.Floor(minY))
	m.c, m.f = m.apply(-(float64(nw)-w)/2, -(float64(nh)-h)/2)

	return warpNearest(img, nw, nh, m)
}

func round15(v float64) float64 {
	const scale = 1e15
	return math.Round(v*scale) / scale
}

func warpNearest(img tensor.Image, nw, nh int, m affine) tensor.Image {
	out := tensor.New(img.C, nh, nw)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			xin, yin := m.apply(float64(x)+0.5, float64(y)+0.5)
			ix, iy := int(math.Floor(xin)), int(math.Floor(yin))
			if ix < 0 || iy < 0 || ix >= img.W || iy >= img.H {
				continue
			}
			for c := 0; c < img.C; c++ {
				out.Set(c, y, x, img.At(c, iy, ix))
			}
		}
	}
	return out
}

func rotate90(img tensor.Image, counterClockwise bool) tensor.Image {
	out := tensor.New(img.C, img.W, img.H)
	for c := 0; c < img.C; c++ {
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				if counterClockwise {
					out.Set(c, y, x, img.At(c, x, img.W-1-y))
				} else {
					out.Set(c, y, x, img.At(c, img.H-1-x, y))
				}
			}
		}
	}
	return out
}

func rotate180(img tensor.Image) tensor.Image {
	out := tensor.New(img.C, img.H, img.W)
	plane := img.H * img.W
	for c := 0; c < img.C; c++ {
		src := img.Pix[c*plane : (c+1)*plane]
		dst := out.Pix[c*plane : (c+1)*plane]
		for i := range src {
			dst[plane-1-i] = src[i]
		}
	}
	return out
}

// shift moves content dx pixels to the right (negative is left). Columns
// pushed past one edge wrap around to the other.
func shift(img tensor.Image, dx int) tensor.Image {
	out := tensor.New(img.C, img.H, img.W)
	if img.W == 0 {
		return out
	}
	dx %= img.W
	if dx < 0 {
		dx += img.W
	}
	for c := 0; c < img.C; c++ {
		for y := 0; y < img.H; y++ {
			row := c*img.H*img.W + y*img.W
			src := img.Pix[row : row+img.W]
			dst := out.Pix[row : row+img.W]
			copy(dst[dx:], src[:img.W-dx])
			copy(dst[:dx], src[img.W-dx:])
		}
	}
	return out
}

type flipFunc func(tensor.Image) tensor.Image

// mirror applies flip count times. Flips are involutions, so only the parity
// of count matters.
func mirror(img tensor.Image, count int, flip flipFunc) tensor.Image {
	if count%2 == 0 {
		return img.Clone()
	}
	return flip(img)
}

func flipLeftRight(img tensor.Image) tensor.Image {
	out := tensor.New(img.C, img.H, img.W)
	for c := 0; c < img.C; c++ {
		for y := 0; y < img.H; y++ {
			for x := 0; x < img.W; x++ {
				out.Set(c, y, x, img.At(c, y, img.W-1-x))
			}
		}
	}
	return out
}

func flipTopBottom(img tensor.Image) tensor.Image {
	out := tensor.New(img.C, img.H, img.W)
	rowLen := img.W
	for c := 0; c < img.C; c++ {
		for y := 0; y < img.H; y++ {
			src := c*img.H*img.W + y*rowLen
			dst := c*img.H*img.W + (img.H-1-y)*rowLen
			copy(out.Pix[dst:dst+rowLen], img.Pix[src:src+rowLen])
		}
	}
	return out
}

// shearVertical offsets each column by factor*x rows. The shear itself is
// fixed; count only adds round(|count*factor|*W) rows of canvas.
func shearVertical(img tensor.Image, count int, factor float64) tensor.Image {
	pad := math.Abs(float64(count)*factor) * float64(img.W)
	m := affine{a: 1, d: factor, e: 1}
	if factor > 0 {
		m.f = -pad
	}
	return warpBicubic(img, img.W, img.H+int(math.Round(pad)), m)
}

// shearHorizontal offsets each row by factor*y columns, with the same
// count-driven canvas growth as shearVertical.
func shearHorizontal(img tensor.Image, count int, factor float64) tensor.Image {
	pad := math.Abs(float64(count)*factor) * float64(img.H)
	m := affine{a: 1, b: factor, e: 1}
	if factor > 0 {
		m.c = -pad
	}
	return warpBicubic(img, img.W+int(math.Round(pad)), img.H, m)
}

func warpBicubic(img tensor.Image, nw, nh int, m affine) tensor.Image {
	out := tensor.New(img.C, nh, nw)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			xin, yin := m.apply(float64(x)+0.5, float64(y)+0.5)
			if xin < 0 || yin < 0 || xin >= float64(img.W) || yin >= float64(img.H) {
				continue
			}
			for c := 0; c < img.C; c++ {
				out.Set(c, y, x, sampleBicubic(img, c, xin-0.5, yin-0.5))
			}
		}
	}
	return out
}

func sampleBicubic(img tensor.Image, c int, xf, yf float64) float32 {
	x0 := math.Floor(xf)
	y0 := math.Floor(yf)
	dx, dy := xf-x0, yf-y0
	ix, iy := int(x0), int(y0)

	var rows [4]float64
	for j := 0; j < 4; j++ {
		yy := clampInt(iy-1+j, 0, img.H-1)
		var v [4]float64
		for i := 0; i < 4; i++ {
			xx := clampInt(ix-1+i, 0, img.W-1)
			v[i] = float64(img.At(c, yy, xx))
		}
		rows[j] = cubic(v[0], v[1], v[2], v[3], dx)
	}
	return float32(cubic(rows[0], rows[1], rows[2], rows[3], dy))
}

// cubic interpolates between v2 and v3 at offset d in [0,1).
func cubic(v1, v2, v3, v4, d float64) float64 {
	p1 := v2
	p2 := -v1 + v3
	p3 := 2*(v1-v2) + v3 - v4
	p4 := -v1 + v2 - v3 + v4
	return p1 + d*(p2+d*(p3+d*p4))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
