package imagestore

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

var (
	ErrNotRGB      = errors.New("imagestore: image is not 3-channel RGB")
	ErrOutsideRoot = errors.New("imagestore: path escapes image root")
	ErrNotFound    = errors.New("imagestore: image not found")
)

// Store resolves image references relative to a root directory.
type Store struct {
	Root string
}

func New(root string) *Store {
	return &Store{Root: root}
}

// Resolve maps a relative reference to a file under Root. Absolute paths and
// references climbing out of Root are refused.
func (s *Store) Resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	return filepath.Join(s.Root, clean), nil
}

// Open decodes the referenced image into a 3-channel tensor.
func (s *Store) Open(rel string) (tensor.Image, error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return tensor.Image{}, err
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tensor.Image{}, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
		return tensor.Image{}, fmt.Errorf("imagestore: open %s: %w", rel, err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return tensor.Image{}, fmt.Errorf("%s: %w", rel, err)
	}
	return img, nil
}

// Decode reads a JPEG, PNG or GIF and converts it to a tensor. Grayscale,
// paletted, CMYK and translucent images are rejected with ErrNotRGB.
func Decode(r io.Reader) (tensor.Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return tensor.Image{}, fmt.Errorf("imagestore: decode: %w", err)
	}
	if n := channels(src); n != tensor.Channels {
		return tensor.Image{}, fmt.Errorf("%w: %s image has %d channels", ErrNotRGB, format, n)
	}
	return tensor.FromImage(src), nil
}

// channels reports the channel count the image would have as a pixel tensor.
func channels(img image.Image) int {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.CMYKModel:
		return 4
	}
	if _, ok := img.(*image.Paletted); ok {
		return 1
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
		return 4
	}
	return 3
}

// EncodePNG writes the tensor as an opaque PNG. When maxSide is positive the
// image is downscaled so its longer side fits.
func EncodePNG(w io.Writer, img tensor.Image, maxSide int) error {
	rgba, err := img.ToRGBA64()
	if err != nil {
		return err
	}
	var out image.Image = rgba
	if maxSide > 0 && (img.W > maxSide || img.H > maxSide) {
		out = resize.Thumbnail(uint(maxSide), uint(maxSide), rgba, resize.Lanczos3)
	}
	return png.Encode(w, out)
}
