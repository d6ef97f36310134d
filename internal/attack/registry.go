package attack

import (
	"fmt"

	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

// Apply runs a single transform with intensity count (count >= 1). The input
// image is never modified.
func Apply(kind Kind, img tensor.Image, count int, p Params) (tensor.Image, error) {
	switch kind {
	case RandomNoise:
		return addNoise(img, count, p), nil
	case RotationClock:
		return rotate(img, -float64(count)*p.RotateStep), nil
	case RotationAnti:
		return rotate(img, float64(count)*p.RotateStep), nil
	case ShiftingLeft:
		return shift(img, -count*p.ShiftDelta), nil
	case ShiftingRight:
		return shift(img, count*p.ShiftDelta), nil
	case MirroringVertical:
		return mirror(img, count, flipLeftRight), nil
	case MirroringHorizontal:
		return mirror(img, count, flipTopBottom), nil
	case ShearingVertical:
		return shearVertical(img, count, p.ShearFactor), nil
	case ShearingHorizontal:
		return shearHorizontal(img, count, p.ShearFactor), nil
	case BlurImage:
		return blur(img, count), nil
	}
	return tensor.Image{}, fmt.Errorf("%w: %v", ErrUnknownAttack, kind)
}
