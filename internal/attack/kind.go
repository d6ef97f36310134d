package attack

import (
	"errors"
	"fmt"
)

// Kind identifies one of the supported perturbations.
type Kind int

const (
	RandomNoise Kind = iota + 1
	RotationClock
	RotationAnti
	ShiftingLeft
	ShiftingRight
	MirroringVertical
	MirroringHorizontal
	ShearingVertical
	ShearingHorizontal
	BlurImage
)

var ErrUnknownAttack = errors.New("attack: unknown attack id")

var kindNames = [...]string{
	RandomNoise:         "random_noise",
	RotationClock:       "rotation_clock",
	RotationAnti:        "rotation_anti",
	ShiftingLeft:        "shifting_left",
	ShiftingRight:       "shifting_right",
	MirroringVertical:   "mirroring_vertical",
	MirroringHorizontal: "mirroring_horizontal",
	ShearingVertical:    "shearing_vertical",
	ShearingHorizontal:  "shearing_horizontal",
	BlurImage:           "blur_image",
}

// Kinds returns every supported attack in canonical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := RandomNoise; k <= BlurImage; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) Valid() bool {
	return k >= RandomNoise && k <= BlurImage
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a wire identifier to its Kind.
func ParseKind(s string) (Kind, error) {
	for k := RandomNoise; k <= BlurImage; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownAttack, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAttack, int(k))
	}
	return []byte(kindNames[k]), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
