package attack

import (
	"context"
	"errors"
	"fmt"

	"github.com/Brownie44l1/attack-lab/internal/logging"
	"github.com/Brownie44l1/attack-lab/internal/telemetry"
	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

var ErrChannels = errors.New("attack: image must have exactly 3 channels")

// Pipeline composes transforms in sequence order. It holds no mutable state
// and is safe for concurrent use.
type Pipeline struct {
	params Params
}

func NewPipeline(p Params) *Pipeline {
	return &Pipeline{params: p}
}

func (p *Pipeline) Params() Params {
	return p.params
}

// Apply runs every step with Count > 0 in order, feeding each output into the
// next step. The whole sequence is validated before the first step runs, so an
// invalid id never leaves a partially applied result.
func (p *Pipeline) Apply(ctx context.Context, img tensor.Image, seq Sequence) (tensor.Image, error) {
	if err := img.Validate(); err != nil {
		return tensor.Image{}, err
	}
	if img.C != tensor.Channels {
		return tensor.Image{}, fmt.Errorf("%w: got %d", ErrChannels, img.C)
	}
	if err := seq.Validate(); err != nil {
		return tensor.Image{}, err
	}

	out, applied := img, 0
	for _, spec := range seq {
		if spec.Count <= 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return tensor.Image{}, err
		}
		next, err := Apply(spec.ID, out, spec.Count, p.params)
		if err != nil {
			return tensor.Image{}, err
		}
		logging.FromContext(ctx).Debug("attack applied",
			"attack", spec.ID.String(),
			"count", spec.Count,
			"height", next.H,
			"width", next.W,
		)
		telemetry.ObserveAttack(spec.ID.String())
		out = next
		applied++
	}
	if applied == 0 {
		return img.Clone(), nil
	}
	return out, nil
}
