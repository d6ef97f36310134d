// Package modeltest provides an in-memory classifier for tests that must not
// depend on an ONNX model being present.
package modeltest

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/Brownie44l1/attack-lab/internal/preprocess"
)

// Classifier scores class i as (i+1) * mean(input). Brighter inputs therefore
// favour higher class indices, which makes perturbations visible in rankings.
type Classifier struct {
	Classes int
	Shape   []int64
	calls   atomic.Int64
}

// New returns a classifier taking the default normaliser's batch shape.
func New(classes int) *Classifier {
	return &Classifier{Classes: classes, Shape: preprocess.DefaultNormalizer().Shape()}
}

func (c *Classifier) Classify(ctx context.Context, input preprocess.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !slices.Equal(input.Shape, c.Shape) {
		return nil, fmt.Errorf("input shape %v does not match model input %v", input.Shape, c.Shape)
	}
	c.calls.Add(1)
	var sum float64
	for _, v := range input.Data {
		sum += float64(v)
	}
	mean := float32(0)
	if len(input.Data) > 0 {
		mean = float32(sum / float64(len(input.Data)))
	}
	scores := make([]float32, c.Classes)
	for i := range scores {
		scores[i] = float32(i+1) * mean
	}
	return scores, nil
}

func (c *Classifier) InputShape() []int64 { return slices.Clone(c.Shape) }

func (c *Classifier) NumClasses() int { return c.Classes }

func (c *Classifier) Close() error { return nil }

// Calls reports how many forward passes ran.
func (c *Classifier) Calls() int64 { return c.calls.Load() }
