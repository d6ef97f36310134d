package predictor

import (
	"context"
	"fmt"
	"slices"

	"github.com/Brownie44l1/attack-lab/internal/attack"
	"github.com/Brownie44l1/attack-lab/internal/catalog"
	"github.com/Brownie44l1/attack-lab/internal/imagestore"
	"github.com/Brownie44l1/attack-lab/internal/logging"
	"github.com/Brownie44l1/attack-lab/internal/model"
	"github.com/Brownie44l1/attack-lab/internal/preprocess"
	"github.com/Brownie44l1/attack-lab/internal/ranking"
	"github.com/Brownie44l1/attack-lab/internal/tensor"
)

// Service orchestrates the perturb -> normalise -> classify -> rank flow.
// Every dependency is read-only after construction, so one Service handles
// concurrent requests.
type Service struct {
	images     *imagestore.Store
	pipeline   *attack.Pipeline
	normalizer preprocess.Normalizer
	classifier model.Classifier
	catalog    *catalog.Catalog
	topK       int
}

// New wires a Service and checks the pieces agree on input shape and class
// count, so a mismatch fails at startup rather than on the first request.
func New(images *imagestore.Store, pipeline *attack.Pipeline, norm preprocess.Normalizer,
	cls model.Classifier, cat *catalog.Catalog, topK int) (*Service, error) {
	if err := norm.Validate(); err != nil {
		return nil, err
	}
	if shape := cls.InputShape(); !slices.Equal(norm.Shape(), shape) {
		return nil, fmt.Errorf("predictor: normalizer produces %v, classifier expects %v", norm.Shape(), shape)
	}
	if cls.NumClasses() != cat.Len() {
		return nil, fmt.Errorf("predictor: classifier has %d classes, catalog has %d", cls.NumClasses(), cat.Len())
	}
	if topK <= 0 {
		topK = ranking.DefaultK
	}
	return &Service{
		images:     images,
		pipeline:   pipeline,
		normalizer: norm,
		classifier: cls,
		catalog:    cat,
		topK:       topK,
	}, nil
}

// Predict loads the image at path, applies seq and returns the top-k classes.
// An empty sequence yields the unattacked prediction.
func (s *Service) Predict(ctx context.Context, path string, seq attack.Sequence) ([]ranking.Prediction, error) {
	img, err := s.images.Open(path)
	if err != nil {
		return nil, err
	}
	return s.PredictImage(ctx, img, path, seq)
}

// PredictImage is Predict for an already decoded image.
func (s *Service) PredictImage(ctx context.Context, img tensor.Image, source string, seq attack.Sequence) ([]ranking.Prediction, error) {
	scores, err := s.scores(ctx, img, seq)
	if err != nil {
		return nil, err
	}
	preds, err := ranking.Rank(scores, s.catalog, source, s.topK)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("prediction",
		"path", source,
		"attacks", len(seq.Active()),
		"top", preds[0].ClassName,
		"probability", preds[0].Probability,
	)
	return preds, nil
}

// Render returns the perturbed image before normalisation.
func (s *Service) Render(ctx context.Context, path string, seq attack.Sequence) (tensor.Image, error) {
	img, err := s.images.Open(path)
	if err != nil {
		return tensor.Image{}, err
	}
	return s.pipeline.Apply(ctx, img, seq)
}

func (s *Service) scores(ctx context.Context, img tensor.Image, seq attack.Sequence) ([]float32, error) {
	attacked, err := s.pipeline.Apply(ctx, img, seq)
	if err != nil {
		return nil, err
	}
	input, err := s.normalizer.Normalize(attacked)
	if err != nil {
		return nil, err
	}
	scores, err := s.classifier.Classify(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("predictor: %w", err)
	}
	return scores, nil
}

// SweepPoint is the classifier's view of the image at one intensity.
type SweepPoint struct {
	Count int                `json:"count"`
	Top   ranking.Prediction `json:"top"`
	// BaselineProbability is the probability of the class ranked first at
	// count 0.
	BaselineProbability float64 `json:"baseline_probability"`
	// BaselineRank is the 0-based rank of that class, or -1 if it fell out of
	// the top k.
	BaselineRank int `json:"baseline_rank"`
}

// Sweep classifies the image under kind at every count from 0 to maxCount.
// progress, when non-nil, is called after each point.
func (s *Service) Sweep(ctx context.Context, path string, kind attack.Kind, maxCount int, progress func(count int)) ([]SweepPoint, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", attack.ErrUnknownAttack, kind)
	}
	if maxCount < 0 {
		return nil, fmt.Errorf("predictor: max count %d is negative", maxCount)
	}
	img, err := s.images.Open(path)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, 0, maxCount+1)
	baseline := -1
	for count := 0; count <= maxCount; count++ {
		scores, err := s.scores(ctx, img, attack.Sequence{{ID: kind, Count: count}})
		if err != nil {
			return nil, err
		}
		preds, err := ranking.Rank(scores, s.catalog, path, s.topK)
		if err != nil {
			return nil, err
		}
		if baseline < 0 {
			baseline = preds[0].Index
		}
		probs := ranking.Softmax(scores)
		points = append(points, SweepPoint{
			Count:               count,
			Top:                 preds[0],
			BaselineProbability: probs[baseline],
			BaselineRank: slices.IndexFunc(preds, func(p ranking.Prediction) bool {
				return p.Index == baseline
			}),
		})
		if progress != nil {
			progress(count)
		}
	}
	return points, nil
}
