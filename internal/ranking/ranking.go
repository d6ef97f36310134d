package ranking

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/Brownie44l1/attack-lab/internal/catalog"
)

// DefaultK is the number of predictions surfaced per request.
const DefaultK = 10

var ErrSizeMismatch = errors.New("ranking: score vector and catalog sizes differ")

// Prediction is one ranked class. The JSON names match the public API.
type Prediction struct {
	ClassID     string  `json:"imagenet_id"`
	ClassName   string  `json:"name"`
	Probability float64 `json:"probability"`
	SourcePath  string  `json:"path"`
	Index       int     `json:"-"`
}

// Softmax converts raw scores into probabilities. The maximum is subtracted
// before exponentiating so large logits cannot overflow.
func Softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}
	maxVal := math.Inf(-1)
	for _, s := range scores {
		maxVal = math.Max(maxVal, float64(s))
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s) - maxVal)
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// TopK returns the indices of the k largest probabilities, highest first.
// Equal probabilities keep ascending index order.
func TopK(probs []float64, k int) []int {
	idx := make([]int, len(probs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// Rank joins the top k classes with the catalog and tags each with the image
// the scores came from.
func Rank(scores []float32, cat *catalog.Catalog, sourcePath string, k int) ([]Prediction, error) {
	if len(scores) != cat.Len() {
		return nil, fmt.Errorf("%w: %d scores, %d classes", ErrSizeMismatch, len(scores), cat.Len())
	}
	if k <= 0 {
		k = DefaultK
	}

	probs := Softmax(scores)
	top := TopK(probs, k)

	out := make([]Prediction, 0, len(top))
	for _, i := range top {
		cls, err := cat.At(i)
		if err != nil {
			return nil, err
		}
		out = append(out, Prediction{
			ClassID:     cls.ID,
			ClassName:   cls.Name,
			Probability: probs[i],
			SourcePath:  sourcePath,
			Index:       i,
		})
	}
	return out, nil
}
