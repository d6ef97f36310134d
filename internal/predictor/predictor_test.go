package predictor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/attack-lab/internal/attack"
	"github.com/Brownie44l1/attack-lab/internal/catalog"
	"github.com/Brownie44l1/attack-lab/internal/imagestore"
	"github.com/Brownie44l1/attack-lab/internal/model/modeltest"
	"github.com/Brownie44l1/attack-lab/internal/preprocess"
)

const numClasses = 12

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	classes := make([]catalog.Class, numClasses)
	for i := range classes {
		classes[i] = catalog.Class{ID: fmt.Sprintf("n%08d", i), Name: fmt.Sprintf("class %d", i)}
	}
	cat, err := catalog.New(classes)
	require.NoError(t, err)
	return cat
}

// writeImage stores a uniform bright image; the fake classifier then ranks
// the highest class index first.
func writeImage(t *testing.T, root, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 230, G: 220, B: 210, A: 255})
		}
	}
	f, err := os.Create(filepath.Join(root, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func newService(t *testing.T) (*Service, *modeltest.Classifier) {
	t.Helper()
	root := t.TempDir()
	writeImage(t, root, "bright.png")

	cls := modeltest.New(numClasses)
	svc, err := New(imagestore.New(root), attack.NewPipeline(attack.DefaultParams()),
		preprocess.DefaultNormalizer(), cls, testCatalog(t), 0)
	require.NoError(t, err)
	return svc, cls
}

func TestPredict(t *testing.T) {
	svc, cls := newService(t)

	preds, err := svc.Predict(context.Background(), "bright.png", nil)
	require.NoError(t, err)
	require.Len(t, preds, 10)
	assert.Equal(t, numClasses-1, preds[0].Index)
	assert.Equal(t, "class 11", preds[0].ClassName)
	assert.Equal(t, "bright.png", preds[0].SourcePath)
	for i := 1; i < len(preds); i++ {
		assert.LessOrEqual(t, preds[i].Probability, preds[i-1].Probability)
	}
	assert.Equal(t, int64(1), cls.Calls())
}

func TestPredictIsDeterministic(t *testing.T) {
	svc, _ := newService(t)
	seq := attack.Sequence{{ID: attack.RandomNoise, Count: 4}, {ID: attack.RotationAnti, Count: 1}}

	a, err := svc.Predict(context.Background(), "bright.png", seq)
	require.NoError(t, err)
	b, err := svc.Predict(context.Background(), "bright.png", seq)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPredictUnknownAttackSkipsClassifier(t *testing.T) {
	svc, cls := newService(t)

	_, err := svc.Predict(context.Background(), "bright.png", attack.Sequence{{ID: attack.Kind(50), Count: 1}})
	require.ErrorIs(t, err, attack.ErrUnknownAttack)
	assert.Zero(t, cls.Calls())
}

func TestPredictMissingImage(t *testing.T) {
	svc, cls := newService(t)

	_, err := svc.Predict(context.Background(), "nope.png", nil)
	require.ErrorIs(t, err, imagestore.ErrNotFound)
	assert.Zero(t, cls.Calls())
}

func TestRender(t *testing.T) {
	svc, _ := newService(t)

	img, err := svc.Render(context.Background(), "bright.png", attack.Sequence{{ID: attack.RotationClock, Count: 2}})
	require.NoError(t, err)
	assert.Equal(t, 16, img.H)
	assert.Equal(t, 12, img.W)
}

func TestSweep(t *testing.T) {
	svc, cls := newService(t)

	var seen []int
	points, err := svc.Sweep(context.Background(), "bright.png", attack.MirroringVertical, 3, func(c int) {
		seen = append(seen, c)
	})
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.Equal(t, []int{0, 1, 2, 3}, seen)
	assert.Equal(t, int64(4), cls.Calls())

	// A mirrored uniform image looks the same to the classifier.
	for i, p := range points {
		assert.Equal(t, i, p.Count)
		assert.Equal(t, 0, p.BaselineRank)
		assert.Equal(t, points[0].Top.Index, p.Top.Index)
		assert.InDelta(t, points[0].BaselineProbability, p.BaselineProbability, 1e-12)
	}
}

func TestSweepRejects(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Sweep(context.Background(), "bright.png", attack.Kind(0), 2, nil)
	assert.ErrorIs(t, err, attack.ErrUnknownAttack)

	_, err = svc.Sweep(context.Background(), "bright.png", attack.BlurImage, -1, nil)
	assert.Error(t, err)
}

func TestNewRejectsClassMismatch(t *testing.T) {
	_, err := New(imagestore.New(t.TempDir()), attack.NewPipeline(attack.DefaultParams()),
		preprocess.DefaultNormalizer(), modeltest.New(numClasses+1), testCatalog(t), 5)
	assert.Error(t, err)

	bad := preprocess.DefaultNormalizer()
	bad.Std[0] = 0
	_, err = New(imagestore.New(t.TempDir()), attack.NewPipeline(attack.DefaultParams()),
		bad, modeltest.New(numClasses), testCatalog(t), 5)
	assert.Error(t, err)
}

func TestPredictCancelled(t *testing.T) {
	svc, cls := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Predict(ctx, "bright.png", attack.Sequence{{ID: attack.BlurImage, Count: 1}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cls.Calls())
}

func TestNewRejectsInputShapeMismatch(t *testing.T) {
	cls := modeltest.New(numClasses)
	cls.Shape = []int64{1, 3, 224, 224}

	norm := preprocess.DefaultNormalizer()
	norm.CropSize = 256
	_, err := New(imagestore.New(t.TempDir()), attack.NewPipeline(attack.DefaultParams()),
		norm, cls, testCatalog(t), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[1 3 256 256]")
	assert.Zero(t, cls.Calls())
}
