package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/attack-lab/internal/preprocess"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validManifest = `schema_version: v1
name: resnet50
version: "1"
model_path: resnet50.onnx
catalog_path: classes.json
num_classes: 2
input_shape: [1, 3, 224, 224]
`

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(writeManifest(t, dir, validManifest))
	require.NoError(t, err)

	assert.Equal(t, "resnet50", m.Name)
	assert.Equal(t, filepath.Join(dir, "resnet50.onnx"), m.ModelPath)
	assert.Equal(t, filepath.Join(dir, "classes.json"), m.CatalogPath)
	assert.Equal(t, filepath.Join(dir, "libonnxruntime.so"), m.RuntimeLibrary)
	assert.Equal(t, "input", m.InputName)
	assert.Equal(t, "output", m.OutputName)
	assert.Equal(t, 4, m.IntraOpThreads)
	assert.Equal(t, []int64{1, 3, 224, 224}, m.InputShape)
}

func TestLoadManifestKeepsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "libonnxruntime.so.1.22")
	m, err := LoadManifest(writeManifest(t, dir, validManifest+"runtime_library: "+abs+"\ninput_name: data\n"))
	require.NoError(t, err)
	assert.Equal(t, abs, m.RuntimeLibrary)
	assert.Equal(t, "data", m.InputName)
}

func TestLoadManifestRejects(t *testing.T) {
	tests := map[string]string{
		"schema":        "schema_version: v2\nmodel_path: m.onnx\ncatalog_path: c.json\nnum_classes: 2\ninput_shape: [1,3,224,224]\n",
		"no model":      "catalog_path: c.json\nnum_classes: 2\ninput_shape: [1,3,224,224]\n",
		"no catalog":    "model_path: m.onnx\nnum_classes: 2\ninput_shape: [1,3,224,224]\n",
		"no classes":    "model_path: m.onnx\ncatalog_path: c.json\ninput_shape: [1,3,224,224]\n",
		"dynamic shape": "model_path: m.onnx\ncatalog_path: c.json\nnum_classes: 2\ninput_shape: [-1,3,224,224]\n",
		"grayscale":     "model_path: m.onnx\ncatalog_path: c.json\nnum_classes: 2\ninput_shape: [1,1,224,224]\n",
		"rank":          "model_path: m.onnx\ncatalog_path: c.json\nnum_classes: 2\ninput_shape: [3,224,224]\n",
		"yaml":          "model_path: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, t.TempDir(), body))
			assert.Error(t, err)
		})
	}

	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadCatalogMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classes.json"),
		[]byte(`[{"imagenet_id":"a","name":"x"},{"imagenet_id":"b","name":"y"},{"imagenet_id":"c","name":"z"}]`), 0o644))

	_, err := Load(writeManifest(t, dir, validManifest))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 classes")
}

const modelManifest = "../../models/manifest.yml"

func skipIfNoModel(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(modelManifest); os.IsNotExist(err) {
		t.Skip("model files not found; see models/README.md")
	}
}

func TestArtifactClassify(t *testing.T) {
	skipIfNoModel(t)

	art, err := Load(modelManifest)
	require.NoError(t, err)
	defer art.Close()

	norm := preprocess.DefaultNormalizer()
	input := preprocess.Tensor{Shape: norm.Shape(), Data: make([]float32, 3*224*224)}
	scores, err := art.Classifier.Classify(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, scores, art.Catalog.Len())

	again, err := art.Classifier.Classify(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, scores, again)
}

func TestArtifactRejectsWrongShape(t *testing.T) {
	skipIfNoModel(t)

	art, err := Load(modelManifest)
	require.NoError(t, err)
	defer art.Close()

	_, err = art.Classifier.Classify(context.Background(), preprocess.Tensor{Shape: []int64{1, 3, 8, 8}, Data: make([]float32, 3*8*8)})
	assert.Error(t, err)
}

func TestShutdownWithoutEnvironment(t *testing.T) {
	assert.NoError(t, Shutdown())
	assert.NoError(t, Shutdown())
}

// Closing an artifact tears the runtime down; loading again brings it back.
func TestArtifactReloadAfterClose(t *testing.T) {
	skipIfNoModel(t)

	first, err := Load(modelManifest)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Load(modelManifest)
	require.NoError(t, err)
	defer second.Close()

	shape := second.Classifier.InputShape()
	size := int64(1)
	for _, d := range shape {
		size *= d
	}
	_, err = second.Classifier.Classify(context.Background(), preprocess.Tensor{Shape: shape, Data: make([]float32, size)})
	assert.NoError(t, err)
}
