package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "classes.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `[
  {"imagenet_id": "n01440764", "name": "tench"},
  {"imagenet_id": "n01443537", "name": "goldfish"}
]`)
	cat, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	cls, err := cat.At(1)
	require.NoError(t, err)
	assert.Equal(t, Class{ID: "n01443537", Name: "goldfish"}, cls)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"empty":     `[]`,
		"duplicate": `[{"imagenet_id": "a", "name": "x"}, {"imagenet_id": "a", "name": "y"}]`,
		"no id":     `[{"name": "x"}]`,
		"not json":  `{{`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestAtOutOfRange(t *testing.T) {
	cat, err := New([]Class{{ID: "a", Name: "x"}})
	require.NoError(t, err)
	_, err = cat.At(1)
	assert.Error(t, err)
	_, err = cat.At(-1)
	assert.Error(t, err)
}

func TestNewCopiesInput(t *testing.T) {
	classes := []Class{{ID: "a", Name: "x"}}
	cat, err := New(classes)
	require.NoError(t, err)
	classes[0].Name = "changed"

	cls, err := cat.At(0)
	require.NoError(t, err)
	assert.Equal(t, "x", cls.Name)
}
