package model

import (
	"context"

	"github.com/Brownie44l1/attack-lab/internal/preprocess"
)

// SupportedSchema is the only manifest schema_version accepted.
const SupportedSchema = "v1"

// Manifest describes a classifier artifact and its class catalog. Relative
// paths are resolved against the manifest's directory.
type Manifest struct {
	SchemaVersion  string  `yaml:"schema_version"`
	Name           string  `yaml:"name"`
	Version        string  `yaml:"version"`
	ModelPath      string  `yaml:"model_path"`
	CatalogPath    string  `yaml:"catalog_path"`
	RuntimeLibrary string  `yaml:"runtime_library"`
	InputName      string  `yaml:"input_name"`
	OutputName     string  `yaml:"output_name"`
	InputShape     []int64 `yaml:"input_shape"`
	NumClasses     int     `yaml:"num_classes"`
	IntraOpThreads int     `yaml:"intra_op_threads"`
}

// Classifier maps a normalised batch to raw per-class scores. Implementations
// must be safe for concurrent use and must not keep state between calls.
type Classifier interface {
	Classify(ctx context.Context, input preprocess.Tensor) ([]float32, error)
	// InputShape is the only batch shape Classify accepts.
	InputShape() []int64
	NumClasses() int
	Close() error
}
