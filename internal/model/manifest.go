package model

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadManifest parses and validates a manifest file.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("failed to read manifest: %w", err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.SchemaVersion == "" {
		m.SchemaVersion = SupportedSchema
	}
	if m.SchemaVersion != SupportedSchema {
		return m, fmt.Errorf("manifest schema_version %q not supported (want %q)", m.SchemaVersion, SupportedSchema)
	}

	dir := filepath.Dir(path)
	m.ModelPath = resolve(dir, m.ModelPath)
	m.CatalogPath = resolve(dir, m.CatalogPath)
	m.RuntimeLibrary = resolve(dir, m.RuntimeLibrary)
	if m.RuntimeLibrary == "" && m.ModelPath != "" {
		m.RuntimeLibrary = filepath.Join(filepath.Dir(m.ModelPath), "libonnxruntime.so")
	}
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.IntraOpThreads == 0 {
		m.IntraOpThreads = 4
	}

	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

// Validate checks the fields every artifact must declare.
func (m Manifest) Validate() error {
	if m.ModelPath == "" {
		return fmt.Errorf("manifest: model_path is required")
	}
	if m.CatalogPath == "" {
		return fmt.Errorf("manifest: catalog_path is required")
	}
	if m.NumClasses <= 0 {
		return fmt.Errorf("manifest: num_classes must be positive, got %d", m.NumClasses)
	}
	if len(m.InputShape) != 4 {
		return fmt.Errorf("manifest: input_shape must be NCHW, got %v", m.InputShape)
	}
	for _, d := range m.InputShape {
		if d <= 0 {
			return fmt.Errorf("manifest: input_shape must be static, got %v", m.InputShape)
		}
	}
	if m.InputShape[0] != 1 || m.InputShape[1] != 3 {
		return fmt.Errorf("manifest: input_shape must be [1,3,H,W], got %v", m.InputShape)
	}
	return nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
