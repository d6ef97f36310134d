package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// Class is one classifier output.
type Class struct {
	ID   string `json:"imagenet_id"`
	Name string `json:"name"`
}

// Catalog maps classifier output indices to class identities. It is never
// modified after Load and may be shared freely.
type Catalog struct {
	classes []Class
}

// New validates classes and wraps them. The slice is copied.
func New(classes []Class) (*Catalog, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("catalog: no classes")
	}
	seen := make(map[string]int, len(classes))
	for i, c := range classes {
		if c.ID == "" {
			return nil, fmt.Errorf("catalog: class %d has empty id", i)
		}
		if prev, ok := seen[c.ID]; ok {
			return nil, fmt.Errorf("catalog: duplicate id %q at %d and %d", c.ID, prev, i)
		}
		seen[c.ID] = i
	}
	cp := make([]Class, len(classes))
	copy(cp, classes)
	return &Catalog{classes: cp}, nil
}

// Load reads a JSON array of {"imagenet_id", "name"} entries, ordered by
// output index.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read %s: %w", path, err)
	}
	var classes []Class
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, fmt.Errorf("catalog: failed to parse %s: %w", path, err)
	}
	return New(classes)
}

func (c *Catalog) Len() int {
	return len(c.classes)
}

func (c *Catalog) At(i int) (Class, error) {
	if i < 0 || i >= len(c.classes) {
		return Class{}, fmt.Errorf("catalog: index %d out of range [0,%d)", i, len(c.classes))
	}
	return c.classes[i], nil
}
