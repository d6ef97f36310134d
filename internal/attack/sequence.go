package attack

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is one step of an attack sequence. Count <= 0 means the step has no
// effect.
type Spec struct {
	ID    Kind `json:"id" yaml:"id"`
	Count int  `json:"count" yaml:"count"`
}

func (s Spec) String() string {
	return fmt.Sprintf("%s=%d", s.ID, s.Count)
}

// Sequence is applied in order; transforms do not commute in general.
type Sequence []Spec

// Validate reports the first step whose id is outside the repertoire.
func (seq Sequence) Validate() error {
	for i, s := range seq {
		if !s.ID.Valid() {
			return fmt.Errorf("step %d: %w: %v", i, ErrUnknownAttack, s.ID)
		}
	}
	return nil
}

// Active returns the steps that will actually be dispatched.
func (seq Sequence) Active() Sequence {
	out := make(Sequence, 0, len(seq))
	for _, s := range seq {
		if s.Count > 0 {
			out = append(out, s)
		}
	}
	return out
}

// ParseSpec parses the "id=count" command-line form. A bare id means count 1.
func ParseSpec(s string) (Spec, error) {
	id, countStr, hasCount := strings.Cut(strings.TrimSpace(s), "=")
	kind, err := ParseKind(strings.TrimSpace(id))
	if err != nil {
		return Spec{}, err
	}
	count := 1
	if hasCount {
		count, err = strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return Spec{}, fmt.Errorf("attack %s: invalid count %q: %w", kind, countStr, err)
		}
		if count < 0 {
			return Spec{}, fmt.Errorf("attack %s: negative count %d", kind, count)
		}
	}
	return Spec{ID: kind, Count: count}, nil
}

// ParseSequence parses each "id=count" argument in order.
func ParseSequence(args []string) (Sequence, error) {
	seq := make(Sequence, 0, len(args))
	for _, a := range args {
		spec, err := ParseSpec(a)
		if err != nil {
			return nil, err
		}
		seq = append(seq, spec)
	}
	return seq, nil
}

type sequenceFile struct {
	SchemaVersion string   `yaml:"schema_version"`
	Attacks       Sequence `yaml:"attacks"`
}

// LoadSequence reads an attack sequence from a YAML file of the form
//
//	schema_version: v1
//	attacks:
//	  - {id: rotation_clock, count: 1}
//	  - {id: random_noise, count: 2}
func LoadSequence(path string) (Sequence, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f sequenceFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("attack sequence %s: %w", path, err)
	}
	if f.SchemaVersion != "" && f.SchemaVersion != "v1" {
		return nil, fmt.Errorf("attack sequence schema_version %q not supported (want v1)", f.SchemaVersion)
	}
	return f.Attacks, nil
}
