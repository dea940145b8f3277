package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type staticSource struct {
	plans []Plan
}

// NewStaticSource returns a Source serving a fixed list of plans.
// Panics if no plans are provided to fail fast on misconfiguration.
func NewStaticSource(plans ...Plan) Source {
	if len(plans) == 0 {
		panic("plan: at least one plan is required")
	}
	return &staticSource{plans: slices.Clone(plans)}
}

func (s *staticSource) Load(_ context.Context) ([]Plan, error) {
	return slices.Clone(s.plans), nil
}

type yamlSource struct {
	path string
}

// NewYAMLSource returns a Source reading the plan catalog from a YAML file.
// The file holds a top-level `plans` list; see Plan field tags for the schema.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

func (s *yamlSource) Load(_ context.Context) ([]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plan catalog %s: %w", s.path, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plan catalog %s: %w", s.path, err)
	}
	if len(doc.Plans) == 0 {
		return nil, errors.Join(ErrNoPlans, fmt.Errorf("plan catalog %s is empty", s.path))
	}

	return doc.Plans, nil
}
