package services

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed options.yaml
var defaultOptionsYAML []byte

// FormOptions holds the static dropdown lists keyed by list name
// ("community", "skill", "category"); each list maps id to label.
type FormOptions map[string]map[string]string

// LoadFormOptions parses raw YAML, or the embedded defaults when raw is empty.
func LoadFormOptions(raw []byte) (FormOptions, error) {
	if len(raw) == 0 {
		raw = defaultOptionsYAML
	}
	var opts FormOptions
	if err := yaml.Unmarshal(raw, &opts); err != nil {
		return nil, fmt.Errorf("parse form options: %w", err)
	}
	if opts == nil {
		opts = FormOptions{}
	}
	return opts, nil
}

// List returns one dropdown and whether it exists.
func (o FormOptions) List(name string) (map[string]string, bool) {
	l, ok := o[name]
	return l, ok
}
