package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// Class defines a playable character class and the base stat values it
// grants. BaseValues is keyed by stat class path (e.g. "StatClass.Attribute.Vigor");
// a key applies to every stat whose class path equals it or descends from it,
// with the most specific key winning.
//
// Precondition: ID must be non-empty after loading.
type Class struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	BaseValues  map[string]float64 `yaml:"base_values"`
}

// Validate reports every problem with the class definition.
//
// Postcondition: Returns nil if c is usable, or an error listing all violations.
func (c *Class) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	keys := make([]string, 0, len(c.BaseValues))
	for k := range c.BaseValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !tag.Tag(k).Valid() {
			errs = append(errs, fmt.Errorf("base_values key %q is not a valid class path", k))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("class %q: %w", c.ID, err)
	}
	return nil
}

// BaseValueTable converts BaseValues to tag-keyed form.
//
// Postcondition: Returns a new map; mutating it does not affect c.
func (c *Class) BaseValueTable() map[tag.Tag]float64 {
	out := make(map[tag.Tag]float64, len(c.BaseValues))
	for k, v := range c.BaseValues {
		out[tag.Tag(k)] = v
	}
	return out
}

// LoadClasses reads all .yaml files in dir and parses each as a Class.
// Unknown fields are rejected.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns all parsed classes in file-name order (may be empty
// slice) or a non-nil error.
func LoadClasses(dir string) ([]*Class, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	classes := make([]*Class, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var c Class
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				continue
			}
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("validating class file %s: %w", path, err)
		}
		classes = append(classes, &c)
	}
	return classes, nil
}
