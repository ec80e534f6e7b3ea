package stat

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// Definition is the static description of a stat, loaded from YAML.
type Definition struct {
	Tag tag.Tag `yaml:"tag"`
	// Class is the stat's class path, most specific segment last, used to
	// look up character class base values.
	Class                tag.Tag   `yaml:"class"`
	DisplayName          string    `yaml:"display_name"`
	Description          string    `yaml:"description"`
	Current              *float64  `yaml:"current"` // nil = start at Max
	Max                  float64   `yaml:"max"`
	Min                  float64   `yaml:"min"`
	OnlyMaxValueRelevant bool      `yaml:"only_max_value_relevant"`
	DisplayAsPercent     bool      `yaml:"display_as_percent"`
	ShowMaxValue         bool      `yaml:"show_max_value"`
	Pool                 bool      `yaml:"pool"`
	Regen                RegenInfo `yaml:"regen"`
	Affects              []Affect  `yaml:"affects"`
}

// Validate checks designer-data invariants.
//
// Postcondition: Returns nil if the definition is usable, or an error describing all violations.
func (d Definition) Validate() error {
	var errs []string
	if !d.Tag.Valid() {
		errs = append(errs, fmt.Sprintf("tag %q is not a valid tag", d.Tag))
	}
	if d.Class != "" && !d.Class.Valid() {
		errs = append(errs, fmt.Sprintf("class %q is not a valid tag", d.Class))
	}
	if d.Max < d.Min {
		errs = append(errs, fmt.Sprintf("max %g must not be below min %g", d.Max, d.Min))
	}
	if d.Regen.Interval < 0 {
		errs = append(errs, "regen.interval must not be negative")
	}
	if d.Regen.FractionOfMaxPerTick < 0 {
		errs = append(errs, "regen.fraction_of_max_per_tick must not be negative")
	}
	affected := make(map[tag.Tag]bool, len(d.Affects))
	for _, a := range d.Affects {
		if !a.Tag.Valid() {
			errs = append(errs, fmt.Sprintf("affects tag %q is not a valid tag", a.Tag))
		}
		if affected[a.Tag] {
			errs = append(errs, fmt.Sprintf("affects %s listed more than once", a.Tag))
		}
		affected[a.Tag] = true
		for i, r := range a.Rules {
			if r.UntilLevel > 0 && r.FromLevel > r.UntilLevel {
				errs = append(errs, fmt.Sprintf("affects %s rule %d: from_level %d exceeds until_level %d",
					a.Tag, i, r.FromLevel, r.UntilLevel))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("stat %q: %s", d.Tag, strings.Join(errs, "; "))
	}
	return nil
}

// DecodeDefinitions parses a YAML list of stat definitions from r.
// Unknown fields are rejected.
//
// Postcondition: Returns the parsed and validated definitions, or a non-nil error.
func DecodeDefinitions(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var defs []Definition
	if err := dec.Decode(&defs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

// LoadDefinitions reads every *.yaml file in dir in lexical order and returns
// the concatenated definitions.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all definitions, or an error if any file fails to
// parse or two files declare the same tag.
func LoadDefinitions(dir string) ([]Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading stat dir %q: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	var out []Definition
	seen := make(map[tag.Tag]string)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		defs, err := DecodeDefinitions(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		for _, d := range defs {
			if prev, ok := seen[d.Tag]; ok {
				return nil, fmt.Errorf("stat %q declared in both %q and %q", d.Tag, prev, path)
			}
			seen[d.Tag] = path
		}
		out = append(out, defs...)
	}
	return out, nil
}
