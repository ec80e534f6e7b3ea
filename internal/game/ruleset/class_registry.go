package ruleset

import (
	"fmt"
	"sort"

	"github.com/cory-johannsen/statengine/internal/game/tag"
)

// ClassRegistry provides lookup of character classes by ID. It is the class
// data source consumed by stat.Registry.
type ClassRegistry struct {
	classes map[string]*Class
}

// NewClassRegistry returns an empty ClassRegistry.
//
// Postcondition: Returns a non-nil *ClassRegistry ready to accept registrations.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]*Class)}
}

// LoadClassRegistry loads every class in dir into a new registry.
//
// Postcondition: Returns a populated registry, or a non-nil error if loading
// fails or two files declare the same class ID.
func LoadClassRegistry(dir string) (*ClassRegistry, error) {
	classes, err := LoadClasses(dir)
	if err != nil {
		return nil, err
	}
	r := NewClassRegistry()
	for _, c := range classes {
		if _, dup := r.classes[c.ID]; dup {
			return nil, fmt.Errorf("class %q declared more than once in %s", c.ID, dir)
		}
		r.Register(c)
	}
	return r, nil
}

// Register adds a Class to the registry.
//
// Precondition: class must be non-nil with a non-empty ID.
// Postcondition: class is retrievable via Class using class.ID;
// if called multiple times with the same ID, the last call wins.
func (r *ClassRegistry) Register(class *Class) {
	if class == nil {
		panic("ClassRegistry.Register: precondition violated: class must be non-nil")
	}
	if class.ID == "" {
		panic("ClassRegistry.Register: precondition violated: class ID must be non-empty")
	}
	r.classes[class.ID] = class
}

// Class returns the Class for the given ID, if registered.
func (r *ClassRegistry) Class(id string) (*Class, bool) {
	c, ok := r.classes[id]
	return c, ok
}

// BaseValuesFor returns the base value table of class id keyed by class path.
//
// Postcondition: Returns a fresh map and true, or nil and false if id is unknown.
func (r *ClassRegistry) BaseValuesFor(id string) (map[tag.Tag]float64, bool) {
	c, ok := r.classes[id]
	if !ok {
		return nil, false
	}
	return c.BaseValueTable(), true
}

// IDs returns every registered class ID in sorted order.
func (r *ClassRegistry) IDs() []string {
	ids := make([]string, 0, len(r.classes))
	for id := range r.classes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StaticSelection is a fixed class selection, e.g. from configuration.
// The empty selection reports no class.
type StaticSelection string

// SelectedClass returns the selected class ID.
func (s StaticSelection) SelectedClass() (string, bool) {
	return string(s), s != ""
}
