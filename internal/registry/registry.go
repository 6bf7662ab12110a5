package registry

import (
	"fmt"
	"slices"

	"github.com/vk/stagegrid/internal/stage"
)

// Default is the name of the registry holding the built-in stages.
const Default = "stagegrid_modules"

// Module is the interface that all stage packages implement to be registered.
type Module interface {
	Register(r *Registry)
}

// LookupError reports an unknown registry or stage name.
type LookupError struct {
	Registry string
	Name     string
}

func (e *LookupError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("unknown stage registry %q", e.Registry)
	}
	return fmt.Sprintf("stage %q not found in registry %q", e.Name, e.Registry)
}

// Registry holds the stage definitions of one named collection.
type Registry struct {
	name string
	defs map[string]*stage.Definition
}

// New creates an empty registry.
func New(name string) *Registry {
	return &Registry{name: name, defs: make(map[string]*stage.Definition)}
}

func (r *Registry) Name() string { return r.name }

// Register adds a definition after validating it.
func (r *Registry) Register(def *stage.Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("stage %q already registered in %q", def.Name, r.name)
	}
	r.defs[def.Name] = def
	return nil
}

// MustRegister is like Register but panics, for use in Module.Register.
func (r *Registry) MustRegister(def *stage.Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Lookup returns the definition registered as name.
func (r *Registry) Lookup(name string) (*stage.Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return nil, &LookupError{Registry: r.name, Name: name}
	}
	return def, nil
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Set groups registries by name.
type Set struct {
	registries map[string]*Registry
}

// NewSet creates a set holding regs.
func NewSet(regs ...*Registry) *Set {
	s := &Set{registries: make(map[string]*Registry)}
	for _, r := range regs {
		s.Add(r)
	}
	return s
}

// Add inserts r, replacing any registry with the same name.
func (s *Set) Add(r *Registry) {
	s.registries[r.name] = r
}

// Get returns the named registry, creating it when missing.
func (s *Set) Get(name string) *Registry {
	r, ok := s.registries[name]
	if !ok {
		r = New(name)
		s.registries[name] = r
	}
	return r
}

// Names returns the registry names, sorted.
func (s *Set) Names() []string {
	names := make([]string, 0, len(s.registries))
	for name := range s.registries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve looks up a stage in the named registry. It satisfies
// stage.Resolver.
func (s *Set) Resolve(registry, name string) (*stage.Definition, error) {
	r, ok := s.registries[registry]
	if !ok {
		return nil, &LookupError{Registry: registry}
	}
	return r.Lookup(name)
}
