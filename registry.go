package patchwork

import (
	"fmt"
	"sort"
)

type (
	// Constructor creates a module that is not yet part of any graph. The
	// module must have called Bind on its ModuleBase.
	Constructor func(s *Session) Module

	// Registry maps module type names to constructors. It is filled at
	// startup and read-only afterwards.
	Registry struct {
		ctors map[string]Constructor
	}
)

func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

func (r *Registry) Register(typeName string, ctor Constructor) error {
	if typeName == "" || ctor == nil {
		return fmt.Errorf("invalid registration of %q", typeName)
	}
	if _, ok := r.ctors[typeName]; ok {
		return fmt.Errorf("module type %q registered twice", typeName)
	}
	r.ctors[typeName] = ctor
	return nil
}

// MustRegister is like Register but panics on error. Meant for the static
// registrations done at startup.
func (r *Registry) MustRegister(typeName string, ctor Constructor) {
	if err := r.Register(typeName, ctor); err != nil {
		panic(err)
	}
}

func (r *Registry) Has(typeName string) bool {
	_, ok := r.ctors[typeName]
	return ok
}

// New constructs a module of the given type. The type name of the module is
// set to typeName, its name is left for the caller to decide.
func (r *Registry) New(typeName string, s *Session) (Module, error) {
	ctor, ok := r.ctors[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModuleType, typeName)
	}
	m := ctor(s)
	if m.Base().self == nil {
		m.Base().Bind(m, typeName)
	}
	m.Base().typeName = typeName
	return m, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	ret := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}
