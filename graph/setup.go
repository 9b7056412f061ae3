package graph

import (
	"fmt"

	"github.com/vsariola/patchwork"
)

// setup is the patchwork.Setup handed to a module in the second pass.
type setup struct {
	g      *Graph
	self   patchwork.Module
	rename map[string]string // nil unless duplicating
}

func (s *setup) Session() *patchwork.Session { return s.g.session }

func (s *setup) translate(name string) (string, bool) {
	if s.rename == nil {
		return name, true
	}
	n, ok := s.rename[name]
	return n, ok
}

func (s *setup) Connect(src *patchwork.CableSource, targetName string) error {
	name, ok := s.translate(targetName)
	if !ok {
		return nil
	}
	h, err := s.g.reference(name, src.Kind.Required())
	if err != nil {
		return err
	}
	_, err = s.g.connect(src, h, false)
	return err
}

func (s *setup) ConnectFrom(sourceName, key string, self patchwork.Module) error {
	name, ok := s.translate(sourceName)
	if !ok {
		return nil
	}
	h, err := s.g.reference(name, 0)
	if err != nil {
		return err
	}
	owner := s.g.slots[h.Index].module
	var src *patchwork.CableSource
	for _, cs := range owner.Base().CableSources() {
		if cs.Key == key {
			src = cs
			break
		}
	}
	if src == nil {
		return fmt.Errorf("%w: %q has no output %q", patchwork.ErrWrongCapability, name, key)
	}
	target, ok := s.g.handles[self]
	if !ok {
		return fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, self.Name())
	}
	_, err = s.g.connect(src, target, true)
	return err
}

func (s *setup) FindModule(name string) (patchwork.Module, error) {
	n, ok := s.translate(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is outside the duplicated modules", patchwork.ErrUnknownModuleReference, name)
	}
	h, err := s.g.reference(n, 0)
	if err != nil {
		return nil, err
	}
	return s.g.slots[h.Index].module, nil
}

func (s *setup) FindControl(path string) (patchwork.Control, error) {
	module, child, control, err := patchwork.SplitControlPath(path)
	if err != nil {
		return nil, err
	}
	if n, ok := s.translate(module); ok {
		module = n
	}
	return s.g.FindControl(patchwork.ControlPath(module, child, control))
}
