package graph

import (
	"github.com/vsariola/patchwork"
)

// Describe builds the layout entry of a module: the common fields, the
// current targets of its cables, the sources of the inbound cables it
// declared and the module specific fields.
func (g *Graph) Describe(h patchwork.Handle) (patchwork.Descriptor, error) {
	s, err := g.slot(h)
	if err != nil {
		return nil, err
	}
	desc := patchwork.Descriptor{}
	base := s.module.Base()
	base.SaveBasics(desc)
	base.SaveCables(desc)
	for _, c := range s.incoming {
		if !c.Inbound {
			continue
		}
		name := c.Owner().Name()
		switch v := desc[c.Source.Key].(type) {
		case nil:
			desc[c.Source.Key] = name
		case string:
			desc[c.Source.Key] = []any{v, name}
		case []any:
			desc[c.Source.Key] = append(v, name)
		}
	}
	s.module.SaveLayout(desc)
	return desc, nil
}

// Saveable reports whether the module is written to layouts and states.
func (g *Graph) Saveable(h patchwork.Handle) bool {
	s, err := g.slot(h)
	return err == nil && s.module.Base().Saveable()
}
