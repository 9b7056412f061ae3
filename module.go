package patchwork

import (
	"errors"
	"fmt"
)

// ModuleBase implements the bookkeeping shared by all modules: identity,
// placement, flags, controls, child modules and cable sources. Modules embed
// it and override the lifecycle hooks they need.
type ModuleBase struct {
	self       Module
	name       string
	typeName   string
	x, y       float64
	width      float64
	height     float64
	enabled    bool
	singleton  bool
	structural bool

	controls []Control
	children []Module
	sources  []*CableSource
}

// Bind must be called by the constructor of every module embedding a
// ModuleBase, with the outer module, so that cable sources know their owner.
func (b *ModuleBase) Bind(self Module, typeName string) {
	b.self = self
	b.typeName = typeName
	b.enabled = true
}

func (b *ModuleBase) Base() *ModuleBase   { return b }
func (b *ModuleBase) Name() string        { return b.name }
func (b *ModuleBase) SetName(name string) { b.name = name }
func (b *ModuleBase) Type() string        { return b.typeName }
func (b *ModuleBase) Enabled() bool       { return b.enabled }
func (b *ModuleBase) SetEnabled(e bool)   { b.enabled = e }

func (b *ModuleBase) Position() (x, y float64) { return b.x, b.y }
func (b *ModuleBase) SetPosition(x, y float64) { b.x, b.y = x, y }

func (b *ModuleBase) Size() (width, height float64)  { return b.width, b.height }
func (b *ModuleBase) SetSize(width, height float64)  { b.width, b.height = width, height }
func (b *ModuleBase) IsSingleton() bool              { return b.singleton }
func (b *ModuleBase) SetSingleton(s bool)            { b.singleton = s }
func (b *ModuleBase) IsStructural() bool             { return b.structural }
func (b *ModuleBase) SetStructural(s bool)           { b.structural = s }
func (b *ModuleBase) Controls() []Control            { return b.controls }
func (b *ModuleBase) Children() []Module             { return b.children }
func (b *ModuleBase) CableSources() []*CableSource   { return b.sources }
func (b *ModuleBase) AddControl(c Control)           { b.controls = append(b.controls, c) }
func (b *ModuleBase) AddChild(m Module)              { b.children = append(b.children, m) }
func (b *ModuleBase) ClearChildren()                 { b.children = nil }
func (b *ModuleBase) CableSource(i int) *CableSource { return b.sources[i] }
func (b *ModuleBase) AddFloatControl(c *FloatControl) *FloatControl {
	b.AddControl(c)
	return c
}

// Saveable reports whether the module is written to layouts and states.
// Structural modules are always present and never saved.
func (b *ModuleBase) Saveable() bool { return !b.structural }

// AddCableSource declares an output port stored in the layout field key.
func (b *ModuleBase) AddCableSource(key string, kind CableKind, multi bool) *CableSource {
	s := &CableSource{Key: key, Kind: kind, Multi: multi, owner: b.self}
	b.sources = append(b.sources, s)
	return s
}

func (b *ModuleBase) FindControl(name string) (Control, error) {
	for _, c := range b.controls {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %q", ErrUnknownControl, name, b.name)
}

func (b *ModuleBase) FindChild(name string) (Module, error) {
	for _, c := range b.children {
		if c.Name() == name {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: child %q in %q", ErrUnknownModule, name, b.name)
}

// LoadBasics reads the fields common to all modules.
func (b *ModuleBase) LoadBasics(desc Descriptor, typeName string) {
	b.typeName = typeName
	if name := desc.Name(); name != "" {
		b.name = name
	}
	if x, y, ok := desc.Position(); ok {
		b.x, b.y = x, y
	}
	if w, h, ok := desc.Size(); ok {
		b.width, b.height = w, h
	}
	b.enabled = true
	if v, ok := desc["enabled"].(bool); ok {
		b.enabled = v
	}
}

// SaveBasics writes the fields common to all modules. Optional fields are
// omitted when they have their default values, so that a loaded layout
// saves back to the same document.
func (b *ModuleBase) SaveBasics(desc Descriptor) {
	desc["type"] = b.typeName
	desc["name"] = b.name
	if b.x != 0 || b.y != 0 {
		desc.SetPosition(b.x, b.y)
	}
	if b.width != 0 || b.height != 0 {
		desc.SetSize(b.width, b.height)
	}
	if !b.enabled {
		desc["enabled"] = false
	}
}

// SaveCables materializes the current targets of every cable source that
// this module declared into the layout fields of the sources.
func (b *ModuleBase) SaveCables(desc Descriptor) {
	for _, s := range b.sources {
		var names []any
		for _, c := range s.cables {
			if c.Inbound || c.module == nil {
				continue
			}
			names = append(names, c.module.Name())
		}
		switch {
		case len(names) == 0:
			delete(desc, s.Key)
		case s.Multi:
			desc[s.Key] = names
		default:
			desc[s.Key] = names[0]
		}
	}
}

// LoadCables connects the cable sources to the targets named in the layout.
// Failed references are collected, the rest are still connected.
func (b *ModuleBase) LoadCables(setup Setup, desc Descriptor) error {
	var errs []error
	for _, s := range b.sources {
		for _, name := range desc.Strings(s.Key) {
			if err := setup.Connect(s, name); err != nil {
				errs = append(errs, err)
			}
			if !s.Multi {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// SaveState writes the values of the controls. Modules with more runtime
// state call this first and append their own data.
func (b *ModuleBase) SaveState(w *StateWriter) {
	w.WriteInt(len(b.controls))
	for _, c := range b.controls {
		w.WriteString(c.Name())
		w.WriteFloat(c.Value())
	}
}

// LoadState is the inverse of SaveState. Values of unknown controls are
// skipped.
func (b *ModuleBase) LoadState(r *StateReader) error {
	n, err := r.ReadInt()
	if err != nil {
		return err
	}
	if n < 0 || n > maxStateControls {
		return fmt.Errorf("%w: %d controls in %q", ErrStateDesync, n, b.name)
	}
	for i := 0; i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		v, err := r.ReadFloat()
		if err != nil {
			return err
		}
		if c, err := b.FindControl(name); err == nil {
			c.SetValue(v)
		}
	}
	return nil
}

func (b *ModuleBase) CreateControls()                               {}
func (b *ModuleBase) LoadLayout(setup Setup, desc Descriptor) error { return nil }
func (b *ModuleBase) SaveLayout(desc Descriptor)                    {}
func (b *ModuleBase) Init()                                         {}
func (b *ModuleBase) PostLoadState()                                {}
func (b *ModuleBase) Exit()                                         {}

const maxStateControls = 4096
