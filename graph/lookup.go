package graph

import (
	"fmt"

	"github.com/vsariola/patchwork"
)

// Find returns the handle of the module with the given name.
func (g *Graph) Find(name string) (patchwork.Handle, bool) {
	for _, h := range g.live {
		if g.slots[h.Index].module.Name() == name {
			return h, true
		}
	}
	return patchwork.Handle{}, false
}

func (g *Graph) FindModule(name string) (patchwork.Module, error) {
	h, ok := g.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, name)
	}
	return g.slots[h.Index].module, nil
}

// reference resolves a name used in a layout. A missing module is an
// ErrUnknownModuleReference, a module without the required capabilities an
// ErrWrongCapability.
func (g *Graph) reference(name string, required patchwork.Caps) (patchwork.Handle, error) {
	h, ok := g.Find(name)
	if !ok {
		return h, fmt.Errorf("%w: %q", patchwork.ErrUnknownModuleReference, name)
	}
	if c := g.slots[h.Index].caps; !c.Has(required) {
		return patchwork.Handle{}, fmt.Errorf("%w: %q is %v, want %v", patchwork.ErrWrongCapability, name, c, required)
	}
	return h, nil
}

func (g *Graph) find(name string, required patchwork.Caps) (patchwork.Module, error) {
	h, ok := g.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, name)
	}
	s := &g.slots[h.Index]
	if !s.caps.Has(required) {
		return nil, fmt.Errorf("%w: %q is %v, want %v", patchwork.ErrWrongCapability, name, s.caps, required)
	}
	return s.module, nil
}

func (g *Graph) FindAudioReceiver(name string) (patchwork.AudioReceiver, error) {
	m, err := g.find(name, patchwork.CapAudioReceiver)
	if err != nil {
		return nil, err
	}
	return m.(patchwork.AudioReceiver), nil
}

func (g *Graph) FindNoteReceiver(name string) (patchwork.NoteReceiver, error) {
	m, err := g.find(name, patchwork.CapNoteReceiver)
	if err != nil {
		return nil, err
	}
	return m.(patchwork.NoteReceiver), nil
}

func (g *Graph) FindMidiController(name string) (patchwork.MidiController, error) {
	m, err := g.find(name, patchwork.CapMidiController)
	if err != nil {
		return nil, err
	}
	return m.(patchwork.MidiController), nil
}

// FindControl resolves a control path, "module~control" or
// "module~child~control".
func (g *Graph) FindControl(path string) (patchwork.Control, error) {
	module, child, control, err := patchwork.SplitControlPath(path)
	if err != nil {
		return nil, err
	}
	m, err := g.FindModule(module)
	if err != nil {
		return nil, err
	}
	if child != "" {
		if m, err = m.Base().FindChild(child); err != nil {
			return nil, err
		}
	}
	return m.Base().FindControl(control)
}

// MidiControllers returns the modules receiving MIDI, in z-order.
func (g *Graph) MidiControllers() []patchwork.MidiController {
	var ret []patchwork.MidiController
	for _, h := range g.live {
		if s := &g.slots[h.Index]; s.caps.Has(patchwork.CapMidiController) {
			ret = append(ret, s.module.(patchwork.MidiController))
		}
	}
	return ret
}
