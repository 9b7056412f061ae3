package modules

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vsariola/patchwork"
)

type (
	// MidiController forwards the notes of the MIDI inputs to its targets
	// and maps control changes to controls of other modules.
	MidiController struct {
		patchwork.ModuleBase
		out      *patchwork.CableSource
		bindings []Binding
	}

	// Binding maps a controller number to a control. Channel is 1-based,
	// 0 matches every channel.
	Binding struct {
		Channel int
		CC      int
		Path    string
		control patchwork.Control
	}
)

func NewMidiController(s *patchwork.Session) patchwork.Module {
	m := &MidiController{}
	m.Bind(m, "midicontroller")
	return m
}

func (m *MidiController) CreateControls() {
	m.out = m.AddCableSource("target", patchwork.NoteCable, true)
}

func (m *MidiController) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	m.bindings = m.bindings[:0]
	var errs []error
	for _, d := range desc.List("bindings") {
		b := Binding{Channel: d.Int("channel", 0), CC: d.Int("cc", 0), Path: d.String("control")}
		c, err := setup.FindControl(b.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: binding of cc %d: %w", m.Name(), b.CC, err))
			continue
		}
		b.control = c
		m.bindings = append(m.bindings, b)
	}
	return errors.Join(errs...)
}

func (m *MidiController) SaveLayout(desc patchwork.Descriptor) {
	if len(m.bindings) == 0 {
		return
	}
	list := make([]any, len(m.bindings))
	for i, b := range m.bindings {
		d := map[string]any{"cc": b.CC, "control": b.Path}
		if b.Channel != 0 {
			d["channel"] = b.Channel
		}
		list[i] = d
	}
	desc["bindings"] = list
}

func (m *MidiController) Bindings() []Binding { return m.bindings }

func (m *MidiController) OnMidi(msg patchwork.MidiMessage) {
	switch msg.Kind {
	case patchwork.MidiNoteOn, patchwork.MidiNoteOff:
		vel := msg.Data2
		if msg.Kind == patchwork.MidiNoteOff {
			vel = 0
		}
		for r := range m.out.NoteTargets {
			r.PlayNote(0, msg.Data1, vel)
		}
	case patchwork.MidiControlChange:
		for _, b := range m.bindings {
			if b.CC == msg.Data1 && (b.Channel == 0 || b.Channel == msg.Channel+1) {
				b.control.SetNormalized(float64(msg.Data2) / 127)
			}
		}
	}
}

// UnbindControls drops the bindings to the controls of the removed module.
func (m *MidiController) UnbindControls(removed patchwork.Module) {
	m.bindings = slices.DeleteFunc(m.bindings, func(b Binding) bool {
		return patchwork.OwnsControl(removed, b.control)
	})
}
