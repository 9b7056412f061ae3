// Package modules contains the built-in module types. They are kept simple
// and exist mostly to exercise the capabilities of the graph: audio sources
// and receivers, note receivers, MIDI controllers, pollers of the transport
// and sync inputs.
package modules

import (
	"sort"

	"github.com/viterin/vek/vek32"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vsariola/patchwork"
)

// Types maps the type names of the built-in modules to their constructors.
var Types = map[string]patchwork.Constructor{
	"source":         NewSource,
	"sink":           NewSink,
	"gain":           NewGain,
	"chain":          NewChain,
	"input":          NewInput,
	"output":         NewOutput,
	"sequencer":      NewSequencer,
	"lfo":            NewLFO,
	"midicontroller": NewMidiController,
	"clocksync":      NewClockSync,
}

// Register adds every built-in type to the registry.
func Register(r *patchwork.Registry) {
	names := make([]string, 0, len(Types))
	for name := range Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r.MustRegister(name, Types[name])
	}
}

// Label returns the human readable label of a module, e.g. "Source osc1".
func Label(m patchwork.Module) string {
	return cases.Title(language.English).String(m.Type()) + " " + m.Name()
}

type (
	// buffer is the input buffer of an audio receiver, one processing
	// chunk long.
	buffer struct {
		buf []float32
	}

	// outputs are the two audio outputs of a source, "target" and
	// "target2".
	outputs struct {
		target, target2 *patchwork.CableSource
	}
)

func newBuffer(s *patchwork.Session) buffer { return buffer{buf: make([]float32, s.BufferSize)} }

func (b *buffer) Buffer() []float32 { return b.buf }
func (b *buffer) ClearBuffer()      { vek32.Zeros_Into(b.buf, len(b.buf)) }

func (o *outputs) create(b *patchwork.ModuleBase) {
	o.target = b.AddCableSource("target", patchwork.AudioCable, false)
	o.target2 = b.AddCableSource("target2", patchwork.AudioCable, false)
}

func (o *outputs) PrimaryTarget() patchwork.AudioReceiver   { return o.target.AudioTarget() }
func (o *outputs) SecondaryTarget() patchwork.AudioReceiver { return o.target2.AudioTarget() }

// write mixes the signal into both targets.
func (o *outputs) write(signal []float32) {
	mixInto(o.target.AudioTarget(), signal)
	mixInto(o.target2.AudioTarget(), signal)
}

func mixInto(r patchwork.AudioReceiver, signal []float32) {
	if r == nil {
		return
	}
	dst := r.Buffer()
	n := min(len(dst), len(signal))
	vek32.Add_Inplace(dst[:n], signal[:n])
}

// loadFloat sets a control from the layout field of the same name.
func loadFloat(c *patchwork.FloatControl, desc patchwork.Descriptor) {
	if desc.Has(c.Name()) {
		c.SetValue(desc.Float(c.Name(), c.Value()))
	}
}

// saveFloat writes a control to the layout if it differs from its default.
func saveFloat(c *patchwork.FloatControl, def float64, desc patchwork.Descriptor) {
	if c.Value() != def {
		desc[c.Name()] = c.Value()
	}
}
