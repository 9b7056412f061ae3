package patchwork

type (
	// Module is a named, typed unit of processing or control in the graph.
	// Modules are created by a Registry from a type name and then configured
	// in three passes: LoadBasics + CreateControls when created, LoadLayout
	// once every module of a layout exists, and Init once every module has
	// been configured.
	//
	// Most modules embed a ModuleBase, which implements everything except
	// LoadLayout and SaveLayout, and then implement any of the capability
	// interfaces (AudioSource, AudioReceiver, NoteReceiver, MidiController,
	// AudioPoller, SyncInput).
	Module interface {
		Base() *ModuleBase
		Name() string
		SetName(name string)
		Type() string

		CreateControls()
		LoadBasics(desc Descriptor, typeName string)
		LoadLayout(setup Setup, desc Descriptor) error
		Init()
		SaveLayout(desc Descriptor)
		SaveState(w *StateWriter)
		LoadState(r *StateReader) error
		PostLoadState()
		Exit()
	}

	// AudioSource produces audio each processing chunk and writes it into
	// the buffers of its targets. The primary and secondary targets are used
	// to order the sources so that a source is processed after every source
	// feeding it.
	AudioSource interface {
		Module
		Process(time float64)
		PrimaryTarget() AudioReceiver
		SecondaryTarget() AudioReceiver
	}

	// AudioReceiver accepts audio written by a source.
	AudioReceiver interface {
		Module
		Buffer() []float32
		ClearBuffer()
	}

	// NoteReceiver accepts timed note events. Velocity 0 releases the note.
	NoteReceiver interface {
		Module
		PlayNote(time float64, pitch, velocity int)
	}

	// MidiController receives MIDI messages from the input devices.
	MidiController interface {
		Module
		OnMidi(msg MidiMessage)
	}

	// AudioPoller is notified every time the transport advances, in the
	// audio context.
	AudioPoller interface {
		Module
		OnTransportAdvanced(ms float64)
	}

	// SyncInput is an auxiliary input, e.g. an external clock, that gets the
	// raw hardware input of two channels before any source is processed.
	SyncInput interface {
		Module
		SyncChannels() (left, right int)
		SetSyncInput(left, right []float32)
	}

	// ControlBinder is implemented by modules holding controls of other
	// modules. UnbindControls is called when a module is removed and must
	// drop every binding to its controls.
	ControlBinder interface {
		Module
		UnbindControls(removed Module)
	}

	// Caps is the set of capabilities of a module, resolved once when the
	// module is added to the graph.
	Caps uint8
)

const (
	CapAudioSource Caps = 1 << iota
	CapAudioReceiver
	CapNoteReceiver
	CapMidiController
	CapAudioPoller
	CapSyncInput
)

// CapsOf checks the capability interfaces of a module. It should be called
// only when a module is added; afterwards the capabilities are a field
// check.
func CapsOf(m Module) Caps {
	var c Caps
	if _, ok := m.(AudioSource); ok {
		c |= CapAudioSource
	}
	if _, ok := m.(AudioReceiver); ok {
		c |= CapAudioReceiver
	}
	if _, ok := m.(NoteReceiver); ok {
		c |= CapNoteReceiver
	}
	if _, ok := m.(MidiController); ok {
		c |= CapMidiController
	}
	if _, ok := m.(AudioPoller); ok {
		c |= CapAudioPoller
	}
	if _, ok := m.(SyncInput); ok {
		c |= CapSyncInput
	}
	return c
}

func (c Caps) Has(o Caps) bool { return c&o == o }

func (c Caps) String() string {
	names := []string{"source", "receiver", "notes", "midi", "poller", "sync"}
	ret := ""
	for i, n := range names {
		if c&(1<<i) != 0 {
			if ret != "" {
				ret += ","
			}
			ret += n
		}
	}
	if ret == "" {
		return "-"
	}
	return ret
}

// Handle addresses a module in the graph arena. The zero Handle is never
// valid. When a module is removed, the generation of its slot is bumped so
// every outstanding Handle to it becomes stale.
type Handle struct {
	Index      uint32
	Generation uint32
}

func (h Handle) IsZero() bool { return h == Handle{} }
