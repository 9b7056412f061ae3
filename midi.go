package patchwork

import "fmt"

type (
	MidiKind int

	// MidiMessage is a channel voice message from an input device. Channels
	// are 0-based as on the wire.
	MidiMessage struct {
		Kind    MidiKind
		Channel int
		Data1   int // key or controller number
		Data2   int // velocity or controller value
	}

	// MidiContext enumerates the MIDI input devices of a backend.
	MidiContext interface {
		Inputs(yield func(input MidiInput) bool)
		Close()
		Support() MidiSupport
	}

	MidiInput interface {
		Open() error
		Close() error
		IsOpen() bool
		String() string
	}

	MidiSupport int
)

const (
	MidiNoteOn MidiKind = iota
	MidiNoteOff
	MidiControlChange
)

const (
	MidiSupportNotCompiled MidiSupport = iota
	MidiSupportNoDriver
	MidiSupported
)

func (k MidiKind) String() string {
	switch k {
	case MidiNoteOn:
		return "noteon"
	case MidiNoteOff:
		return "noteoff"
	case MidiControlChange:
		return "cc"
	}
	return fmt.Sprintf("MidiKind(%d)", int(k))
}

func (m MidiMessage) String() string {
	return fmt.Sprintf("%v ch%d %d %d", m.Kind, m.Channel+1, m.Data1, m.Data2)
}

// NullMidiContext is used when the binary was built without MIDI support.
type NullMidiContext struct{}

func (NullMidiContext) Inputs(yield func(input MidiInput) bool) {}
func (NullMidiContext) Close()                                  {}
func (NullMidiContext) Support() MidiSupport                    { return MidiSupportNotCompiled }
