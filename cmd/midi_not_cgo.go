//go:build !cgo

package cmd

import (
	"github.com/vsariola/patchwork"
)

func NewMidiContext(events chan<- patchwork.MidiMessage) patchwork.MidiContext {
	// with no cgo, we cannot use MIDI, so return a null context
	return patchwork.NullMidiContext{}
}
