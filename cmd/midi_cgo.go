//go:build cgo

package cmd

import (
	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/gomidi"
)

func NewMidiContext(events chan<- patchwork.MidiMessage) patchwork.MidiContext {
	return gomidi.NewContext(events)
}
