// Package cmd contains the parts shared by the commands.
package cmd

import (
	"flag"

	"github.com/vsariola/patchwork/rack"
)

// PrefFlags are the command line flags overriding the prefs.
type PrefFlags struct {
	sampleRate, bufferSize, ioBufferSize, outputChannels *int
	dataDir, midiInput                                   *string
}

func NewPrefFlags() *PrefFlags {
	return &PrefFlags{
		sampleRate:     flag.Int("samplerate", 0, "sample rate in Hz"),
		bufferSize:     flag.Int("buffersize", 0, "samples per processing chunk"),
		ioBufferSize:   flag.Int("iobuffersize", 0, "samples per hardware buffer, a multiple of the chunk size"),
		outputChannels: flag.Int("channels", 0, "number of output channels"),
		dataDir:        flag.String("datadir", "", "directory for layouts, states and recordings"),
		midiInput:      flag.String("midi-input", "", "connect MIDI input to matching device name prefix"),
	}
}

// Apply overrides the prefs with the flags given on the command line.
func (f *PrefFlags) Apply(p *rack.Prefs) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "samplerate":
			p.SampleRate = *f.sampleRate
		case "buffersize":
			p.BufferSize = *f.bufferSize
		case "iobuffersize":
			p.IOBufferSize = *f.ioBufferSize
		case "channels":
			p.OutputChannels = *f.outputChannels
		case "datadir":
			p.DataDir = *f.dataDir
		case "midi-input":
			p.MidiInput = *f.midiInput
		}
	})
}
