package rack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vsariola/patchwork"
)

// MidiChannel is where the MIDI drivers send the messages of the input
// devices. The messages are routed to the MIDI controllers at the next Poll.
func (r *Rack) MidiChannel() chan<- patchwork.MidiMessage { return r.midi }

// SendMidi queues a message without blocking. Reports false if the queue
// is full and the message was dropped.
func (r *Rack) SendMidi(msg patchwork.MidiMessage) bool { return TrySend(r.midi, msg) }

func (r *Rack) drainMidiLocked() {
	var ctrls []patchwork.MidiController
	for {
		select {
		case msg := <-r.midi:
			if ctrls == nil {
				ctrls = r.graph.MidiControllers()
			}
			for _, c := range ctrls {
				c.OnMidi(msg)
			}
		default:
			return
		}
	}
}

const midiAlert = "midi"

// OpenMidiInput opens the first input of the context whose name starts
// with prefix. An empty prefix opens the first input.
func (r *Rack) OpenMidiInput(ctx patchwork.MidiContext, prefix string) error {
	switch ctx.Support() {
	case patchwork.MidiSupportNotCompiled:
		return errors.New("MIDI support not compiled in")
	case patchwork.MidiSupportNoDriver:
		return errors.New("no MIDI driver available")
	}
	for in := range ctx.Inputs {
		if !strings.HasPrefix(in.String(), prefix) {
			continue
		}
		if err := in.Open(); err != nil {
			r.alerts.AddNamed(midiAlert, fmt.Sprintf("could not open MIDI input %q: %v", in.String(), err), Error)
			return err
		}
		r.alerts.ClearNamed(midiAlert)
		r.alerts.Event("opened MIDI input " + in.String())
		return nil
	}
	err := fmt.Errorf("could not find a MIDI input starting with %q", prefix)
	r.alerts.AddNamed(midiAlert, err.Error(), Error)
	return err
}
