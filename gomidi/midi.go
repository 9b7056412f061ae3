// Package gomidi reads MIDI input devices through the rtmidi driver.
package gomidi

import (
	"errors"
	"fmt"
	"sync/atomic"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/vsariola/patchwork"
)

type (
	RTMIDIContext struct {
		driver             *rtmididrv.Driver
		currentIn          drivers.In
		stop               func()
		inputDevices       []RTMIDIDevice
		devicesInitialized bool
		events             chan<- patchwork.MidiMessage
		dropped            atomic.Int64
	}

	RTMIDIDevice struct {
		context *RTMIDIContext
		in      drivers.In
	}
)

// NewContext opens the driver. The messages of the opened input are sent to
// events without blocking; messages that do not fit are dropped.
func NewContext(events chan<- patchwork.MidiMessage) *RTMIDIContext {
	m := RTMIDIContext{events: events}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

func (m *RTMIDIContext) Support() patchwork.MidiSupport {
	if m.driver == nil {
		return patchwork.MidiSupportNoDriver
	}
	return patchwork.MidiSupported
}

func (m *RTMIDIContext) Inputs(yield func(patchwork.MidiInput) bool) {
	if !m.devicesInitialized {
		m.initInputDevices()
	}
	for _, device := range m.inputDevices {
		if !yield(device) {
			break
		}
	}
}

func (m *RTMIDIContext) initInputDevices() {
	if m.driver == nil {
		return
	}
	ins, err := m.driver.Ins()
	if err != nil {
		return
	}
	for _, in := range ins {
		m.inputDevices = append(m.inputDevices, RTMIDIDevice{context: m, in: in})
	}
	m.devicesInitialized = true
}

// Open the input device while closing the currently open if necessary.
func (d RTMIDIDevice) Open() error {
	c := d.context
	if c.currentIn == d.in && d.in.IsOpen() {
		return nil
	}
	if c.driver == nil {
		return errors.New("no driver available")
	}
	c.closeCurrent()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, c.HandleMessage)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn, c.stop = d.in, stop
	return nil
}

func (d RTMIDIDevice) Close() error {
	if d.context.currentIn != d.in {
		return nil
	}
	d.context.closeCurrent()
	return nil
}

func (d RTMIDIDevice) IsOpen() bool   { return d.context.currentIn == d.in && d.in.IsOpen() }
func (d RTMIDIDevice) String() string { return d.in.String() }

func (c *RTMIDIContext) closeCurrent() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	c.closeCurrent()
	c.driver.Close()
}

// Dropped is the number of messages dropped because the queue was full.
func (c *RTMIDIContext) Dropped() int { return int(c.dropped.Load()) }

// HandleMessage is called by the driver for every incoming message.
func (c *RTMIDIContext) HandleMessage(msg midi.Message, timestampms int32) {
	m, ok := Convert(msg)
	if !ok {
		return
	}
	select {
	case c.events <- m: // if the channel is full, just drop the message
	default:
		c.dropped.Add(1)
	}
}

// Convert translates the channel voice messages that the engine
// understands. Note on with velocity zero is a note off.
func Convert(msg midi.Message) (patchwork.MidiMessage, bool) {
	var channel, key, velocity, controller, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		return patchwork.MidiMessage{Kind: patchwork.MidiNoteOn, Channel: int(channel), Data1: int(key), Data2: int(velocity)}, true
	case msg.GetNoteEnd(&channel, &key):
		return patchwork.MidiMessage{Kind: patchwork.MidiNoteOff, Channel: int(channel), Data1: int(key)}, true
	case msg.GetControlChange(&channel, &controller, &value):
		return patchwork.MidiMessage{Kind: patchwork.MidiControlChange, Channel: int(channel), Data1: int(controller), Data2: int(value)}, true
	}
	return patchwork.MidiMessage{}, false
}
