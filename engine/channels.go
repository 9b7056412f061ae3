package engine

import (
	"fmt"

	"github.com/vsariola/patchwork"
)

// AssignInput gives the 1-based input channel to the module. The previous
// owner of the channel loses it, and the module loses any other input
// channel it had.
func (e *Engine) AssignInput(channel int, m patchwork.AudioReceiver) error {
	return assign(&e.inputs, channel, m)
}

func (e *Engine) AssignOutput(channel int, m patchwork.AudioReceiver) error {
	return assign(&e.outputs, channel, m)
}

func assign(table *[MaxChannels]patchwork.AudioReceiver, channel int, m patchwork.AudioReceiver) error {
	if channel < 1 || channel > MaxChannels {
		return fmt.Errorf("%w: %d", patchwork.ErrChannelRange, channel)
	}
	release(table, m)
	table[channel-1] = m
	return nil
}

func release(table *[MaxChannels]patchwork.AudioReceiver, m patchwork.Module) {
	for i, o := range table {
		if o != nil && patchwork.Module(o) == m {
			table[i] = nil
		}
	}
}

func channelOf(table *[MaxChannels]patchwork.AudioReceiver, m patchwork.Module) int {
	for i, o := range table {
		if o != nil && patchwork.Module(o) == m {
			return i + 1
		}
	}
	return 0
}

// InputOf returns the input channel of the module, or 0 if it has none.
func (e *Engine) InputOf(m patchwork.Module) int  { return channelOf(&e.inputs, m) }
func (e *Engine) OutputOf(m patchwork.Module) int { return channelOf(&e.outputs, m) }

// Release removes the module from both channel tables.
func (e *Engine) Release(m patchwork.Module) {
	release(&e.inputs, m)
	release(&e.outputs, m)
}

// InputOwner returns the module owning the 1-based input channel.
func (e *Engine) InputOwner(channel int) patchwork.AudioReceiver {
	if channel < 1 || channel > MaxChannels {
		return nil
	}
	return e.inputs[channel-1]
}

func (e *Engine) OutputOwner(channel int) patchwork.AudioReceiver {
	if channel < 1 || channel > MaxChannels {
		return nil
	}
	return e.outputs[channel-1]
}
