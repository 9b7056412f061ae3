package modules

import (
	"github.com/vsariola/patchwork"
)

type (
	// Input receives a hardware input channel and writes it to its
	// targets.
	Input struct {
		patchwork.ModuleBase
		outputs
		buffer
		session *patchwork.Session
	}

	// Output sends its input to a hardware output channel.
	Output struct {
		patchwork.ModuleBase
		buffer
		session *patchwork.Session
	}
)

func NewInput(s *patchwork.Session) patchwork.Module {
	m := &Input{buffer: newBuffer(s), session: s}
	m.Bind(m, "input")
	return m
}

func (m *Input) CreateControls() { m.outputs.create(&m.ModuleBase) }

func (m *Input) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	if ch := desc.Int("channel", 0); ch != 0 && m.session.Channels != nil {
		return m.session.Channels.AssignInput(ch, m)
	}
	return nil
}

func (m *Input) SaveLayout(desc patchwork.Descriptor) {
	if m.session.Channels != nil {
		if ch := m.session.Channels.InputOf(m); ch != 0 {
			desc["channel"] = ch
		}
	}
}

func (m *Input) Process(time float64) { m.write(m.buf) }

func NewOutput(s *patchwork.Session) patchwork.Module {
	m := &Output{buffer: newBuffer(s), session: s}
	m.Bind(m, "output")
	return m
}

func (m *Output) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	if ch := desc.Int("channel", 0); ch != 0 && m.session.Channels != nil {
		return m.session.Channels.AssignOutput(ch, m)
	}
	return nil
}

func (m *Output) SaveLayout(desc patchwork.Descriptor) {
	if m.session.Channels != nil {
		if ch := m.session.Channels.OutputOf(m); ch != 0 {
			desc["channel"] = ch
		}
	}
}
