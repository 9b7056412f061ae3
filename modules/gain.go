package modules

import (
	"github.com/viterin/vek/vek32"

	"github.com/vsariola/patchwork"
)

// Gain scales its input and writes it to its targets.
type Gain struct {
	patchwork.ModuleBase
	outputs
	buffer
	gain *patchwork.FloatControl
	tmp  []float32
}

func NewGain(s *patchwork.Session) patchwork.Module {
	m := &Gain{buffer: newBuffer(s), tmp: make([]float32, s.BufferSize)}
	m.Bind(m, "gain")
	return m
}

func (m *Gain) CreateControls() {
	m.outputs.create(&m.ModuleBase)
	m.gain = m.AddFloatControl(patchwork.NewFloatControl("gain", 1, 0, 4))
}

func (m *Gain) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	loadFloat(m.gain, desc)
	return nil
}

func (m *Gain) SaveLayout(desc patchwork.Descriptor) { saveFloat(m.gain, 1, desc) }

func (m *Gain) Process(time float64) {
	vek32.MulNumber_Into(m.tmp, m.buf, float32(m.gain.Value()))
	m.write(m.tmp)
}
