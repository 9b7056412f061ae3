package modules

import (
	"github.com/vsariola/patchwork"
)

// ClockSync follows an analog clock on a hardware input. The left channel
// carries the clock pulses, the tempo is measured from the distance of
// consecutive rising edges. A rising edge on the right channel restarts
// the measure.
type ClockSync struct {
	patchwork.ModuleBase
	session *patchwork.Session

	left, right int
	threshold   *patchwork.FloatControl
	pulses      *patchwork.FloatControl // pulses per beat

	highL, highR bool
	sinceEdge    int // samples since the last rising edge, -1 before the first
}

func NewClockSync(s *patchwork.Session) patchwork.Module {
	m := &ClockSync{session: s, left: 1, right: 2, sinceEdge: -1}
	m.Bind(m, "clocksync")
	return m
}

func (m *ClockSync) CreateControls() {
	m.threshold = m.AddFloatControl(patchwork.NewFloatControl("threshold", 0.5, 0.01, 1))
	m.pulses = m.AddFloatControl(patchwork.NewFloatControl("pulses", 4, 1, 96))
}

func (m *ClockSync) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	m.left = desc.Int("left", 1)
	m.right = desc.Int("right", 2)
	loadFloat(m.threshold, desc)
	loadFloat(m.pulses, desc)
	return nil
}

func (m *ClockSync) SaveLayout(desc patchwork.Descriptor) {
	if m.left != 1 {
		desc["left"] = m.left
	}
	if m.right != 2 {
		desc["right"] = m.right
	}
	saveFloat(m.threshold, 0.5, desc)
	saveFloat(m.pulses, 4, desc)
}

func (m *ClockSync) SyncChannels() (left, right int) { return m.left, m.right }

func (m *ClockSync) SetSyncInput(left, right []float32) {
	th := float32(m.threshold.Value())
	for i, v := range left {
		high := v >= th
		if m.sinceEdge >= 0 {
			m.sinceEdge++
		}
		if high && !m.highL {
			if m.sinceEdge > 0 {
				beatSeconds := float64(m.sinceEdge) * m.pulses.Value() / float64(m.session.SampleRate)
				m.session.Transport.SetTempo(60 / beatSeconds)
			}
			m.sinceEdge = 0
		}
		m.highL = high
		if i < len(right) {
			high := right[i] >= th
			if high && !m.highR {
				m.session.Transport.Reset()
			}
			m.highR = high
		}
	}
}
