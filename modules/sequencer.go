package modules

import (
	"fmt"

	"github.com/vsariola/patchwork"
)

// Sequencer steps through a list of scale degrees, playing one note per
// interval. The interval is given in measures.
type Sequencer struct {
	patchwork.ModuleBase
	session *patchwork.Session

	out      *patchwork.CableSource
	interval *patchwork.FloatControl
	notes    []int

	step     int
	elapsed  float64 // ms since the last step
	time     float64
	playing  int // pitch of the sounding note, -1 if none
	velocity int
}

const (
	defaultInterval   = 0.25
	sequencerOctave   = 4
	sequencerVelocity = 100
	maxSequencerNotes = 1024
)

func NewSequencer(s *patchwork.Session) patchwork.Module {
	m := &Sequencer{session: s, playing: -1, velocity: sequencerVelocity}
	m.Bind(m, "sequencer")
	return m
}

func (m *Sequencer) CreateControls() {
	m.out = m.AddCableSource("target", patchwork.NoteCable, true)
	m.interval = m.AddFloatControl(patchwork.NewFloatControl("interval", defaultInterval, 1.0/64, 4))
}

func (m *Sequencer) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	loadFloat(m.interval, desc)
	m.notes = m.notes[:0]
	for _, n := range desc.Floats("notes") {
		m.notes = append(m.notes, int(n))
	}
	return nil
}

func (m *Sequencer) SaveLayout(desc patchwork.Descriptor) {
	saveFloat(m.interval, defaultInterval, desc)
	if len(m.notes) > 0 {
		notes := make([]any, len(m.notes))
		for i, n := range m.notes {
			notes[i] = n
		}
		desc["notes"] = notes
	}
}

func (m *Sequencer) Notes() []int { return m.notes }

func (m *Sequencer) OnTransportAdvanced(ms float64) {
	m.time += ms
	if len(m.notes) == 0 {
		return
	}
	stepMs := m.interval.Value() * m.session.Transport.MsPerMeasure()
	m.elapsed += ms
	for m.elapsed >= stepMs {
		m.elapsed -= stepMs
		m.trigger()
	}
}

func (m *Sequencer) trigger() {
	m.release()
	pitch := m.session.Scale.Degree(m.notes[m.step%len(m.notes)], sequencerOctave)
	m.step = (m.step + 1) % len(m.notes)
	m.playing = pitch
	for r := range m.out.NoteTargets {
		r.PlayNote(m.time, pitch, m.velocity)
	}
}

func (m *Sequencer) release() {
	if m.playing < 0 {
		return
	}
	for r := range m.out.NoteTargets {
		r.PlayNote(m.time, m.playing, 0)
	}
	m.playing = -1
}

func (m *Sequencer) Exit() { m.release() }

func (m *Sequencer) SaveState(w *patchwork.StateWriter) {
	m.ModuleBase.SaveState(w)
	w.WriteInt(m.step)
	w.WriteFloat(m.elapsed)
}

func (m *Sequencer) LoadState(r *patchwork.StateReader) error {
	if err := m.ModuleBase.LoadState(r); err != nil {
		return err
	}
	step, err := r.ReadInt()
	if err != nil {
		return err
	}
	if step < 0 || step > maxSequencerNotes {
		return fmt.Errorf("%w: step %d", patchwork.ErrStateDesync, step)
	}
	elapsed, err := r.ReadFloat()
	if err != nil {
		return err
	}
	m.step, m.elapsed = step, elapsed
	return nil
}
