package modules

import (
	"fmt"
	"math"

	"github.com/vsariola/patchwork"
)

type (
	// Source is an oscillator. It drones at its frequency until it gets a
	// note, after which it plays the pitch of the last note held.
	Source struct {
		patchwork.ModuleBase
		outputs
		session *patchwork.Session

		freq   *patchwork.FloatControl
		volume *patchwork.FloatControl
		wave   Waveform

		phase float64
		pitch int     // pitch of the held note, -1 when drone
		level float64 // velocity scaling
		tmp   []float32
	}

	Waveform int
)

const (
	Sine Waveform = iota
	Square
	Saw
)

const (
	defaultFreq   = 220
	defaultVolume = 0.5
)

var waveNames = []string{"sine", "square", "saw"}

func (w Waveform) String() string {
	if int(w) < len(waveNames) {
		return waveNames[w]
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

func ParseWaveform(s string) (Waveform, error) {
	for i, n := range waveNames {
		if n == s {
			return Waveform(i), nil
		}
	}
	return Sine, fmt.Errorf("unknown waveform %q", s)
}

func NewSource(s *patchwork.Session) patchwork.Module {
	m := &Source{session: s, pitch: -1, level: 1, tmp: make([]float32, s.BufferSize)}
	m.Bind(m, "source")
	return m
}

func (m *Source) CreateControls() {
	m.outputs.create(&m.ModuleBase)
	m.freq = m.AddFloatControl(patchwork.NewFloatControl("freq", defaultFreq, 1, 20000))
	m.volume = m.AddFloatControl(patchwork.NewFloatControl("volume", defaultVolume, 0, 1))
}

func (m *Source) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	loadFloat(m.freq, desc)
	loadFloat(m.volume, desc)
	if desc.Has("wave") {
		w, err := ParseWaveform(desc.String("wave"))
		if err != nil {
			return fmt.Errorf("%s: %w", m.Name(), err)
		}
		m.wave = w
	}
	return nil
}

func (m *Source) SaveLayout(desc patchwork.Descriptor) {
	saveFloat(m.freq, defaultFreq, desc)
	saveFloat(m.volume, defaultVolume, desc)
	if m.wave != Sine {
		desc["wave"] = m.wave.String()
	}
}

func (m *Source) Waveform() Waveform { return m.wave }

// PlayNote sets the pitch of the oscillator. Releasing the held note
// silences it.
func (m *Source) PlayNote(time float64, pitch, velocity int) {
	if velocity == 0 {
		if pitch == m.pitch {
			m.level = 0
		}
		return
	}
	m.pitch = pitch
	m.level = float64(velocity) / 127
	m.freq.SetValue(440 * math.Pow(2, float64(pitch-69)/12))
}

func (m *Source) Process(time float64) {
	step := m.freq.Value() / float64(m.session.SampleRate)
	amp := m.volume.Value() * m.level
	for i := range m.tmp {
		var v float64
		switch m.wave {
		case Square:
			v = 1
			if m.phase >= 0.5 {
				v = -1
			}
		case Saw:
			v = 2*m.phase - 1
		default:
			v = math.Sin(2 * math.Pi * m.phase)
		}
		m.tmp[i] = float32(v * amp)
		m.phase += step
		m.phase -= math.Floor(m.phase)
	}
	m.write(m.tmp)
}

func (m *Source) SaveState(w *patchwork.StateWriter) {
	m.ModuleBase.SaveState(w)
	w.WriteInt(int(m.wave))
	w.WriteFloat(m.phase)
	w.WriteInt(m.pitch)
	w.WriteFloat(m.level)
}

func (m *Source) LoadState(r *patchwork.StateReader) error {
	if err := m.ModuleBase.LoadState(r); err != nil {
		return err
	}
	wave, err := r.ReadInt()
	if err != nil {
		return err
	}
	if wave < 0 || wave >= len(waveNames) {
		return fmt.Errorf("%w: waveform %d", patchwork.ErrStateDesync, wave)
	}
	phase, err := r.ReadFloat()
	if err != nil {
		return err
	}
	pitch, err := r.ReadInt()
	if err != nil {
		return err
	}
	level, err := r.ReadFloat()
	if err != nil {
		return err
	}
	m.wave, m.phase, m.pitch, m.level = Waveform(wave), phase, pitch, level
	return nil
}
