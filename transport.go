package patchwork

import "math"

// Transport is the session clock. It provides the elapsed musical time to
// the modules and notifies the audio pollers every time it advances. It is a
// singleton module: layouts may configure it, but graph resets never
// destroy it.
type Transport struct {
	ModuleBase
	session *Session

	tempo      *FloatControl
	timeSigTop int
	timeSigBot int

	measure int
	pos     float64 // position within the current measure, 0..1

	pollers []AudioPoller
}

const DefaultTempo = 120

func NewTransport(s *Session) *Transport {
	t := &Transport{session: s, timeSigTop: 4, timeSigBot: 4}
	t.Bind(t, "transport")
	t.SetName("transport")
	t.SetSingleton(true)
	t.tempo = t.AddFloatControl(NewFloatControl("tempo", DefaultTempo, 20, 999))
	return t
}

func (t *Transport) Tempo() float64 { return t.tempo.Value() }

func (t *Transport) SetTempo(bpm float64) {
	if bpm > 0 {
		t.tempo.SetValue(bpm)
	}
}

func (t *Transport) TimeSignature() (top, bottom int) { return t.timeSigTop, t.timeSigBot }

// MsPerMeasure is the length of a measure in milliseconds at the current
// tempo.
func (t *Transport) MsPerMeasure() float64 {
	beats := float64(t.timeSigTop) * 4 / float64(t.timeSigBot)
	return 60000 / t.tempo.Value() * beats
}

// Measure returns the current measure and the position inside it.
func (t *Transport) Measure() (measure int, pos float64) { return t.measure, t.pos }

// MeasurePos returns the position within the measure of the sample at
// offset samples from the start of the current chunk.
func (t *Transport) MeasurePos(offset int) float64 {
	ms := float64(offset) * 1000 / float64(t.session.SampleRate)
	p := t.pos + ms/t.MsPerMeasure()
	return p - math.Floor(p)
}

// Advance moves the clock forward and notifies the pollers. Called by the
// audio engine once per processing chunk.
func (t *Transport) Advance(ms float64) {
	t.pos += ms / t.MsPerMeasure()
	for t.pos >= 1 {
		t.pos -= 1
		t.measure++
	}
	for _, p := range t.pollers {
		p.OnTransportAdvanced(ms)
	}
}

func (t *Transport) Reset() {
	t.measure = 0
	t.pos = 0
}

func (t *Transport) AddAudioPoller(p AudioPoller) {
	for _, e := range t.pollers {
		if e == p {
			return
		}
	}
	t.pollers = append(t.pollers, p)
}

func (t *Transport) RemoveAudioPoller(p AudioPoller) {
	for i, e := range t.pollers {
		if e == p {
			t.pollers = append(t.pollers[:i:i], t.pollers[i+1:]...)
			return
		}
	}
}

func (t *Transport) LoadLayout(setup Setup, desc Descriptor) error {
	t.SetTempo(desc.Float("tempo", DefaultTempo))
	t.timeSigTop, t.timeSigBot = 4, 4
	if sig := desc.Floats("timesig"); len(sig) == 2 && sig[0] > 0 && sig[1] > 0 {
		t.timeSigTop, t.timeSigBot = int(sig[0]), int(sig[1])
	}
	return nil
}

func (t *Transport) SaveLayout(desc Descriptor) {
	if t.Tempo() != DefaultTempo {
		desc["tempo"] = t.Tempo()
	}
	if t.timeSigTop != 4 || t.timeSigBot != 4 {
		desc["timesig"] = []any{t.timeSigTop, t.timeSigBot}
	}
}

func (t *Transport) SaveState(w *StateWriter) {
	t.ModuleBase.SaveState(w)
	w.WriteInt(t.measure)
	w.WriteFloat(t.pos)
}

func (t *Transport) LoadState(r *StateReader) error {
	if err := t.ModuleBase.LoadState(r); err != nil {
		return err
	}
	m, err := r.ReadInt()
	if err != nil {
		return err
	}
	p, err := r.ReadFloat()
	if err != nil {
		return err
	}
	t.measure, t.pos = m, p
	return nil
}
