package modules

import (
	"math"

	"github.com/vsariola/patchwork"
)

// LFO modulates a control of another module with a sine wave. Depth and
// center are relative to the range of the control.
type LFO struct {
	patchwork.ModuleBase

	rate, depth, center *patchwork.FloatControl

	path    string
	control patchwork.Control
	phase   float64
}

func NewLFO(s *patchwork.Session) patchwork.Module {
	m := &LFO{}
	m.Bind(m, "lfo")
	return m
}

func (m *LFO) CreateControls() {
	m.rate = m.AddFloatControl(patchwork.NewFloatControl("rate", 1, 0.01, 20))
	m.depth = m.AddFloatControl(patchwork.NewFloatControl("depth", 0.5, 0, 1))
	m.center = m.AddFloatControl(patchwork.NewFloatControl("center", 0.5, 0, 1))
}

func (m *LFO) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	loadFloat(m.rate, desc)
	loadFloat(m.depth, desc)
	loadFloat(m.center, desc)
	m.path = desc.String("control")
	m.control = nil
	if m.path == "" {
		return nil
	}
	c, err := setup.FindControl(m.path)
	if err != nil {
		return err
	}
	m.control = c
	return nil
}

func (m *LFO) SaveLayout(desc patchwork.Descriptor) {
	saveFloat(m.rate, 1, desc)
	saveFloat(m.depth, 0.5, desc)
	saveFloat(m.center, 0.5, desc)
	if m.path != "" {
		desc["control"] = m.path
	}
}

func (m *LFO) Control() patchwork.Control { return m.control }

func (m *LFO) OnTransportAdvanced(ms float64) {
	m.phase += m.rate.Value() * ms / 1000
	m.phase -= math.Floor(m.phase)
	if m.control == nil {
		return
	}
	v := m.center.Value() + m.depth.Value()*0.5*math.Sin(2*math.Pi*m.phase)
	m.control.SetNormalized(min(max(v, 0), 1))
}

// UnbindControls forgets the modulated control if it belongs to the
// removed module, so that the path is not saved any more.
func (m *LFO) UnbindControls(removed patchwork.Module) {
	if m.control != nil && patchwork.OwnsControl(removed, m.control) {
		m.control, m.path = nil, ""
	}
}

func (m *LFO) SaveState(w *patchwork.StateWriter) {
	m.ModuleBase.SaveState(w)
	w.WriteFloat(m.phase)
}

func (m *LFO) LoadState(r *patchwork.StateReader) error {
	if err := m.ModuleBase.LoadState(r); err != nil {
		return err
	}
	p, err := r.ReadFloat()
	if err != nil {
		return err
	}
	m.phase = p - math.Floor(p)
	return nil
}
