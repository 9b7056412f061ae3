package modules

import (
	"errors"
	"fmt"

	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/effects"
)

type (
	// Chain runs its input through a list of effects. The effects are
	// child modules, so their controls are addressed as
	// "chain~effect~control".
	Chain struct {
		patchwork.ModuleBase
		outputs
		buffer
		session *patchwork.Session
		effects *effects.Registry
		tmp     []float32
	}

	// Effect is a child module of a chain wrapping one effect.
	Effect struct {
		patchwork.ModuleBase
		fx       effects.Effect
		defaults []float64
	}
)

func NewChain(s *patchwork.Session) patchwork.Module {
	m := &Chain{buffer: newBuffer(s), session: s, effects: effects.Default(), tmp: make([]float32, s.BufferSize)}
	m.Bind(m, "chain")
	return m
}

func (m *Chain) CreateControls() { m.outputs.create(&m.ModuleBase) }

func (m *Chain) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	m.ClearChildren()
	var errs []error
	for _, d := range desc.List("effects") {
		if err := m.AddEffect(d.Type(), d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// AddEffect appends an effect to the chain. The control values are read
// from desc, which may be nil.
func (m *Chain) AddEffect(typeName string, desc patchwork.Descriptor) error {
	fx, err := m.effects.New(typeName, m.session.SampleRate)
	if err != nil {
		return err
	}
	e := &Effect{fx: fx}
	e.Bind(e, typeName)
	name := desc.Name()
	if name == "" || m.hasChild(name) {
		name = m.childName(typeName)
	}
	e.SetName(name)
	for _, c := range fx.Controls() {
		e.defaults = append(e.defaults, c.Value())
		loadFloat(c, desc)
		e.AddControl(c)
	}
	m.AddChild(e)
	return nil
}

func (m *Chain) hasChild(name string) bool {
	_, err := m.FindChild(name)
	return err == nil
}

func (m *Chain) childName(typeName string) string {
	if !m.hasChild(typeName) {
		return typeName
	}
	for i := 2; ; i++ {
		if n := fmt.Sprintf("%s%d", typeName, i); !m.hasChild(n) {
			return n
		}
	}
}

func (m *Chain) SaveLayout(desc patchwork.Descriptor) {
	if len(m.Children()) == 0 {
		return
	}
	list := make([]any, 0, len(m.Children()))
	for _, c := range m.Children() {
		e := c.(*Effect)
		d := map[string]any{"type": e.Type()}
		if e.Name() != e.Type() {
			d["name"] = e.Name()
		}
		for i, ctrl := range e.fx.Controls() {
			saveFloat(ctrl, e.defaults[i], d)
		}
		list = append(list, d)
	}
	desc["effects"] = list
}

func (m *Chain) Process(time float64) {
	copy(m.tmp, m.buf)
	for _, c := range m.Children() {
		if e := c.(*Effect); e.Enabled() {
			e.fx.Process(m.tmp)
		}
	}
	m.write(m.tmp)
}

func (m *Chain) SaveState(w *patchwork.StateWriter) {
	m.ModuleBase.SaveState(w)
	w.WriteInt(len(m.Children()))
	for _, c := range m.Children() {
		w.WriteString(c.Name())
		c.Base().SaveState(w)
	}
}

// LoadState restores the controls of the effects by name; the values of
// effects no longer in the chain are skipped.
func (m *Chain) LoadState(r *patchwork.StateReader) error {
	if err := m.ModuleBase.LoadState(r); err != nil {
		return err
	}
	n, err := r.ReadInt()
	if err != nil {
		return err
	}
	if n < 0 || n > maxChainEffects {
		return fmt.Errorf("%w: %d effects in %q", patchwork.ErrStateDesync, n, m.Name())
	}
	for i := 0; i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		target := &patchwork.ModuleBase{}
		if c, err := m.FindChild(name); err == nil {
			target = c.Base()
		}
		if err := target.LoadState(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Chain) Exit() {
	for _, c := range m.Children() {
		c.(*Effect).fx.Reset()
	}
}

const maxChainEffects = 256
