package modules

import (
	"errors"

	"github.com/vsariola/patchwork"
)

// Sink is an audio receiver that does nothing with its input. Its layout
// entry names the sources feeding it.
type Sink struct {
	patchwork.ModuleBase
	buffer
}

func NewSink(s *patchwork.Session) patchwork.Module {
	m := &Sink{buffer: newBuffer(s)}
	m.Bind(m, "sink")
	return m
}

func (m *Sink) LoadLayout(setup patchwork.Setup, desc patchwork.Descriptor) error {
	return connectInbound(setup, desc, m)
}

// connectInbound connects the "target" outputs of the sources named in the
// "target" field to self.
func connectInbound(setup patchwork.Setup, desc patchwork.Descriptor, self patchwork.Module) error {
	var errs []error
	for _, name := range desc.Strings("target") {
		if err := setup.ConnectFrom(name, "target", self); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
