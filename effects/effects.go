// Package effects contains the in-place block effects used as global post
// effects by the engine and as the links of chain modules.
package effects

import (
	"fmt"
	"sort"

	"github.com/vsariola/patchwork"
)

type (
	// Effect processes one mono block of audio in place. Effects are not
	// safe for concurrent use; the engine keeps one instance per channel.
	Effect interface {
		Name() string
		Process(buf []float32)
		Reset()
		Controls() []*patchwork.FloatControl
	}

	Constructor func(sampleRate int) (Effect, error)

	Registry struct {
		ctors map[string]Constructor
	}

	// params tracks the controls of an effect so that the underlying
	// processors are reconfigured only when a value changes.
	params struct {
		controls []*patchwork.FloatControl
		last     []float64
		accepted []float64
	}
)

func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

// Default returns a registry with all the built-in effects.
func Default() *Registry {
	r := NewRegistry()
	r.Register("gain", NewGain)
	r.Register("clip", NewClip)
	r.Register("reverb", NewReverb)
	r.Register("delay", NewDelay)
	return r
}

func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[name] = ctor
}

func (r *Registry) New(name string, sampleRate int) (Effect, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("unknown effect %q", name)
	}
	return ctor(sampleRate)
}

func (r *Registry) Names() []string {
	ret := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func (p *params) add(name string, value, min, max float64) *patchwork.FloatControl {
	c := patchwork.NewFloatControl(name, value, min, max)
	p.controls = append(p.controls, c)
	p.last = append(p.last, c.Value())
	p.accepted = append(p.accepted, c.Value())
	return c
}

func (p *params) Controls() []*patchwork.FloatControl { return p.controls }

// changed reports whether any control has changed since the last call.
func (p *params) changed() bool {
	ret := false
	for i, c := range p.controls {
		if v := c.Value(); v != p.last[i] {
			p.last[i] = v
			ret = true
		}
	}
	return ret
}

// apply reconfigures the processor with configure if any control has
// changed. If the processor rejects a value, the controls are set back to
// the values it last accepted and those are configured again. Reports
// whether the new values were accepted.
func (p *params) apply(configure func() error) bool {
	if !p.changed() {
		return true
	}
	if err := configure(); err != nil {
		for i, c := range p.controls {
			c.SetValue(p.accepted[i])
			p.last[i] = c.Value()
		}
		configure()
		return false
	}
	copy(p.accepted, p.last)
	return true
}

func toFloat64(dst []float64, src []float32) []float64 {
	if cap(dst) < len(src) {
		dst = make([]float64, len(src))
	}
	dst = dst[:len(src)]
	for i, v := range src {
		dst[i] = float64(v)
	}
	return dst
}

func fromFloat64(dst []float32, src []float64) {
	for i, v := range src {
		dst[i] = float32(v)
	}
}
