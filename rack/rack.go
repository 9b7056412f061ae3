// Package rack is the control surface of the engine. It owns the session,
// the module graph and the audio engine, and implements every operation that
// changes them: loading and saving layouts and states, spawning, deleting
// and duplicating modules, and routing the MIDI input. Every public method
// holds the Guard for its whole duration.
package rack

import (
	"fmt"
	"slices"

	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/effects"
	"github.com/vsariola/patchwork/engine"
	"github.com/vsariola/patchwork/graph"
	"github.com/vsariola/patchwork/modules"
)

type Rack struct {
	guard   Guard
	alerts  *Alerts
	prefs   Prefs
	session *patchwork.Session
	graph   *graph.Graph
	engine  *engine.Engine
	effects *effects.Registry
	title   *modules.TitleBar

	midi    chan patchwork.MidiMessage
	pending []patchwork.Handle // modules waiting for deletion

	layoutPath string
	cursorX    float64
	cursorY    float64
}

const midiQueueSize = 1024

// New creates a rack with an empty graph. The post effect names of the
// prefs that are not known are reported as errors, the rest are used.
func New(prefs Prefs, registry *patchwork.Registry) (*Rack, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	r := &Rack{
		alerts:  &Alerts{},
		prefs:   prefs,
		effects: effects.Default(),
		midi:    make(chan patchwork.MidiMessage, midiQueueSize),
	}
	r.session = patchwork.NewSession(prefs.SampleRate, prefs.BufferSize, r.alerts)
	r.graph = graph.New(r.session, registry)
	e, err := engine.New(r.session, r.graph, &r.guard, engine.Options{
		SampleRate:       prefs.SampleRate,
		ChunkSize:        prefs.BufferSize,
		IOBufferSize:     prefs.IOBufferSize,
		OutputChannels:   prefs.OutputChannels,
		RecordingSeconds: prefs.RecordingSeconds,
	})
	if err != nil {
		return nil, err
	}
	r.engine = e
	r.session.Channels = e
	r.graph.OnRemove(func(h patchwork.Handle, m patchwork.Module) { e.Release(m) })
	r.title = modules.NewTitleBar()
	r.graph.AddStructural(r.title)
	if err := r.setPostEffectsLocked(prefs.PostEffects); err != nil {
		r.alerts.Error(err.Error())
	}
	return r, nil
}

func (r *Rack) Guard() *Guard               { return &r.guard }
func (r *Rack) Alerts() *Alerts             { return r.alerts }
func (r *Rack) Prefs() Prefs                { return r.prefs }
func (r *Rack) Session() *patchwork.Session { return r.session }
func (r *Rack) Engine() *engine.Engine      { return r.engine }

// Graph gives access to the module graph. The caller must hold the guard
// while using it.
func (r *Rack) Graph() *graph.Graph { return r.graph }

// ProcessOutput and ProcessInput are called by the audio backend.
func (r *Rack) ProcessOutput(out [][]float32) { r.engine.ProcessOutput(out) }
func (r *Rack) ProcessInput(in [][]float32)   { r.engine.ProcessInput(in) }

func (r *Rack) Title() string {
	r.guard.Lock("Title")
	defer r.guard.Unlock()
	return r.title.Title()
}

// ModuleNames returns the names of the modules that are neither singletons
// nor structural, in z-order.
func (r *Rack) ModuleNames() []string {
	r.guard.Lock("ModuleNames")
	defer r.guard.Unlock()
	var ret []string
	for _, m := range r.graph.Modules {
		if b := m.Base(); !b.IsSingleton() && !b.IsStructural() {
			ret = append(ret, m.Name())
		}
	}
	return ret
}

// SourceOrder returns the names of the audio sources in processing order.
func (r *Rack) SourceOrder() []string {
	r.guard.Lock("SourceOrder")
	defer r.guard.Unlock()
	return r.sourceOrderLocked()
}

func (r *Rack) sourceOrderLocked() []string {
	var ret []string
	for _, s := range r.graph.Order() {
		ret = append(ret, s.Name())
	}
	return ret
}

// Spawn creates a module of the given type at the cursor.
func (r *Rack) Spawn(typeName string, desc patchwork.Descriptor) (patchwork.Module, error) {
	r.guard.Lock("Spawn")
	defer r.guard.Unlock()
	if desc == nil {
		desc = patchwork.Descriptor{}
	}
	if _, _, ok := desc.Position(); !ok {
		desc.SetPosition(r.cursorX, r.cursorY)
	}
	_, m, err := r.graph.Spawn(typeName, desc)
	if err != nil {
		r.alerts.Error(err.Error())
	}
	return m, err
}

func (r *Rack) SetCursor(x, y float64) {
	r.guard.Lock("SetCursor")
	defer r.guard.Unlock()
	r.cursorX, r.cursorY = x, y
}

// Delete schedules the modules for deletion. They are removed at the next
// Poll, so that the handles of the current operation stay valid until then.
func (r *Rack) Delete(names ...string) error {
	r.guard.Lock("Delete")
	defer r.guard.Unlock()
	for _, name := range names {
		h, ok := r.graph.Find(name)
		if !ok {
			return fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, name)
		}
		if m, _ := r.graph.Module(h); m.Base().IsSingleton() || m.Base().IsStructural() {
			return fmt.Errorf("%w: %q", patchwork.ErrProtectedModule, name)
		}
		r.pending = append(r.pending, h)
	}
	return nil
}

func (r *Rack) deletePendingLocked() {
	for _, h := range r.pending {
		r.graph.Remove(h) // stale if scheduled twice
	}
	r.pending = r.pending[:0]
}

// Poll runs the deferred work of the control context: the scheduled
// deletions and the queued MIDI messages.
func (r *Rack) Poll() {
	r.guard.Lock("Poll")
	defer r.guard.Unlock()
	r.deletePendingLocked()
	r.drainMidiLocked()
}

// Connect connects an output of a module to another module. If output is
// empty, the first output that can reach the target is used.
func (r *Rack) Connect(srcName, output, dstName string) error {
	r.guard.Lock("Connect")
	defer r.guard.Unlock()
	src, err := r.graph.FindModule(srcName)
	if err != nil {
		return err
	}
	dst, ok := r.graph.Find(dstName)
	if !ok {
		return fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, dstName)
	}
	caps := r.graph.Caps(dst)
	for _, cs := range src.Base().CableSources() {
		if (output == "" && caps.Has(cs.Kind.Required())) || cs.Key == output {
			if cables := cs.Cables(); !cs.Multi && len(cables) > 0 {
				return r.graph.Retarget(cables[0], dst)
			}
			_, err := r.graph.Connect(cs, dst)
			return err
		}
	}
	if output == "" {
		return fmt.Errorf("%w: %q has no output that can reach %q", patchwork.ErrWrongCapability, srcName, dstName)
	}
	return fmt.Errorf("%w: %q has no output %q", patchwork.ErrUnknownControl, srcName, output)
}

// Disconnect removes the cables of an output of a module, or of all its
// outputs if output is empty.
func (r *Rack) Disconnect(srcName, output string) error {
	r.guard.Lock("Disconnect")
	defer r.guard.Unlock()
	src, err := r.graph.FindModule(srcName)
	if err != nil {
		return err
	}
	found := output == ""
	for _, cs := range src.Base().CableSources() {
		if output != "" && cs.Key != output {
			continue
		}
		found = true
		for _, c := range slices.Clone(cs.Cables()) {
			r.graph.Disconnect(c)
		}
	}
	if !found {
		return fmt.Errorf("%w: %q has no output %q", patchwork.ErrUnknownControl, srcName, output)
	}
	return nil
}

// MoveToFront moves the module to the end of the z-order.
func (r *Rack) MoveToFront(name string) error {
	r.guard.Lock("MoveToFront")
	defer r.guard.Unlock()
	h, ok := r.graph.Find(name)
	if !ok {
		return fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, name)
	}
	return r.graph.MoveToFront(h)
}

// SetControl sets the value of the control at path, e.g. "osc1~freq".
func (r *Rack) SetControl(path string, value float64) error {
	r.guard.Lock("SetControl")
	defer r.guard.Unlock()
	c, err := r.graph.FindControl(path)
	if err != nil {
		return err
	}
	c.SetValue(value)
	return nil
}

func (r *Rack) Control(path string) (float64, error) {
	r.guard.Lock("Control")
	defer r.guard.Unlock()
	c, err := r.graph.FindControl(path)
	if err != nil {
		return 0, err
	}
	return c.Value(), nil
}

func (r *Rack) SetTempo(bpm float64) {
	r.guard.Lock("SetTempo")
	defer r.guard.Unlock()
	r.session.Transport.SetTempo(bpm)
}

// ResetTime rewinds the clock of the engine and the transport.
func (r *Rack) ResetTime() {
	r.guard.Lock("ResetTime")
	defer r.guard.Unlock()
	r.engine.ResetTime()
	r.session.Transport.Reset()
}

// ClearAll removes every module except the singletons and the structural
// modules.
func (r *Rack) ClearAll() {
	r.guard.RenderLock()
	defer r.guard.RenderUnlock()
	r.guard.Lock("ClearAll")
	defer r.guard.Unlock()
	r.clearLocked()
}

func (r *Rack) clearLocked() {
	r.pending = r.pending[:0]
	r.graph.Reset()
	for _, m := range r.session.Singletons() {
		if h, ok := r.graph.HandleOf(m); ok {
			r.graph.Setup(h, patchwork.Descriptor{}) // back to defaults
		}
	}
	r.title.SetTitle("")
}

func (r *Rack) SetPostEffects(names []string) error {
	r.guard.Lock("SetPostEffects")
	defer r.guard.Unlock()
	return r.setPostEffectsLocked(names)
}

// setPostEffectsLocked applies the known effects and reports the unknown
// ones.
func (r *Rack) setPostEffectsLocked(names []string) error {
	var known []string
	var err error
	for _, n := range names {
		if _, e := r.effects.New(n, r.session.SampleRate); e != nil {
			err = fmt.Errorf("post effect: %w", e)
			continue
		}
		known = append(known, n)
	}
	if e := r.engine.SetPostEffects(r.effects, known); e != nil {
		return e
	}
	r.prefs.PostEffects = known
	return err
}
