package modules_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/engine"
	"github.com/vsariola/patchwork/graph"
	"github.com/vsariola/patchwork/modules"
)

const sampleRate, chunk = 1000, 4

func newGraph(t *testing.T) *graph.Graph {
	t.Helper()
	r := patchwork.NewRegistry()
	modules.Register(r)
	return graph.New(patchwork.NewSession(sampleRate, chunk, nil), r)
}

func load(t *testing.T, g *graph.Graph, descs ...patchwork.Descriptor) {
	t.Helper()
	var hs []patchwork.Handle
	for _, d := range descs {
		h, _, err := g.Create(d.Type(), d)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		hs = append(hs, h)
	}
	for i, h := range hs {
		if err := g.Setup(h, descs[i]); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	g.InitAll()
	g.RecomputeOrder()
}

func find[T patchwork.Module](t *testing.T, g *graph.Graph, name string) T {
	t.Helper()
	m, err := g.FindModule(name)
	if err != nil {
		t.Fatalf("FindModule failed: %v", err)
	}
	ret, ok := m.(T)
	if !ok {
		t.Fatalf("%q is a %T", name, m)
	}
	return ret
}

func describe(t *testing.T, g *graph.Graph, name string) patchwork.Descriptor {
	t.Helper()
	h, ok := g.Find(name)
	if !ok {
		t.Fatalf("module %q not found", name)
	}
	desc, err := g.Describe(h)
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	return desc
}

// render runs one processing chunk the way the engine does
func render(g *graph.Graph) {
	for _, r := range g.Receivers() {
		r.ClearBuffer()
	}
	for _, s := range g.Order() {
		s.Process(0)
	}
}

func expectBuffer(t *testing.T, got, expected []float32) {
	t.Helper()
	for i := range expected {
		if math.Abs(float64(got[i]-expected[i])) > 1e-6 {
			t.Fatalf("got %v, expected %v", got, expected)
		}
	}
}

func TestRegister(t *testing.T) {
	r := patchwork.NewRegistry()
	modules.Register(r)
	types := r.Types()
	if len(types) != len(modules.Types) || types[0] != "chain" {
		t.Errorf("got types %v", types)
	}
	if r.Has("titlebar") {
		t.Errorf("structural modules should not be registered")
	}
}

func TestLabel(t *testing.T) {
	g := newGraph(t)
	load(t, g, patchwork.Descriptor{"type": "midicontroller", "name": "keys"})
	m, _ := g.FindModule("keys")
	if got := modules.Label(m); got != "Midicontroller keys" {
		t.Errorf("got %q", got)
	}
}

func TestSourceToSink(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "source", "name": "osc1", "freq": 250.0, "wave": "square"},
		patchwork.Descriptor{"type": "sink", "name": "out1", "target": "osc1"},
	)
	render(g)
	sink := find[*modules.Sink](t, g, "out1")
	expectBuffer(t, sink.Buffer(), []float32{0.5, 0.5, -0.5, -0.5})
	desc := describe(t, g, "osc1")
	if len(desc) != 4 || desc.String("wave") != "square" || desc.Float("freq", 0) != 250 {
		t.Errorf("got %v", desc)
	}
	if desc := describe(t, g, "out1"); len(desc) != 3 || desc.String("target") != "osc1" {
		t.Errorf("got %v", desc)
	}
}

func TestBadWaveform(t *testing.T) {
	g := newGraph(t)
	h, _, err := g.Create("source", patchwork.Descriptor{"name": "osc"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := g.Setup(h, patchwork.Descriptor{"wave": "triangle"}); err == nil {
		t.Errorf("expected an error for an unknown waveform")
	}
}

func TestGain(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "source", "name": "osc", "freq": 250.0, "wave": "square", "target": "amp"},
		patchwork.Descriptor{"type": "gain", "name": "amp", "gain": 2.0, "target": "out"},
		patchwork.Descriptor{"type": "sink", "name": "out"},
	)
	render(g)
	expectBuffer(t, find[*modules.Sink](t, g, "out").Buffer(), []float32{1, 1, -1, -1})
	if order := g.Order(); len(order) != 2 || order[0].Name() != "osc" {
		t.Errorf("the oscillator should be processed before the gain")
	}
}

func TestChain(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "source", "name": "osc", "freq": 250.0, "wave": "square", "volume": 1.0, "target": "fx"},
		patchwork.Descriptor{"type": "chain", "name": "fx", "target": "out", "effects": []any{
			map[string]any{"type": "gain", "gain": 0.5},
			map[string]any{"type": "clip", "level": 0.25},
		}},
		patchwork.Descriptor{"type": "sink", "name": "out"},
	)
	render(g)
	expectBuffer(t, find[*modules.Sink](t, g, "out").Buffer(), []float32{0.25, 0.25, -0.25, -0.25})
	c, err := g.FindControl("fx~gain~gain")
	if err != nil {
		t.Fatalf("FindControl failed: %v", err)
	}
	if c.Value() != 0.5 {
		t.Errorf("got %v, expected 0.5", c.Value())
	}
	effects := describe(t, g, "fx").List("effects")
	if len(effects) != 2 || effects[0].Float("gain", 0) != 0.5 || effects[1].Float("level", 0) != 0.25 || effects[1].Has("name") {
		t.Errorf("got %v", effects)
	}

	chain := find[*modules.Chain](t, g, "fx")
	var buf bytes.Buffer
	chain.SaveState(patchwork.NewStateWriter(&buf))
	c.SetValue(3)
	if err := chain.LoadState(patchwork.NewStateReader(buf.Bytes())); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if c.Value() != 0.5 {
		t.Errorf("got %v after restoring the state, expected 0.5", c.Value())
	}
}

func TestChainUnknownEffect(t *testing.T) {
	g := newGraph(t)
	h, m, _ := g.Create("chain", patchwork.Descriptor{"name": "fx"})
	err := g.Setup(h, patchwork.Descriptor{"effects": []any{
		map[string]any{"type": "nope"},
		map[string]any{"type": "gain"},
		map[string]any{"type": "gain"},
	}})
	if err == nil {
		t.Errorf("expected an error for an unknown effect")
	}
	children := m.Base().Children()
	if len(children) != 2 || children[0].Name() != "gain" || children[1].Name() != "gain2" {
		t.Errorf("got children %v", children)
	}
}

func TestSequencer(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "source", "name": "osc"},
		patchwork.Descriptor{"type": "sequencer", "name": "seq", "notes": []any{0, 2}, "target": "osc"},
	)
	tr := g.Session().Transport
	freq, _ := g.FindControl("osc~freq")
	pitchOf := func() int { return int(math.Round(69 + 12*math.Log2(freq.Value()/440))) }
	tr.Advance(400)
	if freq.Value() != 220 {
		t.Errorf("the sequencer should wait for a full step")
	}
	tr.Advance(100) // a step is a quarter of a 2000 ms measure
	if got := pitchOf(); got != 48 {
		t.Errorf("got pitch %v, expected 48", got)
	}
	tr.Advance(500)
	if got := pitchOf(); got != 52 {
		t.Errorf("got pitch %v, expected 52", got)
	}
	g.Session().Scale.Set(2, "minor")
	tr.Advance(500)
	if got := pitchOf(); got != 50 {
		t.Errorf("got pitch %v, expected 50", got)
	}
	if desc := describe(t, g, "seq"); len(desc.Floats("notes")) != 2 || len(desc.Strings("target")) != 1 {
		t.Errorf("got %v", desc)
	}
}

func TestLFO(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "gain", "name": "amp"},
		patchwork.Descriptor{"type": "lfo", "name": "wobble", "control": "amp~gain", "depth": 1.0},
	)
	g.Session().Transport.Advance(250)
	c, _ := g.FindControl("amp~gain")
	if math.Abs(c.Value()-4) > 1e-9 {
		t.Errorf("got %v, expected the top of the range", c.Value())
	}
	g.Session().Transport.Advance(500)
	if math.Abs(c.Value()) > 1e-9 {
		t.Errorf("got %v, expected the bottom of the range", c.Value())
	}
	if desc := describe(t, g, "wobble"); desc.String("control") != "amp~gain" || desc.Has("rate") {
		t.Errorf("got %v", desc)
	}
}

func TestLFOBadPath(t *testing.T) {
	g := newGraph(t)
	h, _, _ := g.Create("lfo", patchwork.Descriptor{"name": "lfo"})
	if err := g.Setup(h, patchwork.Descriptor{"control": "nothing~here"}); err == nil {
		t.Errorf("expected an error for an unknown control")
	}
}

func TestMidiController(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "source", "name": "osc"},
		patchwork.Descriptor{"type": "gain", "name": "amp"},
		patchwork.Descriptor{"type": "midicontroller", "name": "keys", "target": []any{"osc"}, "bindings": []any{
			map[string]any{"cc": 7, "control": "amp~gain"},
			map[string]any{"cc": 1, "channel": 2, "control": "osc~volume"},
		}},
	)
	mc := find[*modules.MidiController](t, g, "keys")
	mc.OnMidi(patchwork.MidiMessage{Kind: patchwork.MidiControlChange, Channel: 5, Data1: 7, Data2: 127})
	if c, _ := g.FindControl("amp~gain"); c.Value() != 4 {
		t.Errorf("got %v, expected 4", c.Value())
	}
	vol, _ := g.FindControl("osc~volume")
	mc.OnMidi(patchwork.MidiMessage{Kind: patchwork.MidiControlChange, Channel: 0, Data1: 1, Data2: 0})
	if vol.Value() != 0.5 {
		t.Errorf("a binding of channel 2 should ignore channel 1")
	}
	mc.OnMidi(patchwork.MidiMessage{Kind: patchwork.MidiControlChange, Channel: 1, Data1: 1, Data2: 0})
	if vol.Value() != 0 {
		t.Errorf("got %v, expected 0", vol.Value())
	}
	mc.OnMidi(patchwork.MidiMessage{Kind: patchwork.MidiNoteOn, Data1: 69, Data2: 127})
	if c, _ := g.FindControl("osc~freq"); c.Value() != 440 {
		t.Errorf("got %v, expected 440", c.Value())
	}
	if b := describe(t, g, "keys").List("bindings"); len(b) != 2 || b[1].Int("channel", 0) != 2 || b[0].Has("channel") {
		t.Errorf("got %v", b)
	}
}

func TestRemovedControlsAreUnbound(t *testing.T) {
	g := newGraph(t)
	load(t, g,
		patchwork.Descriptor{"type": "source", "name": "osc"},
		patchwork.Descriptor{"type": "gain", "name": "amp"},
		patchwork.Descriptor{"type": "lfo", "name": "wobble", "control": "amp~gain"},
		patchwork.Descriptor{"type": "midicontroller", "name": "keys", "bindings": []any{
			map[string]any{"cc": 7, "control": "amp~gain"},
			map[string]any{"cc": 1, "control": "osc~volume"},
		}},
	)
	h, _ := g.Find("amp")
	if err := g.Remove(h); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if c := find[*modules.LFO](t, g, "wobble").Control(); c != nil {
		t.Errorf("lfo still bound to %v", c.Name())
	}
	if desc := describe(t, g, "wobble"); desc.Has("control") {
		t.Errorf("got %v, expected no control path", desc)
	}
	mc := find[*modules.MidiController](t, g, "keys")
	if b := mc.Bindings(); len(b) != 1 || b[0].Path != "osc~volume" {
		t.Fatalf("got bindings %v, expected only osc~volume", b)
	}
	g.Session().Transport.Advance(250)
	mc.OnMidi(patchwork.MidiMessage{Kind: patchwork.MidiControlChange, Data1: 1, Data2: 127})
	if c, _ := g.FindControl("osc~volume"); c.Value() != 1 {
		t.Errorf("got volume %v, expected 1", c.Value())
	}
}

func TestClockSync(t *testing.T) {
	g := newGraph(t)
	load(t, g, patchwork.Descriptor{"type": "clocksync", "name": "clk"})
	clk := find[*modules.ClockSync](t, g, "clk")
	left := make([]float32, 400)
	for i := 0; i < len(left); i += 100 {
		left[i] = 1
	}
	right := make([]float32, 400)
	tr := g.Session().Transport
	tr.Advance(300)
	clk.SetSyncInput(left, right)
	if got := tr.Tempo(); math.Abs(got-150) > 1e-9 {
		t.Errorf("got tempo %v, expected 150", got)
	}
	right[10] = 1
	clk.SetSyncInput(left, right)
	if m, p := tr.Measure(); m != 0 || p != 0 {
		t.Errorf("a reset pulse should restart the measure, got %v %v", m, p)
	}
}

func TestChannels(t *testing.T) {
	g := newGraph(t)
	s := g.Session()
	e, err := engine.New(s, g, nil, engine.Options{SampleRate: sampleRate, ChunkSize: chunk, IOBufferSize: chunk, OutputChannels: 2})
	if err != nil {
		t.Fatalf("engine.New failed: %v", err)
	}
	s.Channels = e
	load(t, g,
		patchwork.Descriptor{"type": "input", "name": "in", "channel": 3, "target": "out"},
		patchwork.Descriptor{"type": "output", "name": "out", "channel": 2},
	)
	in := find[*modules.Input](t, g, "in")
	out := find[*modules.Output](t, g, "out")
	if e.InputOf(in) != 3 || e.OutputOf(out) != 2 {
		t.Errorf("got channels %v and %v", e.InputOf(in), e.OutputOf(out))
	}
	if describe(t, g, "in").Int("channel", 0) != 3 || describe(t, g, "out").Int("channel", 0) != 2 {
		t.Errorf("channels should be saved")
	}
	copy(in.Buffer(), []float32{1, 2, 3, 4})
	in.Process(0)
	expectBuffer(t, out.Buffer(), []float32{1, 2, 3, 4})
}

func TestSourceDefaultsSaveNothing(t *testing.T) {
	g := newGraph(t)
	load(t, g, patchwork.Descriptor{"type": "source", "name": "osc1"})
	if desc := describe(t, g, "osc1"); len(desc) != 2 {
		t.Errorf("got %v, expected only the type and the name", desc)
	}
}
