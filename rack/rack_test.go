package rack_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/modules"
	"github.com/vsariola/patchwork/rack"
)

const endToEnd = `{"modules":[{"type":"source","name":"osc1"},{"type":"sink","name":"out1","target":"osc1"}]}`

const endToEndYaml = `
modules:
  - type: source
    name: osc1
  - type: sink
    name: out1
    target: osc1
`

func testPrefs(t *testing.T) rack.Prefs {
	return rack.Prefs{
		SampleRate:       1000,
		BufferSize:       4,
		IOBufferSize:     8,
		OutputChannels:   2,
		RecordingSeconds: 1,
		DataDir:          t.TempDir(),
	}
}

func newRack(t *testing.T) *rack.Rack {
	t.Helper()
	reg := patchwork.NewRegistry()
	modules.Register(reg)
	r, err := rack.New(testPrefs(t), reg)
	if err != nil {
		t.Fatalf("rack.New failed: %v", err)
	}
	return r
}

func loadLayout(t *testing.T, r *rack.Rack, doc string) {
	t.Helper()
	if err := r.LoadLayoutData([]byte(doc), "test.json"); err != nil {
		t.Fatalf("LoadLayoutData failed: %v", err)
	}
}

func readLayout(t *testing.T, doc []byte) patchwork.Layout {
	t.Helper()
	l, err := patchwork.ReadLayout(doc)
	if err != nil {
		t.Fatalf("ReadLayout failed: %v", err)
	}
	return l
}

func expectNames(t *testing.T, what string, got, expected []string) {
	t.Helper()
	if !slices.Equal(got, expected) {
		t.Fatalf("%s: got %v, expected %v", what, got, expected)
	}
}

func control(t *testing.T, r *rack.Rack, path string) float64 {
	t.Helper()
	v, err := r.Control(path)
	if err != nil {
		t.Fatalf("Control(%q) failed: %v", path, err)
	}
	return v
}

func outputs(channels, size int) [][]float32 {
	ret := make([][]float32, channels)
	for i := range ret {
		ret[i] = make([]float32, size)
	}
	return ret
}

func TestEndToEnd(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, endToEnd)
	expectNames(t, "modules", r.ModuleNames(), []string{"osc1", "out1"})
	expectNames(t, "order", r.SourceOrder(), []string{"osc1"})
	if n := len(r.Graph().Cables()); n != 1 {
		t.Fatalf("got %v cables, expected 1", n)
	}
	if r.Title() != "test" {
		t.Fatalf("got title %q, expected %q", r.Title(), "test")
	}
	data, err := r.Layout().Marshal("test.json")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got, expected := readLayout(t, data), readLayout(t, []byte(endToEnd)); !reflect.DeepEqual(got, expected) {
		t.Fatalf("layout round trip: got %v, expected %v", got, expected)
	}
	r.ProcessOutput(outputs(2, 8))
}

func TestYamlLayout(t *testing.T) {
	r := newRack(t)
	if err := r.LoadLayoutData([]byte(endToEndYaml), "test.yml"); err != nil {
		t.Fatalf("LoadLayoutData failed: %v", err)
	}
	if got, expected := r.Layout(), readLayout(t, []byte(endToEnd)); !reflect.DeepEqual(got, expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
}

func TestLayoutFile(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, `{"modules":[
		{"type":"source","name":"osc1","target":"g1","freq":440,"position":[10,20],"size":[120,80]},
		{"type":"gain","name":"g1","gain":2},
		{"type":"sink","name":"out1","target":"g1"},
		{"type":"transport","name":"transport","tempo":90}]}`)
	path := filepath.Join("layouts", "a.json")
	if err := r.SaveLayout(path); err != nil {
		t.Fatalf("SaveLayout failed: %v", err)
	}
	if r.Prefs().Layout != path {
		t.Fatalf("got prefs layout %q, expected %q", r.Prefs().Layout, path)
	}
	saved := r.Layout()
	for _, m := range saved.Modules {
		w, h, ok := m.Size()
		switch m.Name() {
		case "osc1":
			if !ok || w != 120 || h != 80 {
				t.Fatalf("got size %v %v, expected 120 80", w, h)
			}
		default:
			if ok {
				t.Fatalf("%v: got size %v %v, expected none", m.Name(), w, h)
			}
		}
	}
	r.ClearAll()
	if n := len(r.ModuleNames()); n != 0 {
		t.Fatalf("got %v modules after ClearAll, expected 0", n)
	}
	if r.Session().Transport.Tempo() != patchwork.DefaultTempo {
		t.Fatalf("ClearAll did not reset the tempo")
	}
	if err := r.LoadLayout(path); err != nil {
		t.Fatalf("LoadLayout failed: %v", err)
	}
	if got := r.Layout(); !reflect.DeepEqual(got, saved) {
		t.Fatalf("got %v, expected %v", got, saved)
	}
	if r.Session().Transport.Tempo() != 90 {
		t.Fatalf("got tempo %v, expected 90", r.Session().Transport.Tempo())
	}
	expectNames(t, "order", r.SourceOrder(), []string{"osc1", "g1"})
}

func TestCommentOut(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, `{"modules":[{"type":"source","name":"osc1"},{"type":"source","name":"osc2","comment_out":true}]}`)
	expectNames(t, "modules", r.ModuleNames(), []string{"osc1"})
}

func TestMalformedLayout(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, endToEnd)
	err := r.LoadLayoutData([]byte("{not json"), "bad.json")
	if !errors.Is(err, patchwork.ErrMalformedDocument) {
		t.Fatalf("got error %v, expected ErrMalformedDocument", err)
	}
	if n := len(r.ModuleNames()); n != 0 {
		t.Fatalf("got %v modules, expected an empty graph", n)
	}
	if len(r.Alerts().Errors()) != 1 {
		t.Fatalf("got errors %v, expected one", r.Alerts().Errors())
	}
}

func TestLayoutErrorsAreLogged(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, `{"modules":[
		{"type":"bogus","name":"x"},
		{"type":"source","name":"osc1"},
		{"type":"sink","name":"out1","target":"nope"}]}`)
	expectNames(t, "modules", r.ModuleNames(), []string{"osc1", "out1"})
	if n := len(r.Alerts().Errors()); n != 2 {
		t.Fatalf("got errors %v, expected 2", r.Alerts().Errors())
	}
	if n := len(r.Graph().Cables()); n != 0 {
		t.Fatalf("got %v cables, expected 0", n)
	}
}

func TestDeleteIsDeferred(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, endToEnd)
	if err := r.Delete("osc1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	expectNames(t, "before Poll", r.ModuleNames(), []string{"osc1", "out1"})
	r.Poll()
	expectNames(t, "after Poll", r.ModuleNames(), []string{"out1"})
	if n := len(r.Graph().Cables()); n != 0 {
		t.Fatalf("got %v cables, expected 0", n)
	}
	if err := r.Delete("transport"); !errors.Is(err, patchwork.ErrProtectedModule) {
		t.Fatalf("got error %v, expected ErrProtectedModule", err)
	}
	if err := r.Delete("nope"); !errors.Is(err, patchwork.ErrUnknownModule) {
		t.Fatalf("got error %v, expected ErrUnknownModule", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, endToEnd)
	if err := r.SetControl("osc1~freq", 440); err != nil {
		t.Fatalf("SetControl failed: %v", err)
	}
	r.SetTempo(150)
	if err := r.SaveState("states/a"); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(r.Prefs().DataDir, "states", "a.json")); err != nil {
		t.Fatalf("layout of the state not saved: %v", err)
	}
	r.ClearAll()
	if err := r.LoadState("states/a"); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	expectNames(t, "modules", r.ModuleNames(), []string{"osc1", "out1"})
	if v := control(t, r, "osc1~freq"); v != 440 {
		t.Fatalf("got freq %v, expected 440", v)
	}
	if v := r.Session().Transport.Tempo(); v != 150 {
		t.Fatalf("got tempo %v, expected 150", v)
	}
}

func TestQuickSave(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, endToEnd)
	if err := r.QuickSave(); err != nil {
		t.Fatalf("QuickSave failed: %v", err)
	}
	r.ClearAll()
	if err := r.QuickLoad(); err != nil {
		t.Fatalf("QuickLoad failed: %v", err)
	}
	expectNames(t, "modules", r.ModuleNames(), []string{"osc1", "out1"})
}

// block writes the header and the state of a module, with or without the
// marker.
func block(w *patchwork.StateWriter, m patchwork.Module, marker bool) {
	w.WriteString(m.Name())
	m.SaveState(w)
	if marker {
		w.WriteBytes([]byte("ryanchallinor"))
	}
}

func TestStateResync(t *testing.T) {
	const doc = `{"modules":[{"type":"source","name":"osc1"},{"type":"source","name":"osc2"}]}`
	setup := func(t *testing.T) (*rack.Rack, patchwork.Module, patchwork.Module) {
		r := newRack(t)
		loadLayout(t, r, doc)
		osc1, _ := r.Graph().FindModule("osc1")
		osc2, _ := r.Graph().FindModule("osc2")
		return r, osc1, osc2
	}
	t.Run("corrupted block", func(t *testing.T) {
		r, _, osc2 := setup(t)
		var buf bytes.Buffer
		w := patchwork.NewStateWriter(&buf)
		w.WriteInt(rack.StateRevision)
		w.WriteInt(2)
		w.WriteString("osc1")
		w.WriteInt(-5) // control count
		w.WriteBytes([]byte("ryanchallinor"))
		r.SetControl("osc2~freq", 330)
		block(w, osc2, true)
		r.SetControl("osc1~freq", 100)
		r.SetControl("osc2~freq", 220)
		err := r.ReadState(buf.Bytes())
		if !errors.Is(err, patchwork.ErrStateDesync) {
			t.Fatalf("got error %v, expected ErrStateDesync", err)
		}
		if v := control(t, r, "osc1~freq"); v != 100 {
			t.Fatalf("got osc1 freq %v, expected it unchanged at 100", v)
		}
		if v := control(t, r, "osc2~freq"); v != 330 {
			t.Fatalf("got osc2 freq %v, expected 330", v)
		}
	})
	t.Run("missing marker", func(t *testing.T) {
		r, osc1, osc2 := setup(t)
		var buf bytes.Buffer
		w := patchwork.NewStateWriter(&buf)
		w.WriteInt(rack.StateRevision)
		w.WriteInt(2)
		r.SetControl("osc1~freq", 500)
		block(w, osc1, false)
		w.WriteInt(7) // trailing bytes the module did not read
		r.SetControl("osc2~freq", 330)
		block(w, osc2, true)
		r.SetControl("osc1~freq", 100)
		r.SetControl("osc2~freq", 220)
		if err := r.ReadState(buf.Bytes()); !errors.Is(err, patchwork.ErrStateDesync) {
			t.Fatalf("got error %v, expected ErrStateDesync", err)
		}
		if v := control(t, r, "osc1~freq"); v != 100 {
			t.Fatalf("got osc1 freq %v, expected it unchanged at 100", v)
		}
		if v := control(t, r, "osc2~freq"); v != 330 {
			t.Fatalf("got osc2 freq %v, expected 330", v)
		}
	})
	t.Run("unknown module", func(t *testing.T) {
		r, _, osc2 := setup(t)
		var buf bytes.Buffer
		w := patchwork.NewStateWriter(&buf)
		w.WriteInt(rack.StateRevision)
		w.WriteInt(2)
		w.WriteString("gone")
		w.WriteInt(0)
		w.WriteBytes([]byte("ryanchallinor"))
		r.SetControl("osc2~freq", 330)
		block(w, osc2, true)
		r.SetControl("osc2~freq", 220)
		if err := r.ReadState(buf.Bytes()); !errors.Is(err, patchwork.ErrStateDesync) {
			t.Fatalf("got error %v, expected ErrStateDesync", err)
		}
		if v := control(t, r, "osc2~freq"); v != 330 {
			t.Fatalf("got osc2 freq %v, expected 330", v)
		}
	})
	t.Run("module named like a control", func(t *testing.T) {
		r := newRack(t)
		loadLayout(t, r, `{"modules":[{"type":"source","name":"osc1"},{"type":"source","name":"freq"}]}`)
		osc1, _ := r.Graph().FindModule("osc1")
		freq, _ := r.Graph().FindModule("freq")
		var buf bytes.Buffer
		w := patchwork.NewStateWriter(&buf)
		w.WriteInt(rack.StateRevision)
		w.WriteInt(2)
		r.SetControl("osc1~freq", 500)
		block(w, osc1, false)
		w.WriteBytes([]byte("ryanchallinoX"))
		r.SetControl("freq~freq", 330)
		block(w, freq, true)
		r.SetControl("osc1~freq", 100)
		r.SetControl("freq~freq", 220)
		if err := r.ReadState(buf.Bytes()); !errors.Is(err, patchwork.ErrStateDesync) {
			t.Fatalf("got error %v, expected ErrStateDesync", err)
		}
		if v := control(t, r, "osc1~freq"); v != 100 {
			t.Fatalf("got osc1 freq %v, expected it unchanged at 100", v)
		}
		if v := control(t, r, "freq~freq"); v != 330 {
			t.Fatalf("got freq freq %v, expected 330", v)
		}
	})
	t.Run("wrong revision", func(t *testing.T) {
		r, osc1, _ := setup(t)
		var buf bytes.Buffer
		w := patchwork.NewStateWriter(&buf)
		w.WriteInt(rack.StateRevision - 1)
		w.WriteInt(1)
		r.SetControl("osc1~freq", 500)
		block(w, osc1, true)
		r.SetControl("osc1~freq", 100)
		if err := r.ReadState(buf.Bytes()); !errors.Is(err, patchwork.ErrStateDesync) {
			t.Fatalf("got error %v, expected ErrStateDesync", err)
		}
		if v := control(t, r, "osc1~freq"); v != 100 {
			t.Fatalf("got osc1 freq %v, expected it unchanged at 100", v)
		}
	})
}

func TestDuplicate(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, `{"modules":[
		{"type":"source","name":"osc1","target":"gain1"},
		{"type":"gain","name":"gain1"},
		{"type":"sink","name":"out1","target":"gain1"}]}`)
	r.SetControl("osc1~freq", 440)
	names, err := r.Duplicate("osc1", "gain1")
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	expectNames(t, "copies", names, []string{"osc2", "gain2"})
	expectNames(t, "modules", r.ModuleNames(), []string{"osc1", "gain1", "out1", "osc2", "gain2"})
	if n := len(r.Graph().Cables()); n != 3 {
		t.Fatalf("got %v cables, expected 3", n)
	}
	byName := map[string]patchwork.Descriptor{}
	for _, d := range r.Layout().Modules {
		byName[d.Name()] = d
	}
	if got := byName["osc2"].String("target"); got != "gain2" {
		t.Fatalf("osc2 targets %q, expected gain2", got)
	}
	if got := byName["osc1"].String("target"); got != "gain1" {
		t.Fatalf("osc1 targets %q, expected gain1", got)
	}
	if byName["gain2"].Has("target") {
		t.Fatalf("gain2 has a target %v, expected none", byName["gain2"]["target"])
	}
	if got := byName["out1"].Strings("target"); !slices.Equal(got, []string{"gain1"}) {
		t.Fatalf("out1 is fed by %v, expected [gain1]", got)
	}
	if v := control(t, r, "osc2~freq"); v != 440 {
		t.Fatalf("got freq %v, expected the copied 440", v)
	}
	if x, y, _ := byName["osc2"].Position(); x == 0 && y == 0 {
		t.Fatalf("the copy was not moved")
	}
	if _, err := r.Duplicate("scale"); !errors.Is(err, patchwork.ErrProtectedModule) {
		t.Fatalf("got error %v, expected ErrProtectedModule", err)
	}
}

func TestDuplicateKeepsChannels(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, `{"modules":[{"type":"output","name":"out1","channel":1}]}`)
	names, err := r.Duplicate("out1")
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	out1, _ := r.Graph().FindModule("out1")
	copied, _ := r.Graph().FindModule(names[0])
	if ch := r.Engine().OutputOf(out1); ch != 1 {
		t.Fatalf("original got channel %v, expected 1", ch)
	}
	if ch := r.Engine().OutputOf(copied); ch != 0 {
		t.Fatalf("copy got channel %v, expected none", ch)
	}
}

func TestWriteRecording(t *testing.T) {
	r := newRack(t)
	if _, err := r.WriteRecording(""); err == nil {
		t.Fatalf("expected an error writing an empty recording")
	}
	loadLayout(t, r, `{"modules":[{"type":"source","name":"osc1","target":"out1"},{"type":"output","name":"out1","channel":1}]}`)
	r.ProcessOutput(outputs(2, 8))
	if n := r.Engine().Recorder().RecordingLength(); n != 8 {
		t.Fatalf("got %v recorded frames, expected 8", n)
	}
	file, err := r.WriteRecording("rec.wav")
	if err != nil {
		t.Fatalf("WriteRecording failed: %v", err)
	}
	f, err := os.Open(file)
	if err != nil {
		t.Fatalf("could not open recording: %v", err)
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		t.Fatalf("recording is not a valid wave file")
	}
	if d.NumChans != 2 || d.SampleRate != 1000 {
		t.Fatalf("got %v channels at %v Hz, expected 2 at 1000 Hz", d.NumChans, d.SampleRate)
	}
}

func TestMidiRouting(t *testing.T) {
	r := newRack(t)
	loadLayout(t, r, `{"modules":[
		{"type":"source","name":"osc1"},
		{"type":"midicontroller","name":"midi1","target":"osc1","bindings":[{"cc":7,"control":"osc1~volume"}]}]}`)
	r.SendMidi(patchwork.MidiMessage{Kind: patchwork.MidiNoteOn, Data1: 69, Data2: 100})
	r.SendMidi(patchwork.MidiMessage{Kind: patchwork.MidiControlChange, Channel: 3, Data1: 7, Data2: 127})
	if v := control(t, r, "osc1~freq"); v != 220 {
		t.Fatalf("MIDI was routed before Poll")
	}
	r.Poll()
	if v := control(t, r, "osc1~freq"); v != 440 {
		t.Fatalf("got freq %v, expected 440", v)
	}
	if v := control(t, r, "osc1~volume"); v != 1 {
		t.Fatalf("got volume %v, expected 1", v)
	}
}

type (
	fakeMidi struct {
		names  []string
		opened string
	}
	fakeInput struct {
		ctx  *fakeMidi
		name string
	}
)

func (c *fakeMidi) Inputs(yield func(patchwork.MidiInput) bool) {
	for _, n := range c.names {
		if !yield(fakeInput{c, n}) {
			return
		}
	}
}
func (c *fakeMidi) Close()                         {}
func (c *fakeMidi) Support() patchwork.MidiSupport { return patchwork.MidiSupported }
func (i fakeInput) Open() error                    { i.ctx.opened = i.name; return nil }
func (i fakeInput) Close() error                   { return nil }
func (i fakeInput) IsOpen() bool                   { return i.ctx.opened == i.name }
func (i fakeInput) String() string                 { return i.name }

func TestOpenMidiInput(t *testing.T) {
	r := newRack(t)
	ctx := &fakeMidi{names: []string{"Foo Keys", "Bar Pads"}}
	if err := r.OpenMidiInput(ctx, "Bar"); err != nil {
		t.Fatalf("OpenMidiInput failed: %v", err)
	}
	if ctx.opened != "Bar Pads" {
		t.Fatalf("got %q, expected Bar Pads", ctx.opened)
	}
	if err := r.OpenMidiInput(ctx, ""); err != nil || ctx.opened != "Foo Keys" {
		t.Fatalf("empty prefix opened %q (%v), expected Foo Keys", ctx.opened, err)
	}
	if err := r.OpenMidiInput(ctx, "Baz"); err == nil {
		t.Fatalf("expected an error for a missing input")
	}
	r.OpenMidiInput(ctx, "Baz")
	failures := func() int {
		n := 0
		for _, a := range r.Alerts().Iterate {
			if a.Name == "midi" {
				n++
			}
		}
		return n
	}
	if n := failures(); n != 1 {
		t.Fatalf("got %v MIDI alerts, expected the failures to share one", n)
	}
	if err := r.OpenMidiInput(ctx, "Foo"); err != nil {
		t.Fatalf("OpenMidiInput failed: %v", err)
	}
	if n := failures(); n != 0 {
		t.Fatalf("got %v MIDI alerts after opening an input, expected 0", n)
	}
	if got := r.Status().Alerts; len(got) == 0 || got[len(got)-1] != "opened MIDI input Foo Keys" {
		t.Fatalf("got alerts %v", got)
	}
	if err := r.OpenMidiInput(patchwork.NullMidiContext{}, ""); err == nil {
		t.Fatalf("expected an error without MIDI support")
	}
}

func TestSetPostEffects(t *testing.T) {
	r := newRack(t)
	if err := r.SetPostEffects([]string{"clip", "bogus"}); err == nil {
		t.Fatalf("expected an error for an unknown effect")
	}
	expectNames(t, "post effects", r.Prefs().PostEffects, []string{"clip"})
	expectNames(t, "engine post effects", r.Engine().PostEffects(), []string{"clip"})
}

func TestConsole(t *testing.T) {
	r := newRack(t)
	var out bytes.Buffer
	c := &rack.Console{Rack: r, Out: &out}
	run := func(line string) string {
		t.Helper()
		out.Reset()
		if err := c.Execute(line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
		return strings.TrimSpace(out.String())
	}
	if got := run("source"); got != "source1" {
		t.Fatalf("got %q, expected source1", got)
	}
	run("sink")
	run("connect source1 sink1")
	expectNames(t, "order", r.SourceOrder(), []string{"source1"})
	run("tempo 140")
	if v := r.Session().Transport.Tempo(); v != 140 {
		t.Fatalf("got tempo %v, expected 140", v)
	}
	run("cursor 10 20")
	run("chain gain clip")
	run("set chain1~clip~level 0.5")
	if v := control(t, r, "chain1~clip~level"); v != 0.5 {
		t.Fatalf("got level %v, expected 0.5", v)
	}
	chain, err := r.Graph().FindModule("chain1")
	if err != nil {
		t.Fatalf("FindModule failed: %v", err)
	}
	if x, y := chain.Base().Position(); x != 10 || y != 20 {
		t.Fatalf("got position %v,%v, expected 10,20", x, y)
	}
	if n := len(chain.Base().Children()); n != 2 {
		t.Fatalf("got %v effects, expected 2", n)
	}
	if got := run("duplicate source1"); got != "source2" {
		t.Fatalf("got %q, expected source2", got)
	}
	run("delete source2")
	expectNames(t, "modules", r.ModuleNames(), []string{"source1", "sink1", "chain1"})
	if got := run("status"); !strings.Contains(got, "Source source1") || !strings.Contains(got, "140.0") {
		t.Fatalf("unexpected status:\n%s", got)
	}
	run("save layouts/c.json")
	run("clearall")
	expectNames(t, "after clearall", r.ModuleNames(), nil)
	run("load layouts/c.json")
	expectNames(t, "after load", r.ModuleNames(), []string{"chain1", "sink1", "source1"})
	run("s")
	run("clearall")
	run("l")
	expectNames(t, "after quick load", r.ModuleNames(), []string{"chain1", "sink1", "source1"})
	run("clear")
	if len(r.Alerts().Events()) != 0 {
		t.Fatalf("clear did not clear the events")
	}
	for _, line := range []string{"bogus", "tempo x", "load", "cursor 1", "connect a"} {
		if err := c.Execute(line); err == nil {
			t.Fatalf("Execute(%q) succeeded, expected an error", line)
		}
	}
	if err := c.Execute("bogus"); !errors.Is(err, patchwork.ErrUnknownModuleType) {
		t.Fatalf("got error %v, expected ErrUnknownModuleType", err)
	}
}

func TestConsoleCables(t *testing.T) {
	r := newRack(t)
	c := &rack.Console{Rack: r, Out: io.Discard}
	for _, line := range []string{"source", "sink", "sink", "connect source1 sink1", "connect source1 sink2"} {
		if err := c.Execute(line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
	}
	g := r.Graph()
	sink1, _ := g.Find("sink1")
	sink2, _ := g.Find("sink2")
	if n := len(g.Cables()); n != 1 {
		t.Fatalf("got %v cables, expected 1", n)
	}
	if len(g.Incoming(sink1)) != 0 || len(g.Incoming(sink2)) != 1 {
		t.Fatalf("the cable was not moved to sink2")
	}
	if err := c.Execute("disconnect source1 nosuchoutput"); !errors.Is(err, patchwork.ErrUnknownControl) {
		t.Fatalf("got error %v, expected ErrUnknownControl", err)
	}
	if err := c.Execute("disconnect source1"); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if n := len(g.Cables()); n != 0 {
		t.Fatalf("got %v cables after disconnect, expected 0", n)
	}
	if err := c.Execute("front source1"); err != nil {
		t.Fatalf("front failed: %v", err)
	}
	expectNames(t, "modules", r.ModuleNames(), []string{"sink1", "sink2", "source1"})
	r.SetTempo(150)
	if err := c.Execute("transport"); err != nil {
		t.Fatalf("spawning the transport failed: %v", err)
	}
	if v := r.Session().Transport.Tempo(); v != 150 {
		t.Fatalf("got tempo %v, expected 150", v)
	}
}

func TestConcurrentLoad(t *testing.T) {
	r := newRack(t)
	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := outputs(2, 8)
		for {
			select {
			case <-done:
				return
			default:
				r.ProcessOutput(out)
			}
		}
	}()
	docs := []string{endToEnd, `{"modules":[{"type":"source","name":"a","target":"b"},{"type":"output","name":"b","channel":1}]}`}
	for i := 0; i < 50; i++ {
		loadLayout(t, r, docs[i%2])
		r.SetControl("a~freq", float64(100+i))
		r.Poll()
	}
	close(done)
	wg.Wait()
}

func TestPrefs(t *testing.T) {
	dir := t.TempDir()
	if p, err := rack.ReadPrefs(filepath.Join(dir, "missing.yml")); err == nil || !reflect.DeepEqual(p, rack.DefaultPrefs()) {
		t.Fatalf("missing prefs: got %v (%v), expected the defaults and an error", p, err)
	}
	path := filepath.Join(dir, "prefs.yml")
	os.WriteFile(path, []byte("samplerate: 44100\nbuffersize: 32\n"), 0644)
	p, err := rack.ReadPrefs(path)
	if err != nil {
		t.Fatalf("ReadPrefs failed: %v", err)
	}
	if p.SampleRate != 44100 || p.BufferSize != 32 || p.IOBufferSize != rack.DefaultPrefs().IOBufferSize {
		t.Fatalf("got %+v, expected the file on top of the defaults", p)
	}
	p.PostEffects = []string{"clip", "reverb"}
	if err := p.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	q, err := rack.ReadPrefs(path)
	if err != nil {
		t.Fatalf("ReadPrefs failed: %v", err)
	}
	if !reflect.DeepEqual(p, q) {
		t.Fatalf("got %+v, expected %+v", q, p)
	}
	os.WriteFile(path, []byte("buffersize: 100\n"), 0644)
	if _, err := rack.ReadPrefs(path); err == nil {
		t.Fatalf("expected an error for an I/O buffer size that is not a multiple")
	}
}

func TestAlerts(t *testing.T) {
	var a rack.Alerts
	a.AddNamed("tempo", "tempo 120", rack.Info)
	a.AddNamed("tempo", "tempo 130", rack.Info)
	a.Add("oops", rack.Error)
	var got []string
	for _, alert := range a.Iterate {
		got = append(got, alert.Message)
	}
	expectNames(t, "alerts", got, []string{"tempo 130", "oops"})
	expectNames(t, "errors", a.Errors(), []string{"oops"})
	if !a.Update(time.Second) {
		t.Fatalf("alerts expired too early")
	}
	if a.Update(time.Hour) {
		t.Fatalf("alerts did not expire")
	}
	a.ClearErrors()
	if len(a.Errors()) != 0 || len(a.Events()) != 2 {
		t.Fatalf("got errors %v and events %v after ClearErrors", a.Errors(), a.Events())
	}
}

func TestGuard(t *testing.T) {
	var g rack.Guard
	g.Lock("test")
	if g.Holder() != "test" {
		t.Fatalf("got holder %q, expected test", g.Holder())
	}
	g.Unlock()
	if g.Holder() != "" {
		t.Fatalf("got holder %q after Unlock", g.Holder())
	}
}

func TestBroker(t *testing.T) {
	c := make(chan int, 1)
	if !rack.TrySend(c, 1) {
		t.Fatalf("TrySend to an empty channel failed")
	}
	if rack.TrySend(c, 2) {
		t.Fatalf("TrySend to a full channel succeeded")
	}
	if v, ok := rack.TimeoutReceive(c, time.Second); !ok || v != 1 {
		t.Fatalf("got %v, %v, expected 1, true", v, ok)
	}
	if _, ok := rack.TimeoutReceive(c, time.Millisecond); ok {
		t.Fatalf("TimeoutReceive did not time out")
	}
}
