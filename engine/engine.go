// Package engine drives the audio graph in the real-time audio context.
package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/viterin/vek/vek32"

	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/effects"
)

type (
	// Engine renders the graph one processing chunk at a time. The I/O
	// buffers delivered by the hardware are split into chunks, and the
	// guard is held for the whole I/O buffer.
	//
	// The channel tables and post effects are mutated only in the control
	// context with the guard held.
	Engine struct {
		session *patchwork.Session
		plan    Plan
		guard   Locker

		chunk  int
		ioSize int

		paused atomic.Bool
		timeMs float64

		inputs  [MaxChannels]patchwork.AudioReceiver
		outputs [MaxChannels]patchwork.AudioReceiver
		staged  [MaxChannels][]float32
		mix     [][]float32
		zero    []float32

		post      [][]effects.Effect // per output channel
		postNames []string

		levels   []float32
		meterTmp []float32

		recorder *Recorder
		recL     []float32
		recR     []float32
		recPos   []float32
	}

	// Plan is the part of the graph that the engine reads.
	Plan interface {
		Order() []patchwork.AudioSource
		Receivers() []patchwork.AudioReceiver
		SyncInputs() []patchwork.SyncInput
	}

	// Locker is the concurrency guard of the session.
	Locker interface {
		Lock(reason string)
		Unlock()
	}

	Options struct {
		SampleRate       int
		ChunkSize        int // samples per processing chunk
		IOBufferSize     int // samples per hardware buffer, a multiple of ChunkSize
		OutputChannels   int
		RecordingSeconds int
	}
)

const MaxChannels = 16

// New creates an engine. The I/O buffer size must be a multiple of the
// chunk size.
func New(session *patchwork.Session, plan Plan, guard Locker, opts Options) (*Engine, error) {
	if opts.ChunkSize <= 0 || opts.IOBufferSize <= 0 {
		return nil, fmt.Errorf("invalid buffer sizes %d / %d", opts.ChunkSize, opts.IOBufferSize)
	}
	if opts.IOBufferSize%opts.ChunkSize != 0 {
		return nil, fmt.Errorf("I/O buffer size %d is not a multiple of the chunk size %d", opts.IOBufferSize, opts.ChunkSize)
	}
	if opts.OutputChannels <= 0 || opts.OutputChannels > MaxChannels {
		return nil, fmt.Errorf("%w: %d output channels", patchwork.ErrChannelRange, opts.OutputChannels)
	}
	e := &Engine{
		session: session,
		plan:    plan,
		guard:   guard,
		chunk:   opts.ChunkSize,
		ioSize:  opts.IOBufferSize,
		zero:    make([]float32, opts.ChunkSize),
		levels:  make([]float32, opts.OutputChannels),
		post:    make([][]effects.Effect, opts.OutputChannels),
		recL:    make([]float32, opts.ChunkSize),
		recR:    make([]float32, opts.ChunkSize),
		recPos:  make([]float32, opts.ChunkSize),
	}
	for i := range e.staged {
		e.staged[i] = make([]float32, opts.IOBufferSize)
	}
	e.mix = make([][]float32, opts.OutputChannels)
	for i := range e.mix {
		e.mix[i] = make([]float32, opts.ChunkSize)
	}
	e.meterTmp = make([]float32, opts.ChunkSize)
	e.recorder = NewRecorder(opts.SampleRate * opts.RecordingSeconds)
	return e, nil
}

func (e *Engine) ChunkSize() int      { return e.chunk }
func (e *Engine) IOBufferSize() int   { return e.ioSize }
func (e *Engine) OutputChannels() int { return len(e.mix) }
func (e *Engine) Recorder() *Recorder { return e.recorder }

// Paused engines return from ProcessOutput without touching any buffer,
// the clock or the recording.
func (e *Engine) SetPaused(p bool) { e.paused.Store(p) }
func (e *Engine) Paused() bool     { return e.paused.Load() }

// Time is the number of milliseconds rendered so far.
func (e *Engine) Time() float64 { return e.timeMs }
func (e *Engine) ResetTime()    { e.timeMs = 0 }

// Levels returns the peak level of each output channel in the last
// chunk.
func (e *Engine) Levels() []float32 { return e.levels }

// ProcessInput stages one I/O buffer of hardware input. The staged samples
// are delivered to the input modules chunk by chunk during the next
// ProcessOutput.
func (e *Engine) ProcessInput(in [][]float32) {
	for ch, buf := range in {
		if ch >= MaxChannels {
			break
		}
		if len(buf) != e.ioSize {
			panic(fmt.Sprintf("engine: delivered input buffer of %d samples, configured %d", len(buf), e.ioSize))
		}
		copy(e.staged[ch], buf)
	}
}

// ProcessOutput renders one I/O buffer. A buffer of the wrong size is a
// configuration error and panics.
func (e *Engine) ProcessOutput(out [][]float32) {
	if e.paused.Load() {
		return
	}
	for _, buf := range out {
		if len(buf) != e.ioSize {
			panic(fmt.Sprintf("engine: delivered output buffer of %d samples, configured %d", len(buf), e.ioSize))
		}
	}
	e.guard.Lock("audio")
	defer e.guard.Unlock()
	for offset := 0; offset < e.ioSize; offset += e.chunk {
		e.processChunk(out, offset)
	}
}

func (e *Engine) processChunk(out [][]float32, offset int) {
	end := offset + e.chunk
	for _, s := range e.plan.SyncInputs() {
		l, r := s.SyncChannels()
		s.SetSyncInput(e.stagedChunk(l, offset), e.stagedChunk(r, offset))
	}
	for _, r := range e.plan.Receivers() {
		r.ClearBuffer()
	}
	for ch, m := range e.inputs {
		if m != nil {
			copy(m.Buffer(), e.staged[ch][offset:end])
		}
	}
	for _, s := range e.plan.Order() {
		if s.Base().Enabled() {
			s.Process(e.timeMs)
		}
	}
	for ch, buf := range e.mix {
		if m := e.outputs[ch]; m != nil {
			copy(buf, m.Buffer())
		} else {
			copy(buf, e.zero)
		}
		for _, fx := range e.post[ch] {
			fx.Process(buf)
		}
		copy(e.meterTmp, buf)
		vek32.Abs_Inplace(e.meterTmp)
		e.levels[ch] = vek32.Max(e.meterTmp)
	}
	for ch, buf := range out {
		if ch < len(e.mix) {
			copy(buf[offset:end], e.mix[ch])
		} else {
			copy(buf[offset:end], e.zero)
		}
	}
	e.record()
	e.timeMs += e.session.ChunkMs()
	e.session.Transport.Advance(e.session.ChunkMs())
}

func (e *Engine) stagedChunk(channel, offset int) []float32 {
	if channel < 1 || channel > MaxChannels {
		return e.zero
	}
	return e.staged[channel-1][offset : offset+e.chunk]
}

func (e *Engine) record() {
	if e.recorder.Capacity() == 0 {
		return
	}
	copy(e.recL, e.mix[0])
	if len(e.mix) > 1 {
		copy(e.recR, e.mix[1])
	} else {
		copy(e.recR, e.mix[0])
	}
	for i := range e.recPos {
		e.recPos[i] = float32(e.session.Transport.MeasurePos(i))
	}
	e.recorder.Write(e.recL, e.recR, e.recPos)
}

// SetPostEffects replaces the global post effects. Every output channel
// gets its own instances, applied in the given order.
func (e *Engine) SetPostEffects(reg *effects.Registry, names []string) error {
	post := make([][]effects.Effect, len(e.mix))
	for ch := range post {
		for _, n := range names {
			fx, err := reg.New(n, e.session.SampleRate)
			if err != nil {
				return fmt.Errorf("SetPostEffects: %w", err)
			}
			post[ch] = append(post[ch], fx)
		}
	}
	e.post = post
	e.postNames = append([]string(nil), names...)
	return nil
}

func (e *Engine) PostEffects() []string { return e.postNames }

// PostEffect returns the instance of a post effect on an output channel,
// so that its controls can be adjusted.
func (e *Engine) PostEffect(channel int, name string) (effects.Effect, bool) {
	if channel < 1 || channel > len(e.post) {
		return nil, false
	}
	for _, fx := range e.post[channel-1] {
		if fx.Name() == name {
			return fx, true
		}
	}
	return nil, false
}
