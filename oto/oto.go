// Package oto plays the output of the engine on the default audio device.
package oto

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/vsariola/patchwork"
)

type (
	OtoContext struct {
		ctx      *oto.Context
		channels int
	}

	OtoOutput struct {
		player *oto.Player
	}
)

const bytesPerSample = 4

// NewContext opens the audio device. Only one context can exist per
// process.
func NewContext(sampleRate, channels int) (*OtoContext, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{ctx: ctx, channels: channels}, nil
}

// Play starts pulling audio from p, one I/O buffer of ioBufferSize frames
// at a time.
func (c *OtoContext) Play(p patchwork.AudioProcessor, ioBufferSize int) (patchwork.AudioOutput, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, fmt.Errorf("oto context failed: %w", err)
	}
	player := c.ctx.NewPlayer(NewReader(p, c.channels, ioBufferSize))
	player.SetBufferSize(ioBufferSize * c.channels * bytesPerSample)
	player.Play()
	return &OtoOutput{player: player}, nil
}

func (c *OtoContext) Close() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Close stops the output. The processor is not called after Close returns.
func (o *OtoOutput) Close() error {
	o.player.Pause()
	return nil
}

// Reader renders the processor on demand and serves the rendered audio as
// interleaved 32-bit float little endian bytes.
type Reader struct {
	mu        sync.Mutex
	processor patchwork.AudioProcessor
	out       [][]float32
	pending   []byte
	tmpBuffer []byte
}

func NewReader(p patchwork.AudioProcessor, channels, ioBufferSize int) *Reader {
	out := make([][]float32, channels)
	for i := range out {
		out[i] = make([]float32, ioBufferSize)
	}
	return &Reader{processor: p, out: out}
}

// Read implements io.Reader. It never fails and always fills p.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for n < len(p) {
		if len(r.pending) == 0 {
			for _, ch := range r.out {
				clear(ch)
			}
			r.processor.ProcessOutput(r.out)
			// we reuse the capacity of tmpBuffer by setting its length to
			// zero
			r.tmpBuffer = InterleaveToFloat32LE(r.out, r.tmpBuffer[:0])
			r.pending = r.tmpBuffer
		}
		c := copy(p[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	return n, nil
}
