package patchwork

import (
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWav encodes interleaved float samples as a 16-bit PCM wave file.
// Samples outside -1..1 are clipped.
func WriteWav(w io.WriteSeeker, interleaved []float32, channels, sampleRate int) error {
	if channels <= 0 {
		return fmt.Errorf("WriteWav: invalid channel count %d", channels)
	}
	enc := wav.NewEncoder(w, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, len(interleaved)),
		SourceBitDepth: 16,
	}
	for i, v := range interleaved {
		buf.Data[i] = clamp(int(v*math.MaxInt16), -math.MaxInt16, math.MaxInt16)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("WriteWav failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("WriteWav failed: %w", err)
	}
	return nil
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
