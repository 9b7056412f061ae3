package patchwork

type (
	// AudioProcessor renders one I/O buffer of hardware output per call.
	// Each element of out is one output channel; all have the same length.
	AudioProcessor interface {
		ProcessOutput(out [][]float32)
	}

	// AudioOutput is a running hardware stream pulling from an
	// AudioProcessor.
	AudioOutput interface {
		Close() error
	}

	// AudioContext is an audio backend.
	AudioContext interface {
		Play(p AudioProcessor, ioBufferSize int) (AudioOutput, error)
		Close() error
	}
)
