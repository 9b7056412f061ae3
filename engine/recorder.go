package engine

// RingBuffer is a generic ring buffer with buffer and a cursor. The cursor
// points to the slot written next, i.e. to the oldest value once the buffer
// has wrapped.
type RingBuffer[T any] struct {
	Buffer []T
	Cursor int
}

func (r *RingBuffer[T]) WriteWrap(values []T) {
	if len(r.Buffer) == 0 {
		return
	}
	r.Cursor = (r.Cursor + len(values)) % len(r.Buffer)
	a := min(len(values), r.Cursor)                 // how many values to copy before the cursor
	b := min(len(values)-a, len(r.Buffer)-r.Cursor) // how many values to copy to the end of the buffer
	copy(r.Buffer[r.Cursor-a:r.Cursor], values[len(values)-a:])
	copy(r.Buffer[len(r.Buffer)-b:], values[len(values)-a-b:])
}

// Recorder keeps the most recent output of the engine: the left and right
// channels and the position within the measure of every sample.
type Recorder struct {
	left, right, pos RingBuffer[float32]
	filled           int
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{
		left:  RingBuffer[float32]{Buffer: make([]float32, capacity)},
		right: RingBuffer[float32]{Buffer: make([]float32, capacity)},
		pos:   RingBuffer[float32]{Buffer: make([]float32, capacity)},
	}
}

func (r *Recorder) Write(left, right, pos []float32) {
	r.left.WriteWrap(left)
	r.right.WriteWrap(right)
	r.pos.WriteWrap(pos)
	r.filled = min(r.filled+len(left), len(r.left.Buffer))
}

// RecordingLength is the number of recorded stereo frames.
func (r *Recorder) RecordingLength() int { return r.filled }
func (r *Recorder) Capacity() int        { return len(r.left.Buffer) }

func (r *Recorder) Clear() {
	clear(r.left.Buffer)
	clear(r.right.Buffer)
	clear(r.pos.Buffer)
	r.left.Cursor, r.right.Cursor, r.pos.Cursor = 0, 0, 0
	r.filled = 0
}

// oldest calls f for every recorded frame index, oldest first.
func (r *Recorder) oldest(f func(i, j int)) {
	n := len(r.left.Buffer)
	start := (r.left.Cursor - r.filled + n) % max(n, 1)
	for i := 0; i < r.filled; i++ {
		f(i, (start+i)%n)
	}
}

// Snapshot returns the recording as interleaved stereo, oldest first.
func (r *Recorder) Snapshot() []float32 {
	ret := make([]float32, r.filled*2)
	r.oldest(func(i, j int) {
		ret[2*i] = r.left.Buffer[j]
		ret[2*i+1] = r.right.Buffer[j]
	})
	return ret
}

// Positions returns the measure position of every recorded frame, oldest
// first.
func (r *Recorder) Positions() []float32 {
	ret := make([]float32, r.filled)
	r.oldest(func(i, j int) { ret[i] = r.pos.Buffer[j] })
	return ret
}
