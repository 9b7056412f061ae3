package patchwork

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type (
	// StateWriter writes the little-endian primitives that module states are
	// made of. The first error sticks; later writes are no-ops.
	StateWriter struct {
		w   io.Writer
		err error
		buf [8]byte
	}

	// StateReader reads a state snapshot from memory, so that a corrupted
	// snapshot can be scanned forward byte by byte to resynchronize.
	StateReader struct {
		data []byte
		pos  int
	}
)

// maxStateString bounds the length of the strings in a state, so a corrupted
// length cannot make the reader allocate huge buffers.
const maxStateString = 1 << 16

func NewStateWriter(w io.Writer) *StateWriter { return &StateWriter{w: w} }

func (w *StateWriter) Err() error { return w.err }

func (w *StateWriter) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *StateWriter) WriteInt(v int) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(int32(v)))
	w.write(w.buf[:4])
}

func (w *StateWriter) WriteFloat(v float64) {
	binary.LittleEndian.PutUint64(w.buf[:8], math.Float64bits(v))
	w.write(w.buf[:8])
}

func (w *StateWriter) WriteString(s string) {
	binary.LittleEndian.PutUint32(w.buf[:4], uint32(len(s)))
	w.write(w.buf[:4])
	w.write([]byte(s))
}

func (w *StateWriter) WriteBytes(b []byte) { w.write(b) }

func NewStateReader(data []byte) *StateReader { return &StateReader{data: data} }

func (r *StateReader) Pos() int     { return r.pos }
func (r *StateReader) Seek(pos int) { r.pos = min(max(pos, 0), len(r.data)) }
func (r *StateReader) Eof() bool    { return r.pos >= len(r.data) }
func (r *StateReader) Peek(n int) []byte {
	if r.pos+n > len(r.data) {
		return nil
	}
	return r.data[r.pos : r.pos+n]
}

func (r *StateReader) next(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("%w: unexpected end of state at %d", ErrStateDesync, r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *StateReader) ReadInt() (int, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return int(int32(binary.LittleEndian.Uint32(b))), nil
}

func (r *StateReader) ReadFloat() (float64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (r *StateReader) ReadString() (string, error) {
	b, err := r.next(4)
	if err != nil {
		return "", err
	}
	n := binary.LittleEndian.Uint32(b)
	if n > maxStateString {
		return "", fmt.Errorf("%w: string of length %d at %d", ErrStateDesync, n, r.pos-4)
	}
	s, err := r.next(int(n))
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// HasPrefix reports whether the unread data starts with p.
func (r *StateReader) HasPrefix(p []byte) bool {
	return bytes.HasPrefix(r.data[r.pos:], p)
}
