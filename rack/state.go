package rack

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vsariola/patchwork"
)

// A state file starts with the revision and the number of blocks. Each
// block is the name of a module, the opaque state written by the module and
// the marker. The marker lets the reader find the next block when a module
// fails to read its own state.
const (
	StateRevision   = 420
	maxStateModules = 1 << 16
	maxHeaderName   = 256
)

var stateMarker = []byte("ryanchallinor")

// SaveState writes the layout to <name>.json and the state of every module
// to <name>, both relative to the data directory.
func (r *Rack) SaveState(name string) error {
	r.guard.Lock("SaveState")
	defer r.guard.Unlock()
	file := r.prefs.DataPath(name)
	if err := r.saveLayoutLocked(file + ".json"); err != nil {
		r.alerts.Error(fmt.Sprintf("could not save state: %v", err))
		return err
	}
	var buf bytes.Buffer
	if err := r.writeStateLocked(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		r.alerts.Error(fmt.Sprintf("could not save state: %v", err))
		return err
	}
	r.alerts.Event("saved state " + name)
	return nil
}

// LoadState reloads the layout saved with the state and then restores the
// state of the modules.
func (r *Rack) LoadState(name string) error {
	file := r.prefs.DataPath(name)
	layout, err := os.ReadFile(file + ".json")
	if err != nil {
		r.alerts.Error(fmt.Sprintf("could not load state: %v", err))
		return err
	}
	state, err := os.ReadFile(file)
	if err != nil {
		r.alerts.Error(fmt.Sprintf("could not load state: %v", err))
		return err
	}
	r.guard.RenderLock()
	defer r.guard.RenderUnlock()
	r.guard.Lock("LoadState")
	defer r.guard.Unlock()
	if err := r.loadLayoutLocked(layout, name+".json"); err != nil {
		return err
	}
	return r.readStateLocked(state)
}

// WriteState writes the state of the current graph.
func (r *Rack) WriteState(w io.Writer) error {
	r.guard.Lock("WriteState")
	defer r.guard.Unlock()
	return r.writeStateLocked(w)
}

func (r *Rack) writeStateLocked(w io.Writer) error {
	var mods []patchwork.Module
	for _, m := range r.graph.Modules {
		if m.Base().Saveable() {
			mods = append(mods, m)
		}
	}
	sw := patchwork.NewStateWriter(w)
	sw.WriteInt(StateRevision)
	sw.WriteInt(len(mods))
	for _, m := range mods {
		sw.WriteString(m.Name())
		m.SaveState(sw)
		sw.WriteBytes(stateMarker)
	}
	return sw.Err()
}

// ReadState restores the state of the modules of the current graph. The
// blocks of modules that fail to read their state are skipped and the
// modules keep the state they had; the returned error then wraps
// ErrStateDesync.
func (r *Rack) ReadState(data []byte) error {
	r.guard.Lock("ReadState")
	defer r.guard.Unlock()
	return r.readStateLocked(data)
}

func (r *Rack) readStateLocked(data []byte) error {
	sr := patchwork.NewStateReader(data)
	rev, err := sr.ReadInt()
	if err != nil {
		return r.stateError(err)
	}
	if rev != StateRevision {
		return r.stateError(fmt.Errorf("%w: revision %d, expected %d", patchwork.ErrStateDesync, rev, StateRevision))
	}
	n, err := sr.ReadInt()
	if err != nil {
		return r.stateError(err)
	}
	if n < 0 || n > maxStateModules {
		return r.stateError(fmt.Errorf("%w: %d modules", patchwork.ErrStateDesync, n))
	}
	restored := map[string]bool{}
	var errs []error
	for i := 0; i < n && !sr.Eof(); i++ {
		start := sr.Pos()
		name, err := sr.ReadString()
		if err != nil {
			errs = append(errs, r.stateError(err))
			r.resync(sr, start+1, restored, "")
			continue
		}
		m, err := r.graph.FindModule(name)
		if err != nil {
			errs = append(errs, r.stateError(fmt.Errorf("%w: state of %v", patchwork.ErrStateDesync, err)))
			r.resync(sr, sr.Pos(), restored, name)
			continue
		}
		if err := readBlock(sr, m); err != nil {
			errs = append(errs, r.stateError(err))
			r.resync(sr, start+1, restored, name)
			continue
		}
		restored[name] = true
	}
	for _, m := range r.graph.Modules {
		m.PostLoadState()
	}
	r.session.Transport.Reset()
	return errors.Join(errs...)
}

func (r *Rack) stateError(err error) error {
	r.alerts.Error(fmt.Sprintf("error loading state: %v", err))
	return err
}

// readBlock reads the state of one module and the marker after it. If
// either fails, the module gets back the state it had before.
func readBlock(sr *patchwork.StateReader, m patchwork.Module) error {
	var snapshot bytes.Buffer
	m.SaveState(patchwork.NewStateWriter(&snapshot))
	err := m.LoadState(sr)
	if err == nil && !sr.HasPrefix(stateMarker) {
		err = fmt.Errorf("%w: no marker after the state of %q at %d", patchwork.ErrStateDesync, m.Name(), sr.Pos())
	}
	if err != nil {
		m.LoadState(patchwork.NewStateReader(snapshot.Bytes()))
		if !errors.Is(err, patchwork.ErrStateDesync) {
			err = fmt.Errorf("%w: %q: %v", patchwork.ErrStateDesync, m.Name(), err)
		}
		return err
	}
	sr.Seek(sr.Pos() + len(stateMarker))
	return nil
}

// resync moves the reader to the earliest of the next marker, which is
// skipped, or the next block of a module that exists and has not been
// restored yet. A header is only a candidate: names of controls inside a
// corrupted block look like headers too, so the block after a candidate is
// read on trial and the scan goes on if that fails.
func (r *Rack) resync(sr *patchwork.StateReader, from int, restored map[string]bool, failed string) {
	for pos := from; ; pos++ {
		sr.Seek(pos)
		if sr.Eof() {
			return
		}
		if sr.HasPrefix(stateMarker) {
			sr.Seek(pos + len(stateMarker))
			return
		}
		name, ok := peekHeader(sr)
		if !ok || name == failed || restored[name] {
			continue
		}
		m, err := r.graph.FindModule(name)
		if err != nil {
			continue
		}
		sr.Seek(pos + 4 + len(name))
		if readBlock(sr, m) == nil {
			sr.Seek(pos)
			return
		}
	}
}

func peekHeader(sr *patchwork.StateReader) (string, bool) {
	b := sr.Peek(4)
	if b == nil {
		return "", false
	}
	n := binary.LittleEndian.Uint32(b)
	if n == 0 || n > maxHeaderName {
		return "", false
	}
	if b = sr.Peek(4 + int(n)); b == nil {
		return "", false
	}
	return string(b[4:]), true
}

// QuickSave and QuickLoad use a fixed state name.
func (r *Rack) QuickSave() error { return r.SaveState(quickSaveName) }
func (r *Rack) QuickLoad() error { return r.LoadState(quickSaveName) }

var quickSaveName = filepath.Join("savestate", "quicksave")
