package rack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vsariola/patchwork"
)

// WriteRecording writes the recorded output of the engine to a wave file.
// If path is empty, the file is named by the current time under the
// recordings directory of the data directory.
func (r *Rack) WriteRecording(path string) (string, error) {
	r.guard.Lock("WriteRecording")
	frames := r.engine.Recorder().Snapshot()
	r.guard.Unlock()
	if len(frames) == 0 {
		err := errors.New("nothing recorded")
		r.alerts.Error(err.Error())
		return "", err
	}
	if path == "" {
		path = filepath.Join("recordings", time.Now().Format("2006-01-02_15-04-05")+".wav")
	}
	file := r.prefs.DataPath(path)
	if err := writeWavFile(file, frames, r.session.SampleRate); err != nil {
		r.alerts.Error(fmt.Sprintf("could not write recording: %v", err))
		return "", err
	}
	r.alerts.Event("wrote recording " + path)
	return file, nil
}

func writeWavFile(file string, frames []float32, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := patchwork.WriteWav(f, frames, 2, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
