package rack

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Prefs are the user preferences, read from prefs.yml in the config
// directory. Missing fields keep their default values.
type Prefs struct {
	SampleRate       int      `yaml:"samplerate"`
	BufferSize       int      `yaml:"buffersize"`   // samples per processing chunk
	IOBufferSize     int      `yaml:"iobuffersize"` // samples per hardware buffer
	InputChannels    int      `yaml:"inputchannels"`
	OutputChannels   int      `yaml:"outputchannels"`
	RecordingSeconds int      `yaml:"recordingseconds"`
	Layout           string   `yaml:"layout"`
	PostEffects      []string `yaml:"posteffects,flow"`
	DataDir          string   `yaml:"datadir"`
	MidiInput        string   `yaml:"midiinput"`
}

//go:embed prefs.yml
var defaultPrefsYaml []byte

func DefaultPrefs() Prefs {
	var prefs Prefs
	dec := yaml.NewDecoder(bytes.NewReader(defaultPrefsYaml))
	dec.KnownFields(true)
	if err := dec.Decode(&prefs); err != nil {
		panic(fmt.Errorf("failed to unmarshal default prefs: %w", err))
	}
	return prefs
}

// PrefsPath returns the location of the custom prefs file.
func PrefsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "Patchwork", "prefs.yml"), nil
}

// LoadPrefs reads the custom prefs on top of the defaults. The defaults
// are returned along with the error if the custom prefs cannot be read.
func LoadPrefs() (Prefs, error) {
	path, err := PrefsPath()
	if err != nil {
		return DefaultPrefs(), err
	}
	return ReadPrefs(path)
}

func ReadPrefs(path string) (Prefs, error) {
	prefs := DefaultPrefs()
	b, err := os.ReadFile(path)
	if err != nil {
		return prefs, fmt.Errorf("could not read prefs: %w", err)
	}
	if err := yaml.Unmarshal(b, &prefs); err != nil {
		return DefaultPrefs(), fmt.Errorf("could not parse %s: %w", path, err)
	}
	return prefs, prefs.Validate()
}

func (p Prefs) Validate() error {
	switch {
	case p.SampleRate <= 0:
		return fmt.Errorf("invalid samplerate %d", p.SampleRate)
	case p.BufferSize <= 0 || p.IOBufferSize <= 0 || p.IOBufferSize%p.BufferSize != 0:
		return fmt.Errorf("iobuffersize %d must be a multiple of buffersize %d", p.IOBufferSize, p.BufferSize)
	case p.RecordingSeconds < 0:
		return fmt.Errorf("invalid recordingseconds %d", p.RecordingSeconds)
	}
	return nil
}

func (p Prefs) Save(path string) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// DataPath resolves a path relative to the data directory. Absolute paths
// are returned as they are.
func (p Prefs) DataPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.DataDir, path)
}
