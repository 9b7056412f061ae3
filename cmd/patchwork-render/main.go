package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vsariola/patchwork"
	"github.com/vsariola/patchwork/cmd"
	"github.com/vsariola/patchwork/rack"
	"github.com/vsariola/patchwork/version"
)

func main() {
	output := flag.String("o", "", "Output .wav file. By default, the layout file name with the .wav extension.")
	seconds := flag.Float64("t", 10, "Length of the rendering in seconds.")
	tempo := flag.Float64("tempo", 0, "Tempo in BPM, overriding the layout.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	prefFlags := cmd.NewPrefFlags()
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}
	prefs := rack.DefaultPrefs()
	prefs.RecordingSeconds = 0
	prefFlags.Apply(&prefs)
	if err := render(flag.Arg(0), *output, *seconds, *tempo, prefs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func render(layout, output string, seconds, tempo float64, prefs rack.Prefs) error {
	r, err := rack.New(prefs, cmd.NewRegistry())
	if err != nil {
		return err
	}
	if err := r.LoadLayout(layout); err != nil {
		return err
	}
	if errs := r.Alerts().Errors(); len(errs) > 0 {
		return fmt.Errorf("layout %v has errors:\n%v", layout, strings.Join(errs, "\n"))
	}
	if tempo > 0 {
		r.SetTempo(tempo)
	}
	if output == "" {
		output = strings.TrimSuffix(layout, filepath.Ext(layout)) + ".wav"
	}
	channels := prefs.OutputChannels
	buffers := make([][]float32, channels)
	for i := range buffers {
		buffers[i] = make([]float32, prefs.IOBufferSize)
	}
	frames := int(seconds * float64(prefs.SampleRate))
	interleaved := make([]float32, 0, (frames+prefs.IOBufferSize)*channels)
	for n := 0; n < frames; n += prefs.IOBufferSize {
		for _, b := range buffers {
			clear(b)
		}
		r.ProcessOutput(buffers)
		for i := range prefs.IOBufferSize {
			for _, b := range buffers {
				interleaved = append(interleaved, b[i])
			}
		}
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("could not create output file %v: %w", output, err)
	}
	defer f.Close()
	return patchwork.WriteWav(f, interleaved[:frames*channels], channels, prefs.SampleRate)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Patchwork offline renderer. Renders a layout to a .wav file.\nUsage: %s [flags] layout\n", os.Args[0])
	flag.PrintDefaults()
}
