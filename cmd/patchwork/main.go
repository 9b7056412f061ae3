package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"golang.org/x/term"

	"github.com/vsariola/patchwork/cmd"
	"github.com/vsariola/patchwork/oto"
	"github.com/vsariola/patchwork/rack"
	"github.com/vsariola/patchwork/version"
)

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var versionFlag = flag.Bool("v", false, "Print version.")

const pollInterval = 10 * time.Millisecond

func main() {
	prefFlags := cmd.NewPrefFlags()
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
		}()
	}
	prefs, prefsErr := rack.LoadPrefs()
	prefFlags.Apply(&prefs)
	r, err := rack.New(prefs, cmd.NewRegistry())
	if err != nil {
		log.Fatal("could not create the rack: ", err)
	}
	if prefsErr != nil {
		r.Alerts().Error(prefsErr.Error())
	}
	audioContext, err := oto.NewContext(prefs.SampleRate, prefs.OutputChannels)
	if err != nil {
		log.Fatal(err)
	}
	defer audioContext.Close()
	midiContext := cmd.NewMidiContext(r.MidiChannel())
	defer midiContext.Close()
	if prefs.MidiInput != "" {
		r.OpenMidiInput(midiContext, prefs.MidiInput)
	}
	if a := flag.Args(); len(a) > 0 {
		r.LoadLayout(a[0])
	} else if prefs.Layout != "" {
		r.LoadLayout(prefs.Layout)
	}
	output, err := audioContext.Play(r, prefs.IOBufferSize)
	if err != nil {
		log.Fatal(err)
	}
	defer output.Close()

	in, out, restore := openConsole()
	defer restore()
	lines := make(chan string)
	go func() {
		for {
			line, err := in()
			if err != nil {
				lines <- "quit"
				return
			}
			lines <- line
		}
	}()
	console := &rack.Console{Rack: r, Out: out}
	last := time.Now()
	for {
		line, ok := rack.TimeoutReceive(lines, pollInterval)
		r.Poll()
		now := time.Now()
		r.Alerts().Update(now.Sub(last))
		last = now
		if !ok {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := console.Execute(line); err != nil {
			fmt.Fprintln(out, err)
		}
	}
	if path, err := rack.PrefsPath(); err == nil {
		if err := r.Prefs().Save(path); err != nil {
			log.Printf("could not save prefs: %v", err)
		}
	}
}

// openConsole returns a line reader and the output of the console. On a
// terminal, the line editor of x/term is used and the log is routed through
// it.
func openConsole() (readLine func() (string, error), out io.Writer, restore func()) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		s := bufio.NewScanner(os.Stdin)
		return func() (string, error) {
			if !s.Scan() {
				if s.Err() != nil {
					return "", s.Err()
				}
				return "", io.EOF
			}
			return s.Text(), nil
		}, os.Stdout, func() {}
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		log.Fatal("could not set the terminal to raw mode: ", err)
	}
	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, "> ")
	log.SetOutput(t)
	return t.ReadLine, t, func() {
		log.SetOutput(os.Stderr)
		term.Restore(fd, oldState)
	}
}
