package rack

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vsariola/patchwork"
)

// Console executes text commands against a rack. Results and reports are
// written to Out.
type Console struct {
	Rack *Rack
	Out  io.Writer
}

var errUsage = errors.New("usage")

// Execute runs one command line. Unknown verbs spawn a module of that type
// at the cursor; the remaining words of a chain command become its
// effects.
func (c *Console) Execute(line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	r := c.Rack
	verb, args := args[0], args[1:]
	switch verb {
	case "load":
		if len(args) != 1 {
			return usage("load <path>")
		}
		return r.LoadLayout(args[0])
	case "save":
		if len(args) > 1 {
			return usage("save [path]")
		}
		return r.SaveLayout(strings.Join(args, ""))
	case "savestate":
		if len(args) != 1 {
			return usage("savestate <name>")
		}
		return r.SaveState(args[0])
	case "loadstate":
		if len(args) != 1 {
			return usage("loadstate <name>")
		}
		return r.LoadState(args[0])
	case "s":
		return r.QuickSave()
	case "l":
		return r.QuickLoad()
	case "clearall":
		r.ClearAll()
	case "tempo":
		if len(args) != 1 {
			return usage("tempo <bpm>")
		}
		bpm, err := strconv.ParseFloat(args[0], 64)
		if err != nil || bpm <= 0 {
			return fmt.Errorf("invalid tempo %q", args[0])
		}
		r.SetTempo(bpm)
	case "write":
		file, err := r.WriteRecording(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.Out, file)
	case "clearerrors":
		r.alerts.ClearErrors()
	case "clear":
		r.alerts.Clear()
	case "resettime":
		r.ResetTime()
	case "delete":
		if len(args) == 0 {
			return usage("delete <name>...")
		}
		if err := r.Delete(args...); err != nil {
			return err
		}
		r.Poll()
	case "duplicate":
		if len(args) == 0 {
			return usage("duplicate <name>...")
		}
		names, err := r.Duplicate(args...)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.Out, strings.Join(names, " "))
	case "connect":
		if len(args) < 2 || len(args) > 3 {
			return usage("connect <src> <dst> [output]")
		}
		var output string
		if len(args) == 3 {
			output = args[2]
		}
		return r.Connect(args[0], output, args[1])
	case "disconnect":
		if len(args) < 1 || len(args) > 2 {
			return usage("disconnect <src> [output]")
		}
		return r.Disconnect(args[0], strings.Join(args[1:], ""))
	case "front":
		if len(args) != 1 {
			return usage("front <name>")
		}
		return r.MoveToFront(args[0])
	case "set":
		if len(args) != 2 {
			return usage("set <module~control> <value>")
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", args[1])
		}
		return r.SetControl(args[0], v)
	case "cursor":
		if len(args) != 2 {
			return usage("cursor <x> <y>")
		}
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return fmt.Errorf("invalid cursor position %q %q", args[0], args[1])
		}
		r.SetCursor(x, y)
	case "status":
		return r.Status().Print(c.Out)
	default:
		desc := patchwork.Descriptor{}
		if verb == "chain" && len(args) > 0 {
			effects := make([]any, len(args))
			for i, a := range args {
				effects[i] = map[string]any{"type": a}
			}
			desc["effects"] = effects
		}
		m, err := r.Spawn(verb, desc)
		if m != nil {
			fmt.Fprintln(c.Out, m.Name())
		}
		return err
	}
	return nil
}

func usage(s string) error { return fmt.Errorf("%w: %s", errUsage, s) }
