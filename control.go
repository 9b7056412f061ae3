package patchwork

import (
	"fmt"
	"strings"
)

type (
	// Control is a named parameter of a module that can be bound to
	// external automation, e.g. a MIDI controller or an LFO. Controls are
	// addressed with paths of the form "module~control" or
	// "module~child~control".
	Control interface {
		Name() string
		Value() float64
		SetValue(v float64)
		// SetNormalized sets the value from the range 0..1.
		SetNormalized(v float64)
		Range() (min, max float64)
	}

	// FloatControl is a Control with a float value clamped to [Min, Max].
	FloatControl struct {
		name  string
		value float64
		Min   float64
		Max   float64
	}
)

// PathSeparator separates the segments of a control path.
const PathSeparator = "~"

func NewFloatControl(name string, value, min, max float64) *FloatControl {
	c := &FloatControl{name: name, Min: min, Max: max}
	c.SetValue(value)
	return c
}

func (c *FloatControl) Name() string              { return c.name }
func (c *FloatControl) Value() float64            { return c.value }
func (c *FloatControl) Range() (min, max float64) { return c.Min, c.Max }

func (c *FloatControl) SetValue(v float64) {
	if v < c.Min {
		v = c.Min
	}
	if v > c.Max {
		v = c.Max
	}
	c.value = v
}

func (c *FloatControl) SetNormalized(v float64) {
	c.SetValue(c.Min + v*(c.Max-c.Min))
}

// OwnsControl reports whether c is a control of m or of one of its
// children.
func OwnsControl(m Module, c Control) bool {
	for _, o := range m.Base().Controls() {
		if o == c {
			return true
		}
	}
	for _, child := range m.Base().Children() {
		if OwnsControl(child, c) {
			return true
		}
	}
	return false
}

// SplitControlPath splits a control path into the module name, the optional
// child name and the control name.
func SplitControlPath(path string) (module, child, control string, err error) {
	tokens := strings.Split(path, PathSeparator)
	switch len(tokens) {
	case 2:
		return tokens[0], "", tokens[1], nil
	case 3:
		return tokens[0], tokens[1], tokens[2], nil
	}
	return "", "", "", fmt.Errorf("%w: %q", ErrBadControlPath, path)
}

// ControlPath is the inverse of SplitControlPath.
func ControlPath(module, child, control string) string {
	if child == "" {
		return module + PathSeparator + control
	}
	return module + PathSeparator + child + PathSeparator + control
}
