package patchwork

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type (
	// Descriptor is one module entry of a Layout: its type, name, position
	// and the module-specific fields. It is a plain tree so that the same
	// document can be read from and written to both .json and .yml files.
	Descriptor map[string]any

	// Layout is the static, reloadable description of a graph: which
	// modules exist and how they are wired.
	Layout struct {
		Modules []Descriptor `json:"modules" yaml:"modules"`
	}
)

// ReadLayout parses a layout document. JSON is tried first, then YAML; if
// both fail, the error wraps ErrMalformedDocument.
func ReadLayout(b []byte) (Layout, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return Layout{}, fmt.Errorf("%w: empty document", ErrMalformedDocument)
	}
	var layout Layout
	if errJSON := json.Unmarshal(b, &layout); errJSON != nil {
		layout = Layout{}
		if errYaml := yaml.Unmarshal(b, &layout); errYaml != nil {
			return Layout{}, fmt.Errorf("%w: the layout could not be parsed as .json (%v) or .yml (%v)", ErrMalformedDocument, errJSON, errYaml)
		}
	}
	for i, d := range layout.Modules {
		if d == nil {
			return Layout{}, fmt.Errorf("%w: module entry %d is not an object", ErrMalformedDocument, i)
		}
	}
	return layout, nil
}

// Marshal encodes the layout as JSON when the path has a .json extension
// and as YAML otherwise.
func (l Layout) Marshal(path string) ([]byte, error) {
	if l.Modules == nil {
		l.Modules = []Descriptor{}
	}
	if filepath.Ext(path) == ".json" {
		return json.MarshalIndent(l, "", "   ")
	}
	return yaml.Marshal(l)
}

func (d Descriptor) Type() string { return d.String("type") }
func (d Descriptor) Name() string { return d.String("name") }

// CommentedOut reports whether the entry is disabled with "comment_out",
// the annotation mechanism for formats without comments.
func (d Descriptor) CommentedOut() bool { return d.Bool("comment_out") }

func (d Descriptor) Has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d Descriptor) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

func (d Descriptor) Bool(key string) bool {
	if b, ok := d[key].(bool); ok {
		return b
	}
	return false
}

func (d Descriptor) Float(key string, def float64) float64 {
	if f, ok := toFloat(d[key]); ok {
		return f
	}
	return def
}

func (d Descriptor) Int(key string, def int) int {
	if f, ok := toFloat(d[key]); ok {
		return int(f)
	}
	return def
}

// Strings returns the value as a list of strings. A single string is
// returned as a list of one.
func (d Descriptor) Strings(key string) []string {
	switch v := d[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		ret := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				ret = append(ret, s)
			}
		}
		return ret
	}
	return nil
}

// Floats returns the value as a list of numbers, skipping non-numbers.
func (d Descriptor) Floats(key string) []float64 {
	list, ok := d[key].([]any)
	if !ok {
		return nil
	}
	ret := make([]float64, 0, len(list))
	for _, e := range list {
		if f, ok := toFloat(e); ok {
			ret = append(ret, f)
		}
	}
	return ret
}

// List returns the nested entries stored under key, e.g. the effects of a
// chain.
func (d Descriptor) List(key string) []Descriptor {
	list, ok := d[key].([]any)
	if !ok {
		if ds, ok := d[key].([]Descriptor); ok {
			return ds
		}
		return nil
	}
	ret := make([]Descriptor, 0, len(list))
	for _, e := range list {
		switch m := e.(type) {
		case map[string]any:
			ret = append(ret, Descriptor(m))
		case Descriptor:
			ret = append(ret, m)
		}
	}
	return ret
}

func (d Descriptor) Position() (x, y float64, ok bool) {
	p := d.Floats("position")
	if len(p) < 2 {
		return 0, 0, false
	}
	return p[0], p[1], true
}

func (d Descriptor) SetPosition(x, y float64) {
	d["position"] = []any{x, y}
}

func (d Descriptor) Size() (width, height float64, ok bool) {
	s := d.Floats("size")
	if len(s) < 2 {
		return 0, 0, false
	}
	return s[0], s[1], true
}

func (d Descriptor) SetSize(width, height float64) {
	d["size"] = []any{width, height}
}

// Copy returns a deep copy of the descriptor.
func (d Descriptor) Copy() Descriptor {
	return copyValue(map[string]any(d)).(map[string]any)
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		ret := make(map[string]any, len(t))
		for k, e := range t {
			ret[k] = copyValue(e)
		}
		return ret
	case Descriptor:
		return Descriptor(copyValue(map[string]any(t)).(map[string]any))
	case []any:
		ret := make([]any, len(t))
		for i, e := range t {
			ret[i] = copyValue(e)
		}
		return ret
	case []Descriptor:
		ret := make([]any, len(t))
		for i, e := range t {
			ret[i] = copyValue(e)
		}
		return ret
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
