package rack

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vsariola/patchwork"
)

// LoadLayout replaces the graph with the layout read from path, relative to
// the data directory.
func (r *Rack) LoadLayout(path string) error {
	data, err := os.ReadFile(r.prefs.DataPath(path))
	if err != nil {
		r.alerts.Error(fmt.Sprintf("could not read layout: %v", err))
		return err
	}
	return r.LoadLayoutData(data, path)
}

// LoadLayoutData replaces the graph with the layout document in data. If the
// document cannot be parsed, the graph is left empty and the error wraps
// ErrMalformedDocument. Modules that cannot be created or set up are
// reported as errors and the load goes on without them.
func (r *Rack) LoadLayoutData(data []byte, path string) error {
	r.guard.RenderLock()
	defer r.guard.RenderUnlock()
	r.guard.Lock("LoadLayout")
	defer r.guard.Unlock()
	return r.loadLayoutLocked(data, path)
}

func (r *Rack) loadLayoutLocked(data []byte, path string) error {
	r.clearLocked()
	layout, err := patchwork.ReadLayout(data)
	if err != nil {
		r.alerts.Error(err.Error())
		return err
	}
	type entry struct {
		h    patchwork.Handle
		desc patchwork.Descriptor
	}
	var created []entry
	for _, desc := range layout.Modules {
		if desc.CommentedOut() {
			continue
		}
		h, _, err := r.graph.Create(desc.Type(), desc)
		if err != nil {
			r.alerts.Error(fmt.Sprintf("could not create module %q: %v", desc.Name(), err))
			continue
		}
		created = append(created, entry{h, desc})
	}
	for _, e := range created {
		if err := r.graph.Setup(e.h, e.desc); err != nil {
			r.alerts.Error(err.Error())
		}
	}
	r.graph.InitAll()
	r.graph.RecomputeOrder()
	r.layoutPath = path
	r.title.SetTitle(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	r.alerts.Event("loaded layout " + path)
	return nil
}

// SaveLayout writes the layout to path, or to the path of the last loaded
// or saved layout if path is empty. The path is remembered in the prefs.
func (r *Rack) SaveLayout(path string) error {
	r.guard.Lock("SaveLayout")
	defer r.guard.Unlock()
	if path == "" {
		path = r.layoutPath
	}
	if path == "" {
		return errors.New("no layout path")
	}
	if err := r.saveLayoutLocked(r.prefs.DataPath(path)); err != nil {
		r.alerts.Error(fmt.Sprintf("could not save layout: %v", err))
		return err
	}
	r.layoutPath = path
	r.prefs.Layout = path
	r.alerts.Event("saved layout " + path)
	return nil
}

func (r *Rack) saveLayoutLocked(file string) error {
	data, err := r.layoutLocked().Marshal(file)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return os.WriteFile(file, data, 0644)
}

// Layout returns the layout document of the current graph.
func (r *Rack) Layout() patchwork.Layout {
	r.guard.Lock("Layout")
	defer r.guard.Unlock()
	return r.layoutLocked()
}

// layoutLocked describes the saveable modules sorted by name. Singletons
// are left out while they have their default settings.
func (r *Rack) layoutLocked() patchwork.Layout {
	var l patchwork.Layout
	for h, m := range r.graph.Modules {
		if !m.Base().Saveable() {
			continue
		}
		desc, err := r.graph.Describe(h)
		if err != nil {
			continue
		}
		if m.Base().IsSingleton() && len(desc) <= 2 {
			continue
		}
		l.Modules = append(l.Modules, desc)
	}
	sort.SliceStable(l.Modules, func(i, j int) bool { return l.Modules[i].Name() < l.Modules[j].Name() })
	return l
}

func (r *Rack) LayoutPath() string {
	r.guard.Lock("LayoutPath")
	defer r.guard.Unlock()
	return r.layoutPath
}
