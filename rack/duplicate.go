package rack

import (
	"bytes"
	"fmt"

	"github.com/vsariola/patchwork"
)

// duplicateOffset is how far the copies are placed from the originals.
const duplicateOffset = 20

// Duplicate copies the named modules. Each copy gets the layout and the
// state of its original and a unique name. Connections between the
// selected modules are recreated between the copies; the copies get no
// connections to modules outside the selection, and the originals are left
// as they were. Returns the names of the copies.
func (r *Rack) Duplicate(names ...string) ([]string, error) {
	r.guard.Lock("Duplicate")
	defer r.guard.Unlock()
	return r.duplicateLocked(names)
}

func (r *Rack) duplicateLocked(names []string) ([]string, error) {
	type copied struct {
		orig, dup patchwork.Handle
		name      string // of the original
		desc      patchwork.Descriptor
		state     []byte
	}
	var sel []copied
	for _, name := range names {
		h, ok := r.graph.Find(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", patchwork.ErrUnknownModule, name)
		}
		m, _ := r.graph.Module(h)
		if b := m.Base(); b.IsSingleton() || b.IsStructural() {
			return nil, fmt.Errorf("%w: %q cannot be duplicated", patchwork.ErrProtectedModule, name)
		}
		desc, err := r.graph.Describe(h)
		if err != nil {
			return nil, err
		}
		var state bytes.Buffer
		m.SaveState(patchwork.NewStateWriter(&state))
		sel = append(sel, copied{orig: h, name: name, desc: desc, state: state.Bytes()})
	}
	rename := make(map[string]string, len(sel))
	remap := make(map[patchwork.Handle]patchwork.Handle, len(sel))
	for i := range sel {
		c := &sel[i]
		c.desc["name"] = r.graph.UniqueName(c.name)
		if x, y, ok := c.desc.Position(); ok {
			c.desc.SetPosition(x+duplicateOffset, y+duplicateOffset)
		} else {
			c.desc.SetPosition(duplicateOffset, duplicateOffset)
		}
		delete(c.desc, "channel") // the hardware channels stay with the original
		h, _, err := r.graph.Create(c.desc.Type(), c.desc)
		if err != nil {
			return nil, err
		}
		c.dup = h
		rename[c.name] = c.desc.Name()
		remap[c.orig] = h
	}
	watermark := r.graph.CableWatermark()
	for _, c := range sel {
		if err := r.graph.SetupRenamed(c.dup, c.desc, rename); err != nil {
			r.alerts.Error(err.Error())
		}
	}
	r.graph.Remap(watermark, remap)
	ret := make([]string, 0, len(sel))
	for _, c := range sel {
		m, _ := r.graph.Module(c.dup)
		m.Init()
		// the state is restored under the name of the original
		newName := m.Name()
		m.SetName(c.name)
		if err := m.LoadState(patchwork.NewStateReader(c.state)); err != nil {
			r.alerts.Error(fmt.Sprintf("duplicating %q: %v", c.name, err))
		}
		m.SetName(newName)
		m.PostLoadState()
		ret = append(ret, newName)
	}
	r.alerts.Event(fmt.Sprintf("duplicated %v", names))
	return ret, nil
}
