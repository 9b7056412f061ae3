package graph

import (
	"fmt"

	"github.com/vsariola/patchwork"
)

// Connect creates a cable from src to the target module and recomputes the
// order. A source that is not Multi has at most one cable; connecting it
// again moves the existing cable. Connecting a source twice to the same
// target returns the existing cable.
func (g *Graph) Connect(src *patchwork.CableSource, target patchwork.Handle) (*patchwork.Cable, error) {
	c, err := g.connect(src, target, false)
	if err != nil {
		return nil, err
	}
	g.RecomputeOrder()
	return c, nil
}

func (g *Graph) connect(src *patchwork.CableSource, target patchwork.Handle, inbound bool) (*patchwork.Cable, error) {
	s, err := g.slot(target)
	if err != nil {
		return nil, err
	}
	if !s.caps.Has(src.Kind.Required()) {
		return nil, fmt.Errorf("%w: %q is not a %v target", patchwork.ErrWrongCapability, s.module.Name(), src.Kind)
	}
	for _, c := range src.Cables() {
		if c.Target() == target {
			return c, nil
		}
	}
	if !src.Multi && len(src.Cables()) > 0 {
		c := src.Cables()[0]
		g.retarget(c, target)
		c.Inbound = inbound
		return c, nil
	}
	g.nextCableID++
	c := patchwork.NewCable(g.nextCableID, src, target, s.module, inbound)
	src.Attach(c)
	s.incoming = append(s.incoming, c)
	return c, nil
}

// Disconnect removes the cable and recomputes the order.
func (g *Graph) Disconnect(c *patchwork.Cable) {
	g.unlink(c)
	g.RecomputeOrder()
}

func (g *Graph) unlink(c *patchwork.Cable) {
	c.Source.Detach(c)
	if s, err := g.slot(c.Target()); err == nil {
		s.incoming = removeCable(s.incoming, c)
	}
}

// Retarget moves the cable to a new target and recomputes the order. The
// owner of the cable does not change.
func (g *Graph) Retarget(c *patchwork.Cable, target patchwork.Handle) error {
	s, err := g.slot(target)
	if err != nil {
		return err
	}
	if !s.caps.Has(c.Source.Kind.Required()) {
		return fmt.Errorf("%w: %q is not a %v target", patchwork.ErrWrongCapability, s.module.Name(), c.Source.Kind)
	}
	g.retarget(c, target)
	g.RecomputeOrder()
	return nil
}

func (g *Graph) retarget(c *patchwork.Cable, target patchwork.Handle) {
	if old, err := g.slot(c.Target()); err == nil {
		old.incoming = removeCable(old.incoming, c)
	}
	s := &g.slots[target.Index]
	c.Retarget(target, s.module)
	s.incoming = append(s.incoming, c)
}

func removeCable(cables []*patchwork.Cable, c *patchwork.Cable) []*patchwork.Cable {
	for i, e := range cables {
		if e == c {
			return append(cables[:i:i], cables[i+1:]...)
		}
	}
	return cables
}

// Cables returns all the cables of the graph, ordered by owner in z-order.
func (g *Graph) Cables() []*patchwork.Cable {
	var ret []*patchwork.Cable
	for _, h := range g.live {
		for _, src := range g.slots[h.Index].module.Base().CableSources() {
			ret = append(ret, src.Cables()...)
		}
	}
	return ret
}

// Incoming returns the cables targeting the module.
func (g *Graph) Incoming(h patchwork.Handle) []*patchwork.Cable {
	s, err := g.slot(h)
	if err != nil {
		return nil
	}
	return s.incoming
}

// CableWatermark is the largest cable ID given so far. Cables created after
// reading the watermark have larger IDs.
func (g *Graph) CableWatermark() int { return g.nextCableID }

// Remap rewrites the cables created after the watermark, i.e. during a
// duplication, using the old→new identity map. A cable from a duplicate to
// a module that was duplicated is moved to the corresponding duplicate.
// Any other new cable touching a duplicate leads outside the duplicated
// set and is dropped. Cables created before the watermark are never
// touched, so the connections of the originals stay as they were.
func (g *Graph) Remap(watermark int, remap map[patchwork.Handle]patchwork.Handle) {
	dups := make(map[patchwork.Handle]bool, len(remap))
	for _, n := range remap {
		dups[n] = true
	}
	for _, c := range g.Cables() {
		if c.ID <= watermark {
			continue
		}
		owner := g.handles[c.Owner()]
		switch n, inside := remap[c.Target()]; {
		case dups[owner] && dups[c.Target()]:
		case dups[owner] && inside:
			if hasCableTo(c.Source, n) {
				g.unlink(c)
			} else {
				g.retarget(c, n)
			}
		case dups[owner] || dups[c.Target()]:
			g.unlink(c)
		}
	}
	g.RecomputeOrder()
}

func hasCableTo(src *patchwork.CableSource, target patchwork.Handle) bool {
	for _, c := range src.Cables() {
		if c.Target() == target {
			return true
		}
	}
	return false
}
