// Package graph owns the live set of modules of a session, the patch cables
// between them and the order in which the audio sources are processed.
//
// A Graph is not safe for concurrent use. Every method must be called with
// the session's guard held; the audio engine only reads Order.
package graph

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/vsariola/patchwork"
)

type (
	Graph struct {
		session  *patchwork.Session
		registry *patchwork.Registry

		slots   []slot // slots[0] is never used, so the zero Handle is invalid
		free    []uint32
		live    []patchwork.Handle // in z-order, frontmost last
		handles map[patchwork.Module]patchwork.Handle

		nextCableID int
		plan        atomic.Pointer[plan]

		// MaxOrderPasses bounds the number of passes over the sources when
		// ordering them. Sources that cannot be placed within the bound are
		// appended in their original order.
		MaxOrderPasses int

		removeHooks []func(h patchwork.Handle, m patchwork.Module)
	}

	slot struct {
		generation uint32
		module     patchwork.Module
		caps       patchwork.Caps
		incoming   []*patchwork.Cable // cables targeting this module
	}
)

const DefaultMaxOrderPasses = 1000

// New creates a graph containing the singletons of the session.
func New(session *patchwork.Session, registry *patchwork.Registry) *Graph {
	g := &Graph{
		session:        session,
		registry:       registry,
		slots:          make([]slot, 1),
		handles:        map[patchwork.Module]patchwork.Handle{},
		MaxOrderPasses: DefaultMaxOrderPasses,
	}
	for _, m := range session.Singletons() {
		g.insert(m)
	}
	g.RecomputeOrder()
	return g
}

func (g *Graph) Session() *patchwork.Session   { return g.session }
func (g *Graph) Registry() *patchwork.Registry { return g.registry }

// OnRemove registers a function called for every module removed from the
// graph, after its cables have been torn down and before its handle becomes
// stale.
func (g *Graph) OnRemove(f func(h patchwork.Handle, m patchwork.Module)) {
	g.removeHooks = append(g.removeHooks, f)
}

func (g *Graph) insert(m patchwork.Module) patchwork.Handle {
	var index uint32
	if n := len(g.free); n > 0 {
		index = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		g.slots = append(g.slots, slot{generation: 1})
		index = uint32(len(g.slots) - 1)
	}
	s := &g.slots[index]
	s.module = m
	s.caps = patchwork.CapsOf(m)
	s.incoming = nil
	h := patchwork.Handle{Index: index, Generation: s.generation}
	g.live = append(g.live, h)
	g.handles[m] = h
	if s.caps.Has(patchwork.CapAudioPoller) && !m.Base().IsSingleton() {
		g.session.Transport.AddAudioPoller(m.(patchwork.AudioPoller))
	}
	return h
}

// AddStructural inserts a module that is always present: it survives
// Reset, cannot be removed and is never saved.
func (g *Graph) AddStructural(m patchwork.Module) patchwork.Handle {
	m.Base().SetStructural(true)
	return g.insert(m)
}

func (g *Graph) slot(h patchwork.Handle) (*slot, error) {
	if h.Index == 0 || int(h.Index) >= len(g.slots) {
		return nil, fmt.Errorf("%w: %v", patchwork.ErrStaleHandle, h)
	}
	s := &g.slots[h.Index]
	if s.generation != h.Generation || s.module == nil {
		return nil, fmt.Errorf("%w: %v", patchwork.ErrStaleHandle, h)
	}
	return s, nil
}

// Module resolves a handle.
func (g *Graph) Module(h patchwork.Handle) (patchwork.Module, error) {
	s, err := g.slot(h)
	if err != nil {
		return nil, err
	}
	return s.module, nil
}

// Caps returns the capabilities of the module, resolved when it was added.
func (g *Graph) Caps(h patchwork.Handle) patchwork.Caps {
	s, err := g.slot(h)
	if err != nil {
		return 0
	}
	return s.caps
}

func (g *Graph) HandleOf(m patchwork.Module) (patchwork.Handle, bool) {
	h, ok := g.handles[m]
	return h, ok
}

// Modules iterates the live modules in z-order.
func (g *Graph) Modules(yield func(patchwork.Handle, patchwork.Module) bool) {
	for _, h := range g.live {
		if !yield(h, g.slots[h.Index].module) {
			return
		}
	}
}

func (g *Graph) Len() int { return len(g.live) }

// Create is the first pass of module creation: it constructs the module,
// lets it declare its controls and cable sources, and reads the basic
// fields of the descriptor. References to other modules are not resolved
// yet. Singleton types resolve to the instance of the session.
func (g *Graph) Create(typeName string, desc patchwork.Descriptor) (patchwork.Handle, patchwork.Module, error) {
	if desc == nil {
		desc = patchwork.Descriptor{}
	}
	if m, ok := g.session.Singleton(typeName); ok {
		if x, y, ok := desc.Position(); ok {
			m.Base().SetPosition(x, y)
		}
		return g.handles[m], m, nil
	}
	m, err := g.registry.New(typeName, g.session)
	if err != nil {
		return patchwork.Handle{}, nil, err
	}
	m.CreateControls()
	m.LoadBasics(desc, typeName)
	name := m.Name()
	if name == "" {
		name = typeName
	}
	if _, taken := g.Find(name); taken || m.Name() == "" {
		name = g.UniqueName(name)
	}
	m.SetName(name)
	return g.insert(m), m, nil
}

// Setup is the second pass: the module reads the rest of its descriptor,
// resolving references to other modules by name. Failed references are
// returned joined; the rest of the configuration is still applied.
func (g *Graph) Setup(h patchwork.Handle, desc patchwork.Descriptor) error {
	return g.setup(h, desc, nil)
}

// SetupRenamed is Setup for modules being duplicated: references are
// translated through rename, old name to new name, and references to
// modules missing from rename are ignored.
func (g *Graph) SetupRenamed(h patchwork.Handle, desc patchwork.Descriptor, rename map[string]string) error {
	if rename == nil {
		rename = map[string]string{}
	}
	return g.setup(h, desc, rename)
}

func (g *Graph) setup(h patchwork.Handle, desc patchwork.Descriptor, rename map[string]string) error {
	s, err := g.slot(h)
	if err != nil {
		return err
	}
	if desc == nil {
		desc = patchwork.Descriptor{}
	}
	ctx := &setup{g: g, self: s.module, rename: rename}
	cableErr := s.module.Base().LoadCables(ctx, desc)
	layoutErr := s.module.LoadLayout(ctx, desc)
	if err := errors.Join(cableErr, layoutErr); err != nil {
		return fmt.Errorf("%s: %w", s.module.Name(), err)
	}
	return nil
}

// InitAll is the third pass: Init is called on every module except the
// singletons, which are initialized once per session.
func (g *Graph) InitAll() {
	for _, h := range g.live {
		m := g.slots[h.Index].module
		if !m.Base().IsSingleton() {
			m.Init()
		}
	}
}

// Spawn runs all three passes for a single module and recomputes the order.
// If the module was created but some of its references failed, both the
// handle and the error are returned. Spawning a singleton keeps its
// configuration; it is only moved and brought to the front.
func (g *Graph) Spawn(typeName string, desc patchwork.Descriptor) (patchwork.Handle, patchwork.Module, error) {
	h, m, err := g.Create(typeName, desc)
	if err != nil {
		return h, nil, err
	}
	if m.Base().IsSingleton() {
		return h, m, g.MoveToFront(h)
	}
	err = g.Setup(h, desc)
	m.Init()
	g.RecomputeOrder()
	return h, m, err
}

// Remove tears down every cable owned by the module, then every cable
// targeting it, calls Exit and invalidates the handle. Singletons and
// structural modules cannot be removed.
func (g *Graph) Remove(h patchwork.Handle) error {
	s, err := g.slot(h)
	if err != nil {
		return err
	}
	b := s.module.Base()
	if b.IsSingleton() || b.IsStructural() {
		return fmt.Errorf("%w: %q", patchwork.ErrProtectedModule, b.Name())
	}
	g.destroy(h)
	g.RecomputeOrder()
	return nil
}

func (g *Graph) destroy(h patchwork.Handle) {
	s := &g.slots[h.Index]
	m := s.module
	for _, src := range m.Base().CableSources() {
		for _, c := range append([]*patchwork.Cable(nil), src.Cables()...) {
			g.unlink(c)
		}
	}
	for _, c := range append([]*patchwork.Cable(nil), s.incoming...) {
		g.unlink(c)
	}
	if s.caps.Has(patchwork.CapAudioPoller) {
		g.session.Transport.RemoveAudioPoller(m.(patchwork.AudioPoller))
	}
	for _, l := range g.live {
		if b, ok := g.slots[l.Index].module.(patchwork.ControlBinder); ok && l != h {
			b.UnbindControls(m)
		}
	}
	m.Exit()
	for _, f := range g.removeHooks {
		f(h, m)
	}
	for i, l := range g.live {
		if l == h {
			g.live = append(g.live[:i:i], g.live[i+1:]...)
			break
		}
	}
	delete(g.handles, m)
	s.module = nil
	s.incoming = nil
	s.caps = 0
	s.generation++
	g.free = append(g.free, h.Index)
}

// Reset destroys every module except the singletons and the structural
// modules.
func (g *Graph) Reset() {
	for _, h := range append([]patchwork.Handle(nil), g.live...) {
		b := g.slots[h.Index].module.Base()
		if b.IsSingleton() || b.IsStructural() {
			continue
		}
		g.destroy(h)
	}
	g.RecomputeOrder()
}

// MoveToFront moves the module to the end of the z-order. Sources that do
// not depend on each other are processed in z-order.
func (g *Graph) MoveToFront(h patchwork.Handle) error {
	if _, err := g.slot(h); err != nil {
		return err
	}
	for i, l := range g.live {
		if l == h {
			g.live = append(append(g.live[:i:i], g.live[i+1:]...), h)
			break
		}
	}
	g.RecomputeOrder()
	return nil
}

var trailingDigits = regexp.MustCompile(`\d+$`)

// UniqueName returns a name not used by any module: the prefix, stripped
// of trailing digits, followed by the smallest free positive number.
func (g *Graph) UniqueName(prefix string) string {
	base := trailingDigits.ReplaceAllString(prefix, "")
	if base == "" {
		base = "module"
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i)
		if _, taken := g.Find(name); !taken {
			return name
		}
	}
}

func (g *Graph) logError(msg string) {
	if g.session.Log != nil {
		g.session.Log.Error(msg)
	}
}
