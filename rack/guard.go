package rack

import (
	"sync"
	"sync/atomic"
)

// Guard serializes the audio callback and the control operations. It is
// held by the audio engine for one whole I/O buffer, and by every public
// operation of the Rack for the duration of the operation. It is not
// reentrant: public operations lock it once and call the internal ...Locked
// helpers.
//
// The render lock is taken by whoever draws the modules, and by the
// operations that replace the whole graph. It is always taken before the
// main lock.
type Guard struct {
	mu     sync.Mutex
	render sync.Mutex
	holder atomic.Pointer[string]
}

// Lock acquires the guard. The reason is kept for diagnostics while the
// guard is held.
func (g *Guard) Lock(reason string) {
	g.mu.Lock()
	g.holder.Store(&reason)
}

func (g *Guard) Unlock() {
	g.holder.Store(nil)
	g.mu.Unlock()
}

// Holder returns the reason given by the current holder, or "" if the
// guard is free.
func (g *Guard) Holder() string {
	if r := g.holder.Load(); r != nil {
		return *r
	}
	return ""
}

func (g *Guard) RenderLock()   { g.render.Lock() }
func (g *Guard) RenderUnlock() { g.render.Unlock() }
