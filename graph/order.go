package graph

import (
	"fmt"
	"strings"

	"github.com/vsariola/patchwork"
)

// plan is everything the audio engine reads per chunk. A new plan is
// published every time the topology changes; published plans are never
// modified.
type plan struct {
	sources   []patchwork.AudioSource
	receivers []patchwork.AudioReceiver
	syncs     []patchwork.SyncInput
}

// Order returns the sources in processing order.
func (g *Graph) Order() []patchwork.AudioSource { return g.plan.Load().sources }

// Receivers returns every module accepting audio.
func (g *Graph) Receivers() []patchwork.AudioReceiver { return g.plan.Load().receivers }

// SyncInputs returns the modules reading auxiliary hardware inputs.
func (g *Graph) SyncInputs() []patchwork.SyncInput { return g.plan.Load().syncs }

// RecomputeOrder orders the audio sources so that every source comes after
// all the sources whose primary or secondary target it is. The remaining
// sources are scanned repeatedly, placing every source whose dependencies
// are already placed. If a pass places nothing, or MaxOrderPasses passes
// have been made, the remaining sources are part of a cycle: they are
// logged and appended in their original order.
func (g *Graph) RecomputeOrder() {
	p := &plan{}
	var sources []patchwork.AudioSource
	for _, h := range g.live {
		s := &g.slots[h.Index]
		if s.caps.Has(patchwork.CapAudioSource) {
			sources = append(sources, s.module.(patchwork.AudioSource))
		}
		if s.caps.Has(patchwork.CapAudioReceiver) {
			p.receivers = append(p.receivers, s.module.(patchwork.AudioReceiver))
		}
		if s.caps.Has(patchwork.CapSyncInput) {
			p.syncs = append(p.syncs, s.module.(patchwork.SyncInput))
		}
	}
	deps := make(map[patchwork.Module][]patchwork.AudioSource, len(sources))
	for _, a := range sources {
		for _, t := range [2]patchwork.AudioReceiver{a.PrimaryTarget(), a.SecondaryTarget()} {
			if t != nil && patchwork.Module(t) != patchwork.Module(a) {
				deps[t] = append(deps[t], a)
			}
		}
	}
	order := make([]patchwork.AudioSource, 0, len(sources))
	placed := make(map[patchwork.Module]bool, len(sources))
	remaining := sources
	for pass := 0; len(remaining) > 0 && pass < g.MaxOrderPasses; pass++ {
		next := remaining[:0:0]
		for _, b := range remaining {
			ready := true
			for _, a := range deps[b] {
				if !placed[a] {
					ready = false
					break
				}
			}
			if ready {
				order = append(order, b)
				placed[b] = true
			} else {
				next = append(next, b)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	if len(remaining) > 0 {
		names := make([]string, len(remaining))
		for i, m := range remaining {
			names[i] = m.Name()
		}
		g.logError(fmt.Sprintf("cycle in the audio graph, processing order of %s is arbitrary", strings.Join(names, ", ")))
		order = append(order, remaining...)
	}
	p.sources = order
	g.plan.Store(p)
}
