package patchwork

type (
	// CableKind tells which capability the target of a cable must have.
	CableKind int

	// CableSource is an output port of a module. The owning module declares
	// its cable sources in CreateControls; the cables themselves are created
	// and destroyed only by the graph, under the guard. The audio context
	// only reads them.
	CableSource struct {
		// Key is the layout field the targets are stored in, e.g. "target".
		Key   string
		Kind  CableKind
		Multi bool // can have more than one cable

		owner  Module
		cables []*Cable
	}

	// Cable is a directed, capability-typed connection from a CableSource to
	// a target module.
	Cable struct {
		ID     int
		Source *CableSource

		// Inbound is true when the cable was declared in the layout entry of
		// the target rather than the owner; only the side that declared a
		// cable writes it back to the layout.
		Inbound bool

		target Handle
		module Module
	}
)

const (
	AudioCable CableKind = iota
	NoteCable
)

// Required returns the capability a target of this kind must have.
func (k CableKind) Required() Caps {
	if k == NoteCable {
		return CapNoteReceiver
	}
	return CapAudioReceiver
}

func (k CableKind) String() string {
	if k == NoteCable {
		return "note"
	}
	return "audio"
}

func (s *CableSource) Owner() Module    { return s.owner }
func (s *CableSource) Cables() []*Cable { return s.cables }

// AudioTarget returns the target of the first cable as an AudioReceiver, or
// nil if there is none.
func (s *CableSource) AudioTarget() AudioReceiver {
	if s == nil || len(s.cables) == 0 {
		return nil
	}
	r, _ := s.cables[0].module.(AudioReceiver)
	return r
}

// NoteTargets calls yield for every note receiver connected to the source.
func (s *CableSource) NoteTargets(yield func(NoteReceiver) bool) {
	if s == nil {
		return
	}
	for _, c := range s.cables {
		if r, ok := c.module.(NoteReceiver); ok {
			if !yield(r) {
				return
			}
		}
	}
}

// Attach and Detach are used by the graph to maintain the cable list.
func (s *CableSource) Attach(c *Cable) { s.cables = append(s.cables, c) }

func (s *CableSource) Detach(c *Cable) bool {
	for i, e := range s.cables {
		if e == c {
			s.cables = append(s.cables[:i:i], s.cables[i+1:]...)
			return true
		}
	}
	return false
}

func NewCable(id int, src *CableSource, target Handle, module Module, inbound bool) *Cable {
	return &Cable{ID: id, Source: src, target: target, module: module, Inbound: inbound}
}

func (c *Cable) Owner() Module  { return c.Source.owner }
func (c *Cable) Target() Handle { return c.target }
func (c *Cable) Module() Module { return c.module }

// Retarget is used by the graph. The owner of a cable never changes, only
// its target.
func (c *Cable) Retarget(target Handle, module Module) {
	c.target = target
	c.module = module
}
