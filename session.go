package patchwork

type (
	// Session holds everything that is shared by all the modules of one
	// running engine. It is constructed once and passed by reference; there
	// is no global state.
	Session struct {
		SampleRate int
		BufferSize int // samples per processing chunk

		Transport *Transport
		Scale     *Scale
		Log       Logger
		Channels  ChannelTable
	}

	// Logger records user-visible log lines. Events are informational;
	// errors are problems the user should know about, e.g. a module that
	// could not be created while loading a layout.
	Logger interface {
		Event(msg string)
		Error(msg string)
	}

	// ChannelTable maps 1-based hardware channel numbers to the modules that
	// own them. A channel has at most one owner and a module owns at most
	// one input and one output channel.
	ChannelTable interface {
		AssignInput(channel int, m AudioReceiver) error
		AssignOutput(channel int, m AudioReceiver) error
		InputOf(m Module) int
		OutputOf(m Module) int
		Release(m Module)
	}

	// Setup is handed to Module.LoadLayout. All the modules of the layout
	// exist when LoadLayout is called, so references can be resolved by
	// name regardless of the order in which the modules were declared.
	Setup interface {
		Session() *Session

		// Connect connects a cable source of the module being set up to
		// the named module.
		Connect(src *CableSource, targetName string) error

		// ConnectFrom connects the cable source stored in the field key of
		// the named module to self. The cable belongs to the source, but
		// only self writes it back to the layout.
		ConnectFrom(sourceName, key string, self Module) error

		FindModule(name string) (Module, error)
		FindControl(path string) (Control, error)
	}
)

// NewSession creates a session with a fresh transport and scale.
func NewSession(sampleRate, bufferSize int, log Logger) *Session {
	s := &Session{
		SampleRate: sampleRate,
		BufferSize: bufferSize,
		Log:        log,
	}
	s.Transport = NewTransport(s)
	s.Scale = NewScale()
	return s
}

// ChunkMs is the duration of one processing chunk in milliseconds.
func (s *Session) ChunkMs() float64 {
	return float64(s.BufferSize) * 1000 / float64(s.SampleRate)
}

// Singletons are the modules that exist exactly once per session and are
// never destroyed by graph resets.
func (s *Session) Singletons() []Module {
	return []Module{s.Transport, s.Scale}
}

// Singleton returns the singleton module for a type name, if any.
func (s *Session) Singleton(typeName string) (Module, bool) {
	for _, m := range s.Singletons() {
		if m.Type() == typeName {
			return m, true
		}
	}
	return nil, false
}
