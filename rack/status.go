package rack

import (
	"embed"
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/vsariola/patchwork/modules"
)

// Status is a summary of the rack for the console.
type Status struct {
	Title, Layout string
	Tempo         float64
	Measure       int
	MeasurePos    float64
	TimeMs        float64
	Paused        bool
	Modules       []string // labels of the modules in z-order
	Order         []string // names of the audio sources in processing order
	Cables        int
	Recorded      float64 // seconds
	Alerts        []string // currently shown
	Errors        []string
}

//go:embed templates/*
var templateFS embed.FS

var statusTemplate = template.Must(template.New("status").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/status.txt"))

func (r *Rack) Status() Status {
	r.guard.Lock("Status")
	defer r.guard.Unlock()
	s := Status{
		Title:    r.title.Title(),
		Layout:   r.layoutPath,
		Tempo:    r.session.Transport.Tempo(),
		TimeMs:   r.engine.Time(),
		Paused:   r.engine.Paused(),
		Order:    r.sourceOrderLocked(),
		Cables:   len(r.graph.Cables()),
		Recorded: float64(r.engine.Recorder().RecordingLength()) / float64(r.session.SampleRate),
		Errors:   r.alerts.Errors(),
	}
	s.Measure, s.MeasurePos = r.session.Transport.Measure()
	for _, a := range r.alerts.Iterate {
		s.Alerts = append(s.Alerts, a.Message)
	}
	for _, m := range r.graph.Modules {
		if b := m.Base(); !b.IsSingleton() && !b.IsStructural() {
			s.Modules = append(s.Modules, modules.Label(m))
		}
	}
	return s
}

// Print writes the status as a human readable report.
func (s Status) Print(w io.Writer) error {
	if err := statusTemplate.ExecuteTemplate(w, "status.txt", s); err != nil {
		return fmt.Errorf("status template failed: %w", err)
	}
	return nil
}
