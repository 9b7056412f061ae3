package rack

import (
	"log"
	"sync"
	"time"
)

type (
	// Alert is a message shown to the user for a while. Named alerts
	// replace the previous alert with the same name.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
		Duration time.Duration
	}

	AlertPriority int

	// Alerts keeps the currently shown alerts and the log of events and
	// errors. It implements patchwork.Logger.
	Alerts struct {
		mu     sync.Mutex
		alerts []Alert
		events []string
		errors []string
	}
)

const (
	None AlertPriority = iota
	Info
	Warning
	Error
)

const (
	defaultAlertDuration = 3 * time.Second
	maxLogLines          = 1000
)

func (a *Alerts) Add(message string, priority AlertPriority) {
	a.AddAlert(Alert{Priority: priority, Message: message, Duration: defaultAlertDuration})
}

func (a *Alerts) AddNamed(name, message string, priority AlertPriority) {
	a.AddAlert(Alert{Name: name, Priority: priority, Message: message, Duration: defaultAlertDuration})
}

func (a *Alerts) AddAlert(alert Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if alert.Priority >= Warning {
		log.Printf("error: %s", alert.Message)
		a.errors = appendLine(a.errors, alert.Message)
	} else {
		log.Printf("event: %s", alert.Message)
		a.events = appendLine(a.events, alert.Message)
	}
	if alert.Name != "" {
		for i, o := range a.alerts {
			if o.Name == alert.Name {
				a.alerts[i] = alert
				return
			}
		}
	}
	a.alerts = append(a.alerts, alert)
}

func appendLine(lines []string, line string) []string {
	if len(lines) >= maxLogLines {
		lines = append(lines[:0], lines[1:]...)
	}
	return append(lines, line)
}

func (a *Alerts) ClearNamed(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, o := range a.alerts {
		if o.Name == name {
			a.alerts = append(a.alerts[:i], a.alerts[i+1:]...)
			return
		}
	}
}

// Update ages the alerts by d and drops the expired ones. Returns true if
// any alert is still shown.
func (a *Alerts) Update(d time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	kept := a.alerts[:0]
	for _, o := range a.alerts {
		o.Duration -= d
		if o.Duration > 0 {
			kept = append(kept, o)
		}
	}
	a.alerts = kept
	return len(a.alerts) > 0
}

func (a *Alerts) Iterate(yield func(int, Alert) bool) {
	a.mu.Lock()
	alerts := append([]Alert(nil), a.alerts...)
	a.mu.Unlock()
	for i, o := range alerts {
		if !yield(i, o) {
			return
		}
	}
}

// Event and Error implement patchwork.Logger.
func (a *Alerts) Event(msg string) { a.Add(msg, Info) }
func (a *Alerts) Error(msg string) { a.Add(msg, Error) }

func (a *Alerts) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

func (a *Alerts) Errors() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.errors...)
}

func (a *Alerts) ClearErrors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = nil
}

// Clear clears the event and error logs and the shown alerts.
func (a *Alerts) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts, a.events, a.errors = nil, nil, nil
}
