// Package event defines pipeline lifecycle events and their delivery
// to an explicit set of listeners.
package event

import (
	"log/slog"
	"time"
)

// Type identifies a lifecycle event.
type Type string

const (
	JobStarted       Type = "job:started"
	PhaseStarted     Type = "phase:started"
	TemplateRendered Type = "template:rendered"
	TaskFailed       Type = "task:failed"
	JobCompleted     Type = "job:completed"
)

// Event is one lifecycle notification. Fields beyond Type, Pipeline,
// JobID, and Timestamp are populated per event type.
type Event struct {
	Type      Type      `json:"type"`
	Pipeline  string    `json:"pipeline"`
	JobID     string    `json:"job_id"`
	Phase     string    `json:"phase,omitempty"`
	Template  string    `json:"template,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Output    string    `json:"output,omitempty"`
	Status    string    `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener receives events synchronously, in emission order.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Emitter fans events out to its listeners in registration order. A
// nil *Emitter drops everything, so callers can emit unconditionally.
// A panicking listener is logged and isolated; it never aborts the
// pass that emitted the event.
type Emitter struct {
	logger    *slog.Logger
	listeners []Listener
}

func NewEmitter(logger *slog.Logger, listeners ...Listener) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger, listeners: listeners}
}

func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	for _, l := range e.listeners {
		e.deliver(l, ev)
	}
}

func (e *Emitter) deliver(l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event listener panicked",
				"event_type", ev.Type,
				"job_id", ev.JobID,
				"panic", r)
		}
	}()
	l.OnEvent(ev)
}
