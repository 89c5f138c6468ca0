package analysis

import (
	"github.com/gravelbuild/gravel/pkg/model"
	"github.com/gravelbuild/gravel/pkg/telemetry"
)

// Severity classifies a diagnostic event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one diagnostic emitted during analysis, located at the
// target it concerns.
type Event struct {
	// Severity is the event's severity. Error events recorded during
	// construction fail the node.
	Severity Severity

	// Label locates the event at a target.
	Label model.Label

	// Message is the diagnostic text.
	Message string
}

// EventSink accepts located diagnostic events.
type EventSink interface {
	Post(event Event)
}

// StoredEvents buffers events so a construction attempt can be judged
// before anything reaches the user. Events are replayed to the real
// sink only after the attempt's fate is decided.
type StoredEvents struct {
	events    []Event
	hasErrors bool
}

// NewStoredEvents creates an empty buffer.
func NewStoredEvents() *StoredEvents {
	return &StoredEvents{}
}

// Post implements EventSink.
func (s *StoredEvents) Post(event Event) {
	s.events = append(s.events, event)
	if event.Severity == SeverityError {
		s.hasErrors = true
	}
}

// HasErrors reports whether any buffered event is an error.
func (s *StoredEvents) HasErrors() bool {
	return s.hasErrors
}

// Events returns the buffered events in post order.
func (s *StoredEvents) Events() []Event {
	return s.events
}

// ReplayTo forwards every buffered event to another sink.
func (s *StoredEvents) ReplayTo(sink EventSink) {
	if sink == nil {
		return
	}
	for _, e := range s.events {
		sink.Post(e)
	}
}

// MultiSink fans each event out to several sinks in order.
type MultiSink struct {
	sinks []EventSink
}

// NewMultiSink combines sinks into one.
func NewMultiSink(sinks ...EventSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Post implements EventSink.
func (s *MultiSink) Post(event Event) {
	for _, sink := range s.sinks {
		sink.Post(event)
	}
}

// LoggerSink writes events to a structured logger.
type LoggerSink struct {
	log *telemetry.Logger
}

// NewLoggerSink creates a sink that logs each event at its severity.
func NewLoggerSink(log *telemetry.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

// Post implements EventSink.
func (s *LoggerSink) Post(event Event) {
	l := s.log.WithLabel(event.Label.String())
	switch event.Severity {
	case SeverityError:
		l.Error(event.Message)
	case SeverityWarning:
		l.Warn(event.Message)
	default:
		l.Info(event.Message)
	}
}
