package trace

import (
	"fmt"
	"sync"
	"time"
)

// Event is one entry of the per-request diagnostic trace returned to the caller.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Log is an append-only ordered event sink. It is passed by reference through
// a single extraction run so the caller can render a progress trace without
// separate observability tooling. Safe for concurrent appends.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// NewLog creates an empty trace log.
func NewLog() *Log {
	return &Log{}
}

func (l *Log) append(level, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Info appends an info-level event.
func (l *Log) Info(format string, args ...interface{}) {
	l.append("info", format, args...)
}

// Warn appends a warn-level event.
func (l *Log) Warn(format string, args ...interface{}) {
	l.append("warn", format, args...)
}

// Error appends an error-level event.
func (l *Log) Error(format string, args ...interface{}) {
	l.append("error", format, args...)
}

// Events returns a copy of the accumulated events in append order.
func (l *Log) Events() []Event {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Messages returns just the event messages, oldest first.
func (l *Log) Messages() []string {
	events := l.Events()
	msgs := make([]string, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, e.Message)
	}
	return msgs
}
