// Package eventlog holds the session-scoped record of emergency events.
//
// A single Log instance is created by the application and injected into the
// components that produce events (dispatcher, notification listener) and the
// ones that read them (control API). It is never exposed as a package global.
package eventlog

import (
	"errors"
	"sync"

	"unidelas/safety-agent/internal/model"
)

// ErrIncompleteEvent is returned when an event misses its id, sender name,
// or valid coordinates.
var ErrIncompleteEvent = errors.New("emergency event missing required fields")

// Log is an append-only, newest-first sequence of emergency events. It lives
// only for the duration of the process and is safe for concurrent use.
type Log struct {
	mu     sync.RWMutex
	events []model.EmergencyEvent
}

// New returns an empty log.
func New() *Log {
	return &Log{}
}

// Append prepends the event so readers always see the most recent alert
// first. Incomplete events are rejected so every consumer can rely on a
// sender name and numeric coordinates being present.
func (l *Log) Append(e model.EmergencyEvent) error {
	if !e.Complete() {
		return ErrIncompleteEvent
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]model.EmergencyEvent, 0, len(l.events)+1)
	next = append(next, e)
	next = append(next, l.events...)
	l.events = next
	return nil
}

// Clear empties the log. Calling Clear on an empty log is a no-op.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Events returns a copy of the current sequence, newest first.
func (l *Log) Events() []model.EmergencyEvent {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.EmergencyEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of events observed this session.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}
