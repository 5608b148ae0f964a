package app

import (
	"fmt"
	"strings"
	"time"
)

// eventLogCap bounds the ring; older entries fall off the front.
const eventLogCap = 128

// Event is one recorded failure or notable occurrence during a session.
type Event struct {
	At  time.Time
	Tag string // feed, render, snapshot, clipboard
	Msg string
}

// String formats the event as a fixed-width log line.
//
//	15:04:05 render    worker 2: index out of range
func (e Event) String() string {
	return fmt.Sprintf("%s %-9s %s", e.At.Format("15:04:05"), e.Tag, e.Msg)
}

// EventLog is a bounded ring of session events. Only the coordinator
// goroutine touches it, so there is no locking.
type EventLog struct {
	entries []Event
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Add records an event, evicting the oldest when full.
func (l *EventLog) Add(tag, format string, args ...any) {
	l.entries = append(l.entries, Event{
		At:  time.Now(),
		Tag: tag,
		Msg: fmt.Sprintf(format, args...),
	})
	if len(l.entries) > eventLogCap {
		l.entries = l.entries[len(l.entries)-eventLogCap:]
	}
}

// Recent returns up to n newest entries, oldest first.
func (l *EventLog) Recent(n int) []Event {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	return l.entries[len(l.entries)-n:]
}

// Len returns the number of retained entries.
func (l *EventLog) Len() int { return len(l.entries) }

// Format returns the retained log as one string.
func (l *EventLog) Format() string {
	var sb strings.Builder
	for _, e := range l.entries {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
