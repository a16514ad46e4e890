package ws

import (
	"slices"
	"sync"
	"time"
)

const (
	defaultBufferMaxLen = 1000
	defaultBufferMaxAge = time.Hour
)

// EventBuffer is the replay window: the most recent events, bounded both
// by count and by age. Events are appended in ID order, so lookups by ID
// are binary searches.
type EventBuffer struct {
	mu     sync.RWMutex
	window []Event
	maxLen int
	maxAge time.Duration
	now    func() time.Time
}

// NewEventBuffer creates an empty buffer holding at most maxLen events no
// older than maxAge.
func NewEventBuffer(maxLen int, maxAge time.Duration) *EventBuffer {
	return &EventBuffer{maxLen: maxLen, maxAge: maxAge, now: time.Now}
}

// Append adds evt and evicts whatever falls outside the window. Eviction
// happens only here; an idle buffer keeps stale events until the next
// append.
func (eb *EventBuffer) Append(evt *Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	cutoff := eb.now().Add(-eb.maxAge)
	fresh := slices.IndexFunc(eb.window, func(e Event) bool { return !e.Time.Before(cutoff) })
	if fresh < 0 {
		fresh = len(eb.window)
	}

	keep := append(eb.window[fresh:], *evt)
	if over := len(keep) - eb.maxLen; over > 0 {
		keep = keep[over:]
	}

	eb.window = keep
}

// Since returns a copy of the events with ID greater than lastEventID.
func (eb *EventBuffer) Since(lastEventID uint64) []Event {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	i, found := slices.BinarySearchFunc(eb.window, lastEventID, func(e Event, id uint64) int {
		switch {
		case e.ID < id:
			return -1
		case e.ID > id:
			return 1
		}
		return 0
	})
	if found {
		i++
	}

	if i >= len(eb.window) {
		return nil
	}

	return slices.Clone(eb.window[i:])
}

// OldestID is the ID of the oldest retained event, 0 when empty.
func (eb *EventBuffer) OldestID() uint64 {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if len(eb.window) == 0 {
		return 0
	}

	return eb.window[0].ID
}

// Len reports how many events are retained.
func (eb *EventBuffer) Len() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	return len(eb.window)
}
