package ws

import (
	"encoding/json"
	"strings"
	"time"
)

// Event is one graph change as delivered over the feed.
type Event struct {
	Type string          `json:"type"`
	ID   uint64          `json:"id"`
	Data json.RawMessage `json:"data"`
	Time time.Time       `json:"time"`
}

// SubscribeMsg is the only message a client sends. LastEventID asks for
// replay of everything after it; Events narrows delivery to the listed
// event types, where a trailing ".*" matches a whole family ("node.*").
// An empty Events list receives everything.
type SubscribeMsg struct {
	Type        string   `json:"type"`
	LastEventID uint64   `json:"last_event_id"`
	Events      []string `json:"events,omitempty"`
}

// ControlMsg is a server-originated message that is not an Event: "reset"
// when replay cannot be satisfied, "shutdown" while the server drains.
type ControlMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// eventFilter matches event types against subscription patterns.
type eventFilter struct {
	exact    map[string]struct{}
	prefixes []string
}

// newEventFilter returns nil for an empty pattern list, meaning no filtering.
func newEventFilter(patterns []string) *eventFilter {
	if len(patterns) == 0 {
		return nil
	}

	f := &eventFilter{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		if family, ok := strings.CutSuffix(p, "*"); ok {
			f.prefixes = append(f.prefixes, family)
			continue
		}
		f.exact[p] = struct{}{}
	}

	return f
}

func (f *eventFilter) match(eventType string) bool {
	if f == nil {
		return true
	}

	if _, ok := f.exact[eventType]; ok {
		return true
	}

	for _, p := range f.prefixes {
		if strings.HasPrefix(eventType, p) {
			return true
		}
	}

	return false
}
