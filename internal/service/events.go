package service

import "github.com/studynexus/nexus/internal/graph"

// Fanout delivers every event to each publisher in order.
type Fanout []graph.EventPublisher

// Publish implements graph.EventPublisher.
func (f Fanout) Publish(eventType string, payload any) {
	for _, p := range f {
		p.Publish(eventType, payload)
	}
}
