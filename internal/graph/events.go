package graph

// Event types published by the store.
const (
	EventNodeCreated  = "node.created"
	EventNodeUpdated  = "node.updated"
	EventNodeRemoved  = "node.removed"
	EventNodeReviewed = "node.reviewed"
	EventGraphRebuilt = "graph.rebuilt"
	EventGraphLoaded  = "graph.loaded"
	EventGraphCleared = "graph.cleared"
	EventExamScored   = "exam.scored"
)

// EventPublisher receives notifications of collection changes. Publish must
// not block and must not call back into the store.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// nopPublisher discards events.
type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// NodeEvent is the payload for single-node events.
type NodeEvent struct {
	NodeID string `json:"node_id"`
	Label  string `json:"label,omitempty"`
}

// ReviewEvent is the payload for node.reviewed.
type ReviewEvent struct {
	NodeID     string  `json:"node_id"`
	Quality    int     `json:"quality"`
	Interval   int     `json:"interval"`
	Mastery    float64 `json:"mastery"`
	NextReview string  `json:"next_review"`
}

// GraphEvent is the payload for whole-collection events.
type GraphEvent struct {
	Nodes       int `json:"nodes"`
	Connections int `json:"connections"`
}
