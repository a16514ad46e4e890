// Package models defines data types for the knowledge graph.
package models

import (
	"slices"
	"time"
)

// Category is the discrete tag assigned to a concept at creation time.
type Category string

// Known categories.
const (
	CategoryConcept    Category = "concept"
	CategoryFormula    Category = "formula"
	CategoryExample    Category = "example"
	CategoryTrend      Category = "trend"
	CategoryDefinition Category = "definition"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryConcept,
	CategoryFormula,
	CategoryExample,
	CategoryTrend,
	CategoryDefinition,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Connection is a similarity-derived edge to another node.
type Connection struct {
	TargetID string  `json:"target_id"`
	Strength float64 `json:"strength"`
}

// SRSItem is the SM-2 scheduling state embedded in every node.
type SRSItem struct {
	EaseFactor  float64   `json:"ease_factor"`
	Interval    int       `json:"interval"`
	Repetitions int       `json:"repetitions"`
	LastReview  time.Time `json:"last_review"`
	NextReview  time.Time `json:"next_review"`
	Mastery     float64   `json:"mastery"`
}

// Reviewed reports whether the item has been reviewed at least once.
func (s SRSItem) Reviewed() bool {
	return !s.LastReview.IsZero()
}

// Node is one discovered concept in the semantic graph.
type Node struct {
	ID              string       `json:"id"`
	Label           string       `json:"label"`
	Explanation     string       `json:"explanation"`
	Category        Category     `json:"category"`
	Embedding       []float64    `json:"embedding,omitempty"`
	SRS             SRSItem      `json:"srs"`
	Depth           int          `json:"depth"`
	ParentID        string       `json:"parent_id,omitempty"`
	ChildIDs        []string     `json:"child_ids,omitempty"`
	Connections     []Connection `json:"connections"`
	Timestamp       time.Time    `json:"timestamp"`
	SessionID       string       `json:"session_id,omitempty"`
	ExamProbability *float64     `json:"exam_probability,omitempty"`
}

// EmbeddingText returns the text to embed for this node: "label: explanation".
func (n *Node) EmbeddingText() string {
	return EmbeddingText(n.Label, n.Explanation)
}

// EmbeddingText joins a label and explanation the way nodes are embedded.
func EmbeddingText(label, explanation string) string {
	return label + ": " + explanation
}

// Clone returns a deep copy of the node so callers never alias store state.
func (n *Node) Clone() Node {
	out := *n
	out.Embedding = slices.Clone(n.Embedding)
	out.ChildIDs = slices.Clone(n.ChildIDs)
	out.Connections = slices.Clone(n.Connections)

	if n.ExamProbability != nil {
		p := *n.ExamProbability
		out.ExamProbability = &p
	}

	return out
}

// ConnectedTo reports whether the node holds a connection to targetID.
func (n *Node) ConnectedTo(targetID string) bool {
	for _, c := range n.Connections {
		if c.TargetID == targetID {
			return true
		}
	}

	return false
}

// ScoredNode pairs a Node with a similarity score.
type ScoredNode struct {
	Node
	Similarity float64 `json:"similarity"`
}

// NewNode describes a node to be created. Embedding and SRS state are filled
// in by the store.
type NewNode struct {
	Label       string
	Explanation string
	Category    Category
	SessionID   string
	Depth       int
	ParentID    string
	Timestamp   time.Time
}

// NodePatch is a merge patch for a node. Nil fields are left untouched.
type NodePatch struct {
	Label           *string   `json:"label,omitempty" validate:"omitempty,min=1,max=500"`
	Explanation     *string   `json:"explanation,omitempty" validate:"omitempty,max=10000"`
	Category        *Category `json:"category,omitempty" validate:"omitempty,oneof=concept formula example trend definition"`
	Depth           *int      `json:"depth,omitempty" validate:"omitempty,min=0"`
	ParentID        *string   `json:"parent_id,omitempty"`
	ChildIDs        []string  `json:"child_ids,omitempty"`
	SessionID       *string   `json:"session_id,omitempty"`
	ExamProbability *float64  `json:"exam_probability,omitempty" validate:"omitempty,min=0,max=1"`
}

// TouchesText reports whether the patch changes the embedded text.
func (p *NodePatch) TouchesText() bool {
	return p.Label != nil || p.Explanation != nil
}
