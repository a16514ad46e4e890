package client

import "time"

// Connection is a similarity edge to another node.
type Connection struct {
	TargetID string  `json:"target_id"`
	Strength float64 `json:"strength"`
}

// SRS is a node's spaced-repetition state.
type SRS struct {
	EaseFactor  float64   `json:"ease_factor"`
	Interval    int       `json:"interval"`
	Repetitions int       `json:"repetitions"`
	LastReview  time.Time `json:"last_review"`
	NextReview  time.Time `json:"next_review"`
	Mastery     float64   `json:"mastery"`
}

// Node is a concept as returned by the API.
type Node struct {
	ID              string       `json:"id"`
	Label           string       `json:"label"`
	Explanation     string       `json:"explanation"`
	Category        string       `json:"category"`
	SRS             SRS          `json:"srs"`
	Depth           int          `json:"depth"`
	ParentID        string       `json:"parent_id,omitempty"`
	ChildIDs        []string     `json:"child_ids,omitempty"`
	Connections     []Connection `json:"connections"`
	Timestamp       time.Time    `json:"timestamp"`
	SessionID       string       `json:"session_id,omitempty"`
	ExamProbability *float64     `json:"exam_probability,omitempty"`
	VisibleMastery  float64      `json:"visible_mastery"`
	MasteryLevel    string       `json:"mastery_level"`
}

// ScoredNode is a node with its similarity to a query or another node.
type ScoredNode struct {
	Node
	Similarity float64 `json:"similarity"`
}

// ReviewedNode is the node state after a review.
type ReviewedNode struct {
	Node
	QualityLabel string `json:"quality_label"`
}

// CreateNodeRequest is the payload for creating a node.
type CreateNodeRequest struct {
	Label       string `json:"label"`
	Explanation string `json:"explanation,omitempty"`
	Category    string `json:"category,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	Depth       int    `json:"depth,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
}

// UpdateNodeRequest is a merge patch. Nil fields are left untouched.
type UpdateNodeRequest struct {
	Label           *string  `json:"label,omitempty"`
	Explanation     *string  `json:"explanation,omitempty"`
	Category        *string  `json:"category,omitempty"`
	Depth           *int     `json:"depth,omitempty"`
	ParentID        *string  `json:"parent_id,omitempty"`
	ChildIDs        []string `json:"child_ids,omitempty"`
	SessionID       *string  `json:"session_id,omitempty"`
	ExamProbability *float64 `json:"exam_probability,omitempty"`
}

// NodeListOptions filters and pages node listings.
type NodeListOptions struct {
	Category  string
	SessionID string
	Limit     int
	Offset    int
}

// NodeList is one page of nodes.
type NodeList struct {
	Nodes   []Node `json:"nodes"`
	Total   int    `json:"total"`
	HasMore bool   `json:"has_more"`
}

// Concept is one extracted lecture concept.
type Concept struct {
	Keyword     string    `json:"keyword" yaml:"keyword"`
	Explanation string    `json:"explanation" yaml:"explanation"`
	Timestamp   time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
}

// ImportConceptsRequest is a batch of concepts from one session.
type ImportConceptsRequest struct {
	SessionID string    `json:"session_id,omitempty" yaml:"session_id"`
	Concepts  []Concept `json:"concepts" yaml:"concepts"`
}

// ImportConceptsResponse lists the created node IDs.
type ImportConceptsResponse struct {
	NodeIDs []string `json:"node_ids"`
	Count   int      `json:"count"`
}

// QueryResult is the retrieval context for a question.
type QueryResult struct {
	RelevantNodes     []Node  `json:"relevant_nodes"`
	PrerequisiteChain []Node  `json:"prerequisite_chain"`
	SuggestedReview   []Node  `json:"suggested_review"`
	Confidence        float64 `json:"confidence"`
	Prompt            string  `json:"prompt"`
	TutorPrompt       string  `json:"tutor_prompt"`
}

// LearningPath is an ordered study plan toward a goal.
type LearningPath struct {
	Path             []Node `json:"path"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// Suggestion is a related concept worth studying next.
type Suggestion struct {
	Node   Node   `json:"node"`
	Reason string `json:"reason"`
}

// ReviewRecord is one entry of a node's review history.
type ReviewRecord struct {
	NodeID     string    `json:"node_id"`
	Quality    int       `json:"quality"`
	EaseFactor float64   `json:"ease_factor"`
	Interval   int       `json:"interval"`
	Mastery    float64   `json:"mastery"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// ExamFactors are the inputs to an exam probability.
type ExamFactors struct {
	ProfessorEmphasis float64 `json:"professor_emphasis"`
	ConceptCentrality float64 `json:"concept_centrality"`
	SyllabusAlignment float64 `json:"syllabus_alignment"`
	RecencyWeight     float64 `json:"recency_weight"`
	ComplexityScore   float64 `json:"complexity_score"`
}

// ExamPrediction is the exam relevance of one node.
type ExamPrediction struct {
	NodeID      string      `json:"node_id"`
	Label       string      `json:"label"`
	Probability float64     `json:"probability"`
	Confidence  string      `json:"confidence"`
	Reasons     []string    `json:"reasons"`
	Factors     ExamFactors `json:"factors"`
}

// StudyPriority ranks a node for study.
type StudyPriority struct {
	NodeID   string  `json:"node_id"`
	Label    string  `json:"label"`
	Priority string  `json:"priority"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
}

// StatsResponse aggregates the collection.
type StatsResponse struct {
	Total          int     `json:"total"`
	New            int     `json:"new"`
	Mastered       int     `json:"mastered"`
	Learning       int     `json:"learning"`
	DueNow         int     `json:"due_now"`
	AverageMastery float64 `json:"average_mastery"`
}

// EmbeddingInfo describes the server's embedding provider.
type EmbeddingInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions"`
	Remote     bool   `json:"remote"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status        string        `json:"status"`
	Version       string        `json:"version"`
	Storage       string        `json:"storage"`
	StorageStatus string        `json:"storage_status"`
	Embeddings    EmbeddingInfo `json:"embeddings"`
	Nodes         int           `json:"nodes"`
	WSClients     int           `json:"ws_clients"`
	UptimeSeconds float64       `json:"uptime_seconds"`
}
