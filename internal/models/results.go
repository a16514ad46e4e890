package models

import "time"

// Stats is an aggregate view over the node collection.
type Stats struct {
	Total          int     `json:"total"`
	New            int     `json:"new"`
	Mastered       int     `json:"mastered"`
	Learning       int     `json:"learning"`
	DueNow         int     `json:"due_now"`
	AverageMastery float64 `json:"average_mastery"`
}

// RAGContext is the retrieval context assembled for a query.
type RAGContext struct {
	RelevantNodes     []Node  `json:"relevant_nodes"`
	PrerequisiteChain []Node  `json:"prerequisite_chain"`
	SuggestedReview   []Node  `json:"suggested_review"`
	Confidence        float64 `json:"confidence"`
}

// LearningPath is an ordered study plan toward a goal concept.
type LearningPath struct {
	Path             []Node `json:"path"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

// ConceptSuggestion is a related concept worth studying next.
type ConceptSuggestion struct {
	Node   Node   `json:"node"`
	Reason string `json:"reason"`
}

// Confidence buckets for exam predictions.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ExamFactors are the independent inputs to an exam probability.
type ExamFactors struct {
	ProfessorEmphasis float64 `json:"professor_emphasis"`
	ConceptCentrality float64 `json:"concept_centrality"`
	SyllabusAlignment float64 `json:"syllabus_alignment"`
	RecencyWeight     float64 `json:"recency_weight"`
	ComplexityScore   float64 `json:"complexity_score"`
}

// ExamPrediction is the exam relevance of a single node.
type ExamPrediction struct {
	NodeID      string      `json:"node_id"`
	Label       string      `json:"label"`
	Probability float64     `json:"probability"`
	Confidence  string      `json:"confidence"`
	Reasons     []string    `json:"reasons"`
	Factors     ExamFactors `json:"factors"`
}

// Priority is a study priority bucket.
type Priority string

// Priority buckets, most severe first.
const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities from most to least severe.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

// StudyPriority ranks a node for study.
type StudyPriority struct {
	NodeID   string   `json:"node_id"`
	Label    string   `json:"label"`
	Priority Priority `json:"priority"`
	Score    float64  `json:"score"`
	Reason   string   `json:"reason"`
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
