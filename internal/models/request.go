package models

import (
	"strings"
	"time"
)

// Request limits.
const (
	MaxLabelLength       = 500
	MaxExplanationLength = 10000
	MaxImportBatch       = 1000
	MaxTopK              = 50
)

// ConceptInput is one concept extracted from a lecture transcript.
type ConceptInput struct {
	Keyword     string    `json:"keyword" yaml:"keyword" validate:"required,max=500"`
	Explanation string    `json:"explanation" yaml:"explanation" validate:"max=10000"`
	Timestamp   time.Time `json:"timestamp,omitzero" yaml:"timestamp,omitempty"`
}

// ImportRequest is the payload for a bulk concept import.
type ImportRequest struct {
	SessionID string         `json:"session_id" yaml:"session_id" validate:"max=255"`
	Concepts  []ConceptInput `json:"concepts" yaml:"concepts" validate:"required,min=1,max=1000,dive"`
}

// Validate trims keywords and checks the request.
func (r *ImportRequest) Validate() error {
	for i := range r.Concepts {
		r.Concepts[i].Keyword = strings.TrimSpace(r.Concepts[i].Keyword)
	}

	return ValidateStruct(r)
}

// CreateNodeRequest is the payload for creating a single node.
type CreateNodeRequest struct {
	Label       string   `json:"label" validate:"required,max=500"`
	Explanation string   `json:"explanation" validate:"max=10000"`
	Category    Category `json:"category,omitempty" validate:"omitempty,oneof=concept formula example trend definition"`
	SessionID   string   `json:"session_id,omitempty" validate:"max=255"`
	Depth       int      `json:"depth" validate:"min=0"`
	ParentID    string   `json:"parent_id,omitempty" validate:"max=255"`
}

// Validate checks that required fields are present and within limits.
func (r *CreateNodeRequest) Validate() error {
	r.Label = strings.TrimSpace(r.Label)
	if r.Label == "" {
		return ErrMissingLabel
	}

	return ValidateStruct(r)
}

// ToNewNode converts the request into store input.
func (r *CreateNodeRequest) ToNewNode() NewNode {
	return NewNode{
		Label:       r.Label,
		Explanation: r.Explanation,
		Category:    r.Category,
		SessionID:   r.SessionID,
		Depth:       r.Depth,
		ParentID:    r.ParentID,
	}
}

// ReviewRequest records the outcome of one review.
type ReviewRequest struct {
	Quality *int `json:"quality"`
}

// Validate rejects missing or out-of-range quality ratings.
func (r *ReviewRequest) Validate() error {
	if r.Quality == nil || *r.Quality < 0 || *r.Quality > 5 {
		return ErrInvalidQuality
	}

	return nil
}

// QueryRequest is the payload for retrieval queries.
type QueryRequest struct {
	Query string `json:"query" validate:"max=2000"`
	TopK  int    `json:"top_k,omitempty" validate:"min=0,max=50"`
	Limit int    `json:"limit,omitempty" validate:"min=0,max=50"`

	// Transcript is recent lecture text folded into the tutor prompt.
	Transcript string `json:"transcript,omitempty" validate:"max=1000000"`
}

// Validate checks the query text and bounds.
func (r *QueryRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}

	return ValidateStruct(r)
}

// TranscriptRequest carries optional lecture text for exam scoring.
type TranscriptRequest struct {
	Transcript string `json:"transcript" validate:"max=1000000"`
	Limit      int    `json:"limit,omitempty" validate:"min=0,max=1000"`
}

// Validate checks the transcript size.
func (r *TranscriptRequest) Validate() error {
	return ValidateStruct(r)
}
