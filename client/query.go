package client

import (
	"context"
	"net/http"
)

// ConceptService ingests lecture concepts.
type ConceptService struct {
	c *Client
}

// Import creates one node per concept.
func (s *ConceptService) Import(ctx context.Context, req *ImportConceptsRequest) (*ImportConceptsResponse, error) {
	var resp ImportConceptsResponse
	if err := s.c.post(ctx, "/api/v1/concepts/import", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryService handles retrieval endpoints.
type QueryService struct {
	c *Client
}

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
	Limit int    `json:"limit,omitempty"`

	Transcript string `json:"transcript,omitempty"`
}

// Ask builds the retrieval context for a question. topK <= 0 uses the server default.
func (s *QueryService) Ask(ctx context.Context, question string, topK int) (*QueryResult, error) {
	var resp QueryResult
	if err := s.c.post(ctx, "/api/v1/query", queryRequest{Query: question, TopK: topK}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tutor is Ask with recent lecture text. The result's TutorPrompt folds the
// transcript tail into a prompt ready for an LLM.
func (s *QueryService) Tutor(ctx context.Context, question, transcript string, topK int) (*QueryResult, error) {
	return call[QueryResult](ctx, s.c, http.MethodPost, "/api/v1/query",
		queryRequest{Query: question, TopK: topK, Transcript: transcript})
}

// LearningPath returns a study plan toward goal.
func (s *QueryService) LearningPath(ctx context.Context, goal string) (*LearningPath, error) {
	var resp LearningPath
	if err := s.c.post(ctx, "/api/v1/query/learning-path", queryRequest{Query: goal}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggest returns concepts worth studying after topic.
func (s *QueryService) Suggest(ctx context.Context, topic string, limit int) ([]Suggestion, error) {
	var resp struct {
		Suggestions []Suggestion `json:"suggestions"`
	}
	if err := s.c.post(ctx, "/api/v1/query/suggest", queryRequest{Query: topic, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Suggestions, nil
}
