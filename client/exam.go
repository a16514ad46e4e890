package client

import "context"

// ExamService handles exam relevance scoring.
type ExamService struct {
	c *Client
}

type transcriptRequest struct {
	Transcript string `json:"transcript,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Predictions scores every node against an optional lecture transcript.
// limit > 0 returns only the top topics.
func (s *ExamService) Predictions(ctx context.Context, transcript string, limit int) ([]ExamPrediction, error) {
	var resp struct {
		Predictions []ExamPrediction `json:"predictions"`
	}
	if err := s.c.post(ctx, "/api/v1/exam/predictions", transcriptRequest{transcript, limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// Priorities ranks nodes for study.
func (s *ExamService) Priorities(ctx context.Context, transcript string, limit int) ([]StudyPriority, error) {
	var resp struct {
		Priorities []StudyPriority `json:"priorities"`
	}
	if err := s.c.post(ctx, "/api/v1/exam/priorities", transcriptRequest{transcript, limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Priorities, nil
}
