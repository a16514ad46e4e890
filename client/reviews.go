package client

import (
	"context"
	"net/url"
	"strconv"
)

// ReviewService lists scheduled reviews.
type ReviewService struct {
	c *Client
}

type nodesResponse struct {
	Nodes []Node `json:"nodes"`
}

// Due returns nodes due for review, most overdue first.
func (s *ReviewService) Due(ctx context.Context) ([]Node, error) {
	var resp nodesResponse
	if err := s.c.get(ctx, "/api/v1/reviews/due", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// Upcoming returns nodes that become due within hours.
func (s *ReviewService) Upcoming(ctx context.Context, hours int) ([]Node, error) {
	params := url.Values{}
	if hours > 0 {
		params.Set("hours", strconv.Itoa(hours))
	}
	var resp nodesResponse
	if err := s.c.get(ctx, "/api/v1/reviews/upcoming", params, &resp); err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}
