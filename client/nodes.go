package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// NodeService covers /nodes: CRUD, similarity lookup and per-node reviews.
type NodeService struct {
	c *Client
}

const nodesPath = "/api/v1/nodes"

func nodePath(id string, sub ...string) string {
	p := nodesPath + "/" + url.PathEscape(id)
	for _, s := range sub {
		p += "/" + s
	}
	return p
}

// List returns one page of nodes. A nil opts lists from the start with the
// server's default page size.
func (s *NodeService) List(ctx context.Context, opts *NodeListOptions) (*NodeList, error) {
	return call[NodeList](ctx, s.c, http.MethodGet, withQuery(nodesPath, opts.values()), nil)
}

func (o *NodeListOptions) values() url.Values {
	if o == nil {
		return nil
	}

	v := url.Values{}
	set := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	set("category", o.Category)
	set("session_id", o.SessionID)
	if o.Limit > 0 {
		set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		set("offset", strconv.Itoa(o.Offset))
	}

	return v
}

// Get fetches one node.
func (s *NodeService) Get(ctx context.Context, id string) (*Node, error) {
	return call[Node](ctx, s.c, http.MethodGet, nodePath(id), nil)
}

// Create adds a node. The server embeds it and links it to its neighbours.
func (s *NodeService) Create(ctx context.Context, req *CreateNodeRequest) (*Node, error) {
	return call[Node](ctx, s.c, http.MethodPost, nodesPath, req)
}

// Update patches label, explanation or category. Text changes re-embed the
// node server-side.
func (s *NodeService) Update(ctx context.Context, id string, req *UpdateNodeRequest) (*Node, error) {
	return call[Node](ctx, s.c, http.MethodPatch, nodePath(id), req)
}

// Delete removes a node; other nodes' references to it are scrubbed.
func (s *NodeService) Delete(ctx context.Context, id string) error {
	return s.c.del(ctx, nodePath(id), nil)
}

// Similar ranks other nodes by embedding similarity to id.
func (s *NodeService) Similar(ctx context.Context, id string, limit int) ([]ScoredNode, error) {
	resp, err := call[struct {
		Nodes []ScoredNode `json:"nodes"`
	}](ctx, s.c, http.MethodGet, withQuery(nodePath(id, "similar"), limitParam(limit)), nil)
	if err != nil {
		return nil, err
	}
	return resp.Nodes, nil
}

// Review records a recall rating from 0 (blackout) to 5 (perfect).
func (s *NodeService) Review(ctx context.Context, id string, quality int) (*ReviewedNode, error) {
	return call[ReviewedNode](ctx, s.c, http.MethodPost, nodePath(id, "review"), map[string]int{"quality": quality})
}

// Reviews returns the node's review log, newest first. Servers without
// persistent storage answer with an empty list.
func (s *NodeService) Reviews(ctx context.Context, id string, limit int) ([]ReviewRecord, error) {
	resp, err := call[struct {
		Reviews []ReviewRecord `json:"reviews"`
	}](ctx, s.c, http.MethodGet, withQuery(nodePath(id, "reviews"), limitParam(limit)), nil)
	if err != nil {
		return nil, err
	}
	return resp.Reviews, nil
}
