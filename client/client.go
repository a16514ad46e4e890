// Package client provides a typed Go SDK for the nexus REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "nexus-go-client"

	// maxRetryWait caps how long a rate-limited request waits before retrying.
	maxRetryWait = 5 * time.Second
)

// Client talks to one nexus server. Endpoints are grouped into services.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int

	Nodes    *NodeService
	Concepts *ConceptService
	Query    *QueryService
	Reviews  *ReviewService
	Exam     *ExamService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimitRetries sets how many times a 429 response is retried after
// the server's Retry-After delay. Zero disables retries.
func WithRateLimitRetries(n int) Option {
	return func(c *Client) { c.retries = max(n, 0) }
}

// New creates a client for the given base URL (e.g. "http://localhost:3030").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		retries:    1,
	}
	for _, o := range opts {
		o(c)
	}

	c.Nodes = &NodeService{c: c}
	c.Concepts = &ConceptService{c: c}
	c.Query = &QueryService{c: c}
	c.Reviews = &ReviewService{c: c}
	c.Exam = &ExamService{c: c}

	return c
}

// Health returns the liveness check response.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/api/v1/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns aggregate collection statistics.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.get(ctx, "/api/v1/stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear deletes every node on the server and returns how many were removed.
func (c *Client) Clear(ctx context.Context) (int, error) {
	resp, err := call[struct {
		Removed int `json:"removed"`
	}](ctx, c, http.MethodDelete, "/api/v1/graph?confirm=true", nil)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Rebuild recomputes every similarity connection on the server.
func (c *Client) Rebuild(ctx context.Context) error {
	return c.post(ctx, "/api/v1/graph/rebuild", nil, nil)
}

// do sends one API call, retrying rate-limited responses, and decodes the
// JSON result into result when it is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		status, respBody, wait, err := c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests && attempt < c.retries && wait <= maxRetryWait {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}

			continue
		}

		if status >= 400 {
			return parseAPIError(status, respBody)
		}

		if result != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}

		return nil
	}
}

// send performs a single request. wait is the server's Retry-After delay.
func (c *Client) send(ctx context.Context, method, path string, payload []byte) (status int, body []byte, wait time.Duration, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("read response: %w", err)
	}

	if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	} else {
		wait = maxRetryWait + 1
	}

	return resp.StatusCode, body, wait, nil
}

// call sends one request and decodes the response into a fresh T.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (*T, error) {
	out := new(T)
	if err := c.do(ctx, method, path, body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

func limitParam(limit int) url.Values {
	if limit <= 0 {
		return nil
	}
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	return c.do(ctx, http.MethodGet, withQuery(path, params), nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

func (c *Client) patch(ctx context.Context, path string, body any, result any) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

func (c *Client) del(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}
