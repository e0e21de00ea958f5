// Package backend is a thin client for the task/run API used by the MCP tools.
//
// The client does not retry and does not cache: every failure is returned to
// the caller as-is.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	triggerTaskPath = "/api/v1/tasks/%s/trigger"
	listRunsPath    = "/api/v1/runs"
	retrieveRunPath = "/api/v3/runs/%s"

	// maxErrorBody bounds how much of a failed response is kept on APIError
	maxErrorBody = 64 << 10
)

// Client calls the task/run API with a bearer token
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for baseURL authenticated with accessToken
func New(baseURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TriggerTask starts a run of taskID with the given body
func (c *Client) TriggerTask(ctx context.Context, taskID string, body TriggerTaskBody) (Record, error) {
	var out Record
	path := fmt.Sprintf(triggerTaskPath, url.PathEscape(taskID))
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, fmt.Errorf("trigger task %s: %w", taskID, err)
	}
	return out, nil
}

// ListRuns returns one page of runs matching filters
func (c *Client) ListRuns(ctx context.Context, filters ListRunsFilters) (*RunList, error) {
	var out RunList
	if err := c.do(ctx, http.MethodGet, listRunsPath, filters.Query(), nil, &out); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if out.Data == nil {
		out.Data = []Record{}
	}
	return &out, nil
}

// RetrieveRun returns a single run
func (c *Client) RetrieveRun(ctx context.Context, runID string) (Record, error) {
	var out Record
	path := fmt.Sprintf(retrieveRunPath, url.PathEscape(runID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		apiErr.Body = data
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
