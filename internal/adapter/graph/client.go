// Package graph is a minimal Meta Graph API client shared by the facebook,
// instagram and whatsapp adapters.
package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gosuda/courier/internal/adapter"
)

const defaultHost = "https://graph.facebook.com"

// Client issues JSON requests against one Graph API version.
type Client struct {
	httpClient *http.Client
	baseURL    string
	bearer     string
}

// NewClient builds a client for the given API version (e.g. "v18.0").
func NewClient(apiVersion string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultHost + "/" + apiVersion,
	}
}

// NewClientWithBaseURL builds a client against an explicit base URL.
// Used by tests to point at an httptest server.
func NewClientWithBaseURL(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// WithBearer returns a copy of the client that authenticates with the given
// token in the Authorization header. The Messenger API authenticates through
// a query parameter instead, so the zero value stays header-free.
func (c *Client) WithBearer(token string) *Client {
	clone := *c
	clone.bearer = token
	return &clone
}

// graphError is the Graph API's error envelope.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// PostJSON sends a JSON body to path with optional query parameters and
// decodes the JSON response. Non-2xx responses are returned as
// *adapter.PlatformError carrying the Graph-reported message.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, body any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("graph.Client.PostJSON: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(path, query), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("graph.Client.PostJSON: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

// Get issues a GET against path with query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(path, query), nil)
	if err != nil {
		return nil, fmt.Errorf("graph.Client.Get: %w", err)
	}

	return c.do(req)
}

func (c *Client) requestURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(req *http.Request) (map[string]any, error) {
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph.Client: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("graph.Client: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge graphError
		// A non-JSON error body still yields a PlatformError, just
		// without a platform message.
		_ = json.Unmarshal(raw, &ge)
		return nil, &adapter.PlatformError{StatusCode: resp.StatusCode, Message: ge.Error.Message}
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("graph.Client: decode response: %w", err)
	}

	return data, nil
}
