package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultClientTimeout = 10 * time.Second

// Error is a non-2xx response from the daemon.
type Error struct {
	Status  int
	Message string
	Kind    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("daemon api: HTTP %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client calls the daemon HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// BaseURLFromBind turns a listen address such as "127.0.0.1:7487" into a URL.
// Wildcard hosts are dialled on loopback.
func BaseURLFromBind(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return strings.TrimRight(bind, "/")
	}
	switch {
	case strings.HasPrefix(bind, ":"):
		bind = "127.0.0.1" + bind
	case strings.HasPrefix(bind, "0.0.0.0:"):
		bind = "127.0.0.1" + strings.TrimPrefix(bind, "0.0.0.0")
	}
	return "http://" + bind
}

// NewClient builds a client for baseURL. token may be empty.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var out DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit registers a resource.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*SubmitResponse, error) {
	var out SubmitResponse
	if err := c.do(ctx, http.MethodPost, "/api/resources", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches a page of resources, filtered by title when query is set.
func (c *Client) List(ctx context.Context, page int, query string) (*ResourceListResponse, error) {
	values := url.Values{}
	if page > 0 {
		values.Set("page", strconv.Itoa(page))
	}
	if q := strings.TrimSpace(query); q != "" {
		values.Set("q", q)
	}
	path := "/api/resources"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out ResourceListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one resource.
func (c *Client) Get(ctx context.Context, id int64) (*Resource, error) {
	var out ResourceResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/resources/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Resource, nil
}

// Handle fetches a handle that is safe to serve. A stale record fails with
// HTTP 409.
func (c *Client) Handle(ctx context.Context, id int64) (*HandleResponse, error) {
	var out HandleResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/resources/%d/handle", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mirror asks the daemon to mirror a record now.
func (c *Client) Mirror(ctx context.Context, id int64) (*MirrorResponse, error) {
	var out MirrorResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/resources/%d/mirror", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Backfill queues up to limit unmirrored records. A non-positive limit queues
// all of them.
func (c *Client) Backfill(ctx context.Context, limit int) (*BackfillResponse, error) {
	path := "/api/mirror/backfill"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out BackfillResponse
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notify forwards a vault notification.
func (c *Client) Notify(ctx context.Context, req NotificationRequest) (*NotificationResponse, error) {
	var out NotificationResponse
	if err := c.do(ctx, http.MethodPost, "/api/archive/notifications", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var payload ErrorResponse
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); decodeErr == nil {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
