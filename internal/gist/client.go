// Package gist implements a document store on top of the GitHub Gist REST API.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/user/kernel6/internal/types"
)

const (
	DefaultAPIEndpoint = "https://api.github.com"
	DefaultTimeout     = 15 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond

	maxResponseSize = 50 * 1024 * 1024
)

// Client reads and replaces files of a single gist. Each file is one
// document.
type Client struct {
	Token      string
	GistID     string
	BaseURL    string
	HTTPClient *http.Client
	MaxRetries uint64
	RetryDelay time.Duration
}

var _ types.DocumentStore = (*Client)(nil)

// NewClient creates a client for the given gist.
func NewClient(token, gistID string) *Client {
	return &Client{
		Token:      token,
		GistID:     gistID,
		BaseURL:    DefaultAPIEndpoint,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// WithBaseURL returns a copy of the client using a different API endpoint.
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := *c
	cp.BaseURL = baseURL
	return &cp
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s (status %d)", e.Body, e.StatusCode)
}

type gistFile struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gistResponse struct {
	ID    string               `json:"id"`
	Files map[string]*gistFile `json:"files"`
}

type fileUpdate struct {
	Content string `json:"content"`
}

type updateRequest struct {
	Files map[string]fileUpdate `json:"files"`
}

func (c *Client) gistURL() string {
	return c.BaseURL + "/gists/" + c.GistID
}

// GetDocument returns the content of the named gist file, or
// types.ErrDocumentNotFound when the gist has no such file.
func (c *Client) GetDocument(ctx context.Context, name string) ([]byte, error) {
	body, err := c.doRequest(ctx, http.MethodGet, c.gistURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch gist: %w", err)
	}

	var g gistResponse
	if err := json.Unmarshal(body, &g); err != nil {
		return nil, fmt.Errorf("parse gist response: %w", err)
	}

	file, ok := g.Files[name]
	if !ok || file == nil {
		return nil, types.ErrDocumentNotFound
	}
	if file.Truncated && file.RawURL != "" {
		raw, err := c.doRequest(ctx, http.MethodGet, file.RawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch raw gist file: %w", err)
		}
		return raw, nil
	}
	return []byte(file.Content), nil
}

// PutDocument replaces the content of the named gist file.
func (c *Client) PutDocument(ctx context.Context, name string, content []byte) error {
	req := updateRequest{Files: map[string]fileUpdate{name: {Content: string(content)}}}
	if _, err := c.doRequest(ctx, http.MethodPatch, c.gistURL(), req); err != nil {
		return fmt.Errorf("update gist: %w", err)
	}
	return nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.RetryDelay
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)
}

// doRequest performs an authenticated request. Network failures, rate limits
// and 5xx responses are retried with exponential backoff; other errors are
// returned immediately.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
	}

	var respBody []byte
	op := func() error {
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %w", types.ErrTransport, err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: read response: %w", types.ErrTransport, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(data)}
			if retryable(resp) {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		respBody = data
		return nil
	}

	if err := backoff.Retry(op, c.newBackOff(ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}

// retryable reports whether a failed response is worth retrying. GitHub
// signals rate limits with 429, or 403 plus an exhausted remaining count.
func retryable(resp *http.Response) bool {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return true
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return true
	case resp.StatusCode >= 500:
		return true
	}
	return false
}
