// Package remote provides adapters that delegate to external HTTP services.
// The course gateway talks JSON:API to a remote course authority.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/artpar/coursesync/pkg/jsonapi"
)

// IdempotencyHeader carries the client-chosen key that makes a write safe to
// repeat.
const IdempotencyHeader = "Idempotency-Key"

// Client provides HTTP communication with external services.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	headers    map[string]string
}

// ClientConfig configures the remote client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Headers map[string]string
}

// NewClient creates a new remote HTTP client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		headers:    cfg.Headers,
	}
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithIdempotencyKey sets the Idempotency-Key header when key is non-empty.
func WithIdempotencyKey(key string) RequestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set(IdempotencyHeader, key)
		}
	}
}

// Request sends an HTTP request to the remote service.
// A 204 response or an empty body leaves result untouched.
func (c *Client) Request(ctx context.Context, method, path string, body, result any, opts ...RequestOption) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", jsonapi.ContentType)
	req.Header.Set("Accept", jsonapi.ContentType)

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		re := &RemoteError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
		if doc, ok := jsonapi.ParseDocument(body); ok && len(doc.Errors) > 0 {
			re.Errors = doc.Errors
		}
		return re
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// RemoteError represents an error from the remote service.
// Errors holds the JSON:API error objects when the body carried any.
type RemoteError struct {
	StatusCode int
	Message    string
	Errors     []jsonapi.Error
}

func (e *RemoteError) Error() string {
	if len(e.Errors) > 0 && e.Errors[0].Detail != "" {
		return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Errors[0].Detail)
	}
	return fmt.Sprintf("remote error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404.
func IsNotFound(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.StatusCode == http.StatusNotFound
	}
	return false
}
