package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultMaxBodyBytes bounds how much of a response body HTTPTool reads.
const DefaultMaxBodyBytes = 10 << 20

// HTTPTool performs HTTP requests.
//
// Input:
//   - url: target URL (required)
//   - method: GET, POST or PUT (default GET)
//   - headers: map of header name to string value
//   - body: raw request body string
//   - json: any value, encoded as the request body with a JSON content type
//
// Output: status_code (int), headers (map[string]any) and body (string).
// Non-2xx statuses are not errors; callers inspect status_code.
type HTTPTool struct {
	client       *http.Client
	maxBodyBytes int64
}

// HTTPOption configures an HTTPTool.
type HTTPOption func(*HTTPTool)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPTool) { h.client = c }
}

// WithMaxBodyBytes limits the response body size read. Bodies beyond the
// limit are truncated.
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(h *HTTPTool) { h.maxBodyBytes = n }
}

// NewHTTPTool creates an HTTPTool. Timeouts come from the call context.
func NewHTTPTool(opts ...HTTPOption) *HTTPTool {
	h := &HTTPTool{client: &http.Client{}, maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns "http_request".
func (h *HTTPTool) Name() string { return "http_request" }

// Call executes the request described by input.
func (h *HTTPTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	url, ok := input["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("%w: url must be a non-empty string", ErrInvalidInput)
	}

	method := http.MethodGet
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return nil, fmt.Errorf("%w: unsupported method %s", ErrInvalidInput, method)
	}

	var (
		body        io.Reader
		contentType string
	)
	if v, ok := input["json"]; ok {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: encode json body: %v", ErrInvalidInput, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	} else if s, ok := input["body"].(string); ok && s != "" {
		body = strings.NewReader(s)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if headers, ok := input["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for k, values := range resp.Header {
		if len(values) == 1 {
			headers[k] = values[0]
		} else {
			headers[k] = values
		}
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        string(raw),
	}, nil
}
