// Package httpx implements MSHttpClient (spec C3): an HTTP wrapper that
// stamps every request with the shared User-Agent and a freshly
// incremented Correlation Vector.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aggregator-project/msdelivery/internal/cv"
)

const userAgent = "StoreLib"

// Response is the decoded result of a Do call: status, headers, and a
// fully-read body (callers of small REST/SOAP payloads never need a
// streaming body).
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether StatusCode is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client wraps net/http.Client, attaching User-Agent and MS-CV headers to
// every request and incrementing the shared CV immediately after reading
// its value, so the next caller (on any goroutine) observes a strictly
// greater CV (spec §4.3, §5).
type Client struct {
	http *http.Client
	cv   *cv.CV
}

// New constructs a Client sharing cv with every other caller in the
// process; timeout bounds every request's round trip.
func New(shared *cv.CV, timeout time.Duration) *Client {
	return &Client{
		http: &http.Client{Timeout: timeout},
		cv:   shared,
	}
}

// Do issues an HTTP request. extraHeaders overrides the defaults
// (User-Agent, MS-CV, and any caller-specified Content-Type/Accept) for
// this call only.
func (c *Client) Do(ctx context.Context, method, uri string, body []byte, contentType string, extraHeaders map[string]string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, uri, reader)
	if err != nil {
		return nil, fmt.Errorf("httpx: building request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("MS-CV", c.cv.Value())
	c.cv.Increment()

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpx: %s %s: %w", method, uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpx: reading response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Get is a convenience wrapper for the common case of a JSON GET.
func (c *Client) Get(ctx context.Context, uri string, extraHeaders map[string]string) (*Response, error) {
	headers := map[string]string{"Accept": "application/json"}
	for k, v := range extraHeaders {
		headers[k] = v
	}
	return c.Do(ctx, http.MethodGet, uri, nil, "", headers)
}
