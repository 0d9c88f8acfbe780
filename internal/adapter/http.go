package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// MaxResponseBodySize caps how much of a response body is read into memory
const MaxResponseBodySize = 32 * 1024 * 1024

// Request describes an outgoing HTTP request
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// HTTPClient defines an interface for HTTP client operations to enable mocking
//
//go:generate mockgen -source=http.go -destination=../mocks/http.go -package=mocks -mock_names=HTTPClient=MockHTTPClient
type HTTPClient interface {
	// Do performs a single request (no retries) and reads the whole response body.
	// A non-2xx status is not an error; callers decide what to do with it.
	Do(ctx context.Context, req Request) (*Response, error)
}

// HTTPClientConfig tunes the shared client
type HTTPClientConfig struct {
	// Timeout bounds a single request including reading the body
	Timeout time.Duration
	// MaxConns sizes the keep-alive pool; it should match the worker pool width
	MaxConns int
	// UserAgent is sent unless the request sets its own
	UserAgent string
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client    *http.Client
	userAgent string
}

// NewHTTPClient creates a keep-alive client whose connection pool is sized to cfg.MaxConns
func NewHTTPClient(cfg HTTPClientConfig) HTTPClient {
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxConns,
		MaxIdleConnsPerHost:   maxConns,
		MaxConnsPerHost:       maxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &RealHTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent: cfg.UserAgent,
	}
}

// Do performs the request and reads the response body
func (c *RealHTTPClient) Do(ctx context.Context, r Request) (*Response, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
