// Package httpclient builds and executes the HTTP requests behind the CLI's
// batch tasks.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// StatusError represents an HTTP response with an error status code.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// NewClient returns an HTTP client with the given per-request timeout and
// transport limits suited to concurrent batch execution.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// RequestBuilder builds per-call requests for one batch task.
type RequestBuilder struct {
	method  string
	target  string
	headers http.Header
	body    []byte
}

// NewRequestBuilder validates the task's request shape once up front so
// per-call Build cannot fail on malformed input.
func NewRequestBuilder(method, target string, headers map[string]string, body string) (*RequestBuilder, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	hdrs := http.Header{}
	for key, value := range headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", trimmedKey)
		}
		hdrs.Set(http.CanonicalHeaderKey(trimmedKey), value)
	}

	var payload []byte
	if body != "" {
		payload = []byte(body)
	}

	return &RequestBuilder{
		method:  method,
		target:  target,
		headers: hdrs,
		body:    payload,
	}, nil
}

// Build creates a new request bound to ctx.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if b.body != nil {
		bodyReader = bytes.NewReader(b.body)
	}

	var req *http.Request
	var err error
	if bodyReader != nil {
		req, err = http.NewRequestWithContext(ctx, b.method, b.target, bodyReader)
	} else {
		req, err = http.NewRequestWithContext(ctx, b.method, b.target, nil)
	}
	if err != nil {
		return nil, err
	}

	for key, values := range b.headers {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}
	return req, nil
}
