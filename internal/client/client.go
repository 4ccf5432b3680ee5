// ABOUTME: Resilient HTTP client for the Orbital REST API: auth header
// ABOUTME: injection, per-request timeout, and bounded exponential-backoff retry.

// Package client wraps outbound calls to the Orbital platform. Each
// call injects headers from the active auth provider, applies a fixed
// timeout, classifies the outcome, and retries only transient failures
// under a backoff policy bounded by a maximum interval and a maximum
// total elapsed time.
package client

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

	"github.com/cenkalti/backoff/v4"

	"github.com/orbitalci/orbital-mcp/internal/auth"
)

// maxResponseBody caps how much of a backend response is read (4MB).
const maxResponseBody = 4 << 20

// Config holds construction parameters for a Client.
type Config struct {
	BaseURL          string
	AuthProvider     auth.Provider
	Timeout          time.Duration // per-attempt request timeout
	RetryMaxInterval time.Duration // cap on a single backoff sleep
	RetryMaxElapsed  time.Duration // cap on total time across attempts
	HTTPClient       *http.Client  // optional; defaults to a fresh client
	Logger           *slog.Logger
}

// Client performs resilient calls against a single backend base URL.
type Client struct {
	baseURL          string
	provider         auth.Provider
	httpClient       *http.Client
	timeout          time.Duration
	retryMaxInterval time.Duration
	retryMaxElapsed  time.Duration
	logger           *slog.Logger
}

// Request describes one outbound call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any // marshaled as JSON when non-nil

	// Idempotent marks a mutating call as safe to retry. GETs are
	// retried by default; everything else needs explicit opt-in.
	Idempotent bool
}

// Response is a successful (2xx) backend response.
type Response struct {
	Status   int
	Body     []byte
	Attempts int
}

// New creates a Client. Zero durations get conservative defaults.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxInterval := cfg.RetryMaxInterval
	if maxInterval <= 0 {
		maxInterval = 5 * time.Second
	}
	maxElapsed := cfg.RetryMaxElapsed
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}

	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		provider:         cfg.AuthProvider,
		httpClient:       httpClient,
		timeout:          timeout,
		retryMaxInterval: maxInterval,
		retryMaxElapsed:  maxElapsed,
		logger:           logger.With("component", "client"),
	}
}

// Do performs the call, retrying transient failures. The credential is
// validated before any attempt; an invalid credential never reaches the
// backend. Retry sleeps honor ctx, so cancellation is prompt.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.provider != nil {
		if err := c.provider.Validate(); err != nil {
			return nil, fmt.Errorf("validating credential: %w", err)
		}
	}

	body, err := c.marshalBody(req)
	if err != nil {
		return nil, err
	}

	retryable := req.Method == http.MethodGet || req.Method == "" || req.Idempotent

	attempts := 0
	var resp *Response

	operation := func() error {
		attempts++
		r, err := c.attempt(ctx, req, body)
		if err == nil {
			resp = r
			return nil
		}
		if !retryable || !isTransient(err) {
			return backoff.Permanent(err)
		}
		c.logger.Debug("transient failure, will retry",
			"method", req.Method,
			"path", req.Path,
			"attempt", attempts,
			"error", err,
		)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if c.retryMaxInterval < policy.InitialInterval {
		policy.InitialInterval = c.retryMaxInterval
	}
	policy.MaxInterval = c.retryMaxInterval
	policy.MaxElapsedTime = c.retryMaxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	resp.Attempts = attempts
	return resp, nil
}

// Get performs a GET and unmarshals the JSON response body into out when
// out is non-nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// Post performs a POST with a JSON body. Not retried unless the request
// is built via Do with Idempotent set.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// attempt performs exactly one HTTP round trip under the fixed timeout.
func (c *Client) attempt(ctx context.Context, req *Request, body []byte) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.provider != nil {
		for k, v := range c.provider.GetAuthHeaders() {
			httpReq.Header.Set(k, v)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &StatusError{Status: httpResp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return &Response{Status: httpResp.StatusCode, Body: respBody}, nil
}

func (c *Client) marshalBody(req *Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	data, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return data, nil
}
