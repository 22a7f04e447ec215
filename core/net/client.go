// Package net provides the HTTP client used for all anchor, Horizon, and RPC
// traffic in payd. The Client offers configurable timeout, opt-in retries with
// jittered exponential backoff, and a simple circuit breaker to stop
// hammering services that are down.
//
// Retries are off by default: the protocol flows built on top of this client
// (SEP-10 auth, SEP-31 initiate) are at-most-once, and the caller decides
// which idempotent steps are safe to retry.
package net

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gildado/payd-go/errors"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultBackoff      = 1 * time.Second
	defaultFailureLimit = 5
	defaultResetTimeout = 60 * time.Second
)

// Client is an HTTP client with timeout, optional retry, and circuit breaker
// capabilities.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	retryBackoff   time.Duration
	circuitBreaker *circuitBreaker
	log            logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout (default: 30s).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxRetries enables up to n retry attempts on transport errors and 5xx
// responses (default: 0, at-most-once).
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryBackoff sets the base duration for exponential backoff (default: 1s).
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryBackoff = d
	}
}

// WithLogger sets the structured logger used for retry and breaker events.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retryBackoff: defaultBackoff,
		circuitBreaker: &circuitBreaker{
			failureLimit: defaultFailureLimit,
			resetTimeout: defaultResetTimeout,
		},
		log: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Response wraps an HTTP response with convenience methods.
type Response struct {
	*http.Response
}

// Get performs an HTTP GET request.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to create GET request", err)
	}
	return c.do(req)
}

// GetAuth performs an HTTP GET request with a bearer token.
func (c *Client) GetAuth(ctx context.Context, url, token string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to create GET request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req)
}

// Post performs an HTTP POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to create POST request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// PostAuth performs an HTTP POST request with a JSON body and a bearer token.
func (c *Client) PostAuth(ctx context.Context, url string, body io.Reader, token string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to create POST request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req)
}

// PostForm performs an HTTP POST request with form-encoded data.
func (c *Client) PostForm(ctx context.Context, urlStr string, data url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, urlStr, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to create POST form request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

// do executes the HTTP request, applying the circuit breaker and any
// configured retries. 4xx responses are returned to the caller as-is; the
// protocol layers own their interpretation.
func (c *Client) do(req *http.Request) (*Response, error) {
	if !c.circuitBreaker.allowRequest() {
		return nil, errors.NewCoreError(errors.NETWORK_ERROR, "circuit breaker is open", nil)
	}

	// Buffer the request body so it can be replayed on retries.
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, errors.NewCoreError(errors.NETWORK_ERROR, "failed to read request body", err)
		}
		req.Body.Close()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		select {
		case <-req.Context().Done():
			return nil, errors.NewCoreError(errors.NETWORK_ERROR, "request cancelled", req.Context().Err())
		default:
		}

		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			req.ContentLength = int64(len(bodyBytes))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				c.sleepBackoff(req, attempt, err)
				continue
			}
			c.circuitBreaker.recordFailure()
			return nil, errors.NewCoreError(
				errors.NETWORK_ERROR,
				fmt.Sprintf("request failed after %d attempts", attempt+1),
				err,
			)
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d %s", resp.StatusCode, resp.Status)
			if attempt < c.maxRetries {
				c.sleepBackoff(req, attempt, lastErr)
				continue
			}
			c.circuitBreaker.recordFailure()
			return nil, errors.NewCoreError(
				errors.NETWORK_ERROR,
				fmt.Sprintf("server error after %d attempts: %s", attempt+1, resp.Status),
				lastErr,
			)
		}

		c.circuitBreaker.recordSuccess()
		return &Response{resp}, nil
	}

	return nil, errors.NewCoreError(errors.NETWORK_ERROR, "unexpected retry exhaustion", lastErr)
}

// sleepBackoff waits retryBackoff * 2^attempt plus up to 10% jitter.
func (c *Client) sleepBackoff(req *http.Request, attempt int, cause error) {
	duration := c.retryBackoff * (1 << uint(attempt))
	duration += time.Duration(rand.Int63n(int64(duration)/10 + 1))
	c.log.WithFields(logrus.Fields{
		"url":     req.URL.String(),
		"attempt": attempt + 1,
		"backoff": duration,
	}).WithError(cause).Warn("retrying request")
	time.Sleep(duration)
}

// circuitBreaker implements a simple open/closed circuit breaker.
type circuitBreaker struct {
	mu           sync.RWMutex
	failures     int
	lastFailTime time.Time
	failureLimit int
	resetTimeout time.Duration
	open         bool
}

func (cb *circuitBreaker) allowRequest() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if !cb.open {
		return true
	}
	return time.Since(cb.lastFailTime) > cb.resetTimeout
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.open = false
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailTime = time.Now()
	if cb.failures >= cb.failureLimit {
		cb.open = true
	}
}
