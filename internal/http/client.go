// Package http is the shared REST client used by the subtitle repository.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Client wraps resty.Client with retry, rate limiting and timeout handling
type Client struct {
	resty      *resty.Client
	limiter    *rate.Limiter
	maxRetries int
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientConfig holds configuration for the HTTP client
type ClientConfig struct {
	BaseURL           string
	Timeout           time.Duration
	MaxRetries        int
	RetryWait         time.Duration
	UserAgent         string
	RequestsPerSecond float64
	Debug             bool
	Logger            *slog.Logger
}

// DefaultClientConfig returns sensible defaults for HTTP client
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:           30 * time.Second,
		MaxRetries:        3,
		RetryWait:         time.Second,
		UserAgent:         "tvsession v1.0",
		RequestsPerSecond: 4,
	}
}

// NewClient creates a new HTTP client with the given configuration
func NewClient(config ClientConfig) *Client {
	defaults := DefaultClientConfig()
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	switch {
	case config.MaxRetries == 0:
		config.MaxRetries = defaults.MaxRetries
	case config.MaxRetries < 0:
		config.MaxRetries = 0
	}
	if config.RetryWait == 0 {
		config.RetryWait = defaults.RetryWait
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	restyClient := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(config.MaxRetries).
		SetRetryWaitTime(config.RetryWait).
		SetRetryMaxWaitTime(5*config.RetryWait).
		SetHeader("User-Agent", config.UserAgent).
		SetHeader("Accept", "application/json, */*")
	if config.BaseURL != "" {
		restyClient.SetBaseURL(config.BaseURL)
	}

	// Retry on network errors, 5xx and 429
	restyClient.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500 || r.StatusCode() == 429
	})

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	client := &Client{
		resty:      restyClient,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: config.MaxRetries,
		timeout:    config.Timeout,
		logger:     config.Logger,
	}

	if config.Debug && config.Logger != nil {
		restyClient.OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
			client.logRequest(r)
			return nil
		})
		restyClient.OnAfterResponse(func(c *resty.Client, r *resty.Response) error {
			client.logResponse(r)
			return nil
		})
	}

	return client
}

// Get performs a GET request. When result is non-nil the JSON body is
// decoded into it.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, result interface{}) (*resty.Response, error) {
	req, err := c.request(ctx, headers)
	if err != nil {
		return nil, err
	}
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET request failed for %s: %w", url, err)
	}
	if resp.IsError() {
		return resp, &StatusError{Method: "GET", URL: url, Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	return resp, nil
}

// Post performs a JSON POST request. When result is non-nil the JSON body is
// decoded into it.
func (c *Client) Post(ctx context.Context, url string, body interface{}, headers map[string]string, result interface{}) (*resty.Response, error) {
	req, err := c.request(ctx, headers)
	if err != nil {
		return nil, err
	}
	req.SetHeader("Content-Type", "application/json").SetBody(body)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Post(url)
	if err != nil {
		return nil, fmt.Errorf("POST request failed for %s: %w", url, err)
	}
	if resp.IsError() {
		return resp, &StatusError{Method: "POST", URL: url, Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	return resp, nil
}

// Download fetches url and returns the raw body
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := c.request(ctx, nil)
	if err != nil {
		return nil, err
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("download failed for %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, &StatusError{Method: "GET", URL: url, Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	}
	return resp.Body(), nil
}

func (c *Client) request(ctx context.Context, headers map[string]string) (*resty.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return c.resty.R().SetContext(ctx).SetHeaders(headers), nil
}

// SetHeader sets a default header for all requests
func (c *Client) SetHeader(key, value string) {
	c.resty.SetHeader(key, value)
}

// GetTimeout returns the configured timeout
func (c *Client) GetTimeout() time.Duration {
	return c.timeout
}

// GetMaxRetries returns the configured max retries
func (c *Client) GetMaxRetries() int {
	return c.maxRetries
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d for %s %s: %s", e.Code, e.Method, e.URL, e.Body)
}

func (c *Client) logRequest(r *resty.Request) {
	c.logger.Debug("HTTP Request",
		"method", r.Method,
		"url", r.URL,
	)
}

func (c *Client) logResponse(r *resty.Response) {
	c.logger.Debug("HTTP Response",
		"status", r.StatusCode(),
		"url", r.Request.URL,
		"time", r.Time(),
		"body", truncate(r.String(), 1000),
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "... (truncated)"
	}
	return s
}
