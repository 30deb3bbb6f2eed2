// Package apiclient is the HTTP client for the backend ERP API. Every call
// carries the bearer token and optional tenant header, and is wrapped in a
// bounded retry with doubling delay for transient failures.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sofratec/erp-app/internal/auth"
)

const (
	defaultMaxAttempts = 3
	defaultRetryBase   = 250 * time.Millisecond
	defaultTimeout     = 15 * time.Second
)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      auth.TokenSource
	tenant      string
	maxAttempts int
	retryBase   time.Duration
}

type Option func(*Client)

// WithTenant sets the X-Tenant header on every request.
func WithTenant(code string) Option {
	return func(c *Client) { c.tenant = code }
}

// WithRetry overrides attempt count and initial delay. attempts counts the
// first try: WithRetry(3, d) means at most 2 retries.
func WithRetry(attempts int, base time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of the client bound to a session's token source.
// The copy shares the underlying http.Client; binding is cheap and done per
// request in the handlers.
func (c *Client) WithTokens(ts auth.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the configured backend root, without trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do runs one logical API call. Network errors and 5xx/429 statuses are
// retried up to the attempt budget with doubling delay; 4xx are surfaced
// immediately as *APIError. A 401 triggers a single token refresh followed by
// one replay, which does not consume a retry attempt.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	delay := c.retryBase
	refreshed := false
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
		}

		resp, err := c.send(ctx, method, path, payload)
		if err != nil {
			if errors.Is(err, auth.ErrNoSession) || ctx.Err() != nil {
				return err
			}
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil && !refreshed {
			drain(resp)
			if _, rerr := c.tokens.Refresh(ctx); rerr != nil {
				return fmt.Errorf("token refresh after 401: %w", rerr)
			}
			refreshed = true
			attempt-- // replay is not a retry
			continue
		}

		if retryableStatus(resp.StatusCode) {
			apiErr := decodeError(resp)
			resp.Body.Close()
			lastErr = apiErr
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := decodeError(resp)
			resp.Body.Close()
			return apiErr
		}

		return decodeInto(resp, out)
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tenant != "" {
		req.Header.Set("X-Tenant", c.tenant)
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, err
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return c.httpClient.Do(req)
}

func decodeInto(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
