// Package api implements the HTTP transport used by the sync core: a thin
// JSON client with bearer-token attachment, a typed error for non-2xx
// responses, and refresh-on-401 where a single refresh request is shared by
// every caller that hits the expired token at the same time.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/faddenpatrick/ironledger/internal/common"
	"github.com/faddenpatrick/ironledger/internal/logging"
)

const refreshSlack = 30 * time.Second

// Client is the REST client for the IronLedger backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger

	tokens tokenStore
	// onTokens, when set, is invoked after every token change so the caller
	// can persist the pair across restarts.
	onTokens func(ctx context.Context, t TokenPair)

	refreshGroup singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client (timeouts live there).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenCallback registers fn to be called whenever the token pair
// changes (login, refresh, logout).
func WithTokenCallback(fn func(ctx context.Context, t TokenPair)) Option {
	return func(c *Client) { c.onTokens = fn }
}

// New returns a Client rooted at baseURL (e.g. "https://host/api/v1").
func New(baseURL string, log logging.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetTokens installs a previously persisted token pair.
func (c *Client) SetTokens(t TokenPair) {
	c.tokens.set(t)
}

// ClearTokens drops the stored credentials (logout).
func (c *Client) ClearTokens(ctx context.Context) {
	c.tokens.clear()
	if c.onTokens != nil {
		c.onTokens(ctx, TokenPair{})
	}
}

// Get issues a GET request. params may be nil; the response body is decoded
// into out unless out is nil.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do replays a queued mutation verb against the recorded endpoint.
func (c *Client) Do(ctx context.Context, method, path string, body json.RawMessage) error {
	var payload any
	if len(body) > 0 {
		payload = body
	}
	return c.do(ctx, method, path, nil, payload, nil)
}

// Ping checks server liveness. Used by the connectivity monitor.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// Login authenticates and stores the issued token pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var t TokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &t); err != nil {
		return err
	}
	c.tokens.set(t)
	if c.onTokens != nil {
		c.onTokens(ctx, t)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	// Proactive refresh: if the access token is about to expire and we hold
	// a refresh token, renew before making the call.
	if t := c.tokens.get(); t.RefreshToken != "" && c.tokens.accessExpiringWithin(refreshSlack) {
		if _, err := c.refresh(ctx); err != nil {
			c.log.Warn(ctx, "proactive token refresh failed", "error", err)
		}
	}

	err := c.doOnce(ctx, method, path, params, body, out)

	// Reactive path: one retry after a successful refresh. A 401 after the
	// refresh itself failed propagates like any other terminal failure.
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		if _, rerr := c.refresh(ctx); rerr != nil {
			return err
		}
		return c.doOnce(ctx, method, path, params, body, out)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t := c.tokens.get(); t.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// refresh renews the token pair. Concurrent callers share one in-flight
// refresh request and all observe its outcome: this replaces the poll-based
// waiter queue with an explicit completion signal.
func (c *Client) refresh(ctx context.Context) (TokenPair, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		t := c.tokens.get()
		if t.RefreshToken == "" {
			return TokenPair{}, common.ErrNoRefreshToken
		}

		var renewed TokenPair
		body := map[string]string{"refresh_token": t.RefreshToken}
		if err := c.doOnce(ctx, http.MethodPost, "/auth/refresh", nil, body, &renewed); err != nil {
			return TokenPair{}, fmt.Errorf("token refresh: %w", err)
		}

		c.tokens.set(renewed)
		if c.onTokens != nil {
			c.onTokens(ctx, renewed)
		}
		return renewed, nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return v.(TokenPair), nil
}

// readDetail extracts the server's {"detail": "..."} message, tolerating
// bodies that are not JSON.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(data))
}
