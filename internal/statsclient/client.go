// Package statsclient fetches registration statistics from the remote service,
// handling token authentication and a single retry on token expiry.
package statsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/blockedby/regstats/internal/logger"
	"github.com/blockedby/regstats/internal/stats"
)

const (
	authPath       = "/api-token-auth/"
	statisticsPath = "/statistics/"
	adminPath      = "/admin/"

	maxBodyBytes  = 1 << 20
	maxExcerptLen = 200
)

// Config holds the configuration for the statistics client.
type Config struct {
	BaseURL  string
	Username string
	Password string

	// Timeout bounds each HTTP round trip. Zero leaves it to the transport.
	Timeout time.Duration
	// AuthRPS throttles token requests. Zero disables throttling.
	AuthRPS float64

	HTTPClient *http.Client    // defaults to a fresh http.Client
	Store      CredentialStore // defaults to a MemoryStore
	Logger     *logger.Logger  // defaults to logger.Get()
}

// Client talks to the auth and statistics endpoints.
// One Client is constructed per process and shared by reference.
type Client struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration

	http    *http.Client
	store   CredentialStore
	limiter *authLimiter
	log     *logger.Logger

	// serializes token acquisition so concurrent callers share one login
	acquireMu sync.Mutex
}

// TokenResponse is the auth endpoint payload.
type TokenResponse struct {
	Token   string `json:"token"`
	UserID  int    `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// wireSnapshot detects missing top-level objects, which a plain
// stats.Snapshot would silently zero.
type wireSnapshot struct {
	Total      *stats.Totals             `json:"total"`
	Directions map[string]stats.Category `json:"directions"`
}

// New creates a client with the provided configuration.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
		store:    cfg.Store,
		limiter:  newAuthLimiter(cfg.AuthRPS),
		log:      cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.log == nil {
		c.log = logger.Get()
	}
	c.log = c.log.Component("statsclient")
	return c
}

// FetchSnapshot returns the current statistics. A 401 from the statistics
// endpoint discards the token and triggers exactly one re-authentication and
// retry; every other failure is returned as is. All errors are *FetchError.
func (c *Client) FetchSnapshot(ctx context.Context) (*stats.Snapshot, error) {
	token, err := c.credential(ctx)
	if err != nil {
		return nil, err
	}

	snap, err := c.getStatistics(ctx, token)
	if !errors.Is(err, ErrTokenExpired) {
		return snap, err
	}

	c.log.Warn().Str("token", logger.MaskToken(token)).Msg("token rejected, re-authenticating")
	c.store.ClearIf(token)

	token, err = c.credential(ctx)
	if err != nil {
		return nil, err
	}

	snap, err = c.getStatistics(ctx, token)
	if errors.Is(err, ErrTokenExpired) {
		c.store.ClearIf(token)
		var fe *FetchError
		errors.As(err, &fe)
		return nil, newError(KindTokenExpired, fe.Status, fe, "authentication failed after token refresh: %s", fe.Message)
	}
	return snap, err
}

// ClearCredential discards the held token. Requests already in flight keep
// the token they were issued with.
func (c *Client) ClearCredential() {
	c.store.Clear()
	c.log.Info().Msg("credential cleared")
}

// HasCredential reports whether a token is cached. Diagnostic only.
func (c *Client) HasCredential() bool {
	_, ok := c.store.Get()
	return ok
}

// AdminURL is the upstream admin login page.
func (c *Client) AdminURL() string {
	return c.baseURL + adminPath
}

// credential returns the cached token or acquires a new one.
func (c *Client) credential(ctx context.Context) (string, error) {
	if token, ok := c.store.Get(); ok {
		return token, nil
	}

	c.acquireMu.Lock()
	defer c.acquireMu.Unlock()

	// another caller may have logged in while we waited
	if token, ok := c.store.Get(); ok {
		return token, nil
	}

	token, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	c.store.Set(token)
	return token, nil
}

func (c *Client) acquire(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", newError(KindTransportFailure, 0, err, "token request throttled: %v", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	body, err := json.Marshal(tokenRequest{Username: c.username, Password: c.password})
	if err != nil {
		return "", newError(KindAuthFailure, 0, err, "encode token request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return "", newError(KindTransportFailure, 0, err, "build token request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("url", req.URL.String()).Msg("requesting token")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", newError(KindTransportFailure, 0, err, "token request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp.Body)
	if err != nil {
		return "", newError(KindTransportFailure, resp.StatusCode, err, "read token response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn().Int("status", resp.StatusCode).Msg("token request rejected")
		return "", newError(KindAuthFailure, resp.StatusCode, nil,
			"token request failed: %d - %s", resp.StatusCode, excerpt(data))
	}

	var tr TokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", newError(KindAuthFailure, resp.StatusCode, err, "malformed token response: %v", err)
	}
	if tr.Token == "" {
		return "", newError(KindAuthFailure, resp.StatusCode, nil, "token missing in auth response")
	}

	c.log.Info().
		Int("user_id", tr.UserID).
		Bool("is_staff", tr.IsStaff).
		Str("token", logger.MaskToken(tr.Token)).
		Msg("token acquired")

	return tr.Token, nil
}

func (c *Client) getStatistics(ctx context.Context, token string) (*stats.Snapshot, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statisticsPath, nil)
	if err != nil {
		return nil, newError(KindTransportFailure, 0, err, "build statistics request: %v", err)
	}
	req.Header.Set("Authorization", "Token "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(KindTransportFailure, 0, err, "statistics request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := readBody(resp.Body)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			return nil, newError(KindDecodeFailure, resp.StatusCode, err, "statistics response exceeds %d bytes", maxBodyBytes)
		}
		return nil, newError(KindTransportFailure, resp.StatusCode, err, "read statistics response: %v", err)
	}

	c.log.Debug().Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("statistics response")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, newError(KindTokenExpired, resp.StatusCode, nil,
			"statistics endpoint rejected token: %d - %s", resp.StatusCode, excerpt(data))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, newError(KindTransportFailure, resp.StatusCode, nil,
			"HTTP error: %s - %s", resp.Status, excerpt(data))
	}

	return decodeSnapshot(data)
}

func decodeSnapshot(data []byte) (*stats.Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, newError(KindDecodeFailure, 0, err, "invalid statistics payload: %v", err)
	}
	if w.Total == nil {
		return nil, newError(KindDecodeFailure, 0, nil, "invalid statistics payload: missing \"total\"")
	}
	if w.Directions == nil {
		return nil, newError(KindDecodeFailure, 0, nil, "invalid statistics payload: missing \"directions\"")
	}

	snap := &stats.Snapshot{Total: *w.Total, Directions: w.Directions}
	if err := snap.Validate(); err != nil {
		return nil, newError(KindDecodeFailure, 0, err, "invalid statistics payload: %v", err)
	}
	return snap, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

var errBodyTooLarge = fmt.Errorf("body exceeds %d bytes", maxBodyBytes)

func readBody(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func excerpt(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > maxExcerptLen {
		s = s[:maxExcerptLen] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
