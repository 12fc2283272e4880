// Package github provides a minimal GitHub REST v3 client for the commits listing
package github

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "commitpipe/internal/platform/errors"
	"commitpipe/internal/platform/logger"
)

const (
	baseURLDefault    = "https://api.github.com"
	defaultUA         = "commitpipe"
	defaultAPIVersion = "2022-11-28"
	maxErrorBody      = 2048
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string

	// Timeout bounds a single request; zero means none, callers bound work through ctx
	Timeout time.Duration

	// Token is sent as a bearer token; empty means tokenless (very low quota)
	Token string

	// APIVersion is sent as X-GitHub-Api-Version
	APIVersion string
}

// Client is a GitHub REST client. It is safe for concurrent use; the
// underlying transport multiplexes independent requests
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// NewClient creates a new Client with defaults filled in
func NewClient(o Options) *Client {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.APIVersion == "" {
		o.APIVersion = defaultAPIVersion
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("github"),
		now:  time.Now,
	}
}

// Do issues one GET with auth and version headers. No retries: a non-2xx
// response comes back as *GHStatusError carrying the status and a body excerpt
func (c *Client) Do(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.opts.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "github new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", c.opts.APIVersion)
	if c.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "github do failed")
	}

	rem, reset, retryAfter := parseRateHeaders(resp.Header)
	c.log.Debug().
		Str("path", path).
		Str("query", q.Encode()).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Int("rate_remaining", rem).
		Time("rate_reset", reset).
		Int("retry_after_s", retryAfter).
		Msg("github http response")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = drainAndClose(resp.Body)
	return nil, newStatusError(resp.StatusCode, string(body), rem)
}
