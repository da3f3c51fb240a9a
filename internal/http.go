package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"golang.org/x/time/rate"
)

// Client manages authenticated communication with the Feedly API. It owns the
// credential and renews the access token in place, so a Client must not be
// shared between goroutines without external synchronization.
type Client struct {
	client     *http.Client
	BaseURL    *url.URL
	UserAgent  string
	oauth      OAuthConfig
	credential types.Credential
	logger     *slog.Logger

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// RateLimitConfig controls how requests are throttled before reaching Feedly.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 60 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 60
	DefaultRateLimitBurst    = 10
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64
)

// NewClient returns a new Feedly API client.
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, credential types.Credential, oauth OAuthConfig, baseURL, userAgent string, rateCfg *RateLimitConfig, logger *slog.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	parsedURL, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	return &Client{
		client:     httpClient,
		BaseURL:    parsedURL,
		UserAgent:  userAgent,
		oauth:      oauth,
		credential: credential,
		logger:     logger,
		limiter:    buildLimiter(*rateCfg),
	}, nil
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: err.Error()}
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &pkgerrs.ConfigError{Field: "BaseURL", Message: "must be an absolute URL"}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}
	return parsedURL, nil
}

// Credential returns a copy of the current credential.
func (c *Client) Credential() types.Credential {
	return c.credential
}

// Get issues a GET with params encoded in the query string.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*types.Response, error) {
	return c.retryOnUnauthorized(ctx, http.MethodGet, path, func(ctx context.Context) (*types.Response, error) {
		return c.do(ctx, http.MethodGet, path, params, nil)
	})
}

// Post issues a POST with body encoded as JSON ({} when body is nil).
func (c *Client) Post(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.sendJSON(ctx, http.MethodPost, path, body)
}

// Put issues a PUT with body encoded as JSON ({} when body is nil).
func (c *Client) Put(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.sendJSON(ctx, http.MethodPut, path, body)
}

// Delete issues a DELETE with body encoded as JSON ({} when body is nil).
func (c *Client) Delete(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.sendJSON(ctx, http.MethodDelete, path, body)
}

// PostNoRenewal issues a single POST and returns whatever the service
// answered, whatever the status. It never triggers token renewal.
func (c *Client) PostNoRenewal(ctx context.Context, path string, body any) (*types.Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, path, nil, payload)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, body any) (*types.Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	return c.retryOnUnauthorized(ctx, method, path, func(ctx context.Context) (*types.Response, error) {
		return c.do(ctx, method, path, nil, payload)
	})
}

// retryOnUnauthorized runs send once; on 401 it renews the access token and
// runs send exactly one more time. Any final status other than 200 becomes a
// RequestError carrying the response.
func (c *Client) retryOnUnauthorized(ctx context.Context, method, path string, send func(context.Context) (*types.Response, error)) (*types.Response, error) {
	resp, err := send(ctx)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.DebugContext(ctx, "access token rejected, renewing",
			"method", method,
			"path", path)

		if err := c.Reauthenticate(ctx); err != nil {
			return nil, err
		}

		resp, err = send(ctx)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.DebugContext(ctx, "request failed",
			"method", method,
			"path", path,
			"status", resp.StatusCode)

		return nil, &pkgerrs.RequestError{
			Method:     method,
			URL:        c.resolveString(path),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
		}
	}

	return resp, nil
}

// do performs one round trip with the current access token attached.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) (*types.Response, error) {
	u, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &pkgerrs.RequestError{Method: method, URL: u.String(), Err: err}
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.credential.AccessToken != "" {
		req.Header.Set("Authorization", "OAuth "+c.credential.AccessToken)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, &pkgerrs.RequestError{Method: method, URL: u.String(), Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &pkgerrs.RequestError{Method: method, URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	c.applyRateHeaders(resp)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &pkgerrs.RequestError{Method: method, URL: u.String(), StatusCode: resp.StatusCode, Err: err}
	}

	c.logger.DebugContext(ctx, "feedly request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return &types.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// resolve joins path onto the base URL. A leading slash is accepted and
// treated as relative so the base path (e.g. /v3) is preserved.
func (c *Client) resolve(path string) (*url.URL, error) {
	u, err := c.BaseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "path", Message: err.Error()}
	}
	return u, nil
}

func (c *Client) resolveString(path string) string {
	u, err := c.resolve(path)
	if err != nil {
		return path
	}
	return u.String()
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return []byte("{}"), nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, &pkgerrs.ConfigError{Field: "body", Message: "cannot encode request body: " + err.Error()}
	}
	return data, nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

// applyRateHeaders delays the next request when Feedly signals that the
// quota is exhausted. Feedly reports X-Ratelimit-Count (calls used),
// X-Ratelimit-Limit and X-Ratelimit-Reset (seconds until the window resets).
func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	countHeader := resp.Header.Get("X-Ratelimit-Count")
	limitHeader := resp.Header.Get("X-Ratelimit-Limit")
	resetHeader := resp.Header.Get("X-Ratelimit-Reset")
	if countHeader == "" || limitHeader == "" || resetHeader == "" {
		return
	}

	count, errCount := strconv.ParseFloat(countHeader, ParseFloatBitSize)
	limit, errLimit := strconv.ParseFloat(limitHeader, ParseFloatBitSize)
	resetSeconds, errReset := strconv.ParseFloat(resetHeader, ParseFloatBitSize)
	if errCount != nil || errLimit != nil || errReset != nil || resetSeconds <= 0 {
		return
	}

	if limit-count <= 1 {
		c.deferRequests(time.Duration(resetSeconds * float64(time.Second)))
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}
