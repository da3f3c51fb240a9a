package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"golang.org/x/time/rate"
)

var fastRate = &RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000}

var testOAuth = OAuthConfig{
	ClientID:     "sandbox",
	ClientSecret: "secret",
	RedirectURI:  "http://localhost",
	Scope:        "https://cloud.feedly.com/subscriptions",
}

// renewalServer answers /v3/data with the statuses in dataStatuses (the last
// one repeats) and /v3/auth/token with tokenStatus.
type renewalServer struct {
	t            *testing.T
	dataStatuses []int
	tokenStatus  int
	tokenBody    string

	dataCalls  atomic.Int32
	tokenCalls atomic.Int32

	mu       sync.Mutex
	authSeen []string
}

func (s *renewalServer) authHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authSeen...)
}

func (s *renewalServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/v3/auth/token":
		s.tokenCalls.Add(1)
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.t.Errorf("refresh body is not JSON: %v", err)
		}
		if body["grant_type"] != "refresh_token" || body["refresh_token"] != "refresh-1" ||
			body["client_id"] != "sandbox" || body["client_secret"] != "secret" {
			s.t.Errorf("unexpected refresh body: %v", body)
		}
		w.WriteHeader(s.tokenStatus)
		_, _ = io.WriteString(w, s.tokenBody)
	case "/v3/data":
		n := int(s.dataCalls.Add(1))
		s.mu.Lock()
		s.authSeen = append(s.authSeen, r.Header.Get("Authorization"))
		s.mu.Unlock()
		idx := n - 1
		if idx >= len(s.dataStatuses) {
			idx = len(s.dataStatuses) - 1
		}
		status := s.dataStatuses[idx]
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"ok":true}`)
		} else {
			_, _ = io.WriteString(w, `{"errorCode":`+http.StatusText(status)+`}`)
		}
	default:
		s.t.Errorf("unexpected path %s", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newRenewalClient(t *testing.T, s *renewalServer) *Client {
	t.Helper()
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)

	c, err := NewClient(server.Client(), types.Credential{
		UserID:       "u1",
		RefreshToken: "refresh-1",
		AccessToken:  "stale",
	}, testOAuth, server.URL+"/v3", "agent", fastRate, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestNewClient_DefaultRateLimiter(t *testing.T) {
	client, err := NewClient(nil, types.Credential{}, testOAuth, "https://example.com/v3", "agent", nil, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	if got := client.limiter.Limit(); got != rate.Limit(1) {
		t.Errorf("expected default limit 1 req/sec, got %v", got)
	}
	if got := client.limiter.Burst(); got != 10 {
		t.Errorf("expected default burst of 10, got %d", got)
	}
	if got := client.BaseURL.String(); got != "https://example.com/v3/" {
		t.Errorf("expected base URL to gain trailing slash, got %q", got)
	}
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"://bad", "relative/path", ""} {
		_, err := NewClient(nil, types.Credential{}, testOAuth, base, "agent", nil, nil)
		var cfgErr *pkgerrs.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("base %q: expected ConfigError, got %v", base, err)
		}
	}
}

func TestClient_ResolveKeepsBasePath(t *testing.T) {
	c, err := NewClient(nil, types.Credential{}, testOAuth, "https://cloud.feedly.com/v3", "agent", nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{"/streams/contents", "streams/contents"} {
		if got := c.resolveString(path); got != "https://cloud.feedly.com/v3/streams/contents" {
			t.Errorf("resolve(%q) = %q", path, got)
		}
	}

	escaped := "tags/" + url.PathEscape("user/u1/tag/global.saved")
	if got := c.resolveString(escaped); got != "https://cloud.feedly.com/v3/tags/user%2Fu1%2Ftag%2Fglobal.saved" {
		t.Errorf("escaped path not preserved: %q", got)
	}
}

func TestClient_RenewsOnceThenSucceeds(t *testing.T) {
	t.Parallel()

	s := &renewalServer{
		t:            t,
		dataStatuses: []int{http.StatusUnauthorized, http.StatusOK},
		tokenStatus:  http.StatusOK,
		tokenBody:    `{"access_token":"fresh","expires_in":3600}`,
	}
	c := newRenewalClient(t, s)

	resp, err := c.Get(context.Background(), "/data", nil)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Value(); got.(map[string]any)["ok"] != true {
		t.Errorf("unexpected body %v", got)
	}

	if got := s.dataCalls.Load(); got != 2 {
		t.Errorf("expected 2 data calls, got %d", got)
	}
	if got := s.tokenCalls.Load(); got != 1 {
		t.Errorf("expected 1 renewal, got %d", got)
	}
	if seen := s.authHeaders(); len(seen) != 2 || seen[0] != "OAuth stale" || seen[1] != "OAuth fresh" {
		t.Errorf("unexpected Authorization headers %v", seen)
	}
	if c.Credential().AccessToken != "fresh" || c.Credential().RefreshToken != "refresh-1" {
		t.Errorf("credential not updated correctly: %+v", c.Credential())
	}
}

func TestClient_SecondUnauthorizedIsFatal(t *testing.T) {
	t.Parallel()

	s := &renewalServer{
		t:            t,
		dataStatuses: []int{http.StatusUnauthorized},
		tokenStatus:  http.StatusOK,
		tokenBody:    `{"access_token":"fresh"}`,
	}
	c := newRenewalClient(t, s)

	_, err := c.Post(context.Background(), "data", map[string]string{"k": "v"})
	var reqErr *pkgerrs.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", reqErr.StatusCode)
	}
	if len(reqErr.Body) == 0 {
		t.Error("expected response body on RequestError")
	}

	if got := s.dataCalls.Load(); got != 2 {
		t.Errorf("expected exactly 2 data calls, got %d", got)
	}
	if got := s.tokenCalls.Load(); got != 1 {
		t.Errorf("expected exactly 1 renewal, got %d", got)
	}
}

func TestClient_NonUnauthorizedFailsImmediately(t *testing.T) {
	t.Parallel()

	s := &renewalServer{
		t:            t,
		dataStatuses: []int{http.StatusServiceUnavailable},
		tokenStatus:  http.StatusOK,
	}
	c := newRenewalClient(t, s)

	_, err := c.Delete(context.Background(), "data", nil)
	var reqErr *pkgerrs.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unexpected status %d", reqErr.StatusCode)
	}
	if s.dataCalls.Load() != 1 || s.tokenCalls.Load() != 0 {
		t.Errorf("expected 1 call and no renewal, got %d calls and %d renewals", s.dataCalls.Load(), s.tokenCalls.Load())
	}
}

func TestClient_RenewalFailureIsAuthError(t *testing.T) {
	t.Parallel()

	s := &renewalServer{
		t:            t,
		dataStatuses: []int{http.StatusUnauthorized},
		tokenStatus:  http.StatusBadRequest,
		tokenBody:    `{"errorMessage":"invalid refresh token"}`,
	}
	c := newRenewalClient(t, s)

	_, err := c.Put(context.Background(), "data", nil)
	var authErr *pkgerrs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusBadRequest || authErr.Operation != "refresh" {
		t.Errorf("unexpected AuthError %+v", authErr)
	}
	if s.dataCalls.Load() != 1 {
		t.Errorf("request must not be retried after failed renewal, got %d calls", s.dataCalls.Load())
	}
	if c.Credential().AccessToken != "stale" {
		t.Errorf("access token must be unchanged, got %q", c.Credential().AccessToken)
	}
}

func TestClient_RenewalWithoutAccessTokenIsAuthError(t *testing.T) {
	t.Parallel()

	s := &renewalServer{
		t:            t,
		dataStatuses: []int{http.StatusUnauthorized},
		tokenStatus:  http.StatusOK,
		tokenBody:    `{"expires_in":3600}`,
	}
	c := newRenewalClient(t, s)

	_, err := c.Get(context.Background(), "data", nil)
	var authErr *pkgerrs.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestClient_PostNoRenewalDoesNotRetry(t *testing.T) {
	t.Parallel()

	s := &renewalServer{
		t:            t,
		dataStatuses: []int{http.StatusUnauthorized},
		tokenStatus:  http.StatusOK,
	}
	c := newRenewalClient(t, s)

	resp, err := c.PostNoRenewal(context.Background(), "data", nil)
	if err != nil {
		t.Fatalf("PostNoRenewal returned error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected raw 401, got %d", resp.StatusCode)
	}
	if s.tokenCalls.Load() != 0 {
		t.Error("PostNoRenewal must not renew")
	}
}

type capturedRequest struct {
	method, query, body, contentType, auth, agent string
}

func TestClient_RequestShape(t *testing.T) {
	t.Parallel()

	captured := make(chan capturedRequest, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		captured <- capturedRequest{
			method:      r.Method,
			query:       r.URL.RawQuery,
			body:        string(b),
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			agent:       r.Header.Get("User-Agent"),
		}
		_, _ = io.WriteString(w, "plain text, not json")
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.Client(), types.Credential{UserID: "u", RefreshToken: "r", AccessToken: "tok"}, testOAuth, server.URL, "my-agent", fastRate, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.Get(context.Background(), "/streams/contents", url.Values{"streamId": {"feed/x"}, "count": {"5"}})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	got := <-captured
	if got.method != http.MethodGet || got.query != "count=5&streamId=feed%2Fx" || got.body != "" {
		t.Errorf("unexpected GET shape: %+v", got)
	}
	if got.auth != "OAuth tok" || got.agent != "my-agent" {
		t.Errorf("unexpected headers: %+v", got)
	}
	if v, ok := resp.Value().(string); !ok || v != "plain text, not json" {
		t.Errorf("expected raw text fallback, got %#v", resp.Value())
	}

	if _, err := c.Post(context.Background(), "/markers", nil); err != nil {
		t.Fatal(err)
	}
	got = <-captured
	if got.method != http.MethodPost || got.body != "{}" || got.contentType != "application/json" {
		t.Errorf("nil body should be sent as {}: %+v", got)
	}

	if _, err := c.Put(context.Background(), "/tags/x", map[string][]string{"entryIds": {"e1"}}); err != nil {
		t.Fatal(err)
	}
	got = <-captured
	if got.method != http.MethodPut || got.body != `{"entryIds":["e1"]}` {
		t.Errorf("unexpected PUT shape: %+v", got)
	}
}

func TestClient_NoAuthorizationWithoutAccessToken(t *testing.T) {
	t.Parallel()

	var sawHeader atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			sawHeader.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.Client(), types.Credential{UserID: "u", RefreshToken: "r"}, testOAuth, server.URL, "agent", fastRate, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.PostNoRenewal(context.Background(), "x", nil); err != nil {
		t.Fatal(err)
	}
	if sawHeader.Load() {
		t.Error("no Authorization header expected without an access token")
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_TransportErrorWrapped(t *testing.T) {
	expectedErr := errors.New("boom")
	httpClient := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, expectedErr
	})}

	c, err := NewClient(httpClient, types.Credential{}, testOAuth, "https://example.com/", "agent", fastRate, nil)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	_, err = c.Get(context.Background(), "resource", nil)
	var reqErr *pkgerrs.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %T", err)
	}
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected wrapped error %v, got %v", expectedErr, err)
	}
}

func TestClient_UnencodableBody(t *testing.T) {
	c, err := NewClient(nil, types.Credential{}, testOAuth, "https://example.com/", "agent", fastRate, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Post(context.Background(), "x", map[string]any{"bad": make(chan int)})
	var cfgErr *pkgerrs.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestClient_RateHeadersDeferRequests(t *testing.T) {
	c, err := NewClient(nil, types.Credential{}, testOAuth, "https://example.com/", "agent", fastRate, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-Ratelimit-Count", "249")
	resp.Header.Set("X-Ratelimit-Limit", "250")
	resp.Header.Set("X-Ratelimit-Reset", "30")
	c.applyRateHeaders(resp)

	c.mu.Lock()
	until := c.forceWaitUntil
	c.mu.Unlock()
	if until.IsZero() || time.Until(until) < 25*time.Second {
		t.Fatalf("expected requests to be deferred ~30s, got %v", until)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := c.waitForRateLimit(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while deferred, got %v", err)
	}
}

func TestClient_RateHeadersIgnoredWithQuotaLeft(t *testing.T) {
	c, err := NewClient(nil, types.Credential{}, testOAuth, "https://example.com/", "agent", fastRate, nil)
	if err != nil {
		t.Fatal(err)
	}

	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("X-Ratelimit-Count", "10")
	resp.Header.Set("X-Ratelimit-Limit", "250")
	resp.Header.Set("X-Ratelimit-Reset", "30")
	c.applyRateHeaders(resp)

	if !c.forceWaitUntil.IsZero() {
		t.Error("expected no forced delay")
	}
}
