package test_helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the version path the mock serves under.
const APIPrefix = "/v3"

// MockServer provides a configurable mock Feedly API server for testing.
// Responses are keyed by "METHOD /path" (path relative to APIPrefix,
// unescaped) or by path alone for any method.
type MockServer struct {
	server *httptest.Server

	mu          sync.Mutex
	responses   map[string][]*MockResponse
	handlers    map[string]http.HandlerFunc
	defaultResp *MockResponse
	requestLog  []RequestEntry
	callCount   map[string]int
}

// RequestEntry logs incoming requests for assertions.
type RequestEntry struct {
	Method       string
	Path         string
	RawPath      string
	Query        url.Values
	Headers      http.Header
	Body         string
	Timestamp    time.Time
	ResponseCode int
}

// JSON decodes the logged body into v.
func (e RequestEntry) JSON(v any) error {
	return json.Unmarshal([]byte(e.Body), v)
}

// MockResponse defines a mock API response
type MockResponse struct {
	Status  int
	Body    string
	Headers map[string]string
	Delay   time.Duration
}

// NewMockServer creates a new mock server instance
func NewMockServer() *MockServer {
	ms := newMockState()
	ms.server = httptest.NewServer(ms)
	return ms
}

func newMockState() *MockServer {
	return &MockServer{
		responses: make(map[string][]*MockResponse),
		handlers:  make(map[string]http.HandlerFunc),
		callCount: make(map[string]int),
		defaultResp: &MockResponse{
			Status: http.StatusNotFound,
			Body:   `{"errorCode":404,"errorMessage":"no mock response"}`,
		},
	}
}

// URL returns the API base URL of the mock server, including APIPrefix.
func (ms *MockServer) URL() string {
	return ms.server.URL + APIPrefix
}

// Client returns an HTTP client wired to the mock server.
func (ms *MockServer) Client() *http.Client {
	return ms.server.Client()
}

// Close shuts down the mock server
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse configures a response for a route.
func (ms *MockServer) SetResponse(route string, response *MockResponse) {
	ms.SetResponseSequence(route, response)
}

// SetResponseSequence serves responses in order for consecutive calls to
// route. The last response repeats once the sequence is used up.
func (ms *MockServer) SetResponseSequence(route string, responses ...*MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[route] = responses
}

// SetJSON is shorthand for a 200 response with a JSON body.
func (ms *MockServer) SetJSON(route string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	ms.SetResponse(route, &MockResponse{Status: http.StatusOK, Body: string(body)})
}

// Handle installs a custom handler for a route. Handlers take precedence
// over canned responses.
func (ms *MockServer) Handle(route string, h http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[route] = h
}

// SetDefaultResponse configures the response for unknown routes.
func (ms *MockServer) SetDefaultResponse(response *MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.defaultResp = response
}

// GetRequestLog returns a copy of the request log.
func (ms *MockServer) GetRequestLog() []RequestEntry {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RequestEntry{}, ms.requestLog...)
}

// GetCallCount returns how many requests reached path (any method).
func (ms *MockServer) GetCallCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.callCount[path]
}

// TotalCalls returns the number of requests served.
func (ms *MockServer) TotalCalls() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requestLog)
}

// ClearLog clears the request log and call counts.
func (ms *MockServer) ClearLog() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requestLog = ms.requestLog[:0]
	ms.callCount = make(map[string]int)
}

// ServeHTTP implements http.Handler
func (ms *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, APIPrefix)
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(strings.NewReader(string(body)))

	entry := RequestEntry{
		Method:    r.Method,
		Path:      path,
		RawPath:   strings.TrimPrefix(r.URL.EscapedPath(), APIPrefix),
		Query:     r.URL.Query(),
		Headers:   r.Header.Clone(),
		Body:      string(body),
		Timestamp: time.Now(),
	}

	ms.mu.Lock()
	ms.callCount[path]++
	handler := ms.handlers[r.Method+" "+path]
	if handler == nil {
		handler = ms.handlers[path]
	}
	var response *MockResponse
	if handler == nil {
		response = ms.nextResponse(r.Method+" "+path, path)
	}
	ms.mu.Unlock()

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	if handler != nil {
		handler(rec, r)
	} else {
		if response.Delay > 0 {
			time.Sleep(response.Delay)
		}
		for key, value := range response.Headers {
			rec.Header().Set(key, value)
		}
		rec.WriteHeader(response.Status)
		rec.Write([]byte(response.Body))
	}
	entry.ResponseCode = rec.status

	ms.mu.Lock()
	ms.requestLog = append(ms.requestLog, entry)
	ms.mu.Unlock()
}

// nextResponse pops the next queued response. Callers hold ms.mu.
func (ms *MockServer) nextResponse(keys ...string) *MockResponse {
	for _, key := range keys {
		queue := ms.responses[key]
		if len(queue) == 0 {
			continue
		}
		resp := queue[0]
		if len(queue) > 1 {
			ms.responses[key] = queue[1:]
		}
		return resp
	}
	return ms.defaultResp
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// FeedlyMockServer adds a token endpoint and access-token checking on top of
// MockServer. Requests whose Authorization header does not carry the current
// access token get 401.
type FeedlyMockServer struct {
	*MockServer

	UserID       string
	RefreshToken string

	authMu       sync.Mutex
	accessToken  string
	generation   int
	renewals     int
	exchanges    int
	refreshFails bool
}

// NewFeedlyMockServer creates a mock server pre-configured for the Feedly API.
func NewFeedlyMockServer() *FeedlyMockServer {
	fms := &FeedlyMockServer{
		MockServer:   newMockState(),
		UserID:       "c805fcbf-3acf-4302-a97e-d82f9d7c897f",
		RefreshToken: "refresh-token",
		accessToken:  "access-1",
		generation:   1,
	}
	fms.Handle("POST /auth/token", fms.handleToken)
	fms.SetDefaultResponse(&MockResponse{
		Status: http.StatusOK,
		Body:   `{}`,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			"X-Ratelimit-Count": "1",
			"X-Ratelimit-Limit": "250",
			"X-Ratelimit-Reset": "3600",
		},
	})
	fms.server = httptest.NewServer(http.HandlerFunc(fms.serveAuthorized))
	return fms
}

// AccessToken returns the currently valid access token.
func (fms *FeedlyMockServer) AccessToken() string {
	fms.authMu.Lock()
	defer fms.authMu.Unlock()
	return fms.accessToken
}

// ExpireToken invalidates the current access token, so the next request
// answers 401 until the client renews.
func (fms *FeedlyMockServer) ExpireToken() {
	fms.authMu.Lock()
	defer fms.authMu.Unlock()
	fms.generation++
	fms.accessToken = "access-" + strconv.Itoa(fms.generation)
}

// FailRefresh makes the token endpoint reject refresh_token grants.
func (fms *FeedlyMockServer) FailRefresh(fail bool) {
	fms.authMu.Lock()
	defer fms.authMu.Unlock()
	fms.refreshFails = fail
}

// Renewals returns the number of refresh_token grants served.
func (fms *FeedlyMockServer) Renewals() int {
	fms.authMu.Lock()
	defer fms.authMu.Unlock()
	return fms.renewals
}

// Exchanges returns the number of authorization_code grants served.
func (fms *FeedlyMockServer) Exchanges() int {
	fms.authMu.Lock()
	defer fms.authMu.Unlock()
	return fms.exchanges
}

func (fms *FeedlyMockServer) serveAuthorized(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, APIPrefix)
	if !strings.HasPrefix(path, "/auth/") {
		want := "OAuth " + fms.AccessToken()
		if r.Header.Get("Authorization") != want {
			fms.logUnauthorized(r, path)
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"errorCode":401,"errorMessage":"token expired"}`)
			return
		}
	}
	fms.MockServer.ServeHTTP(w, r)
}

func (fms *FeedlyMockServer) logUnauthorized(r *http.Request, path string) {
	body, _ := io.ReadAll(r.Body)
	ms := fms.MockServer
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.callCount[path]++
	ms.requestLog = append(ms.requestLog, RequestEntry{
		Method:       r.Method,
		Path:         path,
		RawPath:      strings.TrimPrefix(r.URL.EscapedPath(), APIPrefix),
		Query:        r.URL.Query(),
		Headers:      r.Header.Clone(),
		Body:         string(body),
		Timestamp:    time.Now(),
		ResponseCode: http.StatusUnauthorized,
	})
}

func (fms *FeedlyMockServer) handleToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"errorCode":400,"errorMessage":"invalid grant"}`)
			return
		}
		fms.authMu.Lock()
		fms.exchanges++
		token := fms.accessToken
		fms.authMu.Unlock()

		json.NewEncoder(w).Encode(map[string]any{
			"id":            fms.UserID,
			"refresh_token": fms.RefreshToken,
			"access_token":  token,
			"expires_in":    3600,
			"token_type":    "Bearer",
		})
		return
	}

	var req struct {
		RefreshToken string `json:"refresh_token"`
		GrantType    string `json:"grant_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GrantType != "refresh_token" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorCode":400,"errorMessage":"invalid grant"}`)
		return
	}

	fms.authMu.Lock()
	defer fms.authMu.Unlock()
	fms.renewals++
	if fms.refreshFails || req.RefreshToken != fms.RefreshToken {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"errorCode":401,"errorMessage":"invalid refresh token"}`)
		return
	}
	fms.generation++
	fms.accessToken = "access-" + strconv.Itoa(fms.generation)
	json.NewEncoder(w).Encode(map[string]any{
		"access_token": fms.accessToken,
		"expires_in":   3600,
	})
}

// WaitForRequests waits for a specific number of requests to be made
func (ms *MockServer) WaitForRequests(count int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %d requests", count)
		case <-ticker.C:
			if ms.TotalCalls() >= count {
				return nil
			}
		}
	}
}

// AssertRequestCount asserts that a specific number of requests were made to a path
func (ms *MockServer) AssertRequestCount(path string, expectedCount int) error {
	actualCount := ms.GetCallCount(path)
	if actualCount != expectedCount {
		return fmt.Errorf("expected %d requests to %s, got %d", expectedCount, path, actualCount)
	}
	return nil
}

// GetLastRequest returns the last request made to a specific path
func (ms *MockServer) GetLastRequest(path string) (*RequestEntry, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := len(ms.requestLog) - 1; i >= 0; i-- {
		if ms.requestLog[i].Path == path {
			entry := ms.requestLog[i]
			return &entry, nil
		}
	}

	return nil, fmt.Errorf("no requests found for path: %s", path)
}
