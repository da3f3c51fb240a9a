package feedly_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"github.com/jamesprial/go-feedly-api-wrapper/test_helpers"
)

func TestConnectionRefused(t *testing.T) {
	t.Parallel()

	// Reserve a port, then close it so nothing is listening.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client, err := feedly.NewClient(&feedly.Config{
		ClientID:     "c",
		ClientSecret: "s",
		BaseURL:      "http://" + addr + "/v3",
		HTTPClient:   &http.Client{Timeout: 2 * time.Second},
	}, types.Credential{UserID: "u", RefreshToken: "r", AccessToken: "a"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Profile(context.Background())
	var reqErr *feedly.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Err == nil || reqErr.StatusCode != 0 {
		t.Errorf("expected wrapped transport error, got %+v", reqErr)
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		t.Errorf("expected the net.OpError to unwrap, got %T", errors.Unwrap(err))
	}
}

func TestTimeoutIsNotRetried(t *testing.T) {
	t.Parallel()

	calls := make(chan struct{}, 10)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		server.Close()
	})

	client, err := feedly.NewClient(&feedly.Config{
		ClientID:     "c",
		ClientSecret: "s",
		BaseURL:      server.URL + "/v3",
		HTTPClient:   &http.Client{Timeout: 100 * time.Millisecond},
	}, types.Credential{UserID: "u", RefreshToken: "r", AccessToken: "a"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.Categories(context.Background())
	var reqErr *feedly.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("expected a single attempt, got %d", len(calls))
	}
}

func TestContextCancellation(t *testing.T) {
	t.Parallel()

	tc := test_helpers.NewTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tc.Subscriptions(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if tc.Server.TotalCalls() != 0 {
		t.Errorf("cancelled request reached the server")
	}
}

func TestRetryAfterDefersNextRequest(t *testing.T) {
	t.Parallel()

	tc := test_helpers.NewTestClient(t)
	tc.Server.SetResponseSequence("GET /profile",
		&test_helpers.MockResponse{Status: http.StatusTooManyRequests, Headers: map[string]string{"Retry-After": "0.2"}},
		&test_helpers.MockResponse{Status: http.StatusOK, Body: `{"id":"u"}`},
	)

	if _, err := tc.Profile(context.Background()); err == nil {
		t.Fatal("expected the 429 to surface as an error")
	}

	start := time.Now()
	if _, err := tc.Profile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("second request was not deferred, elapsed %v", elapsed)
	}
	if got := tc.Server.GetCallCount("/profile"); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}
