package feedly_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"github.com/jamesprial/go-feedly-api-wrapper/test_helpers"
)

func TestTokenLifecycle_ExpiredTokenIsRenewedOnce(t *testing.T) {
	t.Parallel()

	tc := test_helpers.NewTestClient(t)
	tc.Server.SetJSON("GET /profile", map[string]string{"id": tc.Server.UserID, "email": "reader@example.com"})

	before := tc.Credential().AccessToken
	tc.Server.ExpireToken()

	profile, err := tc.Profile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "reader@example.com" {
		t.Errorf("unexpected profile %+v", profile)
	}

	if got := tc.Server.GetCallCount("/profile"); got != 2 {
		t.Errorf("expected 2 calls to /profile, got %d", got)
	}
	if got := tc.Server.Renewals(); got != 1 {
		t.Errorf("expected 1 renewal, got %d", got)
	}

	after := tc.Credential()
	if after.AccessToken == before || after.AccessToken != tc.Server.AccessToken() {
		t.Errorf("access token not replaced: before %q, after %q", before, after.AccessToken)
	}
	if after.RefreshToken != tc.Server.RefreshToken || after.UserID != tc.Server.UserID {
		t.Errorf("refresh token and user id must not change: %+v", after)
	}

	// The renewed token is reused without another renewal.
	if _, err := tc.Profile(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := tc.Server.Renewals(); got != 1 {
		t.Errorf("expected no further renewal, got %d", got)
	}
}

func TestTokenLifecycle_MissingAccessToken(t *testing.T) {
	t.Parallel()

	server := test_helpers.NewFeedlyMockServer()
	t.Cleanup(server.Close)
	server.SetJSON("GET /categories", []types.Category{{ID: "user/u/category/tech", Label: "Tech"}})

	client, err := feedly.NewClient(server.Config(), types.Credential{UserID: server.UserID, RefreshToken: server.RefreshToken})
	if err != nil {
		t.Fatal(err)
	}

	categories, err := client.Categories(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(categories) != 1 || categories[0].Label != "Tech" {
		t.Errorf("unexpected categories %+v", categories)
	}

	first := server.GetRequestLog()[0]
	if first.Headers.Get("Authorization") != "" {
		t.Errorf("first request must carry no Authorization header, got %q", first.Headers.Get("Authorization"))
	}
	if server.Renewals() != 1 {
		t.Errorf("expected 1 renewal, got %d", server.Renewals())
	}
}

func TestTokenLifecycle_RefreshRejected(t *testing.T) {
	t.Parallel()

	tc := test_helpers.NewTestClient(t)
	tc.Server.ExpireToken()
	tc.Server.FailRefresh(true)

	_, err := tc.Subscriptions(context.Background())

	var authErr *feedly.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Operation != "refresh" || authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("unexpected AuthError %+v", authErr)
	}
	if got := tc.Server.GetCallCount("/subscriptions"); got != 1 {
		t.Errorf("request must not be resent after a failed renewal, got %d calls", got)
	}
}

func TestTokenLifecycle_StillUnauthorizedAfterRenewal(t *testing.T) {
	t.Parallel()

	tc := test_helpers.NewTestClient(t)
	tc.Server.Handle("GET /markers/counts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorCode":401,"errorMessage":"not allowed"}`))
	})
	tc.Server.SetJSON("GET /subscriptions", []types.Subscription{})

	_, err := tc.UnreadCounts(context.Background())

	var reqErr *feedly.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", reqErr.StatusCode)
	}
	if got := tc.Server.GetCallCount("/markers/counts"); got != 2 {
		t.Errorf("expected exactly 2 calls, got %d", got)
	}
	if got := tc.Server.Renewals(); got != 1 {
		t.Errorf("expected exactly 1 renewal, got %d", got)
	}
}

func TestTokenLifecycle_ExplicitReauthenticate(t *testing.T) {
	t.Parallel()

	tc := test_helpers.NewTestClient(t)
	if err := tc.Reauthenticate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tc.Credential().AccessToken != tc.Server.AccessToken() {
		t.Error("credential does not hold the renewed token")
	}

	entry, err := tc.Server.GetLastRequest("/auth/token")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	if err := entry.JSON(&body); err != nil {
		t.Fatalf("renewal body is not JSON: %v", err)
	}
	want := map[string]string{
		"refresh_token": tc.Server.RefreshToken,
		"client_id":     test_helpers.TestClientID,
		"client_secret": test_helpers.TestClientSecret,
		"grant_type":    "refresh_token",
	}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("%s = %q, want %q", k, body[k], v)
		}
	}
	if entry.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", entry.Headers.Get("Content-Type"))
	}
}
