package test_helpers

import (
	"fmt"
	"strings"
	"testing"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const (
	TestClientID     = "sandbox"
	TestClientSecret = "test_client_secret"
)

// TestClient pairs a Feedly client with the fake service it talks to.
type TestClient struct {
	*feedly.Client
	Server *FeedlyMockServer
}

// Config returns a client configuration pointing at the mock server, with
// rate limiting loose enough not to slow tests down.
func (fms *FeedlyMockServer) Config() *feedly.Config {
	return &feedly.Config{
		ClientID:     TestClientID,
		ClientSecret: TestClientSecret,
		UserAgent:    "feedly-test/1.0",
		BaseURL:      fms.URL(),
		HTTPClient:   fms.Client(),
		RateLimit:    &feedly.RateLimitConfig{RequestsPerMinute: 60000, Burst: 1000},
	}
}

// Credential returns a credential holding the server's current access token.
func (fms *FeedlyMockServer) Credential() types.Credential {
	return types.Credential{
		UserID:       fms.UserID,
		RefreshToken: fms.RefreshToken,
		AccessToken:  fms.AccessToken(),
	}
}

// NewTestClient starts a fake Feedly service and returns a client already
// holding a valid access token. The server is closed when the test ends.
func NewTestClient(t testing.TB) *TestClient {
	t.Helper()

	server := NewFeedlyMockServer()
	t.Cleanup(server.Close)

	client, err := feedly.NewClient(server.Config(), server.Credential())
	if err != nil {
		t.Fatalf("failed to create feedly client: %v", err)
	}

	return &TestClient{Client: client, Server: server}
}

// Utility functions for testing

// AssertNoError asserts that an error is nil
func AssertNoError(err error) error {
	if err != nil {
		return fmt.Errorf("expected no error, got: %v", err)
	}
	return nil
}

// AssertError asserts that an error is not nil
func AssertError(err error) error {
	if err == nil {
		return fmt.Errorf("expected error, got nil")
	}
	return nil
}

// AssertErrorContains asserts that an error contains specific text
func AssertErrorContains(err error, expected string) error {
	if err == nil {
		return fmt.Errorf("expected error containing '%s', got nil", expected)
	}
	if !strings.Contains(err.Error(), expected) {
		return fmt.Errorf("expected error containing '%s', got '%s'", expected, err.Error())
	}
	return nil
}
