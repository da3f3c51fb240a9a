package internal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const (
	tokenEndpointPath = "auth/token"
	authEndpointPath  = "auth/auth"

	grantAuthorizationCode = "authorization_code"
	grantRefreshToken      = "refresh_token"
)

var codePattern = regexp.MustCompile(`[?&]code=([-_a-zA-Z0-9]+)`)

// OAuthConfig holds the registered application's OAuth2 parameters.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}

// Authenticator runs the authorization-code half of the OAuth2 flow: it
// builds the consent URL and exchanges the returned code for tokens.
type Authenticator struct {
	client    *http.Client
	BaseURL   *url.URL
	oauth     OAuthConfig
	userAgent string
	logger    *slog.Logger
}

// NewAuthenticator creates a new authenticator rooted at baseURL.
func NewAuthenticator(httpClient *http.Client, baseURL string, oauth OAuthConfig, userAgent string, logger *slog.Logger) (*Authenticator, error) {
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

	return &Authenticator{
		client:    httpClient,
		BaseURL:   parsedURL,
		oauth:     oauth,
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// AuthenticationURL returns the consent page URL. It performs no I/O.
func (a *Authenticator) AuthenticationURL(state string) string {
	u, _ := a.BaseURL.Parse(authEndpointPath)

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.oauth.ClientID)
	q.Set("redirect_uri", a.oauth.RedirectURI)
	q.Set("scope", a.oauth.Scope)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// ExtractCode pulls the authorization code out of a redirect URL. Input that
// carries no code parameter is returned unchanged as a bare code.
func ExtractCode(codeOrURL string) string {
	codeOrURL = strings.TrimSpace(codeOrURL)
	if m := codePattern.FindStringSubmatch(codeOrURL); m != nil {
		return m[1]
	}
	return codeOrURL
}

type exchangeResponse struct {
	ID           string `json:"id"`
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Plan         string `json:"plan"`
}

// Exchange trades an authorization code (or a redirect URL containing one)
// for the user id, refresh token and access token.
func (a *Authenticator) Exchange(ctx context.Context, codeOrURL string) (types.Credential, error) {
	code := ExtractCode(codeOrURL)
	if code == "" {
		return types.Credential{}, &pkgerrs.ConfigError{Field: "code", Message: "authorization code cannot be empty"}
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", a.oauth.ClientID)
	form.Set("client_secret", a.oauth.ClientSecret)
	form.Set("redirect_uri", a.oauth.RedirectURI)
	form.Set("grant_type", grantAuthorizationCode)

	tokenURL, _ := a.BaseURL.Parse(tokenEndpointPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return types.Credential{}, &pkgerrs.AuthError{Operation: "exchange", Message: "failed to create token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if a.userAgent != "" {
		req.Header.Set("User-Agent", a.userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return types.Credential{}, &pkgerrs.AuthError{Operation: "exchange", Message: "failed to execute token request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Credential{}, &pkgerrs.AuthError{Operation: "exchange", StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	result := &types.Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
	if resp.StatusCode != http.StatusOK {
		return types.Credential{}, &pkgerrs.AuthError{Operation: "exchange", StatusCode: resp.StatusCode, Body: result.Text()}
	}

	var tokens exchangeResponse
	if err := result.Decode(&tokens); err != nil {
		return types.Credential{}, &pkgerrs.AuthError{Operation: "exchange", StatusCode: resp.StatusCode, Body: result.Text(), Err: err}
	}

	var missing []string
	if tokens.ID == "" {
		missing = append(missing, "id")
	}
	if tokens.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if tokens.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if len(missing) > 0 {
		return types.Credential{}, &pkgerrs.AuthError{
			Operation:  "exchange",
			StatusCode: resp.StatusCode,
			Body:       result.Text(),
			Message:    "token response lacks " + strings.Join(missing, ", "),
		}
	}

	a.logger.DebugContext(ctx, "authorization code exchanged",
		"userID", tokens.ID,
		"plan", tokens.Plan)

	return types.Credential{
		UserID:       tokens.ID,
		RefreshToken: tokens.RefreshToken,
		AccessToken:  tokens.AccessToken,
	}, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Reauthenticate obtains a fresh access token with the refresh token and
// stores it on the client. The refresh token itself is not rotated.
func (c *Client) Reauthenticate(ctx context.Context) error {
	resp, err := c.PostNoRenewal(ctx, tokenEndpointPath, refreshRequest{
		RefreshToken: c.credential.RefreshToken,
		ClientID:     c.oauth.ClientID,
		ClientSecret: c.oauth.ClientSecret,
		GrantType:    grantRefreshToken,
	})
	if err != nil {
		return &pkgerrs.AuthError{Operation: "refresh", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return &pkgerrs.AuthError{
			Operation:  "refresh",
			StatusCode: resp.StatusCode,
			Body:       resp.Text(),
			Message:    "couldn't renew access token",
		}
	}

	var tokens refreshResponse
	if err := resp.Decode(&tokens); err != nil {
		return &pkgerrs.AuthError{Operation: "refresh", StatusCode: resp.StatusCode, Body: resp.Text(), Err: err}
	}
	if tokens.AccessToken == "" {
		return &pkgerrs.AuthError{
			Operation:  "refresh",
			StatusCode: resp.StatusCode,
			Body:       resp.Text(),
			Message:    "token response lacks access_token",
		}
	}

	c.credential.AccessToken = tokens.AccessToken

	c.logger.InfoContext(ctx, "access token renewed",
		"userID", c.credential.UserID,
		"expiresIn", tokens.ExpiresIn)

	return nil
}
