package feedly

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jamesprial/go-feedly-api-wrapper/internal"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const (
	// DefaultBaseURL is the production Feedly API base URL.
	DefaultBaseURL = "https://cloud.feedly.com/v3"
	// SandboxBaseURL is the Feedly developer sandbox.
	SandboxBaseURL = "https://sandbox7.feedly.com/v3"
	// DefaultScope is the OAuth scope requested by AuthenticationURL.
	DefaultScope = "https://cloud.feedly.com/subscriptions"
	// DefaultRedirectURI is the redirect registered for the sandbox client.
	DefaultRedirectURI = "http://localhost"
	// DefaultUserAgent is the default user agent string
	DefaultUserAgent = "go-feedly-api-wrapper/0.1"
	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second
)

// Resource kinds and global labels accepted by ResourceID and GlobalResourceID.
const (
	KindCategory = internal.KindCategory
	KindFeed     = internal.KindFeed
	KindTag      = internal.KindTag
	KindEntry    = internal.KindEntry

	LabelSaved         = internal.LabelSaved
	LabelRead          = internal.LabelRead
	LabelUncategorized = internal.LabelUncategorized
	LabelAll           = internal.LabelAll
)

// RateLimitConfig controls client-side request throttling.
type RateLimitConfig = internal.RateLimitConfig

// Config holds the configuration for the Feedly client.
//
// The client copies the Config it is given, so later changes to the caller's
// struct have no effect. Use SandboxBaseURL with the sandbox client id to
// develop against the Feedly sandbox:
//
//	config := &feedly.Config{
//		BaseURL:      feedly.SandboxBaseURL,
//		ClientID:     "sandbox",
//		ClientSecret: "your-sandbox-secret",
//	}
type Config struct {
	// ClientID and ClientSecret identify the registered application.
	ClientID     string
	ClientSecret string

	// RedirectURI must match the one registered with Feedly.
	// Defaults to DefaultRedirectURI.
	RedirectURI string

	// Scope requested during authorization. Defaults to DefaultScope.
	Scope string

	// UserAgent identifies your application. Defaults to DefaultUserAgent.
	UserAgent string

	// BaseURL for the Feedly API, including the version path.
	// The OAuth endpoints auth/auth and auth/token hang off it too.
	// Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient to use for requests.
	// Defaults to a client with DefaultTimeout if not specified.
	HTTPClient *http.Client

	// Logger for structured diagnostics. Optional.
	Logger *slog.Logger

	// RateLimit throttles outgoing requests. Optional.
	RateLimit *RateLimitConfig
}

// withDefaults returns a validated copy of config with defaults applied.
func withDefaults(config *Config) (Config, error) {
	if config == nil {
		return Config{}, &ConfigError{Field: "Config", Message: "config cannot be nil"}
	}

	cfg := *config
	if cfg.ClientID == "" {
		return Config{}, &ConfigError{Field: "ClientID", Message: "client id is required"}
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = DefaultRedirectURI
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.RateLimit != nil {
		rl := *cfg.RateLimit
		cfg.RateLimit = &rl
	}

	if err := internal.NewValidator().ValidateUserAgent(cfg.UserAgent); err != nil {
		return Config{}, &ConfigError{Field: "UserAgent", Message: err.Error()}
	}
	return cfg, nil
}

func (c Config) oauth() internal.OAuthConfig {
	return internal.OAuthConfig{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		Scope:        c.Scope,
	}
}

func newAuthenticator(cfg Config) (*internal.Authenticator, error) {
	return internal.NewAuthenticator(cfg.HTTPClient, cfg.BaseURL, cfg.oauth(), cfg.UserAgent, cfg.Logger)
}

// AuthenticationURL returns the URL of the Feedly consent page. Open it in a
// browser; after approval Feedly redirects to RedirectURI with a code
// parameter. state is appended only when non-empty. No request is made.
func AuthenticationURL(config *Config, state string) (string, error) {
	cfg, err := withDefaults(config)
	if err != nil {
		return "", err
	}
	auth, err := newAuthenticator(cfg)
	if err != nil {
		return "", err
	}
	return auth.AuthenticationURL(state), nil
}

// FromAuthenticationCode exchanges an authorization code for tokens and
// returns a ready client. codeOrURL may be the bare code or the whole
// redirect URL Feedly sent the browser to.
func FromAuthenticationCode(ctx context.Context, config *Config, codeOrURL string) (*Client, error) {
	cfg, err := withDefaults(config)
	if err != nil {
		return nil, err
	}
	auth, err := newAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	credential, err := auth.Exchange(ctx, codeOrURL)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, credential)
}

// Client is the Feedly API client. It owns one user's credential and renews
// the access token in place when the service answers 401.
//
// A Client is not safe for concurrent use.
type Client struct {
	client    *internal.Client
	config    Config
	parser    *internal.Parser
	validator *internal.Validator
	logger    *slog.Logger
}

// NewClient creates a client from a persisted credential. UserID and
// RefreshToken are required; AccessToken may be empty, in which case the first
// request is sent unauthenticated and triggers a renewal.
func NewClient(config *Config, credential types.Credential) (*Client, error) {
	cfg, err := withDefaults(config)
	if err != nil {
		return nil, err
	}
	return newClient(cfg, credential)
}

func newClient(cfg Config, credential types.Credential) (*Client, error) {
	if cfg.ClientSecret == "" {
		return nil, &ConfigError{Field: "ClientSecret", Message: "client secret is required"}
	}
	if credential.UserID == "" {
		return nil, &ConfigError{Field: "UserID", Message: "user id is required"}
	}
	if credential.RefreshToken == "" {
		return nil, &ConfigError{Field: "RefreshToken", Message: "refresh token is required"}
	}

	client, err := internal.NewClient(
		cfg.HTTPClient,
		credential,
		cfg.oauth(),
		cfg.BaseURL,
		cfg.UserAgent,
		cfg.RateLimit,
		cfg.Logger,
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		client:    client,
		config:    cfg,
		parser:    internal.NewParser(),
		validator: internal.NewValidator(),
		logger:    cfg.Logger,
	}, nil
}

// Credential returns the current credential. Persist it after use so a
// renewed access token survives restarts.
func (c *Client) Credential() types.Credential {
	return c.client.Credential()
}

// BaseURL returns the API base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Reauthenticate renews the access token with the refresh token.
func (c *Client) Reauthenticate(ctx context.Context) error {
	return c.client.Reauthenticate(ctx)
}

// Get sends an authenticated GET to path with params as the query string.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*types.Response, error) {
	return c.client.Get(ctx, path, params)
}

// Post sends an authenticated POST with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.client.Post(ctx, path, body)
}

// Put sends an authenticated PUT with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.client.Put(ctx, path, body)
}

// Delete sends an authenticated DELETE with body encoded as JSON.
func (c *Client) Delete(ctx context.Context, path string, body any) (*types.Response, error) {
	return c.client.Delete(ctx, path, body)
}

// ResourceID returns "user/<user id>/<kind>/<name>".
func (c *Client) ResourceID(kind, name string) string {
	return internal.ResourceID(c.client.Credential().UserID, kind, name)
}

// GlobalResourceID returns the id of a service-wide singleton such as the
// saved tag or the uncategorized category.
func (c *Client) GlobalResourceID(kind, label string) string {
	return internal.GlobalResourceID(c.client.Credential().UserID, kind, label)
}

// Profile returns the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*types.Profile, error) {
	resp, err := c.client.Get(ctx, "profile", nil)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseProfile(resp)
}

// Categories returns the user's categories.
func (c *Client) Categories(ctx context.Context) ([]types.Category, error) {
	resp, err := c.client.Get(ctx, "categories", nil)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseCategories(resp)
}

// SubscriptionList returns the user's subscriptions in the order Feedly lists them.
func (c *Client) SubscriptionList(ctx context.Context) ([]*types.Subscription, error) {
	resp, err := c.client.Get(ctx, "subscriptions", nil)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseSubscriptions(resp)
}

// Subscriptions returns the user's subscriptions keyed by feed id.
func (c *Client) Subscriptions(ctx context.Context) (map[string]*types.Subscription, error) {
	subs, err := c.SubscriptionList(ctx)
	if err != nil {
		return nil, err
	}
	return internal.IndexSubscriptions(subs), nil
}

// UnreadCounts returns unread counts grouped by category. A feed in several
// categories counts fully toward each. Feeds without a category are grouped
// under the global uncategorized category.
//
// The subscriptions and counts are fetched in two calls. If a counted feed is
// missing from the subscriptions the result is a *ConsistencyError.
func (c *Client) UnreadCounts(ctx context.Context) (types.UnreadCounts, error) {
	subs, err := c.Subscriptions(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Get(ctx, "markers/counts", nil)
	if err != nil {
		return nil, err
	}
	counts, err := c.parser.ParseUnreadCounts(resp)
	if err != nil {
		return nil, err
	}

	uncategorized := types.Category{
		ID:    c.GlobalResourceID(KindCategory, LabelUncategorized),
		Label: LabelUncategorized,
	}
	result, err := internal.AggregateUnreadCounts(subs, counts, uncategorized)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "unread counts aggregated",
		"categories", len(result),
		"rows", len(counts))

	return result, nil
}

// StreamContent fetches one page of a stream. The zero StreamRequest fields
// select 25 unread entries, oldest first. Pass the returned page's
// Continuation back in the next request until it is empty.
//
// Entries tagged with the global saved tag have KeepUnread set.
func (c *Client) StreamContent(ctx context.Context, request *types.StreamRequest) (*types.StreamPage, error) {
	if err := c.validator.ValidateStreamRequest(request); err != nil {
		return nil, err
	}

	count := request.Count
	if count == 0 {
		count = types.DefaultStreamCount
	}
	ranked := "oldest"
	if request.NewestFirst {
		ranked = "newest"
	}

	params := url.Values{}
	params.Set("streamId", request.StreamID)
	params.Set("count", strconv.Itoa(count))
	params.Set("ranked", ranked)
	params.Set("unreadOnly", strconv.FormatBool(!request.IncludeRead))
	if request.Continuation != "" {
		params.Set("continuation", request.Continuation)
	}

	resp, err := c.client.Get(ctx, "streams/contents", params)
	if err != nil {
		return nil, err
	}
	return c.parser.ParseStreamPage(resp, c.GlobalResourceID(KindTag, LabelSaved))
}

// RecentlyRead fetches one page of the global read tag, newest first unless
// OldestFirst is set. request may be nil.
func (c *Client) RecentlyRead(ctx context.Context, request *types.RecentlyReadRequest) (*types.StreamPage, error) {
	return c.StreamContent(ctx, c.recentlyReadRequest(request))
}

func (c *Client) recentlyReadRequest(request *types.RecentlyReadRequest) *types.StreamRequest {
	if request == nil {
		request = &types.RecentlyReadRequest{}
	}
	// Entries under the read tag are read by definition, so unreadOnly would
	// always produce an empty page.
	return &types.StreamRequest{
		StreamID:     c.GlobalResourceID(KindTag, LabelRead),
		Count:        request.Count,
		IncludeRead:  true,
		NewestFirst:  !request.OldestFirst,
		Continuation: request.Continuation,
	}
}

// MarkAsRead marks entries as read.
func (c *Client) MarkAsRead(ctx context.Context, entryIDs []string) error {
	return c.markEntries(ctx, types.ActionMarkAsRead, entryIDs)
}

// MarkAsUnread marks entries as unread.
func (c *Client) MarkAsUnread(ctx context.Context, entryIDs []string) error {
	return c.markEntries(ctx, types.ActionKeepUnread, entryIDs)
}

func (c *Client) markEntries(ctx context.Context, action string, entryIDs []string) error {
	if err := c.validator.ValidateIDs("EntryIDs", entryIDs); err != nil {
		return err
	}
	return c.postMarkers(ctx, &types.MarkersRequest{
		Action:   action,
		Type:     types.MarkerEntries,
		EntryIDs: entryIDs,
	})
}

// MarkFeedAsRead marks a whole feed as read. When lastReadEntryID is set only
// entries up to and including it are marked.
func (c *Client) MarkFeedAsRead(ctx context.Context, feedID, lastReadEntryID string) error {
	if err := c.validator.ValidateID("FeedID", feedID); err != nil {
		return err
	}
	return c.postMarkers(ctx, &types.MarkersRequest{
		Action:          types.ActionMarkAsRead,
		Type:            types.MarkerFeeds,
		FeedIDs:         []string{feedID},
		LastReadEntryID: lastReadEntryID,
	})
}

// MarkCategoryAsRead marks a whole category as read. When lastReadEntryID is
// set only entries up to and including it are marked.
func (c *Client) MarkCategoryAsRead(ctx context.Context, categoryID, lastReadEntryID string) error {
	if err := c.validator.ValidateID("CategoryID", categoryID); err != nil {
		return err
	}
	return c.postMarkers(ctx, &types.MarkersRequest{
		Action:          types.ActionMarkAsRead,
		Type:            types.MarkerCategories,
		CategoryIDs:     []string{categoryID},
		LastReadEntryID: lastReadEntryID,
	})
}

func (c *Client) postMarkers(ctx context.Context, request *types.MarkersRequest) error {
	_, err := c.client.Post(ctx, "markers", request)
	return err
}

type tagEntriesRequest struct {
	EntryIDs []string `json:"entryIds"`
}

// SaveForLater tags entries with the global saved tag.
func (c *Client) SaveForLater(ctx context.Context, entryIDs []string) error {
	if err := c.validator.ValidateIDs("EntryIDs", entryIDs); err != nil {
		return err
	}
	path := "tags/" + url.PathEscape(c.GlobalResourceID(KindTag, LabelSaved))
	_, err := c.client.Put(ctx, path, tagEntriesRequest{EntryIDs: entryIDs})
	return err
}

// Unsave removes the global saved tag from entries.
func (c *Client) Unsave(ctx context.Context, entryIDs []string) error {
	if err := c.validator.ValidateIDs("EntryIDs", entryIDs); err != nil {
		return err
	}
	escaped := make([]string, len(entryIDs))
	for i, id := range entryIDs {
		escaped[i] = url.PathEscape(id)
	}
	path := "tags/" + url.PathEscape(c.GlobalResourceID(KindTag, LabelSaved)) + "/" + strings.Join(escaped, ",")
	_, err := c.client.Delete(ctx, path, nil)
	return err
}

// Subscribe adds or updates a subscription. ID must be a feed id
// ("feed/<url>"); Title and Categories are optional.
func (c *Client) Subscribe(ctx context.Context, sub *types.Subscription) error {
	if sub == nil {
		return &ConfigError{Field: "Subscription", Message: "subscription cannot be nil"}
	}
	if !strings.HasPrefix(sub.ID, "feed/") {
		return &ConfigError{Field: "ID", Message: "subscription id must start with feed/"}
	}
	_, err := c.client.Post(ctx, "subscriptions", sub)
	return err
}

// Unsubscribe removes the subscription to feedID.
func (c *Client) Unsubscribe(ctx context.Context, feedID string) error {
	if err := c.validator.ValidateID("FeedID", feedID); err != nil {
		return err
	}
	_, err := c.client.Delete(ctx, "subscriptions/"+url.PathEscape(feedID), nil)
	return err
}
