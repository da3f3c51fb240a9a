// Package feedly is a Go client for the Feedly cloud REST API.
//
// # Overview
//
// The package covers the OAuth2 authorization-code flow, an authenticated
// request layer that renews expired access tokens, and higher-level calls
// for unread counts, stream paging and read markers.
//
// # Authorization
//
// Send the user to the consent page, then exchange the code Feedly appends to
// the redirect URI:
//
//	config := &feedly.Config{
//		BaseURL:      feedly.SandboxBaseURL,
//		ClientID:     "sandbox",
//		ClientSecret: "your-sandbox-secret",
//	}
//
//	u, err := feedly.AuthenticationURL(config, "")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println("open", u)
//
//	// paste either the code or the whole redirect URL
//	client, err := feedly.FromAuthenticationCode(ctx, config, redirected)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Persist client.Credential() between runs and rebuild with NewClient.
//
// # Token renewal
//
// Every verb (Get, Post, Put, Delete) sends the request once. On 401 the
// client renews the access token with the refresh token and sends the same
// request exactly once more. Any final status other than 200 is returned as a
// *RequestError carrying the status, headers and body. A failed renewal is an
// *AuthError and means the user has to authorize again.
//
// Response bodies that are not JSON are kept as text; Response.Value returns
// the decoded JSON or the text.
//
// # Unread counts
//
//	counts, err := client.UnreadCounts(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, key := range counts.Keys() {
//		agg := counts[key]
//		fmt.Println(key.Label, agg.Total)
//		for _, feed := range agg.Feeds {
//			fmt.Println("  ", feed.Title, feed.Count)
//		}
//	}
//
// # Paging streams
//
// Paging is driven by the caller. Pass each page's Continuation into the
// next request until it comes back empty:
//
//	req := &types.StreamRequest{StreamID: client.GlobalResourceID(feedly.KindCategory, feedly.LabelAll)}
//	for {
//		page, err := client.StreamContent(ctx, req)
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, entry := range page.Items {
//			fmt.Println(entry.DisplayTitle(), entry.KeepUnread)
//		}
//		if !page.HasMore() {
//			break
//		}
//		req.Continuation = page.Continuation
//	}
//
// NewStreamIterator wraps the same loop entry by entry.
//
// # Concurrency
//
// Token renewal replaces the access token in place, so a Client must not be
// used from several goroutines at once without external locking.
//
// # Rate limiting
//
// Requests pass through a token bucket (RateLimitConfig). When Feedly reports
// that the quota is nearly spent via the X-Ratelimit-* headers, or sends
// Retry-After, later requests wait until the window resets. Nothing is
// retried because of rate limiting.
package feedly
