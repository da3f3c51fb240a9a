package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

func main() {
	// Get credentials from environment variables
	clientID := os.Getenv("FEEDLY_CLIENT_ID")
	clientSecret := os.Getenv("FEEDLY_CLIENT_SECRET")
	userID := os.Getenv("FEEDLY_USER_ID")
	refreshToken := os.Getenv("FEEDLY_REFRESH_TOKEN")
	code := os.Getenv("FEEDLY_CODE")

	if clientID == "" || clientSecret == "" {
		log.Fatal("FEEDLY_CLIENT_ID and FEEDLY_CLIENT_SECRET environment variables are required")
	}

	// Route structured logs to stdout; adjust the level as needed.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	config := &feedly.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      os.Getenv("FEEDLY_BASE_URL"),
		UserAgent:    "feedly-example/1.0",
		Logger:       logger,
	}

	ctx := context.Background()

	var client *feedly.Client
	var err error
	switch {
	case userID != "" && refreshToken != "":
		client, err = feedly.NewClient(config, types.Credential{
			UserID:       userID,
			RefreshToken: refreshToken,
			AccessToken:  os.Getenv("FEEDLY_ACCESS_TOKEN"),
		})
	case code != "":
		client, err = feedly.FromAuthenticationCode(ctx, config, code)
	default:
		authURL, err := feedly.AuthenticationURL(config, "example")
		if err != nil {
			log.Fatalf("Failed to build authentication URL: %v", err)
		}
		fmt.Println("Open this URL, approve access, then rerun with FEEDLY_CODE set to the redirect URL:")
		fmt.Println(authURL)
		return
	}
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	profile, err := client.Profile(ctx)
	if err != nil {
		log.Fatalf("Failed to get profile: %v", err)
	}
	fmt.Printf("Authenticated as %s (%s)\n", profile.FullName, profile.Email)

	// Unread counts grouped by category
	counts, err := client.UnreadCounts(ctx)
	var consistencyErr *feedly.ConsistencyError
	switch {
	case errors.As(err, &consistencyErr):
		log.Printf("Subscriptions changed while counting, try again: %v", err)
	case err != nil:
		log.Printf("Failed to get unread counts: %v", err)
	default:
		fmt.Println("\nUnread entries:")
		for _, key := range counts.Keys() {
			agg := counts[key]
			fmt.Printf("%5d  %s\n", agg.Total, key.Label)
			for _, feed := range agg.Feeds {
				fmt.Printf("%9d  %s\n", feed.Count, feed.Title)
			}
		}
	}

	// One page of everything, newest first
	all := client.GlobalResourceID(feedly.KindCategory, feedly.LabelAll)
	page, err := client.StreamContent(ctx, &types.StreamRequest{
		StreamID:    all,
		Count:       5,
		NewestFirst: true,
	})
	if err != nil {
		log.Printf("Failed to get stream: %v", err)
	} else {
		fmt.Println("\nLatest unread entries:")
		for i, entry := range page.Items {
			fmt.Printf("%d. %s (%s)\n", i+1, entry.DisplayTitle(), entry.OriginTitle())
		}
		if page.HasMore() {
			fmt.Printf("Next page: %s\n", page.Continuation)
		}
	}

	// The iterator follows continuation tokens for us
	fmt.Println("\nSaved entries (up to 3 pages):")
	it := client.NewStreamIterator(ctx, types.StreamRequest{
		StreamID:    client.GlobalResourceID(feedly.KindTag, feedly.LabelSaved),
		Count:       10,
		IncludeRead: true,
	}, &feedly.IteratorOptions{MaxPages: 3})

	saved, err := it.Collect(0)
	if err != nil {
		log.Printf("Failed to iterate saved entries: %v", err)
	}
	for _, entry := range saved {
		fmt.Printf("  - %s %s\n", entry.DisplayTitle(), entry.URL())
	}
	fmt.Printf("Fetched %d pages\n", it.Pages())

	// Read history
	recent, err := client.RecentlyRead(ctx, &types.RecentlyReadRequest{Count: 5})
	if err != nil {
		log.Printf("Failed to get recently read: %v", err)
	} else {
		fmt.Println("\nRecently read:")
		for _, entry := range recent.Items {
			fmt.Printf("  - %s\n", entry.DisplayTitle())
		}
	}

	// Persist this credential; the access token may have been renewed.
	cred := client.Credential()
	fmt.Printf("\nFEEDLY_USER_ID=%s\nFEEDLY_REFRESH_TOKEN=%s\nFEEDLY_ACCESS_TOKEN=%s\n",
		cred.UserID, cred.RefreshToken, cred.AccessToken)
}
