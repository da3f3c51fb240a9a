package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/discover"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/export"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/store"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

func (a *app) subscribeCmd() *cobra.Command {
	var (
		categories []string
		title      string
		noDiscover bool
	)

	cmd := &cobra.Command{
		Use:   "subscribe <feed URL>",
		Short: "Subscribe to a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feedURL := strings.TrimPrefix(strings.TrimSpace(args[0]), "feed/")

			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				cats := make([]types.Category, 0, len(categories))
				for _, label := range categories {
					cats = append(cats, types.Category{ID: client.ResourceID(feedly.KindCategory, label), Label: label})
				}

				var sub *types.Subscription
				if noDiscover {
					sub = (&discover.Feed{URL: feedURL}).Subscription(cats...)
				} else {
					feed, err := discover.New(a.feedlyConfig().HTTPClient, a.cfg.UserAgent, a.log).Discover(ctx, feedURL)
					if err != nil {
						return err
					}
					sub = feed.Subscription(cats...)
				}
				if title != "" {
					sub.Title = title
				}

				if err := client.Subscribe(ctx, sub); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Subscribed to %s (%s)\n", sub.Title, sub.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&categories, "category", "c", nil, "category label to file the feed under (repeatable)")
	cmd.Flags().StringVar(&title, "title", "", "title to use instead of the feed's own")
	cmd.Flags().BoolVar(&noDiscover, "no-discover", false, "do not fetch the feed before subscribing")
	return cmd
}

func (a *app) unsubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe <feed id or URL>",
		Short: "Unsubscribe from a feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				feedID, err := resolveStreamID(client, args[0])
				if err != nil {
					return err
				}
				if err := client.Unsubscribe(ctx, feedID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Unsubscribed from %s\n", feedID)
				return nil
			})
		},
	}
}

func (a *app) exportOPMLCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-opml",
		Short: "Write the subscription list as OPML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				subs, err := client.SubscriptionList(ctx)
				if err != nil {
					return err
				}
				doc, err := export.Marshal("Feedly subscriptions", subs)
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					fmt.Fprintln(cmd.OutOrStdout(), doc)
					return nil
				}
				if err := os.WriteFile(output, []byte(doc+"\n"), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d subscriptions to %s\n", len(subs), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (stdout when empty)")
	return cmd
}

func (a *app) importOPMLCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-opml <file>",
		Short: "Subscribe to every feed listed in an OPML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				subs, err := export.Parse(data, func(label string) string {
					return client.ResourceID(feedly.KindCategory, label)
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				for _, sub := range subs {
					if dryRun {
						fmt.Fprintf(out, "would subscribe to %s\n", sub.ID)
						continue
					}
					if err := client.Subscribe(ctx, sub); err != nil {
						return fmt.Errorf("subscribe to %s: %w", sub.ID, err)
					}
					fmt.Fprintf(out, "subscribed to %s\n", sub.ID)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the feeds without subscribing")
	return cmd
}
