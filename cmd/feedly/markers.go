package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/store"
)

type entriesAction func(client *feedly.Client, ctx context.Context, entryIDs []string) error

func (a *app) markEntriesCmd(use, short string, action entriesAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <entry id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				if err := action(client, ctx, args); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", use, len(args))
				return nil
			})
		},
	}
}

func (a *app) markFeedCmd() *cobra.Command {
	var lastRead string

	cmd := &cobra.Command{
		Use:   "mark-feed <feed id or URL>",
		Short: "Mark a whole feed as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				feedID, err := resolveStreamID(client, args[0])
				if err != nil {
					return err
				}
				if err := client.MarkFeedAsRead(ctx, feedID, lastRead); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", feedID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lastRead, "last-read", "", "only mark entries up to this entry id")
	return cmd
}

func (a *app) markCategoryCmd() *cobra.Command {
	var lastRead string

	cmd := &cobra.Command{
		Use:   "mark-category <category>",
		Short: "Mark a whole category as read",
		Long:  "The category is a full id or category:<name>.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				categoryID, err := resolveStreamID(client, args[0])
				if err != nil {
					return err
				}
				if err := client.MarkCategoryAsRead(ctx, categoryID, lastRead); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", categoryID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&lastRead, "last-read", "", "only mark entries up to this entry id")
	return cmd
}
