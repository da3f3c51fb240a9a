package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/store"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/watch"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

func (a *app) watchCmd() *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll unread counts on a schedule and print changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schedule == "" {
				schedule = a.cfg.WatchSchedule
			}
			out := cmd.OutOrStdout()

			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, s *store.Store) error {
				notify := func(ctx context.Context, snap watch.Snapshot) {
					fmt.Fprintf(out, "%s  %d unread\n", snap.At.Format("15:04:05"), snap.Total)
					keys := slices.SortedFunc(maps.Keys(snap.Delta), func(x, y types.CategoryKey) int {
						return strings.Compare(x.Label, y.Label)
					})
					for _, key := range keys {
						fmt.Fprintf(out, "  %+d  %s\n", snap.Delta[key], key.Label)
					}
					// Renewals happen mid-run.
					if err := s.SaveCredential(ctx, a.cfg.BaseURL, client.Credential()); err != nil {
						a.log.WarnContext(ctx, "Failed to save credential", "error", err)
					}
				}

				w := watch.New(ctx, schedule, client, notify, a.log)
				if _, err := w.Poll(ctx); err != nil {
					return err
				}
				if err := w.Start(); err != nil {
					return err
				}
				a.log.InfoContext(ctx, "Watching unread counts", "schedule", schedule)

				<-ctx.Done()
				w.Stop()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (defaults to FEEDLY_WATCH_SCHEDULE)")
	return cmd
}
