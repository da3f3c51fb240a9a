package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/render"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/store"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/validation"
)

func (a *app) countsCmd() *cobra.Command {
	var feeds bool

	cmd := &cobra.Command{
		Use:   "counts",
		Short: "Show unread counts per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				counts, err := client.UnreadCounts(ctx)
				if err != nil {
					return err
				}
				printCounts(cmd.OutOrStdout(), counts, feeds)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&feeds, "feeds", false, "also list each feed's count")
	return cmd
}

func printCounts(out io.Writer, counts types.UnreadCounts, feeds bool) {
	if len(counts) == 0 {
		fmt.Fprintln(out, "No unread entries.")
		return
	}
	for _, key := range counts.Keys() {
		agg := counts[key]
		fmt.Fprintf(out, "%6d  %s\n", agg.Total, key.Label)
		if !feeds {
			continue
		}
		for _, f := range agg.Feeds {
			fmt.Fprintf(out, "%6d    %s\n", f.Count, f.Title)
		}
	}
}

// resolveStreamID expands the shorthands accepted on the command line into a
// full stream id.
func resolveStreamID(client *feedly.Client, arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "":
		return "", errors.New("stream id cannot be empty")
	case strings.HasPrefix(arg, "feed/"), strings.HasPrefix(arg, "user/"):
		if !validation.IsStreamID(arg) {
			return "", fmt.Errorf("malformed stream id %q", arg)
		}
		return arg, nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return "feed/" + arg, nil
	case arg == feedly.LabelSaved:
		return client.GlobalResourceID(feedly.KindTag, feedly.LabelSaved), nil
	case arg == feedly.LabelAll:
		return client.GlobalResourceID(feedly.KindCategory, feedly.LabelAll), nil
	}

	kind, name, ok := strings.Cut(arg, ":")
	if ok && name != "" {
		switch kind {
		case feedly.KindCategory, feedly.KindTag:
			return client.ResourceID(kind, name), nil
		}
	}
	return "", fmt.Errorf("unrecognised stream %q (want feed/<url>, user/..., category:<name>, tag:<name>, saved or all)", arg)
}

type entryPrinter struct {
	out      io.Writer
	renderer *render.Renderer
	format   render.Format
	full     bool
	links    bool
	printed  int
}

func newEntryPrinter(out io.Writer, format string, full, links bool) (*entryPrinter, error) {
	f, err := render.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return &entryPrinter{out: out, renderer: render.New(), format: f, full: full, links: links}, nil
}

func (p *entryPrinter) print(e *types.Entry) error {
	if p.full {
		if p.printed > 0 {
			fmt.Fprintln(p.out, "---")
		}
		body, err := p.renderer.Entry(e, p.format)
		if err != nil {
			return err
		}
		fmt.Fprintln(p.out, body)
	} else {
		line := e.ID + "  " + e.DisplayTitle()
		if origin := e.OriginTitle(); origin != "" {
			line += " (" + origin + ")"
		}
		fmt.Fprintln(p.out, line)
	}

	if p.links {
		links, err := p.renderer.Links(e.HTML())
		if err != nil {
			return err
		}
		for _, l := range links {
			fmt.Fprintf(p.out, "  -> %s\n", l)
		}
	}
	p.printed++
	return nil
}

// drain prints up to limit entries from it.
func (p *entryPrinter) drain(it *feedly.StreamIterator, limit int) error {
	entries, err := it.Collect(limit)
	for _, e := range entries {
		if printErr := p.print(e); printErr != nil {
			return printErr
		}
	}
	return err
}

type readFlags struct {
	limit  int
	count  int
	pages  int
	format string
	full   bool
	links  bool
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 25, "maximum number of entries to print (0 for no limit)")
	cmd.Flags().IntVar(&f.count, "count", 0, "page size requested from Feedly (0 for the default)")
	cmd.Flags().IntVar(&f.pages, "pages", 0, "maximum number of pages to fetch (0 for no limit)")
	cmd.Flags().StringVar(&f.format, "format", string(render.FormatText), "body format with --full: text or markdown")
	cmd.Flags().BoolVar(&f.full, "full", false, "print entry bodies")
	cmd.Flags().BoolVar(&f.links, "links", false, "list the links found in each entry")
}

func (a *app) streamCmd() *cobra.Command {
	var (
		rf          readFlags
		includeRead bool
		newest      bool
		resume      bool
	)

	cmd := &cobra.Command{
		Use:   "stream <stream>",
		Short: "List entries of a feed, category or tag",
		Long:  "The stream is a full id (feed/..., user/...), a feed URL, category:<name>, tag:<name>, saved or all.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newEntryPrinter(cmd.OutOrStdout(), rf.format, rf.full, rf.links)
			if err != nil {
				return err
			}

			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, s *store.Store) error {
				streamID, err := resolveStreamID(client, args[0])
				if err != nil {
					return err
				}

				opts := &feedly.IteratorOptions{MaxPages: rf.pages}
				if resume {
					continuation, err := s.LoadCheckpoint(ctx, a.cfg.BaseURL, streamID)
					switch {
					case err == nil:
						opts.Continuation = continuation
					case !errors.Is(err, store.ErrNotFound):
						return err
					}
				}

				it := client.NewStreamIterator(ctx, types.StreamRequest{
					StreamID:    streamID,
					Count:       rf.count,
					IncludeRead: includeRead,
					NewestFirst: newest,
				}, opts)

				if err := printer.drain(it, rf.limit); err != nil {
					return err
				}
				if printer.printed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No entries.")
				}

				if resume {
					return s.SaveCheckpoint(ctx, a.cfg.BaseURL, streamID, it.Continuation())
				}
				return nil
			})
		},
	}

	rf.register(cmd)
	cmd.Flags().BoolVar(&includeRead, "all", false, "include entries already read")
	cmd.Flags().BoolVar(&newest, "newest", false, "newest entries first")
	cmd.Flags().BoolVar(&resume, "resume", false, "continue after the last page fetched by a previous --resume run")
	return cmd
}

func (a *app) recentCmd() *cobra.Command {
	var (
		rf     readFlags
		oldest bool
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List recently read entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := newEntryPrinter(cmd.OutOrStdout(), rf.format, rf.full, rf.links)
			if err != nil {
				return err
			}

			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				it := client.NewRecentlyReadIterator(ctx, types.RecentlyReadRequest{
					Count:       rf.count,
					OldestFirst: oldest,
				}, &feedly.IteratorOptions{MaxPages: rf.pages})

				if err := printer.drain(it, rf.limit); err != nil {
					return err
				}
				if printer.printed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing read recently.")
				}
				return nil
			})
		},
	}

	rf.register(cmd)
	cmd.Flags().BoolVar(&oldest, "oldest", false, "oldest entries first")
	return cmd
}
