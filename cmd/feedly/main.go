// Command feedly is a terminal client for a Feedly account: log in once, then
// read streams, manage markers and subscriptions, and watch unread counts.
//
// Settings come from FEEDLY_* environment variables (see internal/config);
// credentials are kept in a local SQLite database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/config"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/store"
)

var errNotLoggedIn = errors.New("not logged in; run 'feedly login' first")

type app struct {
	// loadConfig and httpClient are replaced in tests.
	loadConfig func() (config.Config, error)
	httpClient *http.Client

	dbPath  string
	sandbox bool
	verbose bool

	cfg config.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{loadConfig: config.Load}
	if err := a.rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "feedly",
		Short:        "Read and manage a Feedly account from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "credential database path (overrides FEEDLY_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&a.sandbox, "sandbox", false, "use the Feedly sandbox instead of FEEDLY_BASE_URL")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(a.authURLCmd())
	rootCmd.AddCommand(a.loginCmd())
	rootCmd.AddCommand(a.logoutCmd())
	rootCmd.AddCommand(a.profileCmd())
	rootCmd.AddCommand(a.countsCmd())
	rootCmd.AddCommand(a.streamCmd())
	rootCmd.AddCommand(a.recentCmd())
	rootCmd.AddCommand(a.markEntriesCmd("mark-read", "Mark entries as read", (*feedly.Client).MarkAsRead))
	rootCmd.AddCommand(a.markEntriesCmd("mark-unread", "Keep entries unread", (*feedly.Client).MarkAsUnread))
	rootCmd.AddCommand(a.markFeedCmd())
	rootCmd.AddCommand(a.markCategoryCmd())
	rootCmd.AddCommand(a.markEntriesCmd("save", "Save entries for later", (*feedly.Client).SaveForLater))
	rootCmd.AddCommand(a.markEntriesCmd("unsave", "Remove entries from saved for later", (*feedly.Client).Unsave))
	rootCmd.AddCommand(a.subscribeCmd())
	rootCmd.AddCommand(a.unsubscribeCmd())
	rootCmd.AddCommand(a.exportOPMLCmd())
	rootCmd.AddCommand(a.importOPMLCmd())
	rootCmd.AddCommand(a.watchCmd())

	return rootCmd
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.sandbox {
		cfg.BaseURL = feedly.SandboxBaseURL
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if a.verbose {
		level = slog.LevelDebug
	}

	a.cfg = cfg
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *app) feedlyConfig() *feedly.Config {
	httpClient := a.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: a.cfg.Timeout}
	}
	return &feedly.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		RedirectURI:  a.cfg.RedirectURI,
		Scope:        a.cfg.Scope,
		UserAgent:    a.cfg.UserAgent,
		BaseURL:      a.cfg.BaseURL,
		HTTPClient:   httpClient,
		Logger:       a.log,
		RateLimit: &feedly.RateLimitConfig{
			RequestsPerMinute: float64(a.cfg.RequestsPerMinute),
			Burst:             a.cfg.Burst,
		},
	}
}

func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	dir := filepath.Dir(a.cfg.DBPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(ctx, a.cfg.DBPath, a.log)
}

// withClient opens the store, builds a client from the saved credential and
// runs fn. A renewed access token is written back even when fn fails.
func (a *app) withClient(ctx context.Context, fn func(ctx context.Context, client *feedly.Client, s *store.Store) error) error {
	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	cred, err := s.LoadCredential(ctx, a.cfg.BaseURL)
	if errors.Is(err, store.ErrNotFound) {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}

	client, err := feedly.NewClient(a.feedlyConfig(), cred)
	if err != nil {
		return err
	}

	runErr := fn(ctx, client, s)

	if renewed := client.Credential(); renewed != cred {
		if err := s.SaveCredential(ctx, a.cfg.BaseURL, renewed); err != nil {
			return errors.Join(runErr, err)
		}
		a.log.DebugContext(ctx, "Saved renewed access token", "userID", renewed.UserID)
	}
	return runErr
}
