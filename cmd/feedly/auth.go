package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	feedly "github.com/jamesprial/go-feedly-api-wrapper"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/callback"
	"github.com/jamesprial/go-feedly-api-wrapper/internal/store"
)

func (a *app) authURLCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Feedly consent page URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := feedly.AuthenticationURL(a.feedlyConfig(), state)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "opaque state echoed back on the redirect")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var listen bool

	cmd := &cobra.Command{
		Use:   "login [code or redirect URL]",
		Short: "Exchange an authorization code for tokens and remember them",
		Long:  "Pass the authorization code, or the whole URL the browser was redirected to.\nWith --listen, serve FEEDLY_REDIRECT_URI locally and wait for the browser instead.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var codeOrURL string
			switch {
			case len(args) == 1:
				codeOrURL = args[0]
			case listen:
				code, err := a.listenForCode(ctx, cmd)
				if err != nil {
					return err
				}
				codeOrURL = code
			default:
				return errors.New("pass a code or redirect URL, or use --listen")
			}

			client, err := feedly.FromAuthenticationCode(ctx, a.feedlyConfig(), codeOrURL)
			if err != nil {
				return err
			}

			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			cred := client.Credential()
			if err := s.SaveCredential(ctx, a.cfg.BaseURL, cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", cred.UserID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&listen, "listen", false, "receive the redirect on a local listener")
	return cmd
}

func (a *app) listenForCode(ctx context.Context, cmd *cobra.Command) (string, error) {
	srv, err := callback.New(a.cfg.RedirectURI, a.log)
	if err != nil {
		return "", err
	}
	u, err := feedly.AuthenticationURL(a.feedlyConfig(), srv.State())
	if err != nil {
		return "", err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in a browser:\n\n  %s\n\n", u)
	return srv.Run(ctx)
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved credential and stream checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteCredential(ctx, a.cfg.BaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the logged-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(ctx context.Context, client *feedly.Client, _ *store.Store) error {
				p, err := client.Profile(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				name := strings.TrimSpace(p.FullName)
				if name == "" {
					name = strings.TrimSpace(p.GivenName + " " + p.FamilyName)
				}
				fmt.Fprintf(out, "id:     %s\n", p.ID)
				fmt.Fprintf(out, "name:   %s\n", name)
				fmt.Fprintf(out, "email:  %s\n", p.Email)
				if p.Locale != "" {
					fmt.Fprintf(out, "locale: %s\n", p.Locale)
				}
				return nil
			})
		},
	}
}
