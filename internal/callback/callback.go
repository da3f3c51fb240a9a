// Package callback serves the OAuth redirect URI on the local machine so a
// browser login can hand its authorization code straight to the CLI.
package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ErrDenied is returned when the user declines the authorization request.
var ErrDenied = errors.New("authorization denied")

const shutdownTimeout = 5 * time.Second

type result struct {
	code string
	err  error
}

// Server receives exactly one authorization redirect.
type Server struct {
	addr    string
	path    string
	state   string
	router  chi.Router
	results chan result
	log     *slog.Logger
}

// New prepares a listener for redirectURI, which must be an http URL with
// an explicit host. A fresh random state is generated for the login.
func New(redirectURI string, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	u, err := url.Parse(redirectURI)
	if err != nil {
		return nil, fmt.Errorf("parse redirect uri: %w", err)
	}
	if u.Scheme != "http" || u.Hostname() == "" {
		return nil, fmt.Errorf("redirect uri %q must be a plain http URL on this machine", redirectURI)
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	s := &Server{
		addr:    addr,
		path:    path,
		state:   uuid.NewString(),
		results: make(chan result, 1),
		log:     log,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Get(s.path, s.handleRedirect)
	s.router = r
}

// State is the value to pass as the state parameter of the authentication URL.
func (s *Server) State() string {
	return s.state
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return s.addr
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("state") != s.state {
		s.log.WarnContext(r.Context(), "Rejected redirect with unexpected state",
			"remoteAddr", r.RemoteAddr)
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	if reason := q.Get("error"); reason != "" {
		s.deliver(result{err: fmt.Errorf("%w: %s", ErrDenied, reason)})
		http.Error(w, "Authorization was denied. You can close this window.", http.StatusForbidden)
		return
	}

	code := q.Get("code")
	if code == "" {
		http.Error(w, "missing code parameter", http.StatusBadRequest)
		return
	}

	s.deliver(result{code: code})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Authorization complete. You can close this window.")
}

// deliver keeps the first result and drops any later redirect.
func (s *Server) deliver(res result) {
	select {
	case s.results <- res:
	default:
	}
}

// Wait blocks until a redirect has been handled or ctx is done.
func (s *Server) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run listens on Addr until one authorization code arrives, then shuts the
// listener down and returns the code.
func (s *Server) Run(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) (string, error) {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	s.log.InfoContext(ctx, "Waiting for authorization redirect", "addr", ln.Addr().String(), "path", s.path)

	code, err := s.waitOrFail(ctx, serveErr)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		s.log.WarnContext(ctx, "Callback server shutdown failed", "error", shutdownErr)
	}
	return code, err
}

func (s *Server) waitOrFail(ctx context.Context, serveErr <-chan error) (string, error) {
	select {
	case res := <-s.results:
		return res.code, res.err
	case err, ok := <-serveErr:
		if !ok || err == nil {
			return "", http.ErrServerClosed
		}
		return "", fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
