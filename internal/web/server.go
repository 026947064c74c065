// Package web serves the browser front end: an HTML page hosting Plaid Link
// and a small JSON API over the account connector, one session per browser.
package web

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/session"
	"golang.org/x/sync/errgroup"
)

// SessionCookie names the cookie carrying the browser's session ID.
const SessionCookie = "plaid_viewer_session"

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// HistoryStore receives successfully fetched transactions.
type HistoryStore interface {
	SaveTransactions(ctx context.Context, itemID string, txns []model.Transaction) error
	RecordFetch(ctx context.Context, itemID string, window model.DateWindow, count int, at time.Time) error
}

// Server is the web surface.
type Server struct {
	http.Server
	connector   *connector.Connector
	sessions    *session.Store
	history     HistoryStore
	templates   *template.Template
	logger      *slog.Logger
	now         func() time.Time
	window      model.DateWindow
	environment string
}

// Option configures a Server.
type Option func(*Server)

// WithWindow sets the transaction date window.
func WithWindow(w model.DateWindow) Option {
	return func(s *Server) {
		s.window = w
	}
}

// WithHistory saves every successful fetch to h.
func WithHistory(h HistoryStore) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithLogger sets the server's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEnvironment labels the page with the Plaid environment name.
func WithEnvironment(env string) Option {
	return func(s *Server) {
		s.environment = env
	}
}

// WithTLS serves HTTPS using cfg.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) {
		s.TLSConfig = cfg
	}
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, conn *connector.Connector, sessions *session.Store, opts ...Option) (*Server, error) {
	if conn == nil {
		return nil, errors.New("connector is required")
	}
	if sessions == nil {
		sessions = session.NewStore(session.DefaultTTL)
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		connector:   conn,
		sessions:    sessions,
		logger:      slog.Default().With("component", "web"),
		now:         time.Now,
		window:      model.DefaultDateWindow(),
		environment: "sandbox",
	}
	for _, opt := range opts {
		opt(s)
	}

	t, err := template.ParseFS(TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	s.templates = t

	static, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to mount static files: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", cacheStatic(http.StripPrefix("/static/", http.FileServer(http.FS(static)))))
	mux.HandleFunc("POST /api/link-token", s.handleLinkToken)
	mux.HandleFunc("POST /api/exchange", s.handleExchange)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.Handler = requestLogger(s.logger, securityHeaders(mux))
	return s, nil
}

// Secure reports whether the server speaks HTTPS.
func (s *Server) Secure() bool {
	return s.TLSConfig != nil
}

// URL returns the address a local browser should open.
func (s *Server) URL() string {
	scheme := "http"
	if s.Secure() {
		scheme = "https"
	}
	host, port, err := net.SplitHostPort(s.Addr)
	if err != nil {
		return scheme + "://" + s.Addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Web server listening", "url", s.URL(), "tls", s.Secure())

		var err error
		if s.Secure() {
			err = s.Server.ServeTLS(ln, "", "")
		} else {
			err = s.Server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("web server failed: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		s.logger.Info("Shutting down web server")
		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}
