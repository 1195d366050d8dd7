// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the authentication engine over HTTP.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/holomush/userauth/internal/auth"
	"github.com/holomush/userauth/internal/observability"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session_id"

// Authenticator is the subset of the engine the HTTP layer drives.
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*auth.Identity, error)
	VerifyLogin(ctx context.Context, email, password string) (bool, error)
	CreateSession(ctx context.Context, email string) (string, bool, error)
	UserForSession(ctx context.Context, token string) (auth.Identity, bool, error)
	DestroySession(ctx context.Context, userID int64) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ConsumePasswordReset(ctx context.Context, token, newPassword string) error
}

// Options configures optional Server collaborators.
type Options struct {
	// Metrics records request counts and latencies. Nil disables recording.
	Metrics *observability.Metrics
	// Logger receives request and error logs. Nil discards.
	Logger *slog.Logger
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
}

// Server serves the authentication routes.
type Server struct {
	addr         string
	authn        Authenticator
	metrics      *observability.Metrics
	logger       *slog.Logger
	cookieSecure bool
	router       *mux.Router

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// NewServer creates a Server listening on addr once started.
func NewServer(addr string, authn Authenticator, opts Options) (*Server, error) {
	if authn == nil {
		return nil, oops.Errorf("authenticator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		addr:         addr,
		authn:        authn,
		metrics:      opts.Metrics,
		logger:       logger,
		cookieSecure: opts.CookieSecure,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.StrictSlash(true)
	r.NotFoundHandler = http.HandlerFunc(handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/users", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/sessions", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/sessions", s.handleLogout).Methods(http.MethodDelete)
	r.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/reset_password", s.handleResetRequest).Methods(http.MethodPost)
	r.HandleFunc("/reset_password", s.handleResetConsume).Methods(http.MethodPut)
	return r
}

// Handler returns the routed handler wrapped in the request middleware.
// Each wrapper encloses the previous one, so requestID runs first and
// recoverPanics sits inside observe.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = s.recoverPanics(h)
	h = s.observe(h)
	h = requestID(h)
	return h
}

// Start begins serving. The returned channel receives a serve error, if any,
// and is closed when the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("http server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("HTTP_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("http server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("http server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_http_server").Wrap(err)
		}
	}
	s.logger.Info("http server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
