// Package server assembles the HTTP stack: the session middleware, the
// route table, and a graceful lifecycle around net/http.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"tintaria/internal/handlers"
	applog "tintaria/internal/log"
)

const (
	defaultSessionLifetime = 12 * time.Hour
	defaultCookieName      = "tintaria_session"
	readHeaderTimeout      = 5 * time.Second
	idleConnTimeout        = time.Minute
	shutdownGrace          = 5 * time.Second
)

// Config captures the runtime configuration for the HTTP server.
type Config struct {
	Addr     string
	Session  SessionConfig
	Database *gorm.DB
}

// SessionConfig controls the session cookie issued to workshop devices.
type SessionConfig struct {
	Lifetime     time.Duration
	CookieName   string
	CookieDomain string
	CookieSecure bool
}

// Server wraps an http.Server together with its session store.
type Server struct {
	config     Config
	httpServer *http.Server
}

// newSessionManager builds the scs session store with this app's cookie
// policy, filling in defaults for anything the config leaves blank.
func newSessionManager(cfg SessionConfig) *scs.SessionManager {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultSessionLifetime
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = defaultCookieName
	}

	sessions := scs.New()
	sessions.Lifetime = cfg.Lifetime
	sessions.Cookie.Name = cfg.CookieName
	sessions.Cookie.Domain = cfg.CookieDomain
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.Persist = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode
	sessions.Cookie.Secure = cfg.CookieSecure
	return sessions
}

// New wires the session store and route table into a ready-to-start server.
func New(cfg Config) (*Server, error) {
	sessions := newSessionManager(cfg.Session)
	handlers.Configure(sessions, cfg.Database)

	applog.Debug(context.Background(), "http stack assembled",
		"addr", cfg.Addr,
		"cookie", sessions.Cookie.Name,
		"sessionLifetime", sessions.Lifetime.String(),
	)

	return &Server{
		config: cfg,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           sessions.LoadAndSave(newRouter()),
			ReadHeaderTimeout: readHeaderTimeout,
			IdleTimeout:       idleConnTimeout,
		},
	}, nil
}

// Start begins serving HTTP traffic and blocks until the listener closes.
func (s *Server) Start() error {
	applog.Debug(context.Background(), "listener opening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Stop drains in-flight requests and shuts the listener down.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	applog.Debug(ctx, "listener draining")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the composed HTTP handler for integration tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
