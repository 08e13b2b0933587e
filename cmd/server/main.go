package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"tintaria/internal/config"
	"tintaria/internal/db"
	"tintaria/internal/db/mock"
	applog "tintaria/internal/log"
	"tintaria/internal/server"
)

// lifecycle is the slice of server.Server the run loop needs, kept narrow so
// tests can substitute a fake.
type lifecycle interface {
	Start() error
	Stop() error
}

// Seams for the pieces run wires together. Tests swap them out.
var (
	loadConfig       = config.Load
	applyLogLevel    = applog.SetLevel
	openMockDatabase = mock.New
	openDatabase     = db.Configure
	buildServer      = func(cfg server.Config) (lifecycle, error) {
		return server.New(cfg)
	}
	notifyShutdown = func() (<-chan os.Signal, func()) {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		return ch, func() { signal.Stop(ch) }
	}
)

func main() {
	_ = godotenv.Load()
	code := run(context.Background())
	_ = applog.Sync()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cfg, err := loadConfig()
	if err != nil {
		applog.Error(ctx, "configuration rejected", "error", err)
		return 1
	}

	if err := applyLogLevel(cfg.Logging.Level); err != nil {
		applog.Error(ctx, "invalid log level", "error", err, "level", cfg.Logging.Level)
		return 1
	}

	var database *gorm.DB
	if cfg.Database.UseMock {
		database, err = openMockDatabase(ctx)
		if err != nil {
			applog.Error(ctx, "mock database bootstrap failed", "error", err)
			return 1
		}
		applog.Info(ctx, "running against the in-memory mock database")
	} else {
		database, err = openDatabase(cfg.Database)
		if err != nil {
			applog.Error(ctx, "database bootstrap failed", "error", err)
			return 1
		}
	}

	srv, err := buildServer(server.Config{
		Addr: cfg.Server.Addr,
		Session: server.SessionConfig{
			Lifetime:     cfg.Session.Lifetime,
			CookieName:   cfg.Session.CookieName,
			CookieDomain: cfg.Session.CookieDomain,
			CookieSecure: cfg.Session.CookieSecure,
		},
		Database: database,
	})
	if err != nil {
		applog.Error(ctx, "server assembly failed", "error", err)
		return 1
	}

	shutdown, unsubscribe := notifyShutdown()
	defer unsubscribe()

	serveErr := make(chan error, 1)
	go func() {
		applog.Info(ctx, "http server listening", "addr", cfg.Server.Addr)
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "http server failed", "error", err)
			return 1
		}
	case <-shutdown:
		applog.Info(ctx, "shutdown signal received")
		if err := srv.Stop(); err != nil {
			applog.Error(ctx, "graceful shutdown failed", "error", err)
			return 1
		}
		if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Error(ctx, "http server failed", "error", err)
			return 1
		}
	}

	applog.Info(ctx, "server stopped")
	return 0
}
