// Package app wires configuration, storage and services together for the
// Academia binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/auth"
	"github.com/prn-tf/academia/internal/cache/memory"
	rediscache "github.com/prn-tf/academia/internal/cache/redis"
	"github.com/prn-tf/academia/internal/config"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/lock"
	"github.com/prn-tf/academia/internal/metrics"
	"github.com/prn-tf/academia/internal/repository"
	"github.com/prn-tf/academia/internal/repository/postgres"
	"github.com/prn-tf/academia/internal/repository/sqlite"
	"github.com/prn-tf/academia/internal/service"
)

// App holds the opened infrastructure and the services built on it.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	DB        repository.Database
	Repos     *repository.Repositories
	Cache     repository.Cache
	Locker    lock.Locker
	Metrics   *metrics.Metrics
	Publisher *events.WatermillPublisher

	Provisioner  *service.Provisioner
	Users        *service.UserService
	Registration *service.RegistrationService
	Sessions     *service.SessionService
	Auth         *service.AuthService
	Subjects     *service.SubjectService
	Reconciler   *service.Reconciler

	// SharedSessions is false when sessions live in process memory.
	SharedSessions bool

	closers []func() error
}

// NewLogger builds the root logger from the logging configuration.
func NewLogger(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// OpenDatabase opens the database selected by cfg.Driver. It does not migrate.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (repository.Database, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "sqlite":
		sqlCfg := sqlite.DefaultConfig(cfg.Path)
		if cfg.JournalMode != "" {
			sqlCfg.JournalMode = cfg.JournalMode
		}
		if cfg.BusyTimeout > 0 {
			sqlCfg.BusyTimeout = cfg.BusyTimeout
		}
		if cfg.CacheSize != 0 {
			sqlCfg.CacheSize = cfg.CacheSize
		}
		if cfg.SynchronousMode != "" {
			sqlCfg.SynchronousMode = cfg.SynchronousMode
		}
		db, err := sqlite.NewDB(ctx, sqlCfg, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// New opens the database, applies migrations and builds every service.
// Close releases everything New opened, also when New fails halfway.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	defaults, err := cfg.Provisioning.Defaults()
	if err != nil {
		return fmt.Errorf("invalid provisioning defaults: %w", err)
	}

	db, err := OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	a.Repos = db.Repositories()

	if cfg.Redis.Enabled {
		client, err := rediscache.NewClient(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, client.Close)
		a.Cache = rediscache.NewCache(client)
		a.Locker = lock.NewRedisLocker(client)
		a.SharedSessions = true
	} else {
		cache := memory.NewCache()
		a.closers = append(a.closers, func() error { cache.Stop(); return nil })
		a.Cache = cache
		a.Locker = lock.NewMemoryLocker()
	}

	a.Metrics = metrics.NewMetrics()

	publisher, err := events.NewPublisher(cfg.Events, logger)
	if err != nil {
		return err
	}
	a.Publisher = publisher
	a.closers = append(a.closers, publisher.Close)

	a.Provisioner = service.NewProvisioner(a.Repos, defaults, a.Metrics, publisher, logger)
	a.Users = service.NewUserService(a.Repos, a.Provisioner, logger)
	a.Registration = service.NewRegistrationService(a.Repos, a.Users, a.Provisioner, a.Metrics, publisher, logger)
	a.Sessions = service.NewSessionService(a.Cache, service.SessionConfig{
		IdleTimeout: cfg.Session.IdleTimeout,
		MaxAge:      cfg.Session.MaxAge,
	}, a.Metrics, publisher, logger)
	a.Auth = service.NewAuthService(
		a.Repos,
		auth.NewApprovedUserBackend(a.Repos.User, a.Repos.Profile),
		a.Sessions,
		a.Metrics,
		publisher,
		logger,
	)
	a.Subjects = service.NewSubjectService(a.Repos, a.Locker, logger)
	a.Reconciler = service.NewReconciler(a.Repos, a.Provisioner, a.Locker, a.Metrics, logger, service.ReconcileConfig{
		Enabled:   cfg.Reconcile.Enabled,
		Interval:  cfg.Reconcile.Interval,
		BatchSize: cfg.Reconcile.BatchSize,
		DryRun:    cfg.Reconcile.DryRun,
		LockTTL:   cfg.Reconcile.LockTTL,

		LockRetries:    cfg.Reconcile.LockRetries,
		LockRetryDelay: cfg.Reconcile.LockRetryDelay,
	})

	return nil
}

// CookieConfig returns the session cookie settings.
func (a *App) CookieConfig() auth.CookieConfig {
	return auth.CookieConfig{
		Name:   a.Config.Session.CookieName,
		Secure: a.Config.Session.CookieSecure,
		MaxAge: a.Config.Session.MaxAge,
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
