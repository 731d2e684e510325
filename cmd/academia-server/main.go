// Package main is the entry point for the Academia server.
// Academia is a college management portal with admin-approved registration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/academia/internal/app"
	"github.com/prn-tf/academia/internal/config"
	"github.com/prn-tf/academia/internal/events"
	"github.com/prn-tf/academia/internal/handler"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Academia Server\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting Academia Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to release resources")
		}
	}()

	if !a.SharedSessions {
		logger.Warn().Msg("Redis disabled: sessions are kept in process memory and lost on restart")
	}

	if sub := a.Publisher.Subscriber(); sub != nil {
		if err := events.LogSink(ctx, sub, a.Publisher.Topic(), logger.With().Str("component", "activity").Logger()); err != nil {
			return err
		}
	}

	// Metrics are served by the main router when they share its port.
	metricsPath := ""
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == cfg.Server.Port {
			metricsPath = cfg.Metrics.Path
		} else {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, a.Metrics.Handler())
			metricsServer = &http.Server{
				Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
				Handler:           mux,
				ReadHeaderTimeout: cfg.Server.ReadTimeout,
			}
		}
	}

	cookie := a.CookieConfig()

	web, err := handler.NewWebHandler(handler.WebConfig{
		AuthService:         a.Auth,
		RegistrationService: a.Registration,
		Provisioner:         a.Provisioner,
		Cookie:              cookie,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create web handler: %w", err)
	}

	admin, err := handler.NewAdminHandler(handler.AdminConfig{
		RegistrationService: a.Registration,
		Logger:              logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin handler: %w", err)
	}

	api, err := handler.NewAPIHandler(handler.APIConfig{
		SubjectService: a.Subjects,
		Database:       a.DB,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create API handler: %w", err)
	}

	router := handler.NewRouter(handler.RouterConfig{
		WebHandler:        web,
		AdminHandler:      admin,
		APIHandler:        api,
		SessionMiddleware: handler.SessionMiddleware(a.Sessions, a.Users, cookie, metricsPath, logger),
		Metrics:           a.Metrics,
		MetricsPath:       metricsPath,
		MaxBodySize:       cfg.Server.MaxBodySize,
		Logger:            logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.Reconcile.Enabled {
		a.Reconciler.Start()
		defer a.Reconciler.Stop()
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	if metricsServer != nil {
		go func() {
			logger.Info().Str("addr", metricsServer.Addr).Str("path", cfg.Metrics.Path).Msg("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down server...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}
