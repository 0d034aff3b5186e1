package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spendwise/internal/analytics"
	"spendwise/internal/auth"
	"spendwise/internal/backend"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/report"
	"spendwise/internal/services"
)

const (
	cacheSweepInterval = 5 * time.Minute
	shutdownTimeout    = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	cfg, logger, err := cli.LoadConfig(log.ComponentApp)
	if err != nil {
		cli.Fatal(logger, "Failed to load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", cfg.DataBackend)
	}
	defer func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	expenses := services.NewExpenseService(res.Store, res.Publisher, logger)
	reports := report.NewService(res.Store, analytics.NewAdvisor(nil), logger)
	authSvc := auth.NewService(res.Store, expenses, logger)
	sessions := auth.NewSessionStore(cfg.SessionTTL, cfg.CookieSecure)

	caches := cache.NewManager()
	sessions.RegisterCaches(caches)
	caches.StartCleanup(cacheSweepInterval)
	defer caches.Stop()

	deps := apphttp.Deps{
		Expenses:       expenses,
		Reports:        reports,
		Auth:           authSvc,
		Sessions:       sessions,
		Ready:          res.Ping,
		Logger:         logger,
		LoginRateLimit: cfg.LoginRateLimit,
		DemoMode:       cfg.DemoMode,
	}
	if cfg.GoogleOAuthEnabled() {
		deps.Google = auth.NewGoogleProvider(cfg.GoogleOAuthClientID, cfg.GoogleOAuthClientSecret, cfg.GoogleOAuthRedirectURL)
		logger.Info("Google sign-in enabled")
	} else {
		logger.Info("Google sign-in disabled - no GOOGLE_OAUTH_CLIENT_ID provided")
	}
	if cfg.DemoMode {
		logger.Warn("Demo login is enabled")
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		cli.Fatal(logger, "Failed to create HTTP server", err)
	}

	ctx, stop := cli.SignalContext()
	defer stop()
	stopped := cli.GracefulShutdown(ctx, logger, shutdownTimeout, srv.Shutdown)

	logger.Info("Starting server", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server failed", err)
	}
	<-stopped
	logger.Info("Server stopped")
}
