package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fitzroyhq/tokend/internal/tokend/directory"
	"github.com/fitzroyhq/tokend/internal/tokend/domain"
	httpapi "github.com/fitzroyhq/tokend/internal/tokend/http"
	"github.com/fitzroyhq/tokend/internal/tokend/metrics"
	"github.com/fitzroyhq/tokend/internal/tokend/service"
	"github.com/fitzroyhq/tokend/internal/tokend/store"
	"github.com/fitzroyhq/tokend/internal/tokend/store/drivers/memory"
	"github.com/fitzroyhq/tokend/internal/tokend/store/drivers/postgres"
	"github.com/fitzroyhq/tokend/internal/tokend/store/drivers/redis"
	"github.com/fitzroyhq/tokend/internal/tokend/store/drivers/sqlite"
	"github.com/fitzroyhq/tokend/pkg/jwtx"
	"github.com/fitzroyhq/tokend/pkg/slogx"
)

// BuildVersion is overridden at release time via
// -ldflags "-X github.com/fitzroyhq/tokend/internal/tokend/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application ties the store, directory, services, and HTTP server
// together for one tokend process.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	dir     directory.Directory
	metrics *metrics.Metrics

	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds an Application from cfg, failing fast on anything that would
// leave the service unable to issue or verify tokens.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tokend",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initDirectory(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run serves HTTP until a shutdown signal or server error arrives.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("tokend starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-sigCh:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops the housekeeping worker, and
// closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down tokend...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// The worker must stop before the store goes away under it.
	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("tokend stopped")
	return nil
}

// initDatabase opens the configured refresh token store and applies migrations.
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)

	switch app.cfg.StoreDriver {
	case "sqlite", "":
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	case "postgres":
		if app.cfg.DatabaseURL == "" {
			return fmt.Errorf("store driver postgres requires TOKEND_DATABASE_URL")
		}
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	case "redis":
		if app.cfg.RedisAddr == "" {
			return fmt.Errorf("store driver redis requires TOKEND_REDIS_ADDR")
		}
		rdb := goredis.NewClient(&goredis.Options{Addr: app.cfg.RedisAddr})
		db = redis.NewStore(rdb, "tokend")
	case "memory":
		app.logger.Warn("using in-memory store; refresh tokens will not survive a restart")
		db = memory.NewStore()
	default:
		return fmt.Errorf("unknown store driver %q", app.cfg.StoreDriver)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StoreDriver, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply store migrations: %w", err)
	}

	app.logger.Info("store ready", "driver", app.cfg.StoreDriver)
	return nil
}

// initDirectory wires the user directory the issue endpoint consults.
func (app *Application) initDirectory() error {
	switch {
	case app.cfg.DirectoryURL != "":
		app.dir = directory.NewHTTP(app.cfg.DirectoryURL)
		app.logger.Info("using upstream user directory", "url", app.cfg.DirectoryURL)

	case app.cfg.DirectoryFile != "":
		dir, err := directory.NewStaticFromFile(app.cfg.DirectoryFile)
		if err != nil {
			return fmt.Errorf("failed to load user directory file: %w", err)
		}
		app.dir = dir
		app.logger.Info("using static user directory", "file", app.cfg.DirectoryFile)

	case app.cfg.DirectoryJSON != "":
		dir, err := directory.NewStaticFromJSON(strings.NewReader(app.cfg.DirectoryJSON))
		if err != nil {
			return fmt.Errorf("failed to parse TOKEND_USERS: %w", err)
		}
		app.dir = dir
		app.logger.Info("using inline user directory")

	default:
		// An empty directory rejects every issue request, which is the safe
		// default for a misconfigured deployment.
		app.dir = directory.NewStatic([]domain.User{})
		app.logger.Warn("no user directory configured; every issue request will be rejected")
	}

	return nil
}

// initServices loads the token secrets and builds the signer, verifier,
// and service layer on top of them.
func (app *Application) initServices() error {
	accessSecret, refreshSecret, err := InitTokenSecrets(app.cfg, app.logger)
	if err != nil {
		return err
	}

	accessSigner, err := jwtx.NewSignerHS256(accessSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize access signer: %w", err)
	}
	refreshSigner, err := jwtx.NewSignerHS256(refreshSecret)
	if err != nil {
		return fmt.Errorf("failed to initialize refresh signer: %w", err)
	}

	accessVerifier, err := jwtx.NewVerifierHS256(accessSecret, app.cfg.Issuer, app.cfg.Audience,
		jwtx.WithTokenType(jwtx.TokenTypeAccess))
	if err != nil {
		return fmt.Errorf("failed to initialize access verifier: %w", err)
	}
	refreshVerifier, err := jwtx.NewVerifierHS256(refreshSecret, app.cfg.Issuer, app.cfg.Audience,
		jwtx.WithTokenType(jwtx.TokenTypeRefresh))
	if err != nil {
		return fmt.Errorf("failed to initialize refresh verifier: %w", err)
	}

	app.metrics = metrics.New()

	app.tokenService = &service.TokenService{
		Store:     app.db,
		Directory: app.dir,
		Metrics:   app.metrics,

		AccessSigner:    accessSigner,
		AccessVerifier:  accessVerifier,
		RefreshSigner:   refreshSigner,
		RefreshVerifier: refreshVerifier,

		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,

		MaxSessionsPerUser: app.cfg.MaxSessions,
		SessionLimitPolicy: service.SessionLimitPolicy(app.cfg.SessionLimitPolicy),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.metrics,
		app.cfg.HousekeepingInterval,
		app.cfg.HousekeepingRetention,
	)

	return nil
}

// initHTTP assembles the router and the http.Server around it.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokenService.AccessVerifier,
		BuildVersion,
		app.db,
		app.logger,
	)
	router.TokenService = app.tokenService
	router.Metrics = app.metrics
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
