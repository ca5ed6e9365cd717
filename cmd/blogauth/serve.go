// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Blogauth Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/blogauth/blogauth/internal/api"
	"github.com/blogauth/blogauth/internal/auth"
	"github.com/blogauth/blogauth/internal/auth/memory"
	"github.com/blogauth/blogauth/internal/auth/postgres"
	authredis "github.com/blogauth/blogauth/internal/auth/redis"
	"github.com/blogauth/blogauth/internal/config"
	"github.com/blogauth/blogauth/internal/logging"
	"github.com/blogauth/blogauth/internal/observability"
	"github.com/blogauth/blogauth/internal/store"
)

// serviceName labels every log line.
const serviceName = "blogauth"

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the credential store. The returned func releases it.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.CredentialStore, func(), error)

	// ThrottleFactory builds the login throttle, or returns nil when disabled.
	// Default: openThrottle
	ThrottleFactory func(ctx context.Context, cfg *config.Config) (auth.LoginThrottle, func(), error)

	// Migrate applies schema migrations when --auto-migrate is set.
	// Default: migrateUp
	Migrate func(databaseURL string) error

	// Ready is called once both servers are listening. Tests use it to
	// learn the bound addresses.
	Ready func(apiAddr, metricsAddr string)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.StoreFactory == nil {
		out.StoreFactory = openStore
	}
	if out.ThrottleFactory == nil {
		out.ThrottleFactory = openThrottle
	}
	if out.Migrate == nil {
		out.Migrate = migrateUp
	}
	if out.Ready == nil {
		out.Ready = func(string, string) {}
	}
	return &out
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the authentication API and, when metrics-addr is set, the
metrics and health probe listener. Stops on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags(), false)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, autoMigrate, cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending migrations before serving (postgres store only)")

	return cmd
}

// app is the assembled service graph.
type app struct {
	logger  *slog.Logger
	service *auth.Service
	router  *gin.Engine
	cleanup []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// buildApp wires store, hashing, tokens, throttle and router from cfg.
func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *ServeDeps) (*app, error) {
	a := &app{logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	credentials, release, err := deps.StoreFactory(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, release)

	hasher, err := auth.NewHasher(cfg.Hasher, cfg.BcryptCost)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}
	pool, err := auth.NewHashPool(hasher, cfg.HashWorkers)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}
	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), auth.WithLeeway(cfg.TokenLeeway))
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}

	opts := []auth.ServiceOption{
		auth.WithLogger(logger.With("component", "auth")),
		auth.WithTokenTTL(cfg.TokenTTL),
	}
	throttle, releaseThrottle, err := deps.ThrottleFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, releaseThrottle)
	if throttle != nil {
		opts = append(opts, auth.WithThrottle(throttle))
	}

	a.service, err = auth.NewService(credentials, pool, tokens, opts...)
	if err != nil {
		return nil, err //nolint:wrapcheck // coded by auth
	}

	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	a.router = api.NewRouter(a.service,
		api.WithLogger(logger.With("component", "api")),
		api.WithSecureCookie(cfg.CookieSecure),
		api.WithCookieMaxAge(cfg.TokenTTL),
		api.WithCORSOrigins(cfg.CORSOrigins...),
	)

	ok = true
	return a, nil
}

// runServe starts the API and observability servers and blocks until ctx
// ends or a server fails.
func runServe(ctx context.Context, cfg *config.Config, autoMigrate bool, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	logger := logging.SetDefault(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.LogFormat,
		Level:   cfg.SlogLevel(),
		Writer:  cmd.ErrOrStderr(),
	})

	logger.Info("starting blogauth",
		"addr", cfg.Addr(),
		"store", cfg.Store,
		"hasher", cfg.Hasher,
		"throttle", cfg.Throttle.Enabled,
	)

	if autoMigrate && cfg.Store == config.StorePostgres {
		if err := deps.Migrate(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	a, err := buildApp(ctx, cfg, logger, deps)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var obsServer *observability.Server
	metricsAddr := ""
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, a.service.Ready,
			observability.WithLogger(logger.With("component", "observability")),
			observability.WithBuildInfo(version),
		)
		auth.RegisterMetrics(obsServer.Registry())
		api.RegisterMetrics(obsServer.Registry())

		obsErrCh, err := obsServer.Start()
		if err != nil {
			return err //nolint:wrapcheck // coded by observability
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability", logger)
		metricsAddr = obsServer.Addr()
	}

	apiServer := api.NewServer(cfg.Addr(), a.router, logger.With("component", "api"))
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, logger)
		return err //nolint:wrapcheck // coded by api
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api", logger)

	deps.Ready(apiServer.Addr(), metricsAddr)
	logger.Info("blogauth ready", "api_addr", apiServer.Addr(), "metrics_addr", metricsAddr)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	var stopErr error
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		stopErr = cause
	}
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
		if stopErr == nil {
			stopErr = err
		}
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return stopErr
}

func stopObservability(s *observability.Server, logger *slog.Logger) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		logger.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// openStore returns the configured credential store.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.CredentialStore, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory credential store, accounts are lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := store.Open(ctx, cfg.DatabaseURL,
		store.WithMaxConns(cfg.DBMaxConns),
		store.WithOpenLogger(logger.With("component", "store")))
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // coded by store
	}
	logger.Info("connected to database")
	return postgres.NewUserRepository(pool), pool.Close, nil
}

// openThrottle returns the Redis throttle when redis_url is set, the
// in-process one otherwise, or nil when throttling is disabled.
func openThrottle(ctx context.Context, cfg *config.Config) (auth.LoginThrottle, func(), error) {
	noop := func() {}
	if !cfg.Throttle.Enabled {
		return nil, noop, nil
	}
	if cfg.RedisURL == "" {
		return auth.NewMemoryThrottle(cfg.ThrottlePolicy()), noop, nil
	}

	client, err := authredis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck // coded by redis adapter
	}
	return authredis.NewThrottle(client, cfg.ThrottlePolicy()), func() { _ = client.Close() }, nil
}

func migrateUp(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err //nolint:wrapcheck // coded by store
	}
	defer func() { _ = m.Close() }()
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	return nil
}

// monitorServerErrors cancels ctx with the serve error as its cause.
// It exits when an error arrives, the channel closes, or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelCauseFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown", "server", serverName, "error", err)
			cancel(oops.Code("SERVER_FAILED").With("server", serverName).Wrap(err))
		}
	case <-ctx.Done():
	}
}
