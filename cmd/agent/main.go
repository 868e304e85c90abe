package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/rewards-realtime/internal/cache"
	"github.com/rickgao/rewards-realtime/internal/config"
	"github.com/rickgao/rewards-realtime/internal/connection"
	"github.com/rickgao/rewards-realtime/internal/credential"
	"github.com/rickgao/rewards-realtime/internal/database"
	"github.com/rickgao/rewards-realtime/internal/feed"
	"github.com/rickgao/rewards-realtime/internal/journal"
	"github.com/rickgao/rewards-realtime/internal/metrics"
	"github.com/rickgao/rewards-realtime/internal/router"
	"github.com/rickgao/rewards-realtime/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/agent.local.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("agent failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting realtime agent",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"instance_id", cfg.Instance.ID,
		"base_url", cfg.Realtime.BaseURL,
	)

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()

	// Consumer state
	store := feed.NewStore(cfg.Feed.NotificationCapacity)
	queries := cache.New(cfg.Cache.StaleTime, cache.WithLogger(logger))
	queries.OnInvalidate(func(prefix cache.Key) {
		logger.Debug("query cache invalidated", "prefix", prefix.String())
	})

	// Optional journal
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	var writer *journal.Writer
	var db pinger
	routerOpts := []router.Option{router.WithMetrics(collector)}
	if pool != nil {
		defer pool.Close()
		db = pool

		if err := journal.Migrate(ctx, pool); err != nil {
			return err
		}
		writer = journal.NewWriter(journal.ConfigFrom(cfg.Database), pool, logger, journal.WithMetrics(collector))
		routerOpts = append(routerOpts, router.WithJournal(writer))

		logger.Info("journal enabled",
			"host", cfg.Database.Postgres.Host,
			"database", cfg.Database.Postgres.Name,
		)
	}

	rt := router.NewRouter(store, queries, logger, routerOpts...)

	manager := connection.NewManager(
		connection.ManagerConfigFrom(cfg.Realtime),
		rt,
		connection.WithLogger(logger),
		connection.WithMetrics(collector),
		connection.WithStatus(store),
	)

	// Credential source drives the manager.
	ring, err := credential.Open(cfg.Credential)
	if err != nil {
		return err
	}
	source := credential.NewSource(ring, manager, logger)

	srv := &server{
		store:       store,
		conn:        manager,
		creds:       source,
		router:      rt,
		journal:     writer,
		db:          db,
		metrics:     collector,
		metricsPath: cfg.HTTP.MetricsPath,
		logger:      logger,
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start connection manager: %w", err)
	}
	if writer != nil {
		if err := writer.Start(ctx); err != nil {
			return fmt.Errorf("start journal: %w", err)
		}
	}

	if cfg.Credential.Token != "" {
		if err := source.Set(cfg.Credential.Token); err != nil {
			return fmt.Errorf("store bootstrap token: %w", err)
		}
	} else if err := source.Load(); err != nil {
		logger.Warn("failed to load stored credential", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return source.Watch(gctx, cfg.Credential.WatchInterval)
	})

	g.Go(func() error {
		logger.Info("starting http server", "port", cfg.HTTP.Port)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("realtime agent running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.HTTP.Port),
	)

	runErr := g.Wait()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Warn("connection manager stop", "error", err)
	}
	if writer != nil {
		writer.Stop(shutdownCtx)
	}

	logger.Info("realtime agent stopped")
	return runErr
}
