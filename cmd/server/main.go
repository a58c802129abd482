package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/newsdesk-api/internal/api"
	"github.com/newsdesk-api/internal/auth"
	"github.com/newsdesk-api/internal/cache"
	"github.com/newsdesk-api/internal/config"
	"github.com/newsdesk-api/internal/database"
	"github.com/newsdesk-api/internal/events"
	"github.com/newsdesk-api/internal/metrics"
	"github.com/newsdesk-api/internal/repository"
	"github.com/newsdesk-api/internal/service"
	"github.com/newsdesk-api/internal/storage"
	"github.com/newsdesk-api/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("info", "json")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting newsdesk API server...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Change feed and view de-dup: shared through Redis when configured,
	// otherwise local to this process
	var (
		feed    events.Feed
		deduper cache.Deduper
		closers []func() error
	)
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
		}
		redisFeed, err := events.NewRedisFeed(client, cfg.Redis.Channel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create change feed")
		}
		if err := redisFeed.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start change feed")
		}
		feed = redisFeed
		deduper = cache.NewRedisDeduper(client, "newsdesk:seen:", cfg.Views.DedupTTL)
		closers = append(closers, redisFeed.Close, client.Close)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis change feed and view de-dup")
	} else {
		feed = events.NewLocalFeed()
		deduper = cache.NewMemoryDeduper(cfg.Views.DedupSize, cfg.Views.DedupTTL)
		log.Info().Msg("Redis not configured, using in-process change feed")
	}

	// Object storage for article images and avatars
	objects, err := storage.NewS3Store(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize object storage")
	}

	m := metrics.New()

	// Initialize services
	services := service.NewServices(service.Dependencies{
		Repos:   repository.New(db),
		Feed:    feed,
		Store:   objects,
		Deduper: deduper,
		Metrics: m,
	}, cfg, log)

	// Start visitor retention sweeper
	go services.Retention.StartProcessor(ctx)
	log.Info().Dur("retention", cfg.Visitors.Retention).Msg("Visitor retention sweeper started")

	// Initialize router
	router := api.NewRouter(api.Deps{
		Services: services,
		Verifier: auth.NewVerifier(cfg.Auth),
		Feed:     feed,
		Metrics:  m,
		DB:       db,
	}, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop retention sweeper
	services.Retention.StopProcessor()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	services.View.Close()
	stop()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("Error while closing")
		}
	}

	log.Info().Msg("Server exited gracefully")
}
