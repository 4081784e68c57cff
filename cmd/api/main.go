package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mobiguard/internal/api"
	"mobiguard/internal/api/handlers"
	"mobiguard/internal/config"
	"mobiguard/internal/domain/services"
	"mobiguard/internal/infrastructure/cache"
	"mobiguard/internal/infrastructure/database"
	"mobiguard/internal/infrastructure/database/repository"
	"mobiguard/internal/providers"
	"mobiguard/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting MobiGuard")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure
	db, redisCache, err := initInfrastructure(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize infrastructure")
	}
	defer func() {
		if db != nil {
			db.Close()
		}
		if redisCache != nil {
			redisCache.Close()
		}
	}()

	// Initialize scan history (optional, scanning works without it)
	var history *repository.ScanHistoryRepository
	if db != nil {
		history = repository.NewScanHistoryRepository(db, log)
		if err := history.EnsureSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to prepare scan history schema, continuing without history")
			history = nil
		} else {
			log.Info().Msg("scan history initialized")
		}
	} else {
		log.Warn().Msg("running without database - scan history unavailable")
	}

	// Initialize provider rate limiter and adapters
	limiter := providers.NewRateLimiter(log)
	provs := registerProviders(cfg, limiter, log)

	// Initialize verdict cache
	var verdictCache services.VerdictCache
	if cfg.Scan.UseRedisCache && redisCache != nil {
		verdictCache = services.NewRedisVerdictCache(redisCache, log)
		log.Info().Msg("verdict cache backed by Redis")
	} else {
		verdictCache = services.NewMemoryVerdictCache()
		log.Info().Msg("verdict cache in memory")
	}

	// Initialize services
	heuristics := services.NewHeuristicScorer(log)
	fusion := services.NewEvidenceFusion(log)
	scanner := services.NewBatchScanner(provs, verdictCache, heuristics, fusion, log)
	aggregator := services.NewSecurityScoreAggregator(log)

	// Initialize handlers
	h := handlers.NewHandlers(handlers.Dependencies{
		Config:     cfg,
		Scanner:    scanner,
		Aggregator: aggregator,
		Providers:  provs,
		Limiter:    limiter,
		Cache:      redisCache,
		DB:         db,
		History:    history,
		Logger:     log,
	})

	// Create router
	router := api.NewRouter(cfg, h, redisCache, log)
	httpHandler := router.Setup()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}

// initInfrastructure initializes database and cache connections. Redis is
// required; PostgreSQL is optional for development.
func initInfrastructure(ctx context.Context, cfg *config.Config, log *logger.Logger) (*database.PostgresDB, *cache.RedisCache, error) {
	var db *database.PostgresDB
	if cfg.Database.Enabled {
		var err error
		db, err = database.NewPostgres(ctx, cfg.Database, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to PostgreSQL, continuing without database")
			db = nil
		}
	}

	redisCache, err := cache.NewRedis(ctx, cfg.Redis, log)
	if err != nil {
		return db, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return db, redisCache, nil
}

// registerProviders builds the external provider adapters and registers
// their rate limits
func registerProviders(cfg *config.Config, limiter *providers.RateLimiter, log *logger.Logger) []providers.Provider {
	provs := []providers.Provider{
		providers.NewReputationProvider(cfg.Providers.Reputation, limiter, log),
		providers.NewAbuseProvider(cfg.Providers.Abuse, limiter, log),
		providers.NewPhoneValidationProvider(cfg.Providers.PhoneValidation, limiter, log),
	}

	enabled := 0
	for _, p := range provs {
		if p.IsEnabled() {
			enabled++
		}
	}

	log.Info().
		Int("total", len(provs)).
		Int("enabled", enabled).
		Msg("registered providers")

	return provs
}
