package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/tripsmith/tripsmith/internal/cache"
	"github.com/tripsmith/tripsmith/internal/config"
	"github.com/tripsmith/tripsmith/internal/domain"
	"github.com/tripsmith/tripsmith/internal/itinerary"
	"github.com/tripsmith/tripsmith/internal/location"
	"github.com/tripsmith/tripsmith/internal/prompt"
	"github.com/tripsmith/tripsmith/internal/provider"
	"github.com/tripsmith/tripsmith/internal/server"
	"github.com/tripsmith/tripsmith/internal/telemetry"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("TRIP_CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.Init("tripsmith", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer shutdownTracer(context.Background())

	store, err := newCacheStore(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize cache backend %q: %v", cfg.Cache.Backend, err)
	}
	cacheService := cache.NewService(store, cfg.Cache.DefaultTTL, logger)
	defer cacheService.Close()

	registry, err := provider.NewRegistry(cfg.Providers, cfg.Generation.DefaultProvider, logger)
	if err != nil {
		log.Fatalf("Failed to initialize providers: %v", err)
	}

	var locationCtx domain.LocationContext
	if cfg.Map.AK != "" {
		client := location.NewClient(cfg.Map.BaseURL, cfg.Map.AK, location.WithTimeout(cfg.Map.Timeout))
		locationCtx = location.NewCachedContext(client, cacheService)
	} else {
		logger.Info("map API key not set, generating without location context")
	}

	prompts := prompt.NewBuilder(cfg.Generation.TemplatesPath, logger)

	generator := itinerary.NewGenerator(registry, cacheService, locationCtx, prompts, itinerary.Config{
		MaxDays:           cfg.Generation.MaxDays,
		MaxConcurrentDays: cfg.Generation.MaxConcurrentDays,
		ResponseTTL:       cfg.Generation.ResponseTTL,
	}, logger)

	handlers := server.NewHandlers(generator, registry, logger)
	srv := server.New(cfg.Server.Port, cfg.Server.RequestTimeout, handlers, logger)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newCacheStore(cfg config.CacheConfig) (cache.Store, error) {
	switch cfg.Backend {
	case "redis":
		return cache.NewRedisStore(context.Background(), cfg.RedisURL)
	case "sqlite":
		return cache.NewSQLiteStore(cfg.SQLitePath)
	default:
		return cache.NewMemoryStore(cfg.MemorySize)
	}
}
