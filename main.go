package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yjkwon/offerharvester/config"
	"yjkwon/offerharvester/helpers"
	"yjkwon/offerharvester/internal/discovery"
	"yjkwon/offerharvester/internal/extract"
	"yjkwon/offerharvester/internal/metrics"
	"yjkwon/offerharvester/internal/pipeline"
	"yjkwon/offerharvester/internal/server"
	"yjkwon/offerharvester/logger"
	"yjkwon/offerharvester/services/cache"
	"yjkwon/offerharvester/services/history"
	"yjkwon/offerharvester/services/publisher"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("mode", cfg.Mode).
		Str("addr", cfg.ListenAddr).
		Msg("Starting application")

	services := initializeServices(cfg)
	defer services.Cleanup()

	m := metrics.New()
	runner := pipeline.NewRunner(cfg, buildExtractor(cfg, services, m), m)
	srv := server.New(cfg, runner, history.NewStore(cfg.HistoryPath), services.Publisher, m)

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case err := <-serverDone:
		log.Error().Err(err).Msg("HTTP server exited")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown did not complete cleanly")
	}
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Renderer  extract.Renderer
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Renderer != nil {
		if err := s.Renderer.Close(); err != nil {
			logger.LogError("renderer", err, "Failed to close renderer")
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.LogError("publisher", err, "Failed to close publisher")
		}
	}
}

// initializeServices initializes the optional backing services per config
func initializeServices(cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheEnabled {
		services.Cache = cache.NewMemcacheService(cfg.MemcacheAddr)
		logger.LogInfo("cache", "Connected to Memcache at %s", cfg.MemcacheAddr)
	} else {
		services.Cache = cache.NewMemoryService()
	}

	if cfg.RedisEnabled {
		services.Publisher = publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			10000,
		)
		logger.LogInfo("publisher", "Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		services.Publisher = publisher.Noop{}
	}

	return services
}

// buildExtractor selects the extraction strategy once at startup.
func buildExtractor(cfg *config.Config, services *Services, m *metrics.Metrics) pipeline.Extractor {
	if cfg.Mode == config.ModeSimulated {
		return pipeline.NewSimulatedExtractor(0)
	}

	fetcher := helpers.NewFetcher(cfg.FetchTimeout, services.Cache, cfg.FetchBlockTime)
	if cfg.BrowserEnabled {
		services.Renderer = extract.NewRodRenderer(cfg.LaunchTimeout, cfg.NavTimeout, true)
	} else {
		services.Renderer = extract.NewFetchRenderer(fetcher)
	}

	discoverer := discovery.New(fetcher, discovery.Options{
		FeedPageSize:   cfg.FeedPageSize,
		MaxFeedPages:   cfg.MaxFeedPages,
		MaxSitemapDocs: cfg.MaxSitemapDocs,
	})
	return pipeline.NewLiveExtractor(discoverer, services.Renderer, cfg, m)
}
