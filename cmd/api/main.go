package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/cache"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/database"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/events"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/memory"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/providers/analysis"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/providers/extraction"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/adapters/storage"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/handlers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/api/routes"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/application/services"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/repositories"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/clients/predictor"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/observability"
	"github.com/zatekoja/underwritingcasedesk/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	healthChecks := map[string]routes.HealthCheck{}

	// Redis backs the cache and the cross-instance event bus when reachable
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-process cache and events")
			redisClient = nil
		} else {
			defer redisClient.Close()
			healthChecks["redis"] = redisClient.Ping
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	var (
		cacheProvider providers.CacheProvider
		eventBus      providers.EventBus
	)
	if redisClient != nil {
		cacheProvider = cache.NewRedisAdapter(redisClient)
		eventBus = events.NewRedisEventBus(redisClient)
	} else {
		cacheProvider = cache.NewMemoryAdapter()
		eventBus = events.NewLocalEventBus()
	}

	var caseRepo repositories.CaseRepository
	switch cfg.Storage.Backend {
	case "memory":
		caseRepo = memory.NewCaseRepository()
		log.Warn().Msg("Using in-memory case store; cases are lost on restart")
	default:
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()
		healthChecks["postgres"] = pgClient.Ping

		adapter := database.NewCaseAdapter(pgClient, metrics)
		if err := adapter.InitSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize case schema")
		}
		caseRepo = database.NewCachedCaseAdapter(adapter, cacheProvider, metrics)
		log.Info().Str("host", cfg.Database.Host).Str("database", cfg.Database.Database).Msg("PostgreSQL case store ready")
	}

	documents, err := storage.OpenBlobStore(ctx, cfg.Storage.BucketURL, metrics)
	if err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.Storage.BucketURL).Msg("Failed to open PDF bucket")
	}
	defer documents.Close()

	extractor := extraction.NewDocumentExtractor(&cfg.OpenAI)
	analyzer := analysis.NewMockAnalyzer(cfg.Analysis.Delay, 0)
	riskPredictor := predictor.NewClient(cfg.Predictor.URL, cfg.Predictor.Timeout)

	caseService := services.NewCaseService(caseRepo, documents, extractor, analyzer, eventBus, cfg.Upload.MaxFiles)
	predictionService := services.NewPredictionService(riskPredictor)

	router := routes.NewRouter(
		handlers.NewCaseHandler(caseService, cfg.Upload.MaxBytes),
		handlers.NewPredictionHandler(predictionService),
		handlers.NewSSEHandler(eventBus),
		cfg.Server.AllowedOrigins,
		healthChecks,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: event streams stay open for the life of the page.
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("store", cfg.Storage.Backend).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}

	log.Info().Msg("Server stopped")
}
