package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"charity-admin/internal/application/query"
	"charity-admin/internal/config"
	"charity-admin/internal/domain/event"
	"charity-admin/internal/infrastructure/bus"
	"charity-admin/internal/infrastructure/eventstore"
	httpHandler "charity-admin/internal/infrastructure/http"
	"charity-admin/internal/infrastructure/mongo"
	"charity-admin/internal/infrastructure/projection"
	"charity-admin/internal/infrastructure/querycache"
	"charity-admin/internal/infrastructure/redis"
	"charity-admin/internal/infrastructure/statsapi"
	jwtutil "charity-admin/pkg/jwt"
	"charity-admin/pkg/logger"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Tag("main")
	log.Info("Starting Charity Admin statistics API...")

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("Invalid STATS_LOCATION")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	health := map[string]httpHandler.Pinger{}

	// Upstream statistics client, optionally behind the shared Redis cache
	statsClient := statsapi.NewClient(&statsapi.StatsAPIConfig{
		BaseURL:     cfg.StatsAPIBaseURL,
		Token:       cfg.StatsAPIToken,
		Timeout:     cfg.StatsAPITimeout,
		OverallPath: cfg.StatsOverall,
		TeamPath:    cfg.StatsTeam,
		DailyPath:   cfg.StatsDaily,
	})
	var fetcher query.StatsFetcher = statsClient
	if cfg.RedisEnabled() {
		redisCfg := redis.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		}
		redisClient, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()

		payloadCache := redis.NewPayloadCache(redisClient, redisCfg.Prefix)
		fetcher = statsapi.NewCachedFetcher(statsClient, payloadCache, cfg.PayloadCacheTTL)
		health["redis"] = payloadCache
		log.WithField("addr", cfg.RedisAddr).Info("✅ Redis payload cache enabled")
	}

	// Archive writes hit Mongo and run on their own goroutines; the failure
	// log alone is delivered inline.
	var eventBus bus.EventBus = bus.NewSyncEventBus()
	if cfg.ArchiveEnabled() {
		eventBus = bus.NewAsyncEventBus(10 * time.Second)
	}

	failureLog := eventstore.NewMemoryEventStore(500)
	if err := failureLog.Subscribe(eventBus, event.TypeStatsQueryFailed); err != nil {
		log.WithError(err).Fatal("Failed to subscribe failure log")
	}

	// Snapshot archive
	var snapshotHandler *query.StatsSnapshotHandler
	if cfg.ArchiveEnabled() {
		mongoClient, err := mongo.NewMongoClient(ctx, &mongo.MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
			Timeout:  cfg.MongoTimeout,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		defer func() {
			if err := mongoClient.Close(); err != nil {
				log.WithError(err).Error("Error closing MongoDB connection")
			}
		}()

		snapshotRepo := mongo.NewMongoStatsSnapshotRepository(mongoClient.GetDatabase())
		if err := snapshotRepo.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Fatal("Failed to create snapshot indexes")
		}
		if err := projection.NewStatsSnapshotProjection(snapshotRepo).Register(eventBus); err != nil {
			log.WithError(err).Fatal("Failed to register snapshot projection")
		}
		snapshotHandler = query.NewStatsSnapshotHandler(snapshotRepo)
		health["mongo"] = mongoClient
		log.WithField("database", cfg.MongoDatabase).Info("✅ Snapshot archive enabled")
	}

	if err := eventBus.Start(context.Background()); err != nil {
		log.WithError(err).Fatal("Failed to start event bus")
	}

	queries := querycache.NewClient(cfg.StatsStaleTime)
	statsHandler := query.NewAdminStatsHandler(fetcher, queries, eventBus, query.NewSeriesMapper(time.Now, loc))
	statsController := httpHandler.NewHTTPStatsController(statsHandler, snapshotHandler, query.NewStatsFailureHandler(failureLog), loc)

	var jwtManager *jwtutil.JWTManager
	if cfg.AuthEnabled() {
		jwtManager = jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)
	} else {
		log.Warn("JWT_SECRET is empty, /admin/stats is served without authentication")
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpHandler.NewRouter(httpHandler.RouterConfig{
			Stats:          statsController,
			JWTManager:     jwtManager,
			RateLimit:      cfg.RateLimit,
			RateWindow:     cfg.RateLimitWindow,
			RequestTimeout: cfg.RequestTimeout,
			Health:         health,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("🚀 Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	queries.Wait()
	if err := eventBus.Stop(); err != nil {
		log.WithError(err).Error("Failed to stop event bus")
	}

	log.Info("Server exited")
}
