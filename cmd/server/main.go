package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/linkqr/config"
	"github.com/sifan077/linkqr/internal/app/cache"
	appmodel "github.com/sifan077/linkqr/internal/app/model"
	"github.com/sifan077/linkqr/internal/app/qr"
	apprepository "github.com/sifan077/linkqr/internal/app/repository"
	appserver "github.com/sifan077/linkqr/internal/app/server"
	"github.com/sifan077/linkqr/internal/app/service"
	inthttp "github.com/sifan077/linkqr/internal/http/handler"
	"github.com/sifan077/linkqr/internal/http/middleware"
	httpUtil "github.com/sifan077/linkqr/internal/http/util"
	"github.com/sifan077/linkqr/internal/infra/database"
	"github.com/sifan077/linkqr/internal/infra/logger"
	infraNATS "github.com/sifan077/linkqr/internal/infra/nats"
	infraPrometheus "github.com/sifan077/linkqr/internal/infra/prometheus"
	infraRedis "github.com/sifan077/linkqr/internal/infra/redis"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.MustInit(logger.FromApp(cfg.App, "linkqr"))
	defer func() { _ = logger.Sync() }()

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("base_url", cfg.Server.BaseURL),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("nats_enabled", cfg.NATS.Enabled),
		zap.Bool("prometheus_enabled", cfg.Prometheus.Enabled),
	)

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()
	log.Info("Connected to database successfully", zap.String("driver", cfg.Database.Driver))

	if err := database.AutoMigrate(ctx, db.Gorm, &appmodel.Link{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	linkRepo := apprepository.NewLinkRepository(db.Gorm)

	allocator := service.NewCodeAllocator(linkRepo)
	codes, err := linkRepo.ListCodes(ctx)
	if err != nil {
		log.Fatal("Failed to load existing short codes", zap.Error(err))
	}
	allocator.Seed(codes)
	log.Info("Code allocator seeded", zap.Int("codes", len(codes)))

	var (
		redisClient *redis.Client
		linkCache   cache.LinkCache
		rateLimit   middleware.RateLimitConfig
	)
	if cfg.Redis.Enabled {
		redisClient, err = infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))

		linkCache = cache.NewRedisLinkCache(redisClient, parseDuration(log, "redis.cache_ttl", cfg.Redis.CacheTTL, time.Hour))
		rateLimit = middleware.RateLimitConfig{
			MaxRequests: cfg.RateLimit.ShortenMaxRequests,
			Window:      parseDuration(log, "rate_limit.shorten_window", cfg.RateLimit.ShortenWindow, time.Minute),
			KeyPrefix:   "ratelimit:shorten",
		}
	}

	var clicks inthttp.ClickNotifier
	if cfg.NATS.Enabled {
		natsConn, js, err := infraNATS.Connect(cfg.NATS)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()

		publisher := service.NewClickPublisher(js)
		if err := publisher.EnsureStream(); err != nil {
			log.Fatal("Failed to prepare click stream", zap.Error(err))
		}
		clicks = publisher
		log.Info("Connected to NATS successfully", zap.String("url", infraNATS.URL(cfg.NATS)))
	}

	if cfg.Prometheus.Enabled {
		promServer := infraPrometheus.NewServer(cfg.Prometheus, infraPrometheus.Registry)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	}

	if err := os.MkdirAll(cfg.Server.StaticDir, 0o755); err != nil {
		log.Fatal("Failed to create static directory", zap.Error(err), zap.String("dir", cfg.Server.StaticDir))
	}

	links := service.NewLinkService(service.LinkServiceDeps{
		Repo:      linkRepo,
		Allocator: allocator,
		QRCodes:   qr.NewStore(cfg.Server.StaticDir, cfg.Server.QRSize),
		Cache:     linkCache,
		Logger:    log,
	})

	server := appserver.New(appserver.Dependencies{
		Logger:    log,
		Links:     links,
		Store:     db,
		Redis:     redisClient,
		Clicks:    clicks,
		BaseURL:   httpUtil.NewBaseURLResolver(cfg.Server.BaseURL, cfg.Server.TrustRequestHost),
		StaticDir: cfg.Server.StaticDir,
		RateLimit: rateLimit,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr))
		serverErr <- server.Listen(cfg.Server.Addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("Fiber server exited", zap.Error(err))
		}
	case sig := <-quit:
		log.Info("Shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Graceful shutdown failed", zap.Error(err))
		}
	}
}

func parseDuration(log *zap.Logger, key, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn("Invalid duration, using default",
			zap.String("key", key),
			zap.String("value", value),
			zap.Duration("default", fallback),
		)
		return fallback
	}
	return d
}
