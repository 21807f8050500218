package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Backend,
		"index", cfg.Indexer.Name,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := storage.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	checker := health.NewChecker("searcher")
	checker.Register("storage", health.Ping(store.Ping, health.StatusDown))

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.Ping(redisClient.Ping, health.StatusDegraded))
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
			)
		}
	}

	if queryCache != nil && cfg.Kafka.Enabled {
		invalidator := kafka.NewConsumer(
			cfg.Kafka,
			cfg.Kafka.Topics.IndexComplete,
			cfg.Kafka.ConsumerGroup+"-cache",
			cache.HandleIndexComplete(queryCache),
		)
		go func() {
			if err := invalidator.Start(ctx); err != nil {
				slog.Error("cache invalidation consumer stopped", "error", err)
			}
		}()
		slog.Info("cache invalidation consumer started", "topic", cfg.Kafka.Topics.IndexComplete)
	}

	exec := executor.NewSharded(store.Store, executor.Options{
		IndexName:           cfg.Indexer.IndexConfig().Name,
		DefaultLimit:        cfg.Search.DefaultLimit,
		MaxResults:          cfg.Search.MaxResults,
		MaxConcurrentShards: cfg.Search.MaxConcurrentShards,
		TimeoutPerShard:     cfg.Search.TimeoutPerShard,
	}, m)
	h := handler.New(exec, queryCache, m)

	var limiter middleware.Allower
	if cfg.RateLimit.RequestsPerTenant > 0 {
		l := ratelimit.New(cfg.RateLimit.RequestsPerTenant, cfg.RateLimit.Window)
		go l.RunSweeper(ctx, 5*time.Minute)
		limiter = l
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/v1/search", h.Search)
	api.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	api.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Chain(api,
		middleware.APIKey(cfg.Auth.APIKey),
		middleware.TenantRateLimit(limiter),
		middleware.Timeout(cfg.Server.WriteTimeout),
	))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, middleware.RequestID, middleware.Metrics(m)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var shutdownMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		shutdownMetrics = metrics.StartServer(cfg.Metrics.Port, reg)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if shutdownMetrics != nil {
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
