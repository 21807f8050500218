// Command ingestion starts the document upload HTTP service.
//
// The service accepts tenant documents via POST /api/v1/documents?tenant=,
// stores each one as an article blob and announces it on the ingest topic.
// With Kafka disabled it re-indexes the tenant in-process instead.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml] [-metrics-port 9092]
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

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	metricsPort := flag.Int("metrics-port", 0, "override metrics.port, for running beside other services")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *metricsPort > 0 {
		cfg.Metrics.Port = *metricsPort
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Ingestion.Port, "storage", cfg.Storage.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store, err := storage.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	indexCfg := cfg.Indexer.IndexConfig()
	var pub *publisher.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
		defer producer.Close()
		pub = publisher.New(store.Store, producer, nil, m)
		slog.Info("publishing ingest events", "topic", cfg.Kafka.Topics.DocumentIngest)
	} else {
		engine, err := indexer.NewEngine(store.Store, indexCfg, cfg.Indexer.Workers, m)
		if err != nil {
			slog.Error("invalid index configuration", "error", err)
			os.Exit(1)
		}
		pub = publisher.New(store.Store, nil, engine, m)
		slog.Info("kafka disabled, indexing uploads in-process")
	}
	h := handler.New(pub, indexCfg, cfg.Ingestion.MaxBodyBytes)

	checker := health.NewChecker("ingestion")
	checker.Register("storage", health.Ping(store.Ping, health.StatusDown))

	var limiter middleware.Allower
	if cfg.RateLimit.RequestsPerTenant > 0 {
		l := ratelimit.New(cfg.RateLimit.RequestsPerTenant, cfg.RateLimit.Window)
		go l.RunSweeper(ctx, 5*time.Minute)
		limiter = l
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/documents", middleware.Chain(http.HandlerFunc(h.Ingest),
		middleware.APIKey(cfg.Auth.APIKey),
		middleware.TenantRateLimit(limiter),
		middleware.Timeout(cfg.Server.WriteTimeout),
	))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Ingestion.Port),
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

	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
