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

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/storage"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	tenant := flag.String("tenant", "", "re-index this tenant once and exit")
	healthPort := flag.Int("health-port", 8082, "port for /health/live and /health/ready")
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
	indexCfg := cfg.Indexer.IndexConfig()
	slog.Info("starting indexer service",
		"storage", cfg.Storage.Backend,
		"index", indexCfg.Name,
		"shard_capacity", indexCfg.ShardCapacity,
	)

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

	engine, err := indexer.NewEngine(store.Store, indexCfg, cfg.Indexer.Workers, m)
	if err != nil {
		slog.Error("invalid index configuration", "error", err)
		os.Exit(1)
	}

	if *tenant != "" {
		runCtx, cancel := context.WithTimeout(ctx, cfg.Indexer.ReindexTimeout)
		defer cancel()
		res, err := engine.Reindex(runCtx, *tenant)
		if err != nil {
			slog.Error("re-index failed", "tenant", *tenant, "error", err)
			os.Exit(1)
		}
		slog.Info("re-index finished",
			"tenant", res.Tenant,
			"documents", res.Documents,
			"shards", res.Shards,
			"removed", len(res.Removed),
			"duration", res.Duration,
		)
		if cfg.Kafka.Enabled {
			completed := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
			defer completed.Close()
			if err := consumer.Announce(runCtx, completed, res); err != nil {
				slog.Error("failed to announce completed index", "tenant", res.Tenant, "error", err)
				os.Exit(1)
			}
		}
		return
	}

	if !cfg.Kafka.Enabled {
		slog.Error("kafka is disabled; run with -tenant for a one-shot re-index")
		os.Exit(1)
	}

	completed := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer completed.Close()

	kafkaConsumer := kafka.NewConsumer(
		cfg.Kafka,
		cfg.Kafka.Topics.DocumentIngest,
		cfg.Kafka.ConsumerGroup,
		consumer.HandleIngest(engine, completed, cfg.Indexer.ReindexTimeout),
	)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker("indexer")
	checker.Register("storage", health.Ping(store.Ping, health.StatusDown))
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("GET /health/live", checker.LiveHandler())
	healthMux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	healthServer := &http.Server{Addr: fmt.Sprintf(":%d", *healthPort), Handler: healthMux}
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()
	defer healthServer.Close()

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := kafkaConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
