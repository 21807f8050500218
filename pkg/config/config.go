// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Storage, Kafka, Redis, Indexer, Search, Auth, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings for the search API.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IngestionConfig holds settings for the document upload API.
type IngestionConfig struct {
	Port         int   `yaml:"port"`
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest string `yaml:"documentIngest"`
	IndexComplete  string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// StorageConfig selects the blob store holding articles and shard indexes.
type StorageConfig struct {
	Backend          string        `yaml:"backend"`
	Dir              string        `yaml:"dir"`
	Table            string        `yaml:"table"`
	RetryAttempts    int           `yaml:"retryAttempts"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

const (
	BackendMemory   = "memory"
	BackendFS       = "fs"
	BackendPostgres = "postgres"
)

// IndexerConfig controls how a tenant's documents are sharded and indexed.
type IndexerConfig struct {
	Name           string        `yaml:"name"`
	Fields         []string      `yaml:"fields"`
	RefField       string        `yaml:"refField"`
	ShardCapacity  int           `yaml:"shardCapacity"`
	Workers        int           `yaml:"workers"`
	ReindexTimeout time.Duration `yaml:"reindexTimeout"`
}

// IndexConfig converts the indexer settings into the builder's config value.
func (c IndexerConfig) IndexConfig() index.Config {
	return index.Config{
		Name:          c.Name,
		Fields:        append([]string(nil), c.Fields...),
		Ref:           c.RefField,
		ShardCapacity: c.ShardCapacity,
	}.WithDefaults()
}

// SearchConfig controls query execution limits and timeouts.
type SearchConfig struct {
	MaxResults          int           `yaml:"maxResults"`
	DefaultLimit        int           `yaml:"defaultLimit"`
	TimeoutPerShard     time.Duration `yaml:"timeoutPerShard"`
	MaxConcurrentShards int           `yaml:"maxConcurrentShards"`
}

// AuthConfig holds the shared API key. An empty key disables the check.
type AuthConfig struct {
	APIKey string `yaml:"apiKey"`
}

// RateLimitConfig caps requests per tenant on the public APIs. Zero
// requests disables limiting.
type RateLimitConfig struct {
	RequestsPerTenant int           `yaml:"requestsPerTenant"`
	Window            time.Duration `yaml:"window"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), applies environment-variable
// overrides and validates the result. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendFS:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the fs backend"))
		}
	case BackendPostgres:
		if c.Storage.Table == "" {
			errs = append(errs, errors.New("storage.table is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, fs, postgres", c.Storage.Backend))
	}
	if err := c.Indexer.IndexConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("indexer: %w", err))
	}
	if c.Indexer.Workers <= 0 {
		errs = append(errs, errors.New("indexer.workers must be positive"))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, errors.New("search.defaultLimit must be positive"))
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		errs = append(errs, fmt.Errorf("search.maxResults (%d) is below search.defaultLimit (%d)", c.Search.MaxResults, c.Search.DefaultLimit))
	}
	if c.Search.MaxConcurrentShards <= 0 {
		errs = append(errs, errors.New("search.maxConcurrentShards must be positive"))
	}
	if c.RateLimit.RequestsPerTenant < 0 {
		errs = append(errs, errors.New("rateLimit.requestsPerTenant must not be negative"))
	}
	if c.RateLimit.RequestsPerTenant > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rateLimit.window must be positive when limiting is on"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when kafka is enabled"))
	}
	// Cached results are only flushed by index-complete events.
	if c.Redis.Enabled && !c.Kafka.Enabled {
		errs = append(errs, errors.New("redis caching requires kafka for index-complete invalidation"))
	}
	return errors.Join(errs...)
}

// defaultConfig returns a Config with defaults suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Ingestion: IngestionConfig{
			Port:         8081,
			MaxBodyBytes: 1 << 20,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "tenantsearch",
			User:            "tenantsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "tenantsearch-indexer",
			Topics: KafkaTopics{
				DocumentIngest: "document-ingest",
				IndexComplete:  "index-complete",
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Storage: StorageConfig{
			Backend:          BackendFS,
			Dir:              "data",
			Table:            "blobs",
			RetryAttempts:    3,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Indexer: IndexerConfig{
			Name:           index.DefaultName,
			Fields:         []string{"text"},
			RefField:       "id",
			ShardCapacity:  1000,
			Workers:        4,
			ReindexTimeout: 5 * time.Minute,
		},
		Search: SearchConfig{
			MaxResults:          100,
			DefaultLimit:        25,
			TimeoutPerShard:     5 * time.Second,
			MaxConcurrentShards: 8,
		},
		RateLimit: RateLimitConfig{
			Window: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt("TS_SERVER_PORT", &cfg.Server.Port)
	setInt("TS_INGESTION_PORT", &cfg.Ingestion.Port)
	if v := os.Getenv("TS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	setInt("TS_POSTGRES_PORT", &cfg.Postgres.Port)
	if v := os.Getenv("TS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	setBool("TS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if v := os.Getenv("TS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setBool("TS_REDIS_ENABLED", &cfg.Redis.Enabled)
	if v := os.Getenv("TS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TS_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("TS_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	setInt("TS_INDEXER_SHARD_CAPACITY", &cfg.Indexer.ShardCapacity)
	setInt("TS_INDEXER_WORKERS", &cfg.Indexer.Workers)
	setInt("TS_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	if v := os.Getenv("TS_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	setInt("TS_RATELIMIT_REQUESTS_PER_TENANT", &cfg.RateLimit.RequestsPerTenant)
	if v := os.Getenv("TS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
