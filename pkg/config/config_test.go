package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendFS, cfg.Storage.Backend)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)

	ic := cfg.Indexer.IndexConfig()
	assert.Equal(t, "documents", ic.Name)
	assert.Equal(t, []string{"text"}, ic.Fields)
	assert.Equal(t, "id", ic.Ref)
	assert.Equal(t, 1000, ic.ShardCapacity)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9000
storage:
  backend: memory
indexer:
  name: receipts
  fields: [title, body]
  refField: uid
  shardCapacity: 50
search:
  timeoutPerShard: 2s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("TS_SERVER_PORT", "9100")
	t.Setenv("TS_AUTH_API_KEY", "secret")
	t.Setenv("TS_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Auth.APIKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 2*time.Second, cfg.Search.TimeoutPerShard)
	assert.Equal(t, 8, cfg.Search.MaxConcurrentShards, "unset keys keep defaults")

	ic := cfg.Indexer.IndexConfig()
	assert.Equal(t, "receipts", ic.Name)
	assert.Equal(t, []string{"title", "body"}, ic.Fields)
	assert.Equal(t, "uid", ic.Ref)
	assert.Equal(t, 50, ic.ShardCapacity)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"fs without dir", func(c *Config) { c.Storage.Dir = "" }},
		{"no fields", func(c *Config) { c.Indexer.Fields = nil }},
		{"negative capacity", func(c *Config) { c.Indexer.ShardCapacity = -1 }},
		{"zero workers", func(c *Config) { c.Indexer.Workers = 0 }},
		{"max below default", func(c *Config) { c.Search.MaxResults = 10 }},
		{"negative rate limit", func(c *Config) { c.RateLimit.RequestsPerTenant = -1 }},
		{"rate limit without window", func(c *Config) {
			c.RateLimit.RequestsPerTenant = 10
			c.RateLimit.Window = 0
		}},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}},
		{"redis cache without kafka", func(c *Config) { c.Redis.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			require.NoError(t, cfg.Validate())
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateRedisWithKafka(t *testing.T) {
	cfg := defaultConfig()
	cfg.Redis.Enabled = true
	cfg.Kafka.Enabled = true
	assert.NoError(t, cfg.Validate())
}
