// Package storage persists article documents and encoded shard indexes as
// opaque blobs addressed by slash-separated keys. Backends: in-memory, local
// filesystem and PostgreSQL; Guarded adds retry and circuit breaking.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
)

// ErrNotFound is returned by Get for a key that does not exist.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the persistence surface used by ingestion, indexing and search.
// List returns the keys starting with prefix in ascending byte order. Delete
// of a missing key is not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

const (
	articlesRoot    = "articles"
	idempotencyRoot = "idempotency"
)

// ArticlePrefix is the key prefix under which a tenant's documents live.
func ArticlePrefix(tenant string) string {
	return articlesRoot + "/" + tenant + "/"
}

// ArticleKey names a document uploaded at t. The timestamp is zero-padded so
// that lexical key order is upload order.
func ArticleKey(tenant string, t time.Time) string {
	return fmt.Sprintf("%s%019d.json", ArticlePrefix(tenant), t.UnixNano())
}

// IsArticleKey reports whether key names a document of tenant.
func IsArticleKey(tenant, key string) bool {
	rest, ok := strings.CutPrefix(key, ArticlePrefix(tenant))
	return ok && rest != "" && !strings.Contains(rest, "/") && strings.HasSuffix(rest, ".json")
}

// IdempotencyKey maps a client-supplied idempotency token to the key holding
// the article key it produced.
func IdempotencyKey(tenant, token string) string {
	return idempotencyRoot + "/" + tenant + "/" + token
}

// TenantOf extracts the tenant from an article or shard key.
func TenantOf(key string) (string, bool) {
	parts := strings.SplitN(key, "/", 3)
	if len(parts) < 3 || !shard.ValidTenant(parts[1]) {
		return "", false
	}
	switch parts[0] {
	case articlesRoot, shard.IndexesRoot:
		return parts[1], true
	}
	return "", false
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid blob key %q", key)
		}
	}
	return nil
}
