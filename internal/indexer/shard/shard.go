// Package shard partitions a tenant's ordered document list into
// fixed-capacity groups and names the blobs each group's index is stored
// under. Shard numbers are 1-based and, up to MaxShards, keys sort in
// creation order.
package shard

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// DefaultCapacity is the shard size used when a config leaves it unset.
const DefaultCapacity = 1000

// IndexesRoot is the first key segment of every shard blob.
const IndexesRoot = "indexes"

// MaxShards is the largest shard number whose key keeps its fixed width.
const MaxShards = 999999

const (
	filePrefix  = "search_index_"
	fileSuffix  = ".idx"
	numberWidth = 6
)

var tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Split cuts items into consecutive groups of at most capacity elements,
// preserving order. N items yield exactly ceil(N/capacity) groups; an empty
// input yields none. More than MaxShards groups is an error.
func Split[T any](items []T, capacity int) ([][]T, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("shard capacity must be positive, got %d", capacity)
	}
	n := (len(items) + capacity - 1) / capacity
	if n > MaxShards {
		return nil, fmt.Errorf("%d documents at capacity %d need %d shards, limit is %d", len(items), capacity, n, MaxShards)
	}
	groups := make([][]T, 0, n)
	for start := 0; start < len(items); start += capacity {
		end := min(start+capacity, len(items))
		groups = append(groups, items[start:end:end])
	}
	return groups, nil
}

// ValidTenant reports whether tenant is usable as a storage partition key.
func ValidTenant(tenant string) bool {
	return tenantPattern.MatchString(tenant)
}

// Prefix returns the key prefix under which every shard of the tenant's
// index called name is stored.
func Prefix(tenant, name string) string {
	return path.Join(IndexesRoot, tenant, name) + "/"
}

// Key returns the blob key of shard number n (1-based).
func Key(tenant, name string, n int) string {
	return fmt.Sprintf("%s%s%0*d%s", Prefix(tenant, name), filePrefix, numberWidth, n, fileSuffix)
}

// Number extracts the shard number from a key produced by Key.
func Number(key string) (int, error) {
	base := path.Base(key)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return 0, fmt.Errorf("not a shard key: %q", key)
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("not a shard key: %q", key)
	}
	return n, nil
}

// FilterKeys keeps only well-formed shard keys, preserving order.
func FilterKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, err := Number(k); err == nil {
			out = append(out, k)
		}
	}
	return out
}

// ValidName reports whether an index name is usable inside a shard key.
func ValidName(name string) bool {
	return tenantPattern.MatchString(name)
}
