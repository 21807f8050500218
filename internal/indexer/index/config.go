package index

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
)

// DefaultName is the index name used in shard keys when none is configured.
const DefaultName = "documents"

// Config describes which document fields are indexed, which field holds the
// reference, and how many documents go into each shard.
type Config struct {
	Name          string
	Fields        []string
	Ref           string
	ShardCapacity int
}

// WithDefaults fills the zero-valued Name and ShardCapacity.
func (c Config) WithDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ShardCapacity == 0 {
		c.ShardCapacity = shard.DefaultCapacity
	}
	return c
}

// Validate reports the first problem with c. Call WithDefaults first.
func (c Config) Validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("index config: at least one field is required")
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("index config: empty field name")
		}
		if _, dup := seen[f]; dup {
			return fmt.Errorf("index config: duplicate field %q", f)
		}
		seen[f] = struct{}{}
	}
	if strings.TrimSpace(c.Ref) == "" {
		return fmt.Errorf("index config: ref field is required")
	}
	if c.ShardCapacity <= 0 {
		return fmt.Errorf("index config: shard capacity must be positive, got %d", c.ShardCapacity)
	}
	if !shard.ValidName(c.Name) {
		return fmt.Errorf("index config: invalid index name %q", c.Name)
	}
	return nil
}
