// Package validator checks upload requests before anything is stored and
// reports every failing field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion"
)

const maxIdempotencyKeyLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the tenant and the document's reference field
// under cfg. A document without indexed text is accepted; it still takes a
// shard slot and resolves by reference.
func ValidateIngestRequest(req *ingestion.IngestRequest, cfg index.Config) error {
	errs := make(map[string]string)

	if req.Tenant == "" {
		errs["tenant"] = "tenant is required"
	} else if !shard.ValidTenant(req.Tenant) {
		errs["tenant"] = "tenant may only contain letters, digits, '-' and '_'"
	}

	if req.Document == nil {
		errs["document"] = "document body is required"
	} else if strings.TrimSpace(req.Document.Ref(cfg)) == "" {
		errs[cfg.Ref] = "reference field is required"
	}

	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLength)
	} else if strings.ContainsAny(req.IdempotencyKey, "/\\") || req.IdempotencyKey == "." || req.IdempotencyKey == ".." {
		errs["idempotency_key"] = "idempotency key must not be a path"
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
