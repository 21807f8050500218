package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = index.Config{Fields: []string{"title", "body"}, Ref: "id"}

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name   string
		req    ingestion.IngestRequest
		fields []string
	}{
		{
			name: "valid",
			req:  ingestion.IngestRequest{Tenant: "acme", Document: index.Document{"id": "D1", "body": "apple"}},
		},
		{
			name:   "missing tenant",
			req:    ingestion.IngestRequest{Document: index.Document{"id": "D1", "body": "apple"}},
			fields: []string{"tenant"},
		},
		{
			name:   "bad tenant",
			req:    ingestion.IngestRequest{Tenant: "a/b", Document: index.Document{"id": "D1", "body": "apple"}},
			fields: []string{"tenant"},
		},
		{
			name:   "missing ref",
			req:    ingestion.IngestRequest{Tenant: "acme", Document: index.Document{"body": "apple"}},
			fields: []string{"id"},
		},
		{
			name: "ref only",
			req:  ingestion.IngestRequest{Tenant: "acme", Document: index.Document{"id": "D9"}},
		},
		{
			name:   "no document",
			req:    ingestion.IngestRequest{Tenant: "acme"},
			fields: []string{"document"},
		},
		{
			name: "long idempotency key",
			req: ingestion.IngestRequest{
				Tenant:         "acme",
				Document:       index.Document{"id": "D1", "title": "t"},
				IdempotencyKey: strings.Repeat("k", 256),
			},
			fields: []string{"idempotency_key"},
		},
		{
			name: "slash in idempotency key",
			req: ingestion.IngestRequest{
				Tenant:         "acme",
				Document:       index.Document{"id": "D1", "title": "t"},
				IdempotencyKey: "a/b",
			},
			fields: []string{"idempotency_key"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(&tt.req, cfg)
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Len(t, vErr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, vErr.Fields, f)
			}
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "a: one; b: two", err.Error())
}
