// Package ingestion defines the response type and the Kafka event schema of
// the document upload pipeline.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
)

// IngestResponse is returned to the caller after a document is stored.
type IngestResponse struct {
	Tenant    string `json:"tenant"`
	Key       string `json:"key"`
	Ref       string `json:"ref"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

const (
	StatusAccepted = "ACCEPTED"
	StatusIndexed  = "INDEXED"
)

// IngestEvent announces that a new article blob exists for Tenant. The
// indexer treats it as a trigger to rebuild the tenant's index.
type IngestEvent struct {
	Tenant     string    `json:"tenant"`
	Key        string    `json:"key"`
	Ref        string    `json:"ref"`
	IngestedAt time.Time `json:"ingested_at"`
}

// IngestRequest is one document upload after the HTTP layer has parsed it.
// Raw holds the body exactly as received; it is what gets stored. Ref is
// the document's reference under the index config.
type IngestRequest struct {
	Tenant         string
	Ref            string
	Document       index.Document
	Raw            []byte
	IdempotencyKey string
}
