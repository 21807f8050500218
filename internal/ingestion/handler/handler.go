package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tenant-search/pkg/logger"
)

// IdempotencyHeader lets clients retry an upload without storing it twice.
const IdempotencyHeader = "Idempotency-Key"

type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

type Handler struct {
	ingester     Ingester
	cfg          index.Config
	maxBodyBytes int64
	logger       *slog.Logger
}

func New(ing Ingester, cfg index.Config, maxBodyBytes int64) *Handler {
	return &Handler{
		ingester:     ing,
		cfg:          cfg.WithDefaults(),
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "ingestion-handler"),
	}
}

// Ingest serves POST /api/v1/documents?tenant=. The body is one flat JSON
// document.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant := r.URL.Query().Get("tenant")
	ctx := logger.WithTenant(r.Context(), tenant)
	log := logger.FromContext(ctx)

	body := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "document too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "unable to read body")
		return
	}
	var doc index.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := ingestion.IngestRequest{
		Tenant:         tenant,
		Ref:            doc.Ref(h.cfg),
		Document:       doc,
		Raw:            raw,
		IdempotencyKey: r.Header.Get(IdempotencyHeader),
	}
	if err := validator.ValidateIngestRequest(&req, h.cfg); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("document ingested",
		"key", resp.Key,
		"ref", resp.Ref,
		"duplicate", resp.Duplicate,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
