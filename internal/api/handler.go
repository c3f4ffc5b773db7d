// Package api implements the claimscore REST API.
// It provides batch upload and read endpoints backed by the ingestion service.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/claimscore/claimscore/internal/ingestion"
	"github.com/claimscore/claimscore/pkg/claim"
)

// BatchService is the subset of the ingestion service the API uses.
type BatchService interface {
	StoreDataset(ctx context.Context, data []byte) (string, error)
	ProcessBatch(ctx context.Context, req ingestion.BatchRequest) (*ingestion.Outcome, error)
	GetBatch(ctx context.Context, id string) (*ingestion.Batch, error)
	ListClaims(ctx context.Context, batchID string, label claim.Label, limit int) ([]ingestion.ScoredClaim, error)
	Labeled(ctx context.Context, batchID string) ([]byte, error)
}

// Handler is the top-level API handler for the claimscore service.
type Handler struct {
	batches BatchService
	cache   *SummaryCache
	log     zerolog.Logger

	// MaxUploadBytes bounds the decoded size of an uploaded dataset.
	MaxUploadBytes int64
}

// DefaultMaxUploadBytes is the default upload limit.
const DefaultMaxUploadBytes = 256 << 20

// NewHandler creates a new API handler.
func NewHandler(batches BatchService, cache *SummaryCache, log zerolog.Logger) *Handler {
	if cache == nil {
		cache = NewSummaryCache(0)
	}
	return &Handler{
		batches:        batches,
		cache:          cache,
		log:            log.With().Str("component", "api").Logger(),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Write endpoints (auth-protected)
	mux.HandleFunc("POST /api/v1/batches", h.handleCreateBatch)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/batches/{batchID}", h.handleGetBatch)
	mux.HandleFunc("GET /api/v1/batches/{batchID}/claims", h.handleListClaims)
	mux.HandleFunc("GET /api/v1/batches/{batchID}/labeled", h.handleLabeled)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
