package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/claimscore/claimscore/internal/ingestion"
	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
)

const (
	defaultClaimLimit = 100
	maxClaimLimit     = 1000
)

// batchResponse is the body returned for a batch.
type batchResponse struct {
	Batch   *ingestion.Batch `json:"batch"`
	Summary *scoring.Summary `json:"summary,omitempty"`
}

type claimsResponse struct {
	BatchID string                  `json:"batch_id"`
	Label   claim.Label             `json:"label,omitempty"`
	Claims  []ingestion.ScoredClaim `json:"claims"`
}

// handleCreateBatch handles POST /api/v1/batches: the body is a raw claims
// CSV, optionally gzip-compressed. The batch is scored synchronously.
func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	holdout := 0
	if v := r.URL.Query().Get("holdout"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "holdout must be a non-negative integer")
			return
		}
		holdout = n
	}

	// Support gzip-compressed request bodies
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body: "+err.Error())
			return
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, h.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	if int64(len(data)) > h.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "dataset exceeds upload limit")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty dataset")
		return
	}

	ctx := r.Context()
	datasetID, err := h.batches.StoreDataset(ctx, data)
	if err != nil {
		h.log.Error().Err(err).Msg("store dataset")
		writeError(w, http.StatusInternalServerError, "failed to store dataset")
		return
	}

	out, err := h.batches.ProcessBatch(ctx, ingestion.BatchRequest{
		DatasetID: datasetID,
		Holdout:   holdout,
		Source:    r.URL.Query().Get("source"),
	})
	if err != nil {
		if isInputError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error(), "dataset_id": datasetID})
			return
		}
		h.log.Error().Err(err).Str("dataset_id", datasetID).Msg("process batch")
		writeError(w, http.StatusInternalServerError, "failed to process batch")
		return
	}

	summary := &out.Result.Summary
	h.cache.Put(out.Batch.ID, summary)
	writeJSON(w, http.StatusCreated, batchResponse{Batch: out.Batch, Summary: summary})
}

// isInputError reports whether err was caused by the uploaded dataset rather
// than by the service.
func isInputError(err error) bool {
	var schemaErr *claim.SchemaError
	var parseErr *claim.ParseError
	var rowErr *claim.RowError
	return errors.As(err, &schemaErr) || errors.As(err, &parseErr) || errors.As(err, &rowErr)
}

func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchID")

	b, err := h.batches.GetBatch(r.Context(), batchID)
	if errors.Is(err, ingestion.ErrNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("get batch")
		writeError(w, http.StatusInternalServerError, "failed to load batch")
		return
	}

	writeJSON(w, http.StatusOK, batchResponse{Batch: b, Summary: h.cache.Get(batchID)})
}

func (h *Handler) handleListClaims(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchID")
	q := r.URL.Query()

	var label claim.Label
	if v := q.Get("label"); v != "" {
		label = claim.Label(strings.ToUpper(v))
		if !validLabel(label) {
			writeError(w, http.StatusBadRequest, "label must be one of HIGH, MEDIUM, NORMAL")
			return
		}
	}

	limit := defaultClaimLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxClaimLimit)
	}

	claims, err := h.batches.ListClaims(r.Context(), batchID, label, limit)
	if errors.Is(err, ingestion.ErrNotFound) {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("list claims")
		writeError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}
	if claims == nil {
		claims = []ingestion.ScoredClaim{}
	}

	writeJSON(w, http.StatusOK, claimsResponse{BatchID: batchID, Label: label, Claims: claims})
}

func validLabel(l claim.Label) bool {
	for _, known := range claim.Labels {
		if l == known {
			return true
		}
	}
	return false
}

func (h *Handler) handleLabeled(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("batchID")

	data, err := h.batches.Labeled(r.Context(), batchID)
	switch {
	case errors.Is(err, ingestion.ErrNotFound):
		writeError(w, http.StatusNotFound, "batch not found")
		return
	case errors.Is(err, ingestion.ErrNotCompleted):
		writeError(w, http.StatusConflict, "batch has not completed")
		return
	case err != nil:
		h.log.Error().Err(err).Str("batch_id", batchID).Msg("load labeled table")
		writeError(w, http.StatusInternalServerError, "failed to load labeled table")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+batchID+`-labeled.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
