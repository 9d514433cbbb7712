package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/urlcleaner/internal/delivery/http/request"
	"github.com/user/urlcleaner/internal/delivery/http/response"
	"github.com/user/urlcleaner/internal/entity"
	"github.com/user/urlcleaner/internal/normalizer"
	"github.com/user/urlcleaner/internal/usecase"
)

// maxBodyBytes bounds a clean request body.
const maxBodyBytes = 4 << 20

type Handler struct {
	cleaner           usecase.BatchCleaner
	defaultNormalizer string
	normOpts          normalizer.Options
	logger            *zap.Logger
}

func NewHandler(cleaner usecase.BatchCleaner, defaultNormalizer string, normOpts normalizer.Options, logger *zap.Logger) *Handler {
	return &Handler{
		cleaner:           cleaner,
		defaultNormalizer: defaultNormalizer,
		normOpts:          normOpts,
		logger:            logger,
	}
}

// HandleClean runs a batch through the full pipeline and returns every
// record once the run is over.
func (h *Handler) HandleClean(w http.ResponseWriter, r *http.Request) {
	var req request.CleanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	name := req.Normalizer
	if name == "" {
		name = h.defaultNormalizer
	}

	stats, summary, err := h.cleaner.Clean(r.Context(), name, req.URLs)
	switch {
	case err == nil:
	case errors.Is(err, usecase.ErrEmptyBatch), errors.Is(err, normalizer.ErrUnknownNormalizer):
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, usecase.ErrBatchTooLarge):
		h.writeJSONError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case errors.Is(err, usecase.ErrRunCancelled):
		h.logger.Warn("Clean run cancelled", zap.Int("urls", len(req.URLs)), zap.Error(err))
		h.writeJSONError(w, "Run cancelled before completion", http.StatusServiceUnavailable)
		return
	default:
		h.logger.Error("Failed to clean batch", zap.Int("urls", len(req.URLs)), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if stats == nil {
		stats = []*entity.URLStat{}
	}
	h.writeJSON(w, http.StatusOK, response.CleanResponse{
		RunID:   summary.RunID,
		State:   summary.State,
		Results: stats,
		Summary: summary,
	})
}

// HandleNormalize applies only the local rules to the url query parameter.
func (h *Handler) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := q.Get("url")
	if raw == "" {
		h.writeJSONError(w, "URL query parameter is required", http.StatusBadRequest)
		return
	}
	name := q.Get("normalizer")
	if name == "" {
		name = h.defaultNormalizer
	}
	normalize, err := normalizer.Lookup(name, h.normOpts)
	if err != nil {
		h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res := normalize(raw)
	h.writeJSON(w, http.StatusOK, response.NormalizeResponse{
		URL:        raw,
		Normalizer: name,
		Verdict:    res.Kind.String(),
		CleanURL:   res.URL,
		Reason:     res.Reason,
	})
}

func (h *Handler) HandleNormalizers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string][]string{"normalizers": normalizer.Names()})
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
