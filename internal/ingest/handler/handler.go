// Package handler exposes the ingest pipeline over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/caselens/caselens/internal/ingest"
	"github.com/caselens/caselens/internal/ingest/publisher"
	"github.com/caselens/caselens/internal/ingest/validator"
	apperrors "github.com/caselens/caselens/pkg/errors"
	"github.com/caselens/caselens/pkg/logger"
)

type Handler struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(pub *publisher.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    slog.Default().With("component", "ingest-handler"),
	}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingest.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req); err != nil {
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

	resp, err := h.publisher.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingest failed",
			"error", err,
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, "ingest failed")
		return
	}
	log.Info("document processed",
		"doc_id", resp.DocID,
		"status", resp.Status,
		"reason", resp.Reason,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

// DedupStats serves the duplicate-detector counters.
func (h *Handler) DedupStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.publisher.Stats())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
