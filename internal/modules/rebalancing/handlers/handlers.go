// Package handlers provides HTTP handlers for rebalance runs.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/aristath/sectorpilot/internal/modules/rebalancing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RunService is the subset of the rebalancing service used by the handlers
type RunService interface {
	Generate(trigger string, dryRun bool) (*rebalancing.Run, error)
	GetLatestRun() (*rebalancing.Run, error)
	GetRun(runID string) (*rebalancing.Run, error)
	Approve(runID string, suggestionID int64) (*rebalancing.RunSuggestion, error)
	Lock(runID string, suggestionID int64) (*rebalancing.RunSuggestion, error)
}

// Handler handles rebalancing HTTP requests
type Handler struct {
	service RunService
	log     zerolog.Logger
}

// NewHandler creates a new rebalancing handler
func NewHandler(service RunService, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "rebalancing").Logger(),
	}
}

// GenerateRequest is the optional body of POST /api/rebalance/generate
type GenerateRequest struct {
	DryRun bool `json:"dry_run"`
}

// StatusRequest identifies the suggestion to approve or lock
type StatusRequest struct {
	SuggestionID int64 `json:"suggestion_id"`
}

// HandleGenerate handles POST /api/rebalance/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log.Error().Err(err).Msg("Failed to decode request body")
			h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
			return
		}
	}

	run, err := h.service.Generate(rebalancing.TriggerManual, req.DryRun)
	if err != nil {
		h.writeServiceError(w, err, "Failed to generate suggestions")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleGetLatest handles GET /api/rebalance/latest
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetLatestRun()
	if err != nil {
		h.writeServiceError(w, err, "Failed to get latest run")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleGetRun handles GET /api/rebalance/{run_id}
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.GetRun(chi.URLParam(r, "run_id"))
	if err != nil {
		h.writeServiceError(w, err, "Failed to get run")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(run))
}

// HandleApprove handles POST /api/rebalance/{run_id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleStatus(w, r, h.service.Approve)
}

// HandleLock handles POST /api/rebalance/{run_id}/lock
func (h *Handler) HandleLock(w http.ResponseWriter, r *http.Request) {
	h.handleStatus(w, r, h.service.Lock)
}

func (h *Handler) handleStatus(
	w http.ResponseWriter,
	r *http.Request,
	apply func(runID string, suggestionID int64) (*rebalancing.RunSuggestion, error),
) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if req.SuggestionID <= 0 {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "suggestion_id is required")
		return
	}

	suggestion, err := apply(chi.URLParam(r, "run_id"), req.SuggestionID)
	if err != nil {
		h.writeServiceError(w, err, "Failed to update suggestion")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(suggestion))
}

// writeServiceError maps service errors onto HTTP status codes
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		h.writeError(w, http.StatusBadRequest, "MALFORMED_INPUT", err.Error())
	case errors.Is(err, rebalancing.ErrRunNotFound), errors.Is(err, rebalancing.ErrNoRuns):
		h.writeError(w, http.StatusNotFound, "RUN_NOT_FOUND", err.Error())
	case errors.Is(err, rebalancing.ErrSuggestionNotFound):
		h.writeError(w, http.StatusNotFound, "SUGGESTION_NOT_FOUND", err.Error())
	case errors.Is(err, rebalancing.ErrInvalidStatusTransition):
		h.writeError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	default:
		h.log.Error().Err(err).Msg(msg)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", msg)
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"message": message,
			"code":    code,
		},
	})
}
