// Package handlers provides HTTP handlers for constraint settings.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sectorpilot/internal/modules/settings"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for settings endpoints
type Handler struct {
	service *settings.Service
	log     zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(service *settings.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "settings").Logger(),
	}
}

// RegisterRoutes registers settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/constraints", h.HandleGetConstraints)
		r.Put("/constraints", h.HandleUpdateConstraints)
	})
}

// UpdateConstraintsRequest maps constraint keys to new values
type UpdateConstraintsRequest struct {
	Values map[string]float64 `json:"values"`
}

// HandleGetConstraints handles GET /api/settings/constraints
func (h *Handler) HandleGetConstraints(w http.ResponseWriter, r *http.Request) {
	constraints, err := h.service.GetConstraints()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get constraints")
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to get constraints")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": constraints,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleUpdateConstraints handles PUT /api/settings/constraints
func (h *Handler) HandleUpdateConstraints(w http.ResponseWriter, r *http.Request) {
	var req UpdateConstraintsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	if err := h.service.Update(req.Values); err != nil {
		if errors.Is(err, settings.ErrInvalidConstraint) {
			h.writeError(w, http.StatusBadRequest, "INVALID_CONSTRAINT", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to update constraints")
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to update constraints")
		return
	}

	h.HandleGetConstraints(w, r)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{"message": message, "code": code},
	})
}
